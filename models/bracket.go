package models

import "time"

// BracketSeed is a team's slot in the elimination bracket, generated once
// when the group stage closes and immutable afterwards.
type BracketSeed struct {
	ID            string    `json:"id" db:"id"`
	TournamentID  string    `json:"tournament_id" db:"tournament_id"`
	Seed          int       `json:"seed" db:"seed"`
	TeamID        string    `json:"team_id" db:"team_id"`
	GroupID       string    `json:"group_id" db:"group_id"`
	GroupPosition int       `json:"group_position" db:"group_position"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}
