package models

import "time"

// TournamentGroup is one group of the group stage. AdvancementCount teams
// advance into the elimination bracket when the stage closes. SortOrder fixes
// the group index used by the bracket seeder's interleave.
type TournamentGroup struct {
	ID               string    `json:"id" db:"id"`
	TournamentID     string    `json:"tournament_id" db:"tournament_id"`
	Name             string    `json:"name" db:"name"`
	AdvancementCount int       `json:"advancement_count" db:"advancement_count"`
	SortOrder        int       `json:"sort_order" db:"sort_order"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

// GroupMember assigns a team to a group.
type GroupMember struct {
	ID      string `json:"id" db:"id"`
	GroupID string `json:"group_id" db:"group_id"`
	TeamID  string `json:"team_id" db:"team_id"`
	Seed    *int   `json:"seed,omitempty" db:"seed"`
}

// GroupStanding is one row of a group table. Standings are rebuilt wholesale
// from the group's completed matches after every result, never mutated
// incrementally.
type GroupStanding struct {
	ID                string    `json:"id" db:"id"`
	GroupID           string    `json:"group_id" db:"group_id"`
	TeamID            string    `json:"team_id" db:"team_id"`
	Wins              int       `json:"wins" db:"wins"`
	Losses            int       `json:"losses" db:"losses"`
	MatchesPlayed     int       `json:"matches_played" db:"matches_played"`
	PointsFor         int       `json:"points_for" db:"points_for"`
	PointsAgainst     int       `json:"points_against" db:"points_against"`
	PointDifferential int       `json:"point_differential" db:"point_differential"`
	Position          int       `json:"position" db:"position"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`

	// Populated by the service for responses, not stored.
	Team *Team `json:"team,omitempty" db:"-"`
}
