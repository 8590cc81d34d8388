package models

import "time"

// TournamentStatus follows the lifecycle: registration -> group_play ->
// bracket -> completed. The group_play -> bracket transition is what seeds
// the elimination bracket.
type TournamentStatus string

const (
	TournamentRegistration TournamentStatus = "registration"
	TournamentGroupPlay    TournamentStatus = "group_play"
	TournamentBracket      TournamentStatus = "bracket"
	TournamentCompleted    TournamentStatus = "completed"
)

type Tournament struct {
	ID         string           `json:"id" db:"id"`
	Name       string           `json:"name" db:"name"`
	Status     TournamentStatus `json:"status" db:"status"`
	DecayDays  *int             `json:"decay_days,omitempty" db:"decay_days"`
	ChampionID *string          `json:"champion_id,omitempty" db:"champion_id"`
	RunnerUpID *string          `json:"runner_up_id,omitempty" db:"runner_up_id"`
	CreatedAt  time.Time        `json:"created_at" db:"created_at"`
}

// TeamRoster links a player to a team for one tournament. Placement bonuses
// pay out per rostered player.
type TeamRoster struct {
	ID           string `json:"id" db:"id"`
	TeamID       string `json:"team_id" db:"team_id"`
	PlayerID     string `json:"player_id" db:"player_id"`
	TournamentID string `json:"tournament_id" db:"tournament_id"`
	IsCaptain    bool   `json:"is_captain" db:"is_captain"`
}
