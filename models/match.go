package models

import "time"

type MatchStatus string

const (
	MatchStatusScheduled MatchStatus = "scheduled"
	MatchStatusCompleted MatchStatus = "completed"
	MatchStatusCanceled  MatchStatus = "canceled"
)

// Stage labels a match within a tournament phase.
type Stage string

const (
	StageRegularSeason Stage = "Regular Season"
	StageGroupPlay     Stage = "Group Play"
	StageRound1        Stage = "Round 1"
	StageRound2        Stage = "Round 2"
	StageRound3        Stage = "Round 3"
	StageRound4        Stage = "Round 4"
	StageSemiFinals    Stage = "Semi Finals"
	StageFinals        Stage = "Finals"
)

// Match is a recorded result between two teams. WinnerID nil means a tie.
// A match is immutable once recorded; corrections go through
// MatchService.CorrectMatch, which replays the affected group standings.
//
// NextMatchID/NextSlot wire the elimination bracket: the winner of this
// match advances into slot NextSlot (1 or 2) of NextMatchID.
type Match struct {
	ID           string      `json:"id" db:"id"`
	TournamentID string      `json:"tournament_id" db:"tournament_id"`
	GroupID      *string     `json:"group_id,omitempty" db:"group_id"`
	TeamAID      *string     `json:"team_a_id,omitempty" db:"team_a_id"`
	TeamBID      *string     `json:"team_b_id,omitempty" db:"team_b_id"`
	ScoreA       int         `json:"score_a" db:"score_a"`
	ScoreB       int         `json:"score_b" db:"score_b"`
	WinnerID     *string     `json:"winner_id,omitempty" db:"winner_id"`
	Stage        Stage       `json:"stage" db:"stage"`
	Round        *int        `json:"round,omitempty" db:"round"`
	OrderInRound *int        `json:"order_in_round,omitempty" db:"order_in_round"`
	NextMatchID  *string     `json:"next_match_id,omitempty" db:"next_match_id"`
	NextSlot     *int        `json:"next_slot,omitempty" db:"next_slot"`
	IsForfeit    bool        `json:"is_forfeit" db:"is_forfeit"`
	// RatingDelta is the Elo amount transferred from loser to winner when
	// the result was applied. Stored so a correction can revert the exact
	// transfer before reapplying.
	RatingDelta float64 `json:"rating_delta" db:"rating_delta"`
	Status       MatchStatus `json:"status" db:"status"`
	MatchTime    time.Time   `json:"match_time" db:"match_time"`
	PlayedAt     *time.Time  `json:"played_at,omitempty" db:"played_at"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
}

// IsTie reports whether the match ended without a winner.
func (m *Match) IsTie() bool {
	return m.Status == MatchStatusCompleted && m.WinnerID == nil
}

// LoserID returns the losing team for a decided match, nil otherwise.
func (m *Match) LoserID() *string {
	if m.WinnerID == nil || m.TeamAID == nil || m.TeamBID == nil {
		return nil
	}
	if *m.WinnerID == *m.TeamAID {
		return m.TeamBID
	}
	return m.TeamAID
}

// MatchMVP marks the most valuable player of a tournament (or of a single
// match when MatchID is set).
type MatchMVP struct {
	TournamentID string  `json:"tournament_id" db:"tournament_id"`
	MatchID      *string `json:"match_id,omitempty" db:"match_id"`
	PlayerID     string  `json:"player_id" db:"player_id"`
}
