package models

import "time"

type SubjectType string

const (
	SubjectTeam   SubjectType = "team"
	SubjectPlayer SubjectType = "player"
)

// SubjectRef identifies a ledger subject (a team or a player).
type SubjectRef struct {
	Type SubjectType `json:"type"`
	ID   string      `json:"id"`
}

func TeamSubject(id string) SubjectRef   { return SubjectRef{Type: SubjectTeam, ID: id} }
func PlayerSubject(id string) SubjectRef { return SubjectRef{Type: SubjectPlayer, ID: id} }

type RPTransactionType string

const (
	RPTypeAward      RPTransactionType = "award"
	RPTypeBonus      RPTransactionType = "bonus"
	RPTypeDecay      RPTransactionType = "decay"
	RPTypeAdjustment RPTransactionType = "adjustment"
)

// RPTransaction is one entry of the append-only ranking-point ledger. The
// current balance of a subject is the sum of its transaction amounts; entries
// are never mutated or deleted, reversals are new negative entries.
//
// DecayPeriodStart is set only on decay entries and acts as the idempotency
// key: at most one decay transaction per subject and period.
type RPTransaction struct {
	ID               string            `json:"id" db:"id"`
	SubjectType      SubjectType       `json:"subject_type" db:"subject_type"`
	SubjectID        string            `json:"subject_id" db:"subject_id"`
	Amount           int               `json:"amount" db:"amount"`
	Type             RPTransactionType `json:"type" db:"type"`
	Description      string            `json:"description" db:"description"`
	MatchID          *string           `json:"match_id,omitempty" db:"match_id"`
	TournamentID     *string           `json:"tournament_id,omitempty" db:"tournament_id"`
	DecayPeriodStart *time.Time        `json:"decay_period_start,omitempty" db:"decay_period_start"`
	CreatedAt        time.Time         `json:"created_at" db:"created_at"`
}

// Earning reports whether the transaction counts as RP-earning activity for
// decay purposes.
func (t *RPTransaction) Earning() bool {
	return t.Amount > 0 && t.Type != RPTypeDecay
}
