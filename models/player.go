package models

import "time"

// SalaryTierName is the S/A/B/C/D valuation class. Unrelated to the
// leaderboard tier, which is RP-driven.
type SalaryTierName string

const (
	SalaryTierS SalaryTierName = "S"
	SalaryTierA SalaryTierName = "A"
	SalaryTierB SalaryTierName = "B"
	SalaryTierC SalaryTierName = "C"
	SalaryTierD SalaryTierName = "D"
)

// Player profile with ranking state. PlayerRP is a cached projection of the
// RP ledger, RankScore/SalaryTier/MonthlyValue are maintained by the salary
// classifier.
type Player struct {
	ID               string         `json:"id" db:"id"`
	Gamertag         string         `json:"gamertag" db:"gamertag"`
	TeamID           *string        `json:"team_id,omitempty" db:"team_id"`
	PlayerRP         int            `json:"player_rp" db:"player_rp"`
	PerformanceScore float64        `json:"performance_score" db:"performance_score"`
	RankScore        float64        `json:"rank_score" db:"rank_score"`
	SalaryTier       SalaryTierName `json:"salary_tier" db:"salary_tier"`
	MonthlyValue     int            `json:"monthly_value" db:"monthly_value"`
	IsRookie         bool           `json:"is_rookie" db:"is_rookie"`
	CreatedAt        time.Time      `json:"created_at" db:"created_at"`
}
