package models

import "time"

// LeaderboardTier is the display bracket a team falls into based on its
// current RP. It is purely presentational and recomputed with global ranks.
type LeaderboardTier string

const (
	TierBronze      LeaderboardTier = "bronze"
	TierSilver      LeaderboardTier = "silver"
	TierGold        LeaderboardTier = "gold"
	TierPlatinum    LeaderboardTier = "platinum"
	TierDiamond     LeaderboardTier = "diamond"
	TierPinkDiamond LeaderboardTier = "pink_diamond"
	TierGalaxyOpal  LeaderboardTier = "galaxy_opal"
)

// Team is a competing roster. CurrentRP and EloRating are cached projections
// maintained exclusively by the ledger and rating services; no other code
// path writes them.
type Team struct {
	ID              string          `json:"id" db:"id"`
	Name            string          `json:"name" db:"name"`
	EloRating       float64         `json:"elo_rating" db:"elo_rating"`
	DisplayRating   float64         `json:"display_rating" db:"display_rating"`
	CurrentRP       int             `json:"current_rp" db:"current_rp"`
	LeaderboardTier LeaderboardTier `json:"leaderboard_tier" db:"leaderboard_tier"`
	GlobalRank      *int            `json:"global_rank,omitempty" db:"global_rank"`
	MoneyWon        int             `json:"money_won" db:"money_won"`
	LogoKey         *string         `json:"-" db:"logo_key"`
	LogoURL         *string         `json:"logo_url,omitempty" db:"-"`
	RetiredAt       *time.Time      `json:"retired_at,omitempty" db:"retired_at"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
}

// Retired reports whether the team has been soft-retired. Teams with match
// history are never deleted, only retired.
func (t *Team) Retired() bool {
	return t.RetiredAt != nil
}

// TierForRP maps an RP balance onto a leaderboard tier.
func TierForRP(rp int) LeaderboardTier {
	switch {
	case rp >= 6500:
		return TierGalaxyOpal
	case rp >= 5000:
		return TierPinkDiamond
	case rp >= 4000:
		return TierDiamond
	case rp >= 3000:
		return TierPlatinum
	case rp >= 2000:
		return TierGold
	case rp >= 1000:
		return TierSilver
	default:
		return TierBronze
	}
}
