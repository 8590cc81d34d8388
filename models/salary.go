package models

// SalaryTier is a configuration row mapping a rank-score range onto a
// valuation class. Ranges are half-open [MinRating, MaxRating) and must not
// overlap; lookup checks the highest tier first.
type SalaryTier struct {
	ID         string         `json:"id" db:"id"`
	Name       SalaryTierName `json:"name" db:"name"`
	MinRating  float64        `json:"min_rating" db:"min_rating"`
	MaxRating  float64        `json:"max_rating" db:"max_rating"`
	Multiplier float64        `json:"multiplier" db:"multiplier"`
}

// Contains reports whether score falls inside the tier's bucket.
func (t *SalaryTier) Contains(score float64) bool {
	return score >= t.MinRating && score < t.MaxRating
}

// DefaultSalaryTiers is the seed configuration, highest tier first.
var DefaultSalaryTiers = []SalaryTier{
	{Name: SalaryTierS, MinRating: 85, MaxRating: 1 << 20, Multiplier: 2.0},
	{Name: SalaryTierA, MinRating: 70, MaxRating: 85, Multiplier: 1.5},
	{Name: SalaryTierB, MinRating: 55, MaxRating: 70, Multiplier: 1.2},
	{Name: SalaryTierC, MinRating: 40, MaxRating: 55, Multiplier: 1.0},
	{Name: SalaryTierD, MinRating: 0, MaxRating: 40, Multiplier: 0.8},
}
