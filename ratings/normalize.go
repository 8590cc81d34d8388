package ratings

// DisplayScale is the upper bound of the normalized leaderboard scale.
const DisplayScale = 100.0

// Normalizer maps raw ratings onto a bounded display scale using the
// population's observed spread. It is rebuilt periodically by the
// normalization sweep, not per rating update, so the display scale stays
// stable while the raw distribution drifts.
type Normalizer struct {
	min float64
	max float64
}

// NewNormalizer observes the current rating population. An empty or
// single-valued population yields a degenerate normalizer that maps
// everything to the middle of the scale.
func NewNormalizer(population []float64) Normalizer {
	if len(population) == 0 {
		return Normalizer{}
	}
	n := Normalizer{min: population[0], max: population[0]}
	for _, r := range population[1:] {
		if r < n.min {
			n.min = r
		}
		if r > n.max {
			n.max = r
		}
	}
	return n
}

// Normalize maps a raw rating into [0, DisplayScale].
func (n Normalizer) Normalize(rating float64) float64 {
	if n.max <= n.min {
		return DisplayScale / 2
	}
	v := (rating - n.min) / (n.max - n.min) * DisplayScale
	if v < 0 {
		return 0
	}
	if v > DisplayScale {
		return DisplayScale
	}
	return v
}
