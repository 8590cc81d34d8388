package ratings

import "math"

// DefaultKFactor is the standard update weight for regular matches. Finals
// typically run with a higher K, passed per call.
const DefaultKFactor = 32.0

// InitialRating is where every new team starts.
const InitialRating = 1500.0

// ExpectedScore returns the probability of the first rating beating the
// second under the Elo model.
func ExpectedScore(rating, opponent float64) float64 {
	return 1 / (1 + math.Pow(10, (opponent-rating)/400))
}

// ApplyMatchResult computes the post-match ratings of a decided match.
// Draws never reach this function: a tie leaves both ratings untouched.
func ApplyMatchResult(winner, loser, kFactor float64) (newWinner, newLoser float64) {
	expectedWin := ExpectedScore(winner, loser)
	expectedLoss := 1 - expectedWin

	newWinner = winner + kFactor*(1-expectedWin)
	newLoser = loser + kFactor*(0-expectedLoss)
	return newWinner, newLoser
}
