package brackets

import (
	"errors"
	"sort"
)

var ErrNotEnoughTeams = errors.New("not enough teams to build an elimination bracket (minimum 2)")

// GroupQualifier is a team advancing out of the group stage.
type GroupQualifier struct {
	TeamID        string
	GroupID       string
	GroupIndex    int // group sort order within the tournament
	GroupPosition int // 1-based final position within the group
}

// SnakeSeeds orders qualifiers into seed order: every group's first-placed
// team (in group order), then every second-placed team, and so on. The
// interleave guarantees that no two teams from the same group can meet in
// the first bracket round, and the (GroupPosition, GroupIndex) key makes the
// assignment fully deterministic.
func SnakeSeeds(qualifiers []GroupQualifier) []GroupQualifier {
	seeded := make([]GroupQualifier, len(qualifiers))
	copy(seeded, qualifiers)
	sort.Slice(seeded, func(i, j int) bool {
		if seeded[i].GroupPosition != seeded[j].GroupPosition {
			return seeded[i].GroupPosition < seeded[j].GroupPosition
		}
		return seeded[i].GroupIndex < seeded[j].GroupIndex
	})
	return seeded
}

// BracketSize returns the smallest power of two that fits n teams.
func BracketSize(n int) int {
	size := 1
	for size < n {
		size <<= 1
	}
	return size
}

// NumRounds returns the number of elimination rounds for n teams.
func NumRounds(n int) int {
	rounds := 0
	for size := 1; size < n; size <<= 1 {
		rounds++
	}
	return rounds
}

// SlotOrder returns seed numbers (1-based) in bracket slot order for a full
// bracket of the given size. Consecutive pairs are the first-round matches:
// seed 1 meets the lowest seed, seed 2 the second lowest, and the halves are
// arranged so the top two seeds can only meet in the final.
func SlotOrder(size int) []int {
	order := []int{1}
	for len(order) < size {
		doubled := len(order) * 2
		next := make([]int, 0, doubled)
		for _, s := range order {
			next = append(next, s, doubled+1-s)
		}
		order = next
	}
	return order
}

// Pairing is one first-round match in bracket order. SeedB == 0 marks a bye:
// SeedA advances without playing.
type Pairing struct {
	OrderInRound int
	SeedA        int
	SeedB        int
}

// Bye reports whether the pairing has no opponent.
func (p Pairing) Bye() bool { return p.SeedB == 0 }

// FirstRoundPairings pairs numTeams seeds into the first round of a full
// bracket, assigning byes to the top seeds when the field is not a power of
// two.
func FirstRoundPairings(numTeams int) ([]Pairing, error) {
	if numTeams < 2 {
		return nil, ErrNotEnoughTeams
	}

	slots := SlotOrder(BracketSize(numTeams))
	pairings := make([]Pairing, 0, len(slots)/2)
	for i := 0; i < len(slots); i += 2 {
		p := Pairing{
			OrderInRound: i/2 + 1,
			SeedA:        slots[i],
			SeedB:        slots[i+1],
		}
		// Phantom seeds beyond the real field are byes for their opponent.
		if p.SeedA > numTeams {
			p.SeedA, p.SeedB = p.SeedB, 0
		} else if p.SeedB > numTeams {
			p.SeedB = 0
		}
		pairings = append(pairings, p)
	}
	return pairings, nil
}

// NextSlot maps a match's order within its round onto the next round: the
// winner of match k feeds slot 1 or 2 of next-round match (k+1)/2.
func NextSlot(orderInRound int) (nextOrder, slot int) {
	nextOrder = (orderInRound + 1) / 2
	slot = 2 - orderInRound%2
	return nextOrder, slot
}
