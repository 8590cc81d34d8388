package standings

import "sort"

// TeamRef is the minimal team identity the table builder needs. The name
// participates in the final tie-break, so the ordering is always total.
type TeamRef struct {
	ID   string
	Name string
}

// Result is one completed match inside a group. WinnerID nil means a tie.
// A forfeit is recorded as a zero-point margin with the forfeiting team as
// the loser.
type Result struct {
	TeamAID  string
	TeamBID  string
	ScoreA   int
	ScoreB   int
	WinnerID *string
	Forfeit  bool
}

// Row is one line of a group table.
type Row struct {
	TeamID            string
	TeamName          string
	Wins              int
	Losses            int
	MatchesPlayed     int
	PointsFor         int
	PointsAgainst     int
	PointDifferential int
	Position          int
}

// BuildTable rebuilds a group table from scratch out of the group's
// completed matches. It is a pure full rebuild: calling it twice over the
// same input yields identical output, which is what makes standings
// recomputation idempotent and safe after match corrections.
//
// Ordering applies the tie-break chain until a difference is found:
// wins desc, point differential desc, points-for desc, team name asc.
func BuildTable(teams []TeamRef, results []Result) []Row {
	index := make(map[string]*Row, len(teams))
	rows := make([]*Row, 0, len(teams))
	for _, t := range teams {
		row := &Row{TeamID: t.ID, TeamName: t.Name}
		index[t.ID] = row
		rows = append(rows, row)
	}

	for _, res := range results {
		rowA := index[res.TeamAID]
		rowB := index[res.TeamBID]
		if rowA == nil || rowB == nil {
			// Result references a team outside the group; ignore it.
			continue
		}

		rowA.MatchesPlayed++
		rowB.MatchesPlayed++
		if !res.Forfeit {
			// A forfeit counts as a win and a loss at a zero-point
			// margin; whatever scoreline was reported stays out of the
			// points columns.
			rowA.PointsFor += res.ScoreA
			rowA.PointsAgainst += res.ScoreB
			rowB.PointsFor += res.ScoreB
			rowB.PointsAgainst += res.ScoreA
		}

		if res.WinnerID != nil {
			if *res.WinnerID == res.TeamAID {
				rowA.Wins++
				rowB.Losses++
			} else {
				rowB.Wins++
				rowA.Losses++
			}
		}
	}

	for _, row := range rows {
		row.PointDifferential = row.PointsFor - row.PointsAgainst
	}

	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Wins != b.Wins {
			return a.Wins > b.Wins
		}
		if a.PointDifferential != b.PointDifferential {
			return a.PointDifferential > b.PointDifferential
		}
		if a.PointsFor != b.PointsFor {
			return a.PointsFor > b.PointsFor
		}
		return a.TeamName < b.TeamName
	})

	out := make([]Row, len(rows))
	for i, row := range rows {
		row.Position = i + 1
		out[i] = *row
	}
	return out
}
