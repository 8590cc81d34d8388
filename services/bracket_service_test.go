package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upaleague/ranking-engine/models"
)

// fourTeamFixture sets up a tournament in group play with two groups of two
// teams, each group decided by one completed match:
//
//	Group A: t1 beats t2   Group B: t3 beats t4
func fourTeamFixture(t *testing.T) *matchFixture {
	t.Helper()

	teams := []*models.Team{
		{ID: "t1", Name: "Breakers", EloRating: 1500},
		{ID: "t2", Name: "Vipers", EloRating: 1500},
		{ID: "t3", Name: "Comets", EloRating: 1500},
		{ID: "t4", Name: "Djinns", EloRating: 1500},
	}
	groups := []*models.TournamentGroup{
		{ID: "g1", TournamentID: "tour1", Name: "Group A", AdvancementCount: 2, SortOrder: 0},
		{ID: "g2", TournamentID: "tour1", Name: "Group B", AdvancementCount: 2, SortOrder: 1},
	}
	tournaments := []*models.Tournament{
		{ID: "tour1", Name: "Summer Open", Status: models.TournamentGroupPlay},
	}
	f := newMatchFixture(t, teams, groups, tournaments)

	ctx := context.Background()
	require.NoError(t, f.groupRepo.AddMember(ctx, nil, &models.GroupMember{ID: "m1", GroupID: "g1", TeamID: "t1"}))
	require.NoError(t, f.groupRepo.AddMember(ctx, nil, &models.GroupMember{ID: "m2", GroupID: "g1", TeamID: "t2"}))
	require.NoError(t, f.groupRepo.AddMember(ctx, nil, &models.GroupMember{ID: "m3", GroupID: "g2", TeamID: "t3"}))
	require.NoError(t, f.groupRepo.AddMember(ctx, nil, &models.GroupMember{ID: "m4", GroupID: "g2", TeamID: "t4"}))

	g1, g2 := "g1", "g2"
	w1, w3 := "t1", "t3"
	a, b, c, d := "t1", "t2", "t3", "t4"
	played := time.Now()
	require.NoError(t, f.matchRepo.Create(ctx, nil, &models.Match{
		ID: "gm1", TournamentID: "tour1", GroupID: &g1, TeamAID: &a, TeamBID: &b,
		ScoreA: 72, ScoreB: 60, WinnerID: &w1, Status: models.MatchStatusCompleted, PlayedAt: &played,
	}))
	require.NoError(t, f.matchRepo.Create(ctx, nil, &models.Match{
		ID: "gm2", TournamentID: "tour1", GroupID: &g2, TeamAID: &c, TeamBID: &d,
		ScoreA: 80, ScoreB: 70, WinnerID: &w3, Status: models.MatchStatusCompleted, PlayedAt: &played,
	}))
	return f
}

func newBracketService(f *matchFixture) BracketService {
	standings := NewStandingsService(f.groupRepo, f.matchRepo, f.teamRepo, newTestLocks(), testLogger())
	return NewBracketService(fakeTxRunner{}, f.seedRepo, f.matchRepo, f.tourRepo, standings, NopBroadcaster{}, testLogger())
}

func TestSeedBracketSnakeInterleave(t *testing.T) {
	f := fourTeamFixture(t)
	svc := newBracketService(f)

	seeds, err := svc.SeedBracket(context.Background(), "tour1")
	require.NoError(t, err)
	require.Len(t, seeds, 4)

	// Group winners first in group order, then the runners-up.
	teamsInSeedOrder := []string{seeds[0].TeamID, seeds[1].TeamID, seeds[2].TeamID, seeds[3].TeamID}
	assert.Equal(t, []string{"t1", "t3", "t2", "t4"}, teamsInSeedOrder)

	tournament, err := f.tourRepo.GetByID(context.Background(), nil, "tour1")
	require.NoError(t, err)
	assert.Equal(t, models.TournamentBracket, tournament.Status)
}

func TestSeedBracketTwiceReturnsOriginalSeeds(t *testing.T) {
	f := fourTeamFixture(t)
	svc := newBracketService(f)

	first, err := svc.SeedBracket(context.Background(), "tour1")
	require.NoError(t, err)

	second, err := svc.SeedBracket(context.Background(), "tour1")
	assert.ErrorIs(t, err, ErrAlreadySeeded)
	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].TeamID, second[i].TeamID)
		assert.Equal(t, first[i].Seed, second[i].Seed)
	}
}

func TestSeedBracketRequiresGroupPlay(t *testing.T) {
	f := newMatchFixture(t, nil,
		[]*models.TournamentGroup{{ID: "g1", TournamentID: "tour1", Name: "Group A", AdvancementCount: 2}},
		[]*models.Tournament{{ID: "tour1", Name: "Summer Open", Status: models.TournamentRegistration}},
	)
	f.groupRepo.AddMember(context.Background(), nil, &models.GroupMember{ID: "m1", GroupID: "g1", TeamID: "t1"})
	f.teamRepo.Create(context.Background(), nil, &models.Team{ID: "t1", Name: "Breakers"})
	f.teamRepo.Create(context.Background(), nil, &models.Team{ID: "t2", Name: "Vipers"})
	f.groupRepo.AddMember(context.Background(), nil, &models.GroupMember{ID: "m2", GroupID: "g1", TeamID: "t2"})
	svc := newBracketService(f)

	_, err := svc.SeedBracket(context.Background(), "tour1")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestSeedBracketInsufficientTeams(t *testing.T) {
	f := newMatchFixture(t,
		[]*models.Team{{ID: "t1", Name: "Breakers"}},
		[]*models.TournamentGroup{{ID: "g1", TournamentID: "tour1", Name: "Group A", AdvancementCount: 1}},
		[]*models.Tournament{{ID: "tour1", Name: "Summer Open", Status: models.TournamentGroupPlay}},
	)
	require.NoError(t, f.groupRepo.AddMember(context.Background(), nil, &models.GroupMember{ID: "m1", GroupID: "g1", TeamID: "t1"}))
	svc := newBracketService(f)

	_, err := svc.SeedBracket(context.Background(), "tour1")
	assert.ErrorIs(t, err, ErrInsufficientTeams)
}

func TestGenerateMatchesWiresBracketTree(t *testing.T) {
	f := fourTeamFixture(t)
	svc := newBracketService(f)

	_, err := svc.SeedBracket(context.Background(), "tour1")
	require.NoError(t, err)

	start := time.Date(2026, 9, 1, 18, 0, 0, 0, time.UTC)
	generated, err := svc.GenerateMatches(context.Background(), "tour1", start, time.Hour)
	require.NoError(t, err)
	require.Len(t, generated, 3, "four teams produce two semifinals and a final")

	var final *models.Match
	var semis []*models.Match
	for _, match := range generated {
		if match.NextMatchID == nil {
			final = match
		} else {
			semis = append(semis, match)
		}
	}
	require.NotNil(t, final)
	require.Len(t, semis, 2)
	assert.Equal(t, models.StageFinals, final.Stage)

	for _, semi := range semis {
		assert.Equal(t, models.StageSemiFinals, semi.Stage)
		assert.Equal(t, *semi.NextMatchID, final.ID)
		require.NotNil(t, semi.TeamAID)
		require.NotNil(t, semi.TeamBID)
	}

	// Seed 1 plays seed 4, seed 2 plays seed 3: no rematch of a group.
	first := semis[0]
	second := semis[1]
	if *first.OrderInRound > *second.OrderInRound {
		first, second = second, first
	}
	assert.Equal(t, "t1", *first.TeamAID)
	assert.Equal(t, "t4", *first.TeamBID)
	assert.Equal(t, "t3", *second.TeamAID)
	assert.Equal(t, "t2", *second.TeamBID)
}

func TestGenerateMatchesSchedulesSlotsSequentially(t *testing.T) {
	f := fourTeamFixture(t)
	svc := newBracketService(f)

	_, err := svc.SeedBracket(context.Background(), "tour1")
	require.NoError(t, err)

	start := time.Date(2026, 9, 1, 18, 0, 0, 0, time.UTC)
	generated, err := svc.GenerateMatches(context.Background(), "tour1", start, time.Hour)
	require.NoError(t, err)
	require.Len(t, generated, 3)

	timeByKey := make(map[[2]int]time.Time, len(generated))
	for _, match := range generated {
		require.NotNil(t, match.Round)
		require.NotNil(t, match.OrderInRound)
		timeByKey[[2]int{*match.Round, *match.OrderInRound}] = match.MatchTime
	}

	// Semifinals run back to back, the final after the last semifinal.
	assert.Equal(t, start, timeByKey[[2]int{1, 1}])
	assert.Equal(t, start.Add(time.Hour), timeByKey[[2]int{1, 2}])
	assert.Equal(t, start.Add(2*time.Hour), timeByKey[[2]int{2, 1}])
}

func TestGenerateMatchesTwiceReturnsExisting(t *testing.T) {
	f := fourTeamFixture(t)
	svc := newBracketService(f)

	_, err := svc.SeedBracket(context.Background(), "tour1")
	require.NoError(t, err)

	start := time.Now()
	first, err := svc.GenerateMatches(context.Background(), "tour1", start, time.Hour)
	require.NoError(t, err)

	second, err := svc.GenerateMatches(context.Background(), "tour1", start, time.Hour)
	assert.ErrorIs(t, err, ErrAlreadyGenerated)
	assert.Len(t, second, len(first))
}

func TestReportResultAdvancesWinnerToFinal(t *testing.T) {
	f := fourTeamFixture(t)
	bracket := newBracketService(f)

	_, err := bracket.SeedBracket(context.Background(), "tour1")
	require.NoError(t, err)
	generated, err := bracket.GenerateMatches(context.Background(), "tour1", time.Now(), time.Hour)
	require.NoError(t, err)

	var final *models.Match
	var semis []*models.Match
	for _, match := range generated {
		if match.NextMatchID == nil {
			final = match
		} else {
			semis = append(semis, match)
		}
	}

	for _, semi := range semis {
		_, err := f.svc.ReportResult(context.Background(), semi.ID, ReportResultParams{ScoreA: 75, ScoreB: 70})
		require.NoError(t, err)
	}

	stored, err := f.matchRepo.GetByID(context.Background(), nil, final.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.TeamAID)
	require.NotNil(t, stored.TeamBID)

	// Team-A of each semifinal won with 75:70.
	winners := map[string]bool{*stored.TeamAID: true, *stored.TeamBID: true}
	for _, semi := range semis {
		assert.True(t, winners[*semi.TeamAID])
	}
}

func TestFinalCompletesTournament(t *testing.T) {
	f := fourTeamFixture(t)
	bracket := newBracketService(f)

	_, err := bracket.SeedBracket(context.Background(), "tour1")
	require.NoError(t, err)
	generated, err := bracket.GenerateMatches(context.Background(), "tour1", time.Now(), time.Hour)
	require.NoError(t, err)

	var final *models.Match
	var semis []*models.Match
	for _, match := range generated {
		if match.NextMatchID == nil {
			final = match
		} else {
			semis = append(semis, match)
		}
	}
	for _, semi := range semis {
		_, err := f.svc.ReportResult(context.Background(), semi.ID, ReportResultParams{ScoreA: 75, ScoreB: 70})
		require.NoError(t, err)
	}

	_, err = f.svc.ReportResult(context.Background(), final.ID, ReportResultParams{ScoreA: 80, ScoreB: 78})
	require.NoError(t, err)

	tournament, err := f.tourRepo.GetByID(context.Background(), nil, "tour1")
	require.NoError(t, err)
	assert.Equal(t, models.TournamentCompleted, tournament.Status)
	require.NotNil(t, tournament.ChampionID)
	require.NotNil(t, tournament.RunnerUpID)
	assert.NotEqual(t, *tournament.ChampionID, *tournament.RunnerUpID)
}

func TestReportResultRejectsTieInBracket(t *testing.T) {
	f := fourTeamFixture(t)
	bracket := newBracketService(f)

	_, err := bracket.SeedBracket(context.Background(), "tour1")
	require.NoError(t, err)
	generated, err := bracket.GenerateMatches(context.Background(), "tour1", time.Now(), time.Hour)
	require.NoError(t, err)

	var semi *models.Match
	for _, match := range generated {
		if match.NextMatchID != nil {
			semi = match
			break
		}
	}
	require.NotNil(t, semi)

	_, err = f.svc.ReportResult(context.Background(), semi.ID, ReportResultParams{ScoreA: 70, ScoreB: 70})
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestGenerateMatchesHandlesByes(t *testing.T) {
	// Three qualifiers: seed 1 gets a first-round bye straight into the
	// second round.
	teams := []*models.Team{
		{ID: "t1", Name: "Breakers", EloRating: 1500},
		{ID: "t2", Name: "Vipers", EloRating: 1500},
		{ID: "t3", Name: "Comets", EloRating: 1500},
	}
	groups := []*models.TournamentGroup{
		{ID: "g1", TournamentID: "tour1", Name: "Group A", AdvancementCount: 3, SortOrder: 0},
	}
	tournaments := []*models.Tournament{{ID: "tour1", Name: "Summer Open", Status: models.TournamentGroupPlay}}
	f := newMatchFixture(t, teams, groups, tournaments)

	ctx := context.Background()
	for i, teamID := range []string{"t1", "t2", "t3"} {
		require.NoError(t, f.groupRepo.AddMember(ctx, nil, &models.GroupMember{
			ID: string(rune('a' + i)), GroupID: "g1", TeamID: teamID,
		}))
	}
	// t1 beats t2, t1 beats t3, t2 beats t3: final order t1, t2, t3.
	played := time.Now()
	g1 := "g1"
	results := []struct{ a, b, winner string }{
		{"t1", "t2", "t1"},
		{"t1", "t3", "t1"},
		{"t2", "t3", "t2"},
	}
	for i, res := range results {
		a, b, w := res.a, res.b, res.winner
		scoreA, scoreB := 75, 70
		if w == b {
			scoreA, scoreB = 70, 75
		}
		require.NoError(t, f.matchRepo.Create(ctx, nil, &models.Match{
			ID: string(rune('x' + i)), TournamentID: "tour1", GroupID: &g1,
			TeamAID: &a, TeamBID: &b, ScoreA: scoreA, ScoreB: scoreB,
			WinnerID: &w, Status: models.MatchStatusCompleted, PlayedAt: &played,
		}))
	}

	svc := newBracketService(f)
	_, err := svc.SeedBracket(ctx, "tour1")
	require.NoError(t, err)
	generated, err := svc.GenerateMatches(ctx, "tour1", time.Now(), time.Hour)
	require.NoError(t, err)

	var final *models.Match
	playable := 0
	for _, match := range generated {
		if match.NextMatchID == nil {
			final = match
		}
	}
	require.NotNil(t, final)

	stored, err := f.matchRepo.GetByID(ctx, nil, final.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.TeamAID)
	assert.Equal(t, "t1", *stored.TeamAID, "top seed rides the bye into the final")

	for _, match := range generated {
		fresh, err := f.matchRepo.GetByID(ctx, nil, match.ID)
		require.NoError(t, err)
		if fresh.Status == models.MatchStatusScheduled {
			playable++
		}
	}
	assert.Equal(t, 2, playable, "one semifinal is canceled as a bye")
}
