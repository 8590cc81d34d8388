package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upaleague/ranking-engine/models"
	"github.com/upaleague/ranking-engine/utils"
)

type matchFixture struct {
	svc        MatchService
	teamRepo   *fakeTeamRepo
	matchRepo  *fakeMatchRepo
	groupRepo  *fakeGroupRepo
	ledgerRepo *fakeLedgerRepo
	tourRepo   *fakeTournamentRepo
	seedRepo   *fakeSeedRepo
}

func newMatchFixture(t *testing.T, teams []*models.Team, groups []*models.TournamentGroup, tournaments []*models.Tournament) *matchFixture {
	t.Helper()

	teamRepo := newFakeTeamRepo(teams...)
	playerRepo := newFakePlayerRepo()
	matchRepo := newFakeMatchRepo()
	groupRepo := newFakeGroupRepo(groups...)
	ledgerRepo := &fakeLedgerRepo{}
	rosterRepo := newFakeRosterRepo()
	tourRepo := newFakeTournamentRepo(tournaments...)
	seedRepo := newFakeSeedRepo()
	locks := utils.NewKeyMutex()
	logger := testLogger()

	rating := NewRatingService(teamRepo, locks, logger)
	ledger := NewLedgerService(fakeTxRunner{}, ledgerRepo, teamRepo, playerRepo, rosterRepo, tourRepo, locks, logger, 30, 0.10, 100)
	standings := NewStandingsService(groupRepo, matchRepo, teamRepo, locks, logger)
	bracket := NewBracketService(fakeTxRunner{}, seedRepo, matchRepo, tourRepo, standings, NopBroadcaster{}, logger)
	leaderboard := NewLeaderboardService(teamRepo, nil, logger)

	svc := NewMatchService(
		fakeTxRunner{}, matchRepo, teamRepo, rosterRepo,
		rating, ledger, standings, bracket, leaderboard,
		NopBroadcaster{}, logger,
		MatchRPConfig{
			KFactor:       32,
			FinalsKFactor: 48,
			RegularWinRP:  100,
			BlowoutWinRP:  125,
			LossRP:        25,
			BlowoutMargin: 20,
			ForfeitWinRP:  50,
			ForfeitLossRP: 0,
		},
	)
	return &matchFixture{
		svc:        svc,
		teamRepo:   teamRepo,
		matchRepo:  matchRepo,
		groupRepo:  groupRepo,
		ledgerRepo: ledgerRepo,
		tourRepo:   tourRepo,
		seedRepo:   seedRepo,
	}
}

func twoTeams() []*models.Team {
	return []*models.Team{
		{ID: "t1", Name: "Breakers", EloRating: 1500, LeaderboardTier: models.TierBronze},
		{ID: "t2", Name: "Vipers", EloRating: 1500, LeaderboardTier: models.TierBronze},
	}
}

func groupFixture(t *testing.T, f *matchFixture) {
	t.Helper()
	require.NoError(t, f.groupRepo.AddMember(context.Background(), nil, &models.GroupMember{ID: "m1", GroupID: "g1", TeamID: "t1"}))
	require.NoError(t, f.groupRepo.AddMember(context.Background(), nil, &models.GroupMember{ID: "m2", GroupID: "g1", TeamID: "t2"}))
}

func TestSubmitVerifiedMatchAppliesAllEffects(t *testing.T) {
	groupID := "g1"
	f := newMatchFixture(t, twoTeams(),
		[]*models.TournamentGroup{{ID: groupID, TournamentID: "tour1", Name: "Group A", AdvancementCount: 1}},
		[]*models.Tournament{{ID: "tour1", Name: "Summer Open", Status: models.TournamentGroupPlay}},
	)
	groupFixture(t, f)

	match, err := f.svc.SubmitVerifiedMatch(context.Background(), SubmitMatchParams{
		TournamentID: "tour1",
		GroupID:      &groupID,
		TeamAID:      "t1",
		TeamBID:      "t2",
		ScoreA:       72,
		ScoreB:       65,
	})
	require.NoError(t, err)
	require.NotNil(t, match.WinnerID)
	assert.Equal(t, "t1", *match.WinnerID)
	assert.Equal(t, models.MatchStatusCompleted, match.Status)

	// Elo: equal ratings, K=32, winner takes 16.
	winner, err := f.teamRepo.GetByID(context.Background(), nil, "t1")
	require.NoError(t, err)
	loser, err := f.teamRepo.GetByID(context.Background(), nil, "t2")
	require.NoError(t, err)
	assert.InDelta(t, 1516, winner.EloRating, 0.001)
	assert.InDelta(t, 1484, loser.EloRating, 0.001)
	assert.InDelta(t, 16, match.RatingDelta, 0.001)

	// RP: regular win and loss amounts, mirrored into the cached balances.
	assert.Equal(t, 100, winner.CurrentRP)
	assert.Equal(t, 25, loser.CurrentRP)

	// Standings rebuilt.
	table, err := f.groupRepo.ListStandings(context.Background(), nil, groupID)
	require.NoError(t, err)
	require.Len(t, table, 2)
	assert.Equal(t, "t1", table[0].TeamID)
	assert.Equal(t, 1, table[0].Position)
	assert.Equal(t, 1, table[0].Wins)
	assert.Equal(t, 7, table[0].PointDifferential)
}

func TestSubmitVerifiedMatchBlowoutAward(t *testing.T) {
	f := newMatchFixture(t, twoTeams(), nil,
		[]*models.Tournament{{ID: "tour1", Name: "Summer Open", Status: models.TournamentGroupPlay}})

	_, err := f.svc.SubmitVerifiedMatch(context.Background(), SubmitMatchParams{
		TournamentID: "tour1",
		TeamAID:      "t1",
		TeamBID:      "t2",
		ScoreA:       88,
		ScoreB:       60,
	})
	require.NoError(t, err)

	winner, err := f.teamRepo.GetByID(context.Background(), nil, "t1")
	require.NoError(t, err)
	assert.Equal(t, 125, winner.CurrentRP, "a 20+ point margin pays the blowout amount")
}

func TestSubmitVerifiedMatchTieSkipsRatings(t *testing.T) {
	f := newMatchFixture(t, twoTeams(), nil,
		[]*models.Tournament{{ID: "tour1", Name: "Summer Open", Status: models.TournamentGroupPlay}})

	match, err := f.svc.SubmitVerifiedMatch(context.Background(), SubmitMatchParams{
		TournamentID: "tour1",
		TeamAID:      "t1",
		TeamBID:      "t2",
		ScoreA:       70,
		ScoreB:       70,
	})
	require.NoError(t, err)
	assert.Nil(t, match.WinnerID)
	assert.True(t, match.IsTie())

	for _, id := range []string{"t1", "t2"} {
		team, err := f.teamRepo.GetByID(context.Background(), nil, id)
		require.NoError(t, err)
		assert.InDelta(t, 1500, team.EloRating, 0.001, "ties leave ratings untouched")
		assert.Equal(t, 25, team.CurrentRP)
	}
}

func TestSubmitVerifiedMatchForfeit(t *testing.T) {
	f := newMatchFixture(t, twoTeams(), nil,
		[]*models.Tournament{{ID: "tour1", Name: "Summer Open", Status: models.TournamentGroupPlay}})

	forfeitedBy := "t2"
	match, err := f.svc.SubmitVerifiedMatch(context.Background(), SubmitMatchParams{
		TournamentID: "tour1",
		TeamAID:      "t1",
		TeamBID:      "t2",
		IsForfeit:    true,
		ForfeitedBy:  &forfeitedBy,
	})
	require.NoError(t, err)
	require.NotNil(t, match.WinnerID)
	assert.Equal(t, "t1", *match.WinnerID)

	winner, err := f.teamRepo.GetByID(context.Background(), nil, "t1")
	require.NoError(t, err)
	loser, err := f.teamRepo.GetByID(context.Background(), nil, "t2")
	require.NoError(t, err)
	assert.Equal(t, 50, winner.CurrentRP)
	assert.Equal(t, 0, loser.CurrentRP)
}

func TestSubmitVerifiedMatchForfeitRequiresForfeitingTeam(t *testing.T) {
	f := newMatchFixture(t, twoTeams(), nil,
		[]*models.Tournament{{ID: "tour1", Name: "Summer Open", Status: models.TournamentGroupPlay}})

	_, err := f.svc.SubmitVerifiedMatch(context.Background(), SubmitMatchParams{
		TournamentID: "tour1",
		TeamAID:      "t1",
		TeamBID:      "t2",
		IsForfeit:    true,
	})
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestSubmitVerifiedMatchRejectsSameTeam(t *testing.T) {
	f := newMatchFixture(t, twoTeams(), nil, nil)

	_, err := f.svc.SubmitVerifiedMatch(context.Background(), SubmitMatchParams{
		TournamentID: "tour1",
		TeamAID:      "t1",
		TeamBID:      "t1",
	})
	assert.ErrorIs(t, err, ErrSameTeam)
}

func TestSubmitVerifiedMatchRejectsRetiredTeam(t *testing.T) {
	teams := twoTeams()
	f := newMatchFixture(t, teams, nil, nil)
	require.NoError(t, f.teamRepo.Retire(context.Background(), nil, "t2"))

	_, err := f.svc.SubmitVerifiedMatch(context.Background(), SubmitMatchParams{
		TournamentID: "tour1",
		TeamAID:      "t1",
		TeamBID:      "t2",
		ScoreA:       70,
		ScoreB:       60,
	})
	assert.ErrorIs(t, err, ErrTeamRetired)
}

func TestCorrectMatchFlipsWinner(t *testing.T) {
	groupID := "g1"
	f := newMatchFixture(t, twoTeams(),
		[]*models.TournamentGroup{{ID: groupID, TournamentID: "tour1", Name: "Group A", AdvancementCount: 1}},
		[]*models.Tournament{{ID: "tour1", Name: "Summer Open", Status: models.TournamentGroupPlay}},
	)
	groupFixture(t, f)

	match, err := f.svc.SubmitVerifiedMatch(context.Background(), SubmitMatchParams{
		TournamentID: "tour1",
		GroupID:      &groupID,
		TeamAID:      "t1",
		TeamBID:      "t2",
		ScoreA:       72,
		ScoreB:       65,
	})
	require.NoError(t, err)

	corrected, err := f.svc.CorrectMatch(context.Background(), match.ID, ReportResultParams{
		ScoreA: 65,
		ScoreB: 72,
	})
	require.NoError(t, err)
	require.NotNil(t, corrected.WinnerID)
	assert.Equal(t, "t2", *corrected.WinnerID)

	// Ratings: the original 16-point transfer reverts exactly, then the
	// corrected result applies from the restored 1500/1500 baseline.
	t1, err := f.teamRepo.GetByID(context.Background(), nil, "t1")
	require.NoError(t, err)
	t2, err := f.teamRepo.GetByID(context.Background(), nil, "t2")
	require.NoError(t, err)
	assert.InDelta(t, 1484, t1.EloRating, 0.001)
	assert.InDelta(t, 1516, t2.EloRating, 0.001)

	// RP: original awards reversed with adjustments, corrected awards
	// applied on top. Net: loser keeps the loss amount, winner the win.
	assert.Equal(t, 25, t1.CurrentRP)
	assert.Equal(t, 100, t2.CurrentRP)

	// Standings converge to the corrected history.
	table, err := f.groupRepo.ListStandings(context.Background(), nil, groupID)
	require.NoError(t, err)
	require.Len(t, table, 2)
	assert.Equal(t, "t2", table[0].TeamID)
	assert.Equal(t, 1, table[0].Position)
}

func TestCorrectMatchSameResultIsStable(t *testing.T) {
	groupID := "g1"
	f := newMatchFixture(t, twoTeams(),
		[]*models.TournamentGroup{{ID: groupID, TournamentID: "tour1", Name: "Group A", AdvancementCount: 1}},
		[]*models.Tournament{{ID: "tour1", Name: "Summer Open", Status: models.TournamentGroupPlay}},
	)
	groupFixture(t, f)

	match, err := f.svc.SubmitVerifiedMatch(context.Background(), SubmitMatchParams{
		TournamentID: "tour1",
		GroupID:      &groupID,
		TeamAID:      "t1",
		TeamBID:      "t2",
		ScoreA:       72,
		ScoreB:       65,
	})
	require.NoError(t, err)

	// Correcting to an identical winner with adjusted scores keeps the
	// balances where a single submission would have put them.
	_, err = f.svc.CorrectMatch(context.Background(), match.ID, ReportResultParams{
		ScoreA: 80,
		ScoreB: 70,
	})
	require.NoError(t, err)

	t1, err := f.teamRepo.GetByID(context.Background(), nil, "t1")
	require.NoError(t, err)
	t2, err := f.teamRepo.GetByID(context.Background(), nil, "t2")
	require.NoError(t, err)
	assert.InDelta(t, 1516, t1.EloRating, 0.001)
	assert.InDelta(t, 1484, t2.EloRating, 0.001)
	assert.Equal(t, 100, t1.CurrentRP)
	assert.Equal(t, 25, t2.CurrentRP)
}

func TestCorrectMatchReversesOriginallyRecordedAmounts(t *testing.T) {
	groupID := "g1"
	f := newMatchFixture(t, twoTeams(),
		[]*models.TournamentGroup{{ID: groupID, TournamentID: "tour1", Name: "Group A", AdvancementCount: 1}},
		[]*models.Tournament{{ID: "tour1", Name: "Summer Open", Status: models.TournamentGroupPlay}},
	)
	groupFixture(t, f)

	match, err := f.svc.SubmitVerifiedMatch(context.Background(), SubmitMatchParams{
		TournamentID: "tour1",
		GroupID:      &groupID,
		TeamAID:      "t1",
		TeamBID:      "t2",
		ScoreA:       72,
		ScoreB:       65,
	})
	require.NoError(t, err)

	// RP amounts get reconfigured between submission and correction. The
	// reversal must cancel the 100/25 that was recorded, not today's
	// 120/30, and the corrected result then pays at the new amounts.
	ms := f.svc.(*matchService)
	ms.regularWinRP = 120
	ms.lossRP = 30

	_, err = f.svc.CorrectMatch(context.Background(), match.ID, ReportResultParams{
		ScoreA: 65,
		ScoreB: 72,
	})
	require.NoError(t, err)

	t1, err := f.teamRepo.GetByID(context.Background(), nil, "t1")
	require.NoError(t, err)
	t2, err := f.teamRepo.GetByID(context.Background(), nil, "t2")
	require.NoError(t, err)
	assert.Equal(t, 30, t1.CurrentRP)
	assert.Equal(t, 120, t2.CurrentRP)
}

func TestCorrectMatchRejectsBracketMatches(t *testing.T) {
	round := 1
	order := 1
	teamA, teamB := "t1", "t2"
	winner := "t1"
	f := newMatchFixture(t, twoTeams(), nil,
		[]*models.Tournament{{ID: "tour1", Name: "Summer Open", Status: models.TournamentBracket}})
	require.NoError(t, f.matchRepo.Create(context.Background(), nil, &models.Match{
		ID: "m1", TournamentID: "tour1", TeamAID: &teamA, TeamBID: &teamB,
		WinnerID: &winner, Round: &round, OrderInRound: &order,
		Status: models.MatchStatusCompleted,
	}))

	_, err := f.svc.CorrectMatch(context.Background(), "m1", ReportResultParams{ScoreA: 1, ScoreB: 2})
	assert.ErrorIs(t, err, ErrInvalidState)
}
