package services

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/upaleague/ranking-engine/models"
	"github.com/upaleague/ranking-engine/repositories"
	"github.com/upaleague/ranking-engine/utils"
)

// In-memory repository fakes. They ignore the exec argument entirely, which
// matches how the services treat it: a pass-through handle for the real
// Postgres implementations.

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestLocks() *utils.KeyMutex {
	return utils.NewKeyMutex()
}

func strPtr(s string) *string { return &s }

type fakeTxRunner struct{}

func (fakeTxRunner) WithinTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	return fn(nil)
}

type fakeTeamRepo struct {
	mu      sync.Mutex
	teams   map[string]*models.Team
	history map[string]bool
}

func newFakeTeamRepo(teams ...*models.Team) *fakeTeamRepo {
	repo := &fakeTeamRepo{
		teams:   make(map[string]*models.Team),
		history: make(map[string]bool),
	}
	for _, team := range teams {
		copied := *team
		repo.teams[team.ID] = &copied
	}
	return repo
}

func (r *fakeTeamRepo) get(id string) (*models.Team, error) {
	team, ok := r.teams[id]
	if !ok {
		return nil, repositories.ErrTeamNotFound
	}
	copied := *team
	return &copied, nil
}

func (r *fakeTeamRepo) Create(_ context.Context, _ repositories.SQLExecutor, team *models.Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.teams {
		if existing.Name == team.Name {
			return repositories.ErrTeamNameConflict
		}
	}
	copied := *team
	r.teams[team.ID] = &copied
	return nil
}

func (r *fakeTeamRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id string) (*models.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.get(id)
}

func (r *fakeTeamRepo) GetByIDForUpdate(ctx context.Context, exec repositories.SQLExecutor, id string) (*models.Team, error) {
	return r.GetByID(ctx, exec, id)
}

func (r *fakeTeamRepo) List(_ context.Context, _ repositories.SQLExecutor, includeRetired bool) ([]*models.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Team
	for _, team := range r.teams {
		if !includeRetired && team.Retired() {
			continue
		}
		copied := *team
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *fakeTeamRepo) UpdateRating(_ context.Context, _ repositories.SQLExecutor, id string, elo float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	team, ok := r.teams[id]
	if !ok {
		return repositories.ErrTeamNotFound
	}
	team.EloRating = elo
	return nil
}

func (r *fakeTeamRepo) UpdateDisplayRating(_ context.Context, _ repositories.SQLExecutor, id string, display float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	team, ok := r.teams[id]
	if !ok {
		return repositories.ErrTeamNotFound
	}
	team.DisplayRating = display
	return nil
}

func (r *fakeTeamRepo) UpdateRP(_ context.Context, _ repositories.SQLExecutor, id string, rp int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	team, ok := r.teams[id]
	if !ok {
		return repositories.ErrTeamNotFound
	}
	team.CurrentRP = rp
	return nil
}

func (r *fakeTeamRepo) UpdateRankAndTier(_ context.Context, _ repositories.SQLExecutor, id string, rank int, tier models.LeaderboardTier) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	team, ok := r.teams[id]
	if !ok {
		return repositories.ErrTeamNotFound
	}
	team.GlobalRank = &rank
	team.LeaderboardTier = tier
	return nil
}

func (r *fakeTeamRepo) UpdateLogoKey(_ context.Context, _ repositories.SQLExecutor, id string, logoKey *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	team, ok := r.teams[id]
	if !ok {
		return repositories.ErrTeamNotFound
	}
	team.LogoKey = logoKey
	return nil
}

func (r *fakeTeamRepo) Retire(_ context.Context, _ repositories.SQLExecutor, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	team, ok := r.teams[id]
	if !ok {
		return repositories.ErrTeamNotFound
	}
	now := time.Now()
	team.RetiredAt = &now
	return nil
}

func (r *fakeTeamRepo) HasMatchHistory(_ context.Context, _ repositories.SQLExecutor, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.history[id], nil
}

func (r *fakeTeamRepo) Delete(_ context.Context, _ repositories.SQLExecutor, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.teams[id]; !ok {
		return repositories.ErrTeamNotFound
	}
	delete(r.teams, id)
	return nil
}

type fakePlayerRepo struct {
	mu      sync.Mutex
	players map[string]*models.Player
}

func newFakePlayerRepo(players ...*models.Player) *fakePlayerRepo {
	repo := &fakePlayerRepo{players: make(map[string]*models.Player)}
	for _, player := range players {
		copied := *player
		repo.players[player.ID] = &copied
	}
	return repo
}

func (r *fakePlayerRepo) Create(_ context.Context, _ repositories.SQLExecutor, player *models.Player) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.players {
		if existing.Gamertag == player.Gamertag {
			return repositories.ErrPlayerGamertagConflict
		}
	}
	copied := *player
	r.players[player.ID] = &copied
	return nil
}

func (r *fakePlayerRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id string) (*models.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	player, ok := r.players[id]
	if !ok {
		return nil, repositories.ErrPlayerNotFound
	}
	copied := *player
	return &copied, nil
}

func (r *fakePlayerRepo) GetByIDForUpdate(ctx context.Context, exec repositories.SQLExecutor, id string) (*models.Player, error) {
	return r.GetByID(ctx, exec, id)
}

func (r *fakePlayerRepo) List(_ context.Context, _ repositories.SQLExecutor) ([]*models.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Player
	for _, player := range r.players {
		copied := *player
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakePlayerRepo) ListByTeam(_ context.Context, _ repositories.SQLExecutor, teamID string) ([]*models.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Player
	for _, player := range r.players {
		if player.TeamID != nil && *player.TeamID == teamID {
			copied := *player
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakePlayerRepo) ListIDsAfter(_ context.Context, _ repositories.SQLExecutor, cursor string, limit int) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for id := range r.players {
		if id > cursor {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (r *fakePlayerRepo) UpdateRP(_ context.Context, _ repositories.SQLExecutor, id string, rp int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	player, ok := r.players[id]
	if !ok {
		return repositories.ErrPlayerNotFound
	}
	player.PlayerRP = rp
	return nil
}

func (r *fakePlayerRepo) AssignTeam(_ context.Context, _ repositories.SQLExecutor, id string, teamID *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	player, ok := r.players[id]
	if !ok {
		return repositories.ErrPlayerNotFound
	}
	player.TeamID = teamID
	return nil
}

func (r *fakePlayerRepo) UpdatePerformanceScore(_ context.Context, _ repositories.SQLExecutor, id string, score float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	player, ok := r.players[id]
	if !ok {
		return repositories.ErrPlayerNotFound
	}
	player.PerformanceScore = score
	return nil
}

func (r *fakePlayerRepo) UpdateSalary(_ context.Context, _ repositories.SQLExecutor, id string, rankScore float64, tier models.SalaryTierName, monthlyValue int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	player, ok := r.players[id]
	if !ok {
		return repositories.ErrPlayerNotFound
	}
	player.RankScore = rankScore
	player.SalaryTier = tier
	player.MonthlyValue = monthlyValue
	return nil
}

type fakeLedgerRepo struct {
	mu      sync.Mutex
	entries []*models.RPTransaction
}

func (r *fakeLedgerRepo) Insert(_ context.Context, _ repositories.SQLExecutor, txn *models.RPTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now()
	}
	copied := *txn
	r.entries = append(r.entries, &copied)
	return nil
}

func (r *fakeLedgerRepo) ListBySubject(_ context.Context, _ repositories.SQLExecutor, subject models.SubjectRef) ([]*models.RPTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.RPTransaction
	for _, entry := range r.entries {
		if entry.SubjectType == subject.Type && entry.SubjectID == subject.ID {
			copied := *entry
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeLedgerRepo) SumBySubject(_ context.Context, _ repositories.SQLExecutor, subject models.SubjectRef) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sum := 0
	for _, entry := range r.entries {
		if entry.SubjectType == subject.Type && entry.SubjectID == subject.ID {
			sum += entry.Amount
		}
	}
	return sum, nil
}

func (r *fakeLedgerRepo) ListByMatch(_ context.Context, _ repositories.SQLExecutor, matchID string) ([]*models.RPTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.RPTransaction
	for _, entry := range r.entries {
		if entry.MatchID != nil && *entry.MatchID == matchID {
			copied := *entry
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeLedgerRepo) LastEarning(_ context.Context, _ repositories.SQLExecutor, subject models.SubjectRef) (*models.RPTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var last *models.RPTransaction
	for _, entry := range r.entries {
		if entry.SubjectType != subject.Type || entry.SubjectID != subject.ID {
			continue
		}
		if !entry.Earning() {
			continue
		}
		if last == nil || entry.CreatedAt.After(last.CreatedAt) {
			copied := *entry
			last = &copied
		}
	}
	return last, nil
}

func (r *fakeLedgerRepo) HasDecayForPeriod(_ context.Context, _ repositories.SQLExecutor, subject models.SubjectRef, periodStart time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, entry := range r.entries {
		if entry.SubjectType != subject.Type || entry.SubjectID != subject.ID {
			continue
		}
		if entry.Type == models.RPTypeDecay && entry.DecayPeriodStart != nil && entry.DecayPeriodStart.Equal(periodStart) {
			return true, nil
		}
	}
	return false, nil
}

type fakeRosterRepo struct {
	mu      sync.Mutex
	entries []*models.TeamRoster
	mvps    map[string]*models.MatchMVP
}

func newFakeRosterRepo() *fakeRosterRepo {
	return &fakeRosterRepo{mvps: make(map[string]*models.MatchMVP)}
}

func (r *fakeRosterRepo) AddEntry(_ context.Context, _ repositories.SQLExecutor, entry *models.TeamRoster) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *entry
	r.entries = append(r.entries, &copied)
	return nil
}

func (r *fakeRosterRepo) ListByTeamAndTournament(_ context.Context, _ repositories.SQLExecutor, teamID, tournamentID string) ([]*models.TeamRoster, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.TeamRoster
	for _, entry := range r.entries {
		if entry.TeamID == teamID && entry.TournamentID == tournamentID {
			copied := *entry
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeRosterRepo) GetTournamentMVP(_ context.Context, _ repositories.SQLExecutor, tournamentID string) (*models.MatchMVP, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	mvp, ok := r.mvps[tournamentID]
	if !ok {
		return nil, repositories.ErrMVPNotFound
	}
	copied := *mvp
	return &copied, nil
}

func (r *fakeRosterRepo) SetTournamentMVP(_ context.Context, _ repositories.SQLExecutor, mvp *models.MatchMVP) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if mvp.MatchID == nil {
		copied := *mvp
		r.mvps[mvp.TournamentID] = &copied
	}
	return nil
}

type fakeTournamentRepo struct {
	mu          sync.Mutex
	tournaments map[string]*models.Tournament
}

func newFakeTournamentRepo(tournaments ...*models.Tournament) *fakeTournamentRepo {
	repo := &fakeTournamentRepo{tournaments: make(map[string]*models.Tournament)}
	for _, tournament := range tournaments {
		copied := *tournament
		repo.tournaments[tournament.ID] = &copied
	}
	return repo
}

func (r *fakeTournamentRepo) Create(_ context.Context, _ repositories.SQLExecutor, tournament *models.Tournament) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *tournament
	r.tournaments[tournament.ID] = &copied
	return nil
}

func (r *fakeTournamentRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id string) (*models.Tournament, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tournament, ok := r.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	copied := *tournament
	return &copied, nil
}

func (r *fakeTournamentRepo) List(_ context.Context, _ repositories.SQLExecutor) ([]*models.Tournament, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Tournament
	for _, tournament := range r.tournaments {
		copied := *tournament
		out = append(out, &copied)
	}
	return out, nil
}

func (r *fakeTournamentRepo) UpdateStatusFrom(_ context.Context, _ repositories.SQLExecutor, id string, from, to models.TournamentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tournament, ok := r.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	if tournament.Status != from {
		return repositories.ErrTournamentStatusInvalid
	}
	tournament.Status = to
	return nil
}

func (r *fakeTournamentRepo) SetFinalists(_ context.Context, _ repositories.SQLExecutor, id string, championID, runnerUpID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tournament, ok := r.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	tournament.ChampionID = &championID
	tournament.RunnerUpID = &runnerUpID
	tournament.Status = models.TournamentCompleted
	return nil
}

type fakeGroupRepo struct {
	mu        sync.Mutex
	groups    map[string]*models.TournamentGroup
	members   map[string][]*models.GroupMember
	standings map[string][]*models.GroupStanding
}

func newFakeGroupRepo(groups ...*models.TournamentGroup) *fakeGroupRepo {
	repo := &fakeGroupRepo{
		groups:    make(map[string]*models.TournamentGroup),
		members:   make(map[string][]*models.GroupMember),
		standings: make(map[string][]*models.GroupStanding),
	}
	for _, group := range groups {
		copied := *group
		repo.groups[group.ID] = &copied
	}
	return repo
}

func (r *fakeGroupRepo) Create(_ context.Context, _ repositories.SQLExecutor, group *models.TournamentGroup) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *group
	r.groups[group.ID] = &copied
	return nil
}

func (r *fakeGroupRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id string) (*models.TournamentGroup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	group, ok := r.groups[id]
	if !ok {
		return nil, repositories.ErrGroupNotFound
	}
	copied := *group
	return &copied, nil
}

func (r *fakeGroupRepo) ListByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID string) ([]*models.TournamentGroup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.TournamentGroup
	for _, group := range r.groups {
		if group.TournamentID == tournamentID {
			copied := *group
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

func (r *fakeGroupRepo) AddMember(_ context.Context, _ repositories.SQLExecutor, member *models.GroupMember) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.members[member.GroupID] {
		if existing.TeamID == member.TeamID {
			return repositories.ErrGroupMemberConflict
		}
	}
	copied := *member
	r.members[member.GroupID] = append(r.members[member.GroupID], &copied)
	return nil
}

func (r *fakeGroupRepo) ListMembers(_ context.Context, _ repositories.SQLExecutor, groupID string) ([]*models.GroupMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.GroupMember
	for _, member := range r.members[groupID] {
		copied := *member
		out = append(out, &copied)
	}
	return out, nil
}

func (r *fakeGroupRepo) ReplaceStandings(_ context.Context, _ repositories.SQLExecutor, groupID string, table []*models.GroupStanding) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := make([]*models.GroupStanding, len(table))
	for i, row := range table {
		rowCopy := *row
		copied[i] = &rowCopy
	}
	r.standings[groupID] = copied
	return nil
}

func (r *fakeGroupRepo) ListStandings(_ context.Context, _ repositories.SQLExecutor, groupID string) ([]*models.GroupStanding, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.GroupStanding
	for _, row := range r.standings[groupID] {
		copied := *row
		out = append(out, &copied)
	}
	return out, nil
}

type fakeMatchRepo struct {
	mu      sync.Mutex
	matches map[string]*models.Match
}

func newFakeMatchRepo(matches ...*models.Match) *fakeMatchRepo {
	repo := &fakeMatchRepo{matches: make(map[string]*models.Match)}
	for _, match := range matches {
		copied := *match
		repo.matches[match.ID] = &copied
	}
	return repo
}

func (r *fakeMatchRepo) Create(_ context.Context, _ repositories.SQLExecutor, match *models.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *match
	r.matches[match.ID] = &copied
	return nil
}

func (r *fakeMatchRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id string) (*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	match, ok := r.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	copied := *match
	return &copied, nil
}

func (r *fakeMatchRepo) ListByGroup(_ context.Context, _ repositories.SQLExecutor, groupID string, status *models.MatchStatus) ([]*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Match
	for _, match := range r.matches {
		if match.GroupID == nil || *match.GroupID != groupID {
			continue
		}
		if status != nil && match.Status != *status {
			continue
		}
		copied := *match
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeMatchRepo) ListByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID string, round *int) ([]*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Match
	for _, match := range r.matches {
		if match.TournamentID != tournamentID {
			continue
		}
		if round != nil && (match.Round == nil || *match.Round != *round) {
			continue
		}
		copied := *match
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeMatchRepo) GetByRoundOrder(_ context.Context, _ repositories.SQLExecutor, tournamentID string, round, orderInRound int) (*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, match := range r.matches {
		if match.TournamentID == tournamentID && match.Round != nil && *match.Round == round &&
			match.OrderInRound != nil && *match.OrderInRound == orderInRound {
			copied := *match
			return &copied, nil
		}
	}
	return nil, repositories.ErrMatchNotFound
}

func (r *fakeMatchRepo) UpdateResult(_ context.Context, _ repositories.SQLExecutor, id string, scoreA, scoreB int, winnerID *string, isForfeit bool, playedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	match, ok := r.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	match.ScoreA = scoreA
	match.ScoreB = scoreB
	match.WinnerID = winnerID
	match.IsForfeit = isForfeit
	match.Status = models.MatchStatusCompleted
	match.PlayedAt = &playedAt
	return nil
}

func (r *fakeMatchRepo) SetTeamSlot(_ context.Context, _ repositories.SQLExecutor, id string, slot int, teamID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	match, ok := r.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	if slot == 1 {
		match.TeamAID = &teamID
	} else {
		match.TeamBID = &teamID
	}
	return nil
}

func (r *fakeMatchRepo) SetRatingDelta(_ context.Context, _ repositories.SQLExecutor, id string, delta float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	match, ok := r.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	match.RatingDelta = delta
	return nil
}

func (r *fakeMatchRepo) Cancel(_ context.Context, _ repositories.SQLExecutor, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	match, ok := r.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	match.Status = models.MatchStatusCanceled
	return nil
}

func (r *fakeMatchRepo) CountCompletedForTeamSince(_ context.Context, _ repositories.SQLExecutor, teamID string, since time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, match := range r.matches {
		if match.Status != models.MatchStatusCompleted || match.PlayedAt == nil || match.PlayedAt.Before(since) {
			continue
		}
		if (match.TeamAID != nil && *match.TeamAID == teamID) || (match.TeamBID != nil && *match.TeamBID == teamID) {
			count++
		}
	}
	return count, nil
}

type fakeSeedRepo struct {
	mu    sync.Mutex
	seeds map[string][]*models.BracketSeed
}

func newFakeSeedRepo() *fakeSeedRepo {
	return &fakeSeedRepo{seeds: make(map[string][]*models.BracketSeed)}
}

func (r *fakeSeedRepo) BatchCreate(_ context.Context, _ repositories.SQLExecutor, seeds []*models.BracketSeed) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, seed := range seeds {
		copied := *seed
		r.seeds[seed.TournamentID] = append(r.seeds[seed.TournamentID], &copied)
	}
	return nil
}

func (r *fakeSeedRepo) ListByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID string) ([]*models.BracketSeed, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.BracketSeed
	for _, seed := range r.seeds[tournamentID] {
		copied := *seed
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seed < out[j].Seed })
	return out, nil
}

func (r *fakeSeedRepo) ExistsForTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seeds[tournamentID]) > 0, nil
}

type fakeTierRepo struct {
	mu    sync.Mutex
	tiers []*models.SalaryTier
}

func (r *fakeTierRepo) ListOrdered(_ context.Context, _ repositories.SQLExecutor) ([]*models.SalaryTier, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.tiers) == 0 {
		return nil, repositories.ErrSalaryTiersNotConfigured
	}
	out := make([]*models.SalaryTier, len(r.tiers))
	for i, tier := range r.tiers {
		copied := *tier
		out[i] = &copied
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MinRating > out[j].MinRating })
	return out, nil
}

func (r *fakeTierRepo) Replace(_ context.Context, _ repositories.SQLExecutor, tiers []*models.SalaryTier) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tiers = nil
	for _, tier := range tiers {
		copied := *tier
		r.tiers = append(r.tiers, &copied)
	}
	return nil
}
