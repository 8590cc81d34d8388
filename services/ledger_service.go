package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/upaleague/ranking-engine/models"
	"github.com/upaleague/ranking-engine/repositories"
	"github.com/upaleague/ranking-engine/utils"
)

// Placement and MVP bonus amounts, in RP.
const (
	championTeamBonusRP    = 500
	runnerUpTeamBonusRP    = 250
	championPlayerBonusRP  = 100
	runnerUpPlayerBonusRP  = 50
	tournamentMVPBonusRP   = 150
	decaySweepWorkers      = 8
	decayPeriodGranularity = 24 * time.Hour
)

// RecordParams describes one ledger entry to append.
type RecordParams struct {
	Subject      models.SubjectRef
	Amount       int
	Type         models.RPTransactionType
	Description  string
	MatchID      *string
	TournamentID *string
}

// DecaySummary reports one decay sweep run.
type DecaySummary struct {
	Scanned int
	Decayed int
	Skipped int
	Failed  int
}

// LedgerService owns the append-only RP ledger and the cached balance
// projections on teams and players. All RP movement in the system goes
// through Record; nothing else writes current_rp or player_rp.
type LedgerService interface {
	// Record appends a ledger entry and updates the subject's cached
	// balance inside the same transaction. Negative amounts are clamped so
	// the balance never drops below zero, and the clamped (actually
	// applied) amount is what gets recorded. When exec is nil the service
	// opens its own transaction.
	Record(ctx context.Context, exec repositories.SQLExecutor, params RecordParams) (*models.RPTransaction, error)

	CurrentBalance(ctx context.Context, subject models.SubjectRef) (int, error)
	History(ctx context.Context, subject models.SubjectRef) ([]*models.RPTransaction, error)

	// RebuildBalance recomputes the cached projection from the ledger and
	// repairs it if it drifted. Returns the authoritative balance.
	RebuildBalance(ctx context.Context, subject models.SubjectRef) (int, error)

	// AwardPlacementBonuses pays the champion and runner-up teams and
	// every player on their tournament rosters.
	AwardPlacementBonuses(ctx context.Context, tournamentID string) error

	// AwardMVPBonus pays the tournament MVP, if one has been named.
	AwardMVPBonus(ctx context.Context, tournamentID string) error

	// ReverseMatchEntries appends compensating adjustments that cancel
	// every ledger entry recorded for a match, leaving each subject's net
	// RP from that match at zero. Corrections use it so the reversal
	// always matches what was actually recorded, not what current
	// configuration would award.
	ReverseMatchEntries(ctx context.Context, exec repositories.SQLExecutor, matchID, description string) error

	// ApplyDecay sweeps all subjects and applies at most one decay entry
	// per subject per decay period. Individual subject failures are logged
	// and do not abort the sweep.
	ApplyDecay(ctx context.Context) (DecaySummary, error)
}

type ledgerService struct {
	txRunner   repositories.TxRunner
	ledgerRepo repositories.RPTransactionRepository
	teamRepo   repositories.TeamRepository
	playerRepo repositories.PlayerRepository
	rosterRepo repositories.RosterRepository
	tourRepo   repositories.TournamentRepository
	locks      *utils.KeyMutex
	logger     *slog.Logger

	decayDays  int
	decayRate  float64
	batchLimit int

	now func() time.Time
}

func NewLedgerService(
	txRunner repositories.TxRunner,
	ledgerRepo repositories.RPTransactionRepository,
	teamRepo repositories.TeamRepository,
	playerRepo repositories.PlayerRepository,
	rosterRepo repositories.RosterRepository,
	tourRepo repositories.TournamentRepository,
	locks *utils.KeyMutex,
	logger *slog.Logger,
	decayDays int,
	decayRate float64,
	batchLimit int,
) LedgerService {
	return &ledgerService{
		txRunner:   txRunner,
		ledgerRepo: ledgerRepo,
		teamRepo:   teamRepo,
		playerRepo: playerRepo,
		rosterRepo: rosterRepo,
		tourRepo:   tourRepo,
		locks:      locks,
		logger:     logger,
		decayDays:  decayDays,
		decayRate:  decayRate,
		batchLimit: batchLimit,
		now:        time.Now,
	}
}

func (s *ledgerService) subjectKey(subject models.SubjectRef) string {
	return string(subject.Type) + ":" + subject.ID
}

func (s *ledgerService) Record(ctx context.Context, exec repositories.SQLExecutor, params RecordParams) (*models.RPTransaction, error) {
	s.locks.Lock(s.subjectKey(params.Subject))
	defer s.locks.Unlock(s.subjectKey(params.Subject))

	if exec != nil {
		return s.record(ctx, exec, params, nil)
	}
	var txn *models.RPTransaction
	err := s.txRunner.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		var recordErr error
		txn, recordErr = s.record(ctx, exec, params, nil)
		return recordErr
	})
	return txn, err
}

// record appends one entry and syncs the cached balance. The caller must
// hold the subject's lock and supply the enclosing transaction.
func (s *ledgerService) record(ctx context.Context, exec repositories.SQLExecutor, params RecordParams, decayPeriodStart *time.Time) (*models.RPTransaction, error) {
	balance, err := s.lockedBalance(ctx, exec, params.Subject)
	if err != nil {
		return nil, err
	}

	applied := params.Amount
	if balance+applied < 0 {
		applied = -balance
	}

	txn := &models.RPTransaction{
		ID:               uuid.NewString(),
		SubjectType:      params.Subject.Type,
		SubjectID:        params.Subject.ID,
		Amount:           applied,
		Type:             params.Type,
		Description:      params.Description,
		MatchID:          params.MatchID,
		TournamentID:     params.TournamentID,
		DecayPeriodStart: decayPeriodStart,
	}
	if err := s.ledgerRepo.Insert(ctx, exec, txn); err != nil {
		return nil, fmt.Errorf("insert rp transaction: %w", err)
	}

	newBalance := balance + applied
	if err := s.updateCachedBalance(ctx, exec, params.Subject, newBalance); err != nil {
		return nil, err
	}

	s.logger.Debug("rp recorded",
		slog.String("subject_type", string(params.Subject.Type)),
		slog.String("subject_id", params.Subject.ID),
		slog.Int("requested", params.Amount),
		slog.Int("applied", applied),
		slog.Int("balance", newBalance),
		slog.String("type", string(params.Type)),
	)
	return txn, nil
}

// lockedBalance reads the cached balance under FOR UPDATE so concurrent
// transactions on the same subject serialize at the database as well.
func (s *ledgerService) lockedBalance(ctx context.Context, exec repositories.SQLExecutor, subject models.SubjectRef) (int, error) {
	switch subject.Type {
	case models.SubjectTeam:
		team, err := s.teamRepo.GetByIDForUpdate(ctx, exec, subject.ID)
		if err != nil {
			if errors.Is(err, repositories.ErrTeamNotFound) {
				return 0, fmt.Errorf("%w: %s", ErrTeamNotFound, subject.ID)
			}
			return 0, fmt.Errorf("load team %s: %w", subject.ID, err)
		}
		return team.CurrentRP, nil
	case models.SubjectPlayer:
		player, err := s.playerRepo.GetByIDForUpdate(ctx, exec, subject.ID)
		if err != nil {
			if errors.Is(err, repositories.ErrPlayerNotFound) {
				return 0, fmt.Errorf("%w: %s", ErrPlayerNotFound, subject.ID)
			}
			return 0, fmt.Errorf("load player %s: %w", subject.ID, err)
		}
		return player.PlayerRP, nil
	default:
		return 0, fmt.Errorf("%w: unknown subject type %q", ErrValidationFailed, subject.Type)
	}
}

func (s *ledgerService) updateCachedBalance(ctx context.Context, exec repositories.SQLExecutor, subject models.SubjectRef, balance int) error {
	switch subject.Type {
	case models.SubjectTeam:
		if err := s.teamRepo.UpdateRP(ctx, exec, subject.ID, balance); err != nil {
			return fmt.Errorf("update team rp: %w", err)
		}
	case models.SubjectPlayer:
		if err := s.playerRepo.UpdateRP(ctx, exec, subject.ID, balance); err != nil {
			return fmt.Errorf("update player rp: %w", err)
		}
	}
	return nil
}

func (s *ledgerService) CurrentBalance(ctx context.Context, subject models.SubjectRef) (int, error) {
	sum, err := s.ledgerRepo.SumBySubject(ctx, nil, subject)
	if err != nil {
		return 0, fmt.Errorf("sum ledger for %s %s: %w", subject.Type, subject.ID, err)
	}
	return sum, nil
}

func (s *ledgerService) History(ctx context.Context, subject models.SubjectRef) ([]*models.RPTransaction, error) {
	entries, err := s.ledgerRepo.ListBySubject(ctx, nil, subject)
	if err != nil {
		return nil, fmt.Errorf("list ledger for %s %s: %w", subject.Type, subject.ID, err)
	}
	if entries == nil {
		entries = []*models.RPTransaction{}
	}
	return entries, nil
}

func (s *ledgerService) RebuildBalance(ctx context.Context, subject models.SubjectRef) (int, error) {
	s.locks.Lock(s.subjectKey(subject))
	defer s.locks.Unlock(s.subjectKey(subject))

	var balance int
	err := s.txRunner.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		cached, err := s.lockedBalance(ctx, exec, subject)
		if err != nil {
			return err
		}
		sum, err := s.ledgerRepo.SumBySubject(ctx, exec, subject)
		if err != nil {
			return fmt.Errorf("sum ledger: %w", err)
		}
		balance = sum
		if cached == sum {
			return nil
		}
		s.logger.Warn("rp projection drift repaired",
			slog.String("subject_type", string(subject.Type)),
			slog.String("subject_id", subject.ID),
			slog.Int("cached", cached),
			slog.Int("ledger", sum),
		)
		return s.updateCachedBalance(ctx, exec, subject, sum)
	})
	return balance, err
}

func (s *ledgerService) ReverseMatchEntries(ctx context.Context, exec repositories.SQLExecutor, matchID, description string) error {
	entries, err := s.ledgerRepo.ListByMatch(ctx, exec, matchID)
	if err != nil {
		return fmt.Errorf("list ledger entries for match %s: %w", matchID, err)
	}

	// Net each subject first so repeated corrections stay exact: awards and
	// their earlier reversals cancel out before anything new is appended.
	net := make(map[models.SubjectRef]int)
	order := make([]models.SubjectRef, 0, len(entries))
	tournamentID := make(map[models.SubjectRef]*string)
	for _, entry := range entries {
		subject := models.SubjectRef{Type: entry.SubjectType, ID: entry.SubjectID}
		if _, seen := net[subject]; !seen {
			order = append(order, subject)
			tournamentID[subject] = entry.TournamentID
		}
		net[subject] += entry.Amount
	}

	for _, subject := range order {
		amount := net[subject]
		if amount == 0 {
			continue
		}
		_, err := s.Record(ctx, exec, RecordParams{
			Subject:      subject,
			Amount:       -amount,
			Type:         models.RPTypeAdjustment,
			Description:  description,
			MatchID:      &matchID,
			TournamentID: tournamentID[subject],
		})
		if err != nil {
			return fmt.Errorf("reverse match entries for %s %s: %w", subject.Type, subject.ID, err)
		}
	}
	return nil
}

func (s *ledgerService) AwardPlacementBonuses(ctx context.Context, tournamentID string) error {
	tournament, err := s.tourRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return ErrTournamentNotFound
		}
		return fmt.Errorf("load tournament %s: %w", tournamentID, err)
	}
	if tournament.Status != models.TournamentCompleted || tournament.ChampionID == nil || tournament.RunnerUpID == nil {
		return fmt.Errorf("%w: tournament %s has no finalists yet", ErrInvalidState, tournamentID)
	}

	placements := []struct {
		teamID   string
		teamRP   int
		playerRP int
		label    string
	}{
		{*tournament.ChampionID, championTeamBonusRP, championPlayerBonusRP, "champion"},
		{*tournament.RunnerUpID, runnerUpTeamBonusRP, runnerUpPlayerBonusRP, "runner-up"},
	}

	for _, p := range placements {
		_, err := s.Record(ctx, nil, RecordParams{
			Subject:      models.TeamSubject(p.teamID),
			Amount:       p.teamRP,
			Type:         models.RPTypeBonus,
			Description:  fmt.Sprintf("%s bonus, %s", p.label, tournament.Name),
			TournamentID: &tournament.ID,
		})
		if err != nil {
			return fmt.Errorf("award %s team bonus: %w", p.label, err)
		}

		roster, err := s.rosterRepo.ListByTeamAndTournament(ctx, nil, p.teamID, tournamentID)
		if err != nil {
			return fmt.Errorf("load %s roster: %w", p.label, err)
		}
		for _, entry := range roster {
			_, err := s.Record(ctx, nil, RecordParams{
				Subject:      models.PlayerSubject(entry.PlayerID),
				Amount:       p.playerRP,
				Type:         models.RPTypeBonus,
				Description:  fmt.Sprintf("%s roster bonus, %s", p.label, tournament.Name),
				TournamentID: &tournament.ID,
			})
			if err != nil {
				return fmt.Errorf("award %s roster bonus to player %s: %w", p.label, entry.PlayerID, err)
			}
		}
	}
	return nil
}

func (s *ledgerService) AwardMVPBonus(ctx context.Context, tournamentID string) error {
	mvp, err := s.rosterRepo.GetTournamentMVP(ctx, nil, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrMVPNotFound) {
			return nil
		}
		return fmt.Errorf("load tournament mvp: %w", err)
	}
	_, err = s.Record(ctx, nil, RecordParams{
		Subject:      models.PlayerSubject(mvp.PlayerID),
		Amount:       tournamentMVPBonusRP,
		Type:         models.RPTypeBonus,
		Description:  "tournament mvp bonus",
		TournamentID: &tournamentID,
	})
	if err != nil {
		return fmt.Errorf("award mvp bonus to player %s: %w", mvp.PlayerID, err)
	}
	return nil
}

func (s *ledgerService) ApplyDecay(ctx context.Context) (DecaySummary, error) {
	var summary DecaySummary

	teams, err := s.teamRepo.List(ctx, nil, false)
	if err != nil {
		return summary, fmt.Errorf("list teams for decay: %w", err)
	}
	subjects := make([]models.SubjectRef, 0, len(teams))
	for _, team := range teams {
		subjects = append(subjects, models.TeamSubject(team.ID))
	}

	// Players are swept in keyset batches: the population is unbounded,
	// teams are not.
	cursor := ""
	for {
		ids, err := s.playerRepo.ListIDsAfter(ctx, nil, cursor, s.batchLimit)
		if err != nil {
			return summary, fmt.Errorf("list player ids after %q: %w", cursor, err)
		}
		if len(ids) == 0 {
			break
		}
		for _, id := range ids {
			subjects = append(subjects, models.PlayerSubject(id))
		}
		cursor = ids[len(ids)-1]
		if len(ids) < s.batchLimit {
			break
		}
	}

	results := make([]decayOutcome, len(subjects))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(decaySweepWorkers)
	for i, subject := range subjects {
		i, subject := i, subject
		group.Go(func() error {
			outcome, err := s.decaySubject(groupCtx, subject)
			if err != nil {
				outcome = decayFailed
				s.logger.Error("decay failed",
					slog.String("subject_type", string(subject.Type)),
					slog.String("subject_id", subject.ID),
					slog.String("error", err.Error()),
				)
			}
			results[i] = outcome
			// Per-subject failures never abort the sweep.
			return nil
		})
	}
	_ = group.Wait()

	summary.Scanned = len(subjects)
	for _, outcome := range results {
		switch outcome {
		case decayApplied:
			summary.Decayed++
		case decayFailed:
			summary.Failed++
		default:
			summary.Skipped++
		}
	}

	s.logger.Info("decay sweep finished",
		slog.Int("scanned", summary.Scanned),
		slog.Int("decayed", summary.Decayed),
		slog.Int("skipped", summary.Skipped),
		slog.Int("failed", summary.Failed),
	)
	return summary, nil
}

type decayOutcome int

const (
	decaySkipped decayOutcome = iota
	decayApplied
	decayFailed
)

// decaySubject applies at most one decay entry for the subject's current
// decay period, in its own transaction. Periods are day-aligned windows of
// decayDays anchored at the subject's last RP-earning activity, so the
// (subject, period start) pair is a natural idempotency key: re-running the
// sweep within the same period is a no-op.
func (s *ledgerService) decaySubject(ctx context.Context, subject models.SubjectRef) (decayOutcome, error) {
	s.locks.Lock(s.subjectKey(subject))
	defer s.locks.Unlock(s.subjectKey(subject))

	outcome := decaySkipped
	err := s.txRunner.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		balance, err := s.lockedBalance(ctx, exec, subject)
		if err != nil {
			return err
		}
		if balance <= 0 {
			return nil
		}

		lastEarning, err := s.ledgerRepo.LastEarning(ctx, exec, subject)
		if err != nil {
			return fmt.Errorf("last earning: %w", err)
		}
		if lastEarning == nil {
			// Never earned anything: no activity to measure decay from.
			return nil
		}
		window, err := s.decayWindow(ctx, exec, lastEarning.TournamentID)
		if err != nil {
			return err
		}

		anchor := lastEarning.CreatedAt.UTC().Truncate(decayPeriodGranularity)
		today := s.now().UTC().Truncate(decayPeriodGranularity)
		idleDays := int(today.Sub(anchor) / decayPeriodGranularity)
		if idleDays < window {
			return nil
		}
		periods := idleDays / window
		periodStart := anchor.AddDate(0, 0, periods*window)

		done, err := s.ledgerRepo.HasDecayForPeriod(ctx, exec, subject, periodStart)
		if err != nil {
			return fmt.Errorf("check decay period: %w", err)
		}
		if done {
			return nil
		}

		amount := -int(math.Round(float64(balance) * s.decayRate))
		if amount == 0 {
			return nil
		}

		_, err = s.record(ctx, exec, RecordParams{
			Subject:     subject,
			Amount:      amount,
			Type:        models.RPTypeDecay,
			Description: fmt.Sprintf("inactivity decay, %d+ days idle", window),
		}, &periodStart)
		if err != nil {
			return err
		}
		outcome = decayApplied
		return nil
	})
	if err != nil {
		return decayFailed, err
	}
	return outcome, nil
}

// decayWindow resolves the decay window in days: the tournament the subject
// last earned in may override the global default.
func (s *ledgerService) decayWindow(ctx context.Context, exec repositories.SQLExecutor, tournamentID *string) (int, error) {
	if tournamentID == nil {
		return s.decayDays, nil
	}
	tournament, err := s.tourRepo.GetByID(ctx, exec, *tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return s.decayDays, nil
		}
		return 0, fmt.Errorf("load tournament %s for decay window: %w", *tournamentID, err)
	}
	if tournament.DecayDays != nil && *tournament.DecayDays > 0 {
		return *tournament.DecayDays, nil
	}
	return s.decayDays, nil
}
