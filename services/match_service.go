package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/upaleague/ranking-engine/models"
	"github.com/upaleague/ranking-engine/repositories"
)

// SubmitMatchParams describes a verified match result to ingest.
type SubmitMatchParams struct {
	TournamentID string       `json:"tournament_id"`
	GroupID      *string      `json:"group_id,omitempty"`
	TeamAID      string       `json:"team_a_id"`
	TeamBID      string       `json:"team_b_id"`
	ScoreA       int          `json:"score_a"`
	ScoreB       int          `json:"score_b"`
	Stage        models.Stage `json:"stage,omitempty"`
	IsForfeit    bool         `json:"is_forfeit"`
	ForfeitedBy  *string      `json:"forfeited_by,omitempty"`
	PlayedAt     *time.Time   `json:"played_at,omitempty"`
	MVPPlayerID  *string      `json:"mvp_player_id,omitempty"`
}

// ReportResultParams carries a result for an already scheduled match.
type ReportResultParams struct {
	ScoreA      int     `json:"score_a"`
	ScoreB      int     `json:"score_b"`
	IsForfeit   bool    `json:"is_forfeit"`
	ForfeitedBy *string `json:"forfeited_by,omitempty"`
}

// MatchService ingests verified match results. A submitted result applies
// every downstream effect in one transaction: the match record, the Elo
// transfer, the RP ledger entries and the group standings rebuild all
// commit or roll back together.
type MatchService interface {
	// SubmitVerifiedMatch records a brand-new completed match (group play
	// and regular-season results are reported this way).
	SubmitVerifiedMatch(ctx context.Context, params SubmitMatchParams) (*models.Match, error)

	// ReportResult completes an already scheduled match, typically a
	// bracket slot, and advances the winner.
	ReportResult(ctx context.Context, matchID string, params ReportResultParams) (*models.Match, error)

	// CorrectMatch amends a completed group match: it reverts the exact
	// Elo transfer, appends compensating RP adjustments, and rebuilds the
	// standings so the table converges to the corrected history.
	CorrectMatch(ctx context.Context, matchID string, params ReportResultParams) (*models.Match, error)

	GetMatch(ctx context.Context, matchID string) (*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID string) ([]*models.Match, error)
}

type matchService struct {
	txRunner    repositories.TxRunner
	matchRepo   repositories.MatchRepository
	teamRepo    repositories.TeamRepository
	rosterRepo  repositories.RosterRepository
	rating      RatingService
	ledger      LedgerService
	standings   StandingsService
	bracket     BracketService
	leaderboard LeaderboardService
	broadcaster Broadcaster
	logger      *slog.Logger

	kFactor       float64
	finalsKFactor float64
	regularWinRP  int
	blowoutWinRP  int
	lossRP        int
	blowoutMargin int
	forfeitWinRP  int
	forfeitLossRP int

	now func() time.Time
}

type MatchRPConfig struct {
	KFactor       float64
	FinalsKFactor float64
	RegularWinRP  int
	BlowoutWinRP  int
	LossRP        int
	BlowoutMargin int
	ForfeitWinRP  int
	ForfeitLossRP int
}

func NewMatchService(
	txRunner repositories.TxRunner,
	matchRepo repositories.MatchRepository,
	teamRepo repositories.TeamRepository,
	rosterRepo repositories.RosterRepository,
	rating RatingService,
	ledger LedgerService,
	standings StandingsService,
	bracket BracketService,
	leaderboard LeaderboardService,
	broadcaster Broadcaster,
	logger *slog.Logger,
	cfg MatchRPConfig,
) MatchService {
	return &matchService{
		txRunner:      txRunner,
		matchRepo:     matchRepo,
		teamRepo:      teamRepo,
		rosterRepo:    rosterRepo,
		rating:        rating,
		ledger:        ledger,
		standings:     standings,
		bracket:       bracket,
		leaderboard:   leaderboard,
		broadcaster:   broadcaster,
		logger:        logger,
		kFactor:       cfg.KFactor,
		finalsKFactor: cfg.FinalsKFactor,
		regularWinRP:  cfg.RegularWinRP,
		blowoutWinRP:  cfg.BlowoutWinRP,
		lossRP:        cfg.LossRP,
		blowoutMargin: cfg.BlowoutMargin,
		forfeitWinRP:  cfg.ForfeitWinRP,
		forfeitLossRP: cfg.ForfeitLossRP,
		now:           time.Now,
	}
}

func (s *matchService) SubmitVerifiedMatch(ctx context.Context, params SubmitMatchParams) (*models.Match, error) {
	if params.TeamAID == params.TeamBID {
		return nil, ErrSameTeam
	}
	for _, teamID := range []string{params.TeamAID, params.TeamBID} {
		team, err := s.teamRepo.GetByID(ctx, nil, teamID)
		if err != nil {
			if errors.Is(err, repositories.ErrTeamNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrTeamNotFound, teamID)
			}
			return nil, fmt.Errorf("load team %s: %w", teamID, err)
		}
		if team.Retired() {
			return nil, fmt.Errorf("%w: %s", ErrTeamRetired, teamID)
		}
	}

	winnerID, err := decideWinner(params.TeamAID, params.TeamBID, params.ScoreA, params.ScoreB, params.IsForfeit, params.ForfeitedBy)
	if err != nil {
		return nil, err
	}

	playedAt := params.PlayedAt
	if playedAt == nil {
		now := s.now()
		playedAt = &now
	}
	stage := params.Stage
	if stage == "" {
		stage = models.StageRegularSeason
		if params.GroupID != nil {
			stage = models.StageGroupPlay
		}
	}

	match := &models.Match{
		ID:           uuid.NewString(),
		TournamentID: params.TournamentID,
		GroupID:      params.GroupID,
		TeamAID:      &params.TeamAID,
		TeamBID:      &params.TeamBID,
		ScoreA:       params.ScoreA,
		ScoreB:       params.ScoreB,
		WinnerID:     winnerID,
		Stage:        stage,
		IsForfeit:    params.IsForfeit,
		Status:       models.MatchStatusCompleted,
		MatchTime:    *playedAt,
		PlayedAt:     playedAt,
	}

	err = s.txRunner.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.matchRepo.Create(ctx, exec, match); err != nil {
			return fmt.Errorf("create match: %w", err)
		}
		if err := s.applyResult(ctx, exec, match); err != nil {
			return err
		}
		if params.MVPPlayerID != nil {
			mvp := &models.MatchMVP{
				TournamentID: match.TournamentID,
				MatchID:      &match.ID,
				PlayerID:     *params.MVPPlayerID,
			}
			if err := s.rosterRepo.SetTournamentMVP(ctx, exec, mvp); err != nil {
				return fmt.Errorf("record match mvp: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterCompletion(ctx, match)
	return match, nil
}

func (s *matchService) ReportResult(ctx context.Context, matchID string, params ReportResultParams) (*models.Match, error) {
	var match *models.Match
	err := s.txRunner.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		var err error
		match, err = s.matchRepo.GetByID(ctx, exec, matchID)
		if err != nil {
			if errors.Is(err, repositories.ErrMatchNotFound) {
				return ErrMatchNotFound
			}
			return fmt.Errorf("load match %s: %w", matchID, err)
		}
		if match.Status != models.MatchStatusScheduled {
			return fmt.Errorf("%w: match is not awaiting a result", ErrInvalidState)
		}
		if match.TeamAID == nil || match.TeamBID == nil {
			return fmt.Errorf("%w: both bracket slots must be filled first", ErrInvalidState)
		}

		winnerID, err := decideWinner(*match.TeamAID, *match.TeamBID, params.ScoreA, params.ScoreB, params.IsForfeit, params.ForfeitedBy)
		if err != nil {
			return err
		}
		if match.Round != nil && winnerID == nil {
			return fmt.Errorf("%w: elimination matches cannot end in a tie", ErrValidationFailed)
		}

		playedAt := s.now()
		if err := s.matchRepo.UpdateResult(ctx, exec, matchID, params.ScoreA, params.ScoreB, winnerID, params.IsForfeit, playedAt); err != nil {
			return fmt.Errorf("store result: %w", err)
		}
		match.ScoreA = params.ScoreA
		match.ScoreB = params.ScoreB
		match.WinnerID = winnerID
		match.IsForfeit = params.IsForfeit
		match.Status = models.MatchStatusCompleted
		match.PlayedAt = &playedAt

		if err := s.applyResult(ctx, exec, match); err != nil {
			return err
		}
		if match.Round != nil {
			if err := s.bracket.AdvanceWinner(ctx, exec, matchID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterCompletion(ctx, match)
	return match, nil
}

func (s *matchService) CorrectMatch(ctx context.Context, matchID string, params ReportResultParams) (*models.Match, error) {
	var match *models.Match
	err := s.txRunner.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		var err error
		match, err = s.matchRepo.GetByID(ctx, exec, matchID)
		if err != nil {
			if errors.Is(err, repositories.ErrMatchNotFound) {
				return ErrMatchNotFound
			}
			return fmt.Errorf("load match %s: %w", matchID, err)
		}
		if match.Status != models.MatchStatusCompleted {
			return fmt.Errorf("%w: only completed matches can be corrected", ErrInvalidState)
		}
		if match.Round != nil {
			// Bracket results cascade into later rounds; amending them
			// after the fact would orphan the tree.
			return fmt.Errorf("%w: elimination matches cannot be corrected", ErrInvalidState)
		}
		if match.TeamAID == nil || match.TeamBID == nil {
			return fmt.Errorf("%w: match has no teams", ErrInvalidState)
		}

		newWinnerID, err := decideWinner(*match.TeamAID, *match.TeamBID, params.ScoreA, params.ScoreB, params.IsForfeit, params.ForfeitedBy)
		if err != nil {
			return err
		}

		// Revert the original Elo transfer, then the original RP awards.
		if match.WinnerID != nil && match.RatingDelta != 0 {
			loser := match.LoserID()
			if err := s.rating.TransferRating(ctx, exec, *match.WinnerID, *loser, match.RatingDelta); err != nil {
				return fmt.Errorf("revert rating transfer: %w", err)
			}
			if err := s.matchRepo.SetRatingDelta(ctx, exec, matchID, 0); err != nil {
				return err
			}
		}
		// Reverse what the ledger actually recorded for this match, not
		// what current configuration would award.
		if err := s.ledger.ReverseMatchEntries(ctx, exec, matchID, "match correction, original award reversed"); err != nil {
			return err
		}

		playedAt := match.PlayedAt
		if playedAt == nil {
			now := s.now()
			playedAt = &now
		}
		if err := s.matchRepo.UpdateResult(ctx, exec, matchID, params.ScoreA, params.ScoreB, newWinnerID, params.IsForfeit, *playedAt); err != nil {
			return fmt.Errorf("store corrected result: %w", err)
		}
		match.ScoreA = params.ScoreA
		match.ScoreB = params.ScoreB
		match.WinnerID = newWinnerID
		match.IsForfeit = params.IsForfeit
		match.RatingDelta = 0

		if err := s.applyResult(ctx, exec, match); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("match corrected",
		slog.String("match_id", matchID),
		slog.Int("score_a", match.ScoreA),
		slog.Int("score_b", match.ScoreB),
	)
	s.afterCompletion(ctx, match)
	return match, nil
}

// applyResult applies a completed match's downstream effects inside the
// caller's transaction: Elo, RP awards, and the group table rebuild.
func (s *matchService) applyResult(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) error {
	if match.WinnerID != nil {
		loser := match.LoserID()
		k := kFactorForStage(match.Stage, s.kFactor, s.finalsKFactor)
		winnerOld, err := s.teamRepo.GetByID(ctx, exec, *match.WinnerID)
		if err != nil {
			return fmt.Errorf("load winner: %w", err)
		}
		winnerNew, _, err := s.rating.ApplyMatchResult(ctx, exec, *match.WinnerID, *loser, k)
		if err != nil {
			return err
		}
		delta := winnerNew - winnerOld.EloRating
		if err := s.matchRepo.SetRatingDelta(ctx, exec, match.ID, delta); err != nil {
			return fmt.Errorf("store rating delta: %w", err)
		}
		match.RatingDelta = delta
	}
	// Ties leave ratings untouched.

	for teamID, amount := range s.rpAwards(match) {
		if amount == 0 {
			continue
		}
		_, err := s.ledger.Record(ctx, exec, RecordParams{
			Subject:      models.TeamSubject(teamID),
			Amount:       amount,
			Type:         models.RPTypeAward,
			Description:  awardDescription(match, teamID),
			MatchID:      &match.ID,
			TournamentID: &match.TournamentID,
		})
		if err != nil {
			return fmt.Errorf("award rp to team %s: %w", teamID, err)
		}
	}

	if match.GroupID != nil {
		if _, err := s.standings.Recompute(ctx, exec, *match.GroupID); err != nil {
			return err
		}
	}
	return nil
}

// rpAwards maps each team to the RP its result earns, by point type:
// blowout win, regular win, loss, or forfeit.
func (s *matchService) rpAwards(match *models.Match) map[string]int {
	awards := make(map[string]int, 2)
	if match.TeamAID == nil || match.TeamBID == nil {
		return awards
	}
	a, b := *match.TeamAID, *match.TeamBID

	if match.WinnerID == nil {
		// A tie pays both sides the participation amount.
		awards[a] = s.lossRP
		awards[b] = s.lossRP
		return awards
	}

	winner := *match.WinnerID
	loser := *match.LoserID()
	if match.IsForfeit {
		awards[winner] = s.forfeitWinRP
		awards[loser] = s.forfeitLossRP
		return awards
	}

	margin := match.ScoreA - match.ScoreB
	if margin < 0 {
		margin = -margin
	}
	if margin >= s.blowoutMargin {
		awards[winner] = s.blowoutWinRP
	} else {
		awards[winner] = s.regularWinRP
	}
	awards[loser] = s.lossRP
	return awards
}

func awardDescription(match *models.Match, teamID string) string {
	switch {
	case match.WinnerID == nil:
		return "tie"
	case match.IsForfeit && *match.WinnerID == teamID:
		return "forfeit win"
	case match.IsForfeit:
		return "forfeit loss"
	case *match.WinnerID == teamID:
		return "match win"
	default:
		return "match loss"
	}
}

// afterCompletion runs the cheap-to-retry effects that do not belong in the
// ingestion transaction: rank and tier refresh, display rating
// normalization, payouts for a decided final, and the live broadcast.
func (s *matchService) afterCompletion(ctx context.Context, match *models.Match) {
	if err := s.leaderboard.RecomputeGlobalRanks(ctx); err != nil {
		s.logger.Error("leaderboard refresh failed", slog.String("error", err.Error()))
	}
	if match.WinnerID != nil {
		if err := s.rating.NormalizeAll(ctx); err != nil {
			s.logger.Error("display rating normalization failed", slog.String("error", err.Error()))
		}
	}

	if match.Round != nil && match.NextMatchID == nil && match.WinnerID != nil {
		// The final: pay placement and MVP bonuses now that the
		// tournament is closed.
		if err := s.ledger.AwardPlacementBonuses(ctx, match.TournamentID); err != nil {
			s.logger.Error("placement bonus payout failed",
				slog.String("tournament_id", match.TournamentID),
				slog.String("error", err.Error()),
			)
		}
		if err := s.ledger.AwardMVPBonus(ctx, match.TournamentID); err != nil {
			s.logger.Error("mvp bonus payout failed",
				slog.String("tournament_id", match.TournamentID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.broadcaster.BroadcastToRoom(match.TournamentID, "match_completed", match)
}

func (s *matchService) GetMatch(ctx context.Context, matchID string) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("load match %s: %w", matchID, err)
	}
	return match, nil
}

func (s *matchService) ListByTournament(ctx context.Context, tournamentID string) ([]*models.Match, error) {
	matches, err := s.matchRepo.ListByTournament(ctx, nil, tournamentID, nil)
	if err != nil {
		return nil, fmt.Errorf("list matches for tournament %s: %w", tournamentID, err)
	}
	if matches == nil {
		matches = []*models.Match{}
	}
	return matches, nil
}

// decideWinner derives the winner from the reported numbers. Equal scores
// mean a tie; a forfeit always names the forfeiting team explicitly.
func decideWinner(teamAID, teamBID string, scoreA, scoreB int, isForfeit bool, forfeitedBy *string) (*string, error) {
	if isForfeit {
		if forfeitedBy == nil {
			return nil, fmt.Errorf("%w: a forfeit must name the forfeiting team", ErrValidationFailed)
		}
		switch *forfeitedBy {
		case teamAID:
			return &teamBID, nil
		case teamBID:
			return &teamAID, nil
		default:
			return nil, fmt.Errorf("%w: forfeiting team is not in this match", ErrValidationFailed)
		}
	}
	if scoreA < 0 || scoreB < 0 {
		return nil, fmt.Errorf("%w: scores must be non-negative", ErrValidationFailed)
	}
	switch {
	case scoreA > scoreB:
		return &teamAID, nil
	case scoreB > scoreA:
		return &teamBID, nil
	default:
		return nil, nil
	}
}
