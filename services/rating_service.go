package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/upaleague/ranking-engine/models"
	"github.com/upaleague/ranking-engine/ratings"
	"github.com/upaleague/ranking-engine/repositories"
	"github.com/upaleague/ranking-engine/utils"
)

// RatingService maintains team Elo ratings and their normalized display
// projection.
type RatingService interface {
	// ApplyMatchResult moves rating from loser to winner and persists both
	// new values. It must run inside the caller's transaction (exec) so a
	// failed ledger write rolls the rating back too.
	ApplyMatchResult(ctx context.Context, exec repositories.SQLExecutor, winnerID, loserID string, kFactor float64) (winnerNew, loserNew float64, err error)

	// TransferRating moves a raw amount of rating between two teams.
	// Corrections use it to revert a previously applied transfer exactly.
	TransferRating(ctx context.Context, exec repositories.SQLExecutor, fromID, toID string, amount float64) error

	// NormalizeAll recomputes every active team's display rating against
	// the current population. Run after rating changes or on a schedule.
	NormalizeAll(ctx context.Context) error
}

type ratingService struct {
	teamRepo repositories.TeamRepository
	locks    *utils.KeyMutex
	logger   *slog.Logger
}

func NewRatingService(teamRepo repositories.TeamRepository, locks *utils.KeyMutex, logger *slog.Logger) RatingService {
	return &ratingService{
		teamRepo: teamRepo,
		locks:    locks,
		logger:   logger,
	}
}

func (s *ratingService) ApplyMatchResult(ctx context.Context, exec repositories.SQLExecutor, winnerID, loserID string, kFactor float64) (float64, float64, error) {
	if winnerID == loserID {
		return 0, 0, ErrSameTeam
	}
	if kFactor <= 0 {
		kFactor = ratings.DefaultKFactor
	}

	// Lock both teams in a deterministic order so two concurrent matches
	// touching the same pair cannot interleave their read-modify-write.
	s.locks.LockPair(winnerID, loserID)
	defer s.locks.UnlockPair(winnerID, loserID)

	winner, err := s.teamRepo.GetByIDForUpdate(ctx, exec, winnerID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return 0, 0, fmt.Errorf("%w: winner %s", ErrTeamNotFound, winnerID)
		}
		return 0, 0, fmt.Errorf("load winner %s: %w", winnerID, err)
	}
	loser, err := s.teamRepo.GetByIDForUpdate(ctx, exec, loserID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return 0, 0, fmt.Errorf("%w: loser %s", ErrTeamNotFound, loserID)
		}
		return 0, 0, fmt.Errorf("load loser %s: %w", loserID, err)
	}

	winnerNew, loserNew := ratings.ApplyMatchResult(winner.EloRating, loser.EloRating, kFactor)

	if err := s.teamRepo.UpdateRating(ctx, exec, winnerID, winnerNew); err != nil {
		return 0, 0, fmt.Errorf("update winner rating: %w", err)
	}
	if err := s.teamRepo.UpdateRating(ctx, exec, loserID, loserNew); err != nil {
		return 0, 0, fmt.Errorf("update loser rating: %w", err)
	}

	s.logger.Debug("elo applied",
		slog.String("winner_id", winnerID),
		slog.Float64("winner_rating", winnerNew),
		slog.String("loser_id", loserID),
		slog.Float64("loser_rating", loserNew),
		slog.Float64("k_factor", kFactor),
	)
	return winnerNew, loserNew, nil
}

func (s *ratingService) TransferRating(ctx context.Context, exec repositories.SQLExecutor, fromID, toID string, amount float64) error {
	if fromID == toID {
		return ErrSameTeam
	}
	s.locks.LockPair(fromID, toID)
	defer s.locks.UnlockPair(fromID, toID)

	from, err := s.teamRepo.GetByIDForUpdate(ctx, exec, fromID)
	if err != nil {
		return fmt.Errorf("load team %s: %w", fromID, err)
	}
	to, err := s.teamRepo.GetByIDForUpdate(ctx, exec, toID)
	if err != nil {
		return fmt.Errorf("load team %s: %w", toID, err)
	}
	if err := s.teamRepo.UpdateRating(ctx, exec, fromID, from.EloRating-amount); err != nil {
		return fmt.Errorf("update rating for %s: %w", fromID, err)
	}
	if err := s.teamRepo.UpdateRating(ctx, exec, toID, to.EloRating+amount); err != nil {
		return fmt.Errorf("update rating for %s: %w", toID, err)
	}
	return nil
}

func (s *ratingService) NormalizeAll(ctx context.Context) error {
	teams, err := s.teamRepo.List(ctx, nil, false)
	if err != nil {
		return fmt.Errorf("list teams for normalization: %w", err)
	}
	if len(teams) == 0 {
		return nil
	}

	population := make([]float64, len(teams))
	for i, team := range teams {
		population[i] = team.EloRating
	}
	norm := ratings.NewNormalizer(population)

	var failed int
	for _, team := range teams {
		display := norm.Normalize(team.EloRating)
		if display == team.DisplayRating {
			continue
		}
		if err := s.teamRepo.UpdateDisplayRating(ctx, nil, team.ID, display); err != nil {
			failed++
			s.logger.Error("update display rating failed",
				slog.String("team_id", team.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	if failed > 0 {
		return fmt.Errorf("display rating normalization: %d of %d teams failed", failed, len(teams))
	}
	return nil
}

// kFactorForStage returns the rating volatility for a match stage. Finals
// carry a higher K so title matches move ratings more.
func kFactorForStage(stage models.Stage, regular, finals float64) float64 {
	if stage == models.StageFinals {
		return finals
	}
	return regular
}
