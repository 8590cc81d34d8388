package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/upaleague/ranking-engine/models"
	"github.com/upaleague/ranking-engine/repositories"
)

const (
	// Players whose team played no matches in this window are parked in
	// the lowest tier regardless of score.
	salaryActivityWindow = 30 * 24 * time.Hour

	salarySweepWorkers = 8
)

// Classification is the outcome of valuing one player.
type Classification struct {
	PlayerID     string                `json:"player_id"`
	RankScore    float64               `json:"rank_score"`
	Tier         models.SalaryTierName `json:"tier"`
	MonthlyValue int                   `json:"monthly_value"`
	Inactive     bool                  `json:"inactive"`
}

// SalaryService values players: it blends performance score and ranking
// points into a rank score, buckets the score into an S-to-D tier, and
// derives a monthly valuation from the tier multiplier.
type SalaryService interface {
	// Classify recomputes one player's rank score, tier and monthly value
	// and persists them.
	Classify(ctx context.Context, playerID string) (*Classification, error)

	// SetPerformanceScore stores a new performance score and immediately
	// reclassifies the player.
	SetPerformanceScore(ctx context.Context, playerID string, score float64) (*Classification, error)

	// ReclassifyAll sweeps every player. Individual failures are logged
	// and do not abort the sweep; the returned count is players updated.
	ReclassifyAll(ctx context.Context) (int, error)

	// Tiers returns the active tier configuration, highest tier first.
	Tiers(ctx context.Context) ([]*models.SalaryTier, error)

	// ReplaceTiers swaps the tier configuration wholesale.
	ReplaceTiers(ctx context.Context, tiers []*models.SalaryTier) error
}

type salaryService struct {
	playerRepo repositories.PlayerRepository
	matchRepo  repositories.MatchRepository
	tierRepo   repositories.SalaryTierRepository
	logger     *slog.Logger

	perfWeight float64
	rpWeight   float64
	baseValue  int
	rpCap      int
	batchLimit int

	now func() time.Time
}

func NewSalaryService(
	playerRepo repositories.PlayerRepository,
	matchRepo repositories.MatchRepository,
	tierRepo repositories.SalaryTierRepository,
	logger *slog.Logger,
	perfWeight, rpWeight float64,
	baseValue, rpCap, batchLimit int,
) SalaryService {
	return &salaryService{
		playerRepo: playerRepo,
		matchRepo:  matchRepo,
		tierRepo:   tierRepo,
		logger:     logger,
		perfWeight: perfWeight,
		rpWeight:   rpWeight,
		baseValue:  baseValue,
		rpCap:      rpCap,
		batchLimit: batchLimit,
		now:        time.Now,
	}
}

func (s *salaryService) Classify(ctx context.Context, playerID string) (*Classification, error) {
	player, err := s.playerRepo.GetByID(ctx, nil, playerID)
	if err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrPlayerNotFound, playerID)
		}
		return nil, fmt.Errorf("load player %s: %w", playerID, err)
	}

	tiers, err := s.activeTiers(ctx)
	if err != nil {
		return nil, err
	}

	active, err := s.playedRecently(ctx, player)
	if err != nil {
		return nil, err
	}

	var result Classification
	result.PlayerID = player.ID
	result.RankScore = s.rankScore(player)

	if !active {
		// No recent matches: the score is stale, park the player in the
		// lowest tier until activity resumes.
		lowest := tiers[len(tiers)-1]
		result.Tier = lowest.Name
		result.MonthlyValue = s.monthlyValue(lowest)
		result.Inactive = true
	} else {
		tier := tierForScore(tiers, result.RankScore)
		result.Tier = tier.Name
		result.MonthlyValue = s.monthlyValue(tier)
	}

	if err := s.playerRepo.UpdateSalary(ctx, nil, player.ID, result.RankScore, result.Tier, result.MonthlyValue); err != nil {
		return nil, fmt.Errorf("persist salary for player %s: %w", player.ID, err)
	}

	s.logger.Debug("player classified",
		slog.String("player_id", player.ID),
		slog.Float64("rank_score", result.RankScore),
		slog.String("tier", string(result.Tier)),
		slog.Int("monthly_value", result.MonthlyValue),
		slog.Bool("inactive", result.Inactive),
	)
	return &result, nil
}

func (s *salaryService) SetPerformanceScore(ctx context.Context, playerID string, score float64) (*Classification, error) {
	if score < 0 {
		return nil, fmt.Errorf("%w: performance score must be non-negative", ErrValidationFailed)
	}
	if err := s.playerRepo.UpdatePerformanceScore(ctx, nil, playerID, score); err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrPlayerNotFound, playerID)
		}
		return nil, fmt.Errorf("update performance score: %w", err)
	}
	return s.Classify(ctx, playerID)
}

func (s *salaryService) ReclassifyAll(ctx context.Context) (int, error) {
	var ids []string
	cursor := ""
	for {
		batch, err := s.playerRepo.ListIDsAfter(ctx, nil, cursor, s.batchLimit)
		if err != nil {
			return 0, fmt.Errorf("list player ids after %q: %w", cursor, err)
		}
		if len(batch) == 0 {
			break
		}
		ids = append(ids, batch...)
		cursor = batch[len(batch)-1]
		if len(batch) < s.batchLimit {
			break
		}
	}

	updated := make([]bool, len(ids))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(salarySweepWorkers)
	for i, id := range ids {
		i, id := i, id
		group.Go(func() error {
			if _, err := s.Classify(groupCtx, id); err != nil {
				s.logger.Error("reclassification failed",
					slog.String("player_id", id),
					slog.String("error", err.Error()),
				)
				return nil
			}
			updated[i] = true
			return nil
		})
	}
	_ = group.Wait()

	count := 0
	for _, ok := range updated {
		if ok {
			count++
		}
	}
	s.logger.Info("salary sweep finished",
		slog.Int("players", len(ids)),
		slog.Int("updated", count),
	)
	return count, nil
}

func (s *salaryService) Tiers(ctx context.Context) ([]*models.SalaryTier, error) {
	return s.activeTiers(ctx)
}

func (s *salaryService) ReplaceTiers(ctx context.Context, tiers []*models.SalaryTier) error {
	if len(tiers) == 0 {
		return fmt.Errorf("%w: at least one salary tier is required", ErrValidationFailed)
	}
	for _, tier := range tiers {
		if tier.MinRating >= tier.MaxRating {
			return fmt.Errorf("%w: tier %s has an empty range", ErrValidationFailed, tier.Name)
		}
		if tier.Multiplier <= 0 {
			return fmt.Errorf("%w: tier %s multiplier must be positive", ErrValidationFailed, tier.Name)
		}
	}
	if err := s.tierRepo.Replace(ctx, nil, tiers); err != nil {
		return fmt.Errorf("replace salary tiers: %w", err)
	}
	return nil
}

// rankScore blends the two player signals into one 0-100 score. RP is
// normalized against the display cap so a grinder cannot outscore the cap.
func (s *salaryService) rankScore(player *models.Player) float64 {
	rp := player.PlayerRP
	if rp > s.rpCap {
		rp = s.rpCap
	}
	if rp < 0 {
		rp = 0
	}
	rpComponent := float64(rp) / float64(s.rpCap) * 100
	return s.perfWeight*player.PerformanceScore + s.rpWeight*rpComponent
}

func (s *salaryService) monthlyValue(tier *models.SalaryTier) int {
	return int(math.Round(float64(s.baseValue) * tier.Multiplier))
}

// playedRecently reports whether the player's team completed any match
// inside the activity window. Free agents are inactive by definition.
func (s *salaryService) playedRecently(ctx context.Context, player *models.Player) (bool, error) {
	if player.TeamID == nil {
		return false, nil
	}
	since := s.now().Add(-salaryActivityWindow)
	count, err := s.matchRepo.CountCompletedForTeamSince(ctx, nil, *player.TeamID, since)
	if err != nil {
		return false, fmt.Errorf("count recent matches for team %s: %w", *player.TeamID, err)
	}
	return count > 0, nil
}

// activeTiers returns the configured tiers, falling back to the default
// S-to-D ladder when none are stored.
func (s *salaryService) activeTiers(ctx context.Context) ([]*models.SalaryTier, error) {
	tiers, err := s.tierRepo.ListOrdered(ctx, nil)
	if err != nil {
		if errors.Is(err, repositories.ErrSalaryTiersNotConfigured) {
			defaults := make([]*models.SalaryTier, len(models.DefaultSalaryTiers))
			for i := range models.DefaultSalaryTiers {
				defaults[i] = &models.DefaultSalaryTiers[i]
			}
			return defaults, nil
		}
		return nil, fmt.Errorf("list salary tiers: %w", err)
	}
	return tiers, nil
}

// tierForScore buckets a score, checking the highest tier first. Scores
// above every range land in the top tier, below every range in the bottom.
func tierForScore(tiers []*models.SalaryTier, score float64) *models.SalaryTier {
	for _, tier := range tiers {
		if tier.Contains(score) {
			return tier
		}
	}
	if score >= tiers[0].MaxRating {
		return tiers[0]
	}
	return tiers[len(tiers)-1]
}
