package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/go-redis/redis/v8"

	"github.com/upaleague/ranking-engine/models"
	"github.com/upaleague/ranking-engine/repositories"
)

const leaderboardKey = "leaderboard:teams:rp"

// LeaderboardEntry is one line of the global leaderboard.
type LeaderboardEntry struct {
	Rank int          `json:"rank"`
	Team *models.Team `json:"team"`
}

// LeaderboardService maintains the global RP ranking of teams: tier labels
// and rank numbers on the teams table, plus a Redis sorted set for cheap
// reads. Postgres stays the source of truth; Redis is a cache and every
// read path falls back to the database when it is unavailable.
type LeaderboardService interface {
	// RecomputeGlobalRanks re-ranks every active team by current RP,
	// refreshes tier labels and rewrites the Redis sorted set.
	RecomputeGlobalRanks(ctx context.Context) error

	// Top returns the leaderboard slice [offset, offset+limit).
	Top(ctx context.Context, limit, offset int) ([]*LeaderboardEntry, error)

	// TeamRank returns a team's 1-based global rank.
	TeamRank(ctx context.Context, teamID string) (int, error)
}

type leaderboardService struct {
	teamRepo repositories.TeamRepository
	redis    *redis.Client
	logger   *slog.Logger
}

func NewLeaderboardService(teamRepo repositories.TeamRepository, redisClient *redis.Client, logger *slog.Logger) LeaderboardService {
	return &leaderboardService{
		teamRepo: teamRepo,
		redis:    redisClient,
		logger:   logger,
	}
}

func (s *leaderboardService) RecomputeGlobalRanks(ctx context.Context) error {
	teams, err := s.rankedTeams(ctx)
	if err != nil {
		return err
	}

	for rank, team := range teams {
		position := rank + 1
		tier := models.TierForRP(team.CurrentRP)
		if team.GlobalRank != nil && *team.GlobalRank == position && team.LeaderboardTier == tier {
			continue
		}
		if err := s.teamRepo.UpdateRankAndTier(ctx, nil, team.ID, position, tier); err != nil {
			return fmt.Errorf("update rank for team %s: %w", team.ID, err)
		}
	}

	s.refreshCache(ctx, teams)
	s.logger.Info("global ranks recomputed", slog.Int("teams", len(teams)))
	return nil
}

func (s *leaderboardService) Top(ctx context.Context, limit, offset int) ([]*LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 25
	}
	if offset < 0 {
		offset = 0
	}

	if s.redis != nil {
		entries, err := s.topFromCache(ctx, limit, offset)
		if err == nil {
			return entries, nil
		}
		s.logger.Warn("leaderboard cache read failed, falling back to database",
			slog.String("error", err.Error()),
		)
	}

	teams, err := s.rankedTeams(ctx)
	if err != nil {
		return nil, err
	}
	if offset >= len(teams) {
		return []*LeaderboardEntry{}, nil
	}
	end := offset + limit
	if end > len(teams) {
		end = len(teams)
	}
	entries := make([]*LeaderboardEntry, 0, end-offset)
	for i := offset; i < end; i++ {
		entries = append(entries, &LeaderboardEntry{Rank: i + 1, Team: teams[i]})
	}
	return entries, nil
}

func (s *leaderboardService) TeamRank(ctx context.Context, teamID string) (int, error) {
	if s.redis != nil {
		rank, err := s.redis.ZRevRank(ctx, leaderboardKey, teamID).Result()
		if err == nil {
			return int(rank) + 1, nil
		}
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("leaderboard rank cache read failed, falling back to database",
				slog.String("error", err.Error()),
			)
		}
	}

	team, err := s.teamRepo.GetByID(ctx, nil, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return 0, fmt.Errorf("%w: %s", ErrTeamNotFound, teamID)
		}
		return 0, fmt.Errorf("load team %s: %w", teamID, err)
	}
	if team.GlobalRank != nil {
		return *team.GlobalRank, nil
	}

	// Rank never computed for this team yet: derive it from the full
	// ordering.
	teams, err := s.rankedTeams(ctx)
	if err != nil {
		return 0, err
	}
	for i, t := range teams {
		if t.ID == teamID {
			return i + 1, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrTeamNotFound, teamID)
}

// rankedTeams returns active teams in leaderboard order: RP desc, then Elo
// desc, then name asc so the ordering is total and stable.
func (s *leaderboardService) rankedTeams(ctx context.Context) ([]*models.Team, error) {
	teams, err := s.teamRepo.List(ctx, nil, false)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	sort.Slice(teams, func(i, j int) bool {
		if teams[i].CurrentRP != teams[j].CurrentRP {
			return teams[i].CurrentRP > teams[j].CurrentRP
		}
		if teams[i].EloRating != teams[j].EloRating {
			return teams[i].EloRating > teams[j].EloRating
		}
		return teams[i].Name < teams[j].Name
	})
	return teams, nil
}

func (s *leaderboardService) refreshCache(ctx context.Context, teams []*models.Team) {
	if s.redis == nil {
		return
	}
	pipe := s.redis.TxPipeline()
	pipe.Del(ctx, leaderboardKey)
	for _, team := range teams {
		pipe.ZAdd(ctx, leaderboardKey, &redis.Z{
			Score:  float64(team.CurrentRP),
			Member: team.ID,
		})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		// Cache refresh failure is not fatal; reads fall back to Postgres.
		s.logger.Warn("leaderboard cache refresh failed", slog.String("error", err.Error()))
	}
}

func (s *leaderboardService) topFromCache(ctx context.Context, limit, offset int) ([]*LeaderboardEntry, error) {
	ids, err := s.redis.ZRevRange(ctx, leaderboardKey, int64(offset), int64(offset+limit-1)).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, errors.New("leaderboard cache empty")
	}
	entries := make([]*LeaderboardEntry, 0, len(ids))
	for i, id := range ids {
		team, err := s.teamRepo.GetByID(ctx, nil, id)
		if err != nil {
			// Cache can briefly hold retired or deleted teams.
			continue
		}
		entries = append(entries, &LeaderboardEntry{Rank: offset + i + 1, Team: team})
	}
	return entries, nil
}
