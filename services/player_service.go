package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/upaleague/ranking-engine/models"
	"github.com/upaleague/ranking-engine/repositories"
)

// CreatePlayerParams describes a new player registration.
type CreatePlayerParams struct {
	Gamertag string  `json:"gamertag"`
	TeamID   *string `json:"team_id,omitempty"`
	IsRookie bool    `json:"is_rookie"`
}

// PlayerService manages player profiles and team membership.
type PlayerService interface {
	CreatePlayer(ctx context.Context, params CreatePlayerParams) (*models.Player, error)
	GetPlayer(ctx context.Context, id string) (*models.Player, error)
	ListPlayers(ctx context.Context) ([]*models.Player, error)
	ListByTeam(ctx context.Context, teamID string) ([]*models.Player, error)

	// AssignToTeam moves a player onto a team; nil releases them to free
	// agency.
	AssignToTeam(ctx context.Context, playerID string, teamID *string) (*models.Player, error)
}

type playerService struct {
	playerRepo repositories.PlayerRepository
	teamRepo   repositories.TeamRepository
	logger     *slog.Logger
}

func NewPlayerService(playerRepo repositories.PlayerRepository, teamRepo repositories.TeamRepository, logger *slog.Logger) PlayerService {
	return &playerService{
		playerRepo: playerRepo,
		teamRepo:   teamRepo,
		logger:     logger,
	}
}

func (s *playerService) CreatePlayer(ctx context.Context, params CreatePlayerParams) (*models.Player, error) {
	gamertag := strings.TrimSpace(params.Gamertag)
	if gamertag == "" {
		return nil, ErrGamertagRequired
	}
	if params.TeamID != nil {
		if err := s.checkTeam(ctx, *params.TeamID); err != nil {
			return nil, err
		}
	}

	player := &models.Player{
		ID:         uuid.NewString(),
		Gamertag:   gamertag,
		TeamID:     params.TeamID,
		SalaryTier: models.SalaryTierD,
		IsRookie:   params.IsRookie,
	}
	if err := s.playerRepo.Create(ctx, nil, player); err != nil {
		if errors.Is(err, repositories.ErrPlayerGamertagConflict) {
			return nil, fmt.Errorf("%w: gamertag %q is taken", ErrValidationFailed, gamertag)
		}
		return nil, fmt.Errorf("create player: %w", err)
	}

	s.logger.Info("player created",
		slog.String("player_id", player.ID),
		slog.String("gamertag", gamertag),
	)
	return player, nil
}

func (s *playerService) GetPlayer(ctx context.Context, id string) (*models.Player, error) {
	player, err := s.playerRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrPlayerNotFound, id)
		}
		return nil, fmt.Errorf("load player %s: %w", id, err)
	}
	return player, nil
}

func (s *playerService) ListPlayers(ctx context.Context) ([]*models.Player, error) {
	players, err := s.playerRepo.List(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	if players == nil {
		players = []*models.Player{}
	}
	return players, nil
}

func (s *playerService) ListByTeam(ctx context.Context, teamID string) ([]*models.Player, error) {
	if err := s.checkTeam(ctx, teamID); err != nil {
		return nil, err
	}
	players, err := s.playerRepo.ListByTeam(ctx, nil, teamID)
	if err != nil {
		return nil, fmt.Errorf("list players for team %s: %w", teamID, err)
	}
	if players == nil {
		players = []*models.Player{}
	}
	return players, nil
}

func (s *playerService) AssignToTeam(ctx context.Context, playerID string, teamID *string) (*models.Player, error) {
	if teamID != nil {
		if err := s.checkTeam(ctx, *teamID); err != nil {
			return nil, err
		}
	}
	if err := s.playerRepo.AssignTeam(ctx, nil, playerID, teamID); err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrPlayerNotFound, playerID)
		}
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrTeamNotFound, *teamID)
		}
		return nil, fmt.Errorf("assign player %s: %w", playerID, err)
	}
	return s.GetPlayer(ctx, playerID)
}

func (s *playerService) checkTeam(ctx context.Context, teamID string) error {
	team, err := s.teamRepo.GetByID(ctx, nil, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return fmt.Errorf("%w: %s", ErrTeamNotFound, teamID)
		}
		return fmt.Errorf("load team %s: %w", teamID, err)
	}
	if team.Retired() {
		return fmt.Errorf("%w: %s", ErrTeamRetired, teamID)
	}
	return nil
}
