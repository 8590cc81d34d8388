package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/upaleague/ranking-engine/models"
	"github.com/upaleague/ranking-engine/ratings"
	"github.com/upaleague/ranking-engine/repositories"
	"github.com/upaleague/ranking-engine/storage"
)

// TeamService manages team lifecycle: registration, logo assets, soft
// retirement. Teams with match history are never hard-deleted, their entire
// ledger and match record stays queryable forever.
type TeamService interface {
	CreateTeam(ctx context.Context, name string) (*models.Team, error)
	GetTeam(ctx context.Context, id string) (*models.Team, error)
	ListTeams(ctx context.Context, includeRetired bool) ([]*models.Team, error)

	// UploadLogo stores a logo image and records its key on the team.
	UploadLogo(ctx context.Context, teamID, contentType string, body io.Reader) (*models.Team, error)

	// RetireTeam soft-retires a team: it drops off the leaderboard but
	// keeps its history.
	RetireTeam(ctx context.Context, id string) error

	// DeleteTeam removes a team permanently. Only allowed for teams that
	// never played a match; anything else must be retired instead.
	DeleteTeam(ctx context.Context, id string) error
}

type teamService struct {
	teamRepo repositories.TeamRepository
	uploader storage.FileUploader
	logger   *slog.Logger
}

func NewTeamService(teamRepo repositories.TeamRepository, uploader storage.FileUploader, logger *slog.Logger) TeamService {
	return &teamService{
		teamRepo: teamRepo,
		uploader: uploader,
		logger:   logger,
	}
}

func (s *teamService) CreateTeam(ctx context.Context, name string) (*models.Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrTeamNameRequired
	}

	team := &models.Team{
		ID:              uuid.NewString(),
		Name:            name,
		EloRating:       ratings.InitialRating,
		LeaderboardTier: models.TierBronze,
	}
	if err := s.teamRepo.Create(ctx, nil, team); err != nil {
		if errors.Is(err, repositories.ErrTeamNameConflict) {
			return nil, fmt.Errorf("%w: name %q is taken", ErrValidationFailed, name)
		}
		return nil, fmt.Errorf("create team: %w", err)
	}

	s.logger.Info("team created", slog.String("team_id", team.ID), slog.String("name", name))
	return team, nil
}

func (s *teamService) GetTeam(ctx context.Context, id string) (*models.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrTeamNotFound, id)
		}
		return nil, fmt.Errorf("load team %s: %w", id, err)
	}
	s.attachLogoURL(team)
	return team, nil
}

func (s *teamService) ListTeams(ctx context.Context, includeRetired bool) ([]*models.Team, error) {
	teams, err := s.teamRepo.List(ctx, nil, includeRetired)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	for _, team := range teams {
		s.attachLogoURL(team)
	}
	if teams == nil {
		teams = []*models.Team{}
	}
	return teams, nil
}

func (s *teamService) UploadLogo(ctx context.Context, teamID, contentType string, body io.Reader) (*models.Team, error) {
	if s.uploader == nil {
		return nil, fmt.Errorf("%w: logo storage is not configured", ErrValidationFailed)
	}
	team, err := s.GetTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}

	ext := extensionForContentType(contentType)
	if ext == "" {
		return nil, fmt.Errorf("%w: unsupported logo content type %q", ErrValidationFailed, contentType)
	}

	key := fmt.Sprintf("teams/%s/logo%s", teamID, ext)
	result, err := s.uploader.Upload(ctx, key, contentType, body)
	if err != nil {
		return nil, fmt.Errorf("upload logo: %w", err)
	}

	// A changed extension leaves the old object behind; clean it up.
	if team.LogoKey != nil && *team.LogoKey != key {
		if err := s.uploader.Delete(ctx, *team.LogoKey); err != nil {
			s.logger.Warn("stale logo cleanup failed",
				slog.String("team_id", teamID),
				slog.String("key", *team.LogoKey),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := s.teamRepo.UpdateLogoKey(ctx, nil, teamID, &result.Key); err != nil {
		return nil, fmt.Errorf("record logo key: %w", err)
	}
	team.LogoKey = &result.Key
	s.attachLogoURL(team)

	s.logger.Info("team logo updated", slog.String("team_id", teamID), slog.String("key", result.Key))
	return team, nil
}

func (s *teamService) RetireTeam(ctx context.Context, id string) error {
	team, err := s.GetTeam(ctx, id)
	if err != nil {
		return err
	}
	if team.Retired() {
		return fmt.Errorf("%w: %s", ErrTeamRetired, id)
	}
	if err := s.teamRepo.Retire(ctx, nil, id); err != nil {
		return fmt.Errorf("retire team %s: %w", id, err)
	}
	s.logger.Info("team retired", slog.String("team_id", id))
	return nil
}

func (s *teamService) DeleteTeam(ctx context.Context, id string) error {
	team, err := s.GetTeam(ctx, id)
	if err != nil {
		return err
	}
	hasHistory, err := s.teamRepo.HasMatchHistory(ctx, nil, id)
	if err != nil {
		return fmt.Errorf("check match history: %w", err)
	}
	if hasHistory {
		return ErrTeamHasMatchHistory
	}

	if team.LogoKey != nil && s.uploader != nil {
		if err := s.uploader.Delete(ctx, *team.LogoKey); err != nil {
			s.logger.Warn("logo cleanup failed",
				slog.String("team_id", id),
				slog.String("error", err.Error()),
			)
		}
	}
	if err := s.teamRepo.Delete(ctx, nil, id); err != nil {
		return fmt.Errorf("delete team %s: %w", id, err)
	}
	s.logger.Info("team deleted", slog.String("team_id", id))
	return nil
}

func (s *teamService) attachLogoURL(team *models.Team) {
	if team.LogoKey == nil || s.uploader == nil {
		return
	}
	if url := s.uploader.GetPublicURL(*team.LogoKey); url != "" {
		team.LogoURL = &url
	}
}

func extensionForContentType(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/svg+xml":
		return ".svg"
	default:
		return ""
	}
}
