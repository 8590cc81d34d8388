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

// CreateGroupParams describes a new group inside a tournament.
type CreateGroupParams struct {
	Name             string `json:"name"`
	AdvancementCount int    `json:"advancement_count"`
}

// TournamentService manages tournament setup: the lifecycle up to group
// play, group composition, and rosters. The bracket phase belongs to
// BracketService.
type TournamentService interface {
	CreateTournament(ctx context.Context, name string, decayDays *int) (*models.Tournament, error)
	GetTournament(ctx context.Context, id string) (*models.Tournament, error)
	ListTournaments(ctx context.Context) ([]*models.Tournament, error)

	// OpenGroupPlay closes registration and starts the group stage.
	OpenGroupPlay(ctx context.Context, id string) error

	CreateGroup(ctx context.Context, tournamentID string, params CreateGroupParams) (*models.TournamentGroup, error)
	ListGroups(ctx context.Context, tournamentID string) ([]*models.TournamentGroup, error)
	AddTeamToGroup(ctx context.Context, groupID, teamID string) error

	// AddRosterEntry locks a player onto a team's roster for one
	// tournament; placement bonuses pay out against these entries.
	AddRosterEntry(ctx context.Context, tournamentID, teamID, playerID string, isCaptain bool) error

	// NameTournamentMVP records the tournament MVP.
	NameTournamentMVP(ctx context.Context, tournamentID, playerID string) error
}

type tournamentService struct {
	tourRepo   repositories.TournamentRepository
	groupRepo  repositories.GroupRepository
	teamRepo   repositories.TeamRepository
	playerRepo repositories.PlayerRepository
	rosterRepo repositories.RosterRepository
	logger     *slog.Logger
}

func NewTournamentService(
	tourRepo repositories.TournamentRepository,
	groupRepo repositories.GroupRepository,
	teamRepo repositories.TeamRepository,
	playerRepo repositories.PlayerRepository,
	rosterRepo repositories.RosterRepository,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		tourRepo:   tourRepo,
		groupRepo:  groupRepo,
		teamRepo:   teamRepo,
		playerRepo: playerRepo,
		rosterRepo: rosterRepo,
		logger:     logger,
	}
}

func (s *tournamentService) CreateTournament(ctx context.Context, name string, decayDays *int) (*models.Tournament, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: tournament name is required", ErrValidationFailed)
	}
	if decayDays != nil && *decayDays <= 0 {
		return nil, fmt.Errorf("%w: decay days must be positive", ErrValidationFailed)
	}

	tournament := &models.Tournament{
		ID:        uuid.NewString(),
		Name:      name,
		Status:    models.TournamentRegistration,
		DecayDays: decayDays,
	}
	if err := s.tourRepo.Create(ctx, nil, tournament); err != nil {
		return nil, fmt.Errorf("create tournament: %w", err)
	}

	s.logger.Info("tournament created",
		slog.String("tournament_id", tournament.ID),
		slog.String("name", name),
	)
	return tournament, nil
}

func (s *tournamentService) GetTournament(ctx context.Context, id string) (*models.Tournament, error) {
	tournament, err := s.tourRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrTournamentNotFound, id)
		}
		return nil, fmt.Errorf("load tournament %s: %w", id, err)
	}
	return tournament, nil
}

func (s *tournamentService) ListTournaments(ctx context.Context) ([]*models.Tournament, error) {
	tournaments, err := s.tourRepo.List(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("list tournaments: %w", err)
	}
	if tournaments == nil {
		tournaments = []*models.Tournament{}
	}
	return tournaments, nil
}

func (s *tournamentService) OpenGroupPlay(ctx context.Context, id string) error {
	groups, err := s.groupRepo.ListByTournament(ctx, nil, id)
	if err != nil {
		return fmt.Errorf("list groups: %w", err)
	}
	if len(groups) == 0 {
		return fmt.Errorf("%w: create at least one group before opening group play", ErrInvalidState)
	}

	err = s.tourRepo.UpdateStatusFrom(ctx, nil, id, models.TournamentRegistration, models.TournamentGroupPlay)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return fmt.Errorf("%w: %s", ErrTournamentNotFound, id)
		}
		if errors.Is(err, repositories.ErrTournamentStatusInvalid) {
			return fmt.Errorf("%w: tournament is not in registration", ErrInvalidState)
		}
		return fmt.Errorf("open group play: %w", err)
	}

	s.logger.Info("group play opened", slog.String("tournament_id", id))
	return nil
}

func (s *tournamentService) CreateGroup(ctx context.Context, tournamentID string, params CreateGroupParams) (*models.TournamentGroup, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: group name is required", ErrValidationFailed)
	}
	if params.AdvancementCount < 1 {
		return nil, fmt.Errorf("%w: at least one team must advance from a group", ErrValidationFailed)
	}

	tournament, err := s.GetTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if tournament.Status != models.TournamentRegistration {
		return nil, fmt.Errorf("%w: groups can only be created during registration", ErrInvalidState)
	}

	existing, err := s.groupRepo.ListByTournament(ctx, nil, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}

	group := &models.TournamentGroup{
		ID:               uuid.NewString(),
		TournamentID:     tournamentID,
		Name:             name,
		AdvancementCount: params.AdvancementCount,
		SortOrder:        len(existing),
	}
	if err := s.groupRepo.Create(ctx, nil, group); err != nil {
		return nil, fmt.Errorf("create group: %w", err)
	}

	s.logger.Info("group created",
		slog.String("tournament_id", tournamentID),
		slog.String("group_id", group.ID),
		slog.String("name", name),
	)
	return group, nil
}

func (s *tournamentService) ListGroups(ctx context.Context, tournamentID string) ([]*models.TournamentGroup, error) {
	if _, err := s.GetTournament(ctx, tournamentID); err != nil {
		return nil, err
	}
	groups, err := s.groupRepo.ListByTournament(ctx, nil, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	if groups == nil {
		groups = []*models.TournamentGroup{}
	}
	return groups, nil
}

func (s *tournamentService) AddTeamToGroup(ctx context.Context, groupID, teamID string) error {
	group, err := s.groupRepo.GetByID(ctx, nil, groupID)
	if err != nil {
		if errors.Is(err, repositories.ErrGroupNotFound) {
			return fmt.Errorf("%w: %s", ErrGroupNotFound, groupID)
		}
		return fmt.Errorf("load group %s: %w", groupID, err)
	}

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

	member := &models.GroupMember{
		ID:      uuid.NewString(),
		GroupID: groupID,
		TeamID:  teamID,
	}
	if err := s.groupRepo.AddMember(ctx, nil, member); err != nil {
		if errors.Is(err, repositories.ErrGroupMemberConflict) {
			return fmt.Errorf("%w: team already in a group of this tournament", ErrValidationFailed)
		}
		return fmt.Errorf("add team %s to group %s: %w", teamID, groupID, err)
	}

	s.logger.Info("team added to group",
		slog.String("tournament_id", group.TournamentID),
		slog.String("group_id", groupID),
		slog.String("team_id", teamID),
	)
	return nil
}

func (s *tournamentService) AddRosterEntry(ctx context.Context, tournamentID, teamID, playerID string, isCaptain bool) error {
	if _, err := s.GetTournament(ctx, tournamentID); err != nil {
		return err
	}
	if _, err := s.teamRepo.GetByID(ctx, nil, teamID); err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return fmt.Errorf("%w: %s", ErrTeamNotFound, teamID)
		}
		return fmt.Errorf("load team %s: %w", teamID, err)
	}
	if _, err := s.playerRepo.GetByID(ctx, nil, playerID); err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return fmt.Errorf("%w: %s", ErrPlayerNotFound, playerID)
		}
		return fmt.Errorf("load player %s: %w", playerID, err)
	}

	entry := &models.TeamRoster{
		ID:           uuid.NewString(),
		TeamID:       teamID,
		PlayerID:     playerID,
		TournamentID: tournamentID,
		IsCaptain:    isCaptain,
	}
	if err := s.rosterRepo.AddEntry(ctx, nil, entry); err != nil {
		return fmt.Errorf("add roster entry: %w", err)
	}
	return nil
}

func (s *tournamentService) NameTournamentMVP(ctx context.Context, tournamentID, playerID string) error {
	if _, err := s.GetTournament(ctx, tournamentID); err != nil {
		return err
	}
	if _, err := s.playerRepo.GetByID(ctx, nil, playerID); err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return fmt.Errorf("%w: %s", ErrPlayerNotFound, playerID)
		}
		return fmt.Errorf("load player %s: %w", playerID, err)
	}
	mvp := &models.MatchMVP{
		TournamentID: tournamentID,
		PlayerID:     playerID,
	}
	if err := s.rosterRepo.SetTournamentMVP(ctx, nil, mvp); err != nil {
		return fmt.Errorf("set tournament mvp: %w", err)
	}
	s.logger.Info("tournament mvp named",
		slog.String("tournament_id", tournamentID),
		slog.String("player_id", playerID),
	)
	return nil
}
