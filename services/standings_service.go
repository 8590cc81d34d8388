package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/upaleague/ranking-engine/brackets"
	"github.com/upaleague/ranking-engine/models"
	"github.com/upaleague/ranking-engine/repositories"
	"github.com/upaleague/ranking-engine/standings"
	"github.com/upaleague/ranking-engine/utils"
)

// StandingsService keeps group tables consistent with the group's completed
// matches. Tables are always rebuilt wholesale from match results, so a
// recompute after a correction converges to the same table as if the
// corrected result had been reported first.
type StandingsService interface {
	// Recompute rebuilds one group's table from its completed matches and
	// replaces the stored standings. Safe to call concurrently; calls for
	// the same group serialize.
	Recompute(ctx context.Context, exec repositories.SQLExecutor, groupID string) ([]*models.GroupStanding, error)

	// Standings returns the stored table with team details attached.
	Standings(ctx context.Context, groupID string) ([]*models.GroupStanding, error)

	// Qualifiers returns the teams advancing out of every group of a
	// tournament, in (group position, group order) interleave order.
	Qualifiers(ctx context.Context, exec repositories.SQLExecutor, tournamentID string) ([]brackets.GroupQualifier, error)
}

type standingsService struct {
	groupRepo repositories.GroupRepository
	matchRepo repositories.MatchRepository
	teamRepo  repositories.TeamRepository
	locks     *utils.KeyMutex
	logger    *slog.Logger
}

func NewStandingsService(
	groupRepo repositories.GroupRepository,
	matchRepo repositories.MatchRepository,
	teamRepo repositories.TeamRepository,
	locks *utils.KeyMutex,
	logger *slog.Logger,
) StandingsService {
	return &standingsService{
		groupRepo: groupRepo,
		matchRepo: matchRepo,
		teamRepo:  teamRepo,
		locks:     locks,
		logger:    logger,
	}
}

func (s *standingsService) Recompute(ctx context.Context, exec repositories.SQLExecutor, groupID string) ([]*models.GroupStanding, error) {
	s.locks.Lock("group:" + groupID)
	defer s.locks.Unlock("group:" + groupID)

	if _, err := s.groupRepo.GetByID(ctx, exec, groupID); err != nil {
		if errors.Is(err, repositories.ErrGroupNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrGroupNotFound, groupID)
		}
		return nil, fmt.Errorf("load group %s: %w", groupID, err)
	}

	members, err := s.groupRepo.ListMembers(ctx, exec, groupID)
	if err != nil {
		return nil, fmt.Errorf("list group members: %w", err)
	}
	teams := make([]standings.TeamRef, 0, len(members))
	for _, member := range members {
		team, err := s.teamRepo.GetByID(ctx, exec, member.TeamID)
		if err != nil {
			return nil, fmt.Errorf("load member team %s: %w", member.TeamID, err)
		}
		teams = append(teams, standings.TeamRef{ID: team.ID, Name: team.Name})
	}

	completed := models.MatchStatusCompleted
	matches, err := s.matchRepo.ListByGroup(ctx, exec, groupID, &completed)
	if err != nil {
		return nil, fmt.Errorf("list completed matches: %w", err)
	}
	results := make([]standings.Result, 0, len(matches))
	for _, match := range matches {
		if match.TeamAID == nil || match.TeamBID == nil {
			continue
		}
		results = append(results, standings.Result{
			TeamAID:  *match.TeamAID,
			TeamBID:  *match.TeamBID,
			ScoreA:   match.ScoreA,
			ScoreB:   match.ScoreB,
			WinnerID: match.WinnerID,
			Forfeit:  match.IsForfeit,
		})
	}

	rows := standings.BuildTable(teams, results)
	table := make([]*models.GroupStanding, len(rows))
	for i, row := range rows {
		table[i] = &models.GroupStanding{
			ID:                uuid.NewString(),
			GroupID:           groupID,
			TeamID:            row.TeamID,
			Wins:              row.Wins,
			Losses:            row.Losses,
			MatchesPlayed:     row.MatchesPlayed,
			PointsFor:         row.PointsFor,
			PointsAgainst:     row.PointsAgainst,
			PointDifferential: row.PointDifferential,
			Position:          row.Position,
		}
	}

	if err := s.groupRepo.ReplaceStandings(ctx, exec, groupID, table); err != nil {
		return nil, fmt.Errorf("replace standings: %w", err)
	}

	s.logger.Debug("group standings rebuilt",
		slog.String("group_id", groupID),
		slog.Int("teams", len(table)),
		slog.Int("completed_matches", len(results)),
	)
	return table, nil
}

func (s *standingsService) Standings(ctx context.Context, groupID string) ([]*models.GroupStanding, error) {
	if _, err := s.groupRepo.GetByID(ctx, nil, groupID); err != nil {
		if errors.Is(err, repositories.ErrGroupNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrGroupNotFound, groupID)
		}
		return nil, fmt.Errorf("load group %s: %w", groupID, err)
	}
	table, err := s.groupRepo.ListStandings(ctx, nil, groupID)
	if err != nil {
		return nil, fmt.Errorf("list standings: %w", err)
	}
	for _, row := range table {
		team, err := s.teamRepo.GetByID(ctx, nil, row.TeamID)
		if err != nil {
			continue
		}
		row.Team = team
	}
	if table == nil {
		table = []*models.GroupStanding{}
	}
	return table, nil
}

func (s *standingsService) Qualifiers(ctx context.Context, exec repositories.SQLExecutor, tournamentID string) ([]brackets.GroupQualifier, error) {
	groups, err := s.groupRepo.ListByTournament(ctx, exec, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("list groups for tournament %s: %w", tournamentID, err)
	}

	var qualifiers []brackets.GroupQualifier
	for groupIndex, group := range groups {
		table, err := s.Recompute(ctx, exec, group.ID)
		if err != nil {
			return nil, err
		}
		limit := group.AdvancementCount
		if limit > len(table) {
			limit = len(table)
		}
		for _, row := range table[:limit] {
			qualifiers = append(qualifiers, brackets.GroupQualifier{
				TeamID:        row.TeamID,
				GroupID:       group.ID,
				GroupIndex:    groupIndex,
				GroupPosition: row.Position,
			})
		}
	}
	return qualifiers, nil
}
