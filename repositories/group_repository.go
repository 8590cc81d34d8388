package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/upaleague/ranking-engine/models"
)

var (
	ErrGroupNotFound       = errors.New("tournament group not found")
	ErrGroupMemberConflict = errors.New("team is already a member of this group")
)

type GroupRepository interface {
	Create(ctx context.Context, exec SQLExecutor, group *models.TournamentGroup) error
	GetByID(ctx context.Context, exec SQLExecutor, id string) (*models.TournamentGroup, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID string) ([]*models.TournamentGroup, error)
	AddMember(ctx context.Context, exec SQLExecutor, member *models.GroupMember) error
	ListMembers(ctx context.Context, exec SQLExecutor, groupID string) ([]*models.GroupMember, error)
	// ReplaceStandings deletes and re-inserts the whole group table: the
	// standings rebuild is wholesale, never incremental.
	ReplaceStandings(ctx context.Context, exec SQLExecutor, groupID string, standings []*models.GroupStanding) error
	ListStandings(ctx context.Context, exec SQLExecutor, groupID string) ([]*models.GroupStanding, error)
}

type postgresGroupRepository struct {
	db *sql.DB
}

func NewPostgresGroupRepository(db *sql.DB) GroupRepository {
	return &postgresGroupRepository{db: db}
}

func (r *postgresGroupRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresGroupRepository) Create(ctx context.Context, exec SQLExecutor, group *models.TournamentGroup) error {
	executor := r.getExecutor(exec)
	if group.CreatedAt.IsZero() {
		group.CreatedAt = time.Now()
	}
	query := `
		INSERT INTO tournament_groups (id, tournament_id, name, advancement_count, sort_order, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := executor.ExecContext(ctx, query,
		group.ID, group.TournamentID, group.Name, group.AdvancementCount, group.SortOrder, group.CreatedAt)
	return err
}

func (r *postgresGroupRepository) GetByID(ctx context.Context, exec SQLExecutor, id string) (*models.TournamentGroup, error) {
	executor := r.getExecutor(exec)
	var g models.TournamentGroup
	err := executor.QueryRowContext(ctx, `
		SELECT id, tournament_id, name, advancement_count, sort_order, created_at
		FROM tournament_groups WHERE id = $1`, id).Scan(
		&g.ID, &g.TournamentID, &g.Name, &g.AdvancementCount, &g.SortOrder, &g.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}
	return &g, nil
}

func (r *postgresGroupRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID string) ([]*models.TournamentGroup, error) {
	executor := r.getExecutor(exec)
	rows, err := executor.QueryContext(ctx, `
		SELECT id, tournament_id, name, advancement_count, sort_order, created_at
		FROM tournament_groups WHERE tournament_id = $1
		ORDER BY sort_order ASC, name ASC`, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	groups := make([]*models.TournamentGroup, 0)
	for rows.Next() {
		var g models.TournamentGroup
		if err := rows.Scan(&g.ID, &g.TournamentID, &g.Name, &g.AdvancementCount, &g.SortOrder, &g.CreatedAt); err != nil {
			return nil, err
		}
		groups = append(groups, &g)
	}
	return groups, rows.Err()
}

func (r *postgresGroupRepository) AddMember(ctx context.Context, exec SQLExecutor, member *models.GroupMember) error {
	executor := r.getExecutor(exec)
	query := `INSERT INTO group_members (id, group_id, team_id, seed) VALUES ($1, $2, $3, $4)`
	_, err := executor.ExecContext(ctx, query, member.ID, member.GroupID, member.TeamID, member.Seed)
	if isUniqueViolation(err) {
		return ErrGroupMemberConflict
	}
	return err
}

func (r *postgresGroupRepository) ListMembers(ctx context.Context, exec SQLExecutor, groupID string) ([]*models.GroupMember, error) {
	executor := r.getExecutor(exec)
	rows, err := executor.QueryContext(ctx, `
		SELECT id, group_id, team_id, seed FROM group_members
		WHERE group_id = $1 ORDER BY seed ASC NULLS LAST, team_id ASC`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := make([]*models.GroupMember, 0)
	for rows.Next() {
		var m models.GroupMember
		if err := rows.Scan(&m.ID, &m.GroupID, &m.TeamID, &m.Seed); err != nil {
			return nil, err
		}
		members = append(members, &m)
	}
	return members, rows.Err()
}

func (r *postgresGroupRepository) ReplaceStandings(ctx context.Context, exec SQLExecutor, groupID string, standings []*models.GroupStanding) error {
	executor := r.getExecutor(exec)

	if _, err := executor.ExecContext(ctx, `DELETE FROM group_standings WHERE group_id = $1`, groupID); err != nil {
		return fmt.Errorf("failed to clear standings for group %s: %w", groupID, err)
	}

	query := `
		INSERT INTO group_standings
			(id, group_id, team_id, wins, losses, matches_played, points_for, points_against, point_differential, position, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	for _, s := range standings {
		if s.UpdatedAt.IsZero() {
			s.UpdatedAt = time.Now()
		}
		_, err := executor.ExecContext(ctx, query,
			s.ID, s.GroupID, s.TeamID, s.Wins, s.Losses, s.MatchesPlayed,
			s.PointsFor, s.PointsAgainst, s.PointDifferential, s.Position, s.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert standing for team %s: %w", s.TeamID, err)
		}
	}
	return nil
}

func (r *postgresGroupRepository) ListStandings(ctx context.Context, exec SQLExecutor, groupID string) ([]*models.GroupStanding, error) {
	executor := r.getExecutor(exec)
	rows, err := executor.QueryContext(ctx, `
		SELECT id, group_id, team_id, wins, losses, matches_played, points_for, points_against, point_differential, position, updated_at
		FROM group_standings WHERE group_id = $1 ORDER BY position ASC`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	standings := make([]*models.GroupStanding, 0)
	for rows.Next() {
		var s models.GroupStanding
		err := rows.Scan(&s.ID, &s.GroupID, &s.TeamID, &s.Wins, &s.Losses, &s.MatchesPlayed,
			&s.PointsFor, &s.PointsAgainst, &s.PointDifferential, &s.Position, &s.UpdatedAt)
		if err != nil {
			return nil, err
		}
		standings = append(standings, &s)
	}
	return standings, rows.Err()
}
