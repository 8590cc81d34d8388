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
	ErrTeamNotFound     = errors.New("team not found")
	ErrTeamNameConflict = errors.New("team name is already in use")
)

type TeamRepository interface {
	Create(ctx context.Context, exec SQLExecutor, team *models.Team) error
	GetByID(ctx context.Context, exec SQLExecutor, id string) (*models.Team, error)
	// GetByIDForUpdate takes a row lock; call inside a transaction around a
	// read-modify-write of the rating or RP projection.
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id string) (*models.Team, error)
	List(ctx context.Context, exec SQLExecutor, includeRetired bool) ([]*models.Team, error)
	UpdateRating(ctx context.Context, exec SQLExecutor, id string, elo float64) error
	UpdateDisplayRating(ctx context.Context, exec SQLExecutor, id string, display float64) error
	UpdateRP(ctx context.Context, exec SQLExecutor, id string, rp int) error
	UpdateRankAndTier(ctx context.Context, exec SQLExecutor, id string, rank int, tier models.LeaderboardTier) error
	UpdateLogoKey(ctx context.Context, exec SQLExecutor, id string, logoKey *string) error
	Retire(ctx context.Context, exec SQLExecutor, id string) error
	HasMatchHistory(ctx context.Context, exec SQLExecutor, id string) (bool, error)
	Delete(ctx context.Context, exec SQLExecutor, id string) error
}

type postgresTeamRepository struct {
	db *sql.DB
}

func NewPostgresTeamRepository(db *sql.DB) TeamRepository {
	return &postgresTeamRepository{db: db}
}

func (r *postgresTeamRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const teamColumns = `id, name, elo_rating, display_rating, current_rp, leaderboard_tier, global_rank, money_won, logo_key, retired_at, created_at`

func (r *postgresTeamRepository) scanTeam(rowScanner interface{ Scan(...interface{}) error }) (*models.Team, error) {
	var t models.Team
	err := rowScanner.Scan(
		&t.ID, &t.Name, &t.EloRating, &t.DisplayRating, &t.CurrentRP,
		&t.LeaderboardTier, &t.GlobalRank, &t.MoneyWon, &t.LogoKey,
		&t.RetiredAt, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *postgresTeamRepository) Create(ctx context.Context, exec SQLExecutor, team *models.Team) error {
	executor := r.getExecutor(exec)
	if team.CreatedAt.IsZero() {
		team.CreatedAt = time.Now()
	}
	query := `
		INSERT INTO teams (id, name, elo_rating, display_rating, current_rp, leaderboard_tier, money_won, logo_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := executor.ExecContext(ctx, query,
		team.ID, team.Name, team.EloRating, team.DisplayRating, team.CurrentRP,
		team.LeaderboardTier, team.MoneyWon, team.LogoKey, team.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrTeamNameConflict
	}
	return err
}

func (r *postgresTeamRepository) GetByID(ctx context.Context, exec SQLExecutor, id string) (*models.Team, error) {
	executor := r.getExecutor(exec)
	row := executor.QueryRowContext(ctx, `SELECT `+teamColumns+` FROM teams WHERE id = $1`, id)
	return r.scanTeam(row)
}

func (r *postgresTeamRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id string) (*models.Team, error) {
	executor := r.getExecutor(exec)
	row := executor.QueryRowContext(ctx, `SELECT `+teamColumns+` FROM teams WHERE id = $1 FOR UPDATE`, id)
	return r.scanTeam(row)
}

func (r *postgresTeamRepository) List(ctx context.Context, exec SQLExecutor, includeRetired bool) ([]*models.Team, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + teamColumns + ` FROM teams`
	if !includeRetired {
		query += ` WHERE retired_at IS NULL`
	}
	query += ` ORDER BY name ASC`

	rows, err := executor.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	teams := make([]*models.Team, 0)
	for rows.Next() {
		t, errScan := r.scanTeam(rows)
		if errScan != nil {
			return nil, errScan
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

func (r *postgresTeamRepository) UpdateRating(ctx context.Context, exec SQLExecutor, id string, elo float64) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `UPDATE teams SET elo_rating = $1 WHERE id = $2`, elo, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) UpdateDisplayRating(ctx context.Context, exec SQLExecutor, id string, display float64) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `UPDATE teams SET display_rating = $1 WHERE id = $2`, display, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) UpdateRP(ctx context.Context, exec SQLExecutor, id string, rp int) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `UPDATE teams SET current_rp = $1 WHERE id = $2`, rp, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) UpdateRankAndTier(ctx context.Context, exec SQLExecutor, id string, rank int, tier models.LeaderboardTier) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx,
		`UPDATE teams SET global_rank = $1, leaderboard_tier = $2 WHERE id = $3`, rank, tier, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) UpdateLogoKey(ctx context.Context, exec SQLExecutor, id string, logoKey *string) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `UPDATE teams SET logo_key = $1 WHERE id = $2`, logoKey, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) Retire(ctx context.Context, exec SQLExecutor, id string) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx,
		`UPDATE teams SET retired_at = NOW() WHERE id = $1 AND retired_at IS NULL`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) HasMatchHistory(ctx context.Context, exec SQLExecutor, id string) (bool, error) {
	executor := r.getExecutor(exec)
	var exists bool
	err := executor.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM matches WHERE team_a_id = $1 OR team_b_id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check match history for team %s: %w", id, err)
	}
	return exists, nil
}

func (r *postgresTeamRepository) Delete(ctx context.Context, exec SQLExecutor, id string) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `DELETE FROM teams WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("team %s still has dependent records: %w", id, err)
		}
		return err
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}
