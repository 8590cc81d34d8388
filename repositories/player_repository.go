package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/upaleague/ranking-engine/models"
)

var (
	ErrPlayerNotFound         = errors.New("player not found")
	ErrPlayerGamertagConflict = errors.New("gamertag is already in use")
)

type PlayerRepository interface {
	Create(ctx context.Context, exec SQLExecutor, player *models.Player) error
	GetByID(ctx context.Context, exec SQLExecutor, id string) (*models.Player, error)
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id string) (*models.Player, error)
	List(ctx context.Context, exec SQLExecutor) ([]*models.Player, error)
	ListByTeam(ctx context.Context, exec SQLExecutor, teamID string) ([]*models.Player, error)
	// ListIDsAfter pages player ids in a stable order; sweeps use it as a
	// resume cursor so a bounded run can pick up where the last one stopped.
	ListIDsAfter(ctx context.Context, exec SQLExecutor, cursor string, limit int) ([]string, error)
	UpdateRP(ctx context.Context, exec SQLExecutor, id string, rp int) error
	AssignTeam(ctx context.Context, exec SQLExecutor, id string, teamID *string) error
	UpdatePerformanceScore(ctx context.Context, exec SQLExecutor, id string, score float64) error
	UpdateSalary(ctx context.Context, exec SQLExecutor, id string, rankScore float64, tier models.SalaryTierName, monthlyValue int) error
}

type postgresPlayerRepository struct {
	db *sql.DB
}

func NewPostgresPlayerRepository(db *sql.DB) PlayerRepository {
	return &postgresPlayerRepository{db: db}
}

func (r *postgresPlayerRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const playerColumns = `id, gamertag, team_id, player_rp, performance_score, rank_score, salary_tier, monthly_value, is_rookie, created_at`

func (r *postgresPlayerRepository) scanPlayer(rowScanner interface{ Scan(...interface{}) error }) (*models.Player, error) {
	var p models.Player
	err := rowScanner.Scan(
		&p.ID, &p.Gamertag, &p.TeamID, &p.PlayerRP, &p.PerformanceScore,
		&p.RankScore, &p.SalaryTier, &p.MonthlyValue, &p.IsRookie, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *postgresPlayerRepository) Create(ctx context.Context, exec SQLExecutor, player *models.Player) error {
	executor := r.getExecutor(exec)
	if player.CreatedAt.IsZero() {
		player.CreatedAt = time.Now()
	}
	query := `
		INSERT INTO players (id, gamertag, team_id, player_rp, performance_score, rank_score, salary_tier, monthly_value, is_rookie, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := executor.ExecContext(ctx, query,
		player.ID, player.Gamertag, player.TeamID, player.PlayerRP, player.PerformanceScore,
		player.RankScore, player.SalaryTier, player.MonthlyValue, player.IsRookie, player.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrPlayerGamertagConflict
	}
	return err
}

func (r *postgresPlayerRepository) GetByID(ctx context.Context, exec SQLExecutor, id string) (*models.Player, error) {
	executor := r.getExecutor(exec)
	row := executor.QueryRowContext(ctx, `SELECT `+playerColumns+` FROM players WHERE id = $1`, id)
	return r.scanPlayer(row)
}

func (r *postgresPlayerRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id string) (*models.Player, error) {
	executor := r.getExecutor(exec)
	row := executor.QueryRowContext(ctx, `SELECT `+playerColumns+` FROM players WHERE id = $1 FOR UPDATE`, id)
	return r.scanPlayer(row)
}

func (r *postgresPlayerRepository) List(ctx context.Context, exec SQLExecutor) ([]*models.Player, error) {
	executor := r.getExecutor(exec)
	rows, err := executor.QueryContext(ctx, `SELECT `+playerColumns+` FROM players ORDER BY gamertag ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *postgresPlayerRepository) ListByTeam(ctx context.Context, exec SQLExecutor, teamID string) ([]*models.Player, error) {
	executor := r.getExecutor(exec)
	rows, err := executor.QueryContext(ctx,
		`SELECT `+playerColumns+` FROM players WHERE team_id = $1 ORDER BY gamertag ASC`, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *postgresPlayerRepository) collect(rows *sql.Rows) ([]*models.Player, error) {
	players := make([]*models.Player, 0)
	for rows.Next() {
		p, err := r.scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

func (r *postgresPlayerRepository) ListIDsAfter(ctx context.Context, exec SQLExecutor, cursor string, limit int) ([]string, error) {
	executor := r.getExecutor(exec)
	rows, err := executor.QueryContext(ctx,
		`SELECT id FROM players WHERE id > $1 ORDER BY id ASC LIMIT $2`, cursor, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]string, 0, limit)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *postgresPlayerRepository) UpdateRP(ctx context.Context, exec SQLExecutor, id string, rp int) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `UPDATE players SET player_rp = $1 WHERE id = $2`, rp, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrPlayerNotFound)
}

func (r *postgresPlayerRepository) AssignTeam(ctx context.Context, exec SQLExecutor, id string, teamID *string) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `UPDATE players SET team_id = $1 WHERE id = $2`, teamID, id)
	if isForeignKeyViolation(err) {
		return ErrTeamNotFound
	}
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrPlayerNotFound)
}

func (r *postgresPlayerRepository) UpdatePerformanceScore(ctx context.Context, exec SQLExecutor, id string, score float64) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `UPDATE players SET performance_score = $1 WHERE id = $2`, score, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrPlayerNotFound)
}

func (r *postgresPlayerRepository) UpdateSalary(ctx context.Context, exec SQLExecutor, id string, rankScore float64, tier models.SalaryTierName, monthlyValue int) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx,
		`UPDATE players SET rank_score = $1, salary_tier = $2, monthly_value = $3 WHERE id = $4`,
		rankScore, tier, monthlyValue, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrPlayerNotFound)
}
