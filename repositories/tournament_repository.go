package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/upaleague/ranking-engine/models"
)

var (
	ErrTournamentNotFound      = errors.New("tournament not found")
	ErrTournamentStatusInvalid = errors.New("tournament is not in the expected status")
)

type TournamentRepository interface {
	Create(ctx context.Context, exec SQLExecutor, tournament *models.Tournament) error
	GetByID(ctx context.Context, exec SQLExecutor, id string) (*models.Tournament, error)
	List(ctx context.Context, exec SQLExecutor) ([]*models.Tournament, error)
	// UpdateStatusFrom performs a guarded transition; it fails with
	// ErrTournamentStatusInvalid when the tournament is not in `from`,
	// which backs the explicit pre-condition checks the engine uses
	// instead of relying on constraint violations.
	UpdateStatusFrom(ctx context.Context, exec SQLExecutor, id string, from, to models.TournamentStatus) error
	SetFinalists(ctx context.Context, exec SQLExecutor, id string, championID, runnerUpID string) error
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresTournamentRepository) Create(ctx context.Context, exec SQLExecutor, tournament *models.Tournament) error {
	executor := r.getExecutor(exec)
	if tournament.CreatedAt.IsZero() {
		tournament.CreatedAt = time.Now()
	}
	query := `
		INSERT INTO tournaments (id, name, status, decay_days, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := executor.ExecContext(ctx, query,
		tournament.ID, tournament.Name, tournament.Status, tournament.DecayDays, tournament.CreatedAt)
	return err
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, exec SQLExecutor, id string) (*models.Tournament, error) {
	executor := r.getExecutor(exec)
	var t models.Tournament
	err := executor.QueryRowContext(ctx, `
		SELECT id, name, status, decay_days, champion_id, runner_up_id, created_at
		FROM tournaments WHERE id = $1`, id).Scan(
		&t.ID, &t.Name, &t.Status, &t.DecayDays, &t.ChampionID, &t.RunnerUpID, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *postgresTournamentRepository) List(ctx context.Context, exec SQLExecutor) ([]*models.Tournament, error) {
	executor := r.getExecutor(exec)
	rows, err := executor.QueryContext(ctx, `
		SELECT id, name, status, decay_days, champion_id, runner_up_id, created_at
		FROM tournaments ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tournaments := make([]*models.Tournament, 0)
	for rows.Next() {
		var t models.Tournament
		if err := rows.Scan(&t.ID, &t.Name, &t.Status, &t.DecayDays, &t.ChampionID, &t.RunnerUpID, &t.CreatedAt); err != nil {
			return nil, err
		}
		tournaments = append(tournaments, &t)
	}
	return tournaments, rows.Err()
}

func (r *postgresTournamentRepository) UpdateStatusFrom(ctx context.Context, exec SQLExecutor, id string, from, to models.TournamentStatus) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx,
		`UPDATE tournaments SET status = $1 WHERE id = $2 AND status = $3`, to, id, from)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTournamentStatusInvalid)
}

func (r *postgresTournamentRepository) SetFinalists(ctx context.Context, exec SQLExecutor, id string, championID, runnerUpID string) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `
		UPDATE tournaments SET champion_id = $1, runner_up_id = $2, status = $3 WHERE id = $4`,
		championID, runnerUpID, models.TournamentCompleted, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}
