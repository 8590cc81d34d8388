package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/upaleague/ranking-engine/models"
)

type BracketSeedRepository interface {
	// BatchCreate writes the full seed list of a tournament in one shot.
	// Seeds are immutable afterwards; there is no update method.
	BatchCreate(ctx context.Context, exec SQLExecutor, seeds []*models.BracketSeed) error
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID string) ([]*models.BracketSeed, error)
	ExistsForTournament(ctx context.Context, exec SQLExecutor, tournamentID string) (bool, error)
}

type postgresBracketSeedRepository struct {
	db *sql.DB
}

func NewPostgresBracketSeedRepository(db *sql.DB) BracketSeedRepository {
	return &postgresBracketSeedRepository{db: db}
}

func (r *postgresBracketSeedRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresBracketSeedRepository) BatchCreate(ctx context.Context, exec SQLExecutor, seeds []*models.BracketSeed) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO bracket_seeds (id, tournament_id, seed, team_id, group_id, group_position, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for _, s := range seeds {
		if s.CreatedAt.IsZero() {
			s.CreatedAt = time.Now()
		}
		_, err := executor.ExecContext(ctx, query,
			s.ID, s.TournamentID, s.Seed, s.TeamID, s.GroupID, s.GroupPosition, s.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert seed %d for tournament %s: %w", s.Seed, s.TournamentID, err)
		}
	}
	return nil
}

func (r *postgresBracketSeedRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID string) ([]*models.BracketSeed, error) {
	executor := r.getExecutor(exec)
	rows, err := executor.QueryContext(ctx, `
		SELECT id, tournament_id, seed, team_id, group_id, group_position, created_at
		FROM bracket_seeds WHERE tournament_id = $1 ORDER BY seed ASC`, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seeds := make([]*models.BracketSeed, 0)
	for rows.Next() {
		var s models.BracketSeed
		if err := rows.Scan(&s.ID, &s.TournamentID, &s.Seed, &s.TeamID, &s.GroupID, &s.GroupPosition, &s.CreatedAt); err != nil {
			return nil, err
		}
		seeds = append(seeds, &s)
	}
	return seeds, rows.Err()
}

func (r *postgresBracketSeedRepository) ExistsForTournament(ctx context.Context, exec SQLExecutor, tournamentID string) (bool, error) {
	executor := r.getExecutor(exec)
	var exists bool
	err := executor.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM bracket_seeds WHERE tournament_id = $1)`, tournamentID).Scan(&exists)
	return exists, err
}
