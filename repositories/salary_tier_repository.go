package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/upaleague/ranking-engine/models"
)

var ErrSalaryTiersNotConfigured = errors.New("no salary tiers configured")

type SalaryTierRepository interface {
	// ListOrdered returns the tier table highest tier first, the lookup
	// order of the classifier.
	ListOrdered(ctx context.Context, exec SQLExecutor) ([]*models.SalaryTier, error)
	Replace(ctx context.Context, exec SQLExecutor, tiers []*models.SalaryTier) error
}

type postgresSalaryTierRepository struct {
	db *sql.DB
}

func NewPostgresSalaryTierRepository(db *sql.DB) SalaryTierRepository {
	return &postgresSalaryTierRepository{db: db}
}

func (r *postgresSalaryTierRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresSalaryTierRepository) ListOrdered(ctx context.Context, exec SQLExecutor) ([]*models.SalaryTier, error) {
	executor := r.getExecutor(exec)
	rows, err := executor.QueryContext(ctx, `
		SELECT id, name, min_rating, max_rating, multiplier
		FROM salary_tiers ORDER BY min_rating DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tiers := make([]*models.SalaryTier, 0)
	for rows.Next() {
		var t models.SalaryTier
		if err := rows.Scan(&t.ID, &t.Name, &t.MinRating, &t.MaxRating, &t.Multiplier); err != nil {
			return nil, err
		}
		tiers = append(tiers, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(tiers) == 0 {
		return nil, ErrSalaryTiersNotConfigured
	}
	return tiers, nil
}

func (r *postgresSalaryTierRepository) Replace(ctx context.Context, exec SQLExecutor, tiers []*models.SalaryTier) error {
	executor := r.getExecutor(exec)
	if _, err := executor.ExecContext(ctx, `DELETE FROM salary_tiers`); err != nil {
		return err
	}
	query := `INSERT INTO salary_tiers (id, name, min_rating, max_rating, multiplier) VALUES ($1, $2, $3, $4, $5)`
	for _, t := range tiers {
		if _, err := executor.ExecContext(ctx, query, t.ID, t.Name, t.MinRating, t.MaxRating, t.Multiplier); err != nil {
			return err
		}
	}
	return nil
}
