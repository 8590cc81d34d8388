package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/upaleague/ranking-engine/models"
)

var ErrRPTransactionNotFound = errors.New("rp transaction not found")

// RPTransactionRepository is the append-only ledger. There is deliberately
// no update or delete: corrections are new entries.
type RPTransactionRepository interface {
	Insert(ctx context.Context, exec SQLExecutor, txn *models.RPTransaction) error
	ListBySubject(ctx context.Context, exec SQLExecutor, subject models.SubjectRef) ([]*models.RPTransaction, error)
	ListByMatch(ctx context.Context, exec SQLExecutor, matchID string) ([]*models.RPTransaction, error)
	SumBySubject(ctx context.Context, exec SQLExecutor, subject models.SubjectRef) (int, error)
	// LastEarning returns the subject's most recent RP-earning transaction
	// (positive, non-decay), nil if it never earned.
	LastEarning(ctx context.Context, exec SQLExecutor, subject models.SubjectRef) (*models.RPTransaction, error)
	// HasDecayForPeriod is the decay idempotency check: one decay entry per
	// subject and period start.
	HasDecayForPeriod(ctx context.Context, exec SQLExecutor, subject models.SubjectRef, periodStart time.Time) (bool, error)
}

type postgresRPTransactionRepository struct {
	db *sql.DB
}

func NewPostgresRPTransactionRepository(db *sql.DB) RPTransactionRepository {
	return &postgresRPTransactionRepository{db: db}
}

func (r *postgresRPTransactionRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresRPTransactionRepository) Insert(ctx context.Context, exec SQLExecutor, txn *models.RPTransaction) error {
	executor := r.getExecutor(exec)
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now()
	}
	query := `
		INSERT INTO rp_transactions
			(id, subject_type, subject_id, amount, type, description, match_id, tournament_id, decay_period_start, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := executor.ExecContext(ctx, query,
		txn.ID, txn.SubjectType, txn.SubjectID, txn.Amount, txn.Type, txn.Description,
		txn.MatchID, txn.TournamentID, txn.DecayPeriodStart, txn.CreatedAt,
	)
	return err
}

func (r *postgresRPTransactionRepository) ListBySubject(ctx context.Context, exec SQLExecutor, subject models.SubjectRef) ([]*models.RPTransaction, error) {
	executor := r.getExecutor(exec)
	rows, err := executor.QueryContext(ctx, `
		SELECT id, subject_type, subject_id, amount, type, description, match_id, tournament_id, decay_period_start, created_at
		FROM rp_transactions
		WHERE subject_type = $1 AND subject_id = $2
		ORDER BY created_at ASC, id ASC`,
		subject.Type, subject.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	txns := make([]*models.RPTransaction, 0)
	for rows.Next() {
		var t models.RPTransaction
		err := rows.Scan(
			&t.ID, &t.SubjectType, &t.SubjectID, &t.Amount, &t.Type, &t.Description,
			&t.MatchID, &t.TournamentID, &t.DecayPeriodStart, &t.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		txns = append(txns, &t)
	}
	return txns, rows.Err()
}

func (r *postgresRPTransactionRepository) ListByMatch(ctx context.Context, exec SQLExecutor, matchID string) ([]*models.RPTransaction, error) {
	executor := r.getExecutor(exec)
	rows, err := executor.QueryContext(ctx, `
		SELECT id, subject_type, subject_id, amount, type, description, match_id, tournament_id, decay_period_start, created_at
		FROM rp_transactions
		WHERE match_id = $1
		ORDER BY created_at ASC, id ASC`,
		matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	txns := make([]*models.RPTransaction, 0)
	for rows.Next() {
		var t models.RPTransaction
		err := rows.Scan(
			&t.ID, &t.SubjectType, &t.SubjectID, &t.Amount, &t.Type, &t.Description,
			&t.MatchID, &t.TournamentID, &t.DecayPeriodStart, &t.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		txns = append(txns, &t)
	}
	return txns, rows.Err()
}

func (r *postgresRPTransactionRepository) SumBySubject(ctx context.Context, exec SQLExecutor, subject models.SubjectRef) (int, error) {
	executor := r.getExecutor(exec)
	var sum int
	err := executor.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM rp_transactions
		WHERE subject_type = $1 AND subject_id = $2`,
		subject.Type, subject.ID).Scan(&sum)
	return sum, err
}

func (r *postgresRPTransactionRepository) LastEarning(ctx context.Context, exec SQLExecutor, subject models.SubjectRef) (*models.RPTransaction, error) {
	executor := r.getExecutor(exec)
	var t models.RPTransaction
	err := executor.QueryRowContext(ctx, `
		SELECT id, subject_type, subject_id, amount, type, description, match_id, tournament_id, decay_period_start, created_at
		FROM rp_transactions
		WHERE subject_type = $1 AND subject_id = $2 AND amount > 0 AND type <> $3
		ORDER BY created_at DESC, id DESC
		LIMIT 1`,
		subject.Type, subject.ID, models.RPTypeDecay).Scan(
		&t.ID, &t.SubjectType, &t.SubjectID, &t.Amount, &t.Type, &t.Description,
		&t.MatchID, &t.TournamentID, &t.DecayPeriodStart, &t.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *postgresRPTransactionRepository) HasDecayForPeriod(ctx context.Context, exec SQLExecutor, subject models.SubjectRef, periodStart time.Time) (bool, error) {
	executor := r.getExecutor(exec)
	var exists bool
	err := executor.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM rp_transactions
			WHERE subject_type = $1 AND subject_id = $2 AND type = $3 AND decay_period_start = $4
		)`,
		subject.Type, subject.ID, models.RPTypeDecay, periodStart).Scan(&exists)
	return exists, err
}
