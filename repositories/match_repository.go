package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/upaleague/ranking-engine/models"
)

var (
	ErrMatchNotFound    = errors.New("match not found")
	ErrMatchTeamInvalid = errors.New("match team conflict or invalid")
)

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, exec SQLExecutor, id string) (*models.Match, error)
	ListByGroup(ctx context.Context, exec SQLExecutor, groupID string, status *models.MatchStatus) ([]*models.Match, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID string, round *int) ([]*models.Match, error)
	// GetByRoundOrder locates a bracket slot match; used when a winner
	// advances and the next-round match may or may not exist yet.
	GetByRoundOrder(ctx context.Context, exec SQLExecutor, tournamentID string, round, orderInRound int) (*models.Match, error)
	UpdateResult(ctx context.Context, exec SQLExecutor, id string, scoreA, scoreB int, winnerID *string, isForfeit bool, playedAt time.Time) error
	SetTeamSlot(ctx context.Context, exec SQLExecutor, id string, slot int, teamID string) error
	SetRatingDelta(ctx context.Context, exec SQLExecutor, id string, delta float64) error
	Cancel(ctx context.Context, exec SQLExecutor, id string) error
	CountCompletedForTeamSince(ctx context.Context, exec SQLExecutor, teamID string, since time.Time) (int, error)
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const matchColumns = `id, tournament_id, group_id, team_a_id, team_b_id, score_a, score_b, winner_id,
		stage, round, order_in_round, next_match_id, next_slot, is_forfeit, rating_delta, status, match_time, played_at, created_at`

func (r *postgresMatchRepository) scanMatch(rowScanner interface{ Scan(...interface{}) error }) (*models.Match, error) {
	var m models.Match
	err := rowScanner.Scan(
		&m.ID, &m.TournamentID, &m.GroupID, &m.TeamAID, &m.TeamBID,
		&m.ScoreA, &m.ScoreB, &m.WinnerID, &m.Stage, &m.Round, &m.OrderInRound,
		&m.NextMatchID, &m.NextSlot, &m.IsForfeit, &m.RatingDelta, &m.Status,
		&m.MatchTime, &m.PlayedAt, &m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	executor := r.getExecutor(exec)
	if match.CreatedAt.IsZero() {
		match.CreatedAt = time.Now()
	}
	query := `
		INSERT INTO matches
			(id, tournament_id, group_id, team_a_id, team_b_id, score_a, score_b, winner_id,
			 stage, round, order_in_round, next_match_id, next_slot, is_forfeit, rating_delta, status, match_time, played_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`
	_, err := executor.ExecContext(ctx, query,
		match.ID, match.TournamentID, match.GroupID, match.TeamAID, match.TeamBID,
		match.ScoreA, match.ScoreB, match.WinnerID, match.Stage, match.Round, match.OrderInRound,
		match.NextMatchID, match.NextSlot, match.IsForfeit, match.RatingDelta, match.Status,
		match.MatchTime, match.PlayedAt, match.CreatedAt,
	)
	if isForeignKeyViolation(err) {
		return ErrMatchTeamInvalid
	}
	return err
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id string) (*models.Match, error) {
	executor := r.getExecutor(exec)
	row := executor.QueryRowContext(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = $1`, id)
	return r.scanMatch(row)
}

func (r *postgresMatchRepository) ListByGroup(ctx context.Context, exec SQLExecutor, groupID string, status *models.MatchStatus) ([]*models.Match, error) {
	executor := r.getExecutor(exec)

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + matchColumns + ` FROM matches WHERE group_id = $1`)
	args := []interface{}{groupID}
	if status != nil {
		queryBuilder.WriteString(` AND status = $2`)
		args = append(args, *status)
	}
	queryBuilder.WriteString(` ORDER BY match_time ASC, id ASC`)

	rows, err := executor.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID string, round *int) ([]*models.Match, error) {
	executor := r.getExecutor(exec)

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + matchColumns + ` FROM matches WHERE tournament_id = $1`)
	args := []interface{}{tournamentID}
	if round != nil {
		queryBuilder.WriteString(` AND round = $2`)
		args = append(args, *round)
	}
	queryBuilder.WriteString(` ORDER BY round ASC NULLS FIRST, order_in_round ASC NULLS FIRST, match_time ASC`)

	rows, err := executor.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *postgresMatchRepository) collect(rows *sql.Rows) ([]*models.Match, error) {
	matches := make([]*models.Match, 0)
	for rows.Next() {
		m, err := r.scanMatch(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (r *postgresMatchRepository) GetByRoundOrder(ctx context.Context, exec SQLExecutor, tournamentID string, round, orderInRound int) (*models.Match, error) {
	executor := r.getExecutor(exec)
	row := executor.QueryRowContext(ctx,
		`SELECT `+matchColumns+` FROM matches WHERE tournament_id = $1 AND round = $2 AND order_in_round = $3`,
		tournamentID, round, orderInRound)
	return r.scanMatch(row)
}

func (r *postgresMatchRepository) UpdateResult(ctx context.Context, exec SQLExecutor, id string, scoreA, scoreB int, winnerID *string, isForfeit bool, playedAt time.Time) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `
		UPDATE matches
		SET score_a = $1, score_b = $2, winner_id = $3, is_forfeit = $4, status = $5, played_at = $6
		WHERE id = $7`,
		scoreA, scoreB, winnerID, isForfeit, models.MatchStatusCompleted, playedAt, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) SetRatingDelta(ctx context.Context, exec SQLExecutor, id string, delta float64) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx,
		`UPDATE matches SET rating_delta = $1 WHERE id = $2`, delta, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) SetTeamSlot(ctx context.Context, exec SQLExecutor, id string, slot int, teamID string) error {
	executor := r.getExecutor(exec)
	column := "team_a_id"
	if slot == 2 {
		column = "team_b_id"
	}
	result, err := executor.ExecContext(ctx,
		`UPDATE matches SET `+column+` = $1 WHERE id = $2`, teamID, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) Cancel(ctx context.Context, exec SQLExecutor, id string) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx,
		`UPDATE matches SET status = $1 WHERE id = $2`, models.MatchStatusCanceled, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) CountCompletedForTeamSince(ctx context.Context, exec SQLExecutor, teamID string, since time.Time) (int, error) {
	executor := r.getExecutor(exec)
	var count int
	err := executor.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM matches
		WHERE (team_a_id = $1 OR team_b_id = $1) AND status = $2 AND played_at >= $3`,
		teamID, models.MatchStatusCompleted, since).Scan(&count)
	return count, err
}
