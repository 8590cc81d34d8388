package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/upaleague/ranking-engine/models"
)

var ErrMVPNotFound = errors.New("tournament mvp not found")

type RosterRepository interface {
	AddEntry(ctx context.Context, exec SQLExecutor, entry *models.TeamRoster) error
	ListByTeamAndTournament(ctx context.Context, exec SQLExecutor, teamID, tournamentID string) ([]*models.TeamRoster, error)
	GetTournamentMVP(ctx context.Context, exec SQLExecutor, tournamentID string) (*models.MatchMVP, error)
	SetTournamentMVP(ctx context.Context, exec SQLExecutor, mvp *models.MatchMVP) error
}

type postgresRosterRepository struct {
	db *sql.DB
}

func NewPostgresRosterRepository(db *sql.DB) RosterRepository {
	return &postgresRosterRepository{db: db}
}

func (r *postgresRosterRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresRosterRepository) AddEntry(ctx context.Context, exec SQLExecutor, entry *models.TeamRoster) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO team_rosters (id, team_id, player_id, tournament_id, is_captain)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := executor.ExecContext(ctx, query,
		entry.ID, entry.TeamID, entry.PlayerID, entry.TournamentID, entry.IsCaptain)
	return err
}

func (r *postgresRosterRepository) ListByTeamAndTournament(ctx context.Context, exec SQLExecutor, teamID, tournamentID string) ([]*models.TeamRoster, error) {
	executor := r.getExecutor(exec)
	rows, err := executor.QueryContext(ctx, `
		SELECT id, team_id, player_id, tournament_id, is_captain
		FROM team_rosters WHERE team_id = $1 AND tournament_id = $2
		ORDER BY player_id ASC`, teamID, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]*models.TeamRoster, 0)
	for rows.Next() {
		var e models.TeamRoster
		if err := rows.Scan(&e.ID, &e.TeamID, &e.PlayerID, &e.TournamentID, &e.IsCaptain); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

func (r *postgresRosterRepository) GetTournamentMVP(ctx context.Context, exec SQLExecutor, tournamentID string) (*models.MatchMVP, error) {
	executor := r.getExecutor(exec)
	var mvp models.MatchMVP
	err := executor.QueryRowContext(ctx, `
		SELECT tournament_id, match_id, player_id FROM match_mvps
		WHERE tournament_id = $1 AND match_id IS NULL`, tournamentID).Scan(
		&mvp.TournamentID, &mvp.MatchID, &mvp.PlayerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMVPNotFound
		}
		return nil, err
	}
	return &mvp, nil
}

func (r *postgresRosterRepository) SetTournamentMVP(ctx context.Context, exec SQLExecutor, mvp *models.MatchMVP) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO match_mvps (tournament_id, match_id, player_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (tournament_id) WHERE match_id IS NULL
		DO UPDATE SET player_id = EXCLUDED.player_id`
	_, err := executor.ExecContext(ctx, query, mvp.TournamentID, mvp.MatchID, mvp.PlayerID)
	return err
}
