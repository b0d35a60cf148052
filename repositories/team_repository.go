package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Dosada05/tournament-ranking/models"
)

var ErrTeamNotFound = errors.New("team not found")

type TeamRepository interface {
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Team, error)
	// ListByTournament orders teams by approval time, falling back to
	// registration time, which is the seeding order for brackets.
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, status *models.TeamStatus) ([]*models.Team, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TeamStatus) error
}

type postgresTeamRepository struct {
	db *sql.DB
}

func NewPostgresTeamRepository(db *sql.DB) TeamRepository {
	return &postgresTeamRepository{db: db}
}

func (r *postgresTeamRepository) scanTeam(row rowScanner) (*models.Team, error) {
	var t models.Team
	if err := row.Scan(&t.ID, &t.Name, &t.TournamentID, &t.Status, &t.CreatedAt, &t.ApprovedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *postgresTeamRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Team, error) {
	query := `SELECT id, name, tournament_id, status, created_at, approved_at FROM teams WHERE id = $1`
	team, err := r.scanTeam(executor(r.db, exec).QueryRowContext(ctx, query, id))
	if err != nil && !errors.Is(err, ErrTeamNotFound) {
		return nil, fmt.Errorf("failed to scan team %d: %w", id, err)
	}
	return team, err
}

func (r *postgresTeamRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, status *models.TeamStatus) ([]*models.Team, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`
		SELECT id, name, tournament_id, status, created_at, approved_at
		FROM teams
		WHERE tournament_id = $1`)
	args := []interface{}{tournamentID}
	if status != nil {
		queryBuilder.WriteString(" AND status = $2")
		args = append(args, *status)
	}
	queryBuilder.WriteString(" ORDER BY COALESCE(approved_at, created_at) ASC, id ASC")

	rows, err := executor(r.db, exec).QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query teams of tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	teams := make([]*models.Team, 0)
	for rows.Next() {
		team, err := r.scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan team row: %w", err)
		}
		teams = append(teams, team)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during team rows iteration: %w", err)
	}
	return teams, nil
}

func (r *postgresTeamRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TeamStatus) error {
	query := `
		UPDATE teams
		SET status = $1,
		    approved_at = CASE WHEN $2 THEN NOW() ELSE approved_at END
		WHERE id = $3`
	result, err := executor(r.db, exec).ExecContext(ctx, query, status, status == models.TeamStatusApproved, id)
	if err != nil {
		return fmt.Errorf("failed to update status of team %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}
