package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/tournament-ranking/models"
	"github.com/lib/pq"
)

var (
	ErrRankingNotFound    = errors.New("ranking entry not found")
	ErrRankingTeamInvalid = errors.New("ranking team conflict or invalid")
)

type RankingRepository interface {
	GetByTeamID(ctx context.Context, exec SQLExecutor, teamID int) (*models.RankingEntry, error)
	// Ensure creates the ledger row of a team if it is missing and reports
	// whether it did.
	Ensure(ctx context.Context, exec SQLExecutor, teamID int) (bool, error)
	AddResult(ctx context.Context, exec SQLExecutor, teamID, points, wins, losses int) error
	AddPoints(ctx context.Context, exec SQLExecutor, teamID, points int) error
	List(ctx context.Context, exec SQLExecutor) ([]*models.RankingEntry, error)
	DeleteByTeamIDs(ctx context.Context, exec SQLExecutor, teamIDs []int) (int64, error)
}

type postgresRankingRepository struct {
	db *sql.DB
}

func NewPostgresRankingRepository(db *sql.DB) RankingRepository {
	return &postgresRankingRepository{db: db}
}

func (r *postgresRankingRepository) GetByTeamID(ctx context.Context, exec SQLExecutor, teamID int) (*models.RankingEntry, error) {
	query := `
		SELECT r.id, r.team_id, r.points, r.wins, r.losses, r.tournaments_played, r.last_updated,
		       t.name, tr.format
		FROM team_rankings r
		JOIN teams t ON t.id = r.team_id
		JOIN tournaments tr ON tr.id = t.tournament_id
		WHERE r.team_id = $1`

	var e models.RankingEntry
	err := executor(r.db, exec).QueryRowContext(ctx, query, teamID).Scan(
		&e.ID, &e.TeamID, &e.Points, &e.Wins, &e.Losses, &e.TournamentsPlayed, &e.LastUpdated,
		&e.TeamName, &e.Format,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRankingNotFound
		}
		return nil, fmt.Errorf("failed to scan ranking of team %d: %w", teamID, err)
	}
	return &e, nil
}

func (r *postgresRankingRepository) Ensure(ctx context.Context, exec SQLExecutor, teamID int) (bool, error) {
	query := `
		INSERT INTO team_rankings (team_id, points, wins, losses, tournaments_played, last_updated)
		VALUES ($1, 0, 0, 0, 1, NOW())
		ON CONFLICT (team_id) DO NOTHING`

	result, err := executor(r.db, exec).ExecContext(ctx, query, teamID)
	if err != nil {
		if pqErr, ok := pgError(err); ok && pqErr.Constraint == "team_rankings_team_id_fkey" {
			return false, ErrRankingTeamInvalid
		}
		return false, fmt.Errorf("failed to ensure ranking of team %d: %w", teamID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check affected rows: %w", err)
	}
	return affected > 0, nil
}

// AddResult applies deltas in SQL so concurrent writers never lose an update.
// tournaments_played is deliberately left alone here.
func (r *postgresRankingRepository) AddResult(ctx context.Context, exec SQLExecutor, teamID, points, wins, losses int) error {
	query := `
		UPDATE team_rankings
		SET points = points + $1, wins = wins + $2, losses = losses + $3, last_updated = NOW()
		WHERE team_id = $4`

	result, err := executor(r.db, exec).ExecContext(ctx, query, points, wins, losses, teamID)
	if err != nil {
		return fmt.Errorf("failed to add result to ranking of team %d: %w", teamID, err)
	}
	return checkAffectedRows(result, ErrRankingNotFound)
}

func (r *postgresRankingRepository) AddPoints(ctx context.Context, exec SQLExecutor, teamID, points int) error {
	return r.AddResult(ctx, exec, teamID, points, 0, 0)
}

func (r *postgresRankingRepository) List(ctx context.Context, exec SQLExecutor) ([]*models.RankingEntry, error) {
	query := `
		SELECT r.id, r.team_id, r.points, r.wins, r.losses, r.tournaments_played, r.last_updated,
		       t.name, tr.format
		FROM team_rankings r
		JOIN teams t ON t.id = r.team_id
		JOIN tournaments tr ON tr.id = t.tournament_id
		ORDER BY r.points DESC, r.team_id ASC`

	rows, err := executor(r.db, exec).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query rankings: %w", err)
	}
	defer rows.Close()

	entries := make([]*models.RankingEntry, 0)
	for rows.Next() {
		var e models.RankingEntry
		if err := rows.Scan(
			&e.ID, &e.TeamID, &e.Points, &e.Wins, &e.Losses, &e.TournamentsPlayed, &e.LastUpdated,
			&e.TeamName, &e.Format,
		); err != nil {
			return nil, fmt.Errorf("failed to scan ranking row: %w", err)
		}
		entries = append(entries, &e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during ranking rows iteration: %w", err)
	}
	return entries, nil
}

func (r *postgresRankingRepository) DeleteByTeamIDs(ctx context.Context, exec SQLExecutor, teamIDs []int) (int64, error) {
	if len(teamIDs) == 0 {
		return 0, nil
	}
	ids := make([]int64, len(teamIDs))
	for i, id := range teamIDs {
		ids[i] = int64(id)
	}
	result, err := executor(r.db, exec).ExecContext(ctx, `DELETE FROM team_rankings WHERE team_id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("failed to delete rankings: %w", err)
	}
	return result.RowsAffected()
}
