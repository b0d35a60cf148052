package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Dosada05/tournament-ranking/models"
)

var (
	ErrMatchNotFound          = errors.New("match not found")
	ErrMatchTournamentInvalid = errors.New("match tournament conflict or invalid")
	ErrMatchTeamInvalid       = errors.New("match team conflict or invalid")
	ErrMatchOrderConflict     = errors.New("a match with this order already exists in the round")
)

const matchColumns = `
	id, tournament_id, phase_type, swiss_round, phase, match_order, team1_id, team2_id,
	score1, score2, winner_id, status, scheduled_at, ranking_applied, created_at, updated_at`

// MatchFilter narrows ListByTournament. Nil fields are not filtered on.
type MatchFilter struct {
	PhaseType *models.PhaseType
	RoundKey  *string
	Status    *models.MatchStatus
}

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, filter MatchFilter) ([]*models.Match, error)
	CountByRound(ctx context.Context, exec SQLExecutor, tournamentID int, roundKey string) (int, error)
	CountPendingByRound(ctx context.Context, exec SQLExecutor, tournamentID int, roundKey string) (int, error)
	FindByRoundAndOrder(ctx context.Context, exec SQLExecutor, tournamentID int, roundKey string, matchOrder int) (*models.Match, error)
	UpdateResult(ctx context.Context, exec SQLExecutor, id int, score1, score2 int, winnerID *int, status models.MatchStatus) error
	SetSlot(ctx context.Context, exec SQLExecutor, id int, slot int, teamID *int) error
	MarkRankingApplied(ctx context.Context, exec SQLExecutor, id int) error
	DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int64, error)
	ListFinalWinners(ctx context.Context, exec SQLExecutor, format string) ([]int, error)
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	query := `
		INSERT INTO matches
			(tournament_id, phase_type, swiss_round, phase, round_key, match_order,
			 team1_id, team2_id, score1, score2, winner_id, status, scheduled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at`

	if match.Status == "" {
		match.Status = models.MatchStatusPending
	}

	err := executor(r.db, exec).QueryRowContext(ctx, query,
		match.TournamentID,
		match.PhaseType,
		match.SwissRound,
		match.Phase,
		match.RoundKey(),
		match.MatchOrder,
		match.Team1ID,
		match.Team2ID,
		match.Score1,
		match.Score2,
		match.WinnerID,
		match.Status,
		match.ScheduledAt,
	).Scan(&match.ID, &match.CreatedAt, &match.UpdatedAt)

	return r.handleMatchError(err)
}

func (r *postgresMatchRepository) scanMatch(row rowScanner) (*models.Match, error) {
	var m models.Match
	err := row.Scan(
		&m.ID,
		&m.TournamentID,
		&m.PhaseType,
		&m.SwissRound,
		&m.Phase,
		&m.MatchOrder,
		&m.Team1ID,
		&m.Team2ID,
		&m.Score1,
		&m.Score2,
		&m.WinnerID,
		&m.Status,
		&m.ScheduledAt,
		&m.RankingApplied,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	query := `SELECT` + matchColumns + ` FROM matches WHERE id = $1`
	match, err := r.scanMatch(executor(r.db, exec).QueryRowContext(ctx, query, id))
	if err != nil && !errors.Is(err, ErrMatchNotFound) {
		return nil, fmt.Errorf("failed to scan match by id %d: %w", id, err)
	}
	return match, err
}

// GetByIDForUpdate locks the row until the surrounding transaction ends.
func (r *postgresMatchRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	query := `SELECT` + matchColumns + ` FROM matches WHERE id = $1 FOR UPDATE`
	match, err := r.scanMatch(executor(r.db, exec).QueryRowContext(ctx, query, id))
	if err != nil && !errors.Is(err, ErrMatchNotFound) {
		return nil, fmt.Errorf("failed to lock match %d: %w", id, err)
	}
	return match, err
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, filter MatchFilter) ([]*models.Match, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT` + matchColumns + ` FROM matches WHERE tournament_id = $1`)

	args := []interface{}{tournamentID}
	placeholderIndex := 2

	if filter.PhaseType != nil {
		queryBuilder.WriteString(" AND phase_type = $")
		queryBuilder.WriteString(strconv.Itoa(placeholderIndex))
		args = append(args, *filter.PhaseType)
		placeholderIndex++
	}
	if filter.RoundKey != nil {
		queryBuilder.WriteString(" AND round_key = $")
		queryBuilder.WriteString(strconv.Itoa(placeholderIndex))
		args = append(args, *filter.RoundKey)
		placeholderIndex++
	}
	if filter.Status != nil {
		queryBuilder.WriteString(" AND status = $")
		queryBuilder.WriteString(strconv.Itoa(placeholderIndex))
		args = append(args, *filter.Status)
	}

	queryBuilder.WriteString(" ORDER BY phase_type DESC, swiss_round ASC NULLS LAST, created_at ASC, match_order ASC")

	rows, err := executor(r.db, exec).QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		match, scanErr := r.scanMatch(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", scanErr)
		}
		matches = append(matches, match)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match rows iteration: %w", err)
	}
	return matches, nil
}

func (r *postgresMatchRepository) CountByRound(ctx context.Context, exec SQLExecutor, tournamentID int, roundKey string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM matches WHERE tournament_id = $1 AND round_key = $2`
	if err := executor(r.db, exec).QueryRowContext(ctx, query, tournamentID, roundKey).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count matches in round %s: %w", roundKey, err)
	}
	return count, nil
}

func (r *postgresMatchRepository) CountPendingByRound(ctx context.Context, exec SQLExecutor, tournamentID int, roundKey string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM matches WHERE tournament_id = $1 AND round_key = $2 AND status <> $3`
	err := executor(r.db, exec).QueryRowContext(ctx, query, tournamentID, roundKey, models.MatchStatusCompleted).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unfinished matches in round %s: %w", roundKey, err)
	}
	return count, nil
}

func (r *postgresMatchRepository) FindByRoundAndOrder(ctx context.Context, exec SQLExecutor, tournamentID int, roundKey string, matchOrder int) (*models.Match, error) {
	query := `SELECT` + matchColumns + ` FROM matches WHERE tournament_id = $1 AND round_key = $2 AND match_order = $3 FOR UPDATE`
	return r.scanMatch(executor(r.db, exec).QueryRowContext(ctx, query, tournamentID, roundKey, matchOrder))
}

func (r *postgresMatchRepository) UpdateResult(ctx context.Context, exec SQLExecutor, id int, score1, score2 int, winnerID *int, status models.MatchStatus) error {
	query := `
		UPDATE matches
		SET score1 = $1, score2 = $2, winner_id = $3, status = $4, updated_at = NOW()
		WHERE id = $5`

	result, err := executor(r.db, exec).ExecContext(ctx, query, score1, score2, winnerID, status, id)
	if err != nil {
		return r.handleMatchError(err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

// SetSlot writes a team into slot 1 or 2 of a match. A nil team empties the slot.
func (r *postgresMatchRepository) SetSlot(ctx context.Context, exec SQLExecutor, id int, slot int, teamID *int) error {
	var query string
	switch slot {
	case 1:
		query = `UPDATE matches SET team1_id = $1, updated_at = NOW() WHERE id = $2`
	case 2:
		query = `UPDATE matches SET team2_id = $1, updated_at = NOW() WHERE id = $2`
	default:
		return fmt.Errorf("SetSlot: invalid slot %d for match %d", slot, id)
	}
	result, err := executor(r.db, exec).ExecContext(ctx, query, teamID, id)
	if err != nil {
		return r.handleMatchError(err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) MarkRankingApplied(ctx context.Context, exec SQLExecutor, id int) error {
	query := `UPDATE matches SET ranking_applied = TRUE WHERE id = $1`
	result, err := executor(r.db, exec).ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("MarkRankingApplied: failed for match %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int64, error) {
	result, err := executor(r.db, exec).ExecContext(ctx, `DELETE FROM matches WHERE tournament_id = $1`, tournamentID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete matches of tournament %d: %w", tournamentID, err)
	}
	return result.RowsAffected()
}

// ListFinalWinners returns the distinct teams that won a completed final in a
// tournament of the given format.
func (r *postgresMatchRepository) ListFinalWinners(ctx context.Context, exec SQLExecutor, format string) ([]int, error) {
	query := `
		SELECT DISTINCT m.winner_id
		FROM matches m
		JOIN tournaments t ON t.id = m.tournament_id
		WHERE m.phase_type = $1 AND m.phase = $2 AND m.status = $3
		  AND m.winner_id IS NOT NULL AND t.format = $4
		ORDER BY m.winner_id`

	rows, err := executor(r.db, exec).QueryContext(ctx, query,
		models.PhaseTypeElimination, models.PhaseFinal, models.MatchStatusCompleted, format)
	if err != nil {
		return nil, fmt.Errorf("failed to query final winners for format %s: %w", format, err)
	}
	defer rows.Close()

	winners := make([]int, 0)
	for rows.Next() {
		var teamID int
		if err := rows.Scan(&teamID); err != nil {
			return nil, fmt.Errorf("failed to scan final winner: %w", err)
		}
		winners = append(winners, teamID)
	}
	return winners, rows.Err()
}

func (r *postgresMatchRepository) handleMatchError(err error) error {
	if err == nil {
		return nil
	}
	if isUniqueViolation(err, "matches_round_order_key") {
		return ErrMatchOrderConflict
	}
	if pqErr, ok := pgError(err); ok {
		switch pqErr.Constraint {
		case "matches_tournament_id_fkey":
			return ErrMatchTournamentInvalid
		case "matches_team1_id_fkey", "matches_team2_id_fkey", "matches_winner_id_fkey":
			return ErrMatchTeamInvalid
		}
	}
	return err
}
