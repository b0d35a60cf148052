package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/tournament-ranking/models"
)

var (
	ErrRoundNotFound      = errors.New("bracket round not found")
	ErrRoundAlreadyExists = errors.New("matches already exist for this round")
)

type RoundRepository interface {
	Create(ctx context.Context, exec SQLExecutor, round *models.BracketRound) error
	GetForUpdate(ctx context.Context, exec SQLExecutor, tournamentID int, roundKey string) (*models.BracketRound, error)
	// MarkCompleted flips an open round to completed. Only one caller ever
	// observes true for a given round.
	MarkCompleted(ctx context.Context, exec SQLExecutor, id int) (bool, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.BracketRound, error)
	DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int64, error)
}

type postgresRoundRepository struct {
	db *sql.DB
}

func NewPostgresRoundRepository(db *sql.DB) RoundRepository {
	return &postgresRoundRepository{db: db}
}

func (r *postgresRoundRepository) Create(ctx context.Context, exec SQLExecutor, round *models.BracketRound) error {
	if round.Status == "" {
		round.Status = models.RoundStatusOpen
	}
	query := `
		INSERT INTO bracket_rounds (tournament_id, phase_type, round_key, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := executor(r.db, exec).QueryRowContext(ctx, query,
		round.TournamentID, round.PhaseType, round.RoundKey, round.Status,
	).Scan(&round.ID, &round.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, "bracket_rounds_tournament_round_key") {
			return ErrRoundAlreadyExists
		}
		return fmt.Errorf("failed to create round %s: %w", round.RoundKey, err)
	}
	return nil
}

func (r *postgresRoundRepository) scanRound(row rowScanner) (*models.BracketRound, error) {
	var round models.BracketRound
	err := row.Scan(&round.ID, &round.TournamentID, &round.PhaseType, &round.RoundKey,
		&round.Status, &round.CreatedAt, &round.CompletedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoundNotFound
		}
		return nil, err
	}
	return &round, nil
}

func (r *postgresRoundRepository) GetForUpdate(ctx context.Context, exec SQLExecutor, tournamentID int, roundKey string) (*models.BracketRound, error) {
	query := `
		SELECT id, tournament_id, phase_type, round_key, status, created_at, completed_at
		FROM bracket_rounds
		WHERE tournament_id = $1 AND round_key = $2
		FOR UPDATE`
	round, err := r.scanRound(executor(r.db, exec).QueryRowContext(ctx, query, tournamentID, roundKey))
	if err != nil && !errors.Is(err, ErrRoundNotFound) {
		return nil, fmt.Errorf("failed to lock round %s: %w", roundKey, err)
	}
	return round, err
}

func (r *postgresRoundRepository) MarkCompleted(ctx context.Context, exec SQLExecutor, id int) (bool, error) {
	query := `
		UPDATE bracket_rounds
		SET status = $1, completed_at = NOW()
		WHERE id = $2 AND status = $3`
	result, err := executor(r.db, exec).ExecContext(ctx, query, models.RoundStatusCompleted, id, models.RoundStatusOpen)
	if err != nil {
		return false, fmt.Errorf("failed to complete round %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check affected rows: %w", err)
	}
	return affected == 1, nil
}

func (r *postgresRoundRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.BracketRound, error) {
	query := `
		SELECT id, tournament_id, phase_type, round_key, status, created_at, completed_at
		FROM bracket_rounds
		WHERE tournament_id = $1
		ORDER BY created_at ASC, id ASC`
	rows, err := executor(r.db, exec).QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rounds of tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	rounds := make([]*models.BracketRound, 0)
	for rows.Next() {
		round, err := r.scanRound(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan round row: %w", err)
		}
		rounds = append(rounds, round)
	}
	return rounds, rows.Err()
}

func (r *postgresRoundRepository) DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int64, error) {
	result, err := executor(r.db, exec).ExecContext(ctx, `DELETE FROM bracket_rounds WHERE tournament_id = $1`, tournamentID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete rounds of tournament %d: %w", tournamentID, err)
	}
	return result.RowsAffected()
}
