package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/tournament-ranking/models"
)

var (
	ErrCorrectionRunNotFound = errors.New("correction run not found")
	ErrCorrectionRunConflict = errors.New("correction run with this key already applied")
)

type CorrectionRunRepository interface {
	GetByKey(ctx context.Context, exec SQLExecutor, job models.CorrectionJob, key string) (*models.CorrectionRun, error)
	Create(ctx context.Context, exec SQLExecutor, run *models.CorrectionRun) error
}

type postgresCorrectionRunRepository struct {
	db *sql.DB
}

func NewPostgresCorrectionRunRepository(db *sql.DB) CorrectionRunRepository {
	return &postgresCorrectionRunRepository{db: db}
}

func (r *postgresCorrectionRunRepository) GetByKey(ctx context.Context, exec SQLExecutor, job models.CorrectionJob, key string) (*models.CorrectionRun, error) {
	query := `
		SELECT id, job, idempotency_key, affected_teams, applied_at
		FROM correction_runs
		WHERE job = $1 AND idempotency_key = $2`

	var run models.CorrectionRun
	err := executor(r.db, exec).QueryRowContext(ctx, query, job, key).Scan(
		&run.ID, &run.Job, &run.IdempotencyKey, &run.AffectedTeams, &run.AppliedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCorrectionRunNotFound
		}
		return nil, fmt.Errorf("failed to scan correction run %s/%s: %w", job, key, err)
	}
	return &run, nil
}

func (r *postgresCorrectionRunRepository) Create(ctx context.Context, exec SQLExecutor, run *models.CorrectionRun) error {
	query := `
		INSERT INTO correction_runs (id, job, idempotency_key, affected_teams)
		VALUES ($1, $2, $3, $4)
		RETURNING applied_at`
	err := executor(r.db, exec).QueryRowContext(ctx, query,
		run.ID, run.Job, run.IdempotencyKey, run.AffectedTeams,
	).Scan(&run.AppliedAt)
	if err != nil {
		if isUniqueViolation(err, "idx_correction_runs_job_key") {
			return ErrCorrectionRunConflict
		}
		return fmt.Errorf("failed to record correction run %s: %w", run.Job, err)
	}
	return nil
}
