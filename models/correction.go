package models

import (
	"time"

	"github.com/google/uuid"
)

type CorrectionJob string

const (
	JobPositionalBonus      CorrectionJob = "positional_bonus"
	JobChampionshipBackfill CorrectionJob = "championship_backfill"
	JobFormatCleanup        CorrectionJob = "format_cleanup"
)

// CorrectionRun records one execution of a correction job. A run with an
// IdempotencyKey blocks later runs of the same job with the same key.
type CorrectionRun struct {
	ID             uuid.UUID     `json:"id" db:"id"`
	Job            CorrectionJob `json:"job" db:"job"`
	IdempotencyKey *string       `json:"idempotency_key,omitempty" db:"idempotency_key"`
	AffectedTeams  int           `json:"affected_teams" db:"affected_teams"`
	AppliedAt      time.Time     `json:"applied_at" db:"applied_at"`
}
