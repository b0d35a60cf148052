package models

import "time"

type RoundStatus string

const (
	RoundStatusOpen      RoundStatus = "open"
	RoundStatusCompleted RoundStatus = "completed"
)

// BracketRound holds the completion flag of one round so that advancing to the
// next round is a single conditional write.
type BracketRound struct {
	ID           int         `json:"id" db:"id"`
	TournamentID int         `json:"tournament_id" db:"tournament_id"`
	PhaseType    PhaseType   `json:"phase_type" db:"phase_type"`
	RoundKey     string      `json:"round_key" db:"round_key"`
	Status       RoundStatus `json:"status" db:"status"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
	CompletedAt  *time.Time  `json:"completed_at,omitempty" db:"completed_at"`
}
