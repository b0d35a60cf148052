package models

import "time"

type TeamStatus string

const (
	TeamStatusPending  TeamStatus = "pending"
	TeamStatusApproved TeamStatus = "approved"
	TeamStatusRejected TeamStatus = "rejected"
	TeamStatusExpelled TeamStatus = "expelled"
)

func (s TeamStatus) Valid() bool {
	switch s {
	case TeamStatusPending, TeamStatusApproved, TeamStatusRejected, TeamStatusExpelled:
		return true
	}
	return false
}

type Team struct {
	ID           int        `json:"id" db:"id"`
	Name         string     `json:"name" db:"name"`
	TournamentID int        `json:"tournament_id" db:"tournament_id"`
	Status       TeamStatus `json:"status" db:"status"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	ApprovedAt   *time.Time `json:"approved_at,omitempty" db:"approved_at"`
}
