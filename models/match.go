package models

import (
	"fmt"
	"time"
)

type MatchStatus string

const (
	MatchStatusPending    MatchStatus = "pending"
	MatchStatusInProgress MatchStatus = "in_progress"
	MatchStatusCompleted  MatchStatus = "completed"
)

// PhaseType separates the swiss stage from the knockout stage of a tournament.
type PhaseType string

const (
	PhaseTypeSwiss       PhaseType = "swiss"
	PhaseTypeElimination PhaseType = "elimination"
)

func (p PhaseType) Valid() bool {
	return p == PhaseTypeSwiss || p == PhaseTypeElimination
}

type EliminationPhase string

const (
	PhaseRoundOf16     EliminationPhase = "roundOf16"
	PhaseQuarterFinals EliminationPhase = "quarterFinals"
	PhaseSemiFinals    EliminationPhase = "semiFinals"
	PhaseFinal         EliminationPhase = "final"
)

var eliminationOrder = []EliminationPhase{PhaseRoundOf16, PhaseQuarterFinals, PhaseSemiFinals, PhaseFinal}

func (p EliminationPhase) Valid() bool {
	for _, known := range eliminationOrder {
		if p == known {
			return true
		}
	}
	return false
}

// Next returns the phase the winner advances into. ok is false after the final.
func (p EliminationPhase) Next() (next EliminationPhase, ok bool) {
	for i, known := range eliminationOrder {
		if p == known && i+1 < len(eliminationOrder) {
			return eliminationOrder[i+1], true
		}
	}
	return "", false
}

// Prev returns the phase that feeds this one. ok is false for the round of 16.
func (p EliminationPhase) Prev() (prev EliminationPhase, ok bool) {
	for i, known := range eliminationOrder {
		if p == known && i > 0 {
			return eliminationOrder[i-1], true
		}
	}
	return "", false
}

// Index is the position of the phase in the knockout ladder, used for the
// cosmetic schedule offset.
func (p EliminationPhase) Index() int {
	for i, known := range eliminationOrder {
		if p == known {
			return i
		}
	}
	return 0
}

type Match struct {
	ID             int               `json:"id" db:"id"`
	TournamentID   int               `json:"tournament_id" db:"tournament_id"`
	PhaseType      PhaseType         `json:"phase_type" db:"phase_type"`
	SwissRound     *int              `json:"swiss_round,omitempty" db:"swiss_round"`
	Phase          *EliminationPhase `json:"phase,omitempty" db:"phase"`
	MatchOrder     int               `json:"match_order" db:"match_order"`
	Team1ID        *int              `json:"team1_id,omitempty" db:"team1_id"`
	Team2ID        *int              `json:"team2_id,omitempty" db:"team2_id"`
	Score1         *int              `json:"score1,omitempty" db:"score1"`
	Score2         *int              `json:"score2,omitempty" db:"score2"`
	WinnerID       *int              `json:"winner_id,omitempty" db:"winner_id"`
	Status         MatchStatus       `json:"status" db:"status"`
	ScheduledAt    *time.Time        `json:"scheduled_at,omitempty" db:"scheduled_at"`
	RankingApplied bool              `json:"-" db:"ranking_applied"`
	CreatedAt      time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at" db:"updated_at"`

	Team1 *Team `json:"team1,omitempty" db:"-"`
	Team2 *Team `json:"team2,omitempty" db:"-"`
}

// RoundKey identifies the round a match belongs to within its tournament.
func (m *Match) RoundKey() string {
	switch m.PhaseType {
	case PhaseTypeSwiss:
		if m.SwissRound != nil {
			return SwissRoundKey(*m.SwissRound)
		}
	case PhaseTypeElimination:
		if m.Phase != nil {
			return EliminationRoundKey(*m.Phase)
		}
	}
	return ""
}

// LoserID is the opposite slot of the winner, nil when there is no winner.
func (m *Match) LoserID() *int {
	if m.WinnerID == nil || m.Team1ID == nil || m.Team2ID == nil {
		return nil
	}
	if *m.WinnerID == *m.Team1ID {
		return m.Team2ID
	}
	return m.Team1ID
}

// WinnerScore is the score the winner posted in this match.
func (m *Match) WinnerScore() int {
	if m.WinnerID == nil || m.Score1 == nil || m.Score2 == nil {
		return 0
	}
	if m.Team1ID != nil && *m.WinnerID == *m.Team1ID {
		return *m.Score1
	}
	return *m.Score2
}

func SwissRoundKey(round int) string {
	return fmt.Sprintf("%s:%d", PhaseTypeSwiss, round)
}

func EliminationRoundKey(phase EliminationPhase) string {
	return fmt.Sprintf("%s:%s", PhaseTypeElimination, phase)
}
