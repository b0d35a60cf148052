package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Dosada05/tournament-ranking/brackets"
	"github.com/Dosada05/tournament-ranking/models"
	"github.com/Dosada05/tournament-ranking/repositories"
)

// roundSelector identifies a round to be created: a swiss round number or an
// elimination phase.
type roundSelector struct {
	TournamentID int
	PhaseType    models.PhaseType
	SwissRound   *int
	Phase        *models.EliminationPhase
}

func (s roundSelector) template(order int) *models.Match {
	return &models.Match{
		TournamentID: s.TournamentID,
		PhaseType:    s.PhaseType,
		SwissRound:   s.SwissRound,
		Phase:        s.Phase,
		MatchOrder:   order,
		Status:       models.MatchStatusPending,
	}
}

func (s roundSelector) Key() string {
	return s.template(0).RoundKey()
}

// offset is the cosmetic scheduling distance of the round in days.
func (s roundSelector) offset() int {
	if s.SwissRound != nil {
		return *s.SwissRound
	}
	if s.Phase != nil {
		return s.Phase.Index() + 1
	}
	return 0
}

// parseRoundSelector reads the round selector: a swiss round number >= 1 or an
// elimination phase name.
func parseRoundSelector(tournamentID int, phaseType models.PhaseType, round string) (roundSelector, error) {
	sel := roundSelector{TournamentID: tournamentID, PhaseType: phaseType}
	switch phaseType {
	case models.PhaseTypeSwiss:
		n, err := strconv.Atoi(round)
		if err != nil || n < 1 {
			return sel, fmt.Errorf("%w: swiss round must be an integer >= 1, got %q", ErrInvalidRound, round)
		}
		sel.SwissRound = &n
	case models.PhaseTypeElimination:
		phase := models.EliminationPhase(round)
		if !phase.Valid() {
			return sel, fmt.Errorf("%w: unknown elimination phase %q", ErrInvalidRound, round)
		}
		sel.Phase = &phase
	default:
		return sel, fmt.Errorf("%w: got %q", ErrInvalidPhaseType, phaseType)
	}
	return sel, nil
}

// persistRound creates the round row and one pending match per pairing. It
// must run inside the caller's transaction.
func persistRound(
	ctx context.Context,
	exec repositories.SQLExecutor,
	matchRepo repositories.MatchRepository,
	roundRepo repositories.RoundRepository,
	sel roundSelector,
	pairings []brackets.Pairing,
	now time.Time,
) ([]*models.Match, error) {
	round := &models.BracketRound{
		TournamentID: sel.TournamentID,
		PhaseType:    sel.PhaseType,
		RoundKey:     sel.Key(),
		Status:       models.RoundStatusOpen,
	}
	if err := roundRepo.Create(ctx, exec, round); err != nil {
		return nil, mapRepositoryError(err)
	}

	scheduledAt := now.AddDate(0, 0, sel.offset())
	created := make([]*models.Match, 0, len(pairings))
	for _, p := range pairings {
		team1, team2 := p.Team1ID, p.Team2ID
		match := sel.template(p.MatchOrder)
		match.Team1ID = &team1
		match.Team2ID = &team2
		match.ScheduledAt = &scheduledAt
		if err := matchRepo.Create(ctx, exec, match); err != nil {
			return nil, fmt.Errorf("failed to create match %d of round %s: %w", p.MatchOrder, sel.Key(), mapRepositoryError(err))
		}
		created = append(created, match)
	}
	return created, nil
}

// lockRound locks the round row of a key, creating it first for matches that
// predate round tracking.
func lockRound(
	ctx context.Context,
	exec repositories.SQLExecutor,
	roundRepo repositories.RoundRepository,
	tournamentID int,
	phaseType models.PhaseType,
	roundKey string,
) (*models.BracketRound, error) {
	round, err := roundRepo.GetForUpdate(ctx, exec, tournamentID, roundKey)
	if err == nil {
		return round, nil
	}
	if !errors.Is(err, repositories.ErrRoundNotFound) {
		return nil, err
	}
	round = &models.BracketRound{
		TournamentID: tournamentID,
		PhaseType:    phaseType,
		RoundKey:     roundKey,
		Status:       models.RoundStatusOpen,
	}
	if err := roundRepo.Create(ctx, exec, round); err != nil {
		return nil, mapRepositoryError(err)
	}
	return roundRepo.GetForUpdate(ctx, exec, tournamentID, roundKey)
}

// mapRepositoryError translates storage errors into service errors, keeping
// the original in the chain.
func mapRepositoryError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrMatchNotFound):
		return fmt.Errorf("%w: %w", ErrMatchNotFound, err)
	case errors.Is(err, repositories.ErrTeamNotFound):
		return fmt.Errorf("%w: %w", ErrTeamNotFound, err)
	case errors.Is(err, repositories.ErrTournamentNotFound):
		return fmt.Errorf("%w: %w", ErrTournamentNotFound, err)
	case errors.Is(err, repositories.ErrRoundAlreadyExists),
		errors.Is(err, repositories.ErrMatchOrderConflict):
		return fmt.Errorf("%w: %w", ErrRoundAlreadyExists, err)
	case errors.Is(err, repositories.ErrCorrectionRunConflict):
		return fmt.Errorf("%w: %w", ErrCorrectionRunConflict, err)
	default:
		return err
	}
}

func intPtr(v int) *int {
	return &v
}

func sameTeam(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
