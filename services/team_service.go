package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Dosada05/tournament-ranking/brackets"
	"github.com/Dosada05/tournament-ranking/models"
	"github.com/Dosada05/tournament-ranking/repositories"
)

type TeamService interface {
	ListTeams(ctx context.Context, tournamentID int, status *models.TeamStatus) ([]*models.Team, error)
	ChangeStatus(ctx context.Context, teamID int, status models.TeamStatus) (*models.Team, error)
}

type teamService struct {
	tournamentRepo repositories.TournamentRepository
	teamRepo       repositories.TeamRepository
	revalidator    Revalidator
	logger         *slog.Logger
}

func NewTeamService(
	tournamentRepo repositories.TournamentRepository,
	teamRepo repositories.TeamRepository,
	revalidator Revalidator,
	logger *slog.Logger,
) TeamService {
	return &teamService{
		tournamentRepo: tournamentRepo,
		teamRepo:       teamRepo,
		revalidator:    revalidatorOrNoop(revalidator),
		logger:         logger,
	}
}

func (s *teamService) ListTeams(ctx context.Context, tournamentID int, status *models.TeamStatus) ([]*models.Team, error) {
	if status != nil && !status.Valid() {
		return nil, fmt.Errorf("%w: %w: %q", ErrValidationFailed, ErrInvalidTeamStatus, *status)
	}
	if _, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID); err != nil {
		return nil, mapRepositoryError(err)
	}
	teams, err := s.teamRepo.ListByTournament(ctx, nil, tournamentID, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams of tournament %d: %w", tournamentID, err)
	}
	return teams, nil
}

// ChangeStatus moves a team through the approval workflow. Only approved
// teams are seeded into brackets.
func (s *teamService) ChangeStatus(ctx context.Context, teamID int, status models.TeamStatus) (*models.Team, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %w: %q", ErrValidationFailed, ErrInvalidTeamStatus, status)
	}

	team, err := s.teamRepo.GetByID(ctx, nil, teamID)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	if team.Status == status {
		return team, nil
	}
	if !isValidTeamTransition(team.Status, status) {
		return nil, fmt.Errorf("%w: from '%s' to '%s'", ErrTeamInvalidStatusTransition, team.Status, status)
	}

	if err := s.teamRepo.UpdateStatus(ctx, nil, teamID, status); err != nil {
		return nil, mapRepositoryError(err)
	}
	updated, err := s.teamRepo.GetByID(ctx, nil, teamID)
	if err != nil {
		return nil, mapRepositoryError(err)
	}

	s.logger.InfoContext(ctx, "team status changed",
		slog.Int("team_id", teamID),
		slog.String("from", string(team.Status)),
		slog.String("to", string(status)),
	)
	s.revalidator.Revalidate(ctx, brackets.TournamentRoom(team.TournamentID))
	return updated, nil
}

func isValidTeamTransition(current, next models.TeamStatus) bool {
	allowedTransitions := map[models.TeamStatus][]models.TeamStatus{
		models.TeamStatusPending:  {models.TeamStatusApproved, models.TeamStatusRejected},
		models.TeamStatusApproved: {models.TeamStatusExpelled},
		models.TeamStatusRejected: {models.TeamStatusApproved},
		models.TeamStatusExpelled: {},
	}
	for _, allowed := range allowedTransitions[current] {
		if next == allowed {
			return true
		}
	}
	return false
}
