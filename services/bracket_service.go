package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/tournament-ranking/brackets"
	"github.com/Dosada05/tournament-ranking/metrics"
	"github.com/Dosada05/tournament-ranking/models"
	"github.com/Dosada05/tournament-ranking/repositories"
	"golang.org/x/sync/errgroup"
)

type GenerateBracketInput struct {
	PhaseType models.PhaseType `json:"phase_type"`
	Round     string           `json:"round"`
}

type GenerateBracketResult struct {
	RoundKey       string          `json:"round_key"`
	Matches        []*models.Match `json:"matches"`
	UnpairedTeamID *int            `json:"unpaired_team_id,omitempty"`
	Message        string          `json:"message"`
}

type DeleteMatchesResult struct {
	DeletedMatches int64  `json:"deleted_matches"`
	DeletedRounds  int64  `json:"deleted_rounds"`
	Message        string `json:"message"`
}

type BracketService interface {
	GenerateInitialBracket(ctx context.Context, tournamentID int, input GenerateBracketInput) (*GenerateBracketResult, error)
	DeleteAllMatches(ctx context.Context, tournamentID int) (*DeleteMatchesResult, error)
	GetBracket(ctx context.Context, tournamentID int) (*models.Tournament, error)
}

type bracketService struct {
	tx             repositories.TxManager
	tournamentRepo repositories.TournamentRepository
	teamRepo       repositories.TeamRepository
	matchRepo      repositories.MatchRepository
	roundRepo      repositories.RoundRepository
	revalidator    Revalidator
	metrics        *metrics.Metrics
	logger         *slog.Logger
	now            func() time.Time
}

func NewBracketService(
	tx repositories.TxManager,
	tournamentRepo repositories.TournamentRepository,
	teamRepo repositories.TeamRepository,
	matchRepo repositories.MatchRepository,
	roundRepo repositories.RoundRepository,
	revalidator Revalidator,
	m *metrics.Metrics,
	logger *slog.Logger,
) BracketService {
	return &bracketService{
		tx:             tx,
		tournamentRepo: tournamentRepo,
		teamRepo:       teamRepo,
		matchRepo:      matchRepo,
		roundRepo:      roundRepo,
		revalidator:    revalidatorOrNoop(revalidator),
		metrics:        m,
		logger:         logger,
		now:            time.Now,
	}
}

func (s *bracketService) GenerateInitialBracket(ctx context.Context, tournamentID int, input GenerateBracketInput) (*GenerateBracketResult, error) {
	sel, err := parseRoundSelector(tournamentID, input.PhaseType, input.Round)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}

	if _, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID); err != nil {
		return nil, mapRepositoryError(err)
	}

	approved := models.TeamStatusApproved
	teams, err := s.teamRepo.ListByTournament(ctx, nil, tournamentID, &approved)
	if err != nil {
		return nil, fmt.Errorf("failed to list approved teams for tournament %d: %w", tournamentID, err)
	}
	if len(teams) < 2 {
		return nil, fmt.Errorf("%w (found %d)", ErrNotEnoughTeams, len(teams))
	}
	teamIDs := make([]int, len(teams))
	for i, t := range teams {
		teamIDs[i] = t.ID
	}

	generator, err := brackets.NewGenerator(input.PhaseType)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}
	pairing, err := generator.Pair(teamIDs)
	if err != nil {
		if errors.Is(err, brackets.ErrNotEnoughTeams) {
			return nil, ErrNotEnoughTeams
		}
		return nil, fmt.Errorf("failed to pair teams: %w", err)
	}

	s.logger.InfoContext(ctx, "generating bracket round",
		slog.Int("tournament_id", tournamentID),
		slog.String("generator", generator.GetName()),
		slog.String("round_key", sel.Key()),
		slog.Int("teams", len(teamIDs)),
	)

	var created []*models.Match
	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		existing, err := s.matchRepo.CountByRound(ctx, exec, tournamentID, sel.Key())
		if err != nil {
			return err
		}
		if existing > 0 {
			return fmt.Errorf("%w (%d matches in %s)", ErrRoundAlreadyExists, existing, sel.Key())
		}
		created, err = persistRound(ctx, exec, s.matchRepo, s.roundRepo, sel, pairing.Pairings, s.now())
		return err
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "bracket generation failed",
			slog.Int("tournament_id", tournamentID),
			slog.String("round_key", sel.Key()),
			slog.Any("error", err),
		)
		return nil, err
	}

	s.metrics.RoundGenerated(string(sel.PhaseType), "manual")
	s.revalidator.Revalidate(ctx, brackets.TournamentRoom(tournamentID))

	result := &GenerateBracketResult{
		RoundKey:       sel.Key(),
		Matches:        created,
		UnpairedTeamID: pairing.UnpairedTeamID,
		Message:        fmt.Sprintf("Generated %d matches for %s", len(created), sel.Key()),
	}
	if pairing.UnpairedTeamID != nil {
		result.Message += fmt.Sprintf("; team %d has no opponent this round", *pairing.UnpairedTeamID)
	}
	return result, nil
}

func (s *bracketService) DeleteAllMatches(ctx context.Context, tournamentID int) (*DeleteMatchesResult, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID); err != nil {
		return nil, mapRepositoryError(err)
	}

	result := &DeleteMatchesResult{}
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		var err error
		if result.DeletedMatches, err = s.matchRepo.DeleteByTournament(ctx, exec, tournamentID); err != nil {
			return err
		}
		result.DeletedRounds, err = s.roundRepo.DeleteByTournament(ctx, exec, tournamentID)
		return err
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to delete matches", slog.Int("tournament_id", tournamentID), slog.Any("error", err))
		return nil, err
	}

	s.logger.InfoContext(ctx, "matches deleted",
		slog.Int("tournament_id", tournamentID),
		slog.Int64("matches", result.DeletedMatches),
		slog.Int64("rounds", result.DeletedRounds),
	)
	s.revalidator.Revalidate(ctx, brackets.TournamentRoom(tournamentID))
	result.Message = fmt.Sprintf("Deleted %d matches", result.DeletedMatches)
	return result, nil
}

// GetBracket loads everything a bracket view needs. The reads are independent
// and run concurrently.
func (s *bracketService) GetBracket(ctx context.Context, tournamentID int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		return nil, mapRepositoryError(err)
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		teams, err := s.teamRepo.ListByTournament(gCtx, nil, tournamentID, nil)
		if err != nil {
			return fmt.Errorf("failed to fetch teams: %w", err)
		}
		tournament.Teams = make([]models.Team, 0, len(teams))
		for _, t := range teams {
			if t != nil {
				tournament.Teams = append(tournament.Teams, *t)
			}
		}
		return nil
	})

	g.Go(func() error {
		matches, err := s.matchRepo.ListByTournament(gCtx, nil, tournamentID, repositories.MatchFilter{})
		if err != nil {
			return fmt.Errorf("failed to fetch matches: %w", err)
		}
		tournament.Matches = make([]models.Match, 0, len(matches))
		for _, m := range matches {
			if m != nil {
				tournament.Matches = append(tournament.Matches, *m)
			}
		}
		return nil
	})

	g.Go(func() error {
		rounds, err := s.roundRepo.ListByTournament(gCtx, nil, tournamentID)
		if err != nil {
			return fmt.Errorf("failed to fetch rounds: %w", err)
		}
		tournament.Rounds = make([]models.BracketRound, 0, len(rounds))
		for _, r := range rounds {
			if r != nil {
				tournament.Rounds = append(tournament.Rounds, *r)
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load bracket of tournament %d: %w", tournamentID, err)
	}
	return tournament, nil
}
