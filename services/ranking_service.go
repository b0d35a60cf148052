package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Dosada05/tournament-ranking/metrics"
	"github.com/Dosada05/tournament-ranking/models"
	"github.com/Dosada05/tournament-ranking/repositories"
)

// Points credited for match results.
const (
	VictoryPoints     = 10
	FinalBonus        = 100
	SemiFinalBonus    = 50
	QuarterFinalBonus = 25
)

// PhaseBonus is the extra credit for winning a match of the given phase.
// Swiss matches carry no phase and get none.
func PhaseBonus(phase *models.EliminationPhase) int {
	if phase == nil {
		return 0
	}
	switch *phase {
	case models.PhaseFinal:
		return FinalBonus
	case models.PhaseSemiFinals:
		return SemiFinalBonus
	case models.PhaseQuarterFinals:
		return QuarterFinalBonus
	default:
		return 0
	}
}

type RankingUpdate struct {
	WinnerID      int  `json:"winner_id"`
	LoserID       int  `json:"loser_id"`
	PointsAwarded int  `json:"points_awarded"`
	WinnerCreated bool `json:"winner_created"`
	LoserCreated  bool `json:"loser_created"`
}

type RankingService interface {
	// ApplyMatchResult credits a decided match to the ledger inside the
	// caller's transaction.
	ApplyMatchResult(ctx context.Context, exec repositories.SQLExecutor, winnerID, loserID int, phase *models.EliminationPhase) (*RankingUpdate, error)
	ListRankings(ctx context.Context, group *models.FormatGroup) ([]*models.RankingEntry, error)
	GetTeamRanking(ctx context.Context, teamID int) (*models.RankingEntry, error)
}

type rankingService struct {
	rankingRepo repositories.RankingRepository
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

func NewRankingService(rankingRepo repositories.RankingRepository, m *metrics.Metrics, logger *slog.Logger) RankingService {
	return &rankingService{rankingRepo: rankingRepo, metrics: m, logger: logger}
}

func (s *rankingService) ApplyMatchResult(ctx context.Context, exec repositories.SQLExecutor, winnerID, loserID int, phase *models.EliminationPhase) (*RankingUpdate, error) {
	update := &RankingUpdate{
		WinnerID:      winnerID,
		LoserID:       loserID,
		PointsAwarded: VictoryPoints + PhaseBonus(phase),
	}

	// New rows start with tournaments_played = 1; existing rows keep theirs.
	created, err := s.rankingRepo.Ensure(ctx, exec, winnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare ranking of winner %d: %w", winnerID, err)
	}
	update.WinnerCreated = created
	if err := s.rankingRepo.AddResult(ctx, exec, winnerID, update.PointsAwarded, 1, 0); err != nil {
		return nil, fmt.Errorf("failed to credit winner %d: %w", winnerID, err)
	}

	created, err = s.rankingRepo.Ensure(ctx, exec, loserID)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare ranking of loser %d: %w", loserID, err)
	}
	update.LoserCreated = created
	if err := s.rankingRepo.AddResult(ctx, exec, loserID, 0, 0, 1); err != nil {
		return nil, fmt.Errorf("failed to record loss of team %d: %w", loserID, err)
	}

	s.metrics.PointsAwarded(update.PointsAwarded)
	s.logger.InfoContext(ctx, "ranking updated",
		slog.Int("winner_id", winnerID),
		slog.Int("loser_id", loserID),
		slog.Int("points_awarded", update.PointsAwarded),
	)
	return update, nil
}

func (s *rankingService) ListRankings(ctx context.Context, group *models.FormatGroup) ([]*models.RankingEntry, error) {
	if group != nil && !group.Valid() {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, ErrInvalidFormatGroup)
	}
	entries, err := s.rankingRepo.List(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list rankings: %w", err)
	}
	if group == nil {
		return entries, nil
	}
	filtered := make([]*models.RankingEntry, 0, len(entries))
	for _, e := range entries {
		if models.GroupForFormat(e.Format) == *group {
			filtered = append(filtered, e)
		}
	}
	return filtered, nil
}

func (s *rankingService) GetTeamRanking(ctx context.Context, teamID int) (*models.RankingEntry, error) {
	entry, err := s.rankingRepo.GetByTeamID(ctx, nil, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrRankingNotFound) {
			return nil, fmt.Errorf("%w: ranking of team %d", ErrNotFound, teamID)
		}
		return nil, err
	}
	return entry, nil
}
