package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Dosada05/tournament-ranking/brackets"
	"github.com/Dosada05/tournament-ranking/metrics"
	"github.com/Dosada05/tournament-ranking/models"
	"github.com/Dosada05/tournament-ranking/repositories"
	"github.com/google/uuid"
)

// Positional bonus credited to the top three of each format group.
var PositionalBonuses = []int{15, 10, 5}

const (
	ChampionshipBaseline = 40
	ChampionshipFormat   = "1v1"
)

// ExpectedChampionPoints is the floor a 1v1 champion is topped up to.
func ExpectedChampionPoints(wins int) int {
	return wins*VictoryPoints + ChampionshipBaseline
}

type CorrectionOptions struct {
	// IdempotencyKey makes a job run at most once per key. Empty means every
	// call applies the job again.
	IdempotencyKey string
}

type CorrectionResult struct {
	RunID          uuid.UUID              `json:"run_id"`
	Job            models.CorrectionJob   `json:"job"`
	AlreadyApplied bool                   `json:"already_applied"`
	Updated        []models.RankingChange `json:"updated,omitempty"`
	Deleted        []*models.RankingEntry `json:"deleted,omitempty"`
	ArchiveKey     string                 `json:"archive_key,omitempty"`
	Message        string                 `json:"message"`
}

// RankingArchiver stores a copy of ranking rows before they are deleted.
// Discard removes a copy whose deletion was rolled back.
type RankingArchiver interface {
	Archive(ctx context.Context, name, id string, payload any) (string, error)
	Discard(ctx context.Context, key string) error
}

type CorrectionService interface {
	AwardPositionalBonus(ctx context.Context, opts CorrectionOptions) (*CorrectionResult, error)
	BackfillChampionshipPoints(ctx context.Context, opts CorrectionOptions) (*CorrectionResult, error)
	DeleteNonStandardFormatRankings(ctx context.Context, opts CorrectionOptions) (*CorrectionResult, error)
}

type correctionService struct {
	tx          repositories.TxManager
	rankingRepo repositories.RankingRepository
	matchRepo   repositories.MatchRepository
	runRepo     repositories.CorrectionRunRepository
	archiver    RankingArchiver
	revalidator Revalidator
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// NewCorrectionService wires the maintenance jobs. archiver may be nil, in
// which case deleted rows are not archived.
func NewCorrectionService(
	tx repositories.TxManager,
	rankingRepo repositories.RankingRepository,
	matchRepo repositories.MatchRepository,
	runRepo repositories.CorrectionRunRepository,
	archiver RankingArchiver,
	revalidator Revalidator,
	m *metrics.Metrics,
	logger *slog.Logger,
) CorrectionService {
	return &correctionService{
		tx:          tx,
		rankingRepo: rankingRepo,
		matchRepo:   matchRepo,
		runRepo:     runRepo,
		archiver:    archiver,
		revalidator: revalidatorOrNoop(revalidator),
		metrics:     m,
		logger:      logger,
	}
}

// jobFunc does the work of one job inside the run's transaction and returns
// how many teams it touched.
type jobFunc func(exec repositories.SQLExecutor, result *CorrectionResult) (int, error)

func (s *correctionService) run(ctx context.Context, job models.CorrectionJob, opts CorrectionOptions, fn jobFunc) (*CorrectionResult, error) {
	result := &CorrectionResult{RunID: uuid.New(), Job: job}
	logger := s.logger.With(slog.String("job", string(job)), slog.String("run_id", result.RunID.String()))

	var key *string
	if opts.IdempotencyKey != "" {
		key = &opts.IdempotencyKey
		previous, err := s.runRepo.GetByKey(ctx, nil, job, opts.IdempotencyKey)
		switch {
		case err == nil:
			s.metrics.CorrectionRun(string(job), "skipped")
			logger.InfoContext(ctx, "correction already applied", slog.String("key", opts.IdempotencyKey))
			result.RunID = previous.ID
			result.AlreadyApplied = true
			result.Message = fmt.Sprintf("%s was already applied with key %q at %s", job, opts.IdempotencyKey, previous.AppliedAt.Format("2006-01-02 15:04:05"))
			return result, nil
		case !errors.Is(err, repositories.ErrCorrectionRunNotFound):
			return nil, err
		}
	}

	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		affected, err := fn(exec, result)
		if err != nil {
			return err
		}
		return s.runRepo.Create(ctx, exec, &models.CorrectionRun{
			ID:             result.RunID,
			Job:            job,
			IdempotencyKey: key,
			AffectedTeams:  affected,
		})
	})
	if err != nil {
		s.metrics.CorrectionRun(string(job), "failed")
		logger.ErrorContext(ctx, "correction job failed", slog.Any("error", err))
		s.discardArchive(ctx, logger, result.ArchiveKey)
		return nil, mapRepositoryError(err)
	}

	s.metrics.CorrectionRun(string(job), "applied")
	s.revalidator.Revalidate(ctx, brackets.RankingsRoom)
	logger.InfoContext(ctx, "correction job applied",
		slog.Int("updated", len(result.Updated)),
		slog.Int("deleted", len(result.Deleted)),
	)
	return result, nil
}

// discardArchive deletes the archive of a run that rolled back.
func (s *correctionService) discardArchive(ctx context.Context, logger *slog.Logger, key string) {
	if key == "" || s.archiver == nil {
		return
	}
	if err := s.archiver.Discard(ctx, key); err != nil {
		logger.ErrorContext(ctx, "failed to discard archive of rolled back run", slog.String("archive_key", key), slog.Any("error", err))
		return
	}
	logger.InfoContext(ctx, "archive of rolled back run discarded", slog.String("archive_key", key))
}

// AwardPositionalBonus adds 15/10/5 points to the top three ranking entries of
// every format group. Without an idempotency key a second run awards again.
func (s *correctionService) AwardPositionalBonus(ctx context.Context, opts CorrectionOptions) (*CorrectionResult, error) {
	return s.run(ctx, models.JobPositionalBonus, opts, func(exec repositories.SQLExecutor, result *CorrectionResult) (int, error) {
		entries, err := s.rankingRepo.List(ctx, exec)
		if err != nil {
			return 0, err
		}

		byGroup := make(map[models.FormatGroup][]*models.RankingEntry, len(models.FormatGroups))
		for _, e := range entries {
			g := models.GroupForFormat(e.Format)
			byGroup[g] = append(byGroup[g], e)
		}

		result.Updated = make([]models.RankingChange, 0)
		for _, group := range models.FormatGroups {
			top := byGroup[group]
			if len(top) > len(PositionalBonuses) {
				top = top[:len(PositionalBonuses)]
			}
			for i, e := range top {
				bonus := PositionalBonuses[i]
				if err := s.rankingRepo.AddPoints(ctx, exec, e.TeamID, bonus); err != nil {
					return 0, fmt.Errorf("failed to award position %d of %s to team %d: %w", i+1, group, e.TeamID, err)
				}
				result.Updated = append(result.Updated, models.RankingChange{
					TeamID:      e.TeamID,
					TeamName:    e.TeamName,
					Format:      string(group),
					Position:    i + 1,
					OldPoints:   e.Points,
					NewPoints:   e.Points + bonus,
					PointsAdded: bonus,
				})
			}
		}
		result.Message = fmt.Sprintf("Positional bonus awarded to %d teams", len(result.Updated))
		return len(result.Updated), nil
	})
}

// BackfillChampionshipPoints tops up 1v1 final winners to wins*10+40 points.
// Teams already at or above that floor are left alone.
func (s *correctionService) BackfillChampionshipPoints(ctx context.Context, opts CorrectionOptions) (*CorrectionResult, error) {
	return s.run(ctx, models.JobChampionshipBackfill, opts, func(exec repositories.SQLExecutor, result *CorrectionResult) (int, error) {
		champions, err := s.matchRepo.ListFinalWinners(ctx, exec, ChampionshipFormat)
		if err != nil {
			return 0, err
		}

		result.Updated = make([]models.RankingChange, 0)
		for _, teamID := range champions {
			entry, err := s.rankingRepo.GetByTeamID(ctx, exec, teamID)
			if err != nil {
				if errors.Is(err, repositories.ErrRankingNotFound) {
					continue
				}
				return 0, err
			}
			expected := ExpectedChampionPoints(entry.Wins)
			if entry.Points >= expected {
				continue
			}
			shortfall := expected - entry.Points
			if err := s.rankingRepo.AddPoints(ctx, exec, teamID, shortfall); err != nil {
				return 0, fmt.Errorf("failed to backfill team %d: %w", teamID, err)
			}
			result.Updated = append(result.Updated, models.RankingChange{
				TeamID:      teamID,
				TeamName:    entry.TeamName,
				Format:      entry.Format,
				OldPoints:   entry.Points,
				NewPoints:   expected,
				PointsAdded: shortfall,
			})
		}
		result.Message = fmt.Sprintf("Championship points backfilled for %d of %d champions", len(result.Updated), len(champions))
		return len(result.Updated), nil
	})
}

// DeleteNonStandardFormatRankings removes the ranking rows of teams whose
// tournament format is neither 1v1 nor 2v2.
func (s *correctionService) DeleteNonStandardFormatRankings(ctx context.Context, opts CorrectionOptions) (*CorrectionResult, error) {
	return s.run(ctx, models.JobFormatCleanup, opts, func(exec repositories.SQLExecutor, result *CorrectionResult) (int, error) {
		entries, err := s.rankingRepo.List(ctx, exec)
		if err != nil {
			return 0, err
		}

		result.Deleted = make([]*models.RankingEntry, 0)
		teamIDs := make([]int, 0)
		for _, e := range entries {
			if models.GroupForFormat(e.Format) == models.FormatGroup3v3 {
				result.Deleted = append(result.Deleted, e)
				teamIDs = append(teamIDs, e.TeamID)
			}
		}
		if len(teamIDs) == 0 {
			result.Message = "No 3v3 rankings to delete"
			return 0, nil
		}

		if s.archiver != nil {
			key, err := s.archiver.Archive(ctx, string(models.JobFormatCleanup), result.RunID.String(), result.Deleted)
			if err != nil {
				return 0, fmt.Errorf("failed to archive rankings before deletion: %w", err)
			}
			result.ArchiveKey = key
		}

		deleted, err := s.rankingRepo.DeleteByTeamIDs(ctx, exec, teamIDs)
		if err != nil {
			return 0, err
		}
		result.Message = fmt.Sprintf("Deleted %d 3v3 rankings", deleted)
		return int(deleted), nil
	})
}
