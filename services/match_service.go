package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Dosada05/tournament-ranking/brackets"
	"github.com/Dosada05/tournament-ranking/metrics"
	"github.com/Dosada05/tournament-ranking/models"
	"github.com/Dosada05/tournament-ranking/repositories"
)

// MatchResultOutcome describes everything a result submission changed.
type MatchResultOutcome struct {
	Match             *models.Match   `json:"match"`
	RoundCompleted    bool            `json:"round_completed"`
	NextRoundKey      string          `json:"next_round_key,omitempty"`
	NextRoundMatches  []*models.Match `json:"next_round_matches,omitempty"`
	UnpairedTeamID    *int            `json:"unpaired_team_id,omitempty"`
	AdvancedToMatchID *int            `json:"advanced_to_match_id,omitempty"`
	Ranking           *RankingUpdate  `json:"ranking,omitempty"`
	Warnings          []string        `json:"warnings,omitempty"`
	Message           string          `json:"message"`
}

// MatchListFilter is the raw query of a match listing. Empty fields are ignored.
type MatchListFilter struct {
	PhaseType string
	Round     string
	Status    string
}

type MatchService interface {
	UpdateMatchResult(ctx context.Context, matchID, score1, score2, tournamentID int) (*MatchResultOutcome, error)
	ListMatches(ctx context.Context, tournamentID int, filter MatchListFilter) ([]*models.Match, error)
}

type matchService struct {
	tx             repositories.TxManager
	tournamentRepo repositories.TournamentRepository
	matchRepo      repositories.MatchRepository
	roundRepo      repositories.RoundRepository
	rankingService RankingService
	revalidator    Revalidator
	metrics        *metrics.Metrics
	logger         *slog.Logger
	now            func() time.Time
}

func NewMatchService(
	tx repositories.TxManager,
	tournamentRepo repositories.TournamentRepository,
	matchRepo repositories.MatchRepository,
	roundRepo repositories.RoundRepository,
	rankingService RankingService,
	revalidator Revalidator,
	m *metrics.Metrics,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		tx:             tx,
		tournamentRepo: tournamentRepo,
		matchRepo:      matchRepo,
		roundRepo:      roundRepo,
		rankingService: rankingService,
		revalidator:    revalidatorOrNoop(revalidator),
		metrics:        m,
		logger:         logger,
		now:            time.Now,
	}
}

// UpdateMatchResult records the final score of a match and propagates it: the
// ledger is credited, a finished swiss round generates the next one and an
// elimination winner moves into the next phase. All of it commits or none.
func (s *matchService) UpdateMatchResult(ctx context.Context, matchID, score1, score2, tournamentID int) (*MatchResultOutcome, error) {
	if score1 < 0 || score2 < 0 {
		return nil, fmt.Errorf("%w (got %d-%d)", ErrInvalidScore, score1, score2)
	}

	logger := s.logger.With(slog.Int("match_id", matchID), slog.Int("tournament_id", tournamentID))

	var outcome *MatchResultOutcome
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		var err error
		outcome, err = s.applyResult(ctx, exec, logger, matchID, score1, score2, tournamentID)
		return err
	})
	if err != nil {
		logger.ErrorContext(ctx, "match result rejected", slog.Any("error", err))
		return nil, err
	}

	match := outcome.Match
	s.metrics.MatchResult(string(match.PhaseType), match.WinnerID == nil)
	if len(outcome.NextRoundMatches) > 0 {
		s.metrics.RoundGenerated(string(models.PhaseTypeSwiss), "cascade")
	}
	s.revalidator.Revalidate(ctx, brackets.TournamentRoom(tournamentID))
	if outcome.Ranking != nil {
		s.revalidator.Revalidate(ctx, brackets.RankingsRoom)
	}

	outcome.Message = resultMessage(outcome)
	logger.InfoContext(ctx, "match result recorded",
		slog.String("round_key", match.RoundKey()),
		slog.Int("score1", score1),
		slog.Int("score2", score2),
		slog.Bool("round_completed", outcome.RoundCompleted),
		slog.Int("next_round_matches", len(outcome.NextRoundMatches)),
	)
	return outcome, nil
}

func (s *matchService) applyResult(
	ctx context.Context,
	exec repositories.SQLExecutor,
	logger *slog.Logger,
	matchID, score1, score2, tournamentID int,
) (*MatchResultOutcome, error) {
	match, err := s.matchRepo.GetByIDForUpdate(ctx, exec, matchID)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	if match.TournamentID != tournamentID {
		return nil, fmt.Errorf("%w: match %d belongs to tournament %d", ErrMatchNotInTournament, matchID, match.TournamentID)
	}
	if match.Team1ID == nil || match.Team2ID == nil {
		return nil, fmt.Errorf("%w: match %d", ErrMatchSlotsIncomplete, matchID)
	}

	// Every submission of the round queues on this row lock, so completion is
	// evaluated by one transaction at a time.
	round, err := lockRound(ctx, exec, s.roundRepo, tournamentID, match.PhaseType, match.RoundKey())
	if err != nil {
		return nil, fmt.Errorf("failed to lock round %s: %w", match.RoundKey(), err)
	}

	previousWinner := match.WinnerID
	resubmitted := match.Status == models.MatchStatusCompleted
	winner := brackets.DetermineWinner(match.Team1ID, match.Team2ID, score1, score2)

	if err := s.matchRepo.UpdateResult(ctx, exec, match.ID, score1, score2, winner, models.MatchStatusCompleted); err != nil {
		return nil, mapRepositoryError(err)
	}
	match.Score1, match.Score2 = intPtr(score1), intPtr(score2)
	match.WinnerID = winner
	match.Status = models.MatchStatusCompleted

	outcome := &MatchResultOutcome{Match: match}
	if resubmitted && !sameTeam(previousWinner, winner) {
		logger.WarnContext(ctx, "re-submitted result changed the winner",
			slog.Any("previous_winner", previousWinner),
			slog.Any("winner", winner),
		)
		outcome.Warnings = append(outcome.Warnings, "winner changed by re-submission; ranking points already credited are not moved")
	}

	if err := s.creditRanking(ctx, exec, match, outcome); err != nil {
		return nil, err
	}

	switch match.PhaseType {
	case models.PhaseTypeSwiss:
		err = s.completeSwissRound(ctx, exec, logger, match, round, outcome)
	case models.PhaseTypeElimination:
		err = s.advanceWinner(ctx, exec, logger, match, round, previousWinner, resubmitted, outcome)
	}
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// creditRanking credits a decided match to the ledger once per match.
func (s *matchService) creditRanking(ctx context.Context, exec repositories.SQLExecutor, match *models.Match, outcome *MatchResultOutcome) error {
	if match.WinnerID == nil {
		outcome.Warnings = append(outcome.Warnings, "scores are tied; no winner and no ranking change")
		return nil
	}
	if match.RankingApplied {
		return nil
	}
	update, err := s.rankingService.ApplyMatchResult(ctx, exec, *match.WinnerID, *match.LoserID(), match.Phase)
	if err != nil {
		return err
	}
	if err := s.matchRepo.MarkRankingApplied(ctx, exec, match.ID); err != nil {
		return fmt.Errorf("failed to flag ranking of match %d: %w", match.ID, err)
	}
	match.RankingApplied = true
	outcome.Ranking = update
	return nil
}

// completeSwissRound closes the round when nothing is pending and, if this
// transaction is the one that closed it, pairs the winners into the next round.
func (s *matchService) completeSwissRound(
	ctx context.Context,
	exec repositories.SQLExecutor,
	logger *slog.Logger,
	match *models.Match,
	round *models.BracketRound,
	outcome *MatchResultOutcome,
) error {
	if round.Status == models.RoundStatusCompleted {
		outcome.Warnings = append(outcome.Warnings, "round was already completed; the next round is not regenerated")
		return nil
	}

	pending, err := s.matchRepo.CountPendingByRound(ctx, exec, match.TournamentID, round.RoundKey)
	if err != nil {
		return err
	}
	if pending > 0 {
		return nil
	}

	won, err := s.roundRepo.MarkCompleted(ctx, exec, round.ID)
	if err != nil {
		return err
	}
	if !won {
		return nil
	}
	outcome.RoundCompleted = true

	roundKey := round.RoundKey
	siblings, err := s.matchRepo.ListByTournament(ctx, exec, match.TournamentID, repositories.MatchFilter{RoundKey: &roundKey})
	if err != nil {
		return fmt.Errorf("failed to load round %s: %w", roundKey, err)
	}
	pairing := brackets.NextSwissPairings(brackets.WinnersOf(siblings))
	outcome.UnpairedTeamID = pairing.UnpairedTeamID
	if len(pairing.Pairings) == 0 {
		logger.InfoContext(ctx, "swiss stage finished", slog.String("round_key", roundKey))
		return nil
	}

	next := roundSelector{
		TournamentID: match.TournamentID,
		PhaseType:    models.PhaseTypeSwiss,
		SwissRound:   intPtr(*match.SwissRound + 1),
	}
	existing, err := s.matchRepo.CountByRound(ctx, exec, match.TournamentID, next.Key())
	if err != nil {
		return err
	}
	if existing > 0 {
		logger.WarnContext(ctx, "next swiss round already has matches", slog.String("round_key", next.Key()))
		outcome.Warnings = append(outcome.Warnings, fmt.Sprintf("%s already exists; not generated again", next.Key()))
		return nil
	}

	created, err := persistRound(ctx, exec, s.matchRepo, s.roundRepo, next, pairing.Pairings, s.now())
	if err != nil {
		return fmt.Errorf("failed to generate %s: %w", next.Key(), err)
	}
	outcome.NextRoundKey = next.Key()
	outcome.NextRoundMatches = created
	return nil
}

// advanceWinner writes the winner into its slot of the next phase, creating
// the target match when the phase has not been drawn yet. A re-submission that
// changes the winner first takes the previous winner back out of that slot.
func (s *matchService) advanceWinner(
	ctx context.Context,
	exec repositories.SQLExecutor,
	logger *slog.Logger,
	match *models.Match,
	round *models.BracketRound,
	previousWinner *int,
	resubmitted bool,
	outcome *MatchResultOutcome,
) error {
	if round.Status == models.RoundStatusOpen {
		complete, err := s.eliminationRoundComplete(ctx, exec, match, round)
		if err != nil {
			return err
		}
		if complete {
			if outcome.RoundCompleted, err = s.roundRepo.MarkCompleted(ctx, exec, round.ID); err != nil {
				return err
			}
		}
	}

	if match.Phase == nil {
		return nil
	}
	nextPhase, nextOrder, slot, hasNext := brackets.AdvanceTarget(*match.Phase, match.MatchOrder)
	next := roundSelector{TournamentID: match.TournamentID, PhaseType: models.PhaseTypeElimination, Phase: &nextPhase}

	if hasNext && resubmitted && previousWinner != nil && !sameTeam(previousWinner, match.WinnerID) {
		if err := s.withdrawAdvance(ctx, exec, logger, next, nextOrder, slot, *previousWinner, outcome); err != nil {
			return err
		}
	}
	if match.WinnerID == nil {
		outcome.Warnings = append(outcome.Warnings, "tied elimination match; nobody advances")
		return nil
	}
	if !hasNext {
		return nil
	}

	target, err := s.matchRepo.FindByRoundAndOrder(ctx, exec, match.TournamentID, next.Key(), nextOrder)
	switch {
	case err == nil:
		if target.Status == models.MatchStatusCompleted {
			logger.WarnContext(ctx, "advancing into an already completed match", slog.Int("target_match_id", target.ID))
			outcome.Warnings = append(outcome.Warnings, fmt.Sprintf("match %d of %s is already completed; its participants are kept", target.ID, nextPhase))
			return nil
		}
		if err := s.matchRepo.SetSlot(ctx, exec, target.ID, slot, match.WinnerID); err != nil {
			return fmt.Errorf("failed to advance team %d: %w", *match.WinnerID, mapRepositoryError(err))
		}
	case errors.Is(err, repositories.ErrMatchNotFound):
		if _, err := lockRound(ctx, exec, s.roundRepo, match.TournamentID, models.PhaseTypeElimination, next.Key()); err != nil {
			return fmt.Errorf("failed to open %s: %w", next.Key(), err)
		}
		scheduledAt := s.now().AddDate(0, 0, next.offset())
		target = next.template(nextOrder)
		target.ScheduledAt = &scheduledAt
		if slot == 1 {
			target.Team1ID = intPtr(*match.WinnerID)
		} else {
			target.Team2ID = intPtr(*match.WinnerID)
		}
		if err := s.matchRepo.Create(ctx, exec, target); err != nil {
			return fmt.Errorf("failed to create match %d of %s: %w", nextOrder, next.Key(), mapRepositoryError(err))
		}
	default:
		return err
	}

	outcome.AdvancedToMatchID = intPtr(target.ID)
	logger.InfoContext(ctx, "winner advanced",
		slog.Int("team_id", *match.WinnerID),
		slog.String("phase", string(nextPhase)),
		slog.Int("target_match_id", target.ID),
		slog.Int("slot", slot),
	)
	return nil
}

// eliminationRoundComplete reports whether the whole phase has been played.
// Phases after the first one drawn are created one match at a time as winners
// advance, so they are complete only when the feeding phase has nothing pending
// and every one of its pairs has a match here.
func (s *matchService) eliminationRoundComplete(ctx context.Context, exec repositories.SQLExecutor, match *models.Match, round *models.BracketRound) (bool, error) {
	pending, err := s.matchRepo.CountPendingByRound(ctx, exec, match.TournamentID, round.RoundKey)
	if err != nil {
		return false, err
	}
	if pending > 0 {
		return false, nil
	}
	if match.Phase == nil {
		return true, nil
	}
	prevPhase, ok := match.Phase.Prev()
	if !ok {
		return true, nil
	}

	prevKey := models.EliminationRoundKey(prevPhase)
	prevCount, err := s.matchRepo.CountByRound(ctx, exec, match.TournamentID, prevKey)
	if err != nil {
		return false, err
	}
	if prevCount == 0 {
		return true, nil
	}
	prevPending, err := s.matchRepo.CountPendingByRound(ctx, exec, match.TournamentID, prevKey)
	if err != nil {
		return false, err
	}
	if prevPending > 0 {
		return false, nil
	}
	count, err := s.matchRepo.CountByRound(ctx, exec, match.TournamentID, round.RoundKey)
	if err != nil {
		return false, err
	}
	return count >= (prevCount+1)/2, nil
}

// withdrawAdvance empties the next-phase slot a previous winner was written
// into. A target that has already been played is left as it is.
func (s *matchService) withdrawAdvance(
	ctx context.Context,
	exec repositories.SQLExecutor,
	logger *slog.Logger,
	next roundSelector,
	order, slot, teamID int,
	outcome *MatchResultOutcome,
) error {
	target, err := s.matchRepo.FindByRoundAndOrder(ctx, exec, next.TournamentID, next.Key(), order)
	if errors.Is(err, repositories.ErrMatchNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	held := target.Team1ID
	if slot == 2 {
		held = target.Team2ID
	}
	if held == nil || *held != teamID {
		return nil
	}
	if target.Status == models.MatchStatusCompleted {
		logger.WarnContext(ctx, "previous winner already played the next phase", slog.Int("team_id", teamID), slog.Int("target_match_id", target.ID))
		outcome.Warnings = append(outcome.Warnings, fmt.Sprintf("team %d already played match %d of %s; that result is kept", teamID, target.ID, *next.Phase))
		return nil
	}
	if err := s.matchRepo.SetSlot(ctx, exec, target.ID, slot, nil); err != nil {
		return fmt.Errorf("failed to withdraw team %d from match %d: %w", teamID, target.ID, mapRepositoryError(err))
	}
	logger.WarnContext(ctx, "previous winner withdrawn from next phase", slog.Int("team_id", teamID), slog.Int("target_match_id", target.ID))
	outcome.Warnings = append(outcome.Warnings, fmt.Sprintf("team %d removed from match %d of %s", teamID, target.ID, *next.Phase))
	return nil
}

func resultMessage(o *MatchResultOutcome) string {
	var b strings.Builder
	b.WriteString("Match result updated")
	if o.RoundCompleted {
		b.WriteString("; round completed")
	}
	if o.NextRoundKey != "" {
		fmt.Fprintf(&b, "; %d matches generated for %s", len(o.NextRoundMatches), o.NextRoundKey)
	}
	if o.UnpairedTeamID != nil {
		fmt.Fprintf(&b, "; team %d left unpaired", *o.UnpairedTeamID)
	}
	if o.AdvancedToMatchID != nil {
		fmt.Fprintf(&b, "; winner advanced to match %d", *o.AdvancedToMatchID)
	}
	for _, w := range o.Warnings {
		b.WriteString("; ")
		b.WriteString(w)
	}
	return b.String()
}

func (s *matchService) ListMatches(ctx context.Context, tournamentID int, filter MatchListFilter) ([]*models.Match, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID); err != nil {
		return nil, mapRepositoryError(err)
	}

	var repoFilter repositories.MatchFilter
	if filter.PhaseType != "" {
		phaseType := models.PhaseType(filter.PhaseType)
		if !phaseType.Valid() {
			return nil, fmt.Errorf("%w: %w: got %q", ErrValidationFailed, ErrInvalidPhaseType, filter.PhaseType)
		}
		repoFilter.PhaseType = &phaseType
		if filter.Round != "" {
			sel, err := parseRoundSelector(tournamentID, phaseType, filter.Round)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
			}
			key := sel.Key()
			repoFilter.RoundKey = &key
		}
	} else if filter.Round != "" {
		return nil, fmt.Errorf("%w: round filter requires phase_type", ErrValidationFailed)
	}

	if filter.Status != "" {
		status := models.MatchStatus(filter.Status)
		switch status {
		case models.MatchStatusPending, models.MatchStatusInProgress, models.MatchStatusCompleted:
			repoFilter.Status = &status
		default:
			return nil, fmt.Errorf("%w: unknown match status %q", ErrValidationFailed, filter.Status)
		}
	}

	matches, err := s.matchRepo.ListByTournament(ctx, nil, tournamentID, repoFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches of tournament %d: %w", tournamentID, err)
	}
	return matches, nil
}
