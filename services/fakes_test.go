package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/Dosada05/tournament-ranking/metrics"
	"github.com/Dosada05/tournament-ranking/models"
	"github.com/Dosada05/tournament-ranking/repositories"
)

// fakeStore is an in-memory stand-in for the database shared by all fake
// repositories. Transactions are serialised and rolled back on error.
type fakeStore struct {
	mu   sync.Mutex
	txMu sync.Mutex

	tournaments map[int]*models.Tournament
	teams       map[int]*models.Team
	matches     map[int]*models.Match
	rounds      map[int]*models.BracketRound
	rankings    map[int]*models.RankingEntry
	runs        []*models.CorrectionRun
	nextID      int

	// failures makes the named operation return the error.
	failures map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tournaments: map[int]*models.Tournament{},
		teams:       map[int]*models.Team{},
		matches:     map[int]*models.Match{},
		rounds:      map[int]*models.BracketRound{},
		rankings:    map[int]*models.RankingEntry{},
		failures:    map[string]error{},
	}
}

func (s *fakeStore) id() int {
	s.nextID++
	return s.nextID
}

func (s *fakeStore) fail(op string) error {
	return s.failures[op]
}

type fakeSnapshot struct {
	tournaments map[int]models.Tournament
	teams       map[int]models.Team
	matches     map[int]models.Match
	rounds      map[int]models.BracketRound
	rankings    map[int]models.RankingEntry
	runs        []models.CorrectionRun
}

func (s *fakeStore) snapshot() fakeSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := fakeSnapshot{
		tournaments: map[int]models.Tournament{},
		teams:       map[int]models.Team{},
		matches:     map[int]models.Match{},
		rounds:      map[int]models.BracketRound{},
		rankings:    map[int]models.RankingEntry{},
	}
	for k, v := range s.tournaments {
		snap.tournaments[k] = *v
	}
	for k, v := range s.teams {
		snap.teams[k] = *v
	}
	for k, v := range s.matches {
		snap.matches[k] = *v
	}
	for k, v := range s.rounds {
		snap.rounds[k] = *v
	}
	for k, v := range s.rankings {
		snap.rankings[k] = *v
	}
	for _, r := range s.runs {
		snap.runs = append(snap.runs, *r)
	}
	return snap
}

func (s *fakeStore) restore(snap fakeSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tournaments = map[int]*models.Tournament{}
	for k, v := range snap.tournaments {
		v := v
		s.tournaments[k] = &v
	}
	s.teams = map[int]*models.Team{}
	for k, v := range snap.teams {
		v := v
		s.teams[k] = &v
	}
	s.matches = map[int]*models.Match{}
	for k, v := range snap.matches {
		v := v
		s.matches[k] = &v
	}
	s.rounds = map[int]*models.BracketRound{}
	for k, v := range snap.rounds {
		v := v
		s.rounds[k] = &v
	}
	s.rankings = map[int]*models.RankingEntry{}
	for k, v := range snap.rankings {
		v := v
		s.rankings[k] = &v
	}
	s.runs = nil
	for _, r := range snap.runs {
		r := r
		s.runs = append(s.runs, &r)
	}
}

// --- TxManager ---

type fakeTxManager struct {
	store *fakeStore
	count int
}

func (m *fakeTxManager) WithinTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	m.store.txMu.Lock()
	defer m.store.txMu.Unlock()
	m.count++

	snap := m.store.snapshot()
	if err := fn(nil); err != nil {
		m.store.restore(snap)
		return err
	}
	return nil
}

// --- TournamentRepository ---

type fakeTournamentRepo struct{ store *fakeStore }

func (r *fakeTournamentRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Tournament, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	cp := *t
	return &cp, nil
}

// --- TeamRepository ---

type fakeTeamRepo struct{ store *fakeStore }

func (r *fakeTeamRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Team, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.teams[id]
	if !ok {
		return nil, repositories.ErrTeamNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTeamRepo) ListByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, status *models.TeamStatus) ([]*models.Team, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if err := r.store.fail("team.List"); err != nil {
		return nil, err
	}
	teams := make([]*models.Team, 0)
	for _, t := range r.store.teams {
		if t.TournamentID != tournamentID || (status != nil && t.Status != *status) {
			continue
		}
		cp := *t
		teams = append(teams, &cp)
	}
	seedTime := func(t *models.Team) time.Time {
		if t.ApprovedAt != nil {
			return *t.ApprovedAt
		}
		return t.CreatedAt
	}
	sort.Slice(teams, func(i, j int) bool {
		ti, tj := seedTime(teams[i]), seedTime(teams[j])
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return teams[i].ID < teams[j].ID
	})
	return teams, nil
}

func (r *fakeTeamRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id int, status models.TeamStatus) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.teams[id]
	if !ok {
		return repositories.ErrTeamNotFound
	}
	t.Status = status
	if status == models.TeamStatusApproved {
		now := time.Now()
		t.ApprovedAt = &now
	}
	return nil
}

// --- MatchRepository ---

type fakeMatchRepo struct{ store *fakeStore }

func (r *fakeMatchRepo) Create(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if err := r.store.fail("match.Create"); err != nil {
		return err
	}
	for _, m := range r.store.matches {
		if m.TournamentID == match.TournamentID && m.RoundKey() == match.RoundKey() && m.MatchOrder == match.MatchOrder {
			return repositories.ErrMatchOrderConflict
		}
	}
	if match.Status == "" {
		match.Status = models.MatchStatusPending
	}
	match.ID = r.store.id()
	match.CreatedAt = time.Now()
	match.UpdatedAt = match.CreatedAt
	cp := *match
	r.store.matches[match.ID] = &cp
	return nil
}

func (r *fakeMatchRepo) get(id int) (*models.Match, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	m, ok := r.store.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *fakeMatchRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Match, error) {
	return r.get(id)
}

func (r *fakeMatchRepo) GetByIDForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Match, error) {
	return r.get(id)
}

func (r *fakeMatchRepo) ListByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, filter repositories.MatchFilter) ([]*models.Match, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	matches := make([]*models.Match, 0)
	for _, m := range r.store.matches {
		if m.TournamentID != tournamentID {
			continue
		}
		if filter.PhaseType != nil && m.PhaseType != *filter.PhaseType {
			continue
		}
		if filter.RoundKey != nil && m.RoundKey() != *filter.RoundKey {
			continue
		}
		if filter.Status != nil && m.Status != *filter.Status {
			continue
		}
		cp := *m
		matches = append(matches, &cp)
	}
	sort.Slice(matches, func(i, j int) bool {
		if ki, kj := matches[i].RoundKey(), matches[j].RoundKey(); ki != kj {
			return ki < kj
		}
		return matches[i].MatchOrder < matches[j].MatchOrder
	})
	return matches, nil
}

func (r *fakeMatchRepo) count(tournamentID int, roundKey string, pendingOnly bool) int {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	n := 0
	for _, m := range r.store.matches {
		if m.TournamentID == tournamentID && m.RoundKey() == roundKey {
			if pendingOnly && m.Status == models.MatchStatusCompleted {
				continue
			}
			n++
		}
	}
	return n
}

func (r *fakeMatchRepo) CountByRound(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, roundKey string) (int, error) {
	return r.count(tournamentID, roundKey, false), nil
}

func (r *fakeMatchRepo) CountPendingByRound(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, roundKey string) (int, error) {
	return r.count(tournamentID, roundKey, true), nil
}

func (r *fakeMatchRepo) FindByRoundAndOrder(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, roundKey string, matchOrder int) (*models.Match, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, m := range r.store.matches {
		if m.TournamentID == tournamentID && m.RoundKey() == roundKey && m.MatchOrder == matchOrder {
			cp := *m
			return &cp, nil
		}
	}
	return nil, repositories.ErrMatchNotFound
}

func (r *fakeMatchRepo) UpdateResult(ctx context.Context, exec repositories.SQLExecutor, id int, score1, score2 int, winnerID *int, status models.MatchStatus) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	m, ok := r.store.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.Score1, m.Score2 = &score1, &score2
	if winnerID != nil {
		w := *winnerID
		m.WinnerID = &w
	} else {
		m.WinnerID = nil
	}
	m.Status = status
	m.UpdatedAt = time.Now()
	return nil
}

func (r *fakeMatchRepo) SetSlot(ctx context.Context, exec repositories.SQLExecutor, id int, slot int, teamID *int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	m, ok := r.store.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	var value *int
	if teamID != nil {
		v := *teamID
		value = &v
	}
	switch slot {
	case 1:
		m.Team1ID = value
	case 2:
		m.Team2ID = value
	default:
		return fmt.Errorf("invalid slot %d", slot)
	}
	return nil
}

func (r *fakeMatchRepo) MarkRankingApplied(ctx context.Context, exec repositories.SQLExecutor, id int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	m, ok := r.store.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.RankingApplied = true
	return nil
}

func (r *fakeMatchRepo) DeleteByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var n int64
	for id, m := range r.store.matches {
		if m.TournamentID == tournamentID {
			delete(r.store.matches, id)
			n++
		}
	}
	return n, nil
}

func (r *fakeMatchRepo) ListFinalWinners(ctx context.Context, exec repositories.SQLExecutor, format string) ([]int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	seen := map[int]bool{}
	winners := make([]int, 0)
	for _, m := range r.store.matches {
		t, ok := r.store.tournaments[m.TournamentID]
		if !ok || t.Format != format || m.Phase == nil || *m.Phase != models.PhaseFinal ||
			m.Status != models.MatchStatusCompleted || m.WinnerID == nil || seen[*m.WinnerID] {
			continue
		}
		seen[*m.WinnerID] = true
		winners = append(winners, *m.WinnerID)
	}
	sort.Ints(winners)
	return winners, nil
}

// --- RoundRepository ---

type fakeRoundRepo struct{ store *fakeStore }

func (r *fakeRoundRepo) Create(ctx context.Context, exec repositories.SQLExecutor, round *models.BracketRound) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, existing := range r.store.rounds {
		if existing.TournamentID == round.TournamentID && existing.RoundKey == round.RoundKey {
			return repositories.ErrRoundAlreadyExists
		}
	}
	round.ID = r.store.id()
	round.CreatedAt = time.Now()
	if round.Status == "" {
		round.Status = models.RoundStatusOpen
	}
	cp := *round
	r.store.rounds[round.ID] = &cp
	return nil
}

func (r *fakeRoundRepo) GetForUpdate(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, roundKey string) (*models.BracketRound, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, round := range r.store.rounds {
		if round.TournamentID == tournamentID && round.RoundKey == roundKey {
			cp := *round
			return &cp, nil
		}
	}
	return nil, repositories.ErrRoundNotFound
}

func (r *fakeRoundRepo) MarkCompleted(ctx context.Context, exec repositories.SQLExecutor, id int) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	round, ok := r.store.rounds[id]
	if !ok {
		return false, repositories.ErrRoundNotFound
	}
	if round.Status != models.RoundStatusOpen {
		return false, nil
	}
	now := time.Now()
	round.Status = models.RoundStatusCompleted
	round.CompletedAt = &now
	return true, nil
}

func (r *fakeRoundRepo) ListByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) ([]*models.BracketRound, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	rounds := make([]*models.BracketRound, 0)
	for _, round := range r.store.rounds {
		if round.TournamentID == tournamentID {
			cp := *round
			rounds = append(rounds, &cp)
		}
	}
	sort.Slice(rounds, func(i, j int) bool { return rounds[i].ID < rounds[j].ID })
	return rounds, nil
}

func (r *fakeRoundRepo) DeleteByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var n int64
	for id, round := range r.store.rounds {
		if round.TournamentID == tournamentID {
			delete(r.store.rounds, id)
			n++
		}
	}
	return n, nil
}

// --- RankingRepository ---

type fakeRankingRepo struct{ store *fakeStore }

// decorate fills the joined columns; the caller holds the lock.
func (r *fakeRankingRepo) decorate(e *models.RankingEntry) *models.RankingEntry {
	cp := *e
	if team, ok := r.store.teams[e.TeamID]; ok {
		cp.TeamName = team.Name
		if t, ok := r.store.tournaments[team.TournamentID]; ok {
			cp.Format = t.Format
		}
	}
	return &cp
}

func (r *fakeRankingRepo) GetByTeamID(ctx context.Context, exec repositories.SQLExecutor, teamID int) (*models.RankingEntry, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	e, ok := r.store.rankings[teamID]
	if !ok {
		return nil, repositories.ErrRankingNotFound
	}
	return r.decorate(e), nil
}

func (r *fakeRankingRepo) Ensure(ctx context.Context, exec repositories.SQLExecutor, teamID int) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.rankings[teamID]; ok {
		return false, nil
	}
	r.store.rankings[teamID] = &models.RankingEntry{
		ID:                r.store.id(),
		TeamID:            teamID,
		TournamentsPlayed: 1,
		LastUpdated:       time.Now(),
	}
	return true, nil
}

func (r *fakeRankingRepo) AddResult(ctx context.Context, exec repositories.SQLExecutor, teamID, points, wins, losses int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if err := r.store.fail("ranking.AddResult"); err != nil {
		return err
	}
	e, ok := r.store.rankings[teamID]
	if !ok {
		return repositories.ErrRankingNotFound
	}
	e.Points += points
	e.Wins += wins
	e.Losses += losses
	e.LastUpdated = time.Now()
	return nil
}

func (r *fakeRankingRepo) AddPoints(ctx context.Context, exec repositories.SQLExecutor, teamID, points int) error {
	return r.AddResult(ctx, exec, teamID, points, 0, 0)
}

func (r *fakeRankingRepo) List(ctx context.Context, exec repositories.SQLExecutor) ([]*models.RankingEntry, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	entries := make([]*models.RankingEntry, 0, len(r.store.rankings))
	for _, e := range r.store.rankings {
		entries = append(entries, r.decorate(e))
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Points != entries[j].Points {
			return entries[i].Points > entries[j].Points
		}
		return entries[i].TeamID < entries[j].TeamID
	})
	return entries, nil
}

func (r *fakeRankingRepo) DeleteByTeamIDs(ctx context.Context, exec repositories.SQLExecutor, teamIDs []int) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if err := r.store.fail("ranking.Delete"); err != nil {
		return 0, err
	}
	var n int64
	for _, id := range teamIDs {
		if _, ok := r.store.rankings[id]; ok {
			delete(r.store.rankings, id)
			n++
		}
	}
	return n, nil
}

// --- CorrectionRunRepository ---

type fakeRunRepo struct{ store *fakeStore }

func (r *fakeRunRepo) GetByKey(ctx context.Context, exec repositories.SQLExecutor, job models.CorrectionJob, key string) (*models.CorrectionRun, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, run := range r.store.runs {
		if run.Job == job && run.IdempotencyKey != nil && *run.IdempotencyKey == key {
			cp := *run
			return &cp, nil
		}
	}
	return nil, repositories.ErrCorrectionRunNotFound
}

func (r *fakeRunRepo) Create(ctx context.Context, exec repositories.SQLExecutor, run *models.CorrectionRun) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if run.IdempotencyKey != nil {
		for _, existing := range r.store.runs {
			if existing.Job == run.Job && existing.IdempotencyKey != nil && *existing.IdempotencyKey == *run.IdempotencyKey {
				return repositories.ErrCorrectionRunConflict
			}
		}
	}
	run.AppliedAt = time.Now()
	cp := *run
	r.store.runs = append(r.store.runs, &cp)
	return nil
}

// --- Revalidator ---

type fakeRevalidator struct {
	mu    sync.Mutex
	paths []string
}

func (f *fakeRevalidator) Revalidate(ctx context.Context, path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, path)
}

func (f *fakeRevalidator) Paths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.paths...)
}

// --- Archiver ---

type fakeArchiver struct {
	calls      int
	payload    any
	err        error
	discarded  []string
	discardErr error
}

func (f *fakeArchiver) Archive(ctx context.Context, name, id string, payload any) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	f.payload = payload
	return fmt.Sprintf("archives/%s/%s.json", name, id), nil
}

func (f *fakeArchiver) Discard(ctx context.Context, key string) error {
	if f.discardErr != nil {
		return f.discardErr
	}
	f.discarded = append(f.discarded, key)
	return nil
}

// --- wiring ---

type testEnv struct {
	store       *fakeStore
	tx          *fakeTxManager
	revalidator *fakeRevalidator
	archiver    *fakeArchiver
	now         time.Time

	tournaments *fakeTournamentRepo
	teams       *fakeTeamRepo
	matches     *fakeMatchRepo
	rounds      *fakeRoundRepo
	rankings    *fakeRankingRepo
	runs        *fakeRunRepo

	ranking    RankingService
	bracket    *bracketService
	match      *matchService
	correction CorrectionService
	team       TeamService

	seedClock time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := newFakeStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New(nil)

	env := &testEnv{
		store:       store,
		tx:          &fakeTxManager{store: store},
		revalidator: &fakeRevalidator{},
		archiver:    &fakeArchiver{},
		now:         time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		tournaments: &fakeTournamentRepo{store: store},
		teams:       &fakeTeamRepo{store: store},
		matches:     &fakeMatchRepo{store: store},
		rounds:      &fakeRoundRepo{store: store},
		rankings:    &fakeRankingRepo{store: store},
		runs:        &fakeRunRepo{store: store},
		seedClock:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	env.ranking = NewRankingService(env.rankings, m, logger)
	env.bracket = NewBracketService(env.tx, env.tournaments, env.teams, env.matches, env.rounds, env.revalidator, m, logger).(*bracketService)
	env.bracket.now = func() time.Time { return env.now }
	env.match = NewMatchService(env.tx, env.tournaments, env.matches, env.rounds, env.ranking, env.revalidator, m, logger).(*matchService)
	env.match.now = func() time.Time { return env.now }
	env.correction = NewCorrectionService(env.tx, env.rankings, env.matches, env.runs, env.archiver, env.revalidator, m, logger)
	env.team = NewTeamService(env.tournaments, env.teams, env.revalidator, logger)
	return env
}

func (e *testEnv) addTournament(format string) int {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	id := e.store.id()
	e.store.tournaments[id] = &models.Tournament{ID: id, Name: fmt.Sprintf("Cup %d", id), Format: format}
	return id
}

// addTeams registers n teams in seeding order and returns their ids.
func (e *testEnv) addTeams(tournamentID, n int, status models.TeamStatus) []int {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	ids := make([]int, n)
	for i := range ids {
		e.seedClock = e.seedClock.Add(time.Minute)
		created := e.seedClock
		team := &models.Team{
			ID:           e.store.id(),
			Name:         fmt.Sprintf("Team %d", i+1),
			TournamentID: tournamentID,
			Status:       status,
			CreatedAt:    created,
		}
		if status == models.TeamStatusApproved {
			team.ApprovedAt = &created
		}
		e.store.teams[team.ID] = team
		ids[i] = team.ID
	}
	return ids
}

func (e *testEnv) setRanking(teamID, points, wins, losses int) {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	e.store.rankings[teamID] = &models.RankingEntry{
		ID:                e.store.id(),
		TeamID:            teamID,
		Points:            points,
		Wins:              wins,
		Losses:            losses,
		TournamentsPlayed: 1,
	}
}

func (e *testEnv) rankingOf(t *testing.T, teamID int) models.RankingEntry {
	t.Helper()
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	entry, ok := e.store.rankings[teamID]
	if !ok {
		t.Fatalf("no ranking for team %d", teamID)
	}
	return *entry
}

func (e *testEnv) hasRanking(teamID int) bool {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	_, ok := e.store.rankings[teamID]
	return ok
}

func (e *testEnv) roundMatches(t *testing.T, tournamentID int, roundKey string) []*models.Match {
	t.Helper()
	matches, err := e.matches.ListByTournament(context.Background(), nil, tournamentID, repositories.MatchFilter{RoundKey: &roundKey})
	if err != nil {
		t.Fatalf("list round %s: %v", roundKey, err)
	}
	return matches
}

// addMatch inserts a match directly, bypassing the generator.
func (e *testEnv) addMatch(t *testing.T, m *models.Match) *models.Match {
	t.Helper()
	if err := e.matches.Create(context.Background(), nil, m); err != nil {
		t.Fatalf("create match: %v", err)
	}
	return m
}

func phasePtr(p models.EliminationPhase) *models.EliminationPhase { return &p }

var (
	_ repositories.TxManager               = (*fakeTxManager)(nil)
	_ repositories.TournamentRepository    = (*fakeTournamentRepo)(nil)
	_ repositories.TeamRepository          = (*fakeTeamRepo)(nil)
	_ repositories.MatchRepository         = (*fakeMatchRepo)(nil)
	_ repositories.RoundRepository         = (*fakeRoundRepo)(nil)
	_ repositories.RankingRepository       = (*fakeRankingRepo)(nil)
	_ repositories.CorrectionRunRepository = (*fakeRunRepo)(nil)
	_ Revalidator                          = (*fakeRevalidator)(nil)
	_ RankingArchiver                      = (*fakeArchiver)(nil)
)
