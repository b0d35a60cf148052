//go:build integration

package repositories_test

import (
	"context"
	"log"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/tournament-ranking/db/dbtest"
	"github.com/Dosada05/tournament-ranking/models"
	"github.com/Dosada05/tournament-ranking/repositories"
)

var pg *dbtest.Postgres

func TestMain(m *testing.M) {
	ctx := context.Background()
	var err error
	pg, err = dbtest.Start(ctx)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	code := m.Run()
	if err := pg.Stop(ctx); err != nil {
		log.Printf("failed to stop postgres: %v", err)
	}
	os.Exit(code)
}

func intPtr(v int) *int { return &v }

func swissMatch(tournamentID, round, order int, team1, team2 *int) *models.Match {
	return &models.Match{
		TournamentID: tournamentID,
		PhaseType:    models.PhaseTypeSwiss,
		SwissRound:   intPtr(round),
		MatchOrder:   order,
		Team1ID:      team1,
		Team2ID:      team2,
	}
}

func TestMatchRepository_Postgres(t *testing.T) {
	pg.Reset(t)
	ctx := context.Background()
	repo := repositories.NewPostgresMatchRepository(pg.DB)
	tid := pg.Tournament(t, "1v1")
	teams := pg.ApprovedTeams(t, tid, 4)

	first := swissMatch(tid, 1, 0, &teams[0], &teams[1])
	require.NoError(t, repo.Create(ctx, nil, first))
	assert.NotZero(t, first.ID)
	assert.Equal(t, models.MatchStatusPending, first.Status)

	err := repo.Create(ctx, nil, swissMatch(tid, 1, 0, &teams[2], &teams[3]))
	assert.ErrorIs(t, err, repositories.ErrMatchOrderConflict)

	require.NoError(t, repo.Create(ctx, nil, swissMatch(tid, 1, 1, &teams[2], &teams[3])))
	count, err := repo.CountByRound(ctx, nil, tid, models.SwissRoundKey(1))
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, repo.UpdateResult(ctx, nil, first.ID, 3, 1, &teams[0], models.MatchStatusCompleted))
	pending, err := repo.CountPendingByRound(ctx, nil, tid, models.SwissRoundKey(1))
	require.NoError(t, err)
	assert.Equal(t, 1, pending)

	found, err := repo.FindByRoundAndOrder(ctx, nil, tid, models.SwissRoundKey(1), 0)
	require.NoError(t, err)
	assert.Equal(t, teams[0], *found.WinnerID)
	assert.Equal(t, 3, *found.Score1)

	_, err = repo.GetByID(ctx, nil, 9999)
	assert.ErrorIs(t, err, repositories.ErrMatchNotFound)
}

func TestMatchRepository_SetSlotAndFinalWinners(t *testing.T) {
	pg.Reset(t)
	ctx := context.Background()
	repo := repositories.NewPostgresMatchRepository(pg.DB)
	singles := pg.Tournament(t, "1v1")
	doubles := pg.Tournament(t, "2v2")
	a := pg.ApprovedTeams(t, singles, 2)
	b := pg.ApprovedTeams(t, doubles, 2)

	final := models.PhaseFinal
	match := &models.Match{TournamentID: singles, PhaseType: models.PhaseTypeElimination, Phase: &final, Team1ID: &a[0]}
	require.NoError(t, repo.Create(ctx, nil, match))

	require.NoError(t, repo.SetSlot(ctx, nil, match.ID, 2, &a[1]))
	require.NoError(t, repo.SetSlot(ctx, nil, match.ID, 1, nil))
	got, err := repo.GetByID(ctx, nil, match.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Team1ID)
	require.NotNil(t, got.Team2ID)
	assert.Equal(t, a[1], *got.Team2ID)

	require.NoError(t, repo.SetSlot(ctx, nil, match.ID, 1, &a[0]))
	require.NoError(t, repo.UpdateResult(ctx, nil, match.ID, 2, 0, &a[0], models.MatchStatusCompleted))

	other := &models.Match{TournamentID: doubles, PhaseType: models.PhaseTypeElimination, Phase: &final, Team1ID: &b[0], Team2ID: &b[1]}
	require.NoError(t, repo.Create(ctx, nil, other))
	require.NoError(t, repo.UpdateResult(ctx, nil, other.ID, 0, 1, &b[1], models.MatchStatusCompleted))

	winners, err := repo.ListFinalWinners(ctx, nil, "1v1")
	require.NoError(t, err)
	assert.Equal(t, []int{a[0]}, winners)

	err = repo.SetSlot(ctx, nil, 9999, 1, nil)
	assert.ErrorIs(t, err, repositories.ErrMatchNotFound)
}

func TestRoundRepository_Postgres(t *testing.T) {
	pg.Reset(t)
	ctx := context.Background()
	repo := repositories.NewPostgresRoundRepository(pg.DB)
	tid := pg.Tournament(t, "1v1")

	round := &models.BracketRound{TournamentID: tid, PhaseType: models.PhaseTypeSwiss, RoundKey: models.SwissRoundKey(1)}
	require.NoError(t, repo.Create(ctx, nil, round))
	assert.Equal(t, models.RoundStatusOpen, round.Status)

	err := repo.Create(ctx, nil, &models.BracketRound{TournamentID: tid, PhaseType: models.PhaseTypeSwiss, RoundKey: models.SwissRoundKey(1)})
	assert.ErrorIs(t, err, repositories.ErrRoundAlreadyExists)

	completed, err := repo.MarkCompleted(ctx, nil, round.ID)
	require.NoError(t, err)
	assert.True(t, completed)
	completed, err = repo.MarkCompleted(ctx, nil, round.ID)
	require.NoError(t, err)
	assert.False(t, completed, "a round completes only once")

	got, err := repo.GetForUpdate(ctx, nil, tid, models.SwissRoundKey(1))
	require.NoError(t, err)
	assert.Equal(t, models.RoundStatusCompleted, got.Status)
	assert.NotNil(t, got.CompletedAt)

	_, err = repo.GetForUpdate(ctx, nil, tid, models.SwissRoundKey(2))
	assert.ErrorIs(t, err, repositories.ErrRoundNotFound)
}

func TestRankingRepository_Postgres(t *testing.T) {
	pg.Reset(t)
	ctx := context.Background()
	repo := repositories.NewPostgresRankingRepository(pg.DB)
	tid := pg.Tournament(t, "2v2")
	teams := pg.ApprovedTeams(t, tid, 3)

	created, err := repo.Ensure(ctx, nil, teams[0])
	require.NoError(t, err)
	assert.True(t, created)
	created, err = repo.Ensure(ctx, nil, teams[0])
	require.NoError(t, err)
	assert.False(t, created)
	_, err = repo.Ensure(ctx, nil, 9999)
	assert.ErrorIs(t, err, repositories.ErrRankingTeamInvalid)

	require.NoError(t, repo.AddResult(ctx, nil, teams[0], 10, 1, 0))
	require.NoError(t, repo.AddPoints(ctx, nil, teams[0], 5))

	entry, err := repo.GetByTeamID(ctx, nil, teams[0])
	require.NoError(t, err)
	assert.Equal(t, 15, entry.Points)
	assert.Equal(t, 1, entry.Wins)
	assert.Equal(t, 1, entry.TournamentsPlayed)
	assert.Equal(t, "2v2", entry.Format)
	assert.NotEmpty(t, entry.TeamName)

	_, err = repo.GetByTeamID(ctx, nil, teams[1])
	assert.ErrorIs(t, err, repositories.ErrRankingNotFound)
	assert.ErrorIs(t, repo.AddResult(ctx, nil, teams[1], 1, 0, 0), repositories.ErrRankingNotFound)

	for _, id := range teams[1:] {
		_, err := repo.Ensure(ctx, nil, id)
		require.NoError(t, err)
	}
	require.NoError(t, repo.AddPoints(ctx, nil, teams[2], 15))

	list, err := repo.List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []int{teams[0], teams[2], teams[1]}, []int{list[0].TeamID, list[1].TeamID, list[2].TeamID},
		"ties are broken by team id")

	deleted, err := repo.DeleteByTeamIDs(ctx, nil, []int{teams[1], teams[2]})
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)
	list, err = repo.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCorrectionRunRepository_Postgres(t *testing.T) {
	pg.Reset(t)
	ctx := context.Background()
	repo := repositories.NewPostgresCorrectionRunRepository(pg.DB)
	key := "2025-bonus"

	run := &models.CorrectionRun{ID: uuid.New(), Job: models.JobPositionalBonus, IdempotencyKey: &key, AffectedTeams: 6}
	require.NoError(t, repo.Create(ctx, nil, run))

	err := repo.Create(ctx, nil, &models.CorrectionRun{ID: uuid.New(), Job: models.JobPositionalBonus, IdempotencyKey: &key})
	assert.ErrorIs(t, err, repositories.ErrCorrectionRunConflict)

	// The key is scoped to the job, and runs without a key never conflict.
	require.NoError(t, repo.Create(ctx, nil, &models.CorrectionRun{ID: uuid.New(), Job: models.JobFormatCleanup, IdempotencyKey: &key}))
	require.NoError(t, repo.Create(ctx, nil, &models.CorrectionRun{ID: uuid.New(), Job: models.JobPositionalBonus}))
	require.NoError(t, repo.Create(ctx, nil, &models.CorrectionRun{ID: uuid.New(), Job: models.JobPositionalBonus}))

	got, err := repo.GetByKey(ctx, nil, models.JobPositionalBonus, key)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, 6, got.AffectedTeams)

	_, err = repo.GetByKey(ctx, nil, models.JobChampionshipBackfill, key)
	assert.ErrorIs(t, err, repositories.ErrCorrectionRunNotFound)
}

func TestTeamRepository_Postgres(t *testing.T) {
	pg.Reset(t)
	ctx := context.Background()
	repo := repositories.NewPostgresTeamRepository(pg.DB)
	tid := pg.Tournament(t, "1v1")

	var pendingID int
	require.NoError(t, pg.DB.QueryRowContext(ctx,
		`INSERT INTO teams (name, tournament_id) VALUES ('Late', $1) RETURNING id`, tid).Scan(&pendingID))
	approved := pg.ApprovedTeams(t, tid, 2)

	status := models.TeamStatusApproved
	list, err := repo.ListByTournament(ctx, nil, tid, &status)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, repo.UpdateStatus(ctx, nil, pendingID, models.TeamStatusApproved))
	team, err := repo.GetByID(ctx, nil, pendingID)
	require.NoError(t, err)
	assert.Equal(t, models.TeamStatusApproved, team.Status)
	require.NotNil(t, team.ApprovedAt)

	list, err = repo.ListByTournament(ctx, nil, tid, &status)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, approved[0], list[0].ID)
	assert.Equal(t, pendingID, list[2].ID, "teams approved last are seeded last")

	require.NoError(t, repo.UpdateStatus(ctx, nil, pendingID, models.TeamStatusExpelled))
	team, err = repo.GetByID(ctx, nil, pendingID)
	require.NoError(t, err)
	assert.Equal(t, models.TeamStatusExpelled, team.Status)
	assert.NotNil(t, team.ApprovedAt, "approval time survives later status changes")

	assert.ErrorIs(t, repo.UpdateStatus(ctx, nil, 9999, models.TeamStatusRejected), repositories.ErrTeamNotFound)
}

func TestTxManager_RollsBackOnError(t *testing.T) {
	pg.Reset(t)
	ctx := context.Background()
	tx := repositories.NewPostgresTxManager(pg.DB)
	rounds := repositories.NewPostgresRoundRepository(pg.DB)
	tid := pg.Tournament(t, "1v1")

	err := tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := rounds.Create(ctx, exec, &models.BracketRound{TournamentID: tid, PhaseType: models.PhaseTypeSwiss, RoundKey: models.SwissRoundKey(1)}); err != nil {
			return err
		}
		return rounds.Create(ctx, exec, &models.BracketRound{TournamentID: tid, PhaseType: models.PhaseTypeSwiss, RoundKey: models.SwissRoundKey(1)})
	})
	require.ErrorIs(t, err, repositories.ErrRoundAlreadyExists)

	list, err := rounds.ListByTournament(ctx, nil, tid)
	require.NoError(t, err)
	assert.Empty(t, list)
}
