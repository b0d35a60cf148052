//go:build integration

// Package dbtest starts a throwaway Postgres for integration tests.
package dbtest

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Dosada05/tournament-ranking/db"
)

const (
	dbName    = "ranking_test"
	user      = "ranking"
	password  = "ranking"
	imageName = "postgres:16-alpine"
)

// Postgres is a migrated database running in a container.
type Postgres struct {
	DB        *sql.DB
	container *postgres.PostgresContainer
}

// Start runs the container and applies the schema.
func Start(ctx context.Context) (*Postgres, error) {
	pgContainer, err := postgres.Run(ctx,
		imageName,
		postgres.WithDatabase(dbName),
		postgres.WithUsername(user),
		postgres.WithPassword(password),
		testcontainers.WithWaitStrategy(
			wait.ForSQL("5432/tcp", "postgres",
				func(host string, port nat.Port) string {
					return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
						user, password, host, port.Port(), dbName)
				},
			).WithStartupTimeout(45*time.Second),
		),
	)
	if err != nil {
		if pgContainer != nil {
			_ = pgContainer.Terminate(ctx)
		}
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx)
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to get postgres connection string: %w", err)
	}
	parsedURL, err := url.Parse(connStr)
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	query := parsedURL.Query()
	query.Set("sslmode", "disable")
	parsedURL.RawQuery = query.Encode()

	conn, err := db.Connect(parsedURL.String(), 10*time.Second)
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, err
	}
	if err := db.Migrate(ctx, conn); err != nil {
		conn.Close()
		_ = pgContainer.Terminate(ctx)
		return nil, err
	}
	return &Postgres{DB: conn, container: pgContainer}, nil
}

// Stop closes the pool and removes the container.
func (p *Postgres) Stop(ctx context.Context) error {
	p.DB.Close()
	return p.container.Terminate(ctx)
}

// Reset empties every table and restarts the id sequences.
func (p *Postgres) Reset(t *testing.T) {
	t.Helper()
	_, err := p.DB.ExecContext(context.Background(),
		`TRUNCATE correction_runs, team_rankings, matches, bracket_rounds, teams, tournaments RESTART IDENTITY CASCADE`)
	if err != nil {
		t.Fatalf("failed to reset database: %v", err)
	}
}

// Tournament inserts a tournament and returns its id.
func (p *Postgres) Tournament(t *testing.T, format string) int {
	t.Helper()
	var id int
	err := p.DB.QueryRowContext(context.Background(),
		`INSERT INTO tournaments (name, format) VALUES ($1, $2) RETURNING id`,
		"Cup "+format, format).Scan(&id)
	if err != nil {
		t.Fatalf("failed to insert tournament: %v", err)
	}
	return id
}

// ApprovedTeams inserts n approved teams, approved one second apart in
// insertion order, and returns their ids.
func (p *Postgres) ApprovedTeams(t *testing.T, tournamentID, n int) []int {
	t.Helper()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	ids := make([]int, 0, n)
	for i := 0; i < n; i++ {
		var id int
		err := p.DB.QueryRowContext(context.Background(),
			`INSERT INTO teams (name, tournament_id, status, approved_at) VALUES ($1, $2, 'approved', $3) RETURNING id`,
			fmt.Sprintf("Team %d-%d", tournamentID, i+1), tournamentID, base.Add(time.Duration(i)*time.Second)).Scan(&id)
		if err != nil {
			t.Fatalf("failed to insert team: %v", err)
		}
		ids = append(ids, id)
	}
	return ids
}
