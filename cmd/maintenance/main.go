package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Dosada05/tournament-ranking/config"
	"github.com/Dosada05/tournament-ranking/db"
	"github.com/Dosada05/tournament-ranking/middleware"
	"github.com/Dosada05/tournament-ranking/models"
	"github.com/Dosada05/tournament-ranking/repositories"
	"github.com/Dosada05/tournament-ranking/services"
	"github.com/Dosada05/tournament-ranking/storage"
	"github.com/urfave/cli/v2"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	app := &cli.App{
		Name:  "maintenance",
		Usage: "schema and ranking maintenance for the tournament ranking service",
		Commands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "apply the database schema",
				Action: func(c *cli.Context) error {
					return withDB(logger, func(_ *config.Config, conn *sql.DB) error {
						if err := db.Migrate(c.Context, conn); err != nil {
							return err
						}
						logger.Info("database schema applied")
						return nil
					})
				},
			},
			correctionCommand("positional-bonus", "award 15/10/5 points to the top three of each format", logger,
				func(s services.CorrectionService) jobRunner { return s.AwardPositionalBonus }),
			correctionCommand("championship-backfill", "top up 1v1 champions to wins*10+40 points", logger,
				func(s services.CorrectionService) jobRunner { return s.BackfillChampionshipPoints }),
			correctionCommand("cleanup-3v3", "delete rankings of teams outside the 1v1 and 2v2 formats", logger,
				func(s services.CorrectionService) jobRunner { return s.DeleteNonStandardFormatRankings }),
			{
				Name:  "token",
				Usage: "issue an access token for the admin API",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "user-id", Value: 1, Usage: "user id claim"},
					&cli.StringFlag{Name: "role", Value: string(models.RoleAdmin), Usage: "admin, organizer or player"},
					&cli.DurationFlag{Name: "ttl", Value: 24 * time.Hour, Usage: "token lifetime"},
				},
				Action: func(c *cli.Context) error {
					cfg, err := config.Load()
					if err != nil {
						return err
					}
					role := models.UserRole(c.String("role"))
					if !role.Valid() {
						return fmt.Errorf("unknown role %q", role)
					}
					token, err := middleware.IssueToken([]byte(cfg.JWTSecretKey), c.Int("user-id"), role, c.Duration("ttl"))
					if err != nil {
						return err
					}
					fmt.Fprintln(c.App.Writer, token)
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Error("maintenance command failed", slog.Any("error", err))
		os.Exit(1)
	}
}

type jobRunner func(ctx context.Context, opts services.CorrectionOptions) (*services.CorrectionResult, error)

func correctionCommand(name, usage string, logger *slog.Logger, pick func(services.CorrectionService) jobRunner) *cli.Command {
	return &cli.Command{
		Name:  name,
		Usage: usage,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "key", Usage: "idempotency key; a second run with the same key is skipped"},
		},
		Action: func(c *cli.Context) error {
			return withDB(logger, func(cfg *config.Config, conn *sql.DB) error {
				var archiver services.RankingArchiver
				if cfg.Archive.Enabled() {
					store, err := storage.NewCloudflareR2Store(c.Context, storage.CloudflareR2Config{
						AccountID:       cfg.Archive.AccountID,
						AccessKeyID:     cfg.Archive.AccessKeyID,
						SecretAccessKey: cfg.Archive.SecretAccessKey,
						BucketName:      cfg.Archive.BucketName,
					})
					if err != nil {
						return err
					}
					archiver = storage.NewArchiver(store, cfg.Archive.Prefix)
				}

				svc := services.NewCorrectionService(
					repositories.NewPostgresTxManager(conn),
					repositories.NewPostgresRankingRepository(conn),
					repositories.NewPostgresMatchRepository(conn),
					repositories.NewPostgresCorrectionRunRepository(conn),
					archiver,
					nil,
					nil,
					logger,
				)
				result, err := pick(svc)(c.Context, services.CorrectionOptions{IdempotencyKey: c.String("key")})
				if err != nil {
					return err
				}
				enc := json.NewEncoder(c.App.Writer)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			})
		},
	}
}

func withDB(logger *slog.Logger, fn func(cfg *config.Config, conn *sql.DB) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	conn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		return err
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		}
	}()
	return fn(cfg, conn)
}
