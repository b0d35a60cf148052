package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dosada05/tournament-ranking/brackets"
	"github.com/Dosada05/tournament-ranking/config"
	"github.com/Dosada05/tournament-ranking/db"
	"github.com/Dosada05/tournament-ranking/handlers"
	"github.com/Dosada05/tournament-ranking/metrics"
	"github.com/Dosada05/tournament-ranking/repositories"
	api "github.com/Dosada05/tournament-ranking/routes"
	"github.com/Dosada05/tournament-ranking/services"
	"github.com/Dosada05/tournament-ranking/storage"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort), slog.String("log_level", cfg.LogLevel.String()))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	if cfg.MigrateOnStart {
		if err := db.Migrate(context.Background(), dbConn); err != nil {
			logger.Error("failed to migrate database", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("database schema applied")
	}

	var archiver services.RankingArchiver
	if cfg.Archive.Enabled() {
		store, err := storage.NewCloudflareR2Store(context.Background(), storage.CloudflareR2Config{
			AccountID:       cfg.Archive.AccountID,
			AccessKeyID:     cfg.Archive.AccessKeyID,
			SecretAccessKey: cfg.Archive.SecretAccessKey,
			BucketName:      cfg.Archive.BucketName,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 archive", slog.Any("error", err))
			os.Exit(1)
		}
		archiver = storage.NewArchiver(store, cfg.Archive.Prefix)
		logger.Info("ranking archive enabled", slog.String("bucket", cfg.Archive.BucketName))
	} else {
		logger.Info("ranking archive disabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New(registry)

	wsHub := brackets.NewHub(logger)
	go wsHub.Run()
	defer wsHub.Stop()
	logger.Info("WebSocket Hub started")

	txManager := repositories.NewPostgresTxManager(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	teamRepo := repositories.NewPostgresTeamRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	roundRepo := repositories.NewPostgresRoundRepository(dbConn)
	rankingRepo := repositories.NewPostgresRankingRepository(dbConn)
	runRepo := repositories.NewPostgresCorrectionRunRepository(dbConn)

	revalidator := services.NewHubRevalidator(wsHub, logger)
	rankingService := services.NewRankingService(rankingRepo, appMetrics, logger)
	bracketService := services.NewBracketService(txManager, tournamentRepo, teamRepo, matchRepo, roundRepo, revalidator, appMetrics, logger)
	matchService := services.NewMatchService(txManager, tournamentRepo, matchRepo, roundRepo, rankingService, revalidator, appMetrics, logger)
	correctionService := services.NewCorrectionService(txManager, rankingRepo, matchRepo, runRepo, archiver, revalidator, appMetrics, logger)
	teamService := services.NewTeamService(tournamentRepo, teamRepo, revalidator, logger)
	logger.Info("services initialized")

	router := chi.NewRouter()
	api.SetupRoutes(router, api.Handlers{
		Bracket:     handlers.NewBracketHandler(bracketService),
		Match:       handlers.NewMatchHandler(matchService),
		Ranking:     handlers.NewRankingHandler(rankingService),
		Team:        handlers.NewTeamHandler(teamService),
		Maintenance: handlers.NewMaintenanceHandler(correctionService),
		WebSocket:   handlers.NewWebSocketHandler(wsHub, cfg.AllowedOrigins),
		Health:      handlers.NewHealthHandler(dbConn),
	}, api.Options{
		JWTSecret:      []byte(cfg.JWTSecretKey),
		AllowedOrigins: cfg.AllowedOrigins,
		Gatherer:       registry,
		Logger:         logger,
	})
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
}
