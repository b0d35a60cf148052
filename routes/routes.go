package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/Dosada05/tournament-ranking/handlers"
	"github.com/Dosada05/tournament-ranking/middleware"
	"github.com/Dosada05/tournament-ranking/models"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Options struct {
	JWTSecret      []byte
	AllowedOrigins []string
	Gatherer       prometheus.Gatherer
	Logger         *slog.Logger
}

type Handlers struct {
	Bracket     *handlers.BracketHandler
	Match       *handlers.MatchHandler
	Ranking     *handlers.RankingHandler
	Team        *handlers.TeamHandler
	Maintenance *handlers.MaintenanceHandler
	WebSocket   *handlers.WebSocketHandler
	Health      *handlers.HealthHandler
}

func SetupRoutes(router chi.Router, h Handlers, opts Options) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	authenticate := middleware.Authenticate(opts.JWTSecret, logger)

	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	if h.Health != nil {
		router.Method(http.MethodGet, "/healthz", h.Health)
	}

	// Websocket routes stay outside the timeout middleware.
	router.Route("/ws", func(r chi.Router) {
		r.Get("/tournaments/{tournamentID}", h.WebSocket.ServeTournament)
		r.Get("/rankings", h.WebSocket.ServeRankings)
	})

	router.Group(func(r chi.Router) {
		r.Use(chiMiddleware.Timeout(30 * time.Second))

		r.Get("/rankings", h.Ranking.ListHandler)
		r.Get("/teams/{teamID}/ranking", h.Ranking.TeamHandler)

		r.Route("/tournaments/{tournamentID}", func(r chi.Router) {
			r.Get("/bracket", h.Bracket.GetHandler)
			r.Get("/matches", h.Match.ListHandler)
			r.Get("/teams", h.Team.ListHandler)

			r.Group(func(r chi.Router) {
				r.Use(authenticate)
				r.Use(middleware.Authorize(models.RoleAdmin, models.RoleOrganizer))

				r.Post("/bracket", h.Bracket.GenerateHandler)
				r.Delete("/matches", h.Bracket.DeleteMatchesHandler)
				r.Put("/matches/{matchID}/result", h.Match.UpdateResultHandler)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(middleware.Authorize(models.RoleAdmin, models.RoleOrganizer))
			r.Patch("/teams/{teamID}/status", h.Team.ChangeStatusHandler)
		})

		r.Route("/maintenance", func(r chi.Router) {
			r.Use(authenticate)
			r.Use(middleware.Authorize(models.RoleAdmin))

			r.Get("/positional-bonus", h.Maintenance.PositionalBonusHandler)
			r.Get("/championship-backfill", h.Maintenance.ChampionshipBackfillHandler)
			r.Get("/cleanup-3v3", h.Maintenance.FormatCleanupHandler)
		})
	})
}
