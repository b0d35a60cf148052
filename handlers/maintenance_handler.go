package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Dosada05/tournament-ranking/middleware"
	"github.com/Dosada05/tournament-ranking/services"
)

type MaintenanceHandler struct {
	correctionService services.CorrectionService
}

func NewMaintenanceHandler(cs services.CorrectionService) *MaintenanceHandler {
	return &MaintenanceHandler{correctionService: cs}
}

type correctionJob func(ctx context.Context, opts services.CorrectionOptions) (*services.CorrectionResult, error)

func (h *MaintenanceHandler) runJob(w http.ResponseWriter, r *http.Request, job correctionJob) {
	opts := services.CorrectionOptions{IdempotencyKey: r.URL.Query().Get("key")}

	attrs := []any{slog.String("path", r.URL.Path), slog.String("key", opts.IdempotencyKey)}
	if userID, err := middleware.GetUserIDFromContext(r.Context()); err == nil {
		attrs = append(attrs, slog.Int("user_id", userID))
	}
	slog.InfoContext(r.Context(), "maintenance job requested", attrs...)

	result, err := job(r.Context(), opts)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	payload := envelope{
		"run_id":          result.RunID,
		"already_applied": result.AlreadyApplied,
	}
	if result.Updated != nil {
		payload["updated"] = result.Updated
	}
	if result.Deleted != nil {
		payload["deleted"] = result.Deleted
	}
	if result.ArchiveKey != "" {
		payload["archive_key"] = result.ArchiveKey
	}
	successResponse(w, r, http.StatusOK, result.Message, payload)
}

// PositionalBonusHandler handles GET /maintenance/positional-bonus.
func (h *MaintenanceHandler) PositionalBonusHandler(w http.ResponseWriter, r *http.Request) {
	h.runJob(w, r, h.correctionService.AwardPositionalBonus)
}

// ChampionshipBackfillHandler handles GET /maintenance/championship-backfill.
func (h *MaintenanceHandler) ChampionshipBackfillHandler(w http.ResponseWriter, r *http.Request) {
	h.runJob(w, r, h.correctionService.BackfillChampionshipPoints)
}

// FormatCleanupHandler handles GET /maintenance/cleanup-3v3.
func (h *MaintenanceHandler) FormatCleanupHandler(w http.ResponseWriter, r *http.Request) {
	h.runJob(w, r, h.correctionService.DeleteNonStandardFormatRankings)
}
