package handlers

import (
	"net/http"

	"github.com/Dosada05/tournament-ranking/models"
	"github.com/Dosada05/tournament-ranking/services"
)

type RankingHandler struct {
	rankingService services.RankingService
}

func NewRankingHandler(rs services.RankingService) *RankingHandler {
	return &RankingHandler{rankingService: rs}
}

// ListHandler handles GET /rankings?format=1v1|2v2|3v3.
func (h *RankingHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	var group *models.FormatGroup
	if f := r.URL.Query().Get("format"); f != "" {
		g := models.FormatGroup(f)
		group = &g
	}

	rankings, err := h.rankingService.ListRankings(r.Context(), group)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	successResponse(w, r, http.StatusOK, "ok", envelope{"rankings": rankings})
}

// TeamHandler handles GET /teams/{teamID}/ranking.
func (h *RankingHandler) TeamHandler(w http.ResponseWriter, r *http.Request) {
	teamID, err := getIDFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	entry, err := h.rankingService.GetTeamRanking(r.Context(), teamID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	successResponse(w, r, http.StatusOK, "ok", envelope{"ranking": entry})
}
