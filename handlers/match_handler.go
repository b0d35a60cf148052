package handlers

import (
	"errors"
	"net/http"

	"github.com/Dosada05/tournament-ranking/services"
)

type MatchHandler struct {
	matchService services.MatchService
}

func NewMatchHandler(ms services.MatchService) *MatchHandler {
	return &MatchHandler{matchService: ms}
}

type updateResultInput struct {
	Score1 *int `json:"score1"`
	Score2 *int `json:"score2"`
}

// ListHandler handles GET /tournaments/{tournamentID}/matches.
func (h *MatchHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	query := r.URL.Query()
	matches, err := h.matchService.ListMatches(r.Context(), tournamentID, services.MatchListFilter{
		PhaseType: query.Get("phase_type"),
		Round:     query.Get("round"),
		Status:    query.Get("status"),
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	successResponse(w, r, http.StatusOK, "ok", envelope{"matches": matches})
}

// UpdateResultHandler handles PUT /tournaments/{tournamentID}/matches/{matchID}/result.
func (h *MatchHandler) UpdateResultHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input updateResultInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.Score1 == nil || input.Score2 == nil {
		badRequestResponse(w, r, errors.New("score1 and score2 are required"))
		return
	}

	outcome, err := h.matchService.UpdateMatchResult(r.Context(), matchID, *input.Score1, *input.Score2, tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	successResponse(w, r, http.StatusOK, outcome.Message, envelope{"result": outcome})
}
