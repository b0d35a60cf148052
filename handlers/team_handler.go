package handlers

import (
	"net/http"

	"github.com/Dosada05/tournament-ranking/models"
	"github.com/Dosada05/tournament-ranking/services"
)

type TeamHandler struct {
	teamService services.TeamService
}

func NewTeamHandler(ts services.TeamService) *TeamHandler {
	return &TeamHandler{teamService: ts}
}

type changeStatusInput struct {
	Status models.TeamStatus `json:"status"`
}

// ListHandler handles GET /tournaments/{tournamentID}/teams?status=.
func (h *TeamHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var status *models.TeamStatus
	if s := r.URL.Query().Get("status"); s != "" {
		ts := models.TeamStatus(s)
		status = &ts
	}

	teams, err := h.teamService.ListTeams(r.Context(), tournamentID, status)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	successResponse(w, r, http.StatusOK, "ok", envelope{"teams": teams})
}

// ChangeStatusHandler handles PATCH /teams/{teamID}/status.
func (h *TeamHandler) ChangeStatusHandler(w http.ResponseWriter, r *http.Request) {
	teamID, err := getIDFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input changeStatusInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	team, err := h.teamService.ChangeStatus(r.Context(), teamID, input.Status)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	successResponse(w, r, http.StatusOK, "Team status updated", envelope{"team": team})
}
