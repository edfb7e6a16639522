package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Maldini80/torneos-core/models"
	"github.com/Maldini80/torneos-core/services"
)

type TeamHandler struct {
	teamService services.TeamService
}

func NewTeamHandler(ts services.TeamService) *TeamHandler {
	return &TeamHandler{
		teamService: ts,
	}
}

// RegisterHandler обрабатывает POST /tournaments/{shortID}/teams
func (h *TeamHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	shortID := chi.URLParam(r, "shortID")

	var input services.RegisterTeamInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.CaptainID == "" {
		badRequestResponse(w, r, errors.New("captain_id is required"))
		return
	}

	tournament, err := h.teamService.Register(r.Context(), shortID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ApproveHandler обрабатывает POST /tournaments/{shortID}/teams/{captainID}/approve
func (h *TeamHandler) ApproveHandler(w http.ResponseWriter, r *http.Request) {
	h.rosterAction(w, r, h.teamService.Approve)
}

// RejectHandler обрабатывает POST /tournaments/{shortID}/teams/{captainID}/reject
func (h *TeamHandler) RejectHandler(w http.ResponseWriter, r *http.Request) {
	h.rosterAction(w, r, h.teamService.Reject)
}

// KickHandler обрабатывает POST /tournaments/{shortID}/teams/{captainID}/kick
func (h *TeamHandler) KickHandler(w http.ResponseWriter, r *http.Request) {
	h.rosterAction(w, r, h.teamService.Kick)
}

// PromoteHandler обрабатывает POST /tournaments/{shortID}/teams/{captainID}/promote
func (h *TeamHandler) PromoteHandler(w http.ResponseWriter, r *http.Request) {
	h.rosterAction(w, r, h.teamService.PromoteFromWaitlist)
}

func (h *TeamHandler) rosterAction(
	w http.ResponseWriter,
	r *http.Request,
	action func(ctx context.Context, shortID, captainID string) (*models.Tournament, error),
) {
	shortID := chi.URLParam(r, "shortID")
	captainID := chi.URLParam(r, "captainID")
	if captainID == "" {
		badRequestResponse(w, r, errors.New("missing captainID URL parameter"))
		return
	}

	tournament, err := action(r.Context(), shortID, captainID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
