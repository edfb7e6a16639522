package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Maldini80/torneos-core/services"
)

type MatchHandler struct {
	matchService services.MatchService
}

func NewMatchHandler(ms services.MatchService) *MatchHandler {
	return &MatchHandler{
		matchService: ms,
	}
}

type submitReportInput struct {
	ReporterID string `json:"reporter_id"`
	Score      string `json:"score"`
}

// SubmitReportHandler обрабатывает POST /tournaments/{shortID}/matches/{matchID}/report
func (h *MatchHandler) SubmitReportHandler(w http.ResponseWriter, r *http.Request) {
	shortID := chi.URLParam(r, "shortID")
	matchID := chi.URLParam(r, "matchID")

	var input submitReportInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.ReporterID == "" {
		badRequestResponse(w, r, errors.New("reporter_id is required"))
		return
	}

	outcome, err := h.matchService.SubmitReport(r.Context(), shortID, matchID, input.ReporterID, input.Score)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"outcome": outcome}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type forceResultInput struct {
	GoalsA int `json:"goals_a"`
	GoalsB int `json:"goals_b"`
}

// ForceResultHandler обрабатывает POST /tournaments/{shortID}/matches/{matchID}/force-result
// Административное разрешение спора: затирает любой предыдущий результат.
func (h *MatchHandler) ForceResultHandler(w http.ResponseWriter, r *http.Request) {
	shortID := chi.URLParam(r, "shortID")
	matchID := chi.URLParam(r, "matchID")

	var input forceResultInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.GoalsA < 0 || input.GoalsB < 0 {
		badRequestResponse(w, r, errors.New("goals must be non-negative"))
		return
	}

	outcome, err := h.matchService.ForceResult(r.Context(), shortID, matchID, input.GoalsA, input.GoalsB)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"outcome": outcome}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
