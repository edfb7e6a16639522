package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Maldini80/torneos-core/models"
	"github.com/Maldini80/torneos-core/services"
	"github.com/Maldini80/torneos-core/standings"
)

type TournamentHandler struct {
	tournamentService services.TournamentService
}

func NewTournamentHandler(ts services.TournamentService) *TournamentHandler {
	return &TournamentHandler{
		tournamentService: ts,
	}
}

// CreateHandler обрабатывает POST /tournaments
func (h *TournamentHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	var input services.CreateTournamentInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.CreateTournament(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetByShortIDHandler обрабатывает GET /tournaments/{shortID}
func (h *TournamentHandler) GetByShortIDHandler(w http.ResponseWriter, r *http.Request) {
	shortID := chi.URLParam(r, "shortID")
	if shortID == "" {
		badRequestResponse(w, r, errors.New("missing shortID URL parameter"))
		return
	}

	tournament, err := h.tournamentService.GetTournamentByShortID(r.Context(), shortID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListHandler обрабатывает GET /tournaments
func (h *TournamentHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	var filter services.ListTournamentsFilter
	query := r.URL.Query()

	for _, statusStr := range query["status"] {
		filter.Statuses = append(filter.Statuses, models.TournamentStatus(statusStr))
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 {
			filter.Limit = limit
		} else {
			badRequestResponse(w, r, errors.New("invalid limit query parameter"))
			return
		}
	} else {
		filter.Limit = 20
	}
	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil && offset >= 0 {
			filter.Offset = offset
		} else {
			badRequestResponse(w, r, errors.New("invalid offset query parameter"))
			return
		}
	}

	tournaments, err := h.tournamentService.ListTournaments(r.Context(), filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournaments": tournaments}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// StandingsHandler обрабатывает GET /tournaments/{shortID}/standings —
// отсортированные таблицы всех групп.
func (h *TournamentHandler) StandingsHandler(w http.ResponseWriter, r *http.Request) {
	shortID := chi.URLParam(r, "shortID")

	tournament, err := h.tournamentService.GetTournamentByShortID(r.Context(), shortID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if tournament.Structure == nil {
		badRequestResponse(w, r, errors.New("tournament has no structure yet"))
		return
	}

	tables := make(map[string][]*models.TeamInGroup, len(tournament.Structure.Groups))
	for name, group := range tournament.Structure.Groups {
		tables[name] = standings.Rank(group, tournament.Structure.Schedule[name])
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"standings": tables}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// DrawHandler обрабатывает POST /tournaments/{shortID}/draw
func (h *TournamentHandler) DrawHandler(w http.ResponseWriter, r *http.Request) {
	shortID := chi.URLParam(r, "shortID")

	tournament, err := h.tournamentService.Draw(r.Context(), shortID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UndoDrawHandler обрабатывает POST /tournaments/{shortID}/undo-draw
func (h *TournamentHandler) UndoDrawHandler(w http.ResponseWriter, r *http.Request) {
	shortID := chi.URLParam(r, "shortID")

	tournament, err := h.tournamentService.UndoDraw(r.Context(), shortID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// CancelHandler обрабатывает POST /tournaments/{shortID}/cancel
func (h *TournamentHandler) CancelHandler(w http.ResponseWriter, r *http.Request) {
	shortID := chi.URLParam(r, "shortID")

	tournament, err := h.tournamentService.CancelTournament(r.Context(), shortID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// DeleteHandler обрабатывает DELETE /tournaments/{shortID}
func (h *TournamentHandler) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	shortID := chi.URLParam(r, "shortID")

	if err := h.tournamentService.DeleteTournament(r.Context(), shortID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
