package handler

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/freeeve/blockfall/internal/service"
)

// GameHandler serves finished game records.
type GameHandler struct {
	games *service.GameService
}

// NewGameHandler creates a GameHandler.
func NewGameHandler(games *service.GameService) *GameHandler {
	return &GameHandler{games: games}
}

// List handles GET /api/v1/games?limit=N, best scores first.
func (h *GameHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	games, err := h.games.ListTop(r.Context(), limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, games)
}

// Get handles GET /api/v1/games/{id}
func (h *GameHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	// Game ids are UUIDs; anything else cannot exist.
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusNotFound, service.ErrGameNotFound.Error())
		return
	}
	g, err := h.games.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}
