package handler

import (
	"net/http"

	"github.com/freeeve/blockfall/internal/service"
)

// SelfPlayHandler starts background self-play games.
type SelfPlayHandler struct {
	selfplay *service.SelfPlayService
}

// NewSelfPlayHandler creates a SelfPlayHandler.
func NewSelfPlayHandler(selfplay *service.SelfPlayService) *SelfPlayHandler {
	return &SelfPlayHandler{selfplay: selfplay}
}

// Start handles POST /api/v1/selfplay. It returns at once with the game ids;
// progress arrives over WebSocket and results land in the games table.
func (h *SelfPlayHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Games    int   `json:"games"`
		Seed     int64 `json:"seed,omitempty"`
		MaxMoves int   `json:"max_moves,omitempty"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	started, err := h.selfplay.Start(req.Games, req.Seed, req.MaxMoves)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"games": started})
}
