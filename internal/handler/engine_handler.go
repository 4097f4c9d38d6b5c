package handler

import (
	"encoding/json"
	"net/http"

	"github.com/freeeve/blockfall/internal/service"
)

// EngineHandler answers one-off searches.
type EngineHandler struct {
	engine *service.EngineService
}

// NewEngineHandler creates an EngineHandler.
func NewEngineHandler(engine *service.EngineService) *EngineHandler {
	return &EngineHandler{engine: engine}
}

// BestMove handles POST /api/v1/bestmove
func (h *EngineHandler) BestMove(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TPN     string          `json:"tpn"`
		Weights json.RawMessage `json:"weights,omitempty"`
		Depth   int             `json:"depth,omitempty"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TPN == "" {
		writeError(w, http.StatusBadRequest, "tpn is required")
		return
	}

	res, err := h.engine.BestMove(r.Context(), req.TPN, req.Weights, req.Depth)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
