package handler

import (
	"encoding/json"
	"net/http"

	"github.com/freeeve/blockfall/internal/service"
)

// SessionHandler handles live session endpoints.
type SessionHandler struct {
	sessions *service.SessionService
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(sessions *service.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Create handles POST /api/v1/sessions. Every field is optional: an empty
// body starts an empty board with the default network.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TPN     string          `json:"tpn,omitempty"`
		Weights json.RawMessage `json:"weights,omitempty"`
		Seed    int64           `json:"seed,omitempty"`
	}
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	sess, err := h.sessions.Create(r.Context(), req.TPN, req.Weights, req.Seed)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

// Get handles GET /api/v1/sessions/{id}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// Step handles POST /api/v1/sessions/{id}/step
func (h *SessionHandler) Step(w http.ResponseWriter, r *http.Request) {
	res, err := h.sessions.Step(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Delete handles DELETE /api/v1/sessions/{id}
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
