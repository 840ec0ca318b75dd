package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MessageEnvelope is {"message": "..."}.
type MessageEnvelope struct {
	Message string `json:"message"`
}

// HealthHandler answers liveness probes. It never touches a backend; use
// /doctor for reachability.
type HealthHandler struct{}

func NewHealthHandler() *HealthHandler { return &HealthHandler{} }

func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	if chi.URLParam(r, "action") == "ping" {
		writeJSON(w, http.StatusOK, MessageEnvelope{Message: "pong"})
		return
	}
	writeError(w, http.StatusNotFound, CodeNotFound, "unknown action")
}
