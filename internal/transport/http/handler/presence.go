package handler

import (
	"net/http"

	"github.com/go-otp-gate/internal/application/presence"
)

type PresenceHandler struct {
	svc presence.Service
}

func NewPresenceHandler(svc presence.Service) *PresenceHandler {
	return &PresenceHandler{svc: svc}
}

func (h *PresenceHandler) Beat(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Beat(r.Context(), identity(r).Claims.UserID); err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, OKEnvelope{OK: true})
}

// Online lists recently active users for the admin panel.
func (h *PresenceHandler) Online(w http.ResponseWriter, r *http.Request) {
	online, err := h.svc.Online(r.Context())
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"online": online})
}
