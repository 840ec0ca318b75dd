package handler

import (
	"net/http"
	"time"

	"github.com/go-otp-gate/internal/application/session"
)

// SessionValueHandler exposes the caller's key/value store. Bodies are
// decoded strictly: malformed JSON is a 400 BAD_JSON.
type SessionValueHandler struct {
	svc session.Service
}

func NewSessionValueHandler(svc session.Service) *SessionValueHandler {
	return &SessionValueHandler{svc: svc}
}

type sessionKeyRequest struct {
	Key string `json:"key" validate:"required,max=128"`
}

type sessionSetRequest struct {
	Key        string `json:"key" validate:"required,max=128"`
	Value      string `json:"value" validate:"max=4096"`
	TTLSeconds int64  `json:"ttl_seconds"`
}

func (h *SessionValueHandler) Get(w http.ResponseWriter, r *http.Request) {
	req, ok := bindStrict[sessionKeyRequest](w, r)
	if !ok {
		return
	}
	v, err := h.svc.Get(r.Context(), identity(r).Claims.UserID, req.Key)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]*string{"value": v})
}

func (h *SessionValueHandler) Set(w http.ResponseWriter, r *http.Request) {
	req, ok := bindStrict[sessionSetRequest](w, r)
	if !ok {
		return
	}
	ttl := time.Duration(req.TTLSeconds) * time.Second
	if req.TTLSeconds > int64(session.MaxTTL/time.Second) {
		ttl = session.MaxTTL
	}
	if err := h.svc.Set(r.Context(), identity(r).Claims.UserID, req.Key, req.Value, ttl); err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SuccessEnvelope{Success: true})
}

func (h *SessionValueHandler) Remove(w http.ResponseWriter, r *http.Request) {
	req, ok := bindStrict[sessionKeyRequest](w, r)
	if !ok {
		return
	}
	if err := h.svc.Remove(r.Context(), identity(r).Claims.UserID, req.Key); err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SuccessEnvelope{Success: true})
}
