package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-otp-gate/internal/domain"
	"github.com/rs/zerolog/log"
)

// Machine-readable error codes.
const (
	CodePayloadInvalid = "PAYLOAD_INVALID"
	CodeBadJSON        = "BAD_JSON"
	CodeUnauthorized   = "UNAUTHORIZED"
	CodeForbidden      = "FORBIDDEN"
	CodeNotFound       = "NOT_FOUND"
	CodeConflict       = "CONFLICT"
	CodeUnavailable    = "UNAVAILABLE"
	CodeInternal       = "INTERNAL"
)

// ErrorEnvelope is the body of every failed request.
type ErrorEnvelope struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// OKEnvelope is {"ok": bool}.
type OKEnvelope struct {
	OK bool `json:"ok"`
}

// SuccessEnvelope is {"success": true}.
type SuccessEnvelope struct {
	Success bool `json:"success"`
}

// SentEnvelope answers every send-otp endpoint. DevCode only appears in dev mode.
type SentEnvelope struct {
	Sent      bool   `json:"sent"`
	MessageID string `json:"messageId"`
	DevCode   string `json:"devCode,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorEnvelope{OK: false, Error: code, Message: msg})
}

// httpError maps domain sentinels to status codes and a fixed message, so
// wrapped error text never reaches the client. Anything else is an upstream
// failure: logged in full, reported to the client generically.
func httpError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, CodePayloadInvalid, "invalid request")
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, CodeForbidden, "forbidden")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, CodeNotFound, "not found")
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, CodeConflict, "conflict")
	case errors.Is(err, domain.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, CodeUnavailable, "service unavailable")
	default:
		log.Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request_id", chimiddleware.GetReqID(r.Context())).
			Msg("request failed")
		writeError(w, http.StatusInternalServerError, CodeInternal, "internal error")
	}
}
