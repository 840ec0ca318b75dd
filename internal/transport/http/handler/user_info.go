package handler

import (
	"net/http"
	"strconv"

	"github.com/go-otp-gate/internal/application/userinfo"
	"github.com/go-otp-gate/internal/transport/http/middleware"
)

type UserInfoHandler struct {
	svc userinfo.Service
}

func NewUserInfoHandler(svc userinfo.Service) *UserInfoHandler {
	return &UserInfoHandler{svc: svc}
}

func (h *UserInfoHandler) Record(w http.ResponseWriter, r *http.Request) {
	req, ok := bind[userinfo.RecordInput](w, r)
	if !ok {
		return
	}
	userID := identity(r).Claims.UserID
	if _, err := h.svc.Record(r.Context(), userID, req, middleware.ClientIP(r), r.UserAgent()); err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SuccessEnvelope{Success: true})
}

// List returns the caller's own events, newest first.
func (h *UserInfoHandler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, identity(r).Claims.UserID)
}

func (h *UserInfoHandler) list(w http.ResponseWriter, r *http.Request, userID string) {
	events, err := h.svc.List(r.Context(), userID, queryInt(r, "limit"))
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}

// queryInt returns 0 when the parameter is absent or not a number.
func queryInt(r *http.Request, name string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return n
}
