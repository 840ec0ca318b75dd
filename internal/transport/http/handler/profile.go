package handler

import (
	"net/http"

	"github.com/go-otp-gate/internal/application/profile"
	"github.com/go-otp-gate/internal/domain"
)

// ProfileHandler serves the caller's profile and the public
// security-question endpoints used during account recovery.
type ProfileHandler struct {
	svc profile.Service
}

func NewProfileHandler(svc profile.Service) *ProfileHandler {
	return &ProfileHandler{svc: svc}
}

type profileResponse struct {
	OK      bool            `json:"ok"`
	Profile *domain.Profile `json:"profile"`
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Get(r.Context(), identity(r).Claims.UserID)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profileResponse{OK: true, Profile: p})
}

func (h *ProfileHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	req, ok := bind[domain.ProfileInput](w, r)
	if !ok {
		return
	}
	p, err := h.svc.Upsert(r.Context(), identity(r).Claims.UserID, req)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profileResponse{OK: true, Profile: p})
}

func (h *ProfileHandler) Questions(w http.ResponseWriter, r *http.Request) {
	req, ok := bind[emailRequest](w, r)
	if !ok {
		return
	}
	qs, err := h.svc.Questions(r.Context(), req.Email)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"questions": qs})
}

func (h *ProfileHandler) VerifyAnswer(w http.ResponseWriter, r *http.Request) {
	req, ok := bind[domain.VerifyAnswerRequest](w, r)
	if !ok {
		return
	}
	correct, err := h.svc.VerifyAnswer(r.Context(), req.Email, *req.QuestionIndex, req.Answer)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"correct": correct})
}
