package handler

import (
	"net/http"
	"time"

	"github.com/go-otp-gate/internal/application/doctor"
	"github.com/go-otp-gate/internal/domain"
)

// DoctorHandler serves operator endpoints. The router mounts it only when
// debug endpoints are enabled.
type DoctorHandler struct {
	svc doctor.Service
}

func NewDoctorHandler(svc doctor.Service) *DoctorHandler {
	return &DoctorHandler{svc: svc}
}

func (h *DoctorHandler) Doctor(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Report(r.Context()))
}

type debugSessionResponse struct {
	UserID    string      `json:"user_id"`
	Email     string      `json:"email"`
	SessionID string      `json:"session_id"`
	Role      domain.Role `json:"role"`
	ExpiresAt *time.Time  `json:"expires_at,omitempty"`
}

// Session echoes the decoded session token of the caller.
func (h *DoctorHandler) Session(w http.ResponseWriter, r *http.Request) {
	idn := identity(r)
	resp := debugSessionResponse{
		UserID:    idn.Claims.UserID,
		Email:     idn.Claims.Email,
		SessionID: idn.Claims.SessionID,
		Role:      idn.Role,
	}
	if idn.Claims.ExpiresAt != nil {
		t := idn.Claims.ExpiresAt.Time
		resp.ExpiresAt = &t
	}
	writeJSON(w, http.StatusOK, resp)
}
