package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-otp-gate/internal/application/admin"
	"github.com/go-otp-gate/internal/application/role"
	"github.com/go-otp-gate/internal/application/userinfo"
	"github.com/go-otp-gate/internal/domain"
)

// AdminHandler serves user management. Permission checks happen in the
// router; handlers only see callers that passed them.
type AdminHandler struct {
	svc    admin.Service
	roles  role.Service
	events *UserInfoHandler
}

func NewAdminHandler(svc admin.Service, roles role.Service, events userinfo.Service) *AdminHandler {
	return &AdminHandler{svc: svc, roles: roles, events: NewUserInfoHandler(events)}
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.ListUsers(r.Context(), queryInt(r, "limit"), r.URL.Query().Get("cursor"))
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *AdminHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	detail, err := h.svc.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	actor := identity(r).Claims.UserID
	if err := h.svc.DeleteUser(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SuccessEnvelope{Success: true})
}

func (h *AdminHandler) UserEvents(w http.ResponseWriter, r *http.Request) {
	h.events.list(w, r, chi.URLParam(r, "id"))
}

func (h *AdminHandler) ListRoles(w http.ResponseWriter, r *http.Request) {
	assignments, err := h.roles.List(r.Context())
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"roles": assignments})
}

func (h *AdminHandler) AssignRole(w http.ResponseWriter, r *http.Request) {
	req, ok := bind[domain.RoleAssignmentInput](w, r)
	if !ok {
		return
	}
	a, err := h.roles.Assign(r.Context(), req)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}
