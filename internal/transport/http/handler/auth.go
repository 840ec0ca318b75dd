package handler

import (
	"net/http"

	"github.com/go-otp-gate/internal/application/auth"
	"github.com/go-otp-gate/internal/application/location"
	"github.com/go-otp-gate/internal/domain"
	"github.com/go-otp-gate/internal/pkg/contact"
	"github.com/go-otp-gate/internal/transport/http/middleware"
)

// AuthHandler serves the public sign-in surface and the signed-in
// contact verification endpoints.
type AuthHandler struct {
	svc      auth.Service
	location location.Service
	cookie   SessionCookie
}

func NewAuthHandler(svc auth.Service, loc location.Service, cookie SessionCookie) *AuthHandler {
	return &AuthHandler{svc: svc, location: loc, cookie: cookie}
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// contactRequest accepts either "email" or "contact".
type contactRequest struct {
	Email   string `json:"email"`
	Contact string `json:"contact"`
}

func (c contactRequest) identifier() string {
	if c.Email != "" {
		return c.Email
	}
	return c.Contact
}

type verifyOTPRequest struct {
	contactRequest
	domain.DeviceInfo
	OTP  string `json:"otp"`
	Code string `json:"code"`
}

func (v verifyOTPRequest) code() string {
	if v.OTP != "" {
		return v.OTP
	}
	return v.Code
}

type verifyLocationRequest struct {
	Email string `json:"email" validate:"required,email"`
	domain.DeviceInfo
}

type codeRequest struct {
	Code string `json:"code" validate:"required,numeric"`
}

type sessionResponse struct {
	OK   bool         `json:"ok"`
	User *domain.User `json:"user"`
}

type meResponse struct {
	OK    bool         `json:"ok"`
	User  *domain.User `json:"user"`
	Email string       `json:"email"`
	Role  domain.Role  `json:"role"`
}

func (h *AuthHandler) CheckEmail(w http.ResponseWriter, r *http.Request) {
	req, ok := bind[emailRequest](w, r)
	if !ok {
		return
	}
	exists, err := h.svc.CheckEmail(r.Context(), req.Email)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"exists": exists})
}

func (h *AuthHandler) VerifyLocation(w http.ResponseWriter, r *http.Request) {
	req, ok := bind[verifyLocationRequest](w, r)
	if !ok {
		return
	}
	info := deviceInfo(r, req.DeviceInfo)
	res, err := h.location.Assess(r.Context(), req.Email, info)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *AuthHandler) SendSignupOTP(w http.ResponseWriter, r *http.Request) {
	req, ok := bind[emailRequest](w, r)
	if !ok {
		return
	}
	res, err := h.svc.SendSignupOTP(r.Context(), req.Email)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeSent(w, res)
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	req, ok := bind[domain.SignupRequest](w, r)
	if !ok {
		return
	}
	sess, err := h.svc.Signup(r.Context(), req)
	if err != nil {
		httpError(w, r, err)
		return
	}
	h.cookie.set(w, sess.Token)
	writeJSON(w, http.StatusCreated, sessionResponse{OK: true, User: sess.User})
}

func (h *AuthHandler) PasswordLogin(w http.ResponseWriter, r *http.Request) {
	req, ok := bind[domain.PasswordLoginRequest](w, r)
	if !ok {
		return
	}
	sess, err := h.svc.PasswordLogin(r.Context(), req)
	if err != nil {
		httpError(w, r, err)
		return
	}
	h.cookie.set(w, sess.Token)
	writeJSON(w, http.StatusOK, sessionResponse{OK: true, User: sess.User})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, _ *http.Request) {
	h.cookie.clear(w)
	writeJSON(w, http.StatusOK, OKEnvelope{OK: true})
}

func (h *AuthHandler) SendLoginOTP(w http.ResponseWriter, r *http.Request) {
	req := decodeLenient[contactRequest](w, r)
	email, ok := loginEmail(w, req.identifier())
	if !ok {
		return
	}
	res, err := h.svc.SendLoginOTP(r.Context(), email)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeSent(w, res)
}

// VerifyLoginOTP answers 200 {"ok":false} for a wrong, expired or replayed
// code. Only a malformed request is a 400.
func (h *AuthHandler) VerifyLoginOTP(w http.ResponseWriter, r *http.Request) {
	req := decodeLenient[verifyOTPRequest](w, r)
	email, ok := loginEmail(w, req.identifier())
	if !ok {
		return
	}
	code := req.code()
	if code == "" {
		writeError(w, http.StatusBadRequest, CodePayloadInvalid, "otp is required")
		return
	}
	sess, err := h.svc.VerifyLoginOTP(r.Context(), email, code, deviceInfo(r, req.DeviceInfo))
	if err != nil {
		httpError(w, r, err)
		return
	}
	if sess == nil {
		writeJSON(w, http.StatusOK, OKEnvelope{OK: false})
		return
	}
	h.cookie.set(w, sess.Token)
	writeJSON(w, http.StatusOK, sessionResponse{OK: true, User: sess.User})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	idn := identity(r)
	u, err := h.svc.Me(r.Context(), idn.Claims.UserID)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, meResponse{OK: true, User: u, Email: u.Email, Role: idn.Role})
}

func (h *AuthHandler) SendEmailOTP(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.SendEmailOTP(r.Context(), identity(r).Claims.UserID)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeSent(w, res)
}

func (h *AuthHandler) VerifyEmailOTP(w http.ResponseWriter, r *http.Request) {
	req, ok := bind[codeRequest](w, r)
	if !ok {
		return
	}
	verified, err := h.svc.VerifyEmailOTP(r.Context(), identity(r).Claims.UserID, req.Code)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, OKEnvelope{OK: verified})
}

func (h *AuthHandler) SendPhoneOTP(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.SendPhoneOTP(r.Context(), identity(r).Claims.UserID)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeSent(w, res)
}

func (h *AuthHandler) VerifyPhoneOTP(w http.ResponseWriter, r *http.Request) {
	req, ok := bind[codeRequest](w, r)
	if !ok {
		return
	}
	verified, err := h.svc.VerifyPhoneOTP(r.Context(), identity(r).Claims.UserID, req.Code)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, OKEnvelope{OK: verified})
}

// loginEmail accepts only email contacts; accounts are keyed by email.
func loginEmail(w http.ResponseWriter, raw string) (string, bool) {
	norm, kind := contact.Parse(raw)
	switch kind {
	case contact.Email:
		return norm, true
	case contact.Phone:
		writeError(w, http.StatusBadRequest, CodePayloadInvalid, "sign-in by phone is not supported")
	default:
		writeError(w, http.StatusBadRequest, CodePayloadInvalid, "a valid email is required")
	}
	return "", false
}

func writeSent(w http.ResponseWriter, res *auth.SendResult) {
	writeJSON(w, http.StatusOK, SentEnvelope{Sent: true, MessageID: res.MessageID, DevCode: res.DevCode})
}

func deviceInfo(r *http.Request, in domain.DeviceInfo) domain.DeviceInfo {
	in.UserAgent = r.UserAgent()
	in.IP = middleware.ClientIP(r)
	return in
}

// identity is only called behind middleware.Auth.
func identity(r *http.Request) *middleware.Identity {
	id, _ := middleware.IdentityFromContext(r.Context())
	return id
}
