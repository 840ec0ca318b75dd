package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-otp-gate/internal/config"
	"github.com/go-otp-gate/internal/domain"
	"github.com/go-otp-gate/internal/transport/http/handler"
	appmiddleware "github.com/go-otp-gate/internal/transport/http/middleware"
)

// NewRouter builds the application router. limiter guards the endpoints
// that send codes or check credentials; the caller owns its lifetime.
func NewRouter(cfg *config.Config, deps *Deps, limiter *appmiddleware.RateLimiter) http.Handler {
	r := chi.NewRouter()
	r.Use(appmiddleware.RealIP(deps.Proxies))
	r.Use(chimiddleware.RequestID)
	r.Use(appmiddleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: !allowsAnyOrigin(cfg.AllowedOrigins),
		MaxAge:           300,
	}))

	cookie := handler.SessionCookie{
		Name:   cfg.SessionCookieName,
		Secure: cfg.SessionCookieSecure || cfg.IsProduction(),
		MaxAge: deps.Tokens.Expiry(),
	}
	authMw := appmiddleware.Auth(deps.Tokens, deps.Resolver, deps.Accounts, cfg.SessionCookieName)

	healthH := handler.NewHealthHandler()
	authH := handler.NewAuthHandler(deps.Auth, deps.Location, cookie)
	profileH := handler.NewProfileHandler(deps.Profiles)
	sessionH := handler.NewSessionValueHandler(deps.Sessions)
	presenceH := handler.NewPresenceHandler(deps.Presence)
	userInfoH := handler.NewUserInfoHandler(deps.UserInfo)
	adminH := handler.NewAdminHandler(deps.Admin, deps.Roles, deps.UserInfo)

	// ── Public routes (no auth) ──────────────────────────────────────────
	r.Get("/health-check/{action}", healthH.Ping)
	r.Post("/auth/check-email", authH.CheckEmail)
	r.Post("/auth/verify-location", authH.VerifyLocation)
	r.Post("/auth/logout", authH.Logout)
	r.Post("/auth/security-questions", profileH.Questions)

	r.Group(func(r chi.Router) {
		r.Use(limiter.Limit)

		r.Post("/auth/signup/send-otp", authH.SendSignupOTP)
		r.Post("/auth/signup", authH.Signup)
		r.Post("/auth/login/password", authH.PasswordLogin)
		r.Post("/login/send-otp", authH.SendLoginOTP)
		r.Post("/login/verify-otp", authH.VerifyLoginOTP)
		r.Post("/auth/security-questions/verify", profileH.VerifyAnswer)
	})

	// ── Authenticated routes ─────────────────────────────────────────────
	r.Group(func(r chi.Router) {
		r.Use(authMw)

		r.Get("/me", authH.Me)
		r.Get("/profile", profileH.Get)
		r.Post("/profile", profileH.Upsert)
		r.With(limiter.Limit).Post("/email/send-otp", authH.SendEmailOTP)
		r.Post("/email/verify-otp", authH.VerifyEmailOTP)
		r.With(limiter.Limit).Post("/phone/send-otp", authH.SendPhoneOTP)
		r.Post("/phone/verify-otp", authH.VerifyPhoneOTP)
		r.Post("/presence/beat", presenceH.Beat)
		r.Post("/session/get", sessionH.Get)
		r.Post("/session/set", sessionH.Set)
		r.Post("/session/remove", sessionH.Remove)
		r.Get("/user-info", userInfoH.List)
		r.Post("/user-info", userInfoH.Record)

		r.Route("/admin", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequirePermission(domain.Role.CanManageUsers))

				r.Get("/users", adminH.ListUsers)
				r.Get("/users/{id}", adminH.GetUser)
				r.Get("/users/{id}/events", adminH.UserEvents)
				r.Get("/presence", presenceH.Online)
			})
			r.With(appmiddleware.RequirePermission(domain.Role.CanDeleteUsers)).Delete("/users/{id}", adminH.DeleteUser)
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequirePermission(domain.Role.IsAdmin))

				r.Get("/roles", adminH.ListRoles)
				r.Put("/roles", adminH.AssignRole)
			})
		})
	})

	// ── Operator routes ──────────────────────────────────────────────────
	if cfg.DebugEnabled() {
		doctorH := handler.NewDoctorHandler(deps.Doctor)
		r.Get("/doctor", doctorH.Doctor)
		r.With(authMw).Get("/debug/session", doctorH.Session)
	}

	return r
}

func allowsAnyOrigin(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
