package http

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-otp-gate/internal/application/doctor"
	"github.com/go-otp-gate/internal/application/role"
	"github.com/go-otp-gate/internal/config"
	"github.com/go-otp-gate/internal/domain"
	jwtinfra "github.com/go-otp-gate/internal/infrastructure/jwt"
	appmiddleware "github.com/go-otp-gate/internal/transport/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type stubDoctor struct{}

// stubAccounts knows u1 (enabled) and off (soft-deleted).
type stubAccounts struct{}

func (stubAccounts) Get(_ context.Context, userID string) (*domain.User, error) {
	switch userID {
	case "u1":
		return &domain.User{UserID: "u1", Enable: true}, nil
	case "off":
		return &domain.User{UserID: "off", Enable: false}, nil
	}
	return nil, domain.ErrNotFound
}

// stubPresence records heartbeats.
type stubPresence struct {
	mu    sync.Mutex
	beats []string
}

func (s *stubPresence) Beat(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.beats = append(s.beats, userID)
	return nil
}

func (s *stubPresence) Get(context.Context, string) (*domain.Presence, error) {
	return nil, domain.ErrNotFound
}

func (s *stubPresence) Online(context.Context) ([]domain.Presence, error) { return nil, nil }

func (stubDoctor) Report(context.Context) doctor.Report {
	return doctor.Report{Env: map[string]bool{}, BackendOK: true}
}

func newTestRouter(t *testing.T, appEnv string) (http.Handler, *jwtinfra.Provider) {
	t.Helper()
	router, tokens, _ := newTestRouterWithPresence(t, appEnv)
	return router, tokens
}

func newTestRouterWithPresence(t *testing.T, appEnv string) (http.Handler, *jwtinfra.Provider, *stubPresence) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	tokens := jwtinfra.NewProviderFromKeys(key, &key.PublicKey, time.Hour)

	cfg := &config.Config{
		AppEnv:            appEnv,
		SessionCookieName: "otp_session",
		AllowedOrigins:    []string{"*"},
	}
	beats := &stubPresence{}
	deps := &Deps{
		Presence: beats,
		Doctor:   stubDoctor{},
		Tokens:   tokens,
		Resolver: role.NewStaticResolver([]string{"root@example.com"}, []string{"mod@example.com"}),
		Accounts: stubAccounts{},
	}
	limiter := appmiddleware.NewRateLimiter(rate.Limit(1), 1)
	t.Cleanup(limiter.Stop)
	return NewRouter(cfg, deps, limiter), tokens, beats
}

func withSession(t *testing.T, p *jwtinfra.Provider, r *http.Request, email string) *http.Request {
	t.Helper()
	return withSessionFor(t, p, r, "u1", email)
}

func withSessionFor(t *testing.T, p *jwtinfra.Provider, r *http.Request, userID, email string) *http.Request {
	t.Helper()
	token, err := p.Sign(userID, email, "s1")
	require.NoError(t, err)
	r.AddCookie(&http.Cookie{Name: "otp_session", Value: token})
	return r
}

func TestRouter_MeRequiresSession(t *testing.T) {
	router, _ := newTestRouter(t, "development")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRouter_AdminPermissions(t *testing.T) {
	router, p := newTestRouter(t, "development")

	tests := []struct {
		name   string
		method string
		path   string
		email  string
		want   int
	}{
		{"viewer cannot list users", http.MethodGet, "/admin/users", "a@b.com", http.StatusForbidden},
		{"moderator cannot delete users", http.MethodDelete, "/admin/users/u2", "mod@example.com", http.StatusForbidden},
		{"moderator cannot read roles", http.MethodGet, "/admin/roles", "mod@example.com", http.StatusForbidden},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, withSession(t, p, httptest.NewRequest(tc.method, tc.path, nil), tc.email))
			assert.Equal(t, tc.want, rr.Code)
		})
	}
}

func TestRouter_DebugEndpointsGated(t *testing.T) {
	dev, _ := newTestRouter(t, "development")
	rr := httptest.NewRecorder()
	dev.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/doctor", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"backend_ok":true`)

	prod, _ := newTestRouter(t, "production")
	rr = httptest.NewRecorder()
	prod.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/doctor", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRouter_OTPEndpointsRateLimited(t *testing.T) {
	router, _ := newTestRouter(t, "development")

	send := func() int {
		r := httptest.NewRequest(http.MethodPost, "/login/send-otp", strings.NewReader(`{"contact":"+1 650-253-0000"}`))
		r.RemoteAddr = "192.0.2.1:1234"
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, r)
		return rr.Code
	}
	// Phone contacts are rejected before any service call, so only the
	// limiter decides between 400 and 429.
	assert.Equal(t, http.StatusBadRequest, send())
	assert.Equal(t, http.StatusTooManyRequests, send())
}

func TestRouter_DisabledAccountTokenRejected(t *testing.T) {
	router, p, beats := newTestRouterWithPresence(t, "development")

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, withSessionFor(t, p, httptest.NewRequest(http.MethodPost, "/presence/beat", nil), "off", "off@example.com"))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, withSessionFor(t, p, httptest.NewRequest(http.MethodPost, "/presence/beat", nil), "gone", "root@example.com"))
	assert.Equal(t, http.StatusUnauthorized, rr.Code, "a deleted admin loses access")

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, withSessionFor(t, p, httptest.NewRequest(http.MethodPost, "/presence/beat", nil), "u1", "a@b.com"))
	assert.Equal(t, http.StatusOK, rr.Code)

	assert.Equal(t, []string{"u1"}, beats.beats)
}

func TestRouter_SpoofedForwardedForStillLimited(t *testing.T) {
	router, _ := newTestRouter(t, "development")

	codes := make([]int, 0, 3)
	for _, spoof := range []string{"198.51.100.1", "198.51.100.2", "198.51.100.3"} {
		r := httptest.NewRequest(http.MethodPost, "/login/send-otp", strings.NewReader(`{"contact":"+1 650-253-0000"}`))
		r.RemoteAddr = "192.0.2.1:1234"
		r.Header.Set("X-Forwarded-For", spoof)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, r)
		codes = append(codes, rr.Code)
	}
	assert.Equal(t, []int{http.StatusBadRequest, http.StatusTooManyRequests, http.StatusTooManyRequests}, codes)
}
