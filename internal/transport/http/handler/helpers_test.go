package handler

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-otp-gate/internal/application/role"
	"github.com/go-otp-gate/internal/domain"
	jwtinfra "github.com/go-otp-gate/internal/infrastructure/jwt"
	"github.com/go-otp-gate/internal/transport/http/middleware"
	"github.com/stretchr/testify/require"
)

const testCookie = "otp_session"

var testSessionCookie = SessionCookie{Name: testCookie, MaxAge: time.Hour}

// newTestJWTProvider generates a fresh RSA key pair for each test.
func newTestJWTProvider(t *testing.T) *jwtinfra.Provider {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return jwtinfra.NewProviderFromKeys(key, &key.PublicKey, time.Hour)
}

// testRoles makes root@example.com an admin and mod@example.com a moderator.
var testRoles = role.NewStaticResolver([]string{"root@example.com"}, []string{"mod@example.com"})

// cookieReq builds a request carrying a signed session cookie.
func cookieReq(t *testing.T, p *jwtinfra.Provider, method, target, userID, email string, body []byte) *http.Request {
	t.Helper()
	token, err := p.Sign(userID, email, "sess1")
	require.NoError(t, err)
	r := jsonReq(method, target, body)
	r.AddCookie(&http.Cookie{Name: testCookie, Value: token})
	return r
}

func jsonReq(method, target string, body []byte) *http.Request {
	var r *http.Request
	if body != nil {
		r = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	r.Header.Set("Content-Type", "application/json")
	return r
}

// enabledAccounts treats every token subject as a live account.
type enabledAccounts struct{}

func (enabledAccounts) Get(_ context.Context, userID string) (*domain.User, error) {
	return &domain.User{UserID: userID, Enable: true}, nil
}

// serveAuthed wraps the handler with middleware.Auth before serving.
func serveAuthed(p *jwtinfra.Provider, h http.HandlerFunc, w http.ResponseWriter, r *http.Request) {
	middleware.Auth(p, testRoles, enabledAccounts{}, testCookie)(h).ServeHTTP(w, r)
}

// withChiID injects a chi URL param "id" into the request context.
func withChiID(r *http.Request, id string) *http.Request {
	return withURLParam(r, "id", id)
}

func withAction(r *http.Request, action string) *http.Request {
	return withURLParam(r, "action", action)
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}
