package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-otp-gate/internal/domain"
	jwtinfra "github.com/go-otp-gate/internal/infrastructure/jwt"
	"github.com/rs/zerolog/log"
)

type contextKey string

const identityKey contextKey = "identity"

// TokenVerifier validates a session token.
type TokenVerifier interface {
	Verify(token string) (*jwtinfra.Claims, error)
}

// RoleResolver maps an email to a role.
type RoleResolver interface {
	Resolve(email string) domain.Role
}

// AccountLookup loads the account behind a token's subject.
type AccountLookup interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
}

// Identity is the authenticated caller of a request.
type Identity struct {
	Claims *jwtinfra.Claims
	Role   domain.Role
}

// Auth validates the session cookie (or a Bearer token) and injects the
// caller's identity. The account must still exist and be enabled, so a
// deleted user's token stops working immediately. The role is resolved per
// request, never read from the token.
func Auth(verifier TokenVerifier, roles RoleResolver, accounts AccountLookup, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := tokenFromRequest(r, cookieName)
			if token == "" {
				writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED")
				return
			}
			claims, err := verifier.Verify(token)
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED")
				return
			}
			u, err := accounts.Get(r.Context(), claims.UserID)
			switch {
			case errors.Is(err, domain.ErrNotFound):
				writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED")
				return
			case err != nil:
				log.Error().Err(err).
					Str("request_id", chimiddleware.GetReqID(r.Context())).
					Str("user_id", claims.UserID).
					Msg("load session account")
				writeJSONError(w, http.StatusInternalServerError, "INTERNAL")
				return
			case !u.Enable:
				writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED")
				return
			}
			id := &Identity{Claims: claims, Role: roles.Resolve(claims.Email)}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

func tokenFromRequest(r *http.Request, cookieName string) string {
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

// WithIdentity returns ctx carrying id.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext extracts the caller identity from the request context.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey).(*Identity)
	return id, ok && id != nil && id.Claims != nil
}
