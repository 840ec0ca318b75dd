package middleware

import (
	"net/http"

	"github.com/go-otp-gate/internal/domain"
)

// RequirePermission allows the request only when allowed(role) holds for the
// caller, e.g. domain.Role.CanManageUsers.
func RequirePermission(allowed func(domain.Role) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFromContext(r.Context())
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED")
				return
			}
			if !allowed(id.Role) {
				writeJSONError(w, http.StatusForbidden, "FORBIDDEN")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
