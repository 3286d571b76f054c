package middleware

import (
	"fmt"
	"net/http"

	"github.com/edgelink/edgelink/internal/auth"
	"github.com/edgelink/edgelink/internal/model"
)

// RequireScope returns middleware enforcing API key scopes.
// Must be applied after Identity. Token-derived identities are
// unscoped and always pass; scoped keys need any of the required
// scopes (admin implies all).
func RequireScope(required ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := auth.IdentityFromContext(r.Context())
			if identity.IsAnonymous() {
				writeError(w, http.StatusUnauthorized, auth.CodeAuthRequired, "Authentication required")
				return
			}

			for _, req := range required {
				if identity.HasScope(req) {
					next.ServeHTTP(w, r)
					return
				}
			}

			writeError(w, http.StatusForbidden, "INSUFFICIENT_SCOPE",
				fmt.Sprintf("Insufficient permissions. Required scope: %s", required[0]))
		})
	}
}

// RequireRead is a convenience middleware for read scope.
func RequireRead() func(http.Handler) http.Handler {
	return RequireScope(model.ScopeRead)
}

// RequireWrite is a convenience middleware for write scope.
func RequireWrite() func(http.Handler) http.Handler {
	return RequireScope(model.ScopeWrite)
}

// RequireAdmin is a convenience middleware for admin scope.
func RequireAdmin() func(http.Handler) http.Handler {
	return RequireScope(model.ScopeAdmin)
}
