package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	authkit "github.com/pacestacks/authkit"
)

type identityContextKey struct{}

// IdentityFromContext returns the identity injected by Authenticate.
func IdentityFromContext(ctx context.Context) (authkit.Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(authkit.Identity)
	return id, ok
}

// Authenticate verifies the access cookie and injects the resulting identity
// into the request context. Missing, malformed, and expired tokens are all
// rejected with the same 401 body.
func Authenticate(engine *authkit.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				reject(w, http.StatusUnauthorized, "authentication required")
				return
			}

			raw := authkit.ReadAccessCookie(r)
			if raw == "" {
				reject(w, http.StatusUnauthorized, "authentication required")
				return
			}

			identity, err := engine.VerifyAccess(raw)
			if err != nil {
				reject(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), identityContextKey{}, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole admits only identities whose role is in the allow list. It
// must run inside Authenticate: an unauthenticated request is a 401 there,
// never a 403 here, so the two failure classes stay distinguishable.
func RequireRole(roles ...authkit.Role) func(http.Handler) http.Handler {
	allowed := make(map[authkit.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				reject(w, http.StatusUnauthorized, "authentication required")
				return
			}

			if _, ok := allowed[identity.Role]; !ok {
				reject(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func reject(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"message": message,
	})
}
