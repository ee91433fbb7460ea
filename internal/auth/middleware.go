// internal/auth/middleware.go
package auth

import (
	"net/http"

	"libtrack/internal/membership"
)

// RequireAuth verifies HTTP Basic credentials against the membership
// service and stores the resulting identity on the request context.
// Requests without valid credentials get a 401 with a challenge header.
func RequireAuth(members membership.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			username, password, ok := r.BasicAuth()
			if !ok {
				w.Header().Set("WWW-Authenticate", `Basic realm="libtrack"`)
				http.Error(w, "authentication required", http.StatusUnauthorized)
				return
			}

			identity, err := members.Authenticate(r.Context(), username, password)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Basic realm="libtrack"`)
				http.Error(w, "invalid credentials", http.StatusUnauthorized)
				return
			}

			ctx := membership.WithIdentity(r.Context(), *identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects requests whose verified identity lacks the admin
// flag. It must run after RequireAuth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := membership.IdentityFromContext(r.Context())
		if !ok {
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}
		if !identity.IsAdmin {
			http.Error(w, "administrator access required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
