package middleware

import (
	"net/http"

	"github.com/frahmantamala/leave-management/internal"
	"github.com/frahmantamala/leave-management/pkg/logger"
)

// UserContext tags the request logger with the authenticated user id and role.
// It must run after the authentication middleware has stored them.
func UserContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := internal.UserIDFromContext(r.Context())
		if userID == "" {
			next.ServeHTTP(w, r)
			return
		}

		ctx := logger.With(r.Context(), "userID", userID, "role", internal.RoleFromContext(r.Context()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
