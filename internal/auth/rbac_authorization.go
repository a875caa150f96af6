package auth

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/leave-management/internal"
	"github.com/frahmantamala/leave-management/internal/transport"
)

// RBACAuthorization guards routes by operation. It must run after
// Handler.AuthMiddleware has put the actor in the request context.
type RBACAuthorization struct {
	*transport.BaseHandler
}

func NewRBACAuthorization(logger *slog.Logger) *RBACAuthorization {
	return &RBACAuthorization{BaseHandler: transport.NewBaseHandler(logger)}
}

func (ra *RBACAuthorization) Check(next http.HandlerFunc, op Operation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFromContext(r.Context())
		if !ok {
			ra.Logger.WarnContext(r.Context(), "authorization check failed: actor not found in context")
			ra.WriteAppError(w, internal.ErrMissingToken)
			return
		}

		if !Can(actor.Role, op) {
			ra.Logger.WarnContext(r.Context(), "access denied: role not allowed",
				"user_id", actor.UserID,
				"role", actor.Role,
				"operation", op)
			ra.WriteAppError(w, internal.ErrOperationDenied)
			return
		}

		next.ServeHTTP(w, r)
	}
}

// Require returns middleware that only lets through roles allowed to run op.
func (ra *RBACAuthorization) Require(op Operation) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return ra.Check(next.ServeHTTP, op)
	}
}
