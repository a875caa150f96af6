package internal

import (
	"context"
	"time"
)

type ctxKey string

const (
	ContextUserKey ctxKey = "userID"
	ContextRoleKey ctxKey = "role"
)

const defaultTimeout = 5 * time.Second

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if userID, ok := ctx.Value(ContextUserKey).(string); ok {
		return userID
	}
	return ""
}

// RoleFromContext returns the caller's role name, or "" for anonymous requests.
func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if role, ok := ctx.Value(ContextRoleKey).(string); ok {
		return role
	}
	return ""
}

func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ContextUserKey, userID)
}

// ContextWithIdentity stores the authenticated user id and role.
func ContextWithIdentity(ctx context.Context, userID, role string) context.Context {
	ctx = ContextWithUserID(ctx, userID)
	return context.WithValue(ctx, ContextRoleKey, role)
}

// WithTimeout returns a context with timeout, defaulting to 5 seconds if duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = defaultTimeout
	}
	return context.WithTimeout(ctx, duration)
}

// DetachedWithTimeout keeps the values of ctx but not its cancellation, so
// work started after a response is written is not cut short by the client
// disconnecting.
func DetachedWithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	return WithTimeout(context.WithoutCancel(ctx), duration)
}
