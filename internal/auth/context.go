package auth

import "context"

type contextKey string

const sessionKey contextKey = "auth.session"

// ContextWithSession stores a resolved session for SessionFromContext.
func ContextWithSession(ctx context.Context, result *SessionResult) context.Context {
	return context.WithValue(ctx, sessionKey, result)
}

// SessionFromContext returns the session stored by the auth gate, or nil.
func SessionFromContext(ctx context.Context) *SessionResult {
	result, _ := ctx.Value(sessionKey).(*SessionResult)
	return result
}
