package middleware

import (
	"context"

	sfsession "github.com/angelmondragon/storefront-backend/internal/session"
)

type contextKey string

const (
	ctxRequestID contextKey = "request_id"
	ctxSessionID contextKey = "session_id"
	ctxSession   contextKey = "session"
)

// RequestIDFromContext returns the id assigned by the RequestID middleware.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRequestID).(string); ok {
		return v
	}
	return ""
}

func SessionIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxSessionID).(string); ok {
		return v
	}
	return ""
}

// SessionFromContext returns the hydrated session bound by the Session middleware.
func SessionFromContext(ctx context.Context) *sfsession.Session {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxSession).(*sfsession.Session); ok {
		return v
	}
	return nil
}

// WithSession injects the session and its id into the context.
func WithSession(ctx context.Context, sess *sfsession.Session) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if sess == nil {
		return ctx
	}
	ctx = context.WithValue(ctx, ctxSessionID, sess.ID)
	return context.WithValue(ctx, ctxSession, sess)
}
