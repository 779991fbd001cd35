// Package sessionctx carries the resolved session context through call chains.
package sessionctx

import (
	"context"

	"pkt.systems/navygator/schema"
)

type sessionKey struct{}

// WithContext stores the session context in ctx.
func WithContext(ctx context.Context, session schema.SessionContext) context.Context {
	if ctx == nil || session.Namespace == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionKey{}, session)
}

// FromContext returns the session context stored in ctx, if any.
func FromContext(ctx context.Context) (schema.SessionContext, bool) {
	if ctx == nil {
		return schema.SessionContext{}, false
	}
	session, ok := ctx.Value(sessionKey{}).(schema.SessionContext)
	return session, ok
}
