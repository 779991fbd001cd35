package logx

import (
	"context"

	"pkt.systems/navygator/schema"
	"pkt.systems/pslog"
)

type contextKey int

const (
	namespaceKey contextKey = iota
	accountKey
	tabKey
)

// WithNamespace annotates the logger with the namespace if present.
func WithNamespace(ctx context.Context, ns schema.Namespace) pslog.Logger {
	log := pslog.Ctx(ctx)
	if ns != "" {
		if current, ok := ctx.Value(namespaceKey).(schema.Namespace); ok && current == ns {
			return log
		}
		log = log.With("namespace", string(ns))
	}
	return log
}

// WithSession annotates the logger with namespace and account identifiers.
func WithSession(ctx context.Context, session schema.SessionContext) pslog.Logger {
	log := WithNamespace(ctx, session.Namespace)
	if session.AccountEmail != "" {
		if current, ok := ctx.Value(accountKey).(string); ok && current == session.AccountEmail {
			return log
		}
		log = log.With("account", session.AccountEmail)
	}
	return log
}

// WithTab annotates the logger with a tab id when one is set.
func WithTab(log pslog.Logger, tabID schema.TabID) pslog.Logger {
	if tabID != schema.NoTab {
		log = log.With("tab", int64(tabID))
	}
	return log
}

// ContextWithNamespace stores the namespace marker on the context for log de-duplication.
func ContextWithNamespace(ctx context.Context, ns schema.Namespace) context.Context {
	if ctx == nil || ns == "" {
		return ctx
	}
	return context.WithValue(ctx, namespaceKey, ns)
}

// ContextWithAccount stores the account marker on the context for log de-duplication.
func ContextWithAccount(ctx context.Context, email string) context.Context {
	if ctx == nil || email == "" {
		return ctx
	}
	return context.WithValue(ctx, accountKey, email)
}

// ContextWithSessionLogger attaches the logger and namespace/account markers to the context.
func ContextWithSessionLogger(ctx context.Context, log pslog.Logger, session schema.SessionContext) context.Context {
	ctx = pslog.ContextWithLogger(ctx, log)
	return ContextWithAccount(ContextWithNamespace(ctx, session.Namespace), session.AccountEmail)
}
