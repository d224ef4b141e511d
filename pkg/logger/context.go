package logger

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

// With stores a child logger carrying fields in ctx. Request middleware uses
// it to attach request_id and actor_id once per request.
func With(ctx context.Context, fields ...any) context.Context {
	return context.WithValue(ctx, ctxKey{}, From(ctx).With(fields...))
}

// From returns the request-scoped logger, or the process logger.
func From(ctx context.Context) *slog.Logger {
	return FromOr(ctx, LoggerWrapper())
}

// FromOr is From with an explicit fallback for components that were built
// with their own logger.
func FromOr(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
			return l
		}
	}
	if fallback == nil {
		return slog.Default()
	}
	return fallback
}
