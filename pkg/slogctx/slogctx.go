// Package slogctx carries a *slog.Logger through a context.
package slogctx

import (
	"context"
	"log/slog"
)

type _loggerKey struct{}

// ContextWithLogger returns a copy of ctx that carries logger.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, _loggerKey{}, logger)
}

// FromContext returns the logger stored in ctx, or slog.Default() if none.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(_loggerKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}

// With returns a copy of ctx whose logger has attrs attached.
func With(ctx context.Context, attrs ...any) context.Context {
	return ContextWithLogger(ctx, FromContext(ctx).With(attrs...))
}
