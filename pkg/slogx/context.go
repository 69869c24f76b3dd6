package slogx

import (
	"context"
	"log/slog"
	"sync/atomic"
)

type ctxKey struct{}

// loggerCell is shared by everything below the point that attached it, so a
// handler deep in the chain can add attributes the request log line sees.
type loggerCell struct {
	l atomic.Pointer[slog.Logger]
}

// WithContext stores logger in ctx.
func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	c := &loggerCell{}
	c.l.Store(logger)
	return context.WithValue(ctx, ctxKey{}, c)
}

// FromContext returns the request logger, or the default logger when none
// was attached.
func FromContext(ctx context.Context) *slog.Logger {
	c, ok := ctx.Value(ctxKey{}).(*loggerCell)
	if !ok {
		return slog.Default()
	}
	return c.l.Load()
}

// With decorates the logger already in ctx with extra attributes, e.g. the
// authenticated subject once the gate has resolved it. Inside
// HTTPMiddleware the attributes also land on the final http_request line.
func With(ctx context.Context, args ...any) context.Context {
	c, ok := ctx.Value(ctxKey{}).(*loggerCell)
	if !ok {
		return WithContext(ctx, slog.Default().With(args...))
	}
	c.l.Store(c.l.Load().With(args...))
	return ctx
}
