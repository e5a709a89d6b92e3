package domain

import (
	"context"
)

// Logger is the structured logging port used across the gateway. Every method
// takes a context.Context first so adapters can enrich entries with
// request-scoped values such as the request ID. Fields are alternating
// key/value pairs, zap-style.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...any)
	Info(ctx context.Context, msg string, fields ...any)
	Warn(ctx context.Context, msg string, fields ...any)
	Error(ctx context.Context, msg string, fields ...any)
	Fatal(ctx context.Context, msg string, fields ...any) // Fatal will call os.Exit(1) after logging

	// With returns a child logger carrying the given fields on every entry.
	With(fields ...any) Logger
}
