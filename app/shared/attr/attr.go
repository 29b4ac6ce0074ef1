// Package attr provides slog attribute helpers shared by all modules.
package attr

import (
	"context"
	"log/slog"
)

type contextKey string

// correlationIDKey is the context key under which the message correlation ID
// is carried from the router middleware into handlers and services.
const correlationIDKey contextKey = "correlation_id"

// WithCorrelationID returns a context carrying the given correlation ID.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// CorrelationIDFromContext returns the correlation ID carried by ctx, if any.
func CorrelationIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey).(string); ok {
		return id
	}
	return ""
}

// ExtractCorrelationID returns a slog attribute for the correlation ID in ctx.
// When no ID is present the attribute carries an empty string rather than
// being omitted, so log lines stay structurally uniform.
func ExtractCorrelationID(ctx context.Context) slog.Attr {
	return slog.String("correlation_id", CorrelationIDFromContext(ctx))
}

func String(key, value string) slog.Attr {
	return slog.String(key, value)
}

func Int(key string, value int) slog.Attr {
	return slog.Int(key, value)
}

func Any(key string, value any) slog.Attr {
	return slog.Any(key, value)
}

// Error returns a uniform "error" attribute. A nil error yields an empty
// string so callers do not have to branch.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}
