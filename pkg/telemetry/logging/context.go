package logging

import (
	"context"
	"log/slog"
)

// Context keys for common log fields.
type contextKey string

const (
	// RequestIDKey is the context key for request IDs.
	RequestIDKey contextKey = "request_id"

	// ExchangeIDKey is the context key for exchange IDs.
	ExchangeIDKey contextKey = "exchange_id"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// WithExchangeID adds an exchange ID to the context.
func WithExchangeID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ExchangeIDKey, id)
}

// GetExchangeID retrieves the exchange ID from the context.
func GetExchangeID(ctx context.Context) string {
	if id, ok := ctx.Value(ExchangeIDKey).(string); ok {
		return id
	}
	return ""
}

// FromContext returns logger with the request-scoped fields found in ctx.
// A nil logger means slog.Default().
func FromContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	var args []any
	if id := GetRequestID(ctx); id != "" {
		args = append(args, string(RequestIDKey), id)
	}
	if id := GetExchangeID(ctx); id != "" {
		args = append(args, string(ExchangeIDKey), id)
	}
	if len(args) == 0 {
		return logger
	}
	return logger.With(args...)
}
