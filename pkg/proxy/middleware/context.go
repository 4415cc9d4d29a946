package middleware

import (
	"context"

	"mercator-hq/enricher/pkg/telemetry/logging"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// StartTimeKey stores the request start time for latency calculation.
const StartTimeKey contextKey = "start_time"

// GetRequestID extracts the request ID from the context.
// Returns empty string if not found.
func GetRequestID(ctx context.Context) string {
	return logging.GetRequestID(ctx)
}
