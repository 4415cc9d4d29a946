// Package middleware provides HTTP middleware for cross-cutting concerns.
//
// # Middleware Chain
//
// The server wraps its mux in this order:
//
//	handler = Recovery(RequestID(Logging(Timeout(mux))))
//
// Order (innermost to outermost):
//  1. Timeout: Put a deadline on the request context
//  2. Logging: Log the request and record HTTP metrics
//  3. RequestID: Assign or keep X-Request-ID
//  4. Recovery: Recover from panics
//
// # Request ID
//
// RequestIDMiddleware keeps a client-supplied X-Request-ID or generates a
// UUID v4:
//
//	X-Request-ID: 550e8400-e29b-41d4-a716-446655440000
//
// The ID is written into the request headers, so body rules that copy
// x-request-id into a payload always find it. It is also stored in the
// context for logging and echoed in the response headers.
//
// # Logging
//
// LoggingMiddleware uses structured logging (log/slog):
//
//	{
//	  "level": "INFO",
//	  "msg": "request completed",
//	  "method": "POST",
//	  "path": "/v1/orders",
//	  "status": 200,
//	  "latency_ms": 12,
//	  "request_id": "550e8400-e29b-41d4-a716-446655440000"
//	}
//
// Responses of 400 and above log at WARN, 500 and above at ERROR.
//
// # Recovery
//
// RecoveryMiddleware turns panics into a 500 with a JSON error body. The stack
// trace is logged, never returned.
package middleware
