package middleware

import (
	"context"
	"net/http"
	"time"
)

// TimeoutMiddleware puts a deadline on the request context. The reverse
// proxy gives up on the upstream when it passes and answers 504 Gateway
// Timeout. A zero timeout disables the middleware.
//
// Example usage:
//
//	handler = TimeoutMiddleware(60 * time.Second)(handler)
func TimeoutMiddleware(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if timeout <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
