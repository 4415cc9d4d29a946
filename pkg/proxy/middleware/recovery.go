package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"

	"mercator-hq/enricher/pkg/proxy/types"
)

// RecoveryMiddleware recovers from panics in HTTP handlers and returns a 500
// Internal Server Error response with a JSON error body. It logs the panic
// with stack trace but does not expose internal details to clients.
//
// http.ErrAbortHandler is re-raised: the reverse proxy uses it to abort a
// response whose client went away, and net/http handles it quietly.
//
// Example usage:
//
//	handler = RecoveryMiddleware(handler)
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(rec)
			}

			requestID := GetRequestID(r.Context())
			slog.ErrorContext(r.Context(), "panic in handler",
				"error", rec,
				"request_id", requestID,
				"method", r.Method,
				"path", r.URL.Path,
				"stack", string(debug.Stack()),
			)

			errResp := types.NewServerError(
				"An internal error occurred. Please try again later.",
			).WithRequestID(requestID)

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(errResp)
		}()

		next.ServeHTTP(w, r)
	})
}
