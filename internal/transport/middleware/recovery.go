package middleware

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	errors "github.com/frahmantamala/shopbot-engine/internal"
)

// RecoveryMiddleware turns a handler panic into a 500 with the standard error
// body. The panic value is logged, never returned to the caller.
func RecoveryMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}

					logger.Error("panic recovered",
						"error", rec,
						"method", r.Method,
						"url", r.URL.String(),
						"request_id", RequestIDFromContext(r.Context()),
						"stack", string(debug.Stack()))

					status, body := errors.NewInternalError("internal server error", fmt.Errorf("panic: %v", rec)).ToHTTPResponse()
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(status)
					_ = json.NewEncoder(w).Encode(body)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
