package middleware

import (
	"context"
	"net/http"

	"github.com/frahmantamala/shopbot-engine/pkg/logger"
	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

type ctxKey string

const requestIDKey ctxKey = "requestID"

// RequestID reuses an inbound X-Request-ID (the chat transport forwards one
// per interaction) or mints a new one, and attaches it to the logger context.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		ctx = logger.With(ctx, "request_id", requestID)

		w.Header().Set(RequestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}
