package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"hemobank/pkg/requestcontext"
)

const requestIDHeader = "X-Request-ID"

// RequestID propagates (or mints) a correlation ID and pins the request time.
// Pinning the time once per request keeps every rule evaluated during the
// request consistent with each other.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		ctx = requestcontext.WithTime(ctx, time.Now().UTC())
		w.Header().Set(requestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
