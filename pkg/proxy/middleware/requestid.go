package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"mercator-hq/ganymede/pkg/telemetry/logging"
)

// RequestIDHeader is the HTTP header for the request ID.
const RequestIDHeader = "X-Request-ID"

// RequestIDMiddleware assigns each request a unique ID and adds it to
// the context and response headers. A client-provided X-Request-ID is
// honored so callers can correlate retries end to end.
//
// The ID is stored under the logging package's context key: log lines,
// audit records, and error responses all quote the same value.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := logging.WithRequestID(r.Context(), requestID)
		w.Header().Set(RequestIDHeader, requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID extracts the request ID from the context. Returns an
// empty string if not set.
func GetRequestID(ctx context.Context) string {
	requestID, _ := logging.GetRequestID(ctx)
	return requestID
}
