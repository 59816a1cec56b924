package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"mercator-hq/pollgate/pkg/telemetry/logging"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// RequestIDMiddleware gives every request an id, reusing the caller's
// X-Request-ID when it is usable and generating a UUID v4 otherwise. The id
// is echoed in the response and attached to every log record written with
// the request context.
//
// Each poll is its own request with its own id; what ties polls to their
// original is the correlation id, not the request id.
//
// Example usage:
//
//	handler = RequestIDMiddleware(handler)
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if !usableRequestID(id) {
			id = uuid.NewString()
		}

		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logging.WithRequestID(r.Context(), id)))
	})
}

// usableRequestID accepts up to 128 visible ASCII characters, keeping
// caller supplied ids from injecting into logs or headers.
func usableRequestID(id string) bool {
	if id == "" || len(id) > 128 {
		return false
	}
	for i := 0; i < len(id); i++ {
		if c := id[i]; c <= ' ' || c > '~' {
			return false
		}
	}
	return true
}

// GetRequestID returns the request id stored in ctx, or "".
func GetRequestID(ctx context.Context) string {
	return logging.GetRequestID(ctx)
}
