package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"mercator-hq/pollgate/pkg/proxy"
	"mercator-hq/pollgate/pkg/proxy/types"
)

const panicMessage = "An internal error occurred. Please try again later."

// RecoveryMiddleware turns a panic in an unprotected handler, or in the
// middleware inside it, into a 500 JSON error. The stack is logged, never
// sent. Once the response has started an error body would corrupt it, so the
// connection is aborted instead.
//
// Protected handlers never reach this: ProtectionMiddleware recovers them
// itself, since their error may belong to a poll.
//
// Example usage:
//
//	handler = RecoveryMiddleware(handler)
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordStatus(w)

		defer func() {
			v := recover()
			if v == nil {
				return
			}
			if v == http.ErrAbortHandler {
				panic(v)
			}

			slog.ErrorContext(r.Context(), "panic in handler",
				"panic", v,
				"method", r.Method,
				"path", r.URL.Path,
				"response_started", rec.started,
				"stack", string(debug.Stack()),
			)

			if rec.started {
				panic(http.ErrAbortHandler)
			}
			_ = proxy.WriteErrorResponse(rec, types.NewServerError(panicMessage))
		}()

		next.ServeHTTP(rec, r)
	})
}
