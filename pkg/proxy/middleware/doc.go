// Package middleware provides HTTP middleware for cross-cutting concerns and
// for gateway timeout protection.
//
// # Middleware Chain
//
// Middleware functions are chained in a specific order:
//
//	handler = Recovery(Logging(RequestID(CORS(Limits(Protection(handler))))))
//
// Order (innermost to outermost):
//  1. Protection: Divert slow responses to long polls
//  2. Limits: Refuse polls over the per-client rate and originals over the
//     concurrency cap (only when limits are enabled)
//  3. CORS: Add Cross-Origin Resource Sharing headers
//  4. RequestID: Generate and propagate request ID
//  5. Logging: Log request/response details
//  6. Recovery: Recover from panics
//
// The server wraps the whole chain in a tracing middleware so that every
// request has a server span.
//
// # Timeout Protection
//
// ProtectionMiddleware recognises two request headers:
//
//	X-Timeout-Protection-Initial-Request: <id>   original request
//	X-Timeout-Protection-Poll: <id>              poll for the response of <id>
//
// An original request runs its handler against a sink that switches from the
// live connection to the strategy's sink once the threshold passes. Once the
// handler returns, a diverted original request is answered with:
//
//	HTTP/1.1 204 No Content
//	X-Timeout-Protection-Poll: <id>
//
// A poll is answered with the diverted response, with the same 204 when the
// client should poll again, or with a 404 error whose code is
// "unknown_correlation_id" when the response was already delivered.
//
// # Limits
//
// LimitsMiddleware answers a client that polls faster than its token bucket
// allows with:
//
//	HTTP/1.1 429 Too Many Requests
//	Retry-After: 1
//	X-RateLimit-Limit: 10
//	X-RateLimit-Remaining: 0
//
// and an original request arriving while the cap on protected originals is
// reached with 503 and "too_many_originals".
//
// # Request ID
//
// RequestIDMiddleware assigns a UUID v4 to each request unless the client
// sent one:
//
//	X-Request-ID: 550e8400-e29b-41d4-a716-446655440000
//
// The request ID is stored with the logging package's context helpers, so
// every log record written with the request context carries it.
//
// # Logging
//
// LoggingMiddleware writes one structured record per request with the
// protection mode it was classified into:
//
//	{
//	  "time": "2026-01-16T10:30:00Z",
//	  "level": "INFO",
//	  "msg": "request diverted",
//	  "method": "GET",
//	  "path": "/slow",
//	  "mode": "initial",
//	  "correlation_id": "9b2f...",
//	  "status": 204,
//	  "bytes": 0,
//	  "latency_ms": 1002,
//	  "request_id": "550e8400-e29b-41d4-a716-446655440000"
//	}
//
// Polls answered with 204 are logged at debug level.
//
// # CORS
//
// CORSMiddleware adds Cross-Origin Resource Sharing headers for web clients.
// NewCORSConfig always allows both correlation headers and exposes the poll
// header, which browser clients must read from interim responses:
//
//	Access-Control-Expose-Headers: X-Request-ID, X-Timeout-Protection-Poll
//
// # Recovery
//
// RecoveryMiddleware catches panics in handlers and converts them to HTTP 500 errors:
//
//	{
//	  "error": {
//	    "message": "An internal error occurred. Please try again later.",
//	    "type": "server_error",
//	    "code": "internal_error"
//	  }
//	}
//
// The panic stack trace is logged but not exposed to clients. Panics in
// protected handlers are handled by ProtectionMiddleware itself, since the
// error may have to reach a poll rather than the original connection.
//
// # Thread Safety
//
// All middleware functions are thread-safe and can be called concurrently
// from multiple goroutines.
package middleware
