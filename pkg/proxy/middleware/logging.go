package middleware

import (
	"log/slog"
	"net/http"
	"time"
)

// statusRecorder remembers the status and body size a handler wrote.
type statusRecorder struct {
	http.ResponseWriter
	status  int
	bytes   int64
	started bool
}

func recordStatus(w http.ResponseWriter) *statusRecorder {
	if rec, ok := w.(*statusRecorder); ok {
		return rec
	}
	return &statusRecorder{ResponseWriter: w, status: http.StatusOK}
}

func (rec *statusRecorder) WriteHeader(code int) {
	if rec.started {
		return
	}
	rec.status = code
	rec.started = true
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	if !rec.started {
		rec.WriteHeader(http.StatusOK)
	}
	n, err := rec.ResponseWriter.Write(b)
	rec.bytes += int64(n)
	return n, err
}

// Flush keeps streamed and handed-off responses moving.
func (rec *statusRecorder) Flush() {
	if !rec.started {
		rec.WriteHeader(http.StatusOK)
	}
	if f, ok := rec.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the wrapped writer to http.ResponseController.
func (rec *statusRecorder) Unwrap() http.ResponseWriter {
	return rec.ResponseWriter
}

// classify tells originals, polls and unprotected requests apart, returning
// the correlation id for the first two.
func classify(r *http.Request, cfg *ProtectionConfig) (mode, id string) {
	if cfg == nil || !cfg.Enabled {
		return ModeUnprotected, ""
	}
	if id := r.Header.Get(cfg.PollHeader); id != "" {
		return ModePoll, id
	}
	if id := r.Header.Get(cfg.InitialRequestHeader); id != "" {
		return ModeInitial, id
	}
	return ModeUnprotected, ""
}

// LoggingMiddleware writes one structured record per request. Records carry
// the protection mode and correlation id, so an original request and the
// polls that collected its response can be followed in the logs:
//
//	{
//	  "level": "INFO",
//	  "msg": "request diverted",
//	  "method": "POST",
//	  "path": "/slow",
//	  "mode": "initial",
//	  "correlation_id": "3f0c...",
//	  "status": 204,
//	  "bytes": 0,
//	  "latency_ms": 14002,
//	  "request_id": "0b8e4c1e-..."
//	}
//
// A diverted original is reported as "request diverted" rather than
// "request completed". Server errors log at error level, other 4xx at warn.
//
// Example usage:
//
//	handler = LoggingMiddleware(NewProtectionConfig(cfg.Protection))(handler)
func LoggingMiddleware(cfg *ProtectionConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx := r.Context()
			mode, id := classify(r, cfg)

			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"mode", mode,
			}
			if id != "" {
				attrs = append(attrs, "correlation_id", id)
			}

			slog.DebugContext(ctx, "request started",
				append(attrs, "remote_addr", r.RemoteAddr, "user_agent", r.UserAgent())...)

			rec := recordStatus(w)
			next.ServeHTTP(rec, r)

			msg := "request completed"
			level := slog.LevelInfo
			switch {
			case mode == ModeInitial && rec.status == http.StatusNoContent &&
				rec.Header().Get(cfg.PollHeader) != "":
				msg = "request diverted"
			case mode == ModePoll && rec.status == http.StatusNoContent:
				msg = "poll not ready"
				level = slog.LevelDebug
			case rec.status >= 500:
				level = slog.LevelError
			case rec.status >= 400:
				level = slog.LevelWarn
			}

			slog.Log(ctx, level, msg, append(attrs,
				"status", rec.status,
				"bytes", rec.bytes,
				"latency_ms", time.Since(start).Milliseconds(),
			)...)
		})
	}
}
