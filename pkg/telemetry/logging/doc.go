// Package logging provides structured logging on top of log/slog.
//
// # Overview
//
// New builds a *slog.Logger with:
//   - JSON, text, and console formats
//   - Configurable log levels (debug, info, warn, error)
//   - Context-aware fields: request id, correlation id, protection mode,
//     and the trace and span ids of the active OpenTelemetry span
//   - Optional redaction of credentials and cookies
//
// # Usage
//
//	logger, err := logging.New(logging.Config{Level: "info", Format: "json", Redact: true})
//
//	ctx = logging.WithCorrelationID(ctx, id)
//	logger.InfoContext(ctx, "response diverted to poll")
//	// {"level":"INFO","msg":"response diverted to poll","correlation_id":"..."}
package logging
