// Package telemetry bundles the observability stack of pollgate.
//
// # Components
//
//   - logging: structured slog logging with context fields and redaction
//   - metrics: Prometheus metrics for protection requests, polls and state
//   - tracing: OpenTelemetry tracing exported over OTLP gRPC
//   - health: liveness and readiness probes
//
// # Usage
//
//	tel, err := telemetry.New(&cfg.Telemetry)
//	defer tel.Shutdown(ctx)
//
//	tel.Logger().Info("server starting")
//	ctx, span := tel.Tracer().Start(ctx, "operation")
//	defer span.End()
package telemetry
