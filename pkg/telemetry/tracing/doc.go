// Package tracing provides OpenTelemetry tracing for pollgate.
//
// Spans are exported over OTLP gRPC. Each request gets a server span from
// HTTPMiddleware; the protection middleware adds strategy, mode and
// correlation id attributes, and marks diversions and deliveries with events.
//
// The poll client injects W3C trace context into every poll, so an original
// request and all of its polls can be found under a single trace.
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing)
//	defer tracer.Shutdown(ctx)
//	handler = tracing.HTTPMiddleware(tracer)(handler)
package tracing
