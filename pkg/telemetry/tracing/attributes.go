package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for timeout protection spans. Custom keys use the
// "pollgate.*" namespace.
const (
	AttrCorrelationID = "pollgate.correlation_id"
	AttrStrategy      = "pollgate.strategy"
	AttrMode          = "pollgate.mode"
	AttrOutcome       = "pollgate.outcome"
	AttrDiverted      = "pollgate.diverted"
	AttrRequestID     = "pollgate.request_id"
)

// Span events.
const (
	EventDiverted  = "response.diverted"
	EventDelivered = "response.delivered"
	EventRetry     = "poll.retry_later"
)

// SetProtectionAttributes records which strategy handled a request and in
// which role.
func SetProtectionAttributes(span trace.Span, strategy, mode, correlationID string) {
	attrs := []attribute.KeyValue{
		attribute.String(AttrStrategy, strategy),
		attribute.String(AttrMode, mode),
	}
	if correlationID != "" {
		attrs = append(attrs, attribute.String(AttrCorrelationID, correlationID))
	}
	span.SetAttributes(attrs...)
}

// SetOutcome records the outcome of a poll.
func SetOutcome(span trace.Span, outcome string) {
	span.SetAttributes(attribute.String(AttrOutcome, outcome))
}

// MarkDiverted records that the original request's response went to a poll.
func MarkDiverted(span trace.Span) {
	span.SetAttributes(attribute.Bool(AttrDiverted, true))
	span.AddEvent(EventDiverted)
}

// SetError records err on span and marks the span failed. A nil err is
// ignored.
func SetError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
