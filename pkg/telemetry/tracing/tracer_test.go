package tracing

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"mercator-hq/pollgate/pkg/config"
)

func newTestTracer(t *testing.T) (*Tracer, *tracetest.InMemoryExporter) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tracer, err := NewWithExporter(&config.TracingConfig{
		Enabled:     true,
		Sampler:     SamplerAlways,
		ServiceName: "pollgate-test",
	}, exporter)
	if err != nil {
		t.Fatalf("NewWithExporter() error = %v", err)
	}
	t.Cleanup(func() { _ = tracer.Shutdown(context.Background()) })
	return tracer, exporter
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  *config.TracingConfig
		wantErr bool
		enabled bool
	}{
		{name: "nil config", config: nil, wantErr: true},
		{name: "disabled tracing", config: &config.TracingConfig{Enabled: false}},
		{
			name: "enabled with lazy OTLP connection",
			config: &config.TracingConfig{
				Enabled:     true,
				Sampler:     SamplerNever,
				Endpoint:    "localhost:4317",
				ServiceName: "test-service",
				OTLP:        config.OTLPConfig{Insecure: true, Timeout: time.Second},
			},
			enabled: true,
		},
		{
			name: "invalid sampler",
			config: &config.TracingConfig{
				Enabled:  true,
				Sampler:  "sometimes",
				Endpoint: "localhost:4317",
				OTLP:     config.OTLPConfig{Insecure: true},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracer, err := New(tt.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if tracer.Enabled() != tt.enabled {
				t.Errorf("Enabled() = %v, want %v", tracer.Enabled(), tt.enabled)
			}
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = tracer.Shutdown(ctx)
		})
	}
}

func TestNoop(t *testing.T) {
	tracer := Noop()
	if tracer.Enabled() {
		t.Error("Noop tracer should be disabled")
	}

	ctx, span := tracer.Start(context.Background(), "noop")
	span.End()

	if TraceID(ctx) != "" {
		t.Error("noop span should not carry a trace id")
	}
	if err := tracer.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
	if err := tracer.ForceFlush(context.Background()); err != nil {
		t.Errorf("ForceFlush() error = %v", err)
	}
}

func TestTracer_Start(t *testing.T) {
	tracer, exporter := newTestTracer(t)

	ctx, parent := tracer.Start(context.Background(), "parent")
	_, child := tracer.Start(ctx, "child")
	child.End()
	parent.End()

	if err := tracer.ForceFlush(context.Background()); err != nil {
		t.Fatalf("ForceFlush() error = %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[0].Name != "child" || spans[1].Name != "parent" {
		t.Errorf("unexpected span order: %s, %s", spans[0].Name, spans[1].Name)
	}
	if spans[0].Parent.SpanID() != spans[1].SpanContext.SpanID() {
		t.Error("child span is not linked to parent")
	}
	if TraceID(ctx) != spans[1].SpanContext.TraceID().String() {
		t.Error("TraceID() does not match exported span")
	}
}

func TestSetError(t *testing.T) {
	tracer, exporter := newTestTracer(t)

	_, span := tracer.Start(context.Background(), "failing")
	SetError(span, nil)
	SetError(span, errors.New("poll never arrived"))
	span.End()
	_ = tracer.ForceFlush(context.Background())

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Status.Code != codes.Error {
		t.Errorf("status = %v, want Error", spans[0].Status.Code)
	}
	if len(spans[0].Events) != 1 {
		t.Errorf("expected 1 exception event, got %d", len(spans[0].Events))
	}
}

func TestProtectionAttributes(t *testing.T) {
	tracer, exporter := newTestTracer(t)

	_, span := tracer.Start(context.Background(), "protection")
	SetProtectionAttributes(span, "replay", "initial", "abc")
	MarkDiverted(span)
	SetOutcome(span, "delivered")
	span.End()
	_ = tracer.ForceFlush(context.Background())

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}

	got := map[attribute.Key]attribute.Value{}
	for _, kv := range spans[0].Attributes {
		got[kv.Key] = kv.Value
	}
	if got[AttrStrategy].AsString() != "replay" {
		t.Errorf("strategy = %v", got[AttrStrategy])
	}
	if got[AttrCorrelationID].AsString() != "abc" {
		t.Errorf("correlation id = %v", got[AttrCorrelationID])
	}
	if !got[AttrDiverted].AsBool() {
		t.Error("expected diverted attribute")
	}
	if got[AttrOutcome].AsString() != "delivered" {
		t.Errorf("outcome = %v", got[AttrOutcome])
	}
	if len(spans[0].Events) != 1 || spans[0].Events[0].Name != EventDiverted {
		t.Errorf("expected diverted event, got %v", spans[0].Events)
	}
}
