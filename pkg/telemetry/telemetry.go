package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"mercator-hq/pollgate/pkg/config"
	"mercator-hq/pollgate/pkg/telemetry/health"
	"mercator-hq/pollgate/pkg/telemetry/logging"
	"mercator-hq/pollgate/pkg/telemetry/metrics"
	"mercator-hq/pollgate/pkg/telemetry/tracing"
)

// Telemetry holds the process-wide logger, metrics collector, tracer and
// health checker.
type Telemetry struct {
	level   *slog.LevelVar
	logger  *slog.Logger
	metrics *metrics.Collector
	tracer  *tracing.Tracer
	health  *health.Checker
}

// New builds every telemetry component from configuration and installs the
// logger as the slog default.
func New(cfg *config.TelemetryConfig) (*Telemetry, error) {
	level := new(slog.LevelVar)
	lc := logging.FromConfig(cfg.Logging)
	lc.LevelVar = level
	logger, err := logging.New(lc)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	slog.SetDefault(logger)

	tracer, err := tracing.New(&cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}

	return &Telemetry{
		level:   level,
		logger:  logger,
		metrics: metrics.NewCollector(&cfg.Metrics, nil),
		tracer:  tracer,
		health:  health.New(cfg.Health.CheckTimeout),
	}, nil
}

// Logger returns the structured logger.
func (t *Telemetry) Logger() *slog.Logger { return t.logger }

// SetLogLevel changes the level of the logger, and of every logger derived
// from it, without rebuilding the handler.
func (t *Telemetry) SetLogLevel(level string) error {
	l, err := logging.ParseLevel(level)
	if err != nil {
		return err
	}
	t.level.Set(l)
	return nil
}

// LogLevel returns the current log level.
func (t *Telemetry) LogLevel() slog.Level { return t.level.Level() }

// Metrics returns the Prometheus collector.
func (t *Telemetry) Metrics() *metrics.Collector { return t.metrics }

// Tracer returns the tracer.
func (t *Telemetry) Tracer() *tracing.Tracer { return t.tracer }

// Health returns the health checker.
func (t *Telemetry) Health() *health.Checker { return t.health }

// Shutdown flushes pending spans.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	if err := t.tracer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
	}
	return errors.Join(errs...)
}
