package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/pollgate/pkg/config"
)

// Collector owns the Prometheus registry and every pollgate metric. It
// satisfies protection.Observer, so a strategy can report recordings and
// purges to it directly.
//
// All methods are no-ops when metrics are disabled.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	requestMetrics *RequestMetrics
	pollMetrics    *PollMetrics
	storeMetrics   *StoreMetrics
}

// NewCollector creates a new metrics collector with the specified configuration
// and Prometheus registry. If registry is nil, a fresh registry is created.
//
// Example:
//
//	cfg := &config.MetricsConfig{
//		Enabled:   true,
//		Namespace: "pollgate",
//		Subsystem: "protection",
//	}
//	collector := metrics.NewCollector(cfg, nil)
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	// Set defaults if not specified
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = config.DefaultMetricsSubsystem
	}
	if len(cfg.PollWaitBuckets) == 0 {
		cfg.PollWaitBuckets = append([]float64(nil), config.DefaultPollWaitBuckets...)
	}
	if len(cfg.RecordingSizeBuckets) == 0 {
		cfg.RecordingSizeBuckets = append([]float64(nil), config.DefaultRecordingSizeBuckets...)
	}

	return &Collector{
		config:         cfg,
		registry:       registry,
		requestMetrics: NewRequestMetrics(cfg, registry),
		pollMetrics:    NewPollMetrics(cfg, registry),
		storeMetrics:   NewStoreMetrics(cfg, registry),
	}
}

// RecordRequest records a finished request that went through the protection
// middleware.
//
// Parameters:
//   - strategy: "replay" or "handoff"
//   - mode: "initial", "poll" or "unprotected"
//   - status: HTTP status written to the client
//   - duration: time spent serving the request
func (c *Collector) RecordRequest(strategy, mode string, status int, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.requestMetrics.RecordRequest(strategy, mode, status, duration)
}

// RecordDiversion records that an original request's response went to a poll.
func (c *Collector) RecordDiversion(strategy string) {
	if !c.config.Enabled {
		return
	}
	c.requestMetrics.RecordDiversion(strategy)
}

// RecordRejection records a request refused by limits. Reason is
// "poll_rate" or "concurrency".
func (c *Collector) RecordRejection(reason string) {
	if !c.config.Enabled {
		return
	}
	c.requestMetrics.RecordRejection(reason)
}

// RecordPoll records the outcome of a poll and how long it waited.
//
// Parameters:
//   - strategy: "replay" or "handoff"
//   - outcome: "delivered", "retry_later", "unknown" or "error"
//   - wait: time between the poll arriving and its answer starting
func (c *Collector) RecordPoll(strategy, outcome string, wait time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.pollMetrics.RecordPoll(strategy, outcome, wait)
}

// RecordingSealed records the size of a completed recording.
func (c *Collector) RecordingSealed(strategy string, bytes int64, ops int) {
	if !c.config.Enabled {
		return
	}
	c.storeMetrics.RecordRecording(strategy, bytes, ops)
}

// Purged records entries dropped by a purge.
func (c *Collector) Purged(strategy string, entries int) {
	if !c.config.Enabled {
		return
	}
	c.storeMetrics.RecordPurge(strategy, entries)
}

// RegisterPending exposes the number of pending correlation ids of a
// strategy as a gauge evaluated on scrape.
func (c *Collector) RegisterPending(strategy string, pending func() int) error {
	if !c.config.Enabled {
		return nil
	}
	return c.storeMetrics.RegisterPending(c.registry, strategy, pending)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
