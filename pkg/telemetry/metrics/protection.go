package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/pollgate/pkg/config"
)

// PollMetrics tracks poll outcomes.
//
// Metrics:
//   - pollgate_protection_polls_total: polls by strategy and outcome
//   - pollgate_protection_poll_wait_seconds: time a poll waited before its answer
type PollMetrics struct {
	pollsTotal *prometheus.CounterVec
	pollWait   *prometheus.HistogramVec
}

// NewPollMetrics creates and registers poll metrics with the provided registry.
func NewPollMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *PollMetrics {
	pm := &PollMetrics{
		pollsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "polls_total",
				Help:      "Total number of polls by outcome",
			},
			[]string{"strategy", "outcome"},
		),
		pollWait: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "poll_wait_seconds",
				Help:      "Time a poll waited before being answered",
				Buckets:   cfg.PollWaitBuckets,
			},
			[]string{"strategy", "outcome"},
		),
	}

	registry.MustRegister(pm.pollsTotal, pm.pollWait)
	return pm
}

// RecordPoll records one poll.
func (pm *PollMetrics) RecordPoll(strategy, outcome string, wait time.Duration) {
	pm.pollsTotal.WithLabelValues(strategy, outcome).Inc()
	pm.pollWait.WithLabelValues(strategy, outcome).Observe(wait.Seconds())
}

// StoreMetrics tracks the state held for correlation ids.
//
// Metrics:
//   - pollgate_protection_recording_bytes: size of completed recordings
//   - pollgate_protection_recording_operations: operations per recording
//   - pollgate_protection_purged_total: entries dropped by purges
//   - pollgate_protection_pending: pending correlation ids (gauge func)
type StoreMetrics struct {
	cfg            *config.MetricsConfig
	recordingBytes *prometheus.HistogramVec
	recordingOps   *prometheus.HistogramVec
	purgedTotal    *prometheus.CounterVec
}

// NewStoreMetrics creates and registers store metrics with the provided registry.
func NewStoreMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *StoreMetrics {
	sm := &StoreMetrics{
		cfg: cfg,
		recordingBytes: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "recording_bytes",
				Help:      "Body bytes held by completed recordings",
				Buckets:   cfg.RecordingSizeBuckets,
			},
			[]string{"strategy"},
		),
		recordingOps: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "recording_operations",
				Help:      "Operations held by completed recordings",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
			},
			[]string{"strategy"},
		),
		purgedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "purged_total",
				Help:      "Total number of entries dropped by purges",
			},
			[]string{"strategy"},
		),
	}

	registry.MustRegister(sm.recordingBytes, sm.recordingOps, sm.purgedTotal)
	return sm
}

// RecordRecording records a completed recording.
func (sm *StoreMetrics) RecordRecording(strategy string, bytes int64, ops int) {
	sm.recordingBytes.WithLabelValues(strategy).Observe(float64(bytes))
	sm.recordingOps.WithLabelValues(strategy).Observe(float64(ops))
}

// RecordPurge records dropped entries. Empty purges are not counted.
func (sm *StoreMetrics) RecordPurge(strategy string, entries int) {
	if entries <= 0 {
		return
	}
	sm.purgedTotal.WithLabelValues(strategy).Add(float64(entries))
}

// RegisterPending registers a gauge reporting pending() on every scrape.
func (sm *StoreMetrics) RegisterPending(registry *prometheus.Registry, strategy string, pending func() int) error {
	gauge := prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace:   sm.cfg.Namespace,
			Subsystem:   sm.cfg.Subsystem,
			Name:        "pending",
			Help:        "Number of correlation ids with state held in memory",
			ConstLabels: prometheus.Labels{"strategy": strategy},
		},
		func() float64 { return float64(pending()) },
	)
	return registry.Register(gauge)
}
