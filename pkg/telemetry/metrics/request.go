package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/pollgate/pkg/config"
)

// RequestMetrics tracks requests served through the protection middleware.
//
// Metrics:
//   - pollgate_protection_requests_total: requests by strategy, mode and status
//   - pollgate_protection_request_duration_seconds: request duration histogram
//   - pollgate_protection_diversions_total: responses diverted to a poll
//   - pollgate_protection_rejected_total: requests refused by limits
type RequestMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	diversions      *prometheus.CounterVec
	rejected        *prometheus.CounterVec
}

// NewRequestMetrics creates and registers request metrics with the provided registry.
func NewRequestMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RequestMetrics {
	rm := &RequestMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "requests_total",
				Help:      "Total number of requests handled by the protection middleware",
			},
			[]string{"strategy", "mode", "status"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "request_duration_seconds",
				Help:      "Duration of protected requests in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 5, 10, 15, 30, 60, 120},
			},
			[]string{"strategy", "mode"},
		),

		diversions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "diversions_total",
				Help:      "Total number of responses diverted to a poll",
			},
			[]string{"strategy"},
		),

		rejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rejected_total",
				Help:      "Total number of protected requests refused by limits",
			},
			[]string{"reason"},
		),
	}

	registry.MustRegister(
		rm.requestsTotal,
		rm.requestDuration,
		rm.diversions,
		rm.rejected,
	)

	return rm
}

// RecordRequest records a finished request.
func (rm *RequestMetrics) RecordRequest(strategy, mode string, status int, duration time.Duration) {
	rm.requestsTotal.WithLabelValues(strategy, mode, strconv.Itoa(status)).Inc()
	rm.requestDuration.WithLabelValues(strategy, mode).Observe(duration.Seconds())
}

// RecordDiversion records a diverted response.
func (rm *RequestMetrics) RecordDiversion(strategy string) {
	rm.diversions.WithLabelValues(strategy).Inc()
}

// RecordRejection records a request refused by limits.
func (rm *RequestMetrics) RecordRejection(reason string) {
	rm.rejected.WithLabelValues(reason).Inc()
}
