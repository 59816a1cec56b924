// Package metrics exposes Prometheus metrics for timeout protection.
//
// A Collector registers every metric on its own registry and is handed to
// the protection strategies as their observer:
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	strategy, _ := protection.New("replay", timings, protection.WithObserver(collector))
//	_ = collector.RegisterPending("replay", strategy.Pending)
//	mux.Handle("/metrics", collector.Handler())
//
// Exposed series (namespace and subsystem default to pollgate_protection):
//
//   - requests_total{strategy,mode,status}
//   - request_duration_seconds{strategy,mode}
//   - diversions_total{strategy}
//   - rejected_total{reason}
//   - polls_total{strategy,outcome}
//   - poll_wait_seconds{strategy,outcome}
//   - recording_bytes{strategy}
//   - recording_operations{strategy}
//   - purged_total{strategy}
//   - pending{strategy}
package metrics
