// Package health provides liveness, readiness and version endpoints.
//
// Readiness aggregates registered component checks. pollgate registers a
// PendingCheck on the active protection strategy, so a pod that holds too
// many undelivered responses reports not ready. During shutdown the checker
// is switched to draining and readiness fails while in-flight polls finish.
//
//	checker := health.New(5 * time.Second)
//	checker.RegisterCheck("protection", health.PendingCheck(strategy.Pending, 10000))
//	mux.Handle("/health", checker.LivenessHandler())
//	mux.Handle("/ready", checker.ReadinessHandler())
package health
