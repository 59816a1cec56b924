package health

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// CheckFunc reports whether one component can take traffic. A nil error
// means healthy.
type CheckFunc func(ctx context.Context) error

// Overall and per-check status values.
const (
	StatusOK        = "ok"
	StatusReady     = "ready"
	StatusDegraded  = "degraded"
	StatusDraining  = "draining"
	StatusUnhealthy = "unhealthy"
)

const defaultCheckTimeout = 5 * time.Second

// ErrCheckTimeout is reported for a check that did not return within the
// checker's timeout.
var ErrCheckTimeout = errors.New("health check timeout")

// CheckResult is the outcome of one readiness check.
type CheckResult struct {
	Status     string  `json:"status"`
	Message    string  `json:"message,omitempty"`
	DurationMS float64 `json:"duration_ms"`
}

// HealthStatus is the body of the liveness and readiness endpoints.
type HealthStatus struct {
	Status    string                 `json:"status"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Ready reports whether the status allows traffic.
func (s HealthStatus) Ready() bool {
	return s.Status == StatusReady || s.Status == StatusOK
}

// Checker runs the readiness checks registered by the server. Once shutdown
// begins it reports draining, so load balancers stop sending new original
// requests while polls for diverted responses still land.
type Checker struct {
	timeout  time.Duration
	draining atomic.Bool

	mu     sync.RWMutex
	checks map[string]CheckFunc
}

// New creates a checker that gives each check timeout to return, or five
// seconds when timeout is zero.
func New(timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = defaultCheckTimeout
	}
	return &Checker{timeout: timeout, checks: make(map[string]CheckFunc)}
}

// RegisterCheck adds or replaces the check for name.
func (c *Checker) RegisterCheck(name string, check CheckFunc) {
	c.mu.Lock()
	c.checks[name] = check
	c.mu.Unlock()
}

// ListChecks returns the registered check names in sorted order.
func (c *Checker) ListChecks() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// SetDraining marks the process as shutting down. Readiness fails from then on.
func (c *Checker) SetDraining() {
	c.draining.Store(true)
}

// CheckLiveness reports that the process is running.
func (c *Checker) CheckLiveness(context.Context) HealthStatus {
	return HealthStatus{Status: StatusOK, Timestamp: time.Now()}
}

// CheckReadiness runs every registered check concurrently. The result is
// degraded when any check fails and draining after SetDraining.
func (c *Checker) CheckReadiness(ctx context.Context) HealthStatus {
	if c.draining.Load() {
		return HealthStatus{Status: StatusDraining, Timestamp: time.Now()}
	}

	c.mu.RLock()
	checks := make(map[string]CheckFunc, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	c.mu.RUnlock()

	type named struct {
		name   string
		result CheckResult
	}
	out := make(chan named, len(checks))
	for name, check := range checks {
		go func() { out <- named{name, c.run(ctx, check)} }()
	}

	status := HealthStatus{
		Status: StatusReady,
		Checks: make(map[string]CheckResult, len(checks)),
	}
	for range checks {
		n := <-out
		status.Checks[n.name] = n.result
		if n.result.Status != StatusOK {
			status.Status = StatusDegraded
		}
	}
	status.Timestamp = time.Now()
	return status
}

// run calls check with the checker's timeout. A check that ignores its
// context is abandoned, not waited for.
func (c *Checker) run(ctx context.Context, check CheckFunc) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	done := make(chan error, 1)
	go func() { done <- check(ctx) }()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ErrCheckTimeout
	}

	result := CheckResult{
		Status:     StatusOK,
		DurationMS: float64(time.Since(start).Microseconds()) / 1000,
	}
	if err != nil {
		result.Status = StatusUnhealthy
		result.Message = err.Error()
	}
	return result
}
