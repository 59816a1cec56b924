package protection

import (
	"context"
	"sync"
	"time"

	"mercator-hq/pollgate/pkg/response"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type pollResult struct {
	outcome Outcome
	err     error
	elapsed time.Duration
}

// pollAsync runs s.Poll in a goroutine and delivers its result on the
// returned channel.
func pollAsync(ctx context.Context, s Strategy, id string, live response.Sink) <-chan pollResult {
	ch := make(chan pollResult, 1)
	go func() {
		start := time.Now()
		outcome, err := s.Poll(ctx, id, live)
		ch <- pollResult{outcome: outcome, err: err, elapsed: time.Since(start)}
	}()
	return ch
}

type recordingObserver struct {
	mu      sync.Mutex
	sealed  []int64
	purged  int
	sources []string
}

func (o *recordingObserver) RecordingSealed(strategy string, bytes int64, _ int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sealed = append(o.sealed, bytes)
	o.sources = append(o.sources, strategy)
}

func (o *recordingObserver) Purged(strategy string, entries int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.purged += entries
	o.sources = append(o.sources, strategy)
}

func (o *recordingObserver) snapshot() ([]int64, int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]int64(nil), o.sealed...), o.purged
}
