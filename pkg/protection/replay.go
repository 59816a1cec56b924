package protection

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"mercator-hq/pollgate/pkg/response"
)

// CompletedSlot holds a finished response waiting to be collected by a poll.
type CompletedSlot struct {
	Recording   *response.Recording
	CompletedAt time.Time
}

// Replay is the record-and-replay strategy. Output of a request that runs
// past the threshold is recorded in full and replayed into the first poll
// that asks for it.
type Replay struct {
	timings  atomic.Pointer[Timings]
	registry *Registry[*CompletedSlot]
	now      func() time.Time
	logger   *slog.Logger
	observer Observer

	pollMu  sync.Mutex
	pollers map[string]chan struct{}
}

var _ Strategy = (*Replay)(nil)

// NewReplay returns a record-and-replay strategy.
func NewReplay(t Timings, opts ...Option) (*Replay, error) {
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("replay strategy: %w", err)
	}
	o := buildOptions(StrategyReplay, opts)
	r := &Replay{
		registry: NewRegistry[*CompletedSlot](o.now),
		now:      o.now,
		logger:   o.logger,
		observer: o.observer,
		pollers:  make(map[string]chan struct{}),
	}
	r.timings.Store(&t)
	return r, nil
}

func (r *Replay) Name() string { return StrategyReplay }

func (r *Replay) Timings() Timings { return *r.timings.Load() }

func (r *Replay) SetTimings(t Timings) error {
	if err := t.Validate(); err != nil {
		return err
	}
	r.timings.Store(&t)
	return nil
}

// Pending returns the number of completed responses awaiting collection.
func (r *Replay) Pending() int { return r.registry.Len() }

type replayMonitor struct {
	now       func() time.Time
	start     time.Time
	threshold time.Duration

	mu       sync.Mutex
	recorder *response.Recorder
}

func (m *replayMonitor) Sink() (response.Sink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.recorder != nil {
		return m.recorder, nil
	}
	if m.threshold > 0 && m.now().Sub(m.start) < m.threshold {
		return nil, nil
	}
	m.recorder = response.NewRecorder()
	return m.recorder, nil
}

func (m *replayMonitor) Monitored() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recorder != nil
}

func (r *Replay) Start(_ context.Context, _ string) Monitor {
	return &replayMonitor{
		now:       r.now,
		start:     r.now(),
		threshold: r.Timings().Threshold,
	}
}

// Finish publishes the recording, if any, and wakes waiting polls. Stale
// recordings are purged first.
func (r *Replay) Finish(ctx context.Context, id string, m Monitor) error {
	rm, ok := m.(*replayMonitor)
	if !ok {
		return fmt.Errorf("protection: monitor %T was not issued by the replay strategy", m)
	}
	rm.mu.Lock()
	rec := rm.recorder
	rm.mu.Unlock()
	if rec == nil {
		return nil
	}

	recording := rec.Seal()
	r.Purge()
	r.registry.Put(id, &CompletedSlot{Recording: recording, CompletedAt: r.now()})
	r.observer.RecordingSealed(StrategyReplay, recording.Size(), recording.Len())

	r.logger.DebugContext(ctx, "recording completed",
		"correlation_id", id,
		"operations", recording.Len(),
		"bytes", recording.Size(),
	)
	return nil
}

// Poll waits up to LongPollTime for the recording of id and replays it into
// live. A ReplayError is returned with Delivered when writing to live fails;
// the recording is not offered again.
func (r *Replay) Poll(ctx context.Context, id string, live response.Sink) (Outcome, error) {
	t := r.Timings()
	timer := time.NewTimer(t.LongPollTime)
	defer timer.Stop()

	superseded := r.registerPoller(id)
	defer r.releasePoller(id, superseded)

	for {
		select {
		case <-superseded:
			return RetryLater, nil
		default:
		}

		slot, state, changed := r.registry.Claim(id)
		switch state {
		case Consumed:
			return Unknown, nil
		case Claimed:
			if err := slot.Recording.Replay(live); err != nil {
				return Delivered, &ReplayError{ID: id, Err: err}
			}
			r.logger.DebugContext(ctx, "recording replayed",
				"correlation_id", id,
				"age", r.now().Sub(slot.CompletedAt),
			)
			return Delivered, nil
		}

		select {
		case <-changed:
		case <-superseded:
			return RetryLater, nil
		case <-timer.C:
			return RetryLater, nil
		case <-ctx.Done():
			return RetryLater, nil
		}
	}
}

// Purge removes recordings and tombstones older than Threshold + FailTimeout.
func (r *Replay) Purge() int {
	cutoff := r.now().Add(-r.Timings().retention())
	entries, tombstones := r.registry.Purge(cutoff, nil)
	if entries > 0 {
		r.observer.Purged(StrategyReplay, entries)
		r.logger.Info("purged uncollected recordings", "recordings", entries, "tombstones", tombstones)
	}
	return entries
}

// registerPoller makes the caller the current poll for id. The returned
// channel is closed when a newer poll for the same id arrives.
func (r *Replay) registerPoller(id string) chan struct{} {
	r.pollMu.Lock()
	defer r.pollMu.Unlock()
	if prev, ok := r.pollers[id]; ok {
		close(prev)
	}
	ch := make(chan struct{})
	r.pollers[id] = ch
	return ch
}

func (r *Replay) releasePoller(id string, ch chan struct{}) {
	r.pollMu.Lock()
	defer r.pollMu.Unlock()
	if r.pollers[id] == ch {
		delete(r.pollers, id)
	}
}
