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

// Handoff is the zero-buffer strategy. Once an original request runs past
// the threshold it waits for a poll and then writes directly into the poll's
// connection.
type Handoff struct {
	timings  atomic.Pointer[Timings]
	registry *Registry[*coordinator]
	now      func() time.Time
	logger   *slog.Logger
	observer Observer
}

var _ Strategy = (*Handoff)(nil)

// NewHandoff returns a hand-off strategy.
func NewHandoff(t Timings, opts ...Option) (*Handoff, error) {
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("handoff strategy: %w", err)
	}
	o := buildOptions(StrategyHandoff, opts)
	h := &Handoff{
		registry: NewRegistry[*coordinator](o.now),
		now:      o.now,
		logger:   o.logger,
		observer: o.observer,
	}
	h.timings.Store(&t)
	return h, nil
}

func (h *Handoff) Name() string { return StrategyHandoff }

func (h *Handoff) Timings() Timings { return *h.timings.Load() }

func (h *Handoff) SetTimings(t Timings) error {
	if err := t.Validate(); err != nil {
		return err
	}
	h.timings.Store(&t)
	return nil
}

// Pending returns the number of live coordinators.
func (h *Handoff) Pending() int { return h.registry.Len() }

type handoffMonitor struct {
	h       *Handoff
	ctx     context.Context
	id      string
	start   time.Time
	timings Timings

	mu       sync.Mutex
	resolved bool
	sink     response.Sink
	err      error
	coord    *coordinator
	meter    *response.Meter
}

// Sink returns nil before the threshold. After it, the first call blocks
// until a poll offers its connection or FailTimeout passes.
func (m *handoffMonitor) Sink() (response.Sink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.resolved {
		return m.sink, m.err
	}
	if m.h.now().Sub(m.start) < m.timings.Threshold {
		return nil, nil
	}
	m.resolved = true
	m.sink, m.err = m.await()
	return m.sink, m.err
}

func (m *handoffMonitor) Monitored() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sink != nil
}

func (m *handoffMonitor) await() (response.Sink, error) {
	c, ok := m.h.registry.GetOrCreate(m.id, newCoordinator, (*coordinator).attach)
	if !ok {
		return nil, fmt.Errorf("%w: %s was already consumed", ErrPollNeverArrived, m.id)
	}
	m.coord = c

	timer := time.NewTimer(m.timings.FailTimeout)
	defer timer.Stop()

	for {
		sink, wait := c.consume()
		if sink != nil {
			m.meter = &response.Meter{}
			return response.Duplicate(sink, m.meter), nil
		}
		if wait == nil {
			return nil, fmt.Errorf("%w: %s was already consumed", ErrPollNeverArrived, m.id)
		}
		select {
		case <-wait:
		case <-timer.C:
			m.h.logger.WarnContext(m.ctx, "no poll arrived, response lost",
				"correlation_id", m.id,
				"fail_timeout", m.timings.FailTimeout,
			)
			return nil, ErrPollNeverArrived
		case <-m.ctx.Done():
			return nil, fmt.Errorf("%w: %w", ErrPollNeverArrived, m.ctx.Err())
		}
	}
}

func (h *Handoff) Start(ctx context.Context, id string) Monitor {
	return &handoffMonitor{
		h:       h,
		ctx:     ctx,
		id:      id,
		start:   h.now(),
		timings: h.Timings(),
	}
}

// Finish releases the poll, if one was consumed, and removes the coordinator
// when no poll took it. It returns ErrPollNeverArrived if the original
// request gave up waiting.
func (h *Handoff) Finish(ctx context.Context, id string, m Monitor) error {
	hm, ok := m.(*handoffMonitor)
	if !ok {
		return fmt.Errorf("protection: monitor %T was not issued by the handoff strategy", m)
	}
	hm.mu.Lock()
	c, err, meter := hm.coord, hm.err, hm.meter
	hm.mu.Unlock()

	if c != nil {
		c.release()
		h.registry.RemoveIf(id, func(cur *coordinator) bool {
			return cur == c && !c.isConsumed()
		})
	}
	if meter != nil {
		h.logger.DebugContext(ctx, "handoff finished",
			"correlation_id", id,
			"operations", meter.Ops(),
			"bytes", meter.Bytes(),
		)
	}
	return err
}

// Poll offers live to the original request of id and waits up to
// LongPollTime for it to be taken. Once taken, Poll returns when the original
// request finishes or TransferTimeout passes.
func (h *Handoff) Poll(ctx context.Context, id string, live response.Sink) (Outcome, error) {
	t := h.Timings()

	var offer *pollOffer
	c, ok := h.registry.GetOrCreate(id, newCoordinator, func(c *coordinator) {
		offer = c.install(live)
	})
	if !ok || offer == nil {
		return Unknown, nil
	}

	timer := time.NewTimer(t.LongPollTime)
	defer timer.Stop()

	select {
	case <-offer.taken:
		return h.deliver(ctx, id, c, offer, t), nil
	case <-offer.superseded:
		return RetryLater, nil
	case <-timer.C:
	case <-ctx.Done():
	}

	if !c.withdraw(offer) {
		return h.deliver(ctx, id, c, offer, t), nil
	}
	h.registry.RemoveIf(id, func(cur *coordinator) bool {
		return cur == c && c.idle()
	})
	return RetryLater, nil
}

func (h *Handoff) deliver(ctx context.Context, id string, c *coordinator, offer *pollOffer, t Timings) Outcome {
	timer := time.NewTimer(t.transfer())
	defer timer.Stop()

	select {
	case <-c.released:
	case <-timer.C:
		h.logger.WarnContext(ctx, "transfer timed out, detaching poll",
			"correlation_id", id,
			"transfer_timeout", t.transfer(),
		)
	case <-ctx.Done():
		h.logger.DebugContext(ctx, "poll went away during transfer", "correlation_id", id)
	}

	offer.sink.detach()
	h.registry.Take(id, func(cur *coordinator) bool { return cur == c })
	return Delivered
}

// Purge removes idle coordinators and tombstones older than
// Threshold + FailTimeout.
func (h *Handoff) Purge() int {
	cutoff := h.now().Add(-h.Timings().retention())
	entries, tombstones := h.registry.Purge(cutoff, (*coordinator).idle)
	if entries > 0 {
		h.observer.Purged(StrategyHandoff, entries)
	}
	if entries > 0 || tombstones > 0 {
		h.logger.Debug("purged handoff state", "coordinators", entries, "tombstones", tombstones)
	}
	return entries
}
