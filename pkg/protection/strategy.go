package protection

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mercator-hq/pollgate/pkg/response"
)

// Strategy names.
const (
	StrategyReplay  = "replay"
	StrategyHandoff = "handoff"
)

// Outcome is the result of a poll.
type Outcome int

const (
	// Delivered means the response was written to the poll's sink.
	Delivered Outcome = iota + 1
	// RetryLater means the response is not ready; the client should poll
	// again with the same id.
	RetryLater
	// Unknown means the id was already consumed or is not known.
	Unknown
)

func (o Outcome) String() string {
	switch o {
	case Delivered:
		return "delivered"
	case RetryLater:
		return "retry_later"
	case Unknown:
		return "unknown"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Monitor decides, for one original request, where its output goes.
type Monitor interface {
	// Sink returns nil while output should go to the live response. Once the
	// threshold has passed it returns the sink that replaces the live
	// response, and keeps returning it.
	Sink() (response.Sink, error)

	// Monitored reports whether Sink has returned a non-nil sink.
	Monitored() bool
}

// Strategy coordinates original requests with their polls.
type Strategy interface {
	// Name returns the strategy name.
	Name() string

	// Start begins monitoring the original request identified by id.
	Start(ctx context.Context, id string) Monitor

	// Finish ends monitoring. It must be called exactly once per Start, even
	// when the handler panics.
	Finish(ctx context.Context, id string, m Monitor) error

	// Poll services a poll request, writing the response into live when it
	// is available.
	Poll(ctx context.Context, id string, live response.Sink) (Outcome, error)

	// Purge drops stale state and returns the number of entries removed.
	Purge() int

	// Pending returns the number of ids with live state.
	Pending() int

	// Timings returns the current timings.
	Timings() Timings

	// SetTimings replaces the timings for requests started afterwards.
	SetTimings(t Timings) error
}

// Observer receives strategy events. Implementations must be safe for
// concurrent use.
type Observer interface {
	RecordingSealed(strategy string, bytes int64, ops int)
	Purged(strategy string, entries int)
}

type nopObserver struct{}

func (nopObserver) RecordingSealed(string, int64, int) {}
func (nopObserver) Purged(string, int)                 {}

type options struct {
	now      func() time.Time
	logger   *slog.Logger
	observer Observer
}

// Option configures a strategy.
type Option func(*options)

// WithClock sets the clock used for thresholds and retention.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithObserver sets the event observer.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		o.observer = obs
	}
}

func buildOptions(name string, opts []Option) options {
	o := options{
		now:      time.Now,
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	o.logger = o.logger.With("component", "protection", "strategy", name)
	return o
}

// New returns the strategy with the given name.
func New(name string, t Timings, opts ...Option) (Strategy, error) {
	switch name {
	case StrategyReplay:
		s, err := NewReplay(t, opts...)
		if err != nil {
			return nil, err
		}
		return s, nil
	case StrategyHandoff:
		s, err := NewHandoff(t, opts...)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}
