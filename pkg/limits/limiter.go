package limits

import (
	"math"
	"sync"
	"time"

	"mercator-hq/pollgate/pkg/config"
)

// Config holds the limits enforced by a Limiter.
type Config struct {
	// PollsPerSecond is the per-client poll refill rate.
	PollsPerSecond float64

	// PollBurst is the per-client bucket capacity.
	PollBurst int

	// MaxConcurrentOriginals caps protected originals in flight. Zero means
	// unlimited.
	MaxConcurrentOriginals int

	// IdleTTL is how long an unused client bucket survives a purge.
	IdleTTL time.Duration
}

// FromConfig converts the limits section of the configuration.
func FromConfig(cfg config.LimitsConfig) Config {
	return Config{
		PollsPerSecond:         cfg.PollsPerSecond,
		PollBurst:              cfg.PollBurst,
		MaxConcurrentOriginals: cfg.MaxConcurrentOriginals,
		IdleTTL:                cfg.IdleTTL,
	}
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// Limiter enforces per-client poll rates and the concurrent original cap.
type Limiter struct {
	config    Config
	now       func() time.Time
	originals *ConcurrentLimiter

	mu      sync.Mutex
	buckets map[string]*TokenBucket
}

// NewLimiter creates a limiter.
func NewLimiter(cfg Config, opts ...Option) *Limiter {
	if cfg.PollBurst < 1 {
		cfg.PollBurst = 1
	}
	l := &Limiter{
		config:    cfg,
		now:       time.Now,
		originals: NewConcurrentLimiter(cfg.MaxConcurrentOriginals),
		buckets:   make(map[string]*TokenBucket),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// AllowPoll takes a token from the bucket of client. When the bucket is empty
// it returns false and how long until a token is available.
func (l *Limiter) AllowPoll(client string) (bool, time.Duration) {
	if l.config.PollsPerSecond <= 0 {
		return true, 0
	}

	bucket := l.bucket(client)
	if bucket.Take(1) {
		return true, 0
	}
	return false, bucket.TimeUntilAvailable(1)
}

// PollsRemaining returns the whole tokens left in the bucket of client.
func (l *Limiter) PollsRemaining(client string) int64 {
	if l.config.PollsPerSecond <= 0 {
		return math.MaxInt64
	}
	return l.bucket(client).Remaining()
}

// PollBurst returns the bucket capacity.
func (l *Limiter) PollBurst() int {
	return l.config.PollBurst
}

func (l *Limiter) bucket(client string) *TokenBucket {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[client]
	if !ok {
		b = NewTokenBucket(int64(l.config.PollBurst), l.config.PollsPerSecond, l.now)
		l.buckets[client] = b
	}
	return b
}

// AcquireOriginal takes a slot for a protected original request. If it
// returns true the caller must call ReleaseOriginal.
func (l *Limiter) AcquireOriginal() bool {
	return l.originals.Acquire()
}

// ReleaseOriginal returns a slot taken by AcquireOriginal.
func (l *Limiter) ReleaseOriginal() {
	l.originals.Release()
}

// OriginalsInFlight returns the number of protected originals running.
func (l *Limiter) OriginalsInFlight() int64 {
	return l.originals.Current()
}

// Clients returns the number of tracked client buckets.
func (l *Limiter) Clients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// Purge drops buckets that have been idle longer than IdleTTL and returns
// how many were dropped. A dropped client starts again with a full bucket.
func (l *Limiter) Purge() int {
	if l.config.IdleTTL <= 0 {
		return 0
	}
	cutoff := l.now().Add(-l.config.IdleTTL)

	l.mu.Lock()
	defer l.mu.Unlock()

	purged := 0
	for client, b := range l.buckets {
		if b.IdleSince().Before(cutoff) {
			delete(l.buckets, client)
			purged++
		}
	}
	return purged
}
