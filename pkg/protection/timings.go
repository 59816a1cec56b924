package protection

import (
	"errors"
	"fmt"
	"time"
)

const (
	DefaultThreshold    = 14 * time.Second
	DefaultLongPollTime = 6 * time.Second
	DefaultFailTimeout  = 30 * time.Second
)

// Timings configures a strategy.
type Timings struct {
	// Threshold is how long a request runs before its output is diverted.
	// Zero diverts every protected request.
	Threshold time.Duration

	// LongPollTime bounds how long a poll waits for the response.
	LongPollTime time.Duration

	// FailTimeout bounds how long an original request waits for a poll and
	// how long an uncollected response is retained.
	FailTimeout time.Duration

	// TransferTimeout bounds how long a consumed hand-off poll waits for the
	// original request to finish. Zero means FailTimeout.
	TransferTimeout time.Duration
}

// DefaultTimings returns the default timings.
func DefaultTimings() Timings {
	return Timings{
		Threshold:    DefaultThreshold,
		LongPollTime: DefaultLongPollTime,
		FailTimeout:  DefaultFailTimeout,
	}
}

// Validate checks that all timings are usable.
func (t Timings) Validate() error {
	var errs []error
	if t.Threshold < 0 {
		errs = append(errs, fmt.Errorf("threshold must not be negative, got %s", t.Threshold))
	}
	if t.LongPollTime <= 0 {
		errs = append(errs, fmt.Errorf("long poll time must be positive, got %s", t.LongPollTime))
	}
	if t.FailTimeout <= 0 {
		errs = append(errs, fmt.Errorf("fail timeout must be positive, got %s", t.FailTimeout))
	}
	if t.TransferTimeout < 0 {
		errs = append(errs, fmt.Errorf("transfer timeout must not be negative, got %s", t.TransferTimeout))
	}
	return errors.Join(errs...)
}

func (t Timings) transfer() time.Duration {
	if t.TransferTimeout > 0 {
		return t.TransferTimeout
	}
	return t.FailTimeout
}

// retention is how long completed responses and tombstones are kept.
func (t Timings) retention() time.Duration {
	return t.Threshold + t.FailTimeout
}
