package protection

import (
	"errors"
	"fmt"
)

var (
	// ErrPollNeverArrived is returned to the original request when the
	// hand-off strategy waited FailTimeout for a poll that never came. The
	// response is lost.
	ErrPollNeverArrived = errors.New("protection: poll never arrived")

	// ErrUnknownStrategy is returned by New for an unrecognised strategy name.
	ErrUnknownStrategy = errors.New("protection: unknown strategy")
)

// ReplayError reports a failure writing a recording into a poll's sink. The
// recording has already been claimed and will not be offered again.
type ReplayError struct {
	ID  string
	Err error
}

func (e *ReplayError) Error() string {
	return fmt.Sprintf("protection: replay for %s failed: %v", e.ID, e.Err)
}

func (e *ReplayError) Unwrap() error {
	return e.Err
}
