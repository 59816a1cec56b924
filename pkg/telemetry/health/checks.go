package health

import (
	"context"
	"fmt"
)

// PendingCheck fails when more than max correlation ids are pending. A
// pod in that state is holding many undelivered responses and should stop
// receiving new original requests until polls drain them. A max of zero
// disables the limit.
func PendingCheck(pending func() int, max int) CheckFunc {
	return func(ctx context.Context) error {
		if max <= 0 {
			return nil
		}
		if n := pending(); n > max {
			return fmt.Errorf("%d pending correlation ids exceed limit %d", n, max)
		}
		return nil
	}
}
