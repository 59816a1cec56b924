package limits

import "sync/atomic"

// ConcurrentLimiter limits the number of simultaneous in-flight requests.
//
// It is a counting semaphore built on atomic operations. A limit of zero or
// less admits everything while still counting.
type ConcurrentLimiter struct {
	limit   int64
	current atomic.Int64
}

// NewConcurrentLimiter creates a limiter admitting up to limit requests.
//
// Example:
//
//	limiter := NewConcurrentLimiter(50)
//	if limiter.Acquire() {
//	    defer limiter.Release()
//	    // process request
//	}
func NewConcurrentLimiter(limit int) *ConcurrentLimiter {
	return &ConcurrentLimiter{limit: int64(limit)}
}

// Acquire attempts to take a slot. If it returns true the caller must call
// Release when done.
func (cl *ConcurrentLimiter) Acquire() bool {
	current := cl.current.Add(1)
	if cl.limit > 0 && current > cl.limit {
		cl.current.Add(-1)
		return false
	}
	return true
}

// Release returns a slot taken by Acquire.
func (cl *ConcurrentLimiter) Release() {
	if cl.current.Add(-1) < 0 {
		// Unpaired release; clamp so later accounting stays correct.
		cl.current.Store(0)
	}
}

// Current returns the number of slots in use.
func (cl *ConcurrentLimiter) Current() int64 {
	return cl.current.Load()
}

// Limit returns the configured limit.
func (cl *ConcurrentLimiter) Limit() int64 {
	return cl.limit
}

// Remaining returns the number of free slots, or -1 when unlimited.
func (cl *ConcurrentLimiter) Remaining() int64 {
	if cl.limit <= 0 {
		return -1
	}
	if r := cl.limit - cl.Current(); r > 0 {
		return r
	}
	return 0
}
