// Package limits bounds how hard clients can lean on timeout protection.
//
// # Overview
//
// Two limits are enforced:
//
//   - Poll rate: each client gets a token bucket refilled at PollsPerSecond
//     with PollBurst capacity. A client that polls in a tight loop instead of
//     long polling is refused until tokens refill.
//   - Concurrent originals: at most MaxConcurrentOriginals protected original
//     requests run at once. Each one may hold a response for up to the fail
//     timeout, so this caps the memory recordings can take.
//
// # Usage
//
//	limiter := limits.NewLimiter(limits.FromConfig(cfg.Limits))
//
//	if ok, retryAfter := limiter.AllowPoll(clientIP); !ok {
//	    // answer 429 with Retry-After
//	}
//
//	if !limiter.AcquireOriginal() {
//	    // answer 503
//	}
//	defer limiter.ReleaseOriginal()
//
// Buckets of clients that stopped polling are dropped by Purge, which the
// server runs on the protection purge schedule.
//
// # Thread Safety
//
// All types in this package are safe for concurrent use.
package limits
