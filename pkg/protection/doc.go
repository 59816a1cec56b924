// Package protection converts slow HTTP requests into correlation-tracked
// long-poll exchanges so that they survive a gateway idle timeout.
//
// A client tags its original request with a correlation id. If processing runs
// past a threshold, the response is diverted away from the original
// connection and later delivered to a poll request carrying the same id.
//
// # Strategies
//
// Two interchangeable strategies implement Strategy:
//
//   - Replay records the whole response once the threshold has passed and
//     replays it into the first poll that collects it.
//   - Handoff buffers nothing. Once the threshold has passed the original
//     request waits for a poll to arrive and then writes straight into the
//     poll's connection.
//
// Both are driven the same way:
//
//	monitor := strategy.Start(ctx, id)
//	defer strategy.Finish(ctx, id, monitor)
//	sink, err := monitor.Sink() // nil: write to the live response
//
//	outcome, err := strategy.Poll(ctx, id, live)
//
// # Timings
//
//   - Threshold: time after which output is diverted (default 14s)
//   - LongPollTime: how long a poll waits before answering RetryLater (default 6s)
//   - FailTimeout: how long an original waits for a poll, and how long a
//     completed recording is kept (default 30s)
//   - TransferTimeout: how long a consumed hand-off poll waits for the
//     original to finish writing (defaults to FailTimeout)
//
// # Concurrency
//
// Each strategy owns a Registry keyed by correlation id. The registry lock is
// held only for lookups and updates. Every wait in this package is bounded by
// a timer and by the caller's context. When several polls for the same id
// are in flight, the most recent one wins and earlier ones return RetryLater.
package protection
