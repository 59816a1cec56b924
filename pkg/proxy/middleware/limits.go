package middleware

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"mercator-hq/pollgate/pkg/limits"
	"mercator-hq/pollgate/pkg/proxy"
	"mercator-hq/pollgate/pkg/proxy/types"
	"mercator-hq/pollgate/pkg/telemetry/metrics"
)

// Rejection reasons, used as the reason label in metrics.
const (
	RejectPollRate    = "poll_rate"
	RejectConcurrency = "concurrency"
)

// LimitsConfig contains configuration for the limits middleware.
type LimitsConfig struct {
	// Protection names the correlation headers that mark polls and
	// originals. Requests carrying neither pass through.
	Protection *ProtectionConfig

	// ClientIPHeader names a header holding the client address. Empty uses
	// the connection's remote address.
	ClientIPHeader string

	// Metrics, if set, counts rejections.
	Metrics *metrics.Collector

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// LimitsMiddleware refuses polls from clients that exceed their poll rate
// with 429 and Retry-After, and protected originals beyond the concurrency
// cap with 503. It must run outside the protection middleware, so that a
// refused request never reaches the strategy.
func LimitsMiddleware(limiter *limits.Limiter, cfg *LimitsConfig) func(http.Handler) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch mode, _ := classify(r, cfg.Protection); mode {
			case ModePoll:
				client := clientKey(r, cfg.ClientIPHeader)
				ok, retryAfter := limiter.AllowPoll(client)
				setPollLimitHeaders(w, limiter, client)
				if !ok {
					logger.WarnContext(r.Context(), "poll rate exceeded",
						"client", client,
						"retry_after", retryAfter,
					)
					reject(w, cfg.Metrics, RejectPollRate, retryAfter, types.NewPollRateError(cfg.Protection.PollHeader))
					return
				}

			case ModeInitial:
				if !limiter.AcquireOriginal() {
					logger.WarnContext(r.Context(), "too many protected originals in flight",
						"in_flight", limiter.OriginalsInFlight(),
					)
					reject(w, cfg.Metrics, RejectConcurrency, time.Second, types.NewTooManyOriginalsError())
					return
				}
				defer limiter.ReleaseOriginal()
			}

			next.ServeHTTP(w, r)
		})
	}
}

func setPollLimitHeaders(w http.ResponseWriter, limiter *limits.Limiter, client string) {
	remaining := limiter.PollsRemaining(client)
	if remaining == math.MaxInt64 {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limiter.PollBurst()))
	w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
}

func reject(w http.ResponseWriter, m *metrics.Collector, reason string, retryAfter time.Duration, errResp *types.ErrorResponse) {
	if m != nil {
		m.RecordRejection(reason)
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(retryAfter)))
	_ = proxy.WriteErrorResponse(w, errResp)
}

// retryAfterSeconds rounds d up to whole seconds, at least one.
func retryAfterSeconds(d time.Duration) int {
	s := int(math.Ceil(d.Seconds()))
	if s < 1 {
		return 1
	}
	return s
}

// clientKey identifies the client a poll is counted against. With header
// set, the first address it lists wins.
func clientKey(r *http.Request, header string) string {
	if header != "" {
		if v := r.Header.Get(header); v != "" {
			first, _, _ := strings.Cut(v, ",")
			if first = strings.TrimSpace(first); first != "" {
				return first
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
