package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mercator-hq/pollgate/pkg/config"
	"mercator-hq/pollgate/pkg/limits"
	"mercator-hq/pollgate/pkg/proxy/types"
	"mercator-hq/pollgate/pkg/telemetry/metrics"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestLimitsMiddleware_PollRate(t *testing.T) {
	limiter := limits.NewLimiter(limits.Config{PollsPerSecond: 0.1, PollBurst: 2})
	collector := metrics.NewCollector(&config.MetricsConfig{Enabled: true}, nil)
	wrapped := LimitsMiddleware(limiter, &LimitsConfig{
		Protection: testProtectionConfig(),
		Metrics:    collector,
	})(okHandler())

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		wrapped.ServeHTTP(w, pollRequest("id-rate"))
		require.Equal(t, http.StatusOK, w.Code, "poll %d", i)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	}

	w := httptest.NewRecorder()
	wrapped.ServeHTTP(w, pollRequest("id-rate"))
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "10", w.Header().Get("Retry-After"))
	assert.Equal(t, types.CodePollRateExceeded, decodeError(t, w).Error.Code)

	count, err := testutil.GatherAndCount(collector.Registry(), "pollgate_protection_rejected_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count, "rejection series")
}

func TestLimitsMiddleware_ClientIPHeader(t *testing.T) {
	limiter := limits.NewLimiter(limits.Config{PollsPerSecond: 0.1, PollBurst: 1})
	wrapped := LimitsMiddleware(limiter, &LimitsConfig{
		Protection:     testProtectionConfig(),
		ClientIPHeader: "X-Forwarded-For",
	})(okHandler())

	poll := func(forwarded string) int {
		req := pollRequest("id-forwarded")
		req.Header.Set("X-Forwarded-For", forwarded)
		w := httptest.NewRecorder()
		wrapped.ServeHTTP(w, req)
		return w.Code
	}

	require.Equal(t, http.StatusOK, poll("203.0.113.7, 10.0.0.1"), "first client")
	assert.Equal(t, http.StatusOK, poll("203.0.113.8, 10.0.0.1"), "second client")
	assert.Equal(t, http.StatusTooManyRequests, poll("203.0.113.7"), "repeat client")
}

func TestLimitsMiddleware_ConcurrentOriginals(t *testing.T) {
	limiter := limits.NewLimiter(limits.Config{MaxConcurrentOriginals: 1})

	started := make(chan struct{})
	release := make(chan struct{})
	blocking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
		w.WriteHeader(http.StatusOK)
	})
	wrapped := LimitsMiddleware(limiter, &LimitsConfig{Protection: testProtectionConfig()})(blocking)

	done := make(chan int, 1)
	go func() {
		w := httptest.NewRecorder()
		wrapped.ServeHTTP(w, originalRequest("id-first"))
		done <- w.Code
	}()
	<-started

	w := httptest.NewRecorder()
	wrapped.ServeHTTP(w, originalRequest("id-second"))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.Equal(t, types.CodeTooManyOriginals, decodeError(t, w).Error.Code)

	close(release)
	select {
	case code := <-done:
		assert.Equal(t, http.StatusOK, code, "first original")
	case <-time.After(time.Second):
		t.Fatal("first original did not finish")
	}
	assert.Zero(t, limiter.OriginalsInFlight())
}

func TestLimitsMiddleware_PassThrough(t *testing.T) {
	limiter := limits.NewLimiter(limits.Config{PollsPerSecond: 0.1, PollBurst: 1, MaxConcurrentOriginals: 1})

	t.Run("unprotected requests are not limited", func(t *testing.T) {
		wrapped := LimitsMiddleware(limiter, &LimitsConfig{Protection: testProtectionConfig()})(okHandler())
		for i := 0; i < 3; i++ {
			w := httptest.NewRecorder()
			wrapped.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/slow", nil))
			require.Equal(t, http.StatusOK, w.Code)
		}
	})

	t.Run("disabled protection is not limited", func(t *testing.T) {
		cfg := testProtectionConfig()
		cfg.Enabled = false
		wrapped := LimitsMiddleware(limiter, &LimitsConfig{Protection: cfg})(okHandler())
		for i := 0; i < 3; i++ {
			w := httptest.NewRecorder()
			wrapped.ServeHTTP(w, pollRequest("id-disabled"))
			require.Equal(t, http.StatusOK, w.Code)
		}
	})
}

func TestRetryAfterSeconds(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want int
	}{
		{0, 1},
		{200 * time.Millisecond, 1},
		{time.Second, 1},
		{1500 * time.Millisecond, 2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, retryAfterSeconds(tt.in), "retryAfterSeconds(%v)", tt.in)
	}
}
