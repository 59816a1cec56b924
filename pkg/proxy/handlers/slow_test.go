package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mercator-hq/pollgate/pkg/config"
	"mercator-hq/pollgate/pkg/protection"
	"mercator-hq/pollgate/pkg/proxy/types"
)

func newTestSlowHandler() *SlowHandler {
	h := NewSlowHandler(config.DemoConfig{
		Enabled:      true,
		DefaultDelay: 30 * time.Millisecond,
		MaxDelay:     100 * time.Millisecond,
	})
	h.Step = 10 * time.Millisecond
	return h
}

func TestSlowHandler(t *testing.T) {
	h := newTestSlowHandler()

	t.Run("works for the default delay", func(t *testing.T) {
		w := httptest.NewRecorder()
		start := time.Now()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/slow", nil))

		assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
		require.Equal(t, http.StatusOK, w.Code)

		var resp types.SlowResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 3, resp.Steps)
		assert.Equal(t, "30ms", resp.Delay)
	})

	t.Run("caps the delay", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/slow?delay=1h", nil))

		var resp types.SlowResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "100ms", resp.Delay)
	})

	t.Run("rejects an invalid delay", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/slow?delay=soon", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("stops when the request is cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/slow?delay=100ms", nil).WithContext(ctx))

		assert.Zero(t, w.Body.Len(), "body %q", w.Body.String())
	})

	t.Run("streams progress events", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/slow?delay=20ms&stream=true", nil))

		assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
		body := w.Body.String()
		assert.Equal(t, 2, strings.Count(body, "event: progress"))
		assert.Contains(t, body, "event: done")
	})
}

func TestStatusHandler(t *testing.T) {
	strategy, err := protection.New(protection.StrategyHandoff, protection.Timings{
		Threshold:    14 * time.Second,
		LongPollTime: 6 * time.Second,
		FailTimeout:  30 * time.Second,
	})
	require.NoError(t, err)
	h := NewStatusHandler(strategy)

	t.Run("reports strategy state", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protection", nil))

		var resp StatusResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, protection.StrategyHandoff, resp.Strategy)
		assert.Equal(t, "14s", resp.Timings.Threshold)
		assert.Zero(t, resp.Pending)
	})

	t.Run("rejects other methods", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/protection", nil))

		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}
