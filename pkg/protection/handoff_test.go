package protection

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mercator-hq/pollgate/pkg/response"
)

func newTestHandoff(t *testing.T, timings Timings, opts ...Option) *Handoff {
	t.Helper()
	h, err := NewHandoff(timings, opts...)
	require.NoError(t, err)
	return h
}

type originalResult struct {
	sinkErr   error
	finishErr error
}

// runOriginal starts an original request that writes body with status once
// it obtains a sink.
func runOriginal(ctx context.Context, h *Handoff, id string, status int, body string) <-chan originalResult {
	ch := make(chan originalResult, 1)
	go func() {
		m := h.Start(ctx, id)
		sink, err := m.Sink()
		if err == nil && sink != nil {
			w := response.NewWriter(sink)
			w.Header().Set("X-Handoff", "yes")
			w.WriteHeader(status)
			_, _ = w.Write([]byte(body))
		}
		ch <- originalResult{sinkErr: err, finishErr: h.Finish(ctx, id, m)}
	}()
	return ch
}

func TestHandoff_NoSinkBeforeThreshold(t *testing.T) {
	clock := newFakeClock()
	h := newTestHandoff(t, Timings{Threshold: 10 * time.Second, LongPollTime: time.Second, FailTimeout: time.Second},
		WithClock(clock.Now))

	m := h.Start(context.Background(), "id")
	sink, err := m.Sink()
	require.NoError(t, err)
	assert.Nil(t, sink)
	assert.False(t, m.Monitored())
	assert.Equal(t, 0, h.Pending(), "no coordinator before the threshold")

	require.NoError(t, h.Finish(context.Background(), "id", m))
}

func TestHandoff_HotThreshold(t *testing.T) {
	h := newTestHandoff(t, Timings{Threshold: 100 * time.Millisecond, LongPollTime: time.Second, FailTimeout: time.Second})
	ctx := context.Background()

	m := h.Start(ctx, "id")
	sink, err := m.Sink()
	require.NoError(t, err)
	assert.Nil(t, sink)

	time.Sleep(150 * time.Millisecond)

	w := httptest.NewRecorder()
	live := response.NewLive(w)
	poll := pollAsync(ctx, h, "id", live)

	sink, err = m.Sink()
	require.NoError(t, err)
	require.NotNil(t, sink)
	assert.True(t, m.Monitored())
	require.NoError(t, h.Finish(ctx, "id", m))

	res := <-poll
	assert.Equal(t, Delivered, res.outcome)
}

func TestHandoff_Delivers(t *testing.T) {
	tests := []struct {
		name      string
		pollFirst bool
	}{
		{name: "poll arrives first", pollFirst: true},
		{name: "original arrives first", pollFirst: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandoff(t, Timings{LongPollTime: time.Second, FailTimeout: time.Second})
			ctx := context.Background()

			w := httptest.NewRecorder()
			live := response.NewLive(w)

			var (
				poll     <-chan pollResult
				original <-chan originalResult
			)
			if tt.pollFirst {
				poll = pollAsync(ctx, h, "id", live)
				time.Sleep(20 * time.Millisecond)
				original = runOriginal(ctx, h, "id", http.StatusCreated, "streamed")
			} else {
				original = runOriginal(ctx, h, "id", http.StatusCreated, "streamed")
				time.Sleep(20 * time.Millisecond)
				poll = pollAsync(ctx, h, "id", live)
			}

			res := <-poll
			require.NoError(t, res.err)
			require.Equal(t, Delivered, res.outcome)
			require.NoError(t, live.Close())

			orig := <-original
			require.NoError(t, orig.sinkErr)
			require.NoError(t, orig.finishErr)

			assert.Equal(t, http.StatusCreated, w.Code)
			assert.Equal(t, "yes", w.Header().Get("X-Handoff"))
			assert.Equal(t, "streamed", w.Body.String())
			assert.Equal(t, 0, h.Pending())

			outcome, err := h.Poll(ctx, "id", response.Discard)
			require.NoError(t, err)
			assert.Equal(t, Unknown, outcome)
		})
	}
}

func TestHandoff_PollNeverArrived(t *testing.T) {
	h := newTestHandoff(t, Timings{LongPollTime: time.Second, FailTimeout: 50 * time.Millisecond})
	ctx := context.Background()

	m := h.Start(ctx, "id")
	start := time.Now()
	sink, err := m.Sink()

	assert.Nil(t, sink)
	assert.ErrorIs(t, err, ErrPollNeverArrived)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	assert.ErrorIs(t, h.Finish(ctx, "id", m), ErrPollNeverArrived)
	assert.Equal(t, 0, h.Pending())
}

func TestHandoff_OriginalContextCancelled(t *testing.T) {
	h := newTestHandoff(t, Timings{LongPollTime: time.Second, FailTimeout: 5 * time.Second})
	ctx, cancel := context.WithCancel(context.Background())

	m := h.Start(ctx, "id")
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := m.Sink()
	assert.ErrorIs(t, err, ErrPollNeverArrived)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, h.Finish(ctx, "id", m), ErrPollNeverArrived)
}

func TestHandoff_PollTimesOutWithoutOriginal(t *testing.T) {
	h := newTestHandoff(t, Timings{LongPollTime: 50 * time.Millisecond, FailTimeout: time.Second})

	outcome, err := h.Poll(context.Background(), "id", response.Discard)
	require.NoError(t, err)
	assert.Equal(t, RetryLater, outcome)
	assert.Equal(t, 0, h.Pending(), "unattached coordinator is removed")
}

func TestHandoff_PollBeforeThresholdRetries(t *testing.T) {
	h := newTestHandoff(t, Timings{Threshold: 100 * time.Millisecond, LongPollTime: 30 * time.Millisecond, FailTimeout: 2 * time.Second})
	ctx := context.Background()

	original := make(chan error, 1)
	go func() {
		m := h.Start(ctx, "id")
		time.Sleep(120 * time.Millisecond)
		sink, err := m.Sink()
		if err == nil {
			_, _ = sink.Write([]byte("eventually"))
		}
		original <- h.Finish(ctx, "id", m)
	}()

	outcome, err := h.Poll(ctx, "id", response.Discard)
	require.NoError(t, err)
	assert.Equal(t, RetryLater, outcome)
	assert.Equal(t, 0, h.Pending(), "unattached coordinator is removed")

	w := httptest.NewRecorder()
	live := response.NewLive(w)
	for i := 0; i < 20 && outcome != Delivered; i++ {
		outcome, err = h.Poll(ctx, "id", live)
		require.NoError(t, err)
	}
	require.Equal(t, Delivered, outcome)
	require.NoError(t, live.Close())
	require.NoError(t, <-original)
	assert.Equal(t, "eventually", w.Body.String())
}

func TestHandoff_LastPollWins(t *testing.T) {
	h := newTestHandoff(t, Timings{LongPollTime: 2 * time.Second, FailTimeout: time.Second})
	ctx := context.Background()

	first := pollAsync(ctx, h, "id", response.Discard)
	time.Sleep(20 * time.Millisecond)

	w := httptest.NewRecorder()
	live := response.NewLive(w)
	second := pollAsync(ctx, h, "id", live)

	select {
	case res := <-first:
		assert.Equal(t, RetryLater, res.outcome)
		assert.Less(t, res.elapsed, time.Second)
	case <-time.After(time.Second):
		t.Fatal("superseded poll did not return")
	}

	original := runOriginal(ctx, h, "id", http.StatusOK, "newest")
	res := <-second
	require.Equal(t, Delivered, res.outcome)
	require.NoError(t, live.Close())
	require.NoError(t, (<-original).finishErr)
	assert.Equal(t, "newest", w.Body.String())
}

func TestHandoff_TransferTimeoutDetaches(t *testing.T) {
	h := newTestHandoff(t, Timings{LongPollTime: time.Second, FailTimeout: time.Second, TransferTimeout: 50 * time.Millisecond})
	ctx := context.Background()

	w := httptest.NewRecorder()
	live := response.NewLive(w)
	poll := pollAsync(ctx, h, "id", live)

	m := h.Start(ctx, "id")
	sink, err := m.Sink()
	require.NoError(t, err)
	_, err = sink.Write([]byte("first"))
	require.NoError(t, err)

	res := <-poll
	assert.Equal(t, Delivered, res.outcome)
	assert.GreaterOrEqual(t, res.elapsed, 50*time.Millisecond)

	_, err = sink.Write([]byte("too late"))
	assert.True(t, errors.Is(err, response.ErrDetached))

	require.NoError(t, h.Finish(ctx, "id", m))
	require.NoError(t, live.Close())
	assert.Equal(t, "first", w.Body.String())
}

func TestHandoff_SecondOriginalWithSameID(t *testing.T) {
	h := newTestHandoff(t, Timings{LongPollTime: time.Second, FailTimeout: time.Second})
	ctx := context.Background()

	w := httptest.NewRecorder()
	poll := pollAsync(ctx, h, "id", response.NewLive(w))
	orig := <-runOriginal(ctx, h, "id", http.StatusOK, "one")
	require.NoError(t, orig.sinkErr)
	require.Equal(t, Delivered, (<-poll).outcome)

	again := <-runOriginal(ctx, h, "id", http.StatusOK, "two")
	assert.ErrorIs(t, again.sinkErr, ErrPollNeverArrived)
}

func TestHandoff_Purge(t *testing.T) {
	clock := newFakeClock()
	h := newTestHandoff(t, Timings{LongPollTime: 20 * time.Millisecond, FailTimeout: time.Second}, WithClock(clock.Now))
	ctx := context.Background()

	w := httptest.NewRecorder()
	poll := pollAsync(ctx, h, "id", response.NewLive(w))
	orig := <-runOriginal(ctx, h, "id", http.StatusOK, "body")
	require.NoError(t, orig.sinkErr)
	require.Equal(t, Delivered, (<-poll).outcome)
	require.Equal(t, 1, h.registry.Tombstones())

	clock.Advance(2 * time.Second)
	h.Purge()
	assert.Equal(t, 0, h.registry.Tombstones())

	outcome, err := h.Poll(ctx, "id", response.Discard)
	require.NoError(t, err)
	assert.Equal(t, RetryLater, outcome)
}
