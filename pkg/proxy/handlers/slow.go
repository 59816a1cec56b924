package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"mercator-hq/pollgate/pkg/config"
	"mercator-hq/pollgate/pkg/proxy"
	"mercator-hq/pollgate/pkg/proxy/types"
	"mercator-hq/pollgate/pkg/telemetry/logging"
)

// SlowHandler simulates a long running request. It works in one-second steps
// for the requested delay and then answers with a JSON SlowResponse. With
// ?stream=true it reports each step as a Server-Sent Event instead.
type SlowHandler struct {
	DefaultDelay time.Duration
	MaxDelay     time.Duration

	// Step is the length of one unit of work. Zero means one second.
	Step time.Duration

	logger *slog.Logger
}

// NewSlowHandler creates a slow handler from the demo configuration.
func NewSlowHandler(cfg config.DemoConfig) *SlowHandler {
	return &SlowHandler{
		DefaultDelay: cfg.DefaultDelay,
		MaxDelay:     cfg.MaxDelay,
		Step:         time.Second,
		logger:       slog.Default().With("component", "handlers.slow"),
	}
}

type progressEvent struct {
	Step      int    `json:"step"`
	Remaining string `json:"remaining"`
}

// ServeHTTP implements http.Handler.
func (h *SlowHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	delay, err := proxy.ParseDelay(r, h.DefaultDelay, h.MaxDelay)
	if err != nil {
		_ = proxy.WriteErrorResponse(w, proxy.HandleError(err))
		return
	}
	stream := proxy.ParseStream(r)
	if stream {
		proxy.SetSSEHeaders(w)
		w.WriteHeader(http.StatusOK)
	}

	started := time.Now()
	steps, err := h.work(ctx, delay, func(step int, remaining time.Duration) {
		h.log().DebugContext(ctx, "thinking", "step", step, "remaining", remaining)
		if stream {
			_ = proxy.WriteSSEEvent(w, "progress", progressEvent{Step: step, Remaining: remaining.String()})
		}
	})
	if err != nil {
		h.log().InfoContext(ctx, "slow request cancelled", "steps", steps, "error", err)
		return
	}

	resp := types.SlowResponse{
		Message:     "slow response",
		Delay:       delay.String(),
		Steps:       steps,
		StartedAt:   started.UTC(),
		CompletedAt: time.Now().UTC(),
		RequestID:   logging.GetRequestID(ctx),
	}
	if stream {
		_ = proxy.WriteSSEEvent(w, "done", resp)
		return
	}
	if err := proxy.WriteJSONResponse(w, http.StatusOK, resp); err != nil {
		h.log().WarnContext(ctx, "failed to write slow response", "error", err)
	}
}

// work sleeps for delay in steps, calling onStep after each one. It stops
// early when ctx is done.
func (h *SlowHandler) work(ctx context.Context, delay time.Duration, onStep func(step int, remaining time.Duration)) (int, error) {
	step := h.Step
	if step <= 0 {
		step = time.Second
	}

	steps := 0
	for remaining := delay; remaining > 0; {
		d := min(step, remaining)
		timer := time.NewTimer(d)
		select {
		case <-ctx.Done():
			timer.Stop()
			return steps, ctx.Err()
		case <-timer.C:
		}
		remaining -= d
		steps++
		onStep(steps, remaining)
	}
	return steps, nil
}

func (h *SlowHandler) log() *slog.Logger {
	if h.logger == nil {
		return slog.Default()
	}
	return h.logger
}
