package handlers

import (
	"net/http"
	"time"

	"mercator-hq/pollgate/pkg/protection"
	"mercator-hq/pollgate/pkg/proxy"
)

// StatusHandler reports the state of the protection strategy.
type StatusHandler struct {
	Strategy protection.Strategy
}

// NewStatusHandler creates a new protection status handler.
func NewStatusHandler(s protection.Strategy) *StatusHandler {
	return &StatusHandler{Strategy: s}
}

// StatusResponse is the body returned by StatusHandler.
type StatusResponse struct {
	Strategy string        `json:"strategy"`
	Pending  int           `json:"pending"`
	Timings  TimingsStatus `json:"timings"`
	Time     int64         `json:"timestamp"`
}

// TimingsStatus lists the strategy timings as Go duration strings.
type TimingsStatus struct {
	Threshold       string `json:"threshold"`
	LongPollTime    string `json:"long_poll_time"`
	FailTimeout     string `json:"fail_timeout"`
	TransferTimeout string `json:"transfer_timeout"`
}

// ServeHTTP implements http.Handler.
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	t := h.Strategy.Timings()
	_ = proxy.WriteJSONResponse(w, http.StatusOK, StatusResponse{
		Strategy: h.Strategy.Name(),
		Pending:  h.Strategy.Pending(),
		Timings: TimingsStatus{
			Threshold:       t.Threshold.String(),
			LongPollTime:    t.LongPollTime.String(),
			FailTimeout:     t.FailTimeout.String(),
			TransferTimeout: t.TransferTimeout.String(),
		},
		Time: time.Now().Unix(),
	})
}
