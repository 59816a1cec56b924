package proxy

import (
	"encoding/json"
	"fmt"
	"net/http"

	"mercator-hq/pollgate/pkg/proxy/types"
)

// WriteJSONResponse writes data as a JSON body with statusCode. Headers are
// committed before encoding, so an encoding error can only be logged.
func WriteJSONResponse(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON response: %w", err)
	}
	return nil
}

// WriteErrorResponse writes errResp with the status its type maps to.
func WriteErrorResponse(w http.ResponseWriter, errResp *types.ErrorResponse) error {
	return WriteJSONResponse(w, errResp.Error.HTTPStatusCode(), errResp)
}

// SetSSEHeaders prepares w for a Server-Sent Events stream. A replayed
// stream keeps these headers, so a poll receives the same content type as
// the original request would have.
func SetSSEHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
}

// WriteSSEEvent writes one event and flushes it:
//
//	event: progress
//	data: {"step":3}
//
// An empty event name writes a data-only event.
func WriteSSEEvent(w http.ResponseWriter, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal SSE event: %w", err)
	}

	frame := make([]byte, 0, len(payload)+len(event)+16)
	if event != "" {
		frame = append(frame, "event: "...)
		frame = append(frame, event...)
		frame = append(frame, '\n')
	}
	frame = append(frame, "data: "...)
	frame = append(frame, payload...)
	frame = append(frame, "\n\n"...)

	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("failed to write SSE event: %w", err)
	}
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}
