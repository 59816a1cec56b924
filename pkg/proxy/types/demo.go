package types

import "time"

// SlowResponse is the body returned by the demo slow endpoint.
type SlowResponse struct {
	// Message is a fixed greeting, handy for checking replayed bodies.
	Message string `json:"message"`

	// Delay is how long the handler worked, as a Go duration string.
	Delay string `json:"delay"`

	// Steps is the number of one-second steps completed.
	Steps int `json:"steps"`

	// StartedAt and CompletedAt bound the work done by the handler.
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`

	// RequestID is the id assigned by the request id middleware.
	RequestID string `json:"request_id,omitempty"`
}
