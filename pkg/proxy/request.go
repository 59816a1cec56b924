package proxy

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"mercator-hq/pollgate/pkg/proxy/types"
)

const (
	// DelayParam is the query parameter selecting how long the demo handler
	// works.
	DelayParam = "delay"

	// StreamParam is the query parameter asking the demo handler to stream
	// progress events.
	StreamParam = "stream"
)

// ParseDelay reads the delay query parameter. It accepts Go durations
// ("40s", "1m30s") and bare integers, which are taken as seconds. A missing
// parameter yields def; larger values are capped at max.
//
// Example usage:
//
//	delay, err := ParseDelay(r, 40*time.Second, 5*time.Minute)
//	if err != nil {
//	    WriteErrorResponse(w, HandleError(err))
//	    return
//	}
func ParseDelay(r *http.Request, def, max time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(DelayParam))
	if raw == "" {
		return capDelay(def, max), nil
	}

	var delay time.Duration
	if secs, err := strconv.Atoi(raw); err == nil {
		delay = time.Duration(secs) * time.Second
	} else {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return 0, &RequestError{
				Message: fmt.Sprintf("invalid delay %q: must be a duration such as 40s or a number of seconds", raw),
				Code:    types.CodeInvalidValue,
				Param:   DelayParam,
			}
		}
		delay = d
	}

	if delay < 0 {
		return 0, &RequestError{
			Message: "delay must not be negative",
			Code:    types.CodeInvalidValue,
			Param:   DelayParam,
		}
	}
	return capDelay(delay, max), nil
}

func capDelay(d, max time.Duration) time.Duration {
	if max > 0 && d > max {
		return max
	}
	return d
}

// ParseStream reports whether the stream query parameter is set to a true
// value.
func ParseStream(r *http.Request) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(StreamParam))
	return err == nil && v
}

// RequestError represents a request parsing or validation error.
type RequestError struct {
	Message string
	Code    string
	Param   string
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	return e.Message
}

// ToErrorResponse converts a RequestError to an error response.
func (e *RequestError) ToErrorResponse() *types.ErrorResponse {
	return types.NewInvalidRequestError(e.Message, e.Param, e.Code)
}
