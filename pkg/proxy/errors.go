package proxy

import (
	"errors"

	"mercator-hq/pollgate/pkg/protection"
	"mercator-hq/pollgate/pkg/proxy/types"
)

// HandleError converts errors to error responses. Request validation errors
// map to 400, protection failures to their dedicated codes, and everything
// else to a generic 500 that does not leak internal details.
//
// Example usage:
//
//	if err != nil {
//	    WriteErrorResponse(w, HandleError(err))
//	    return
//	}
func HandleError(err error) *types.ErrorResponse {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.ToErrorResponse()
	}

	if errors.Is(err, protection.ErrPollNeverArrived) {
		return types.NewPollNeverArrivedError()
	}

	return types.NewServerError(
		"An internal error occurred. Please try again later.",
	)
}
