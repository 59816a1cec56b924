package types

import "net/http"

// ErrorResponse is the JSON body of every error pollgate generates itself.
type ErrorResponse struct {
	// Error contains the error details.
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains detailed error information.
type ErrorDetail struct {
	// Message is a human-readable error message.
	Message string `json:"message"`

	// Type is one of the ErrorType constants.
	Type string `json:"type"`

	// Param names the query parameter or header at fault, if any.
	Param string `json:"param,omitempty"`

	Code string `json:"code,omitempty"`
}

// Error types. Each maps to one HTTP status, see HTTPStatusCode.
const (
	ErrorTypeInvalidRequest     = "invalid_request_error"
	ErrorTypeNotFound           = "not_found"
	ErrorTypeRateLimit          = "rate_limit_exceeded"
	ErrorTypeServerError        = "server_error"
	ErrorTypeServiceUnavailable = "service_unavailable"
)

var statusByType = map[string]int{
	ErrorTypeInvalidRequest:     http.StatusBadRequest,
	ErrorTypeNotFound:           http.StatusNotFound,
	ErrorTypeRateLimit:          http.StatusTooManyRequests,
	ErrorTypeServerError:        http.StatusInternalServerError,
	ErrorTypeServiceUnavailable: http.StatusServiceUnavailable,
}

// Machine-readable error codes.
const (
	CodeInvalidValue  = "invalid_value"
	CodeInternalError = "internal_error"
	CodeShuttingDown  = "shutting_down"

	// CodeUnknownCorrelationID answers a poll for an id whose response was
	// already delivered or purged.
	CodeUnknownCorrelationID = "unknown_correlation_id"
	// CodePollNeverArrived means a hand-off response had nowhere to go.
	CodePollNeverArrived = "poll_never_arrived"
	CodePollRateExceeded = "poll_rate_exceeded"
	CodeTooManyOriginals = "too_many_originals"
)

// NewErrorResponse creates a new error response with the given details.
func NewErrorResponse(message, errorType, param, code string) *ErrorResponse {
	return &ErrorResponse{
		Error: ErrorDetail{
			Message: message,
			Type:    errorType,
			Param:   param,
			Code:    code,
		},
	}
}

// NewInvalidRequestError creates an error response for invalid requests (400).
func NewInvalidRequestError(message, param, code string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeInvalidRequest, param, code)
}

// NewUnknownCorrelationIDError creates the response to a poll whose id is no
// longer known (404).
func NewUnknownCorrelationIDError(header string) *ErrorResponse {
	return NewErrorResponse(
		"The response for this correlation id was already delivered or has expired",
		ErrorTypeNotFound, header, CodeUnknownCorrelationID,
	)
}

// NewPollNeverArrivedError creates the response for a hand-off request whose
// output could not be delivered because no poll arrived (500).
func NewPollNeverArrivedError() *ErrorResponse {
	return NewErrorResponse(
		"No poll arrived to collect the response",
		ErrorTypeServerError, "", CodePollNeverArrived,
	)
}

// NewPollRateError creates the response to a poll refused by the poll rate
// limit (429).
func NewPollRateError(header string) *ErrorResponse {
	return NewErrorResponse(
		"Polling too fast; retry after the interval in Retry-After",
		ErrorTypeRateLimit, header, CodePollRateExceeded,
	)
}

// NewTooManyOriginalsError creates the response to an original request
// refused because too many protected requests are in flight (503).
func NewTooManyOriginalsError() *ErrorResponse {
	return NewErrorResponse(
		"Too many protected requests in flight",
		ErrorTypeServiceUnavailable, "", CodeTooManyOriginals,
	)
}

// NewServerError creates an error response for internal server errors (500).
func NewServerError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeServerError, "", CodeInternalError)
}

// NewServiceUnavailableError creates an error response for a draining server (503).
func NewServiceUnavailableError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeServiceUnavailable, "", CodeShuttingDown)
}

// HTTPStatusCode returns the status an error of this type is sent with.
// Unknown types are server errors.
func (e *ErrorDetail) HTTPStatusCode() int {
	if status, ok := statusByType[e.Type]; ok {
		return status
	}
	return http.StatusInternalServerError
}
