// Package types defines the JSON bodies written by pollgate's own handlers
// and middleware.
//
// Error types:
//   - ErrorResponse: envelope for every error pollgate generates
//   - ErrorDetail: error details with type, message, param and code
//
// Errors specific to timeout protection use these codes:
//
//	unknown_correlation_id  404  poll for an id already delivered or expired
//	poll_never_arrived      500  hand-off output with nobody to collect it
//
// Demo types:
//   - SlowResponse: body of the demo slow endpoint
//
// All types use encoding/json with snake_case field names.
package types
