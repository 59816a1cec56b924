// Package proxy holds the request and response helpers shared by pollgate's
// handlers and middleware.
//
// # Architecture
//
//   - Middleware: cross-cutting concerns and timeout protection
//     (see package middleware)
//   - Handlers: the demo slow endpoint and the protection status endpoint
//     (see package handlers)
//   - Types: JSON bodies written by pollgate itself (see package types)
//
// The root package provides:
//
//   - ParseDelay and ParseStream: query parameter parsing with validation
//   - HandleError: mapping of errors to error responses
//   - WriteJSONResponse, WriteErrorResponse: JSON writers
//   - WriteSSEEvent, SetSSEHeaders: Server-Sent Events writers
//
// # Error Handling
//
// Errors are rendered as JSON:
//
//	{
//	  "error": {
//	    "message": "invalid delay \"soon\": must be a duration such as 40s or a number of seconds",
//	    "type": "invalid_request_error",
//	    "param": "delay",
//	    "code": "invalid_value"
//	  }
//	}
package proxy
