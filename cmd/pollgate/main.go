// Pollgate protects slow HTTP requests from gateway timeouts.
//
// A client tags a request with a correlation id. When the response takes
// longer than the protection threshold, pollgate answers the original request
// with an interim 204 and delivers the real response to a later poll that
// carries the same id.
//
// Usage:
//
//	# Start the server with defaults
//	pollgate run
//
//	# Start with a configuration file
//	pollgate run --config /etc/pollgate/pollgate.yaml
//
//	# Validate a configuration file
//	pollgate validate --config pollgate.yaml
//
//	# Send a protected request and wait for the response
//	pollgate fetch http://localhost:8080/slow?delay=30s
//
//	# Show version information
//	pollgate version
package main

func main() {
	Execute()
}
