// Package handlers provides the HTTP handlers served behind the protection
// middleware.
//
// # Handler Types
//
//   - SlowHandler: demo endpoint that works for ?delay= (default 40s) in
//     one-second steps, then answers with JSON. With ?stream=true it sends
//     progress as Server-Sent Events, which commits the response early and
//     so is never diverted.
//   - StatusHandler: reports the active strategy, its timings and the number
//     of pending correlation ids.
//
// Health and readiness endpoints are served by the telemetry health package.
package handlers
