// Package server provides the pollgate HTTP server.
//
// This package ties together the protection strategy, the middleware chain,
// the demo and status handlers and telemetry, and manages the server
// lifecycle including start, graceful shutdown and background jobs.
//
// # Architecture
//
// The server package is the top-level orchestrator that:
//   - Creates the protection strategy from configuration
//   - Sets up HTTP routes and chains middleware
//   - Schedules purging of stale correlation ids
//   - Reloads protection timings when the configuration file changes
//   - Manages graceful shutdown on SIGTERM and SIGINT
//
// # Basic Usage
//
//	cfg, err := config.LoadConfigWithEnvOverrides("pollgate.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	tel, err := telemetry.New(&cfg.Telemetry)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(context.Background())
//
//	srv, err := server.NewServer(cfg, tel, server.WithConfigPath("pollgate.yaml"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.Start(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
//
// # Routes
//
//	/protection   strategy, pending count and timings (unprotected)
//	/version      build information (unprotected)
//	/health       liveness probe (unprotected)
//	/ready        readiness probe (unprotected)
//	/metrics      Prometheus metrics (unprotected)
//	/slow         demo endpoint (protected)
//
// Every path that is not an operational endpoint goes through the protection
// middleware. WithHandler replaces the demo endpoint with an application
// handler.
//
// # Middleware Chain
//
//	tracing(Recovery(Logging(RequestID(CORS(mux)))))
//
// with Limits(Protection(app)) mounted inside mux for every path that is not an
// operational endpoint. The limits middleware is only present when
// limits.enabled is set; idle client buckets are then purged together with
// the strategy's stale correlation ids.
//
// # Graceful Shutdown
//
// Shutdown first marks the readiness probe as draining, so load balancers stop
// routing new original requests to the instance. In-flight requests, including
// polls for responses that were already diverted, are given
// server.shutdown_timeout to finish.
//
// # Thread Safety
//
// Server is safe for concurrent use. Start may only be called once.
package server
