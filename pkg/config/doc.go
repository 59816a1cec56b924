// Package config provides configuration management for pollgate.
//
// This package handles loading, validating, and managing configuration from
// YAML files with environment variable overrides. Every field has a default,
// so pollgate also runs without a configuration file.
//
// # Configuration Loading
//
// Configuration can be loaded in three ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("pollgate.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("pollgate.yaml")
//
//  3. From defaults and environment variables only:
//     cfg, err := config.Default()
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention POLLGATE_SECTION_FIELD.
// For example:
//
//   - POLLGATE_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - POLLGATE_PROTECTION_STRATEGY overrides protection.strategy
//   - POLLGATE_PROTECTION_THRESHOLD overrides protection.threshold
//   - POLLGATE_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// Environment variables always take precedence over file-based configuration.
// Values that fail to parse are ignored.
//
// # Configuration Precedence
//
// Configuration values are applied in the following order (later overrides earlier):
//
//  1. Values from YAML file
//  2. Default values for fields left empty
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Hot Reload
//
// When protection.watch is set, a Watcher reloads the file after it changes
// and hands the new configuration to a callback. Only the protection timings
// are applied to a running server; other sections need a restart.
//
//	w, err := config.NewWatcher("pollgate.yaml", 0)
//	go w.Watch(ctx, func(cfg *config.Config) { ... })
//
// # Validation
//
// Validation errors include field paths and helpful messages:
//
//	configuration validation failed with 2 errors:
//	  - protection.strategy: invalid strategy "relay": must be 'replay' or 'handoff'
//	  - protection.poll_header: poll header must differ from the initial request header
//
// # Example Configuration
//
//	server:
//	  listen_address: "0.0.0.0:8080"
//
//	protection:
//	  strategy: "handoff"
//	  threshold: 14s
//	  long_poll_time: 6s
//	  fail_timeout: 30s
//
//	limits:
//	  enabled: true
//	  polls_per_second: 5
//	  poll_burst: 10
//	  client_ip_header: "X-Forwarded-For"
//
//	telemetry:
//	  logging:
//	    level: "info"
//	    format: "json"
package config
