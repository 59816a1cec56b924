package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 120 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB

	// CORS defaults
	DefaultCORSEnabled          = true
	DefaultCORSMaxAge           = 3600 // 1 hour
	DefaultCORSAllowCredentials = false

	// Protection defaults
	DefaultProtectionEnabled    = true
	DefaultProtectionStrategy   = "replay"
	DefaultInitialRequestHeader = "X-Timeout-Protection-Initial-Request"
	DefaultPollHeader           = "X-Timeout-Protection-Poll"
	DefaultThreshold            = 14 * time.Second
	DefaultLongPollTime         = 6 * time.Second
	DefaultFailTimeout          = 30 * time.Second
	DefaultPurgeSchedule        = "@every 1m"
	DefaultMaxPending           = 10000

	// Demo defaults
	DefaultDemoEnabled  = true
	DefaultDemoPath     = "/slow"
	DefaultDemoDelay    = 40 * time.Second
	DefaultDemoMaxDelay = 5 * time.Minute

	// Limits defaults
	DefaultPollsPerSecond = 5.0
	DefaultPollBurst      = 10
	DefaultLimitsIdleTTL  = 5 * time.Minute

	// Telemetry defaults
	DefaultLoggingLevel        = "info"
	DefaultLoggingFormat       = "json"
	DefaultMetricsEnabled      = true
	DefaultPrometheusPath      = "/metrics"
	DefaultMetricsNamespace    = "pollgate"
	DefaultMetricsSubsystem    = "protection"
	DefaultTracingEnabled      = false
	DefaultTracingSampler      = "ratio"
	DefaultTracingSamplingRate = 1.0
	DefaultTracingServiceName  = "pollgate"
	DefaultOTLPTimeout         = 10 * time.Second
	DefaultHealthEnabled       = true
	DefaultLivenessPath        = "/health"
	DefaultReadinessPath       = "/ready"
	DefaultHealthCheckTimeout  = 5 * time.Second
)

// DefaultPollWaitBuckets are the default histogram buckets for poll waits.
var DefaultPollWaitBuckets = []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 4, 6, 10}

// DefaultRecordingSizeBuckets are the default histogram buckets for recording sizes.
var DefaultRecordingSizeBuckets = []float64{256, 1024, 4096, 16384, 65536, 262144, 1048576}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	// CORS defaults
	applyCORSDefaults(cfg)

	// Protection defaults
	applyProtectionDefaults(cfg)

	// Demo defaults
	if !cfg.Demo.Enabled && cfg.Demo.Path == "" && cfg.Demo.DefaultDelay == 0 {
		cfg.Demo.Enabled = DefaultDemoEnabled
	}
	if cfg.Demo.Path == "" {
		cfg.Demo.Path = DefaultDemoPath
	}
	if cfg.Demo.DefaultDelay == 0 {
		cfg.Demo.DefaultDelay = DefaultDemoDelay
	}
	if cfg.Demo.MaxDelay == 0 {
		cfg.Demo.MaxDelay = DefaultDemoMaxDelay
	}

	// Limits defaults
	if cfg.Limits.PollsPerSecond == 0 {
		cfg.Limits.PollsPerSecond = DefaultPollsPerSecond
	}
	if cfg.Limits.PollBurst == 0 {
		cfg.Limits.PollBurst = DefaultPollBurst
	}
	if cfg.Limits.IdleTTL == 0 {
		cfg.Limits.IdleTTL = DefaultLimitsIdleTTL
	}

	// Telemetry defaults
	applyTelemetryDefaults(cfg)
}

// applyCORSDefaults applies default values to CORS configuration.
func applyCORSDefaults(cfg *Config) {
	cors := &cfg.Server.CORS

	// Set enabled default (true)
	if !cors.Enabled {
		// Check if any CORS fields are set - if so, user wants CORS
		// Otherwise, use default
		hasAnyConfig := len(cors.AllowedOrigins) > 0 ||
			len(cors.AllowedMethods) > 0 ||
			len(cors.AllowedHeaders) > 0 ||
			len(cors.ExposedHeaders) > 0 ||
			cors.MaxAge > 0

		if !hasAnyConfig {
			cors.Enabled = DefaultCORSEnabled
		}
	}

	if len(cors.AllowedOrigins) == 0 {
		cors.AllowedOrigins = []string{"*"}
	}
	if len(cors.AllowedMethods) == 0 {
		cors.AllowedMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}
	if len(cors.AllowedHeaders) == 0 {
		cors.AllowedHeaders = []string{"Authorization", "Content-Type", "X-Request-ID"}
	}
	if len(cors.ExposedHeaders) == 0 {
		cors.ExposedHeaders = []string{"X-Request-ID"}
	}
	if cors.MaxAge == 0 {
		cors.MaxAge = DefaultCORSMaxAge
	}
}

// applyProtectionDefaults applies default values to protection configuration.
// An untouched section (no strategy chosen) is enabled by default; once a
// strategy is set, Enabled is taken as written.
func applyProtectionDefaults(cfg *Config) {
	p := &cfg.Protection

	if !p.Enabled && p.Strategy == "" {
		p.Enabled = DefaultProtectionEnabled
	}
	if p.Strategy == "" {
		p.Strategy = DefaultProtectionStrategy
	}
	if p.InitialRequestHeader == "" {
		p.InitialRequestHeader = DefaultInitialRequestHeader
	}
	if p.PollHeader == "" {
		p.PollHeader = DefaultPollHeader
	}
	if p.Threshold == 0 {
		p.Threshold = DefaultThreshold
	}
	if p.LongPollTime == 0 {
		p.LongPollTime = DefaultLongPollTime
	}
	if p.FailTimeout == 0 {
		p.FailTimeout = DefaultFailTimeout
	}
	if p.PurgeSchedule == "" {
		p.PurgeSchedule = DefaultPurgeSchedule
	}
	if p.MaxPending == 0 {
		p.MaxPending = DefaultMaxPending
	}
}

// applyTelemetryDefaults applies default values to telemetry configuration.
func applyTelemetryDefaults(cfg *Config) {
	t := &cfg.Telemetry

	if t.Logging.Level == "" {
		t.Logging.Level = DefaultLoggingLevel
	}
	if t.Logging.Format == "" {
		t.Logging.Format = DefaultLoggingFormat
	}

	if !t.Metrics.Enabled && t.Metrics.Path == "" && t.Metrics.Namespace == "" {
		t.Metrics.Enabled = DefaultMetricsEnabled
	}
	if t.Metrics.Path == "" {
		t.Metrics.Path = DefaultPrometheusPath
	}
	if t.Metrics.Namespace == "" {
		t.Metrics.Namespace = DefaultMetricsNamespace
	}
	if t.Metrics.Subsystem == "" {
		t.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if len(t.Metrics.PollWaitBuckets) == 0 {
		t.Metrics.PollWaitBuckets = append([]float64(nil), DefaultPollWaitBuckets...)
	}
	if len(t.Metrics.RecordingSizeBuckets) == 0 {
		t.Metrics.RecordingSizeBuckets = append([]float64(nil), DefaultRecordingSizeBuckets...)
	}

	if t.Tracing.Sampler == "" {
		t.Tracing.Sampler = DefaultTracingSampler
	}
	if t.Tracing.SampleRatio == 0 {
		t.Tracing.SampleRatio = DefaultTracingSamplingRate
	}
	if t.Tracing.ServiceName == "" {
		t.Tracing.ServiceName = DefaultTracingServiceName
	}
	if t.Tracing.OTLP.Timeout == 0 {
		t.Tracing.OTLP.Timeout = DefaultOTLPTimeout
	}

	if !t.Health.Enabled && t.Health.LivenessPath == "" && t.Health.ReadinessPath == "" {
		t.Health.Enabled = DefaultHealthEnabled
	}
	if t.Health.LivenessPath == "" {
		t.Health.LivenessPath = DefaultLivenessPath
	}
	if t.Health.ReadinessPath == "" {
		t.Health.ReadinessPath = DefaultReadinessPath
	}
	if t.Health.CheckTimeout == 0 {
		t.Health.CheckTimeout = DefaultHealthCheckTimeout
	}
}
