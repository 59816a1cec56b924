package config

import "time"

// Config is the root configuration structure for pollgate.
// It contains all configuration sections for the HTTP server, timeout
// protection, the demo endpoint and telemetry.
type Config struct {
	// Server contains HTTP server configuration including listen address,
	// timeouts, and connection limits.
	Server ServerConfig `yaml:"server"`

	// Protection contains configuration for gateway timeout protection
	// including the strategy, correlation headers and timings.
	Protection ProtectionConfig `yaml:"protection"`

	// Demo contains configuration for the built-in slow endpoint used to
	// exercise timeout protection.
	Demo DemoConfig `yaml:"demo"`

	// Limits bounds poll rates and concurrent protected originals.
	Limits LimitsConfig `yaml:"limits"`

	// Telemetry contains configuration for observability including logging,
	// metrics, and distributed tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig configures the HTTP listener. Defaults are listed in
// defaults.go; WriteTimeout must leave room for a poll to wait
// long_poll_time and then receive a handed-off response.
type ServerConfig struct {
	ListenAddress   string        `yaml:"listen_address"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes"`

	CORS CORSConfig `yaml:"cors"`
}

// CORSConfig configures cross-origin access for browser clients. The
// correlation headers are added to AllowedHeaders, and the poll header to
// ExposedHeaders, whatever the file says.
type CORSConfig struct {
	Enabled          bool     `yaml:"enabled"`
	AllowedOrigins   []string `yaml:"allowed_origins"`
	AllowedMethods   []string `yaml:"allowed_methods"`
	AllowedHeaders   []string `yaml:"allowed_headers"`
	ExposedHeaders   []string `yaml:"exposed_headers"`
	MaxAge           int      `yaml:"max_age"` // seconds
	AllowCredentials bool     `yaml:"allow_credentials"`
}

// ProtectionConfig contains configuration for gateway timeout protection.
type ProtectionConfig struct {
	// Enabled controls whether requests carrying a correlation header are
	// protected. When disabled the headers are ignored.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Strategy selects how a slow response reaches the poll.
	// Options: "replay" (record and replay), "handoff" (stream into the poll)
	// Default: "replay"
	Strategy string `yaml:"strategy"`

	// InitialRequestHeader carries the correlation id on original requests.
	// Default: "X-Timeout-Protection-Initial-Request"
	InitialRequestHeader string `yaml:"initial_request_header"`

	// PollHeader carries the correlation id on poll requests and on interim
	// responses.
	// Default: "X-Timeout-Protection-Poll"
	PollHeader string `yaml:"poll_header"`

	// Threshold is how long a request may run before its response is
	// diverted to a poll. It must stay below the gateway idle timeout.
	// Default: 14s
	Threshold time.Duration `yaml:"threshold"`

	// LongPollTime is how long a poll waits before answering 204.
	// Default: 6s
	LongPollTime time.Duration `yaml:"long_poll_time"`

	// FailTimeout is how long an original request waits for a poll, and how
	// long after threshold an uncollected response is kept.
	// Default: 30s
	FailTimeout time.Duration `yaml:"fail_timeout"`

	// TransferTimeout bounds how long a hand-off poll waits for the original
	// request to finish writing. Zero uses FailTimeout.
	// Default: 0
	TransferTimeout time.Duration `yaml:"transfer_timeout"`

	// PurgeSchedule is the cron schedule for dropping stale state.
	// Accepts standard cron expressions and descriptors such as "@every 1m".
	// Default: "@every 1m"
	PurgeSchedule string `yaml:"purge_schedule"`

	// MaxPending is the number of pending correlation ids above which the
	// readiness probe reports not ready.
	// Default: 10000
	MaxPending int `yaml:"max_pending"`

	// Watch enables reloading protection timings when the configuration file
	// changes.
	// Default: false
	Watch bool `yaml:"watch"`
}

// LimitsConfig contains configuration for protection request limits.
type LimitsConfig struct {
	// Enabled turns on the limits below.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// PollsPerSecond is the sustained poll rate allowed per client.
	// Default: 5
	PollsPerSecond float64 `yaml:"polls_per_second"`

	// PollBurst is the number of polls a client may send at once.
	// Default: 10
	PollBurst int `yaml:"poll_burst"`

	// MaxConcurrentOriginals caps protected original requests in flight.
	// Zero means unlimited.
	// Default: 0
	MaxConcurrentOriginals int `yaml:"max_concurrent_originals"`

	// ClientIPHeader names a header holding the client address, such as
	// "X-Forwarded-For" behind a gateway. Empty uses the remote address.
	ClientIPHeader string `yaml:"client_ip_header"`

	// IdleTTL is how long an idle client's poll bucket is kept.
	// Default: 5m
	IdleTTL time.Duration `yaml:"idle_ttl"`
}

// DemoConfig contains configuration for the demo slow endpoint.
type DemoConfig struct {
	// Enabled controls whether the slow endpoint is mounted.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path of the slow endpoint.
	// Default: "/slow"
	Path string `yaml:"path"`

	// DefaultDelay is used when the request carries no delay parameter.
	// Default: 40s
	DefaultDelay time.Duration `yaml:"default_delay"`

	// MaxDelay caps the delay parameter.
	// Default: 5m
	MaxDelay time.Duration `yaml:"max_delay"`
}

// TelemetryConfig groups the observability sections.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
	Health  HealthConfig  `yaml:"health"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	// Level is one of debug, info, warn or error. It is the one telemetry
	// setting applied again on reload.
	Level string `yaml:"level"`

	// Format is json, or text (alias console).
	Format string `yaml:"format"`

	AddSource bool `yaml:"add_source"`
}

// MetricsConfig configures the Prometheus collector. Metric names are
// <namespace>_<subsystem>_<name>, pollgate_protection_* by default.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Path      string `yaml:"path"`
	Namespace string `yaml:"namespace"`
	Subsystem string `yaml:"subsystem"`

	// PollWaitBuckets are the poll wait histogram buckets, in seconds.
	PollWaitBuckets []float64 `yaml:"poll_wait_buckets"`

	// RecordingSizeBuckets are the replay recording size buckets, in bytes.
	RecordingSizeBuckets []float64 `yaml:"recording_size_buckets"`
}

// TracingConfig configures OpenTelemetry export over OTLP gRPC.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`

	// Sampler is always, never or ratio. Every sampler respects the
	// sampling decision of an incoming traceparent.
	Sampler     string  `yaml:"sampler"`
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the collector address, for example "localhost:4317".
	Endpoint    string     `yaml:"endpoint"`
	ServiceName string     `yaml:"service_name"`
	OTLP        OTLPConfig `yaml:"otlp"`
}

// OTLPConfig contains OTLP exporter configuration.
type OTLPConfig struct {
	Insecure bool          `yaml:"insecure"`
	Timeout  time.Duration `yaml:"timeout"`
}

// HealthConfig configures the probe endpoints.
type HealthConfig struct {
	Enabled       bool   `yaml:"enabled"`
	LivenessPath  string `yaml:"liveness_path"`
	ReadinessPath string `yaml:"readiness_path"`

	// CheckTimeout bounds each readiness check.
	CheckTimeout time.Duration `yaml:"check_timeout"`
}
