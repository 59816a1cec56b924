package config

import (
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	maxHeaderBytesLimit = 10 << 20
	maxCheckTimeout     = time.Minute
)

var (
	validStrategies = []string{"replay", "handoff"}
	validLevels     = []string{"debug", "info", "warn", "warning", "error"}
	validFormats    = []string{"json", "text", "console"}
	validSamplers   = []string{"always", "never", "ratio"}
)

// FieldError is one invalid configuration field.
type FieldError struct {
	// Field is the dotted YAML path, for example "protection.long_poll_time".
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationError carries every FieldError found by Validate.
type ValidationError struct {
	Errors []FieldError
}

func (e ValidationError) Error() string {
	switch len(e.Errors) {
	case 0:
		return "configuration validation failed"
	case 1:
		return "configuration validation failed: " + e.Errors[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "configuration validation failed with %d errors:\n", len(e.Errors))
	for _, fe := range e.Errors {
		fmt.Fprintf(&sb, "  - %s\n", fe.Error())
	}
	return sb.String()
}

// Validate checks every section and reports all invalid fields at once as a
// ValidationError, or returns nil.
func Validate(cfg *Config) error {
	errs := slices.Concat(
		validateServer(&cfg.Server),
		validateProtection(&cfg.Protection),
		validateDemo(&cfg.Demo),
		validateLimits(&cfg.Limits),
		validateTelemetry(&cfg.Telemetry),
		validatePollWindow(cfg),
	)
	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

// fieldErrors collects the failures of one section.
type fieldErrors []FieldError

// require records msg against field unless ok holds.
func (f *fieldErrors) require(ok bool, field, msg string, args ...any) {
	if ok {
		return
	}
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	*f = append(*f, FieldError{Field: field, Message: msg})
}

func (f *fieldErrors) oneOf(value string, valid []string, field, what string) {
	switch {
	case value == "":
		f.require(false, field, "%s is required", what)
	case !slices.Contains(valid, strings.ToLower(value)):
		f.require(false, field, "invalid %s %q: must be one of %s", what, value, strings.Join(valid, ", "))
	}
}

func (f *fieldErrors) absolutePath(path, field, what string) {
	f.require(strings.HasPrefix(path, "/"), field, "%s must start with /", what)
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs fieldErrors

	errs.require(cfg.ListenAddress != "", "server.listen_address", "listen address is required")
	errs.require(cfg.ReadTimeout >= 0, "server.read_timeout", "read timeout must not be negative")
	errs.require(cfg.WriteTimeout >= 0, "server.write_timeout", "write timeout must not be negative")
	errs.require(cfg.IdleTimeout >= 0, "server.idle_timeout", "idle timeout must not be negative")
	errs.require(cfg.ShutdownTimeout >= 0, "server.shutdown_timeout", "shutdown timeout must not be negative")
	errs.require(cfg.MaxHeaderBytes >= 0, "server.max_header_bytes", "max header bytes must be non-negative")
	errs.require(cfg.MaxHeaderBytes <= maxHeaderBytesLimit, "server.max_header_bytes", "max header bytes exceeds 10MB")
	errs.require(cfg.CORS.MaxAge >= 0, "server.cors.max_age", "max age must be non-negative")

	return errs
}

// validatePollWindow checks that the server write timeout outlasts the longest
// poll: long_poll_time, plus the transfer wait for hand-off.
func validatePollWindow(cfg *Config) []FieldError {
	var errs fieldErrors

	p := cfg.Protection
	write := cfg.Server.WriteTimeout
	if !p.Enabled || write <= 0 || p.LongPollTime <= 0 {
		return nil
	}

	window := p.LongPollTime
	if strings.EqualFold(p.Strategy, "handoff") {
		transfer := p.TransferTimeout
		if transfer == 0 {
			transfer = p.FailTimeout
		}
		window += transfer
	}
	errs.require(write > window, "server.write_timeout",
		"write timeout %s must exceed the longest poll (%s)", write, window)

	return errs
}

func validateProtection(cfg *ProtectionConfig) []FieldError {
	var errs fieldErrors

	errs.require(slices.Contains(validStrategies, cfg.Strategy), "protection.strategy",
		"invalid strategy %q: must be 'replay' or 'handoff'", cfg.Strategy)

	errs.require(cfg.InitialRequestHeader != "", "protection.initial_request_header", "initial request header is required")
	errs.require(cfg.PollHeader != "", "protection.poll_header", "poll header is required")
	if cfg.InitialRequestHeader != "" {
		errs.require(http.CanonicalHeaderKey(cfg.InitialRequestHeader) != http.CanonicalHeaderKey(cfg.PollHeader),
			"protection.poll_header", "poll header must differ from the initial request header")
	}

	// A zero threshold diverts every protected response.
	errs.require(cfg.Threshold >= 0, "protection.threshold", "threshold must not be negative")
	errs.require(cfg.LongPollTime > 0, "protection.long_poll_time", "long poll time must be positive")
	errs.require(cfg.FailTimeout > 0, "protection.fail_timeout", "fail timeout must be positive")
	errs.require(cfg.TransferTimeout >= 0, "protection.transfer_timeout", "transfer timeout must not be negative")

	if cfg.PurgeSchedule != "" {
		_, err := cron.ParseStandard(cfg.PurgeSchedule)
		errs.require(err == nil, "protection.purge_schedule", "invalid cron schedule: %v", err)
	}
	errs.require(cfg.MaxPending >= 0, "protection.max_pending", "max pending must be non-negative")

	return errs
}

func validateDemo(cfg *DemoConfig) []FieldError {
	if !cfg.Enabled {
		return nil
	}
	var errs fieldErrors

	errs.absolutePath(cfg.Path, "demo.path", "path")
	errs.require(cfg.DefaultDelay >= 0, "demo.default_delay", "default delay must not be negative")
	errs.require(cfg.MaxDelay >= cfg.DefaultDelay, "demo.max_delay", "max delay must be at least the default delay")

	return errs
}

func validateLimits(cfg *LimitsConfig) []FieldError {
	if !cfg.Enabled {
		return nil
	}
	var errs fieldErrors

	errs.require(cfg.PollsPerSecond > 0, "limits.polls_per_second", "polls per second must be positive")
	errs.require(cfg.PollBurst >= 1, "limits.poll_burst", "poll burst must be at least 1")
	errs.require(cfg.MaxConcurrentOriginals >= 0, "limits.max_concurrent_originals", "max concurrent originals must be non-negative")
	errs.require(cfg.IdleTTL > 0, "limits.idle_ttl", "idle ttl must be positive")

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs fieldErrors

	errs.oneOf(cfg.Logging.Level, validLevels, "telemetry.logging.level", "logging level")
	errs.oneOf(cfg.Logging.Format, validFormats, "telemetry.logging.format", "logging format")

	if cfg.Metrics.Enabled {
		errs.require(cfg.Metrics.Path != "", "telemetry.metrics.path", "metrics path is required when metrics are enabled")
	}

	tr := cfg.Tracing
	if tr.Enabled {
		errs.require(tr.Endpoint != "", "telemetry.tracing.endpoint", "tracing endpoint is required when tracing is enabled")
	}
	if tr.Sampler != "" {
		errs.oneOf(tr.Sampler, validSamplers, "telemetry.tracing.sampler", "sampler")
	}
	errs.require(tr.SampleRatio >= 0 && tr.SampleRatio <= 1, "telemetry.tracing.sample_ratio", "sample ratio must be between 0.0 and 1.0")

	if h := cfg.Health; h.Enabled {
		errs.absolutePath(h.LivenessPath, "telemetry.health.liveness_path", "liveness path")
		errs.absolutePath(h.ReadinessPath, "telemetry.health.readiness_path", "readiness path")
		errs.require(h.CheckTimeout >= 0, "telemetry.health.check_timeout", "check timeout must not be negative")
		errs.require(h.CheckTimeout <= maxCheckTimeout, "telemetry.health.check_timeout", "check timeout exceeds 60s")
	}

	return errs
}
