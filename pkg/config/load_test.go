package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pollgate.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfig_ValidFile(t *testing.T) {
	configPath := writeConfig(t, `
server:
  listen_address: "0.0.0.0:8080"
  read_timeout: "60s"

protection:
  strategy: "handoff"
  threshold: "10s"
  long_poll_time: "4s"
  fail_timeout: "20s"
  transfer_timeout: "90s"
  poll_header: "X-Poll"

telemetry:
  logging:
    level: "debug"
    format: "text"
`)

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.ListenAddress != "0.0.0.0:8080" {
		t.Errorf("expected listen address %q, got %q", "0.0.0.0:8080", cfg.Server.ListenAddress)
	}
	if cfg.Server.ReadTimeout != 60*time.Second {
		t.Errorf("expected read timeout %v, got %v", 60*time.Second, cfg.Server.ReadTimeout)
	}
	if cfg.Protection.Strategy != "handoff" {
		t.Errorf("expected strategy handoff, got %q", cfg.Protection.Strategy)
	}
	if cfg.Protection.Threshold != 10*time.Second {
		t.Errorf("expected threshold 10s, got %v", cfg.Protection.Threshold)
	}
	if cfg.Protection.TransferTimeout != 90*time.Second {
		t.Errorf("expected transfer timeout 90s, got %v", cfg.Protection.TransferTimeout)
	}
	if cfg.Protection.PollHeader != "X-Poll" {
		t.Errorf("expected poll header X-Poll, got %q", cfg.Protection.PollHeader)
	}
	if cfg.Protection.InitialRequestHeader != DefaultInitialRequestHeader {
		t.Errorf("expected default initial header, got %q", cfg.Protection.InitialRequestHeader)
	}
	if cfg.Telemetry.Logging.Level != "debug" {
		t.Errorf("expected logging level %q, got %q", "debug", cfg.Telemetry.Logging.Level)
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := LoadConfig("/nonexistent/pollgate.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist in chain, got %v", err)
	}
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	configPath := writeConfig(t, "server:\n  listen_address: [unclosed\n")

	_, err := LoadConfig(configPath)
	if err == nil {
		t.Fatal("expected error for malformed YAML")
	}
	if !strings.Contains(err.Error(), "failed to parse") {
		t.Errorf("expected parse error, got: %v", err)
	}
}

func TestLoadConfig_ValidationFailure(t *testing.T) {
	configPath := writeConfig(t, `
protection:
  strategy: "relay"
  initial_request_header: "X-Same"
  poll_header: "x-same"
`)

	_, err := LoadConfig(configPath)
	if err == nil {
		t.Fatal("expected validation error")
	}

	var validationErr ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError in error chain, got %T: %v", err, err)
	}
	if len(validationErr.Errors) != 2 {
		t.Errorf("expected 2 field errors, got %v", validationErr.Errors)
	}
}

func TestLoadConfigWithEnvOverrides_BasicOverrides(t *testing.T) {
	configPath := writeConfig(t, `
server:
  listen_address: "127.0.0.1:8080"
protection:
  strategy: "replay"
  enabled: true
`)

	t.Setenv("POLLGATE_SERVER_LISTEN_ADDRESS", "0.0.0.0:9090")
	t.Setenv("POLLGATE_PROTECTION_STRATEGY", "handoff")
	t.Setenv("POLLGATE_TELEMETRY_LOGGING_LEVEL", "debug")

	cfg, err := LoadConfigWithEnvOverrides(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.ListenAddress != "0.0.0.0:9090" {
		t.Errorf("expected listen address %q from env, got %q", "0.0.0.0:9090", cfg.Server.ListenAddress)
	}
	if cfg.Protection.Strategy != "handoff" {
		t.Errorf("expected strategy from env, got %q", cfg.Protection.Strategy)
	}
	if cfg.Telemetry.Logging.Level != "debug" {
		t.Errorf("expected logging level %q from env, got %q", "debug", cfg.Telemetry.Logging.Level)
	}
}

func TestLoadConfigWithEnvOverrides_TypedValues(t *testing.T) {
	configPath := writeConfig(t, "server:\n  read_timeout: 30s\n")

	t.Setenv("POLLGATE_PROTECTION_THRESHOLD", "2s")
	t.Setenv("POLLGATE_PROTECTION_MAX_PENDING", "12")
	t.Setenv("POLLGATE_PROTECTION_ENABLED", "false")
	t.Setenv("POLLGATE_TELEMETRY_TRACING_SAMPLE_RATIO", "0.25")

	cfg, err := LoadConfigWithEnvOverrides(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Protection.Threshold != 2*time.Second {
		t.Errorf("expected threshold 2s, got %v", cfg.Protection.Threshold)
	}
	if cfg.Protection.MaxPending != 12 {
		t.Errorf("expected max pending 12, got %d", cfg.Protection.MaxPending)
	}
	if cfg.Protection.Enabled {
		t.Error("expected protection disabled from env")
	}
	if cfg.Telemetry.Tracing.SampleRatio != 0.25 {
		t.Errorf("expected sample ratio 0.25, got %v", cfg.Telemetry.Tracing.SampleRatio)
	}
}

func TestLoadConfigWithEnvOverrides_InvalidEnvValues(t *testing.T) {
	configPath := writeConfig(t, "protection:\n  threshold: 5s\n  strategy: replay\n")

	t.Setenv("POLLGATE_PROTECTION_THRESHOLD", "soon")
	t.Setenv("POLLGATE_PROTECTION_MAX_PENDING", "many")

	cfg, err := LoadConfigWithEnvOverrides(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Protection.Threshold != 5*time.Second {
		t.Errorf("expected unparseable env value to be ignored, got %v", cfg.Protection.Threshold)
	}
	if cfg.Protection.MaxPending != DefaultMaxPending {
		t.Errorf("expected default max pending, got %d", cfg.Protection.MaxPending)
	}
}

func TestLoadConfigWithEnvOverrides_ValidationAfterOverride(t *testing.T) {
	configPath := writeConfig(t, "protection:\n  strategy: replay\n")

	t.Setenv("POLLGATE_PROTECTION_LONG_POLL_TIME", "-1s")

	_, err := LoadConfigWithEnvOverrides(configPath)
	if err == nil {
		t.Fatal("expected validation error after override")
	}
	if !strings.Contains(err.Error(), "protection.long_poll_time") {
		t.Errorf("expected long_poll_time error, got %v", err)
	}
}

func TestDefault(t *testing.T) {
	t.Setenv("POLLGATE_DEMO_PATH", "/sleepy")

	cfg, err := Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	if cfg.Demo.Path != "/sleepy" {
		t.Errorf("expected demo path from env, got %q", cfg.Demo.Path)
	}
	if cfg.Protection.Strategy != DefaultProtectionStrategy {
		t.Errorf("expected default strategy, got %q", cfg.Protection.Strategy)
	}
}
