package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"mercator-hq/pollgate/pkg/config"
)

// Output formats. Console is an alias of text kept for configuration files
// written for older releases.
const (
	FormatJSON    = "json"
	FormatText    = "text"
	FormatConsole = "console"
)

// Config contains configuration for the logger.
type Config struct {
	Level     string
	Format    string
	AddSource bool

	// Redact masks credentials and cookies in log fields.
	Redact bool

	// Writer defaults to os.Stdout.
	Writer io.Writer

	// LevelVar, when set, receives the parsed level and controls the
	// logger afterwards, so the level can change at runtime.
	LevelVar *slog.LevelVar
}

// FromConfig converts the logging section of the application configuration.
// Redaction is always on for the server logger.
func FromConfig(cfg config.LoggingConfig) Config {
	return Config{
		Level:     cfg.Level,
		Format:    cfg.Format,
		AddSource: cfg.AddSource,
		Redact:    true,
	}
}

// New creates a structured logger. Records logged with a context carry the
// request id, correlation id, protection mode and active span of that
// context.
func New(cfg Config) (*slog.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	lv := cfg.LevelVar
	if lv == nil {
		lv = new(slog.LevelVar)
	}
	lv.Set(level)

	opts := &slog.HandlerOptions{Level: lv, AddSource: cfg.AddSource}
	if cfg.Redact {
		opts.ReplaceAttr = NewRedactor().ReplaceAttr
	}

	w := cfg.Writer
	if w == nil {
		w = os.Stdout
	}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case FormatJSON, "":
		handler = slog.NewJSONHandler(w, opts)
	case FormatText, FormatConsole:
		handler = slog.NewTextHandler(w, opts)
	default:
		return nil, fmt.Errorf("invalid log format: unknown log format: %s", cfg.Format)
	}

	return slog.New(NewContextHandler(handler)), nil
}

// ParseLevel accepts debug, info, warn (or warning) and error in any case.
// The empty string means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level: %s", s)
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
