package config

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// The process-wide configuration. Commands load it once at startup and the
// watcher swaps it on reload; request paths read it through GetConfig.
var (
	current  atomic.Pointer[Config]
	initOnce sync.Once

	hooksMu     sync.Mutex
	reloadHooks []func(*Config)
)

// Initialize loads the configuration at path, with environment overrides,
// into the process-wide slot. Only the first call has any effect.
func Initialize(path string) error {
	var err error
	initOnce.Do(func() {
		var cfg *Config
		if cfg, err = LoadConfigWithEnvOverrides(path); err == nil {
			current.Store(cfg)
		}
	})
	return err
}

// GetConfig returns the process-wide configuration, or nil before
// Initialize or SetConfig.
func GetConfig() *Config {
	return current.Load()
}

// MustGetConfig is GetConfig for code that only runs after startup. It
// panics when no configuration has been stored.
func MustGetConfig() *Config {
	if cfg := current.Load(); cfg != nil {
		return cfg
	}
	panic("configuration not initialized: call Initialize first")
}

// SetConfig replaces the process-wide configuration. The CLI uses it after
// applying flag overrides, and tests use it to inject a configuration.
func SetConfig(cfg *Config) {
	current.Store(cfg)
}

// ReloadConfig loads path again and, only if it loads and validates,
// replaces the process-wide configuration and runs the OnReload hooks with
// it. On failure the previous configuration stays in place.
func ReloadConfig(path string) error {
	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		return fmt.Errorf("failed to reload configuration: %w", err)
	}
	current.Store(cfg)

	hooksMu.Lock()
	hooks := make([]func(*Config), len(reloadHooks))
	copy(hooks, reloadHooks)
	hooksMu.Unlock()

	for _, hook := range hooks {
		hook(cfg)
	}
	return nil
}

// OnReload registers fn to run after every successful ReloadConfig. Hooks
// run in registration order on the reloading goroutine.
func OnReload(fn func(*Config)) {
	hooksMu.Lock()
	reloadHooks = append(reloadHooks, fn)
	hooksMu.Unlock()
}
