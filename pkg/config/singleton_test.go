package config

import (
	"sync"
	"testing"
	"time"
)

func resetGlobalState() {
	current.Store(nil)
	initOnce = sync.Once{}

	hooksMu.Lock()
	reloadHooks = nil
	hooksMu.Unlock()
}

func TestInitialize(t *testing.T) {
	resetGlobalState()

	configPath := writeConfig(t, `
server:
  listen_address: "127.0.0.1:8081"
`)

	if err := Initialize(configPath); err != nil {
		t.Fatalf("failed to initialize config: %v", err)
	}

	cfg := GetConfig()
	if cfg == nil {
		t.Fatal("expected non-nil config after initialization")
	}
	if cfg.Server.ListenAddress != "127.0.0.1:8081" {
		t.Errorf("expected listen address %q, got %q", "127.0.0.1:8081", cfg.Server.ListenAddress)
	}
}

func TestInitialize_MultipleCallsIgnored(t *testing.T) {
	resetGlobalState()

	first := writeConfig(t, "server:\n  listen_address: \"127.0.0.1:1111\"\n")
	second := writeConfig(t, "server:\n  listen_address: \"127.0.0.1:2222\"\n")

	if err := Initialize(first); err != nil {
		t.Fatalf("first Initialize failed: %v", err)
	}
	if err := Initialize(second); err != nil {
		t.Fatalf("second Initialize returned error: %v", err)
	}

	if got := GetConfig().Server.ListenAddress; got != "127.0.0.1:1111" {
		t.Errorf("expected first configuration to win, got %q", got)
	}
}

func TestGetConfig_BeforeInitialize(t *testing.T) {
	resetGlobalState()

	if cfg := GetConfig(); cfg != nil {
		t.Error("expected nil config before initialization")
	}
}

func TestSetConfig(t *testing.T) {
	resetGlobalState()

	SetConfig(MinimalConfig(listenOn("192.168.1.1:7070")))

	cfg := GetConfig()
	if cfg == nil {
		t.Fatal("expected non-nil config after SetConfig")
	}
	if cfg.Server.ListenAddress != "192.168.1.1:7070" {
		t.Errorf("expected listen address %q, got %q", "192.168.1.1:7070", cfg.Server.ListenAddress)
	}
}

func TestReloadConfig(t *testing.T) {
	resetGlobalState()

	configPath := writeConfig(t, "protection:\n  strategy: replay\n  threshold: 14s\n")
	if err := Initialize(configPath); err != nil {
		t.Fatalf("failed to initialize config: %v", err)
	}

	var hooked *Config
	OnReload(func(cfg *Config) { hooked = cfg })

	rewrite(t, configPath, "protection:\n  strategy: handoff\n  threshold: 3s\n")

	if err := ReloadConfig(configPath); err != nil {
		t.Fatalf("failed to reload config: %v", err)
	}

	cfg := GetConfig()
	if cfg.Protection.Strategy != "handoff" {
		t.Errorf("expected reloaded strategy handoff, got %q", cfg.Protection.Strategy)
	}
	if cfg.Protection.Threshold != 3*time.Second {
		t.Errorf("expected reloaded threshold 3s, got %v", cfg.Protection.Threshold)
	}
	if hooked != cfg {
		t.Error("expected reload hook to receive the new configuration")
	}
}

func TestReloadConfig_ValidationFailure(t *testing.T) {
	resetGlobalState()

	configPath := writeConfig(t, "protection:\n  strategy: replay\n")
	if err := Initialize(configPath); err != nil {
		t.Fatalf("failed to initialize config: %v", err)
	}
	original := GetConfig()

	called := false
	OnReload(func(*Config) { called = true })

	rewrite(t, configPath, "protection:\n  strategy: replay\n  long_poll_time: -1s\n")

	if err := ReloadConfig(configPath); err == nil {
		t.Fatal("expected error when reloading invalid config")
	}
	if GetConfig() != original {
		t.Error("original config should be preserved on reload failure")
	}
	if called {
		t.Error("reload hook should not run on failure")
	}
}

func TestMustGetConfig(t *testing.T) {
	resetGlobalState()

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected MustGetConfig to panic when not initialized")
		}
	}()

	MustGetConfig()
}

func TestMustGetConfig_AfterInitialize(t *testing.T) {
	resetGlobalState()

	SetConfig(MinimalConfig())

	if cfg := MustGetConfig(); cfg == nil {
		t.Error("expected non-nil config from MustGetConfig")
	}
}
