package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.MaxConnections != 10 {
		t.Errorf("MaxConnections = %d, want 10", cfg.MaxConnections)
	}
	if cfg.HeartbeatInterval != 30*time.Second {
		t.Errorf("HeartbeatInterval = %v, want 30s", cfg.HeartbeatInterval)
	}
	if cfg.ReliableMaxRetries != 3 {
		t.Errorf("ReliableMaxRetries = %d, want 3", cfg.ReliableMaxRetries)
	}
	if cfg.StreamingMessagesPerSecond != 1000 {
		t.Errorf("StreamingMessagesPerSecond = %d, want 1000", cfg.StreamingMessagesPerSecond)
	}
	if cfg.OverloadDropPercent != 50 {
		t.Errorf("OverloadDropPercent = %d, want 50", cfg.OverloadDropPercent)
	}
	if cfg.PerformanceMode != ModeBalanced {
		t.Errorf("PerformanceMode = %q, want %q", cfg.PerformanceMode, ModeBalanced)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	cfg := Default()
	cfg.Port = 9090
	cfg.MaxConnections = 42
	cfg.StreamingMessagesPerSecond = 2500

	if err := cfg.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	configPath, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}
	if filepath.Dir(configPath) != filepath.Join(dir, appName) {
		t.Fatalf("config dir = %q, want under %q", configPath, dir)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if loaded.Port != 9090 {
		t.Errorf("Port = %d, want 9090", loaded.Port)
	}
	if loaded.MaxConnections != 42 {
		t.Errorf("MaxConnections = %d, want 42", loaded.MaxConnections)
	}
	if loaded.StreamingMessagesPerSecond != 2500 {
		t.Errorf("StreamingMessagesPerSecond = %d, want 2500", loaded.StreamingMessagesPerSecond)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MaxConnections != Default().MaxConnections {
		t.Errorf("expected defaults when config file is missing")
	}
}
