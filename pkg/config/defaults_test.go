package config

import (
	"testing"
	"time"
)

func TestGetDefaultConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	if len(cfg.Server.Bind) != 2 || cfg.Server.Bind[0] != "::1" || cfg.Server.Bind[1] != "127.0.0.1" {
		t.Errorf("Expected default bind [::1 127.0.0.1], got %v", cfg.Server.Bind)
	}
	if cfg.Content.Port != 3978 {
		t.Errorf("Expected default content port 3978, got %d", cfg.Content.Port)
	}
	if cfg.Content.MaxConnections != 0 {
		t.Errorf("Expected unlimited connections by default, got %d", cfg.Content.MaxConnections)
	}
	if cfg.Content.Timeouts.Read != 5*time.Minute {
		t.Errorf("Expected default read timeout 5m, got %v", cfg.Content.Timeouts.Read)
	}
	if cfg.Content.Timeouts.Write != 30*time.Second {
		t.Errorf("Expected default write timeout 30s, got %v", cfg.Content.Timeouts.Write)
	}
	if cfg.Web.Port != 80 {
		t.Errorf("Expected default web port 80, got %d", cfg.Web.Port)
	}
	if cfg.Web.ReloadSecret != "" {
		t.Errorf("Expected empty reload secret by default, got %q", cfg.Web.ReloadSecret)
	}
	if !cfg.Web.RateLimit.Enabled {
		t.Error("Expected rate limiting enabled by default")
	}
	if cfg.Web.RateLimit.RPS != 2 {
		t.Errorf("Expected default rps 2, got %v", cfg.Web.RateLimit.RPS)
	}
	if cfg.Web.RateLimit.Burst != 16 {
		t.Errorf("Expected default burst 16, got %d", cfg.Web.RateLimit.Burst)
	}
	if cfg.Storage.Backend != "local" {
		t.Errorf("Expected default storage backend local, got %q", cfg.Storage.Backend)
	}
	if cfg.Storage.Local.Folder != "local_storage" {
		t.Errorf("Expected default storage folder local_storage, got %q", cfg.Storage.Local.Folder)
	}
	if cfg.Index.Backend != "local" {
		t.Errorf("Expected default index backend local, got %q", cfg.Index.Backend)
	}
	if cfg.Index.Local.Folder != "BaNaNaS" {
		t.Errorf("Expected default index folder BaNaNaS, got %q", cfg.Index.Local.Folder)
	}
	if cfg.Index.Watch {
		t.Error("Expected index watching disabled by default")
	}
	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default level INFO, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format text, got %q", cfg.Logging.Format)
	}
	if !cfg.Metrics.Enabled {
		t.Error("Expected metrics enabled by default")
	}
	if cfg.Profiling.Enabled {
		t.Error("Expected profiling disabled by default")
	}
	if cfg.Profiling.ServiceName != "bananas-server" {
		t.Errorf("Expected default service name bananas-server, got %q", cfg.Profiling.ServiceName)
	}

	// The default config must pass its own validation
	if err := Validate(cfg); err != nil {
		t.Errorf("Default config failed validation: %v", err)
	}
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{}
	cfg.Server.Bind = []string{"10.0.0.1"}
	cfg.Content.Port = 9999
	cfg.Web.RateLimit.RPS = 10
	cfg.Logging.Level = "warn"

	ApplyDefaults(cfg)

	if len(cfg.Server.Bind) != 1 || cfg.Server.Bind[0] != "10.0.0.1" {
		t.Errorf("Explicit bind was overridden: %v", cfg.Server.Bind)
	}
	if cfg.Content.Port != 9999 {
		t.Errorf("Explicit port was overridden: %d", cfg.Content.Port)
	}
	if cfg.Web.RateLimit.RPS != 10 {
		t.Errorf("Explicit rps was overridden: %v", cfg.Web.RateLimit.RPS)
	}

	// Level normalization still applies
	if cfg.Logging.Level != "WARN" {
		t.Errorf("Expected level normalized to WARN, got %q", cfg.Logging.Level)
	}

	// Unset siblings still get defaults
	if cfg.Web.RateLimit.Burst != 16 {
		t.Errorf("Expected default burst 16, got %d", cfg.Web.RateLimit.Burst)
	}
	if cfg.Content.Timeouts.Shutdown != 30*time.Second {
		t.Errorf("Expected default shutdown timeout 30s, got %v", cfg.Content.Timeouts.Shutdown)
	}
}
