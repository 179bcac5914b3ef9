package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// setDefaults seeds viper with the default for every configuration key.
// Keys must be registered here for environment overrides to reach
// Unmarshal; see setupViper.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.bind", []string{"::1", "127.0.0.1"})

	v.SetDefault("content.port", 3978)
	v.SetDefault("content.proxy_protocol", false)
	v.SetDefault("content.max_connections", 0)
	v.SetDefault("content.timeouts.read", "5m")
	v.SetDefault("content.timeouts.write", "30s")
	v.SetDefault("content.timeouts.shutdown", "30s")

	v.SetDefault("web.port", 80)
	v.SetDefault("web.reload_secret", "")
	v.SetDefault("web.trust_forwarded_proto", false)
	v.SetDefault("web.rate_limit.enabled", true)
	v.SetDefault("web.rate_limit.rps", 2.0)
	v.SetDefault("web.rate_limit.burst", 16)
	v.SetDefault("web.cdn.urls", []string{})
	v.SetDefault("web.cdn.fallback_url", "")

	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.local.folder", "local_storage")
	v.SetDefault("storage.s3.bucket", "")
	v.SetDefault("storage.s3.endpoint_url", "")
	v.SetDefault("storage.s3.region", "")
	v.SetDefault("storage.s3.access_key_id", "")
	v.SetDefault("storage.s3.secret_access_key", "")

	v.SetDefault("index.backend", "local")
	v.SetDefault("index.local.folder", "BaNaNaS")
	v.SetDefault("index.watch", false)

	v.SetDefault("app.bootstrap_unique_id", "")

	v.SetDefault("logging.level", "INFO")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stdout")

	v.SetDefault("metrics.enabled", true)

	v.SetDefault("profiling.enabled", false)
	v.SetDefault("profiling.endpoint", "http://localhost:4040")
	v.SetDefault("profiling.service_name", "bananas-server")
	v.SetDefault("profiling.profile_types", defaultProfileTypes())
}

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", nil) are replaced with defaults
//   - Explicit values are preserved
//   - Booleans defaulting to true are seeded in setDefaults instead;
//     a zero bool cannot be told apart from an explicit false here
func ApplyDefaults(cfg *Config) {
	applyServerDefaults(&cfg.Server)
	applyContentDefaults(&cfg.Content)
	applyWebDefaults(&cfg.Web)
	applyStorageDefaults(&cfg.Storage)
	applyIndexDefaults(&cfg.Index)
	applyLoggingDefaults(&cfg.Logging)
	applyProfilingDefaults(&cfg.Profiling)
}

// applyServerDefaults sets shared listener defaults.
func applyServerDefaults(cfg *ServerConfig) {
	if len(cfg.Bind) == 0 {
		cfg.Bind = []string{"::1", "127.0.0.1"}
	}
}

// applyContentDefaults sets content protocol defaults.
func applyContentDefaults(cfg *ContentConfig) {
	if cfg.Port == 0 {
		cfg.Port = 3978
	}
	if cfg.Timeouts.Read == 0 {
		cfg.Timeouts.Read = 5 * time.Minute
	}
	if cfg.Timeouts.Write == 0 {
		cfg.Timeouts.Write = 30 * time.Second
	}
	if cfg.Timeouts.Shutdown == 0 {
		cfg.Timeouts.Shutdown = 30 * time.Second
	}
}

// applyWebDefaults sets HTTP surface defaults.
func applyWebDefaults(cfg *WebConfig) {
	if cfg.Port == 0 {
		cfg.Port = 80
	}
	if cfg.RateLimit.RPS == 0 {
		cfg.RateLimit.RPS = 2
	}
	if cfg.RateLimit.Burst == 0 {
		cfg.RateLimit.Burst = 16
	}
}

// applyStorageDefaults sets storage backend defaults.
func applyStorageDefaults(cfg *StorageConfig) {
	if cfg.Backend == "" {
		cfg.Backend = "local"
	}
	if cfg.Local.Folder == "" {
		cfg.Local.Folder = "local_storage"
	}
}

// applyIndexDefaults sets catalog index defaults.
func applyIndexDefaults(cfg *IndexConfig) {
	if cfg.Backend == "" {
		cfg.Backend = "local"
	}
	if cfg.Local.Folder == "" {
		cfg.Local.Folder = "BaNaNaS"
	}
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyProfilingDefaults sets Pyroscope profiling defaults.
func applyProfilingDefaults(cfg *ProfilingConfig) {
	// Enabled defaults to false (opt-in for profiling)
	// No need to set, zero value is false

	// Default endpoint is localhost:4040 (standard Pyroscope port)
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:4040"
	}

	if cfg.ServiceName == "" {
		cfg.ServiceName = "bananas-server"
	}

	// Default profile types include CPU, memory allocation, and goroutines
	if len(cfg.ProfileTypes) == 0 {
		cfg.ProfileTypes = defaultProfileTypes()
	}
}

func defaultProfileTypes() []string {
	return []string{
		"cpu",
		"alloc_objects",
		"alloc_space",
		"inuse_objects",
		"inuse_space",
		"goroutines",
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{
		Web: WebConfig{
			RateLimit: RateLimitConfig{Enabled: true},
		},
		Metrics: MetricsConfig{Enabled: true},
	}

	ApplyDefaults(cfg)
	return cfg
}
