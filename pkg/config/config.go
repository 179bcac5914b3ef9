package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the bananas-server configuration.
//
// This structure captures every static aspect of the content server:
//   - Listener addresses shared by the TCP and HTTP frontends
//   - Content protocol settings (port, proxy protocol, connection limits)
//   - Web surface settings (reload secret, rate limiting, CDN mirrors)
//   - Storage backend selection (local filesystem or S3)
//   - Catalog index location
//   - Logging, metrics, and profiling
//
// Configuration sources (in order of precedence):
//  1. Environment variables (BANANAS_SERVER_*)
//  2. Configuration file (YAML)
//  3. Default values (lowest priority)
type Config struct {
	// Server holds settings shared by both listeners.
	Server ServerConfig `mapstructure:"server" yaml:"server"`

	// Content configures the binary TCP content protocol.
	Content ContentConfig `mapstructure:"content" yaml:"content"`

	// Web configures the HTTP surface.
	Web WebConfig `mapstructure:"web" yaml:"web"`

	// Storage selects and configures the content storage backend.
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`

	// Index configures where the catalog metadata tree is read from.
	Index IndexConfig `mapstructure:"index" yaml:"index"`

	// App holds request handling settings.
	App AppConfig `mapstructure:"app" yaml:"app"`

	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Metrics controls Prometheus metrics collection.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Profiling contains Pyroscope continuous profiling configuration.
	Profiling ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`
}

// ServerConfig holds settings shared by the TCP and HTTP listeners.
type ServerConfig struct {
	// Bind is the list of addresses both frontends listen on. Each address
	// gets its own listener on the respective port.
	// Default: ["::1", "127.0.0.1"]
	Bind []string `mapstructure:"bind" validate:"required,min=1,dive,ip" yaml:"bind"`
}

// ContentConfig configures the binary TCP content protocol listener.
type ContentConfig struct {
	// Port is the TCP port of the content protocol.
	// Default: 3978
	Port int `mapstructure:"port" validate:"required,min=1,max=65535" yaml:"port"`

	// ProxyProtocol enables HAProxy PROXY protocol v1 support. When set,
	// the first line of every connection carries the real client address.
	// Default: false
	ProxyProtocol bool `mapstructure:"proxy_protocol" yaml:"proxy_protocol"`

	// MaxConnections limits concurrent client connections.
	// 0 means unlimited.
	MaxConnections int `mapstructure:"max_connections" validate:"min=0" yaml:"max_connections"`

	// Timeouts holds the per-connection and shutdown deadlines.
	Timeouts TimeoutsConfig `mapstructure:"timeouts" yaml:"timeouts"`
}

// TimeoutsConfig holds the content listener deadlines.
type TimeoutsConfig struct {
	// Read is the idle deadline between client packets.
	// Default: 5m
	Read time.Duration `mapstructure:"read" validate:"required,gt=0" yaml:"read"`

	// Write is the deadline for writing one response frame.
	// Default: 30s
	Write time.Duration `mapstructure:"write" validate:"required,gt=0" yaml:"write"`

	// Shutdown is the maximum time to wait for in-flight transfers before
	// connections are force-closed.
	// Default: 30s
	Shutdown time.Duration `mapstructure:"shutdown" validate:"required,gt=0" yaml:"shutdown"`
}

// WebConfig configures the HTTP surface.
type WebConfig struct {
	// Port is the HTTP port.
	// Default: 80
	Port int `mapstructure:"port" validate:"required,min=1,max=65535" yaml:"port"`

	// ReloadSecret guards POST /reload. When empty the endpoint answers
	// 404 unconditionally.
	ReloadSecret string `mapstructure:"reload_secret" yaml:"reload_secret,omitempty"`

	// TrustForwardedProto rewrites download URLs to https when the
	// X-Forwarded-Proto header says the original request was https.
	// Only enable behind a proxy that sets the header.
	// Default: false
	TrustForwardedProto bool `mapstructure:"trust_forwarded_proto" yaml:"trust_forwarded_proto"`

	// RateLimit throttles POST /bananas per client address.
	RateLimit RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit"`

	// CDN configures the download mirrors handed out by POST /bananas.
	CDN CDNConfig `mapstructure:"cdn" yaml:"cdn"`
}

// RateLimitConfig throttles POST /bananas per client address.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active.
	// Default: true
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// RPS is the sustained request rate allowed per client.
	// Default: 2
	RPS float64 `mapstructure:"rps" validate:"omitempty,gt=0" yaml:"rps"`

	// Burst is the momentary burst allowed per client.
	// Default: 16
	Burst int `mapstructure:"burst" validate:"omitempty,min=1" yaml:"burst"`
}

// CDNConfig configures the download mirrors.
//
// With a single URL and no fallback, that URL serves as the fallback and
// no health checks run. With several URLs a fallback is mandatory; it is
// handed out whenever every mirror fails its health check.
type CDNConfig struct {
	// URLs are the mirror base URLs. Each must expose /healthz.
	URLs []string `mapstructure:"urls" validate:"omitempty,dive,url" yaml:"urls"`

	// FallbackURL is handed out when no mirror is healthy.
	FallbackURL string `mapstructure:"fallback_url" validate:"omitempty,url" yaml:"fallback_url,omitempty"`
}

// StorageConfig selects and configures the content storage backend.
type StorageConfig struct {
	// Backend selects the storage implementation.
	// Valid values: local, s3
	Backend string `mapstructure:"backend" validate:"required,oneof=local s3" yaml:"backend"`

	// Local configures the filesystem backend.
	Local LocalStorageConfig `mapstructure:"local" yaml:"local"`

	// S3 configures the S3 backend.
	S3 S3StorageConfig `mapstructure:"s3" yaml:"s3"`
}

// LocalStorageConfig configures the filesystem storage backend.
type LocalStorageConfig struct {
	// Folder is the root of the content tree.
	// Default: local_storage
	Folder string `mapstructure:"folder" yaml:"folder"`
}

// S3StorageConfig configures the S3 storage backend.
//
// Credentials may also come from the standard AWS environment variables
// or instance metadata; explicit keys here take precedence.
type S3StorageConfig struct {
	// Bucket is the bucket holding the content tree. Required when the
	// s3 backend is selected.
	Bucket string `mapstructure:"bucket" yaml:"bucket"`

	// EndpointURL overrides the S3 endpoint, for S3-compatible stores
	// like MinIO or Ceph.
	EndpointURL string `mapstructure:"endpoint_url" validate:"omitempty,url" yaml:"endpoint_url,omitempty"`

	// Region is the bucket region.
	Region string `mapstructure:"region" yaml:"region,omitempty"`

	// AccessKeyID and SecretAccessKey are static credentials.
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id,omitempty"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key,omitempty"`
}

// IndexConfig configures where the catalog metadata tree is read from.
type IndexConfig struct {
	// Backend selects the index source.
	// Valid values: local
	Backend string `mapstructure:"backend" validate:"required,oneof=local" yaml:"backend"`

	// Local configures the filesystem index source.
	Local LocalIndexConfig `mapstructure:"local" yaml:"local"`

	// Watch reloads the catalog automatically when the index tree changes
	// on disk. Meant for development; production reloads via POST /reload.
	// Default: false
	Watch bool `mapstructure:"watch" yaml:"watch"`
}

// LocalIndexConfig configures the filesystem index source.
type LocalIndexConfig struct {
	// Folder is the root of the metadata tree checkout.
	// Default: BaNaNaS
	Folder string `mapstructure:"folder" validate:"required" yaml:"folder"`
}

// AppConfig holds request handling settings.
type AppConfig struct {
	// BootstrapUniqueID is the unique id (8 hex digits) of the base
	// graphics set sent first to clients that have nothing installed yet.
	// Empty disables the bootstrap entry.
	BootstrapUniqueID string `mapstructure:"bootstrap_unique_id" validate:"omitempty,len=8,hexadecimal" yaml:"bootstrap_unique_id,omitempty"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// MetricsConfig controls Prometheus metrics collection. Metrics are
// served on the web port under /metrics.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected.
	// Default: true
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// ProfilingConfig controls Pyroscope continuous profiling.
// When enabled, CPU and memory profiles are continuously sent to a Pyroscope server
// for flame graph visualization and performance analysis.
type ProfilingConfig struct {
	// Enabled controls whether continuous profiling is enabled
	// Default: false (opt-in for profiling)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the Pyroscope server endpoint (URL)
	// Default: "http://localhost:4040" (standard Pyroscope port)
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// ServiceName identifies this process in Pyroscope.
	// Default: "bananas-server"
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`

	// ProfileTypes specifies which profile types to collect
	// Valid values: cpu, alloc_objects, alloc_space, inuse_objects, inuse_space,
	//               goroutines, mutex_count, mutex_duration, block_count, block_duration
	// Default: ["cpu", "alloc_objects", "alloc_space", "inuse_objects", "inuse_space", "goroutines"]
	ProfileTypes []string `mapstructure:"profile_types" yaml:"profile_types"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (BANANAS_SERVER_*)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Configure viper
	setupViper(v, configPath)

	// Read the configuration file if present. Defaults and environment
	// overrides apply either way, so a missing file is not an error.
	if _, err := readConfigFile(v); err != nil {
		return nil, err
	}

	// Unmarshal into config struct with custom decode hooks
	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Apply defaults for any missing values
	ApplyDefaults(&cfg)

	// Validate configuration
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration with helpful error messages.
//
// An explicitly specified config file must exist. With no path given the
// default location is used when present, otherwise the server runs on
// defaults and environment overrides alone.
func MustLoad(configPath string) (*Config, error) {
	if configPath != "" {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s\n\n"+
				"Please create the configuration file:\n"+
				"  bananas-server config init --config %s",
				configPath, configPath)
		}
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to the specified file path.
// The configuration is saved in YAML format using proper yaml tags.
func SaveConfig(cfg *Config, path string) error {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Use yaml.Marshal directly to respect yaml tags
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write to file with restricted permissions (0600 = owner read/write only).
	// This is important because config files may contain secrets like the
	// reload secret and S3 credentials.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Set up environment variable support
	// Environment variables use BANANAS_SERVER_ prefix and underscores
	// Example: BANANAS_SERVER_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("BANANAS_SERVER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Seed every key with its default. Unmarshal only sees environment
	// overrides for keys viper already knows about, and booleans whose
	// default is true cannot be backfilled after unmarshal (an explicit
	// false is indistinguishable from an omitted key).
	setDefaults(v)

	// Configure config file search
	if configPath != "" {
		// Use explicitly specified config file
		v.SetConfigFile(configPath)
	} else {
		// Use default location: $XDG_CONFIG_HOME/bananas-server/config.yaml
		configDir := getConfigDir()
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml") // Primary format
	}
}

// readConfigFile reads the configuration file if it exists.
// Returns (fileFound, error) where fileFound indicates if a config file was found.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		// Check if error is "config file not found"
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found is acceptable - use defaults
			return false, nil
		}
		// Also check for os.PathError when explicit config file doesn't exist
		if os.IsNotExist(err) {
			// Config file not found is acceptable - use defaults
			return false, nil
		}
		// Other errors are problems
		return false, fmt.Errorf("failed to read config file: %w", err)
	}

	return true, nil
}

// configDecodeHooks returns a combined decode hook for all custom types.
// The slice hook lets environment variables carry list values, e.g.
// BANANAS_SERVER_SERVER_BIND="::1,127.0.0.1".
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		durationDecodeHook(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// durationDecodeHook returns a mapstructure decode hook that converts strings
// to time.Duration. This enables config files to use human-readable durations
// like "30s", "5m", "1h".
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		// Only handle conversion to time.Duration
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			// Parse duration string like "30s", "5m", "1h"
			return time.ParseDuration(v)
		case int:
			// Assume nanoseconds for raw integers
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			// YAML often deserializes numbers as float64
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	// Check XDG_CONFIG_HOME
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "bananas-server")
	}

	// Fall back to ~/.config
	home, err := os.UserHomeDir()
	if err != nil {
		// If we can't get home dir, use current directory as last resort
		return "."
	}

	return filepath.Join(home, ".config", "bananas-server")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	path := GetDefaultConfigPath()
	_, err := os.Stat(path)
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for the
// config init command).
func GetConfigDir() string {
	return getConfigDir()
}
