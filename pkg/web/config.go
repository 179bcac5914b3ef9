package web

import (
	"fmt"
	"time"
)

// Config holds the HTTP surface settings.
type Config struct {
	// Bind is the list of addresses to listen on. Each address gets its
	// own listener on Port.
	Bind []string

	// Port is the HTTP port.
	Port int

	// ReloadSecret guards POST /reload. When empty the endpoint answers
	// 404 unconditionally.
	ReloadSecret string

	// TrustForwardedProto rewrites download URLs to https when
	// X-Forwarded-Proto says the original request was https. Only enable
	// behind a proxy that sets the header.
	TrustForwardedProto bool

	// RateLimit throttles POST /bananas per client address.
	RateLimit RateLimitConfig

	// Timeouts holds the server deadlines.
	Timeouts TimeoutsConfig
}

// RateLimitConfig throttles POST /bananas per client address.
type RateLimitConfig struct {
	// Enabled controls whether the limiter is active.
	Enabled bool

	// RPS is the sustained request rate allowed per client.
	RPS float64

	// Burst is the momentary burst allowed per client.
	Burst int
}

// TimeoutsConfig holds the HTTP server deadlines.
type TimeoutsConfig struct {
	// ReadHeader bounds how long a client may take to send the request
	// headers.
	ReadHeader time.Duration

	// Idle bounds how long a keep-alive connection may sit unused.
	Idle time.Duration

	// Shutdown is the maximum time to wait for in-flight requests during
	// graceful shutdown.
	Shutdown time.Duration
}

func (c *Config) applyDefaults() {
	if c.Bind == nil {
		c.Bind = []string{"::1", "127.0.0.1"}
	}
	if c.Port == 0 {
		c.Port = 80
	}
	if c.RateLimit.RPS == 0 {
		c.RateLimit.RPS = 2
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 16
	}
	if c.Timeouts.ReadHeader == 0 {
		c.Timeouts.ReadHeader = 10 * time.Second
	}
	if c.Timeouts.Idle == 0 {
		c.Timeouts.Idle = 60 * time.Second
	}
	if c.Timeouts.Shutdown == 0 {
		c.Timeouts.Shutdown = 10 * time.Second
	}
}

func (c *Config) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if len(c.Bind) == 0 {
		return fmt.Errorf("at least one bind address is required")
	}
	if c.RateLimit.RPS <= 0 {
		return fmt.Errorf("invalid rate limit rps: %f", c.RateLimit.RPS)
	}
	if c.RateLimit.Burst < 1 {
		return fmt.Errorf("invalid rate limit burst: %d", c.RateLimit.Burst)
	}
	if c.Timeouts.Shutdown <= 0 {
		return fmt.Errorf("invalid shutdown timeout: %s", c.Timeouts.Shutdown)
	}
	return nil
}
