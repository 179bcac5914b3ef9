package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/openttd/bananas-server/internal/adapter/content"
	"github.com/openttd/bananas-server/internal/logger"
	"github.com/openttd/bananas-server/internal/telemetry"
	"github.com/openttd/bananas-server/pkg/config"
	"github.com/openttd/bananas-server/pkg/index"
	"github.com/openttd/bananas-server/pkg/metrics"
	"github.com/openttd/bananas-server/pkg/metrics/prometheus"
	"github.com/openttd/bananas-server/pkg/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the content and web servers",
	Long: `Run the bananas server: loads the catalog, then serves the binary
content protocol on the content port and the HTTP surface (CDN balancer,
reload endpoint, health check, metrics, WebSocket tunnel) on the web port.

The catalog is loaded once before either listener accepts traffic; a
failed load aborts startup. Afterwards POST /reload rebuilds it without
interrupting running downloads.

Examples:
  # Serve with the default config location
  bananas-server serve

  # Serve with a custom config file
  bananas-server serve --config /etc/bananas-server/config.yaml

  # Override individual settings through the environment
  BANANAS_SERVER_LOGGING_LEVEL=DEBUG bananas-server serve`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	// Initialize the structured logger
	if err := InitLogger(cfg); err != nil {
		return err
	}

	// Shut down gracefully on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))

	// Initialize Pyroscope profiling (if enabled)
	profilingStop, err := telemetry.Start(telemetry.Config{
		Enabled:        cfg.Profiling.Enabled,
		ServiceName:    cfg.Profiling.ServiceName,
		ServiceVersion: build.Version,
		Endpoint:       cfg.Profiling.Endpoint,
		ProfileTypes:   cfg.Profiling.ProfileTypes,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingStop(); err != nil {
			logger.Error("Profiling shutdown error", "error", err)
		}
	}()
	if cfg.Profiling.Enabled {
		logger.Info("Profiling enabled", "endpoint", cfg.Profiling.Endpoint, "profile_types", cfg.Profiling.ProfileTypes)
	} else {
		logger.Info("Profiling disabled")
	}

	// Initialize metrics before the recorders are created; the
	// constructors return nil recorders while the registry is down.
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		logger.Info("Metrics enabled", "endpoint", "/metrics")
	} else {
		logger.Info("Metrics collection disabled")
	}
	contentMetrics := prometheus.NewContentMetrics()
	catalogMetrics := prometheus.NewCatalogMetrics()
	webMetrics := prometheus.NewWebMetrics()

	application, err := newApplication(cfg, contentMetrics, catalogMetrics)
	if err != nil {
		return err
	}

	// Load the catalog before opening any listener. Serving an empty
	// catalog would tell every client there is no content.
	logger.Info("Loading catalog", "folder", cfg.Index.Local.Folder, "storage", cfg.Storage.Backend)
	if err := application.Reload(ctx); err != nil {
		return fmt.Errorf("initial catalog load failed: %w", err)
	}
	logger.Info("Catalog loaded", "entries", application.Snapshot().Len())

	pool, err := web.NewCDNPool(web.CDNConfig{
		URLs:        cfg.Web.CDN.URLs,
		FallbackURL: cfg.Web.CDN.FallbackURL,
	}, webMetrics)
	if err != nil {
		return fmt.Errorf("invalid cdn configuration: %w", err)
	}
	if err := pool.Start(); err != nil {
		return fmt.Errorf("failed to start cdn health checks: %w", err)
	}
	defer func() {
		if err := pool.Stop(); err != nil {
			logger.Error("CDN pool shutdown error", "error", err)
		}
	}()

	adapter := content.New(content.Config{
		Bind:           cfg.Server.Bind,
		Port:           cfg.Content.Port,
		ProxyProtocol:  cfg.Content.ProxyProtocol,
		MaxConnections: cfg.Content.MaxConnections,
		Timeouts: content.TimeoutsConfig{
			Read:     cfg.Content.Timeouts.Read,
			Write:    cfg.Content.Timeouts.Write,
			Shutdown: cfg.Content.Timeouts.Shutdown,
		},
	}, application, contentMetrics)
	logger.Info("Content listener enabled", "port", cfg.Content.Port, "proxy_protocol", cfg.Content.ProxyProtocol)

	webServer := web.NewServer(web.Config{
		Bind:                cfg.Server.Bind,
		Port:                cfg.Web.Port,
		ReloadSecret:        cfg.Web.ReloadSecret,
		TrustForwardedProto: cfg.Web.TrustForwardedProto,
		RateLimit: web.RateLimitConfig{
			Enabled: cfg.Web.RateLimit.Enabled,
			RPS:     cfg.Web.RateLimit.RPS,
			Burst:   cfg.Web.RateLimit.Burst,
		},
	}, application, pool, adapter, webMetrics)
	logger.Info("Web listener enabled", "port", cfg.Web.Port)

	// One failing server takes the group context down and the others
	// shut down gracefully behind it.
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return adapter.Serve(groupCtx)
	})
	group.Go(func() error {
		return webServer.Start(groupCtx)
	})
	if cfg.Index.Watch {
		group.Go(func() error {
			return index.Watch(groupCtx, cfg.Index.Local.Folder, application)
		})
	}

	logger.Info("Server is running. Press Ctrl+C to stop.")

	if err := group.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		return err
	}

	logger.Info("Server stopped gracefully")
	return nil
}
