package commands

import (
	"fmt"

	"github.com/openttd/bananas-server/internal/logger"
	"github.com/openttd/bananas-server/pkg/app"
	"github.com/openttd/bananas-server/pkg/config"
	"github.com/openttd/bananas-server/pkg/index"
	"github.com/openttd/bananas-server/pkg/metrics"
	"github.com/openttd/bananas-server/pkg/store"
	"github.com/openttd/bananas-server/pkg/store/local"
	"github.com/openttd/bananas-server/pkg/store/s3"
)

// InitLogger initializes the structured logger from configuration.
func InitLogger(cfg *config.Config) error {
	loggerCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if err := logger.Init(loggerCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// getConfigSource returns a description of where the config was loaded from.
func getConfigSource(configFile string) string {
	if configFile != "" {
		return configFile
	}
	if config.DefaultConfigExists() {
		return config.GetDefaultConfigPath()
	}
	return "defaults"
}

// newStorage creates the content storage backend selected by the config.
func newStorage(cfg *config.Config) (store.Storage, error) {
	switch cfg.Storage.Backend {
	case "local":
		return local.New(cfg.Storage.Local.Folder), nil
	case "s3":
		return s3.New(s3.Config{
			Bucket:          cfg.Storage.S3.Bucket,
			Region:          cfg.Storage.S3.Region,
			EndpointURL:     cfg.Storage.S3.EndpointURL,
			AccessKeyID:     cfg.Storage.S3.AccessKeyID,
			SecretAccessKey: cfg.Storage.S3.SecretAccessKey,
		}), nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Storage.Backend)
	}
}

// newApplication assembles the application from configuration: storage
// backend, index loader, and request handlers. The catalog starts empty
// until the first Reload.
func newApplication(cfg *config.Config, contentMetrics metrics.ContentMetrics, catalogMetrics metrics.CatalogMetrics) (*app.Application, error) {
	storage, err := newStorage(cfg)
	if err != nil {
		return nil, err
	}

	loader := index.New(cfg.Index.Local.Folder)

	application, err := app.New(app.Config{
		BootstrapUniqueID: cfg.App.BootstrapUniqueID,
	}, storage, loader, contentMetrics, catalogMetrics)
	if err != nil {
		return nil, fmt.Errorf("failed to create application: %w", err)
	}

	return application, nil
}
