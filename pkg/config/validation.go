package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Validate checks the configuration against the struct validation tags
// plus the cross-field rules the tags cannot express.
//
// Validation does not mutate the config; normalization happens in
// ApplyDefaults.
func Validate(cfg *Config) error {
	v := validator.New()
	v.RegisterStructValidation(validateStorage, StorageConfig{})

	if err := v.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	return nil
}

// validateStorage enforces the backend-specific required fields.
func validateStorage(sl validator.StructLevel) {
	cfg := sl.Current().Interface().(StorageConfig)

	switch cfg.Backend {
	case "local":
		if cfg.Local.Folder == "" {
			sl.ReportError(cfg.Local.Folder, "Local.Folder", "folder", "required", "")
		}
	case "s3":
		if cfg.S3.Bucket == "" {
			sl.ReportError(cfg.S3.Bucket, "S3.Bucket", "bucket", "required", "")
		}
	}
}
