package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openttd/bananas-server/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the bananas-server configuration file.

Checks for syntax errors, missing required fields, and invalid values.
Use "bananas-server validate" to additionally build the catalog itself.

Examples:
  # Validate default config
  bananas-server config validate

  # Validate specific config file
  bananas-server config validate --config /etc/bananas-server/config.yaml`,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	// Get config path from the root command's persistent flag
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	displayPath := configPath
	if displayPath == "" {
		displayPath = config.GetDefaultConfigPath()
	}

	var warnings []string

	if cfg.Web.ReloadSecret == "" {
		warnings = append(warnings, "No reload secret configured - POST /reload will answer 404")
	}
	if len(cfg.Web.CDN.URLs) == 0 && cfg.Web.CDN.FallbackURL == "" {
		warnings = append(warnings, "No CDN mirrors configured - POST /bananas cannot emit download URLs")
	}

	fmt.Printf("Configuration file: %s\n", displayPath)
	fmt.Println("Validation: OK")

	if len(warnings) > 0 {
		fmt.Println("\nWarnings:")
		for _, w := range warnings {
			fmt.Printf("  - %s\n", w)
		}
	}

	fmt.Printf("\nConfiguration summary:\n")
	fmt.Printf("  Bind addresses:  %v\n", cfg.Server.Bind)
	fmt.Printf("  Content port:    %d\n", cfg.Content.Port)
	fmt.Printf("  Web port:        %d\n", cfg.Web.Port)
	fmt.Printf("  Storage backend: %s\n", cfg.Storage.Backend)
	fmt.Printf("  Index folder:    %s\n", cfg.Index.Local.Folder)
	fmt.Printf("  Log level:       %s\n", cfg.Logging.Level)

	return nil
}
