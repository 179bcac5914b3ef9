package config

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/openttd/bananas-server/internal/cli/output"
	"github.com/openttd/bananas-server/pkg/config"
)

var showOutput string

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current configuration",
	Long: `Display the effective bananas-server configuration after merging the
config file, environment overrides, and defaults.

By default outputs YAML format. Use --output to change format.

Examples:
  # Show effective config as YAML
  bananas-server config show

  # Show as JSON
  bananas-server config show --output json

  # Show a specific config file
  bananas-server config show --config /etc/bananas-server/config.yaml`,
	RunE: runConfigShow,
}

func init() {
	showCmd.Flags().StringVarP(&showOutput, "output", "o", "yaml", "Output format (yaml|json)")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	// Get config path from the root command's persistent flag
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	format, err := output.ParseFormat(showOutput)
	if err != nil {
		return err
	}

	return output.Encode(os.Stdout, format, cfg)
}
