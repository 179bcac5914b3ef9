package config

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openttd/bananas-server/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a configuration file with defaults",
	Long: `Write a bananas-server configuration file populated with defaults.

By default the file is created at $XDG_CONFIG_HOME/bananas-server/config.yaml.
Use --config to pick a custom path.

Examples:
  # Initialize at the default location
  bananas-server config init

  # Initialize a custom path
  bananas-server config init --config /etc/bananas-server/config.yaml

  # Overwrite an existing file
  bananas-server config init --force`,
	RunE: runConfigInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	// Get config path from the root command's persistent flag
	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}

	if !initForce {
		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", configPath)
		}
	}

	if err := config.SaveConfig(config.GetDefaultConfig(), configPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Printf("Configuration file created at: %s\n", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Point index.local.folder at a BaNaNaS metadata checkout")
	fmt.Println("  2. Point storage at the matching content archives")
	fmt.Printf("  3. Start the server: bananas-server serve --config %s\n", configPath)

	return nil
}
