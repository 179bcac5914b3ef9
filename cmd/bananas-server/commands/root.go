// Package commands implements the CLI commands for the bananas server.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/openttd/bananas-server/cmd/bananas-server/commands/config"
)

// BuildInfo carries the stamps main injects through ldflags.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

var build = BuildInfo{Version: "dev", Commit: "none", Date: "unknown"}

// SetBuildInfo records the build stamps. Call before Execute.
func SetBuildInfo(info BuildInfo) {
	build = info
}

// Global flags.
var cfgFile string

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "bananas-server",
	Short: "BaNaNaS content server for OpenTTD",
	Long: `bananas-server serves OpenTTD's content catalog: the binary TCP
protocol game clients use to browse and download NewGRFs, scenarios,
base sets, and scripts, plus the HTTP surface with the CDN balancer,
catalog reload endpoint, and WebSocket tunnel.

Use "bananas-server [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/bananas-server/config.yaml)")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(config.Cmd)
	rootCmd.AddCommand(completionCmd)

	// Hide the default completion command (we provide our own)
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// GetConfigFile returns the config file path from the global flag.
func GetConfigFile() string {
	return cfgFile
}
