package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var versionShort bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long:  `Display the bananas-server version, build stamps, and platform.`,
	Run: func(cmd *cobra.Command, args []string) {
		if versionShort {
			fmt.Println(build.Version)
			return
		}

		fmt.Printf("bananas-server %s\n", build.Version)
		fmt.Printf("commit: %s\n", build.Commit)
		fmt.Printf("built:  %s\n", build.Date)
		fmt.Printf("go:     %s (%s/%s)\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Show only version number")
}
