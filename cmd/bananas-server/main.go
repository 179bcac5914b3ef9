package main

import (
	"fmt"
	"os"

	"github.com/openttd/bananas-server/cmd/bananas-server/commands"
)

// Stamped through -ldflags at release time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetBuildInfo(commands.BuildInfo{Version: version, Commit: commit, Date: date})

	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
