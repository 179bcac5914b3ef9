package commands

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/openttd/bananas-server/internal/cli/output"
	"github.com/openttd/bananas-server/pkg/catalog"
	"github.com/openttd/bananas-server/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the content index and exit",
	Long: `Build the full catalog once and exit.

Walks the storage backend, parses every metadata file in the index tree,
and assigns content ids exactly as a running server would. The exit code
reflects success, so this works as a CI check for index changes.

Examples:
  # Validate with the default config location
  bananas-server validate

  # Validate a specific checkout
  BANANAS_SERVER_INDEX_LOCAL_FOLDER=/tmp/BaNaNaS bananas-server validate`,
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	application, err := newApplication(cfg, nil, nil)
	if err != nil {
		return err
	}

	start := time.Now()
	if err := application.Reload(context.Background()); err != nil {
		return fmt.Errorf("catalog validation failed: %w", err)
	}

	snapshot := application.Snapshot()

	table := output.NewTable("TYPE", "ACTIVE", "ARCHIVED")
	var totalActive, totalArchived int
	for _, contentType := range catalog.AllContentTypes() {
		count := snapshot.Count(contentType)
		table.Row(contentType.String(), strconv.Itoa(count.Active), strconv.Itoa(count.Archived))
		totalActive += count.Active
		totalArchived += count.Archived
	}
	table.Row("total", strconv.Itoa(totalActive), strconv.Itoa(totalArchived))

	fmt.Printf("Index:   %s\n", cfg.Index.Local.Folder)
	fmt.Printf("Storage: %s\n\n", cfg.Storage.Backend)
	table.Render(os.Stdout)
	fmt.Printf("\nValidated %d entries in %s\n", snapshot.Len(), time.Since(start).Round(time.Millisecond))

	return nil
}
