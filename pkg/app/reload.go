package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/openttd/bananas-server/internal/logger"
	"github.com/openttd/bananas-server/pkg/catalog"
	"github.com/openttd/bananas-server/pkg/index"
)

// Reload rebuilds the catalog snapshot from storage and the index tree
// and swaps it in atomically. Requests in flight keep the snapshot they
// loaded; a failed rebuild leaves the previous snapshot live.
//
// Reloads serialize among themselves. A second caller blocks until the
// running pass finishes, then runs its own, so a burst of triggers
// settles into at most one queued rebuild instead of a pile-up.
func (a *Application) Reload(ctx context.Context) error {
	select {
	case a.reloadSem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-a.reloadSem }()

	start := time.Now()
	log := logger.With("job_id", uuid.NewString())
	log.Info("Reloading catalog")

	a.storage.ClearCache()

	snapshot, err := a.buildSnapshot(ctx)
	if a.catalogMetrics != nil {
		a.catalogMetrics.RecordReload(time.Since(start), err)
	}
	if err != nil {
		log.Error("Catalog reload failed, previous snapshot stays live",
			"error", err,
			"duration_ms", logger.Duration(start))
		return err
	}

	a.snapshot.Store(snapshot)

	if a.catalogMetrics != nil {
		for _, t := range catalog.AllContentTypes() {
			count := snapshot.Count(t)
			a.catalogMetrics.SetEntries(t.Folder(), count.Active, count.Archived)
		}
	}

	log.Info("Catalog reloaded",
		"entries", snapshot.Len(),
		"duration_ms", logger.Duration(start))
	return nil
}

// buildSnapshot runs the rebuild pipeline against fresh storage and
// index state. Nothing touches the live snapshot until every step has
// succeeded.
func (a *Application) buildSnapshot(ctx context.Context) (*catalog.Snapshot, error) {
	mapping, err := index.BuildMD5SumMapping(ctx, a.storage)
	if err != nil {
		return nil, fmt.Errorf("scanning storage: %w", err)
	}

	entries, err := a.loader.Load(ctx, mapping)
	if err != nil {
		return nil, fmt.Errorf("loading index: %w", err)
	}

	return catalog.NewSnapshot(entries)
}
