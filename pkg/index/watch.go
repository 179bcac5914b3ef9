package index

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/openttd/bananas-server/internal/logger"
)

// watchDebounce coalesces a burst of filesystem events (a git pull
// touches hundreds of files) into one reload.
const watchDebounce = 2 * time.Second

// Reloader is what the watcher triggers. The content application
// satisfies it.
type Reloader interface {
	Reload(ctx context.Context) error
}

// Watch triggers a reload whenever the metadata tree under root changes
// on disk. It blocks until ctx is cancelled. Directories created while
// watching are registered too, so new entries appearing in a checkout
// keep triggering reloads.
func Watch(ctx context.Context, root string, reloader Reloader) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := addTree(watcher, root); err != nil {
		return err
	}

	logger.Info("Watching index tree for changes", "root", root)

	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := addTree(watcher, event.Name); err != nil {
						logger.Warn("Watching new directory failed", "path", event.Name, "error", err)
					}
				}
			}
			pending = time.After(watchDebounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Index watcher error", "error", err)

		case <-pending:
			pending = nil
			logger.Info("Index tree changed, reloading")
			if err := reloader.Reload(ctx); err != nil {
				logger.Error("Reload after index change failed", "error", err)
			}
		}
	}
}

// addTree registers root and every directory below it.
func addTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}
