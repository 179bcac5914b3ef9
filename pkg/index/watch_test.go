package index

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countingReloader struct {
	mu    sync.Mutex
	count int
}

func (r *countingReloader) Reload(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count++
	return nil
}

func (r *countingReloader) reloads() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

func TestWatchTriggersDebouncedReload(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "newgrf"), 0o755))

	reloader := &countingReloader{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- Watch(ctx, root, reloader) }()

	// Give the watcher a moment to register the tree.
	time.Sleep(100 * time.Millisecond)

	// A burst of writes counts as one change.
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(
			filepath.Join(root, "newgrf", "global.yaml"), []byte("name: x\n"), 0o600))
	}

	require.Eventually(t, func() bool {
		return reloader.reloads() == 1
	}, 10*time.Second, 50*time.Millisecond)

	// A quiet tree triggers nothing further.
	time.Sleep(watchDebounce + 500*time.Millisecond)
	require.Equal(t, 1, reloader.reloads())

	// Content appearing in a fresh directory is seen too.
	require.NoError(t, os.MkdirAll(filepath.Join(root, "scenario", "cafecafe"), 0o755))

	require.Eventually(t, func() bool {
		return reloader.reloads() == 2
	}, 10*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after context cancellation")
	}
}

func TestWatchMissingRoot(t *testing.T) {
	err := Watch(context.Background(), filepath.Join(t.TempDir(), "missing"), &countingReloader{})
	require.Error(t, err)
}
