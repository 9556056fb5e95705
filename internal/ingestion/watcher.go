package ingestion

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Benny93/notegraph-go/internal/logging"
	"github.com/Benny93/notegraph-go/internal/storage"
)

// watchDebounce is the quiet period after the last change before a re-import.
var watchDebounce = 500 * time.Millisecond

// ReloadFunc is called after each successful re-import.
type ReloadFunc func(ctx context.Context, result *ImportResult) error

// WatchSnapshot monitors the snapshot file and re-imports it into the store
// whenever it changes, then calls onReload. Bursts of events are batched.
// Blocks until the context is cancelled.
//
// The parent directory is watched rather than the file, so snapshots that
// are replaced by rename keep being picked up.
func WatchSnapshot(ctx context.Context, path string, store storage.StorageBackend, onReload ReloadFunc) error {
	logger := logging.FromContext(ctx)

	path, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving snapshot path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("setting up watcher: %w", err)
	}

	batchTimer := time.NewTimer(watchDebounce)
	batchTimer.Stop() // Don't start yet
	pending := false

	logger.Info("Watching snapshot for changes (Ctrl+C to stop)", "path", path)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path || !event.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			pending = true
			batchTimer.Reset(watchDebounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watch error", "err", err)

		case <-batchTimer.C:
			if !pending {
				continue
			}
			pending = false

			result, err := RunImport(ctx, path, store, nil)
			if err != nil {
				logger.Error("Re-import failed", "err", err)
				continue
			}
			logger.Info("Re-imported snapshot", "notes", result.Notes, "links", result.Links)

			if onReload != nil {
				if err := onReload(ctx, result); err != nil {
					logger.Error("Reload handler failed", "err", err)
				}
			}
		}
	}
}
