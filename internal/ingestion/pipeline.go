// Package ingestion loads note snapshots into the note store.
package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/Benny93/notegraph-go/internal/logging"
	"github.com/Benny93/notegraph-go/internal/storage"
)

// ImportResult summarizes an import run.
type ImportResult struct {
	Notes        int
	Links        int
	Refs         int
	DurationSecs float64
}

// ProgressCallback is called with phase name and progress (0.0-1.0).
type ProgressCallback func(phase string, progress float64)

// RunImport reads the snapshot at path and replaces the store contents
// with it. The store is left untouched if the snapshot cannot be read.
func RunImport(
	ctx context.Context,
	path string,
	store storage.StorageBackend,
	progress ProgressCallback,
) (*ImportResult, error) {
	start := time.Now()
	logger := logging.FromContext(ctx)

	report := func(phase string, p float64) {
		if progress != nil {
			progress(phase, p)
		}
	}

	report("Reading snapshot", 0.0)
	g, err := LoadSnapshot(path)
	if err != nil {
		return nil, err
	}
	report("Reading snapshot", 1.0)

	stats := g.Stats()
	logger.Debug("Snapshot read", "path", path, "notes", stats["notes"], "links", stats["links"], "refs", stats["refs"])

	report("Loading store", 0.0)
	if err := store.BulkLoad(ctx, g); err != nil {
		return nil, fmt.Errorf("loading store: %w", err)
	}
	report("Loading store", 1.0)

	return &ImportResult{
		Notes:        stats["notes"],
		Links:        stats["links"],
		Refs:         stats["refs"],
		DurationSecs: time.Since(start).Seconds(),
	}, nil
}
