package ingestion

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/notegraph-go/internal/graph"
	"github.com/Benny93/notegraph-go/internal/storage"
)

func TestRunImport(t *testing.T) {
	t.Parallel()

	t.Run("LoadsBadgerStore", func(t *testing.T) {
		store := storage.NewBadgerBackend()
		require.NoError(t, store.Initialize(filepath.Join(t.TempDir(), "badger"), false))
		defer store.Close()

		var phases []string
		progress := func(phase string, p float64) {
			if p == 1.0 {
				phases = append(phases, phase)
			}
		}

		path := writeSnapshot(t, t.TempDir(), sampleSnapshot)
		result, err := RunImport(t.Context(), path, store, progress)
		require.NoError(t, err)

		assert.Equal(t, 3, result.Notes)
		assert.Equal(t, 3, result.Links)
		assert.Equal(t, 1, result.Refs)
		assert.GreaterOrEqual(t, result.DurationSecs, 0.0)
		assert.Equal(t, []string{"Reading snapshot", "Loading store"}, phases)

		assert.Equal(t, 3, store.NoteCount())
		edges, err := store.QueryCiteEdges(t.Context(), graph.NewIDSet("/notes/a.org", "/notes/c.org"))
		require.NoError(t, err)
		assert.Equal(t, []graph.Edge{{Source: "/notes/c.org", Target: "/notes/a.org", Kind: graph.EdgeCitation}}, edges)
	})

	t.Run("BadSnapshotKeepsStore", func(t *testing.T) {
		store := storage.NewMemoryBackend()
		good := writeSnapshot(t, t.TempDir(), sampleSnapshot)
		_, err := RunImport(t.Context(), good, store, nil)
		require.NoError(t, err)

		bad := writeSnapshot(t, t.TempDir(), `{"notes": [{}]}`)
		_, err = RunImport(t.Context(), bad, store, nil)
		require.Error(t, err)
		assert.Equal(t, 3, store.NoteCount())
	})
}
