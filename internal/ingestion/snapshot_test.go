package ingestion

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/notegraph-go/internal/graph"
)

const sampleSnapshot = `{
  "notes": [
    {"file": "/notes/a.org", "title": "Alpha"},
    {"file": "/notes/b.org"},
    {"file": "/notes/c.org", "title": "Gamma"}
  ],
  "links": [
    {"from": "/notes/a.org", "to": "/notes/b.org", "type": "file"},
    {"from": "/notes/a.org", "to": "/notes/b.org", "type": "file"},
    {"from": "/notes/b.org", "to": "/notes/c.org"},
    {"from": "/notes/a.org", "to": "smith2020", "type": "cite"}
  ],
  "refs": [
    {"ref": "smith2020", "file": "/notes/c.org", "type": "cite"}
  ]
}`

func writeSnapshot(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "notes.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDecodeSnapshot(t *testing.T) {
	t.Parallel()

	t.Run("BuildsGraph", func(t *testing.T) {
		g, err := DecodeSnapshot(strings.NewReader(sampleSnapshot))
		require.NoError(t, err)

		assert.Equal(t, 3, g.NoteCount())
		assert.Equal(t, 3, g.LinkCount(), "duplicate links collapse")
		assert.Equal(t, 1, g.RefCount())

		assert.Equal(t, "Alpha", g.GetNote("/notes/a.org").Title)
		assert.Empty(t, g.GetNote("/notes/b.org").Title)

		owner, ok := g.ResolveRef("smith2020")
		assert.True(t, ok)
		assert.Equal(t, "/notes/c.org", owner)

		assert.Contains(t, g.Links(), graph.Link{From: "/notes/b.org", To: "/notes/c.org", Kind: graph.LinkFile},
			"untyped links default to file links")
	})

	t.Run("Rejects", func(t *testing.T) {
		for name, content := range map[string]string{
			"NotJSON":      `{"notes": [`,
			"UnknownField": `{"nodes": []}`,
			"NoteNoFile":   `{"notes": [{"title": "x"}]}`,
			"LinkNoTarget": `{"links": [{"from": "/a.org"}]}`,
			"RefNoOwner":   `{"refs": [{"ref": "k"}]}`,
		} {
			_, err := DecodeSnapshot(strings.NewReader(content))
			assert.Error(t, err, name)
		}
	})

	t.Run("Empty", func(t *testing.T) {
		g, err := DecodeSnapshot(strings.NewReader(`{}`))
		require.NoError(t, err)
		assert.Zero(t, g.NoteCount())
	})
}

func TestEncodeSnapshot_RoundTrip(t *testing.T) {
	t.Parallel()

	g, err := DecodeSnapshot(strings.NewReader(sampleSnapshot))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, EncodeSnapshot(&buf, g))

	again, err := DecodeSnapshot(&buf)
	require.NoError(t, err)
	assert.Equal(t, g.Notes(), again.Notes())
	assert.Equal(t, g.Links(), again.Links())
	assert.Equal(t, g.Refs(), again.Refs())
}

func TestLoadSnapshot(t *testing.T) {
	t.Parallel()

	path := writeSnapshot(t, t.TempDir(), sampleSnapshot)
	g, err := LoadSnapshot(path)
	require.NoError(t, err)
	assert.Equal(t, 3, g.NoteCount())

	_, err = LoadSnapshot(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	bad := writeSnapshot(t, t.TempDir(), `[]`)
	_, err = LoadSnapshot(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), bad)
}
