// Package storage provides the storage backend for notegraph.
package storage

import (
	"context"
	"sync"

	"github.com/Benny93/notegraph-go/internal/graph"
)

// MemoryBackend is an in-memory implementation of StorageBackend for tests
// and for serving a snapshot without a database.
type MemoryBackend struct {
	mu      sync.RWMutex
	g       *graph.NoteGraph
	indexed bool
}

// NewMemoryBackend creates a new in-memory storage backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{g: graph.NewNoteGraph()}
}

// NewMemoryBackendFrom creates a memory backend serving g.
func NewMemoryBackendFrom(g *graph.NoteGraph) *MemoryBackend {
	return &MemoryBackend{g: g, indexed: true}
}

// Initialize implements StorageBackend.
func (m *MemoryBackend) Initialize(path string, readOnly bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.indexed = true
	return nil
}

// Close implements StorageBackend.
func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.g = graph.NewNoteGraph()
	return nil
}

// BulkLoad implements StorageBackend.
func (m *MemoryBackend) BulkLoad(ctx context.Context, g *graph.NoteGraph) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.g = g
	m.indexed = true
	return nil
}

// GetNote implements StorageBackend.
func (m *MemoryBackend) GetNote(ctx context.Context, id string) (*graph.Note, error) {
	return m.graph().GetNote(id), nil
}

// QueryNodes implements NoteStore.
func (m *MemoryBackend) QueryNodes(ctx context.Context, sel Selection) ([]graph.Note, error) {
	var out []graph.Note
	for _, n := range m.graph().Notes() {
		if sel.Includes(n.ID) {
			out = append(out, n)
		}
	}
	return out, nil
}

// QueryEdges implements NoteStore.
func (m *MemoryBackend) QueryEdges(ctx context.Context, ids graph.IDSet) ([]graph.Edge, error) {
	return plainEdges(m.graph().Links(), ids), nil
}

// QueryCiteEdges implements NoteStore.
func (m *MemoryBackend) QueryCiteEdges(ctx context.Context, ids graph.IDSet) ([]graph.Edge, error) {
	g := m.graph()
	return citeEdges(g.Links(), g.ResolveRef, ids), nil
}

// ReachableFrom implements NoteStore.
func (m *MemoryBackend) ReachableFrom(ctx context.Context, origin string, hops graph.Hops) (graph.IDSet, error) {
	return m.graph().Reachable(origin, hops), nil
}

// IsIndexed returns true if the backend has been initialized or loaded.
func (m *MemoryBackend) IsIndexed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.indexed
}

// NoteCount returns the number of stored notes.
func (m *MemoryBackend) NoteCount() int {
	return m.graph().NoteCount()
}

// LinkCount returns the number of stored links.
func (m *MemoryBackend) LinkCount() int {
	return m.graph().LinkCount()
}

func (m *MemoryBackend) graph() *graph.NoteGraph {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.g
}

var _ StorageBackend = (*MemoryBackend)(nil)
