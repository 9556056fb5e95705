// Package storage provides the note store for notegraph.
//
// It defines the NoteStore contract the selector queries, the StorageBackend
// lifecycle that persistent implementations add on top, and the edge
// derivation rules shared by every backend.
package storage

import (
	"context"

	"github.com/Benny93/notegraph-go/internal/graph"
)

// Selection restricts a node query.
type Selection struct {
	// IDs limits the query to these identifiers. Nil selects every note.
	IDs graph.IDSet

	// Exclude drops notes whose identifier it matches. Nil excludes nothing.
	Exclude func(id string) bool
}

// Includes reports whether a note with the given identifier is selected.
func (s Selection) Includes(id string) bool {
	if s.IDs != nil && !s.IDs.Has(id) {
		return false
	}
	return s.Exclude == nil || !s.Exclude(id)
}

// NoteStore is the query surface the selector consumes.
//
// All sequences are returned in the store's default order, which is stable
// for an unchanged store.
type NoteStore interface {
	// QueryNodes returns the selected notes, without duplicate identifiers.
	QueryNodes(ctx context.Context, sel Selection) ([]graph.Note, error)

	// QueryEdges returns distinct (source, target) pairs of links whose
	// endpoints are both in ids.
	QueryEdges(ctx context.Context, ids graph.IDSet) ([]graph.Edge, error)

	// QueryCiteEdges returns distinct (owner, citing note) pairs for cite
	// links whose key resolves to a ref owned by a note in ids, and whose
	// source is in ids.
	QueryCiteEdges(ctx context.Context, ids graph.IDSet) ([]graph.Edge, error)

	// ReachableFrom returns the identifiers reachable from origin through
	// links in either direction, within the hop limit, origin included.
	// Unknown origins yield an empty set.
	ReachableFrom(ctx context.Context, origin string, hops graph.Hops) (graph.IDSet, error)
}

// StorageBackend is a NoteStore with a lifecycle.
//
// Implementations must be safe for concurrent readers.
type StorageBackend interface {
	NoteStore
	Searcher

	// Initialize opens or creates the storage backend at the given path.
	// If readOnly is true, the backend is opened in read-only mode.
	Initialize(path string, readOnly bool) error

	// Close releases all resources held by the backend.
	Close() error

	// BulkLoad replaces the entire store with the contents of the graph.
	BulkLoad(ctx context.Context, g *graph.NoteGraph) error

	// GetNote returns a single note by identifier, or nil if not found.
	GetNote(ctx context.Context, id string) (*graph.Note, error)

	// NoteCount returns the number of stored notes.
	NoteCount() int

	// LinkCount returns the number of stored links.
	LinkCount() int
}

// plainEdges keeps the links whose endpoints are both selected, collapsing
// repeated (source, target) pairs to their first occurrence.
func plainEdges(links []graph.Link, ids graph.IDSet) []graph.Edge {
	type pair struct{ from, to string }
	seen := make(map[pair]bool)
	var edges []graph.Edge

	for _, l := range links {
		if !ids.Has(l.From) || !ids.Has(l.To) {
			continue
		}
		p := pair{l.From, l.To}
		if seen[p] {
			continue
		}
		seen[p] = true
		edges = append(edges, graph.Edge{Source: l.From, Target: l.To, Kind: graph.EdgePlain})
	}
	return edges
}

// citeEdges joins cite links against refs: a link from X to key K, where K
// is owned by note Y, yields the edge Y -> X.
func citeEdges(links []graph.Link, resolve func(ref string) (string, bool), ids graph.IDSet) []graph.Edge {
	type pair struct{ owner, from string }
	seen := make(map[pair]bool)
	var edges []graph.Edge

	for _, l := range links {
		if l.Kind != graph.LinkCite || !ids.Has(l.From) {
			continue
		}
		owner, ok := resolve(l.To)
		if !ok || !ids.Has(owner) {
			continue
		}
		p := pair{owner, l.From}
		if seen[p] {
			continue
		}
		seen[p] = true
		edges = append(edges, graph.Edge{Source: owner, Target: l.From, Kind: graph.EdgeCitation})
	}
	return edges
}
