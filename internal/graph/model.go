// Package graph provides the note graph data model for notegraph.
//
// It defines notes (files with an optional title), the directed links between
// them, bibliographic refs owned by notes, and the edge/subgraph types handed
// from the selector to the serializer.
package graph

import (
	"slices"
	"strconv"
)

// LinkKind is the kind tag of a stored link.
type LinkKind string

const (
	LinkFile LinkKind = "file"
	LinkID   LinkKind = "id"
	LinkCite LinkKind = "cite"
)

// EdgeKind distinguishes plain edges from citation edges in a rendered graph.
type EdgeKind string

const (
	EdgePlain    EdgeKind = "plain"
	EdgeCitation EdgeKind = "citation"
)

// Note is a file-like unit identified by its canonical path.
type Note struct {
	// ID is the canonical file path. Unique within a store.
	ID string `json:"file"`

	// Title is the display title. Empty means the note has no title.
	Title string `json:"title,omitempty"`
}

// Link is a directed relation from one note to a target.
// For cite links the target is a citation key, resolved through refs.
type Link struct {
	From string   `json:"from"`
	To   string   `json:"to"`
	Kind LinkKind `json:"type"`
}

// Ref is a bibliographic reference owned by a note.
type Ref struct {
	Ref  string `json:"ref"`
	File string `json:"file"`
	Kind string `json:"type,omitempty"`
}

// Edge is an ordered (source, target) pair in a rendered graph.
type Edge struct {
	Source string
	Target string
	Kind   EdgeKind
}

// Subgraph is the selector's output: nodes in store order and the edges
// restricted to them. Treat it as an immutable snapshot once fetched.
type Subgraph struct {
	Nodes     []Note
	Edges     []Edge
	CiteEdges []Edge
}

// IDs returns the set of node identifiers in the subgraph.
func (s *Subgraph) IDs() IDSet {
	ids := make(IDSet, len(s.Nodes))
	for _, n := range s.Nodes {
		ids.Add(n.ID)
	}
	return ids
}

// IDSet is a set of note identifiers.
type IDSet map[string]struct{}

// NewIDSet builds a set from the given identifiers.
func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts id into the set.
func (s IDSet) Add(id string) { s[id] = struct{}{} }

// Has reports whether id is in the set.
func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the members in lexical order.
func (s IDSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Hops is a traversal limit with three states: unbounded (full connected
// component), zero (origin only) and a positive bound. The zero value is
// unbounded.
type Hops struct {
	n       int
	bounded bool
}

// Unbounded returns a limit that walks the whole connected component.
func Unbounded() Hops { return Hops{} }

// MaxHops returns a limit of n hops. A negative n is treated as unbounded.
func MaxHops(n int) Hops {
	if n < 0 {
		return Hops{}
	}
	return Hops{n: n, bounded: true}
}

// Limit returns the bound and whether one is set.
func (h Hops) Limit() (int, bool) { return h.n, h.bounded }

// Allows reports whether a node at the given depth may be expanded further.
func (h Hops) Allows(depth int) bool { return !h.bounded || depth < h.n }

// String renders the limit for logs.
func (h Hops) String() string {
	if !h.bounded {
		return "unbounded"
	}
	return strconv.Itoa(h.n)
}
