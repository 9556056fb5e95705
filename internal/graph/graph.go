// Package graph provides the in-memory note graph for notegraph.
//
// NoteGraph is a map-backed graph of notes, links and refs with adjacency
// indexes in both directions, so that reachability walks are O(component)
// rather than O(graph). It backs the memory store and is the unit a store
// snapshot is decoded into before a bulk load.
package graph

import (
	"cmp"
	"slices"
	"sync"
)

type linkKey struct {
	from, to string
	kind     LinkKind
}

// NoteGraph is an in-memory directed graph of notes.
//
// Removing a note cascades to every link where the note is the source or the
// target, and to every ref it owns.
type NoteGraph struct {
	mu    sync.RWMutex
	notes map[string]*Note
	links map[linkKey]*Link
	refs  map[string]*Ref

	// Adjacency indexes, kept in sync by add/remove helpers.
	outgoing map[string]map[string]int
	incoming map[string]map[string]int
}

// NewNoteGraph creates a new empty note graph.
func NewNoteGraph() *NoteGraph {
	return &NoteGraph{
		notes:    make(map[string]*Note),
		links:    make(map[linkKey]*Link),
		refs:     make(map[string]*Ref),
		outgoing: make(map[string]map[string]int),
		incoming: make(map[string]map[string]int),
	}
}

// NoteCount returns the number of notes.
func (g *NoteGraph) NoteCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.notes)
}

// LinkCount returns the number of links.
func (g *NoteGraph) LinkCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.links)
}

// RefCount returns the number of refs.
func (g *NoteGraph) RefCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.refs)
}

// AddNote adds a note, replacing any existing note with the same ID.
func (g *NoteGraph) AddNote(n Note) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.notes[n.ID] = &n
}

// GetNote returns the note with the given ID, or nil if it does not exist.
func (g *NoteGraph) GetNote(id string) *Note {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.notes[id]
}

// RemoveNote removes a note and cascade-deletes its links and refs.
// Returns true if the note existed.
func (g *NoteGraph) RemoveNote(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.notes[id]; !ok {
		return false
	}
	delete(g.notes, id)

	for key := range g.links {
		if key.from == id || key.to == id {
			g.removeLinkLocked(key)
		}
	}
	for ref, r := range g.refs {
		if r.File == id {
			delete(g.refs, ref)
		}
	}
	return true
}

// AddLink adds a link. A link with the same (from, to, kind) is stored once.
func (g *NoteGraph) AddLink(l Link) {
	g.mu.Lock()
	defer g.mu.Unlock()

	key := linkKey{from: l.From, to: l.To, kind: l.Kind}
	if _, ok := g.links[key]; ok {
		return
	}
	g.links[key] = &l

	if g.outgoing[l.From] == nil {
		g.outgoing[l.From] = make(map[string]int)
	}
	g.outgoing[l.From][l.To]++

	if g.incoming[l.To] == nil {
		g.incoming[l.To] = make(map[string]int)
	}
	g.incoming[l.To][l.From]++
}

// AddRef records that a note owns a citation key. A later ref with the same
// key replaces the earlier owner.
func (g *NoteGraph) AddRef(r Ref) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refs[r.Ref] = &r
}

// ResolveRef returns the note that owns the citation key.
func (g *NoteGraph) ResolveRef(ref string) (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	r, ok := g.refs[ref]
	if !ok {
		return "", false
	}
	return r.File, true
}

// Notes returns all notes ordered by ID.
func (g *NoteGraph) Notes() []Note {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]Note, 0, len(g.notes))
	for _, n := range g.notes {
		out = append(out, *n)
	}
	slices.SortFunc(out, func(a, b Note) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// Links returns all links ordered by (from, to, kind).
func (g *NoteGraph) Links() []Link {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]Link, 0, len(g.links))
	for _, l := range g.links {
		out = append(out, *l)
	}
	slices.SortFunc(out, compareLinks)
	return out
}

// Refs returns all refs ordered by key.
func (g *NoteGraph) Refs() []Ref {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]Ref, 0, len(g.refs))
	for _, r := range g.refs {
		out = append(out, *r)
	}
	slices.SortFunc(out, func(a, b Ref) int { return cmp.Compare(a.Ref, b.Ref) })
	return out
}

// Neighbors returns the IDs linked to or from id, ordered lexically.
func (g *NoteGraph) Neighbors(id string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.neighborsLocked(id)
}

// Reachable walks links in either direction from origin and returns every
// identifier within the hop limit, origin included. An origin that is neither
// a note nor an endpoint of any link yields an empty set.
func (g *NoteGraph) Reachable(origin string, hops Hops) IDSet {
	g.mu.RLock()
	defer g.mu.RUnlock()

	visited := make(IDSet)
	_, isNote := g.notes[origin]
	if !isNote && len(g.outgoing[origin]) == 0 && len(g.incoming[origin]) == 0 {
		return visited
	}

	type item struct {
		id    string
		depth int
	}
	visited.Add(origin)
	queue := []item{{id: origin}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if !hops.Allows(cur.depth) {
			continue
		}
		for _, next := range g.neighborsLocked(cur.id) {
			if visited.Has(next) {
				continue
			}
			visited.Add(next)
			queue = append(queue, item{id: next, depth: cur.depth + 1})
		}
	}
	return visited
}

// Stats returns a summary of graph size.
func (g *NoteGraph) Stats() map[string]int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return map[string]int{
		"notes": len(g.notes),
		"links": len(g.links),
		"refs":  len(g.refs),
	}
}

func (g *NoteGraph) neighborsLocked(id string) []string {
	seen := make(IDSet)
	for to := range g.outgoing[id] {
		seen.Add(to)
	}
	for from := range g.incoming[id] {
		seen.Add(from)
	}
	return seen.Sorted()
}

// removeLinkLocked drops a link and its adjacency entries.
// Must be called with the write lock held.
func (g *NoteGraph) removeLinkLocked(key linkKey) {
	delete(g.links, key)

	if out := g.outgoing[key.from]; out != nil {
		if out[key.to]--; out[key.to] <= 0 {
			delete(out, key.to)
		}
		if len(out) == 0 {
			delete(g.outgoing, key.from)
		}
	}
	if in := g.incoming[key.to]; in != nil {
		if in[key.from]--; in[key.from] <= 0 {
			delete(in, key.from)
		}
		if len(in) == 0 {
			delete(g.incoming, key.to)
		}
	}
}

func compareLinks(a, b Link) int {
	if c := cmp.Compare(a.From, b.From); c != 0 {
		return c
	}
	if c := cmp.Compare(a.To, b.To); c != 0 {
		return c
	}
	return cmp.Compare(a.Kind, b.Kind)
}
