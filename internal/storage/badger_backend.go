// Package storage provides the storage backend for notegraph.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/Benny93/notegraph-go/internal/graph"
)

// Key prefixes for different data types. Badger iterates keys in byte order,
// which gives every query a stable default ordering.
const (
	prefixNote     = "n:"     // note data
	prefixLink     = "l:"     // link data, keyed from/to/kind
	prefixRef      = "r:"     // ref data, keyed by citation key
	prefixIncoming = "i:in:"  // incoming adjacency: to/from
	prefixOutgoing = "i:out:" // outgoing adjacency: from/to
)

// sep joins the parts of composite keys. Note paths never contain NUL.
const sep = "\x00"

// BadgerBackend is a BadgerDB-backed note store.
type BadgerBackend struct {
	db          *badger.DB
	initialized bool
	mu          sync.RWMutex
	noteCount   int
	linkCount   int
}

// NewBadgerBackend creates a new BadgerDB backend.
func NewBadgerBackend() *BadgerBackend {
	return &BadgerBackend{}
}

// Initialize opens or creates the BadgerDB database at the given path.
func (b *BadgerBackend) Initialize(path string, readOnly bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	opts := badger.DefaultOptions(path).
		WithNumCompactors(2).
		WithNumMemtables(5).
		WithLoggingLevel(badger.ERROR) // Suppress INFO/WARNING logs

	if readOnly {
		opts = opts.WithReadOnly(true)
	}

	var err error
	b.db, err = badger.Open(opts)
	if err != nil {
		return fmt.Errorf("opening badger DB: %w", err)
	}

	b.initialized = true
	return b.recount()
}

// recount refreshes the cached note and link counts from the database.
func (b *BadgerBackend) recount() error {
	return b.db.View(func(txn *badger.Txn) error {
		b.noteCount = countPrefix(txn, prefixNote)
		b.linkCount = countPrefix(txn, prefixLink)
		return nil
	})
}

func countPrefix(txn *badger.Txn, prefix string) int {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	n := 0
	for it.Rewind(); it.Valid(); it.Next() {
		n++
	}
	return n
}

// Close releases all resources held by the backend.
func (b *BadgerBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db == nil {
		return nil
	}

	err := b.db.Close()
	b.db = nil
	b.initialized = false
	return err
}

// BulkLoad replaces the entire store with the contents of the graph.
func (b *BadgerBackend) BulkLoad(ctx context.Context, g *graph.NoteGraph) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.db.DropAll(); err != nil {
		return fmt.Errorf("clearing store: %w", err)
	}

	wb := b.db.NewWriteBatch()
	defer wb.Cancel()

	for _, n := range g.Notes() {
		if err := setJSON(wb, noteKey(n.ID), n); err != nil {
			return fmt.Errorf("setting note: %w", err)
		}
		if err := indexTitle(wb, n); err != nil {
			return fmt.Errorf("indexing title: %w", err)
		}
	}

	for _, l := range g.Links() {
		if err := setJSON(wb, linkKey(l), l); err != nil {
			return fmt.Errorf("setting link: %w", err)
		}
		if err := indexLink(wb, l); err != nil {
			return err
		}
	}

	for _, r := range g.Refs() {
		if err := setJSON(wb, refKey(r.Ref), r); err != nil {
			return fmt.Errorf("setting ref: %w", err)
		}
	}

	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flushing batch: %w", err)
	}

	return b.recount()
}

func setJSON(wb *badger.WriteBatch, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return wb.Set(key, data)
}

// indexLink writes the adjacency entries for a link in both directions.
func indexLink(wb *badger.WriteBatch, l graph.Link) error {
	if err := wb.Set(outKey(l.From, l.To), nil); err != nil {
		return fmt.Errorf("setting outgoing index: %w", err)
	}
	if err := wb.Set(inKey(l.To, l.From), nil); err != nil {
		return fmt.Errorf("setting incoming index: %w", err)
	}
	return nil
}

// GetNote returns a single note by identifier, or nil if not found.
func (b *BadgerBackend) GetNote(ctx context.Context, id string) (*graph.Note, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var note *graph.Note
	err := b.db.View(func(txn *badger.Txn) error {
		var err error
		note, err = getNote(txn, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("getting note: %w", err)
	}
	return note, nil
}

func getNote(txn *badger.Txn, id string) (*graph.Note, error) {
	item, err := txn.Get(noteKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	note := &graph.Note{}
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, note)
	}); err != nil {
		return nil, err
	}
	return note, nil
}

// QueryNodes returns the selected notes in key order.
func (b *BadgerBackend) QueryNodes(ctx context.Context, sel Selection) ([]graph.Note, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var notes []graph.Note
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixNote)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			item := it.Item()
			id := strings.TrimPrefix(string(item.Key()), prefixNote)
			if !sel.Includes(id) {
				continue
			}

			var n graph.Note
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &n)
			}); err != nil {
				return fmt.Errorf("unmarshaling note %s: %w", id, err)
			}
			notes = append(notes, n)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("querying notes: %w", err)
	}
	return notes, nil
}

// QueryEdges returns distinct plain edges between the given notes.
func (b *BadgerBackend) QueryEdges(ctx context.Context, ids graph.IDSet) ([]graph.Edge, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	links, err := b.links(ctx)
	if err != nil {
		return nil, err
	}
	return plainEdges(links, ids), nil
}

// QueryCiteEdges returns distinct citation edges between the given notes.
func (b *BadgerBackend) QueryCiteEdges(ctx context.Context, ids graph.IDSet) ([]graph.Edge, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	links, err := b.links(ctx)
	if err != nil {
		return nil, err
	}

	var edges []graph.Edge
	err = b.db.View(func(txn *badger.Txn) error {
		var resolveErr error
		resolve := func(ref string) (string, bool) {
			owner, ok, err := resolveRef(txn, ref)
			if err != nil && resolveErr == nil {
				resolveErr = err
			}
			return owner, ok
		}
		edges = citeEdges(links, resolve, ids)
		return resolveErr
	})
	if err != nil {
		return nil, fmt.Errorf("resolving refs: %w", err)
	}
	return edges, nil
}

func resolveRef(txn *badger.Txn, ref string) (string, bool, error) {
	item, err := txn.Get(refKey(ref))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	var r graph.Ref
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &r)
	}); err != nil {
		return "", false, err
	}
	return r.File, true, nil
}

// links reads every link in key order. Caller must hold the read lock.
func (b *BadgerBackend) links(ctx context.Context) ([]graph.Link, error) {
	var links []graph.Link
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixLink)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var l graph.Link
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &l)
			}); err != nil {
				return fmt.Errorf("unmarshaling link: %w", err)
			}
			links = append(links, l)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading links: %w", err)
	}
	return links, nil
}

// ReachableFrom performs a BFS over the adjacency indexes in both directions.
func (b *BadgerBackend) ReachableFrom(ctx context.Context, origin string, hops graph.Hops) (graph.IDSet, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	visited := make(graph.IDSet)
	err := b.db.View(func(txn *badger.Txn) error {
		known, err := b.isKnown(txn, origin)
		if err != nil || !known {
			return err
		}

		type traversalItem struct {
			id    string
			depth int
		}

		visited.Add(origin)
		queue := []traversalItem{{id: origin}}

		for len(queue) > 0 {
			if err := ctx.Err(); err != nil {
				return err
			}

			current := queue[0]
			queue = queue[1:]

			if !hops.Allows(current.depth) {
				continue
			}

			for _, next := range neighbors(txn, current.id) {
				if visited.Has(next) {
					continue
				}
				visited.Add(next)
				queue = append(queue, traversalItem{id: next, depth: current.depth + 1})
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking links from %s: %w", origin, err)
	}
	return visited, nil
}

// isKnown reports whether id is a stored note or the endpoint of any link.
func (b *BadgerBackend) isKnown(txn *badger.Txn, id string) (bool, error) {
	_, err := txn.Get(noteKey(id))
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, badger.ErrKeyNotFound) {
		return false, err
	}
	return len(neighbors(txn, id)) > 0, nil
}

// neighbors lists the identifiers linked to or from id.
func neighbors(txn *badger.Txn, id string) []string {
	seen := make(graph.IDSet)
	for _, prefix := range []string{prefixOutgoing, prefixIncoming} {
		p := []byte(prefix + id + sep)

		opts := badger.DefaultIteratorOptions
		opts.Prefix = p
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		for it.Rewind(); it.Valid(); it.Next() {
			seen.Add(string(bytes.TrimPrefix(it.Item().Key(), p)))
		}
		it.Close()
	}
	return seen.Sorted()
}

func noteKey(id string) []byte {
	return []byte(prefixNote + id)
}

func linkKey(l graph.Link) []byte {
	return []byte(prefixLink + l.From + sep + l.To + sep + string(l.Kind))
}

func refKey(ref string) []byte {
	return []byte(prefixRef + ref)
}

func outKey(from, to string) []byte {
	return []byte(prefixOutgoing + from + sep + to)
}

func inKey(to, from string) []byte {
	return []byte(prefixIncoming + to + sep + from)
}

// NoteCount returns the note count.
func (b *BadgerBackend) NoteCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.noteCount
}

// LinkCount returns the link count.
func (b *BadgerBackend) LinkCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.linkCount
}

var _ StorageBackend = (*BadgerBackend)(nil)
