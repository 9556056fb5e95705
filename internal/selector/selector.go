// Package selector turns a selection criterion and an exclusion rule into a
// consistent (nodes, edges, cite edges) snapshot of the note store.
//
// A render is one call to Fetch: the selected identifier set is computed once
// from the node rows and reused to restrict both edge queries, so no edge in
// the result has an endpoint outside the node set.
package selector

import (
	"context"
	"fmt"
	"strings"

	"github.com/Benny93/notegraph-go/internal/errors"
	"github.com/Benny93/notegraph-go/internal/graph"
	"github.com/Benny93/notegraph-go/internal/logging"
	"github.com/Benny93/notegraph-go/internal/storage"
)

// Predicate reports whether a note identifier is excluded.
type Predicate func(id string) bool

// ResolveExclusion builds the exclusion predicate for a rule.
//
// The rule is nil (nothing excluded), a single substring pattern, or a list
// of patterns matched with logical OR. Lists may arrive as []string or, when
// decoded from a config file, as []any holding strings. Any other shape is a
// ConfigError.
func ResolveExclusion(rule any) (Predicate, error) {
	switch r := rule.(type) {
	case nil:
		return func(string) bool { return false }, nil
	case string:
		return func(id string) bool { return strings.Contains(id, r) }, nil
	case []string:
		return anyOf(r), nil
	case []any:
		patterns := make([]string, 0, len(r))
		for i, v := range r {
			s, ok := v.(string)
			if !ok {
				return nil, errors.Config("exclude pattern %d must be a string, got %T", i, v)
			}
			patterns = append(patterns, s)
		}
		return anyOf(patterns), nil
	default:
		return nil, errors.Config("exclude must be a string or a list of strings, got %T", rule)
	}
}

func anyOf(patterns []string) Predicate {
	return func(id string) bool {
		for _, p := range patterns {
			if strings.Contains(id, p) {
				return true
			}
		}
		return false
	}
}

// NodeQuery is a resolved node selection, ready for Fetch.
type NodeQuery struct {
	sel  storage.Selection
	desc string
}

// String describes the query for logs.
func (q NodeQuery) String() string { return q.desc }

// SelectAll selects every note whose identifier the predicate does not match.
func SelectAll(exclude Predicate) NodeQuery {
	return NodeQuery{
		sel:  storage.Selection{Exclude: exclude},
		desc: "all notes",
	}
}

// Selector runs node queries against a note store.
type Selector struct {
	store storage.NoteStore
}

// New creates a selector over the given store.
func New(store storage.NoteStore) *Selector {
	return &Selector{store: store}
}

// SelectComponent selects the notes reachable from origin within hops, in
// either link direction. When the store reports nothing reachable, the
// origin alone is selected so it stays visible even when isolated.
//
// An empty origin is an EmptyOrigin error, raised before the store is queried.
func (s *Selector) SelectComponent(ctx context.Context, origin string, hops graph.Hops) (NodeQuery, error) {
	if origin == "" {
		return NodeQuery{}, errors.EmptyOrigin()
	}

	ids, err := s.store.ReachableFrom(ctx, origin, hops)
	if err != nil {
		return NodeQuery{}, errors.Wrap(errors.ErrCodeStore, err, "reachability from %s", origin)
	}
	if len(ids) == 0 {
		ids = graph.NewIDSet(origin)
	}

	logging.FromContext(ctx).Debug("Resolved component", "origin", origin, "hops", hops.String(), "size", len(ids))
	return NodeQuery{
		sel:  storage.Selection{IDs: ids},
		desc: fmt.Sprintf("component of %s (hops: %s)", origin, hops),
	}, nil
}

// Fetch executes the node query and derives both edge sets from the
// selected identifiers.
func (s *Selector) Fetch(ctx context.Context, q NodeQuery) (*graph.Subgraph, error) {
	logger := logging.FromContext(ctx)
	progress := logging.NewProgress(ctx)

	nodes, err := s.store.QueryNodes(ctx, q.sel)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "querying %s", q)
	}

	sg := &graph.Subgraph{Nodes: nodes}
	selected := sg.IDs()

	sg.Edges, err = s.store.QueryEdges(ctx, selected)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "querying edges")
	}

	sg.CiteEdges, err = s.store.QueryCiteEdges(ctx, selected)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "querying citation edges")
	}

	logger.Debug("Fetched subgraph", "query", q.String(),
		"nodes", len(sg.Nodes), "edges", len(sg.Edges), "cites", len(sg.CiteEdges))
	progress.Done(fmt.Sprintf("Fetched %d notes", len(sg.Nodes)))
	return sg, nil
}
