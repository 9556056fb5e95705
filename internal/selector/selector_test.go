package selector

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/notegraph-go/internal/errors"
	"github.com/Benny93/notegraph-go/internal/graph"
	"github.com/Benny93/notegraph-go/internal/storage"
)

// countingStore records how often the reachability query runs.
type countingStore struct {
	storage.NoteStore
	reachable int
	fail      error
}

func (c *countingStore) ReachableFrom(ctx context.Context, origin string, hops graph.Hops) (graph.IDSet, error) {
	c.reachable++
	if c.fail != nil {
		return nil, c.fail
	}
	return c.NoteStore.ReachableFrom(ctx, origin, hops)
}

func newStore(build func(g *graph.NoteGraph)) *storage.MemoryBackend {
	g := graph.NewNoteGraph()
	build(g)
	return storage.NewMemoryBackendFrom(g)
}

func ids(notes []graph.Note) []string {
	out := make([]string, 0, len(notes))
	for _, n := range notes {
		out = append(out, n.ID)
	}
	return out
}

func TestResolveExclusion(t *testing.T) {
	t.Parallel()

	t.Run("Nil", func(t *testing.T) {
		p, err := ResolveExclusion(nil)
		require.NoError(t, err)
		assert.False(t, p("/notes/anything.org"))
		assert.False(t, p(""))
	})

	t.Run("Substring", func(t *testing.T) {
		p, err := ResolveExclusion("draft")
		require.NoError(t, err)
		assert.True(t, p("/notes/draft-notes.org"))
		assert.False(t, p("/notes/final.org"))
		assert.False(t, p("/notes/DRAFT.org"), "matching is case-sensitive")
	})

	t.Run("EmptyPatternExcludesAll", func(t *testing.T) {
		p, err := ResolveExclusion("")
		require.NoError(t, err)
		assert.True(t, p("/notes/final.org"))
	})

	t.Run("List", func(t *testing.T) {
		p, err := ResolveExclusion([]string{"private", "journal"})
		require.NoError(t, err)
		assert.True(t, p("/notes/private/a.org"))
		assert.True(t, p("/notes/journal/2024.org"))
		assert.False(t, p("/notes/public.org"))
	})

	t.Run("EmptyList", func(t *testing.T) {
		p, err := ResolveExclusion([]string{})
		require.NoError(t, err)
		assert.False(t, p("/notes/a.org"))
	})

	t.Run("DecodedList", func(t *testing.T) {
		p, err := ResolveExclusion([]any{"private", "journal"})
		require.NoError(t, err)
		assert.True(t, p("/journal/x.org"))
	})

	t.Run("InvalidShapes", func(t *testing.T) {
		for _, rule := range []any{42, true, map[string]string{"a": "b"}, []any{"ok", 3}} {
			_, err := ResolveExclusion(rule)
			assert.True(t, errors.Is(err, errors.ErrCodeConfig), "rule %#v", rule)
		}
	})
}

func TestSelector_SelectAll(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := newStore(func(g *graph.NoteGraph) {
		g.AddNote(graph.Note{ID: "/notes/draft-notes.org", Title: "Draft"})
		g.AddNote(graph.Note{ID: "/notes/final.org", Title: "Final"})
		g.AddLink(graph.Link{From: "/notes/draft-notes.org", To: "/notes/final.org", Kind: graph.LinkFile})
	})

	exclude, err := ResolveExclusion("draft")
	require.NoError(t, err)

	sg, err := New(store).Fetch(ctx, SelectAll(exclude))
	require.NoError(t, err)

	assert.Equal(t, []string{"/notes/final.org"}, ids(sg.Nodes))
	assert.Empty(t, sg.Edges, "edges touching excluded notes are dropped")
	assert.Empty(t, sg.CiteEdges)
}

func TestSelector_SelectComponent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	// a - b - c - d chain plus an unrelated e.
	chain := func(g *graph.NoteGraph) {
		for _, id := range []string{"a", "b", "c", "d", "e"} {
			g.AddNote(graph.Note{ID: id})
		}
		g.AddLink(graph.Link{From: "a", To: "b", Kind: graph.LinkFile})
		g.AddLink(graph.Link{From: "c", To: "b", Kind: graph.LinkFile})
		g.AddLink(graph.Link{From: "c", To: "d", Kind: graph.LinkID})
	}

	t.Run("Unbounded", func(t *testing.T) {
		s := New(newStore(chain))
		q, err := s.SelectComponent(ctx, "a", graph.Unbounded())
		require.NoError(t, err)

		sg, err := s.Fetch(ctx, q)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c", "d"}, ids(sg.Nodes))
		assert.Len(t, sg.Edges, 3)
	})

	t.Run("ZeroHopsIsOriginOnly", func(t *testing.T) {
		s := New(newStore(chain))
		q, err := s.SelectComponent(ctx, "b", graph.MaxHops(0))
		require.NoError(t, err)

		sg, err := s.Fetch(ctx, q)
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, ids(sg.Nodes))
		assert.Empty(t, sg.Edges)
	})

	t.Run("BoundedFollowsBothDirections", func(t *testing.T) {
		s := New(newStore(chain))
		q, err := s.SelectComponent(ctx, "b", graph.MaxHops(1))
		require.NoError(t, err)

		sg, err := s.Fetch(ctx, q)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, ids(sg.Nodes))
	})

	t.Run("IsolatedOriginStillSelected", func(t *testing.T) {
		s := New(newStore(chain))
		q, err := s.SelectComponent(ctx, "e", graph.Unbounded())
		require.NoError(t, err)

		sg, err := s.Fetch(ctx, q)
		require.NoError(t, err)
		assert.Equal(t, []string{"e"}, ids(sg.Nodes))
	})

	t.Run("UnknownOriginFallsBackToItself", func(t *testing.T) {
		s := New(newStore(chain))
		q, err := s.SelectComponent(ctx, "zz", graph.Unbounded())
		require.NoError(t, err)
		assert.Contains(t, q.String(), "zz")

		sg, err := s.Fetch(ctx, q)
		require.NoError(t, err)
		assert.Empty(t, sg.Nodes, "an origin with no note row yields no node")
	})

	t.Run("EmptyOriginBeforeStoreQuery", func(t *testing.T) {
		store := &countingStore{NoteStore: newStore(chain)}
		_, err := New(store).SelectComponent(ctx, "", graph.Unbounded())

		assert.True(t, errors.Is(err, errors.ErrCodeEmptyOrigin))
		assert.Zero(t, store.reachable)
	})

	t.Run("StoreFailure", func(t *testing.T) {
		store := &countingStore{NoteStore: newStore(chain), fail: fmt.Errorf("disk gone")}
		_, err := New(store).SelectComponent(ctx, "a", graph.Unbounded())

		assert.True(t, errors.Is(err, errors.ErrCodeStore))
		assert.Equal(t, 1, store.reachable)
	})
}

func TestSelector_FetchEdges(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := newStore(func(g *graph.NoteGraph) {
		g.AddNote(graph.Note{ID: "/n/a.org", Title: "A"})
		g.AddNote(graph.Note{ID: "/n/b.org", Title: "B"})
		g.AddNote(graph.Note{ID: "/n/c.org", Title: "C"})
		g.AddLink(graph.Link{From: "/n/a.org", To: "/n/b.org", Kind: graph.LinkFile})
		g.AddLink(graph.Link{From: "/n/a.org", To: "/n/b.org", Kind: graph.LinkID})
		g.AddLink(graph.Link{From: "/n/a.org", To: "/n/a.org", Kind: graph.LinkFile})
		g.AddLink(graph.Link{From: "/n/b.org", To: "/n/outside.org", Kind: graph.LinkFile})
		g.AddLink(graph.Link{From: "/n/a.org", To: "key1", Kind: graph.LinkCite})
		g.AddRef(graph.Ref{Ref: "key1", File: "/n/c.org"})
	})

	sg, err := New(store).Fetch(ctx, SelectAll(nil))
	require.NoError(t, err)

	assert.Equal(t, []graph.Edge{
		{Source: "/n/a.org", Target: "/n/a.org", Kind: graph.EdgePlain},
		{Source: "/n/a.org", Target: "/n/b.org", Kind: graph.EdgePlain},
	}, sg.Edges, "self-loops are kept and parallel links collapse")
	assert.Equal(t, []graph.Edge{
		{Source: "/n/c.org", Target: "/n/a.org", Kind: graph.EdgeCitation},
	}, sg.CiteEdges)

	nodes := sg.IDs()
	for _, e := range append(sg.Edges, sg.CiteEdges...) {
		assert.True(t, nodes.Has(e.Source), "dangling source %s", e.Source)
		assert.True(t, nodes.Has(e.Target), "dangling target %s", e.Target)
	}
}
