package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// chain builds a -> b -> c -> d plus an isolated note e.
func chain() *NoteGraph {
	g := NewNoteGraph()
	for _, id := range []string{"a.org", "b.org", "c.org", "d.org", "e.org"} {
		g.AddNote(Note{ID: id})
	}
	g.AddLink(Link{From: "a.org", To: "b.org", Kind: LinkFile})
	g.AddLink(Link{From: "b.org", To: "c.org", Kind: LinkFile})
	g.AddLink(Link{From: "d.org", To: "c.org", Kind: LinkFile})
	return g
}

func TestNewNoteGraph(t *testing.T) {
	t.Parallel()

	g := NewNoteGraph()

	assert.NotNil(t, g)
	assert.Equal(t, 0, g.NoteCount())
	assert.Equal(t, 0, g.LinkCount())
	assert.Equal(t, 0, g.RefCount())
}

func TestNoteGraph_AddNote(t *testing.T) {
	t.Parallel()

	t.Run("ReplaceExisting", func(t *testing.T) {
		t.Parallel()
		g := NewNoteGraph()

		g.AddNote(Note{ID: "a.org", Title: "Old"})
		g.AddNote(Note{ID: "a.org", Title: "New"})

		assert.Equal(t, 1, g.NoteCount())
		assert.Equal(t, "New", g.GetNote("a.org").Title)
	})

	t.Run("Missing", func(t *testing.T) {
		t.Parallel()
		assert.Nil(t, NewNoteGraph().GetNote("nope.org"))
	})
}

func TestNoteGraph_AddLink(t *testing.T) {
	t.Parallel()

	g := NewNoteGraph()
	g.AddLink(Link{From: "a.org", To: "b.org", Kind: LinkFile})
	g.AddLink(Link{From: "a.org", To: "b.org", Kind: LinkFile})
	g.AddLink(Link{From: "a.org", To: "b.org", Kind: LinkID})

	assert.Equal(t, 2, g.LinkCount())
	assert.Equal(t, []string{"b.org"}, g.Neighbors("a.org"))
	assert.Equal(t, []string{"a.org"}, g.Neighbors("b.org"))
}

func TestNoteGraph_OrderedListings(t *testing.T) {
	t.Parallel()

	g := NewNoteGraph()
	g.AddNote(Note{ID: "c.org"})
	g.AddNote(Note{ID: "a.org"})
	g.AddLink(Link{From: "c.org", To: "a.org", Kind: LinkFile})
	g.AddLink(Link{From: "a.org", To: "c.org", Kind: LinkFile})
	g.AddRef(Ref{Ref: "zed", File: "a.org"})
	g.AddRef(Ref{Ref: "abe", File: "c.org"})

	assert.Equal(t, []Note{{ID: "a.org"}, {ID: "c.org"}}, g.Notes())
	assert.Equal(t, "a.org", g.Links()[0].From)
	assert.Equal(t, "abe", g.Refs()[0].Ref)
}

func TestNoteGraph_RemoveNote(t *testing.T) {
	t.Parallel()

	g := chain()
	g.AddRef(Ref{Ref: "smith2020", File: "b.org"})

	assert.True(t, g.RemoveNote("b.org"))
	assert.False(t, g.RemoveNote("b.org"))

	assert.Equal(t, 4, g.NoteCount())
	assert.Equal(t, 1, g.LinkCount())
	assert.Empty(t, g.Neighbors("a.org"))
	_, ok := g.ResolveRef("smith2020")
	assert.False(t, ok)
}

func TestNoteGraph_ResolveRef(t *testing.T) {
	t.Parallel()

	g := NewNoteGraph()
	g.AddRef(Ref{Ref: "smith2020", File: "b.org", Kind: "cite"})

	owner, ok := g.ResolveRef("smith2020")
	assert.True(t, ok)
	assert.Equal(t, "b.org", owner)
}

func TestNoteGraph_Reachable(t *testing.T) {
	t.Parallel()

	g := chain()

	t.Run("UnboundedFollowsBothDirections", func(t *testing.T) {
		t.Parallel()
		got := g.Reachable("a.org", Unbounded())
		assert.Equal(t, []string{"a.org", "b.org", "c.org", "d.org"}, got.Sorted())
	})

	t.Run("ZeroHopsIsOriginOnly", func(t *testing.T) {
		t.Parallel()
		got := g.Reachable("b.org", MaxHops(0))
		assert.Equal(t, []string{"b.org"}, got.Sorted())
	})

	t.Run("OneHop", func(t *testing.T) {
		t.Parallel()
		got := g.Reachable("b.org", MaxHops(1))
		assert.Equal(t, []string{"a.org", "b.org", "c.org"}, got.Sorted())
	})

	t.Run("TwoHops", func(t *testing.T) {
		t.Parallel()
		got := g.Reachable("a.org", MaxHops(2))
		assert.Equal(t, []string{"a.org", "b.org", "c.org"}, got.Sorted())
	})

	t.Run("IsolatedNote", func(t *testing.T) {
		t.Parallel()
		got := g.Reachable("e.org", Unbounded())
		assert.Equal(t, []string{"e.org"}, got.Sorted())
	})

	t.Run("UnknownOrigin", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, g.Reachable("nope.org", Unbounded()))
	})
}

func TestNoteGraph_Stats(t *testing.T) {
	t.Parallel()

	g := chain()

	assert.Equal(t, map[string]int{"notes": 5, "links": 3, "refs": 0}, g.Stats())
}
