package ingestion

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/Benny93/notegraph-go/internal/graph"
)

// Snapshot is the JSON exchange format for a note store:
//
//	{"notes": [...], "links": [...], "refs": [...]}
type Snapshot struct {
	Notes []graph.Note `json:"notes"`
	Links []graph.Link `json:"links"`
	Refs  []graph.Ref  `json:"refs"`
}

// DecodeSnapshot reads a snapshot and builds the note graph it describes.
//
// Links without a type are file links. A note, link or ref missing its
// identifying fields is rejected with its position in the input.
func DecodeSnapshot(r io.Reader) (*graph.NoteGraph, error) {
	var snap Snapshot
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}

	g := graph.NewNoteGraph()
	for i, n := range snap.Notes {
		if n.ID == "" {
			return nil, fmt.Errorf("note %d: missing file", i)
		}
		g.AddNote(n)
	}

	for i, l := range snap.Links {
		if l.From == "" || l.To == "" {
			return nil, fmt.Errorf("link %d: missing from or to", i)
		}
		if l.Kind == "" {
			l.Kind = graph.LinkFile
		}
		g.AddLink(l)
	}

	for i, r := range snap.Refs {
		if r.Ref == "" || r.File == "" {
			return nil, fmt.Errorf("ref %d: missing ref or file", i)
		}
		g.AddRef(r)
	}

	return g, nil
}

// LoadSnapshot reads the snapshot file at path.
func LoadSnapshot(path string) (*graph.NoteGraph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()

	g, err := DecodeSnapshot(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// EncodeSnapshot writes g in snapshot form, each section ordered by key.
func EncodeSnapshot(w io.Writer, g *graph.NoteGraph) error {
	snap := Snapshot{Notes: g.Notes(), Links: g.Links(), Refs: g.Refs()}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}
