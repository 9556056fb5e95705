// Package dot serializes a selected note subgraph to Graphviz DOT.
//
// Output is a pure function of the subgraph, the style and the options:
// nodes and edges are written in the order the selector returned them, and
// style pairs in the order they were configured.
package dot

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/Benny93/notegraph-go/internal/errors"
	"github.com/Benny93/notegraph-go/internal/graph"
)

// GraphName is the name written in every digraph header.
const GraphName = "notegraph"

// DefaultURLScheme prefixes the percent-encoded note path in node URLs.
const DefaultURLScheme = "org-protocol://roam-file?file="

// DefaultMaxTitleLength is the label length used when none is configured.
const DefaultMaxTitleLength = 100

// Shorten selects how long titles are fitted into a label.
type Shorten string

const (
	ShortenTruncate Shorten = "truncate"
	ShortenWrap     Shorten = "wrap"
	ShortenNone     Shorten = "none"
)

// Options controls node attribute generation.
type Options struct {
	// MaxTitleLength is the label length limit in characters. Must be > 0.
	MaxTitleLength int

	// Shorten is the shortening mode. Empty means ShortenTruncate.
	Shorten Shorten

	// URLScheme prefixes each node's URL attribute.
	URLScheme string

	// Label derives a label for notes without a title. Nil uses PathLabel("").
	Label func(id string) string
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		MaxTitleLength: DefaultMaxTitleLength,
		Shorten:        ShortenTruncate,
		URLScheme:      DefaultURLScheme,
	}
}

// Serializer writes subgraphs as DOT text. It is safe for concurrent use.
type Serializer struct {
	style Style
	opts  Options
}

// New validates the style and options and returns a serializer.
// Any problem is a ConfigError, reported before anything is written.
func New(style Style, opts Options) (*Serializer, error) {
	if err := style.Validate(); err != nil {
		return nil, err
	}
	if opts.MaxTitleLength <= 0 {
		return nil, errors.Config("max title length must be positive, got %d", opts.MaxTitleLength)
	}
	switch opts.Shorten {
	case "":
		opts.Shorten = ShortenTruncate
	case ShortenTruncate, ShortenWrap, ShortenNone:
	default:
		return nil, errors.Config("unknown title shortening mode %q", opts.Shorten)
	}
	if opts.Label == nil {
		opts.Label = PathLabel("")
	}
	return &Serializer{style: style, opts: opts}, nil
}

// Write emits the digraph for sg.
//
// Edges whose endpoints are not both among the nodes are skipped, so the
// output never references an undeclared node.
func (s *Serializer) Write(w io.Writer, sg *graph.Subgraph) error {
	bw := bufio.NewWriter(w)
	nodes := sg.IDs()

	fmt.Fprintf(bw, "digraph %q {\n", GraphName)
	for _, a := range s.style.Graph {
		fmt.Fprintf(bw, "  %s;\n", a)
	}
	fmt.Fprintf(bw, "  node [%s];\n", joinAttrs(s.style.Node))
	fmt.Fprintf(bw, "  edge [%s];\n", joinAttrs(s.style.Edge))

	for _, n := range sg.Nodes {
		fmt.Fprintf(bw, "  \"%s\" [%s];\n", escapeID(n.ID), s.nodeAttrs(n))
	}
	writeEdges(bw, sg.Edges, nodes)

	// Second default block: only the citation edges below pick it up.
	fmt.Fprintf(bw, "  edge [%s];\n", joinAttrs(s.style.CiteEdge))
	writeEdges(bw, sg.CiteEdges, nodes)

	bw.WriteString("}\n")
	return bw.Flush()
}

// Bytes returns the digraph for sg.
func (s *Serializer) Bytes(sg *graph.Subgraph) []byte {
	var buf bytes.Buffer
	_ = s.Write(&buf, sg) // bytes.Buffer never fails
	return buf.Bytes()
}

func writeEdges(w *bufio.Writer, edges []graph.Edge, nodes graph.IDSet) {
	for _, e := range edges {
		if !nodes.Has(e.Source) || !nodes.Has(e.Target) {
			continue
		}
		fmt.Fprintf(w, "  \"%s\" -> \"%s\";\n", escapeID(e.Source), escapeID(e.Target))
	}
}

func (s *Serializer) nodeAttrs(n graph.Note) string {
	title := n.Title
	if title == "" {
		title = s.opts.Label(n.ID)
	}

	attrs := []Attr{
		{Key: "label", Value: quote(s.shorten(title))},
		{Key: "URL", Value: quote(s.opts.URLScheme + EscapeURL(n.ID))},
		{Key: "tooltip", Value: quote(escapeID(title))},
	}
	return joinAttrs(attrs)
}

// shorten fits a title into a label body according to the shortening mode.
// Length limits apply to the raw title; backslashes and quotes are escaped
// afterwards, so a cut can never leave a dangling escape.
func (s *Serializer) shorten(title string) string {
	switch s.opts.Shorten {
	case ShortenWrap:
		lines := Wrap(title, s.opts.MaxTitleLength)
		for i, l := range lines {
			lines[i] = escapeLabel(l)
		}
		return strings.Join(lines, `\n`)
	case ShortenNone:
		return escapeLabel(title)
	default:
		return escapeLabel(Truncate(title, s.opts.MaxTitleLength))
	}
}

func quote(s string) string {
	return `"` + s + `"`
}

// Truncate cuts s to at most max characters. It counts runes, not bytes,
// and never splits a character.
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}

// Wrap breaks s into lines of at most width characters at whitespace.
// A single word longer than width gets a line of its own.
func Wrap(s string, width int) []string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return []string{s}
	}

	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if utf8.RuneCountInString(line)+1+utf8.RuneCountInString(w) > width {
			lines = append(lines, line)
			line = w
			continue
		}
		line += " " + w
	}
	return append(lines, line)
}

var xmlReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

var xmlUnreplacer = strings.NewReplacer(
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&apos;", "'",
	"&amp;", "&",
)

// EscapeXML replaces the five XML special characters with entities.
func EscapeXML(s string) string {
	return xmlReplacer.Replace(s)
}

// UnescapeXML reverses EscapeXML.
func UnescapeXML(s string) string {
	return xmlUnreplacer.Replace(s)
}

var quoteReplacer = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// escapeLabel makes s safe inside a DOT quoted string.
func escapeLabel(s string) string {
	return quoteReplacer.Replace(s)
}

// escapeID is the escaping for identifiers and tooltips: XML entities for
// the markup characters, then a doubled backslash.
func escapeID(s string) string {
	return strings.ReplaceAll(EscapeXML(s), `\`, `\\`)
}

// EscapeURL percent-encodes every byte outside the URL unreserved set,
// spaces included.
func EscapeURL(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// PathLabel returns a label fallback for untitled notes: the path relative
// to root with its extension removed. Paths outside root, or any path when
// root is empty, use the base name instead.
func PathLabel(root string) func(id string) string {
	return func(id string) string {
		name := filepath.Base(id)
		if root != "" {
			if rel, err := filepath.Rel(root, id); err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
				name = rel
			}
		}
		return strings.TrimSuffix(name, filepath.Ext(name))
	}
}
