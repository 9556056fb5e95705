package dot

import (
	"strings"

	"github.com/Benny93/notegraph-go/internal/errors"
)

// Attr is one key=value pair of a DOT attribute list. The value is written
// verbatim, so quoting is up to the caller.
type Attr struct {
	Key   string
	Value string
}

// String renders the pair as key=value.
func (a Attr) String() string {
	return a.Key + "=" + a.Value
}

func joinAttrs(attrs []Attr) string {
	parts := make([]string, len(attrs))
	for i, a := range attrs {
		parts[i] = a.String()
	}
	return strings.Join(parts, ",")
}

// Style holds the ordered attribute lists for each level of the digraph.
// Order matters: the renderer lets later keys override earlier ones.
type Style struct {
	Graph    []Attr
	Node     []Attr
	Edge     []Attr
	CiteEdge []Attr
}

// DefaultStyle returns the built-in style: citation edges in red.
func DefaultStyle() Style {
	return Style{
		CiteEdge: []Attr{{Key: "color", Value: "red"}},
	}
}

// Validate reports a ConfigError for any pair with an empty key.
func (s Style) Validate() error {
	for _, level := range []struct {
		name  string
		attrs []Attr
	}{
		{"graph", s.Graph},
		{"node", s.Node},
		{"edge", s.Edge},
		{"cite_edge", s.CiteEdge},
	} {
		for i, a := range level.attrs {
			if a.Key == "" {
				return errors.Config("style %s: pair %d has an empty key", level.name, i)
			}
		}
	}
	return nil
}

// ParseAttrs converts a decoded style list into attributes. Each entry must
// be a two-element list of strings; anything else is a ConfigError naming
// the offending entry. Nil yields no attributes.
func ParseAttrs(section string, raw any) ([]Attr, error) {
	switch r := raw.(type) {
	case nil:
		return nil, nil
	case [][]string:
		attrs := make([]Attr, 0, len(r))
		for i, pair := range r {
			if len(pair) != 2 {
				return nil, errors.Config("style %s: pair %d has %d elements, want 2", section, i, len(pair))
			}
			attrs = append(attrs, Attr{Key: pair[0], Value: pair[1]})
		}
		return attrs, nil
	case []any:
		attrs := make([]Attr, 0, len(r))
		for i, entry := range r {
			a, err := parsePair(entry)
			if err != nil {
				return nil, errors.Config("style %s: pair %d: %s", section, i, err)
			}
			attrs = append(attrs, a)
		}
		return attrs, nil
	default:
		return nil, errors.Config("style %s must be a list of [key, value] pairs, got %T", section, raw)
	}
}

func parsePair(entry any) (Attr, error) {
	pair, ok := entry.([]any)
	if !ok {
		return Attr{}, errors.New(errors.ErrCodeConfig, "expected a [key, value] list, got %T", entry)
	}
	if len(pair) != 2 {
		return Attr{}, errors.New(errors.ErrCodeConfig, "has %d elements, want 2", len(pair))
	}
	key, ok := pair[0].(string)
	if !ok {
		return Attr{}, errors.New(errors.ErrCodeConfig, "key must be a string, got %T", pair[0])
	}
	value, ok := pair[1].(string)
	if !ok {
		return Attr{}, errors.New(errors.ErrCodeConfig, "value must be a string, got %T", pair[1])
	}
	return Attr{Key: key, Value: value}, nil
}
