// Package config loads the notegraph TOML configuration.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/Benny93/notegraph-go/internal/dot"
	"github.com/Benny93/notegraph-go/internal/errors"
	"github.com/Benny93/notegraph-go/internal/render"
	"github.com/Benny93/notegraph-go/internal/selector"
)

// Config holds notegraph configuration.
type Config struct {
	Notes NotesConfig `toml:"notes"`
	Store StoreConfig `toml:"store"`
	Graph GraphConfig `toml:"graph"`
	Style StyleConfig `toml:"style"`
}

// NotesConfig locates the notes.
type NotesConfig struct {
	Directory string `toml:"directory"`
}

// StoreConfig locates the note store.
type StoreConfig struct {
	Path     string `toml:"path"`     // badger directory; empty means <notes>/.notegraph/badger
	Snapshot string `toml:"snapshot"` // JSON snapshot read by import and --watch
}

// GraphConfig controls selection, serialization and rendering.
type GraphConfig struct {
	Executable     string `toml:"executable"`
	Engine         string `toml:"engine"` // "exec" or "embedded"
	Format         string `toml:"format"`
	Viewer         string `toml:"viewer"`
	MaxTitleLength int    `toml:"max_title_length"`
	ShortenTitles  string `toml:"shorten_titles"` // "truncate", "wrap", "none"
	URLScheme      string `toml:"url_scheme"`

	// Exclude is absent, a string, or a list of strings.
	Exclude any `toml:"exclude,omitempty"`
}

// StyleConfig holds [key, value] pair lists for each digraph level.
type StyleConfig struct {
	Graph    any `toml:"graph,omitempty"`
	Node     any `toml:"node,omitempty"`
	Edge     any `toml:"edge,omitempty"`
	CiteEdge any `toml:"cite_edge,omitempty"`
}

// Engines accepted in [graph] engine.
const (
	EngineExec     = "exec"
	EngineEmbedded = "embedded"
)

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Notes: NotesConfig{Directory: "~/org-roam"},
		Graph: GraphConfig{
			Executable:     render.DefaultExecutable,
			Engine:         EngineExec,
			Format:         "svg",
			MaxTitleLength: dot.DefaultMaxTitleLength,
			ShortenTitles:  string(dot.ShortenTruncate),
			URLScheme:      dot.DefaultURLScheme,
		},
		Style: StyleConfig{
			CiteEdge: [][]string{{"color", "red"}},
		},
	}
}

// Dir returns the notegraph config directory path.
func Dir() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "notegraph")
}

// Path returns the default config file path.
func Path() string {
	return filepath.Join(Dir(), "config.toml")
}

// Load reads the config file at path over the defaults. An empty path means
// Path(). A missing file yields the defaults; a malformed or invalid one is
// a ConfigError.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = Path()
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfig, err, "parsing %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.Config("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Encode writes cfg as TOML.
func (c *Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

// Validate checks every value that could otherwise fail mid-render.
func (c *Config) Validate() error {
	if c.Graph.MaxTitleLength <= 0 {
		return errors.Config("graph.max_title_length must be positive, got %d", c.Graph.MaxTitleLength)
	}
	switch c.Graph.Engine {
	case EngineExec, EngineEmbedded:
	default:
		return errors.Config("graph.engine must be %q or %q, got %q", EngineExec, EngineEmbedded, c.Graph.Engine)
	}
	if _, err := c.Exclusion(); err != nil {
		return err
	}
	if _, err := c.DotStyle(); err != nil {
		return err
	}
	_, err := dot.New(dot.Style{}, c.DotOptions())
	return err
}

// Exclusion resolves [graph] exclude into a predicate.
func (c *Config) Exclusion() (selector.Predicate, error) {
	return selector.ResolveExclusion(c.Graph.Exclude)
}

// DotStyle converts the [style] tables into a serializer style.
func (c *Config) DotStyle() (dot.Style, error) {
	var (
		s   dot.Style
		err error
	)
	if s.Graph, err = dot.ParseAttrs("graph", c.Style.Graph); err != nil {
		return dot.Style{}, err
	}
	if s.Node, err = dot.ParseAttrs("node", c.Style.Node); err != nil {
		return dot.Style{}, err
	}
	if s.Edge, err = dot.ParseAttrs("edge", c.Style.Edge); err != nil {
		return dot.Style{}, err
	}
	if s.CiteEdge, err = dot.ParseAttrs("cite_edge", c.Style.CiteEdge); err != nil {
		return dot.Style{}, err
	}
	return s, s.Validate()
}

// DotOptions returns the serializer options. Untitled notes are labelled by
// their path relative to the notes directory.
func (c *Config) DotOptions() dot.Options {
	return dot.Options{
		MaxTitleLength: c.Graph.MaxTitleLength,
		Shorten:        dot.Shorten(c.Graph.ShortenTitles),
		URLScheme:      c.Graph.URLScheme,
		Label:          dot.PathLabel(c.NotesDir()),
	}
}

// NotesDir returns the notes directory with ~ expanded.
func (c *Config) NotesDir() string {
	return expandHome(c.Notes.Directory)
}

// StorePath returns the badger directory.
func (c *Config) StorePath() string {
	if c.Store.Path != "" {
		return expandHome(c.Store.Path)
	}
	return filepath.Join(c.NotesDir(), ".notegraph", "badger")
}

// SnapshotPath returns the JSON snapshot path, or "" if none is configured.
func (c *Config) SnapshotPath() string {
	return expandHome(c.Store.Snapshot)
}

// Renderer builds the configured renderer.
func (c *Config) Renderer() (render.Renderer, error) {
	if c.Graph.Engine == EngineEmbedded {
		return render.NewEmbeddedRenderer(c.Graph.Format)
	}
	return render.NewExecRenderer(c.Graph.Executable, c.Graph.Format), nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
