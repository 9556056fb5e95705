// Package cmd provides CLI command implementations for notegraph.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"

	"github.com/Benny93/notegraph-go/internal/config"
	"github.com/Benny93/notegraph-go/internal/dot"
	"github.com/Benny93/notegraph-go/internal/errors"
	"github.com/Benny93/notegraph-go/internal/graph"
	"github.com/Benny93/notegraph-go/internal/ingestion"
	"github.com/Benny93/notegraph-go/internal/logging"
	"github.com/Benny93/notegraph-go/internal/render"
	"github.com/Benny93/notegraph-go/internal/selector"
	"github.com/Benny93/notegraph-go/internal/storage"
	"github.com/Benny93/notegraph-go/mcp"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Globals carries the root flags and I/O streams into every command.
type Globals struct {
	ConfigPath string
	Verbose    bool
	Quiet      bool

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// setup loads the configuration and returns a context carrying the logger.
func (g *Globals) setup() (context.Context, *config.Config, error) {
	logger := logging.New(g.Stderr, logging.Level(g.Verbose, g.Quiet))
	ctx := logging.WithLogger(context.Background(), logger)

	cfg, err := config.Load(g.ConfigPath)
	if err != nil {
		return nil, nil, err
	}
	return ctx, cfg, nil
}

func (g *Globals) success(format string, args ...any) {
	color.New(color.FgGreen).Fprintf(g.Stdout, format+"\n", args...)
}

// Selection holds the flags that pick which notes are graphed.
type Selection struct {
	File      string `short:"f" help:"Origin note; graph only the notes connected to it" type:"path"`
	Component bool   `short:"c" help:"Graph the connected component of --file"`
	MaxHops   int    `short:"n" default:"-1" help:"Maximum link distance from the origin (negative for no limit)"`
}

// wantsComponent reports whether an origin-based selection was requested.
func (s *Selection) wantsComponent() bool {
	return s.Component || s.File != ""
}

// origin returns the canonical origin path: absolute with symlinks resolved.
func (s *Selection) origin() string {
	if s.File == "" {
		return ""
	}
	path, err := filepath.Abs(s.File)
	if err != nil {
		return s.File
	}
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}
	return path
}

// pipeline is everything a render needs, built and validated up front so
// configuration errors surface before the store is touched.
type pipeline struct {
	exclude    selector.Predicate
	serializer *dot.Serializer
}

func newPipeline(cfg *config.Config) (*pipeline, error) {
	exclude, err := cfg.Exclusion()
	if err != nil {
		return nil, err
	}
	style, err := cfg.DotStyle()
	if err != nil {
		return nil, err
	}
	serializer, err := dot.New(style, cfg.DotOptions())
	if err != nil {
		return nil, err
	}
	return &pipeline{exclude: exclude, serializer: serializer}, nil
}

// digraph selects, fetches and serializes one graph.
func (p *pipeline) digraph(ctx context.Context, store storage.NoteStore, sel Selection) ([]byte, error) {
	s := selector.New(store)

	q := selector.SelectAll(p.exclude)
	if sel.wantsComponent() {
		origin := sel.origin()
		if origin == "" {
			return nil, errors.EmptyOrigin()
		}
		var err error
		if q, err = s.SelectComponent(ctx, origin, graph.MaxHops(sel.MaxHops)); err != nil {
			return nil, err
		}
	}

	sg, err := s.Fetch(ctx, q)
	if err != nil {
		return nil, err
	}
	return p.serializer.Bytes(sg), nil
}

// GraphCmd renders the note graph to an image and opens it.
type GraphCmd struct {
	Selection `embed:""`

	Output string `short:"o" help:"Copy the rendered image to this path" type:"path"`
	NoView bool   `help:"Do not open the rendered image"`
	Watch  bool   `short:"w" help:"Re-import the snapshot and re-render whenever it changes"`
}

// Run executes the graph command.
func (c *GraphCmd) Run(g *Globals) error {
	ctx, cfg, err := g.setup()
	if err != nil {
		return err
	}

	p, err := newPipeline(cfg)
	if err != nil {
		return err
	}
	if c.wantsComponent() && c.origin() == "" {
		return errors.EmptyOrigin()
	}
	renderer, err := cfg.Renderer()
	if err != nil {
		return err
	}

	snapshot := cfg.SnapshotPath()
	if c.Watch && snapshot == "" {
		return errors.Config("--watch needs [store] snapshot to be set")
	}

	store, err := openStorage(cfg, c.Watch)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	draw := func(ctx context.Context) error {
		text, err := p.digraph(ctx, store, c.Selection)
		if err != nil {
			return err
		}
		image, err := renderer.Render(ctx, text)
		if err != nil {
			return err
		}
		if c.Output != "" {
			if err := copyFile(image, c.Output); err != nil {
				return err
			}
			image = c.Output
		}
		g.success("✓ Rendered %s", image)

		if c.NoView {
			return nil
		}
		return render.NewViewer(cfg.Graph.Viewer).Open(ctx, image)
	}

	if err := draw(ctx); err != nil {
		return err
	}
	if !c.Watch {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-osSignalChannel()
		cancel()
	}()

	err = ingestion.WatchSnapshot(ctx, snapshot, store, func(ctx context.Context, _ *ingestion.ImportResult) error {
		return draw(ctx)
	})
	if err != nil && err != context.Canceled {
		return fmt.Errorf("watch error: %w", err)
	}
	return nil
}

// DotCmd prints the digraph description without rendering it.
type DotCmd struct {
	Selection `embed:""`

	Output string `short:"o" help:"Write to this file instead of stdout" type:"path"`
}

// Run executes the dot command.
func (c *DotCmd) Run(g *Globals) error {
	ctx, cfg, err := g.setup()
	if err != nil {
		return err
	}

	p, err := newPipeline(cfg)
	if err != nil {
		return err
	}
	if c.wantsComponent() && c.origin() == "" {
		return errors.EmptyOrigin()
	}

	store, err := openStorage(cfg, false)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	text, err := p.digraph(ctx, store, c.Selection)
	if err != nil {
		return err
	}

	if c.Output == "" {
		_, err := g.Stdout.Write(text)
		return err
	}
	if err := os.WriteFile(c.Output, text, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", c.Output, err)
	}
	g.success("✓ Wrote %s", c.Output)
	return nil
}

// ImportCmd loads a JSON snapshot into the note store.
type ImportCmd struct {
	Snapshot string `arg:"" optional:"" help:"Snapshot file (defaults to [store] snapshot)" type:"path"`
}

// Run executes the import command.
func (c *ImportCmd) Run(g *Globals) error {
	ctx, cfg, err := g.setup()
	if err != nil {
		return err
	}

	snapshot := c.Snapshot
	if snapshot == "" {
		snapshot = cfg.SnapshotPath()
	}
	if snapshot == "" {
		return errors.Config("no snapshot given and [store] snapshot is not set")
	}

	dbPath := cfg.StorePath()
	if err := os.MkdirAll(dbPath, 0o755); err != nil {
		return fmt.Errorf("creating store directory: %w", err)
	}

	store := storage.NewBadgerBackend()
	if err := store.Initialize(dbPath, false); err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	progress := func(phase string, pct float64) {
		logging.FromContext(ctx).Debugf("%s (%.0f%%)", phase, pct*100)
	}

	result, err := ingestion.RunImport(ctx, snapshot, store, progress)
	if err != nil {
		return fmt.Errorf("importing: %w", err)
	}

	meta := map[string]any{
		"version":     Version,
		"snapshot":    snapshot,
		"stats":       result,
		"imported_at": time.Now().UTC().Format(time.RFC3339),
	}
	metaJSON, _ := json.MarshalIndent(meta, "", "  ")
	if err := os.WriteFile(metaPath(cfg), metaJSON, 0o644); err != nil {
		return fmt.Errorf("writing meta.json: %w", err)
	}

	g.success("✓ Import complete")
	fmt.Fprintf(g.Stdout, "  Notes:     %d\n", result.Notes)
	fmt.Fprintf(g.Stdout, "  Links:     %d\n", result.Links)
	fmt.Fprintf(g.Stdout, "  Refs:      %d\n", result.Refs)
	fmt.Fprintf(g.Stdout, "  Duration:  %.2fs\n", result.DurationSecs)
	return nil
}

// SearchCmd finds notes by title, to pick an origin for --file.
type SearchCmd struct {
	Query string `arg:"" help:"Words to look for in note titles and file names"`
	Limit int    `short:"l" default:"20" help:"Maximum number of results"`
}

// Run executes the search command.
func (c *SearchCmd) Run(g *Globals) error {
	ctx, cfg, err := g.setup()
	if err != nil {
		return err
	}

	store, err := openStorage(cfg, false)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	results, err := store.SearchTitles(ctx, c.Query, c.Limit)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "searching titles")
	}

	if len(results) == 0 {
		fmt.Fprintf(g.Stdout, "No notes match %q\n", c.Query)
		return nil
	}
	for _, r := range results {
		if r.Title != "" {
			fmt.Fprintf(g.Stdout, "%s\t%s\n", r.ID, r.Title)
		} else {
			fmt.Fprintln(g.Stdout, r.ID)
		}
	}
	return nil
}

// StatusCmd shows the state of the note store.
type StatusCmd struct{}

// Run executes the status command.
func (c *StatusCmd) Run(g *Globals) error {
	ctx, cfg, err := g.setup()
	if err != nil {
		return err
	}

	store, err := openStorage(cfg, false)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	fmt.Fprintf(g.Stdout, "Store status for %s\n", cfg.StorePath())
	fmt.Fprintf(g.Stdout, "  Notes:          %d\n", store.NoteCount())
	fmt.Fprintf(g.Stdout, "  Links:          %d\n", store.LinkCount())

	if missing, err := ingestion.Unindexed(ctx, cfg.NotesDir(), store); err != nil {
		logging.FromContext(ctx).Debugf("Skipping notes directory scan: %v", err)
	} else {
		fmt.Fprintf(g.Stdout, "  Not in store:   %d\n", len(missing))
		for _, path := range missing {
			logging.FromContext(ctx).Debugf("Not in store: %s", path)
		}
	}

	metaBytes, err := os.ReadFile(metaPath(cfg))
	if err != nil {
		return nil
	}
	var meta map[string]any
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		return fmt.Errorf("parsing meta.json: %w", err)
	}
	if snapshot, ok := meta["snapshot"].(string); ok {
		fmt.Fprintf(g.Stdout, "  Snapshot:       %s\n", snapshot)
	}
	if importedAt, ok := meta["imported_at"].(string); ok {
		fmt.Fprintf(g.Stdout, "  Last imported:  %s\n", importedAt)
	}
	return nil
}

// CleanCmd deletes the note store.
type CleanCmd struct {
	Force bool `short:"f" help:"Skip confirmation"`
}

// Run executes the clean command.
func (c *CleanCmd) Run(g *Globals) error {
	_, cfg, err := g.setup()
	if err != nil {
		return err
	}

	dbPath := cfg.StorePath()
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return errors.New(errors.ErrCodeNotIndexed, "no store found at %s. Nothing to clean", dbPath)
	}

	if !c.Force {
		fmt.Fprintf(g.Stdout, "Delete store at %s? [y/N] ", dbPath)
		var response string
		_, _ = fmt.Fscanln(g.Stdin, &response)
		if response != "y" && response != "Y" {
			fmt.Fprintln(g.Stdout, "Aborted")
			return nil
		}
	}

	if err := os.RemoveAll(dbPath); err != nil {
		return fmt.Errorf("deleting store: %w", err)
	}
	if err := os.Remove(metaPath(cfg)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting meta.json: %w", err)
	}

	g.success("Deleted %s", dbPath)
	return nil
}

// ConfigCmd prints the effective configuration.
type ConfigCmd struct {
	Path bool `help:"Print only the config file path"`
}

// Run executes the config command.
func (c *ConfigCmd) Run(g *Globals) error {
	if c.Path {
		path := g.ConfigPath
		if path == "" {
			path = config.Path()
		}
		fmt.Fprintln(g.Stdout, path)
		return nil
	}

	_, cfg, err := g.setup()
	if err != nil {
		return err
	}
	return cfg.Encode(g.Stdout)
}

// MCPCmd starts the MCP server.
type MCPCmd struct{}

// Run executes the mcp command.
func (c *MCPCmd) Run(g *Globals) error {
	ctx, cfg, err := g.setup()
	if err != nil {
		return err
	}

	p, err := newPipeline(cfg)
	if err != nil {
		return err
	}

	store, err := openStorage(cfg, false)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	server := mcp.NewServer(store, p.serializer, p.exclude)

	// Note: logs go to stderr; stdout carries JSON-RPC only
	return server.Run(ctx)
}

// Helper functions

// osSignalChannel returns a channel that receives OS signals for graceful shutdown.
func osSignalChannel() <-chan os.Signal {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	return sigChan
}

// openStorage opens the configured badger store. Read-only unless writable
// is set, so renders can run while another process holds the store open.
func openStorage(cfg *config.Config, writable bool) (*storage.BadgerBackend, error) {
	dbPath := cfg.StorePath()
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, errors.New(errors.ErrCodeNotIndexed, "no store found at %s. Run 'notegraph import' first", dbPath)
	}

	store := storage.NewBadgerBackend()
	if err := store.Initialize(dbPath, !writable); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "opening store")
	}
	return store, nil
}

func metaPath(cfg *config.Config) string {
	return filepath.Join(filepath.Dir(cfg.StorePath()), "meta.json")
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("reading %s: %w", src, err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", dst, err)
	}
	return nil
}

// CLI is the root Kong command structure.
type CLI struct {
	Version kong.VersionFlag `help:"Show version information"`
	Verbose bool             `short:"v" help:"Enable verbose output"`
	Quiet   bool             `short:"q" help:"Suppress non-essential output"`
	Config  string           `help:"Path to config file" type:"path"`

	// Commands
	Graph  GraphCmd  `cmd:"" help:"Render the note graph and open it in a viewer"`
	Dot    DotCmd    `cmd:"" help:"Print the note graph as Graphviz DOT"`
	Import ImportCmd `cmd:"" help:"Load a JSON snapshot into the note store"`
	Search SearchCmd `cmd:"" help:"Find notes by title or file name"`
	Status StatusCmd `cmd:"" help:"Show note store status"`
	Clean  CleanCmd  `cmd:"" help:"Delete the note store"`
	Cfg    ConfigCmd `cmd:"" name:"config" help:"Print the effective configuration"`
	Setup  SetupCmd  `cmd:"" help:"Configure MCP for Claude Code / Cursor / Qwen"`
	MCP    MCPCmd    `cmd:"" help:"Start MCP server (stdio transport)"`
}

// NewCLI creates a new CLI instance.
func NewCLI() *CLI {
	return &CLI{}
}

func newParser(c *CLI) (*kong.Kong, error) {
	return kong.New(c,
		kong.Name("notegraph"),
		kong.Description("Render a graph of interlinked notes with Graphviz"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version": Version,
		},
	)
}

// Execute parses command-line arguments and executes the selected command.
func (c *CLI) Execute(args []string) error {
	parser, err := newParser(c)
	if err != nil {
		return err
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	return kongCtx.Run(&Globals{
		ConfigPath: c.Config,
		Verbose:    c.Verbose,
		Quiet:      c.Quiet,
		Stdin:      os.Stdin,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
	})
}
