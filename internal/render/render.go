// Package render turns DOT text into an image file and opens it in a viewer.
package render

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/Benny93/notegraph-go/internal/errors"
	"github.com/Benny93/notegraph-go/internal/logging"
)

// Renderer converts a digraph description into an image and returns the
// image path.
type Renderer interface {
	Render(ctx context.Context, dot []byte) (string, error)
}

// DefaultExecutable is the graph program run by ExecRenderer.
const DefaultExecutable = "dot"

// ExecRenderer runs an external Graphviz program.
type ExecRenderer struct {
	// Executable is the program name or path. Empty means DefaultExecutable.
	Executable string

	// Format is the output format passed as -T. Empty means svg.
	Format string

	// Dir holds the temporary input and output files. Empty means os.TempDir().
	Dir string

	lookPath func(file string) (string, error)
	run      func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewExecRenderer creates a renderer for the given program and format.
func NewExecRenderer(executable, format string) *ExecRenderer {
	return &ExecRenderer{Executable: executable, Format: format}
}

// Render writes the DOT text to a temporary file, runs the program on it and
// returns the output path. The program is looked up first, so a missing
// executable leaves no files behind.
func (r *ExecRenderer) Render(ctx context.Context, dot []byte) (string, error) {
	logger := logging.FromContext(ctx)
	progress := logging.NewProgress(ctx)

	name := r.Executable
	if name == "" {
		name = DefaultExecutable
	}
	format := formatOrDefault(r.Format)

	lookPath := r.lookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	bin, err := lookPath(name)
	if err != nil {
		return "", errors.ToolMissing(name, err)
	}

	in, err := writeTemp(r.Dir, "notegraph-*.dot", dot)
	if err != nil {
		return "", err
	}
	out, err := reserveTemp(r.Dir, "notegraph-*."+format)
	if err != nil {
		_ = os.Remove(in)
		return "", err
	}

	run := r.run
	if run == nil {
		run = runCommand
	}
	logger.Debug("Running renderer", "program", bin, "input", in, "output", out)
	if output, err := run(ctx, bin, in, "-T"+format, "-o", out); err != nil {
		_ = os.Remove(in)
		_ = os.Remove(out)
		return "", fmt.Errorf("running %s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}

	progress.Done("Rendered " + out)
	return out, nil
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// EmbeddedRenderer renders in-process with the WebAssembly build of Graphviz,
// for machines without the dot program installed.
type EmbeddedRenderer struct {
	// Format is one of svg, png or jpg. Empty means svg.
	Format string

	// Dir holds the output file. Empty means os.TempDir().
	Dir string
}

// NewEmbeddedRenderer creates an in-process renderer.
func NewEmbeddedRenderer(format string) (*EmbeddedRenderer, error) {
	if _, err := embeddedFormat(formatOrDefault(format)); err != nil {
		return nil, err
	}
	return &EmbeddedRenderer{Format: format}, nil
}

// Render implements Renderer.
func (r *EmbeddedRenderer) Render(ctx context.Context, dot []byte) (string, error) {
	progress := logging.NewProgress(ctx)
	format := formatOrDefault(r.Format)

	gvFormat, err := embeddedFormat(format)
	if err != nil {
		return "", err
	}

	gv, err := graphviz.New(ctx)
	if err != nil {
		return "", fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes(dot)
	if err != nil {
		return "", fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, gvFormat, &buf); err != nil {
		return "", fmt.Errorf("render: %w", err)
	}

	out, err := writeTemp(r.Dir, "notegraph-*."+format, buf.Bytes())
	if err != nil {
		return "", err
	}
	progress.Done("Rendered " + out)
	return out, nil
}

func embeddedFormat(format string) (graphviz.Format, error) {
	switch format {
	case "svg":
		return graphviz.SVG, nil
	case "png":
		return graphviz.PNG, nil
	case "jpg":
		return graphviz.JPG, nil
	default:
		return "", errors.Config("embedded renderer cannot produce %q (use svg, png or jpg)", format)
	}
}

func formatOrDefault(format string) string {
	if format == "" {
		return "svg"
	}
	return format
}

func writeTemp(dir, pattern string, data []byte) (string, error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("writing %s: %w", f.Name(), err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("closing %s: %w", f.Name(), err)
	}
	return filepath.Clean(f.Name()), nil
}

// reserveTemp creates an empty temp file so the output name is unique.
func reserveTemp(dir, pattern string) (string, error) {
	return writeTemp(dir, pattern, nil)
}
