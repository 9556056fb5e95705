package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/notegraph-go/internal/errors"
)

const sampleDOT = `digraph "notegraph" {
  node [];
  edge [];
  "a.org" [label="Alpha",URL="org-protocol://roam-file?file=a.org",tooltip="Alpha"];
  "b.org" [label="b",URL="org-protocol://roam-file?file=b.org",tooltip="b"];
  "a.org" -> "b.org";
  edge [color=red];
}
`

func missing(string) (string, error) {
	return "", fmt.Errorf("executable file not found in $PATH")
}

func found(file string) (string, error) {
	return "/usr/bin/" + file, nil
}

func TestExecRenderer_Render(t *testing.T) {
	t.Parallel()

	t.Run("RunsProgramOnTempFile", func(t *testing.T) {
		dir := t.TempDir()
		var gotName string
		var gotArgs []string

		r := &ExecRenderer{
			Executable: "dot",
			Format:     "png",
			Dir:        dir,
			lookPath:   found,
			run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
				gotName, gotArgs = name, args
				return nil, nil
			},
		}

		out, err := r.Render(context.Background(), []byte(sampleDOT))
		require.NoError(t, err)

		assert.Equal(t, "/usr/bin/dot", gotName)
		require.Len(t, gotArgs, 4)
		assert.Equal(t, "-Tpng", gotArgs[1])
		assert.Equal(t, "-o", gotArgs[2])
		assert.Equal(t, out, gotArgs[3])
		assert.True(t, strings.HasSuffix(out, ".png"))
		assert.Equal(t, dir, filepath.Dir(out))

		input, err := os.ReadFile(gotArgs[0])
		require.NoError(t, err)
		assert.Equal(t, sampleDOT, string(input))
	})

	t.Run("MissingExecutableWritesNothing", func(t *testing.T) {
		dir := t.TempDir()
		r := &ExecRenderer{Executable: "neato", Dir: dir, lookPath: missing}

		_, err := r.Render(context.Background(), []byte(sampleDOT))

		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrCodeToolMissing))
		assert.Contains(t, err.Error(), "neato")

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("DefaultsToDotAndSVG", func(t *testing.T) {
		var gotArgs []string
		r := &ExecRenderer{
			Dir:      t.TempDir(),
			lookPath: found,
			run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
				gotArgs = args
				return nil, nil
			},
		}

		out, err := r.Render(context.Background(), []byte(sampleDOT))
		require.NoError(t, err)
		assert.Equal(t, "-Tsvg", gotArgs[1])
		assert.True(t, strings.HasSuffix(out, ".svg"))
	})

	t.Run("ProgramFailure", func(t *testing.T) {
		dir := t.TempDir()
		r := &ExecRenderer{
			Dir:      dir,
			lookPath: found,
			run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
				return []byte("syntax error in line 1\n"), fmt.Errorf("exit status 1")
			},
		}

		_, err := r.Render(context.Background(), []byte("not dot"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "syntax error in line 1")
		assert.False(t, errors.Is(err, errors.ErrCodeToolMissing))

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries, "input and output files are removed on failure")
	})

	t.Run("OutputReservationFailure", func(t *testing.T) {
		dir := t.TempDir()
		r := &ExecRenderer{
			Format:   "svg/bad",
			Dir:      dir,
			lookPath: found,
			run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
				t.Fatal("program must not run without an output file")
				return nil, nil
			},
		}

		_, err := r.Render(context.Background(), []byte(sampleDOT))
		require.Error(t, err)

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries, "input file is removed when the output cannot be created")
	})
}

func TestEmbeddedRenderer(t *testing.T) {
	t.Run("RejectsUnsupportedFormat", func(t *testing.T) {
		_, err := NewEmbeddedRenderer("pdf")
		assert.True(t, errors.Is(err, errors.ErrCodeConfig))
	})

	t.Run("RendersSVG", func(t *testing.T) {
		r, err := NewEmbeddedRenderer("")
		require.NoError(t, err)
		r.Dir = t.TempDir()

		out, err := r.Render(context.Background(), []byte(sampleDOT))
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(out, ".svg"))

		data, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Contains(t, string(data), "<svg")
		assert.Contains(t, string(data), "Alpha")
	})
}

func TestViewer_Open(t *testing.T) {
	t.Parallel()

	type call struct {
		name string
		args []string
	}

	newViewer := func(program, goos string, installed ...string) (*Viewer, *[]call) {
		var calls []call
		v := &Viewer{
			Program: program,
			goos:    goos,
			lookPath: func(file string) (string, error) {
				for _, p := range installed {
					if p == file {
						return "/usr/bin/" + file, nil
					}
				}
				return missing(file)
			},
			start: func(name string, args ...string) error {
				calls = append(calls, call{name, args})
				return nil
			},
		}
		return v, &calls
	}

	t.Run("PreferredViewer", func(t *testing.T) {
		v, calls := newViewer("feh", "linux", "feh", "xdg-open")
		require.NoError(t, v.Open(context.Background(), "/tmp/g.png"))
		assert.Equal(t, []call{{"/usr/bin/feh", []string{"/tmp/g.png"}}}, *calls)
	})

	t.Run("FallsBackWhenPreferredMissing", func(t *testing.T) {
		v, calls := newViewer("feh", "linux", "xdg-open")
		require.NoError(t, v.Open(context.Background(), "/tmp/g.png"))
		assert.Equal(t, []call{{"/usr/bin/xdg-open", []string{"/tmp/g.png"}}}, *calls)
	})

	t.Run("FallsBackWhenUnset", func(t *testing.T) {
		v, calls := newViewer("", "darwin", "open")
		require.NoError(t, v.Open(context.Background(), "/tmp/g.svg"))
		assert.Equal(t, []call{{"/usr/bin/open", []string{"/tmp/g.svg"}}}, *calls)
	})

	t.Run("WindowsOpener", func(t *testing.T) {
		v, calls := newViewer("", "windows", "cmd")
		require.NoError(t, v.Open(context.Background(), `C:\g.svg`))
		assert.Equal(t, []call{{"/usr/bin/cmd", []string{"/c", "start", "", `C:\g.svg`}}}, *calls)
	})

	t.Run("NothingInstalled", func(t *testing.T) {
		v, calls := newViewer("feh", "linux")
		err := v.Open(context.Background(), "/tmp/g.png")
		assert.True(t, errors.Is(err, errors.ErrCodeToolMissing))
		assert.Contains(t, errors.UserMessage(err), "xdg-open")
		assert.Empty(t, *calls)
	})
}
