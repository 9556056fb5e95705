package render

import (
	"context"
	"os/exec"
	"runtime"

	"github.com/Benny93/notegraph-go/internal/errors"
	"github.com/Benny93/notegraph-go/internal/logging"
)

// Viewer opens rendered images.
type Viewer struct {
	// Program is the preferred viewer. When empty or not installed, the
	// platform's generic opener is used instead.
	Program string

	goos     string
	lookPath func(file string) (string, error)
	start    func(name string, args ...string) error
}

// NewViewer creates a viewer preferring program.
func NewViewer(program string) *Viewer {
	return &Viewer{Program: program}
}

// Open starts a viewer on path without waiting for it to exit.
func (v *Viewer) Open(ctx context.Context, path string) error {
	logger := logging.FromContext(ctx)

	lookPath := v.lookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	start := v.start
	if start == nil {
		start = startCommand
	}

	if v.Program != "" {
		if bin, err := lookPath(v.Program); err == nil {
			logger.Debug("Opening image", "viewer", bin, "path", path)
			return start(bin, path)
		}
		logger.Warn("Viewer not found, using the system opener", "viewer", v.Program)
	}

	name, args := genericOpener(v.platform())
	bin, err := lookPath(name)
	if err != nil {
		return errors.ToolMissing(name, err)
	}
	logger.Debug("Opening image", "viewer", bin, "path", path)
	return start(bin, append(args, path)...)
}

func (v *Viewer) platform() string {
	if v.goos != "" {
		return v.goos
	}
	return runtime.GOOS
}

// genericOpener returns the program that opens a file with its default
// application on goos.
func genericOpener(goos string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", nil
	case "windows":
		return "cmd", []string{"/c", "start", ""}
	default:
		return "xdg-open", nil
	}
}

func startCommand(name string, args ...string) error {
	return exec.Command(name, args...).Start()
}
