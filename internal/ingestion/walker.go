package ingestion

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/Benny93/notegraph-go/internal/graph"
)

// noteExtensions are the file types treated as notes.
var noteExtensions = map[string]bool{
	".org": true,
	".md":  true,
}

// Default patterns to ignore (in addition to .gitignore).
var defaultIgnorePatterns = []string{
	".git/",
	".notegraph/",
	".#*", // editor lock files
	"*~",
	".DS_Store",
}

// WalkNotes returns the canonical paths of the note files under root, sorted.
// Files matched by the root .gitignore or the default patterns are skipped.
// Contents are never read.
func WalkNotes(root string) ([]string, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}

	patterns := make([]gitignore.Pattern, 0, len(defaultIgnorePatterns))
	for _, p := range defaultIgnorePatterns {
		patterns = append(patterns, gitignore.ParsePattern(p, nil))
	}
	loaded, err := loadGitignore(root)
	if err != nil {
		return nil, err
	}
	matcher := gitignore.NewMatcher(append(patterns, loaded...))

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		ignored := matcher.Match(splitPath(relPath), d.IsDir())

		if d.IsDir() {
			if ignored {
				return filepath.SkipDir
			}
			return nil
		}
		if ignored || !noteExtensions[strings.ToLower(filepath.Ext(d.Name()))] {
			return nil
		}

		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(paths)
	return paths, nil
}

// NoteLookup is the part of a store Unindexed needs.
type NoteLookup interface {
	GetNote(ctx context.Context, id string) (*graph.Note, error)
}

// Unindexed returns the note files under root that the store does not know,
// usually because the snapshot is older than the files.
func Unindexed(ctx context.Context, root string, store NoteLookup) ([]string, error) {
	paths, err := WalkNotes(root)
	if err != nil {
		return nil, err
	}

	var missing []string
	for _, path := range paths {
		n, err := store.GetNote(ctx, path)
		if err != nil {
			return nil, err
		}
		if n == nil {
			missing = append(missing, path)
		}
	}
	return missing, nil
}

// loadGitignore loads .gitignore patterns from the notes root.
func loadGitignore(root string) ([]gitignore.Pattern, error) {
	content, err := os.ReadFile(filepath.Join(root, ".gitignore"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var patterns []gitignore.Pattern
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}
	return patterns, nil
}

// splitPath splits a path into its components.
func splitPath(path string) []string {
	return strings.Split(path, string(filepath.Separator))
}
