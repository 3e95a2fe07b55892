// Package fsutil provides file system utility functions.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultArtifactPattern matches the executables a per-core build leaves in
// its source directory.
const DefaultArtifactPattern = "*.elf"

// FindArtifacts returns every regular file below root matching the glob
// pattern, as absolute paths in lexical order. Patterns may use ** to
// descend into subdirectories.
func FindArtifacts(root, pattern string) ([]string, error) {
	if pattern == "" {
		panic("pattern must not be empty")
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid artifact pattern %q", pattern)
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("artifact directory %s: %w", abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("artifact directory %s is not a directory", abs)
	}

	matches, err := doublestar.Glob(os.DirFS(abs), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)

	files := make([]string, 0, len(matches))
	for _, m := range matches {
		files = append(files, filepath.Join(abs, filepath.FromSlash(m)))
	}
	return files, nil
}

// ResetDir removes dir and everything in it, then recreates it empty.
func ResetDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}

// Touch creates an empty file if it does not exist.
func Touch(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	return f.Close()
}
