package core

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// Resolver expands glob patterns relative to a base directory.
//
// Expansion guarantees:
//   - Patterns support doublestar syntax (src/**/*.js).
//   - The result is strictly sorted and free of duplicates.
//   - Paths are returned slash-separated and relative to BaseDir.
type Resolver struct {
	// BaseDir is the working directory for resolving relative patterns.
	BaseDir string
}

// NewResolver creates a Resolver rooted at baseDir.
func NewResolver(baseDir string) *Resolver {
	return &Resolver{BaseDir: baseDir}
}

// Files expands patterns and returns matching regular files.
// Directories matched by a pattern are skipped. A pattern with no match
// contributes nothing; it is not an error.
func (r *Resolver) Files(patterns []string) ([]string, error) {
	return r.expand(patterns, false)
}

// Paths expands patterns and returns every matching path, files and
// directories alike. Used by clean, where a directory match is removed whole.
func (r *Resolver) Paths(patterns []string) ([]string, error) {
	return r.expand(patterns, true)
}

// Abs joins a resolved relative path back onto BaseDir.
func (r *Resolver) Abs(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(r.BaseDir, filepath.FromSlash(rel))
}

func (r *Resolver) expand(patterns []string, includeDirs bool) ([]string, error) {
	fsys := os.DirFS(r.BaseDir)

	pathSet := make(map[string]struct{})
	for _, pattern := range patterns {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid glob pattern %q", pattern)
		}
		matches, err := doublestar.Glob(fsys, filepath.ToSlash(filepath.Clean(pattern)))
		if err != nil {
			return nil, fmt.Errorf("expanding pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			info, err := fs.Stat(fsys, m)
			if err != nil {
				return nil, fmt.Errorf("stat %q: %w", m, err)
			}
			if info.IsDir() && !includeDirs {
				continue
			}
			pathSet[m] = struct{}{}
		}
	}

	// Must sort explicitly, do not rely on OS directory ordering.
	paths := make([]string, 0, len(pathSet))
	for p := range pathSet {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, nil
}

// GlobBase returns the static directory prefix of a pattern, i.e. the part
// before the first segment containing a glob meta character.
func GlobBase(pattern string) string {
	base, _ := doublestar.SplitPattern(filepath.ToSlash(pattern))
	return base
}
