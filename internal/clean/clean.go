// Package clean removes the artifacts of previous builds and test runs.
package clean

import (
	"context"
	"fmt"
	"os"

	"loggerbuild/internal/core"
)

// DefaultPatterns are the paths a clean build starts without.
var DefaultPatterns = []string{"dist/*", "reports", "debug", ".coverdata"}

// Cleaner deletes every path matching Patterns under WorkDir.
type Cleaner struct {
	WorkDir  string
	Patterns []string
}

// New returns a Cleaner for workDir. Nil patterns select DefaultPatterns.
func New(workDir string, patterns []string) *Cleaner {
	if patterns == nil {
		patterns = DefaultPatterns
	}
	return &Cleaner{WorkDir: workDir, Patterns: patterns}
}

// Clean removes matches recursively and returns their workdir-relative
// paths, sorted. Patterns with no match are skipped silently.
func (c *Cleaner) Clean(ctx context.Context) ([]string, error) {
	r := core.NewResolver(c.WorkDir)
	matches, err := r.Paths(c.Patterns)
	if err != nil {
		return nil, fmt.Errorf("clean: %w", err)
	}

	removed := make([]string, 0, len(matches))
	for _, rel := range matches {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if covered(removed, rel) {
			continue
		}
		if err := os.RemoveAll(r.Abs(rel)); err != nil {
			return removed, fmt.Errorf("clean: removing %s: %w", rel, err)
		}
		removed = append(removed, rel)
	}
	return removed, nil
}

// covered reports whether rel lies inside a directory already removed.
// Sorted order guarantees parents come before their children.
func covered(removed []string, rel string) bool {
	for _, p := range removed {
		if len(rel) > len(p) && rel[:len(p)] == p && rel[len(p)] == '/' {
			return true
		}
	}
	return false
}
