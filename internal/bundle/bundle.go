// Package bundle produces the distributable logger.min.js: every source is
// minified on its own, then the results are concatenated in declared order.
package bundle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"

	"golang.org/x/sync/errgroup"

	"loggerbuild/internal/core"
)

// ErrMissingSource is returned when a declared source file does not exist.
var ErrMissingSource = errors.New("missing source file")

// Defaults used when the Bundler fields are left empty.
const (
	DefaultOutputDir  = "dist"
	DefaultOutputName = "logger.min.js"
	DefaultSeparator  = "\n"
)

// DefaultSources is the library's fixed source order.
var DefaultSources = []string{"src/logging-enhancer.js", "src/angular-logger.js"}

// Bundler concatenates minified sources into OutputDir/OutputName.
type Bundler struct {
	WorkDir string

	// Sources are workdir-relative paths; their order is the output order.
	Sources []string

	OutputDir  string
	OutputName string

	// Separator is written between minified files.
	Separator string

	Minifier Minifier
}

// Result describes a written bundle.
type Result struct {
	// Output is the workdir-relative artifact path.
	Output string
	Size   int
	// Sizes holds the minified size of each source, in source order.
	Sizes []int
}

// New returns a Bundler with the library defaults.
func New(workDir string) *Bundler {
	return &Bundler{
		WorkDir:    workDir,
		Sources:    DefaultSources,
		OutputDir:  DefaultOutputDir,
		OutputName: DefaultOutputName,
		Separator:  DefaultSeparator,
		Minifier:   NewJSMinifier(),
	}
}

// Bundle reads, minifies and concatenates all sources and writes the
// artifact. Nothing is written if any source is missing or fails to minify.
func (b *Bundler) Bundle(ctx context.Context) (Result, error) {
	if len(b.Sources) == 0 {
		return Result{}, fmt.Errorf("bundle: no sources")
	}
	if b.OutputName == "" {
		return Result{}, fmt.Errorf("bundle: output name is required")
	}
	m := b.Minifier
	if m == nil {
		m = NewJSMinifier()
	}

	r := core.NewResolver(b.WorkDir)
	minified := make([][]byte, len(b.Sources))

	g, gctx := errgroup.WithContext(ctx)
	for i, rel := range b.Sources {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			src, err := os.ReadFile(r.Abs(rel))
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return fmt.Errorf("bundle: %w: %s", ErrMissingSource, rel)
				}
				return fmt.Errorf("bundle: reading %s: %w", rel, err)
			}
			out, err := m.Minify(rel, src)
			if err != nil {
				return fmt.Errorf("bundle: minifying %s: %w", rel, err)
			}
			minified[i] = terminate(out)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	var buf []byte
	sizes := make([]int, len(minified))
	for i, part := range minified {
		if i > 0 {
			buf = append(buf, b.Separator...)
		}
		buf = append(buf, part...)
		sizes[i] = len(part)
	}

	outRel := path.Join(b.OutputDir, b.OutputName)
	if err := core.WriteFileAtomic(r.Abs(outRel), buf, 0o644); err != nil {
		return Result{}, fmt.Errorf("bundle: writing %s: %w", outRel, err)
	}
	return Result{Output: outRel, Size: len(buf), Sizes: sizes}, nil
}

// terminate ends a minified file with a semicolon. The minifier drops the
// final one, and without it the next file's leading "(" would call the
// previous file's last expression.
func terminate(part []byte) []byte {
	trimmed := bytes.TrimRight(part, " \t\r\n")
	if len(trimmed) == 0 || trimmed[len(trimmed)-1] == ';' {
		return trimmed
	}
	out := make([]byte, 0, len(trimmed)+1)
	out = append(out, trimmed...)
	return append(out, ';')
}
