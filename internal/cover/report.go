package cover

import (
	"fmt"
	"path/filepath"

	"loggerbuild/internal/core"
)

// ReportFile is one output of a Formatter, relative to the reports dir.
type ReportFile struct {
	Path    string
	Content []byte
}

// Formatter renders gathered coverage. sources maps each covered path to its
// original, uninstrumented content.
type Formatter interface {
	Name() string
	Format(d *Data, sources map[string][]byte) ([]ReportFile, error)
}

// FormatterFor returns the formatter registered under name.
func FormatterFor(name string) (Formatter, error) {
	switch name {
	case "html":
		return NewHTMLFormatter(), nil
	case "json":
		return JSONFormatter{}, nil
	default:
		return nil, fmt.Errorf("unknown report format %q", name)
	}
}

// WriteReport writes files under dir and returns their dir-relative paths.
func WriteReport(dir string, files []ReportFile) ([]string, error) {
	written := make([]string, 0, len(files))
	for _, f := range files {
		target := filepath.Join(dir, filepath.FromSlash(f.Path))
		if err := core.WriteFileAtomic(target, f.Content, 0o644); err != nil {
			return written, fmt.Errorf("write report %s: %w", target, err)
		}
		written = append(written, f.Path)
	}
	return written, nil
}
