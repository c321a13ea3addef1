package cover

import (
	"fmt"
	"sync"
)

// Collector accumulates counter hits across every suite of a test run.
type Collector struct {
	mu    sync.Mutex
	files map[string]*FileCoverage
}

func NewCollector() *Collector {
	return &Collector{files: make(map[string]*FileCoverage)}
}

// Register adds the zeroed counters of an instrumented file. Registering the
// same path twice replaces the earlier entry.
func (c *Collector) Register(fc *FileCoverage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.files[fc.Path] = cloneFile(fc)
}

// HitStatement increments statement id of path.
func (c *Collector) HitStatement(path string, id int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.files[path]
	if !ok {
		return fmt.Errorf("coverage: unknown file %q", path)
	}
	if id < 0 || id >= len(f.Statements) {
		return fmt.Errorf("coverage: %s: statement %d out of range", path, id)
	}
	f.Statements[id].Hits++
	return nil
}

// HitFunction increments function id of path.
func (c *Collector) HitFunction(path string, id int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.files[path]
	if !ok {
		return fmt.Errorf("coverage: unknown file %q", path)
	}
	if id < 0 || id >= len(f.Functions) {
		return fmt.Errorf("coverage: %s: function %d out of range", path, id)
	}
	f.Functions[id].Hits++
	return nil
}

// Data returns a snapshot sorted by path.
func (c *Collector) Data() *Data {
	c.mu.Lock()
	defer c.mu.Unlock()
	d := &Data{Files: make([]*FileCoverage, 0, len(c.files))}
	for _, f := range c.files {
		d.Files = append(d.Files, cloneFile(f))
	}
	d.sort()
	return d
}

func cloneFile(f *FileCoverage) *FileCoverage {
	return &FileCoverage{
		Path:       f.Path,
		Statements: append([]Statement(nil), f.Statements...),
		Functions:  append([]Function(nil), f.Functions...),
	}
}
