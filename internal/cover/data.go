package cover

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"loggerbuild/internal/core"
)

// Statement is one counted statement. Lines are 1-based.
type Statement struct {
	ID      int `json:"id"`
	Line    int `json:"line"`
	Column  int `json:"column"`
	EndLine int `json:"endLine"`
	Hits    int `json:"hits"`
}

// Function is one counted function body.
type Function struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Line int    `json:"line"`
	Hits int    `json:"hits"`
}

// FileCoverage holds the counters of one instrumented source.
type FileCoverage struct {
	// Path is workdir-relative and slash-separated.
	Path       string      `json:"path"`
	Statements []Statement `json:"statements"`
	Functions  []Function  `json:"functions"`
}

// Summary aggregates covered/total counts.
type Summary struct {
	Statements Ratio `json:"statements"`
	Functions  Ratio `json:"functions"`
}

// Ratio is a covered/total pair.
type Ratio struct {
	Covered int `json:"covered"`
	Total   int `json:"total"`
}

// Pct returns the covered percentage; an empty ratio counts as 100%.
func (r Ratio) Pct() float64 {
	if r.Total == 0 {
		return 100
	}
	return float64(r.Covered) * 100 / float64(r.Total)
}

func (r *Ratio) add(o Ratio) {
	r.Covered += o.Covered
	r.Total += o.Total
}

// Summary counts covered statements and functions.
func (f *FileCoverage) Summary() Summary {
	var s Summary
	for _, st := range f.Statements {
		s.Statements.Total++
		if st.Hits > 0 {
			s.Statements.Covered++
		}
	}
	for _, fn := range f.Functions {
		s.Functions.Total++
		if fn.Hits > 0 {
			s.Functions.Covered++
		}
	}
	return s
}

// LineStatus classifies a source line for highlighting.
type LineStatus int

const (
	LineNeutral LineStatus = iota
	LineCovered
	LinePartial
	LineMissed
)

// LineInfo is the highlighting state and max hit count of a line.
type LineInfo struct {
	Status LineStatus
	Hits   int
}

// Lines maps 1-based line numbers to their state, judged by the statements
// that start on them.
func (f *FileCoverage) Lines() map[int]LineInfo {
	type acc struct{ hit, miss, max int }
	by := make(map[int]*acc)
	for _, st := range f.Statements {
		a := by[st.Line]
		if a == nil {
			a = &acc{}
			by[st.Line] = a
		}
		if st.Hits > 0 {
			a.hit++
		} else {
			a.miss++
		}
		if st.Hits > a.max {
			a.max = st.Hits
		}
	}

	out := make(map[int]LineInfo, len(by))
	for line, a := range by {
		info := LineInfo{Hits: a.max}
		switch {
		case a.miss == 0:
			info.Status = LineCovered
		case a.hit == 0:
			info.Status = LineMissed
		default:
			info.Status = LinePartial
		}
		out[line] = info
	}
	return out
}

// Data is the gathered coverage of one test run.
type Data struct {
	Files []*FileCoverage `json:"files"`
}

// File returns the coverage for path, or nil.
func (d *Data) File(path string) *FileCoverage {
	for _, f := range d.Files {
		if f.Path == path {
			return f
		}
	}
	return nil
}

// Summary totals every file.
func (d *Data) Summary() Summary {
	var s Summary
	for _, f := range d.Files {
		fs := f.Summary()
		s.Statements.add(fs.Statements)
		s.Functions.add(fs.Functions)
	}
	return s
}

func (d *Data) sort() {
	sort.Slice(d.Files, func(i, j int) bool { return d.Files[i].Path < d.Files[j].Path })
}

// Save writes d as indented JSON.
func (d *Data) Save(path string) error {
	b, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("encode coverage: %w", err)
	}
	if err := core.WriteFileAtomic(path, append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("write coverage %s: %w", path, err)
	}
	return nil
}

// Load reads a file written by Save.
func Load(path string) (*Data, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var d Data
	if err := json.Unmarshal(b, &d); err != nil {
		return nil, fmt.Errorf("decode coverage %s: %w", path, err)
	}
	d.sort()
	return &d, nil
}
