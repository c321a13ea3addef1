package specrun

import (
	"errors"
	"fmt"
	"time"
)

// ErrSpecsFailed is returned when at least one spec failed or a spec file
// could not be loaded.
var ErrSpecsFailed = errors.New("specs failed")

// Status of a single spec.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Failure is one failed expectation or thrown error.
type Failure struct {
	Message string `json:"message"`
	// Stack is the JS stack, empty unless stack traces are enabled.
	Stack string `json:"stack,omitempty"`
}

// SpecResult is the outcome of one `it`.
type SpecResult struct {
	// Suite is the space-joined chain of enclosing describe names.
	Suite    string    `json:"suite"`
	Name     string    `json:"name"`
	FullName string    `json:"fullName"`
	Status   Status    `json:"status"`
	Failures []Failure `json:"failures,omitempty"`
}

// SuiteResult is the outcome of one spec file.
type SuiteResult struct {
	File  string       `json:"file"`
	Specs []SpecResult `json:"specs"`

	// LoadError is set when a source, helper or the spec file itself threw
	// before its specs could run.
	LoadError *Failure `json:"loadError,omitempty"`

	Duration time.Duration `json:"duration"`
}

// Failed reports whether the file failed to load or any spec failed.
func (s SuiteResult) Failed() bool {
	if s.LoadError != nil {
		return true
	}
	for _, sp := range s.Specs {
		if sp.Status == StatusFailed {
			return true
		}
	}
	return false
}

// Result aggregates all suites of one run.
type Result struct {
	Suites   []SuiteResult `json:"suites"`
	Duration time.Duration `json:"duration"`
}

// Counts summarizes a Result.
type Counts struct {
	Specs        int
	Passed       int
	Failed       int
	Skipped      int
	BrokenSuites int
}

func (r *Result) Counts() Counts {
	var c Counts
	for _, s := range r.Suites {
		if s.LoadError != nil {
			c.BrokenSuites++
		}
		for _, sp := range s.Specs {
			c.Specs++
			switch sp.Status {
			case StatusPassed:
				c.Passed++
			case StatusFailed:
				c.Failed++
			case StatusSkipped:
				c.Skipped++
			}
		}
	}
	return c
}

// Err returns an error wrapping ErrSpecsFailed if anything failed.
func (r *Result) Err() error {
	c := r.Counts()
	if c.Failed == 0 && c.BrokenSuites == 0 {
		return nil
	}
	return fmt.Errorf("%w: %d of %d specs failed, %d of %d spec files failed to load",
		ErrSpecsFailed, c.Failed, c.Specs, c.BrokenSuites, len(r.Suites))
}
