package dag

import (
	"errors"
	"fmt"
	"sort"
)

// NodeResult is the outcome of running a single task body.
type NodeResult struct {
	// Err is the failure reported by a built-in action.
	Err error

	// ExitCode is the exit status of a shell body; 0 for built-ins.
	ExitCode int

	Stdout []byte
	Stderr []byte

	// Artifacts lists workdir-relative paths the body wrote.
	Artifacts []string
}

// Failed reports whether the task body failed.
func (r *NodeResult) Failed() bool {
	return r != nil && (r.Err != nil || r.ExitCode != 0)
}

// GraphResult summarizes one execution attempt.
type GraphResult struct {
	GraphHash GraphHash

	// FinalState is the terminal state of each task by name.
	FinalState ExecutionState

	// ExecutionOrder lists tasks in the order they were started.
	ExecutionOrder []string

	// Results holds the body outcome of every started task.
	Results map[string]*NodeResult
}

// Succeeded reports whether every task completed.
func (r *GraphResult) Succeeded() bool {
	if r == nil {
		return false
	}
	for _, st := range r.FinalState {
		if st != TaskCompleted {
			return false
		}
	}
	return true
}

// FailedTasks returns the names of FAILED tasks, sorted.
func (r *GraphResult) FailedTasks() []string {
	if r == nil {
		return nil
	}
	var out []string
	for name, st := range r.FinalState {
		if st == TaskFailed {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Err joins the failures of all FAILED tasks, or returns nil.
func (r *GraphResult) Err() error {
	var errs []error
	for _, name := range r.FailedTasks() {
		res := r.Results[name]
		switch {
		case res == nil:
			errs = append(errs, fmt.Errorf("task %q failed", name))
		case res.Err != nil:
			errs = append(errs, fmt.Errorf("task %q: %w", name, res.Err))
		default:
			errs = append(errs, fmt.Errorf("task %q: exit status %d", name, res.ExitCode))
		}
	}
	return errors.Join(errs...)
}
