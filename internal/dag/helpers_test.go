package dag

import (
	"context"
	"errors"
	"sync"
	"testing"

	"loggerbuild/internal/core"
)

// pipelineTasks mirrors the build's built-in table.
func pipelineTasks() []core.Task {
	return []core.Task{
		{Name: "clean", Action: core.ActionClean},
		{Name: "build", Deps: []string{"clean"}, Action: core.ActionBundle},
		{Name: "test", Deps: []string{"build"}, Action: core.ActionTest},
		{Name: "default", Deps: []string{"build"}},
	}
}

func mustGraph(t *testing.T, tasks []core.Task) *TaskGraph {
	t.Helper()
	g, err := NewTaskGraph(tasks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return g
}

type fakeRunner struct {
	fail map[string]bool
	exit map[string]int

	mu     sync.Mutex
	counts map[string]int
	order  []string
}

func (r *fakeRunner) Run(_ context.Context, task core.Task) (*NodeResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = map[string]int{}
	}
	r.counts[task.Name]++
	r.order = append(r.order, task.Name)

	res := &NodeResult{ExitCode: r.exit[task.Name]}
	if r.fail[task.Name] {
		res.Err = errors.New("boom")
	}
	return res, nil
}
