package dag

import (
	"errors"
	"reflect"
	"testing"

	"loggerbuild/internal/core"
)

func TestGraphConstruction_SingleNode(t *testing.T) {
	g := mustGraph(t, []core.Task{{Name: "clean", Action: core.ActionClean}})
	if g.Hash() == "" {
		t.Fatalf("expected non-empty graph hash")
	}
	if got := g.TopologicalOrder(); len(got) != 1 || got[0] != "clean" {
		t.Fatalf("unexpected topo order: %v", got)
	}
}

func TestGraphConstruction_PipelineTopologyAndDepth(t *testing.T) {
	g := mustGraph(t, pipelineTasks())

	want := []string{"clean", "build", "default", "test"}
	if got := g.TopologicalOrder(); !reflect.DeepEqual(got, want) {
		t.Fatalf("topo order: got %v want %v", got, want)
	}

	depths := map[string]int{"clean": 0, "build": 1, "test": 2, "default": 2}
	for name, want := range depths {
		got, ok := g.Depth(name)
		if !ok || got != want {
			t.Fatalf("depth(%s) = %d,%v want %d", name, got, ok, want)
		}
	}

	wantEdges := []Edge{{From: "build", To: "default"}, {From: "build", To: "test"}, {From: "clean", To: "build"}}
	if got := g.Edges(); !reflect.DeepEqual(got, wantEdges) {
		t.Fatalf("edges: got %v want %v", got, wantEdges)
	}
	if got := g.Dependents("build"); !reflect.DeepEqual(got, []string{"default", "test"}) {
		t.Fatalf("dependents: %v", got)
	}
}

func TestGraphConstruction_DiamondDependency(t *testing.T) {
	g := mustGraph(t, []core.Task{
		{Name: "A"},
		{Name: "B", Deps: []string{"A"}},
		{Name: "C", Deps: []string{"A"}},
		{Name: "D", Deps: []string{"B", "C"}},
	})
	if d, _ := g.Depth("D"); d != 2 {
		t.Fatalf("expected D depth 2, got %d", d)
	}
}

func TestGraphHash_InvariantToInsertionOrder(t *testing.T) {
	tasks := pipelineTasks()
	reversed := make([]core.Task, len(tasks))
	for i := range tasks {
		reversed[len(tasks)-1-i] = tasks[i]
	}
	g1 := mustGraph(t, tasks)
	g2 := mustGraph(t, reversed)
	if g1.Hash() != g2.Hash() {
		t.Fatalf("hash differs by insertion order: %s vs %s", g1.Hash(), g2.Hash())
	}
}

func TestGraphHash_ChangesWithDefinition(t *testing.T) {
	tasks := pipelineTasks()
	g1 := mustGraph(t, tasks)
	tasks[3].Deps = []string{"test"}
	g2 := mustGraph(t, tasks)
	if g1.Hash() == g2.Hash() {
		t.Fatalf("expected different hashes for different deps")
	}
}

func TestGraphValidation_Rejections(t *testing.T) {
	cases := []struct {
		name  string
		tasks []core.Task
		kind  error
	}{
		{"empty", nil, ErrInvalidGraph},
		{"duplicate name", []core.Task{{Name: "a"}, {Name: "a"}}, ErrInvalidGraph},
		{"unknown dep", []core.Task{{Name: "a", Deps: []string{"nope"}}}, ErrInvalidGraph},
		{"self dep", []core.Task{{Name: "a", Deps: []string{"a"}}}, ErrInvalidGraph},
		{"duplicate dep", []core.Task{{Name: "a"}, {Name: "b", Deps: []string{"a", "a"}}}, ErrInvalidGraph},
		{"invalid task", []core.Task{{Name: "a", Action: "deploy"}}, ErrInvalidGraph},
		{"cycle", []core.Task{
			{Name: "a", Deps: []string{"c"}},
			{Name: "b", Deps: []string{"a"}},
			{Name: "c", Deps: []string{"b"}},
		}, ErrCycleFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewTaskGraph(tc.tasks)
			if !errors.Is(err, tc.kind) {
				t.Fatalf("expected %v, got %v", tc.kind, err)
			}
			var ge *GraphError
			if !errors.As(err, &ge) {
				t.Fatalf("expected *GraphError, got %T", err)
			}
		})
	}
}

func TestCycleDetection_ReportsWitnessPath(t *testing.T) {
	_, err := NewTaskGraph([]core.Task{
		{Name: "a", Deps: []string{"b"}},
		{Name: "b", Deps: []string{"a"}},
	})
	if err == nil {
		t.Fatalf("expected cycle error")
	}
	if got := err.Error(); got != "cycle detected: cycle: a -> b -> a" {
		t.Fatalf("unexpected message: %q", got)
	}
}

func TestClosure_SelectsTransitiveDependencies(t *testing.T) {
	g := mustGraph(t, pipelineTasks())

	sub, err := g.Closure("default")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := sub.TopologicalOrder(); !reflect.DeepEqual(got, []string{"clean", "build", "default"}) {
		t.Fatalf("default closure: %v", got)
	}

	sub, err = g.Closure("clean")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sub.Len() != 1 {
		t.Fatalf("clean closure should be a single task, got %v", sub.TopologicalOrder())
	}

	sub, err = g.Closure("test", "default")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sub.Len() != 4 {
		t.Fatalf("expected all four tasks, got %v", sub.TopologicalOrder())
	}
}

func TestClosure_UnknownTarget(t *testing.T) {
	g := mustGraph(t, pipelineTasks())
	if _, err := g.Closure("deploy"); !errors.Is(err, ErrUnknownTask) {
		t.Fatalf("expected ErrUnknownTask, got %v", err)
	}
}
