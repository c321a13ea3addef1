package dag

import (
	"reflect"
	"testing"

	"loggerbuild/internal/core"
)

func TestScheduler_ReadyTasks_SortedByDepthThenName(t *testing.T) {
	g := mustGraph(t, []core.Task{
		{Name: "A"},
		{Name: "B"},
		{Name: "C", Deps: []string{"A"}},
		{Name: "D", Deps: []string{"B"}},
	})

	state := ExecutionState{"A": TaskCompleted, "B": TaskCompleted, "C": TaskPending, "D": TaskPending}
	if got := GetReadyTasks(g, state); !reflect.DeepEqual(got, []string{"C", "D"}) {
		t.Fatalf("ready list mismatch: got %v", got)
	}
}

func TestScheduler_ReadyTasks_RootsLexicalOrder(t *testing.T) {
	g := mustGraph(t, []core.Task{{Name: "B"}, {Name: "A"}, {Name: "C"}})
	state := ExecutionState{"A": TaskPending, "B": TaskPending, "C": TaskPending}
	if got := GetReadyTasks(g, state); !reflect.DeepEqual(got, []string{"A", "B", "C"}) {
		t.Fatalf("ready list mismatch: got %v", got)
	}
}

func TestScheduler_LowerDepthBeforeName(t *testing.T) {
	// "aa" sorts before "z" by name but sits deeper.
	g := mustGraph(t, []core.Task{
		{Name: "root"},
		{Name: "aa", Deps: []string{"root"}},
		{Name: "z"},
	})
	state := ExecutionState{"root": TaskCompleted, "aa": TaskPending, "z": TaskPending}
	if got := GetReadyTasks(g, state); !reflect.DeepEqual(got, []string{"z", "aa"}) {
		t.Fatalf("ready list mismatch: got %v", got)
	}
}

func TestScheduler_DiamondConvergence_WaitsForAllParents(t *testing.T) {
	g := mustGraph(t, []core.Task{
		{Name: "A"},
		{Name: "B", Deps: []string{"A"}},
		{Name: "C", Deps: []string{"A"}},
		{Name: "D", Deps: []string{"B", "C"}},
	})
	state := ExecutionState{"A": TaskCompleted, "B": TaskCompleted, "C": TaskRunning, "D": TaskPending}
	if got := GetReadyTasks(g, state); len(got) != 0 {
		t.Fatalf("D must wait for C, got %v", got)
	}
	state["C"] = TaskCompleted
	if got := GetReadyTasks(g, state); !reflect.DeepEqual(got, []string{"D"}) {
		t.Fatalf("expected D ready, got %v", got)
	}
}
