package dag

import (
	"container/heap"
	"fmt"
)

// IsTerminal reports whether the state is finished.
func IsTerminal(s TaskState) bool {
	switch s {
	case TaskCompleted, TaskFailed, TaskSkipped:
		return true
	default:
		return false
	}
}

// IsSuccessful reports whether the state satisfies dependents.
func IsSuccessful(s TaskState) bool {
	return s == TaskCompleted
}

// Transition performs a validated transition for a single task. The caller
// supplies the expected prior state so races become observable errors.
func Transition(state ExecutionState, taskName string, from, to TaskState) error {
	cur, ok := state[taskName]
	if !ok {
		return fmt.Errorf("unknown task in state: %q", taskName)
	}
	if cur != from {
		return fmt.Errorf("invalid transition for %q: expected %s, got %s", taskName, from, cur)
	}
	if !isAllowedTransition(from, to) {
		return fmt.Errorf("disallowed transition for %q: %s -> %s", taskName, from, to)
	}
	state[taskName] = to
	return nil
}

func isAllowedTransition(from, to TaskState) bool {
	switch from {
	case TaskPending:
		return to == TaskRunning || to == TaskSkipped
	case TaskRunning:
		return to == TaskCompleted || to == TaskFailed
	default:
		return false
	}
}

// FailAndPropagate moves taskName from RUNNING to FAILED and marks every
// transitive dependent that is still PENDING as SKIPPED. It returns the
// skipped names in canonical order.
//
// A downstream task found RUNNING is an invariant violation: the serial
// executor never starts a task before its deps are terminal.
func FailAndPropagate(g *TaskGraph, state ExecutionState, taskName string) ([]string, error) {
	if g == nil {
		return nil, fmt.Errorf("nil graph")
	}
	node, ok := g.nodesByName[taskName]
	if !ok {
		return nil, unknownTask(taskName)
	}
	if err := Transition(state, taskName, TaskRunning, TaskFailed); err != nil {
		return nil, err
	}

	start := node.canonicalIndex
	visited := make([]bool, len(g.nodes))
	visited[start] = true

	hq := &intMinHeap{}
	for _, d := range g.outgoing[start] {
		heap.Push(hq, d)
	}

	var skipped []string
	for hq.Len() > 0 {
		u := heap.Pop(hq).(int)
		if visited[u] {
			continue
		}
		visited[u] = true

		name := g.nodes[u].Name
		switch st := state[name]; st {
		case TaskPending:
			state[name] = TaskSkipped
			skipped = append(skipped, name)
		case TaskRunning:
			return skipped, fmt.Errorf("invariant violation: downstream task %q is RUNNING during failure propagation", name)
		}

		for _, v := range g.outgoing[u] {
			if !visited[v] {
				heap.Push(hq, v)
			}
		}
	}
	return skipped, nil
}

// SkipPending marks every PENDING task SKIPPED and returns their names in
// canonical order. Used when execution stops early.
func SkipPending(g *TaskGraph, state ExecutionState) []string {
	var skipped []string
	for _, n := range g.nodes {
		if state[n.Name] == TaskPending {
			state[n.Name] = TaskSkipped
			skipped = append(skipped, n.Name)
		}
	}
	return skipped
}
