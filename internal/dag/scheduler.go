package dag

import "sort"

// GetReadyTasks returns the names of tasks eligible to run, in order.
//
// Policy:
//   - A task is ready iff it is PENDING and all its dependencies are COMPLETED.
//   - The list is sorted by (topological depth asc, task name asc).
//
// This function is pure: it does not mutate graph or state.
func GetReadyTasks(g *TaskGraph, state ExecutionState) []string {
	if g == nil {
		return nil
	}

	var ready []string
	for _, node := range g.nodes {
		if state[node.Name] != TaskPending {
			continue
		}
		depsOK := true
		for _, p := range g.incoming[node.canonicalIndex] {
			if !IsSuccessful(state[g.nodes[p].Name]) {
				depsOK = false
				break
			}
		}
		if depsOK {
			ready = append(ready, node.Name)
		}
	}

	sort.SliceStable(ready, func(i, j int) bool {
		di, _ := g.Depth(ready[i])
		dj, _ := g.Depth(ready[j])
		if di != dj {
			return di < dj
		}
		return ready[i] < ready[j]
	})
	return ready
}
