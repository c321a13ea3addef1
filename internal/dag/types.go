package dag

import "loggerbuild/internal/core"

// GraphHash is the deterministic identity of a TaskGraph, stable across
// insertion orders of tasks and deps.
type GraphHash string

// TaskDefHash is the deterministic identity of a single task definition.
type TaskDefHash string

// Edge represents a dependency relation: To depends on From, so From must
// complete successfully before To runs.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// TaskNode is an immutable node in the TaskGraph.
type TaskNode struct {
	Name           string
	Task           core.Task
	DefinitionHash TaskDefHash
	canonicalIndex int
}

// CanonicalIndex returns the node's position in the graph's canonical ordering.
func (n *TaskNode) CanonicalIndex() int { return n.canonicalIndex }

func (h GraphHash) String() string { return string(h) }

func (h TaskDefHash) String() string { return string(h) }
