package dag

import (
	"crypto/sha256"
	"sort"

	"loggerbuild/internal/core"
)

type edgeIndex struct {
	from int
	to   int
}

// TaskGraph is an immutable, validated DAG definition.
//
// It is safe for concurrent read access.
type TaskGraph struct {
	nodesByName map[string]*TaskNode
	nodes       []*TaskNode // canonical order (by name)

	edges []edgeIndex // sorted

	outgoing [][]int // dependents, by canonical index, sorted ascending
	incoming [][]int // dependencies, by canonical index, sorted ascending
	indeg    []int
	depth    []int

	hash GraphHash
}

// NewTaskGraph builds and validates a TaskGraph. Edges are derived from each
// task's Deps.
//
// Validation rejects:
//   - invalid tasks (see core.Task.Validate)
//   - duplicate task names
//   - deps on unknown tasks, self deps and duplicate deps
//   - any cycle (direct or indirect)
func NewTaskGraph(tasks []core.Task) (*TaskGraph, error) {
	if len(tasks) == 0 {
		return nil, invalidf("no tasks")
	}

	nodesByName := make(map[string]*TaskNode, len(tasks))
	nodes := make([]*TaskNode, 0, len(tasks))
	for _, t := range tasks {
		if err := t.Validate(); err != nil {
			return nil, invalidf("%v", err)
		}
		if _, exists := nodesByName[t.Name]; exists {
			return nil, invalidf("duplicate task name: %q", t.Name)
		}
		node := &TaskNode{Name: t.Name, Task: t, DefinitionHash: computeTaskDefHash(t)}
		nodesByName[t.Name] = node
		nodes = append(nodes, node)
	}

	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Name < nodes[j].Name })
	for i, n := range nodes {
		n.canonicalIndex = i
	}

	var mapped []edgeIndex
	for _, n := range nodes {
		seen := make(map[string]struct{}, len(n.Task.Deps))
		for _, dep := range n.Task.Deps {
			from, ok := nodesByName[dep]
			if !ok {
				return nil, invalidf("task %q depends on unknown task %q", n.Name, dep)
			}
			if dep == n.Name {
				return nil, invalidf("task %q depends on itself", n.Name)
			}
			if _, dup := seen[dep]; dup {
				return nil, invalidf("task %q lists dependency %q twice", n.Name, dep)
			}
			seen[dep] = struct{}{}
			mapped = append(mapped, edgeIndex{from: from.canonicalIndex, to: n.canonicalIndex})
		}
	}

	sort.Slice(mapped, func(i, j int) bool {
		a, b := mapped[i], mapped[j]
		if a.from != b.from {
			return a.from < b.from
		}
		return a.to < b.to
	})

	outgoing := make([][]int, len(nodes))
	incoming := make([][]int, len(nodes))
	indeg := make([]int, len(nodes))
	for _, e := range mapped {
		outgoing[e.from] = append(outgoing[e.from], e.to)
		incoming[e.to] = append(incoming[e.to], e.from)
		indeg[e.to]++
	}
	for i := range nodes {
		sort.Ints(outgoing[i])
		sort.Ints(incoming[i])
	}

	g := &TaskGraph{
		nodesByName: nodesByName,
		nodes:       nodes,
		edges:       mapped,
		outgoing:    outgoing,
		incoming:    incoming,
		indeg:       indeg,
	}
	if err := g.validateAcyclic(); err != nil {
		return nil, err
	}
	g.depth = g.computeDepth()
	g.hash = g.computeGraphHash()
	return g, nil
}

// Closure returns the subgraph made of targets and all their transitive
// dependencies. Targets must exist.
func (g *TaskGraph) Closure(targets ...string) (*TaskGraph, error) {
	if len(targets) == 0 {
		return nil, invalidf("no targets")
	}
	keep := make([]bool, len(g.nodes))
	var visit func(i int)
	visit = func(i int) {
		if keep[i] {
			return
		}
		keep[i] = true
		for _, p := range g.incoming[i] {
			visit(p)
		}
	}
	for _, name := range targets {
		n, ok := g.nodesByName[name]
		if !ok {
			return nil, unknownTask(name)
		}
		visit(n.canonicalIndex)
	}

	tasks := make([]core.Task, 0, len(g.nodes))
	for i, n := range g.nodes {
		if keep[i] {
			tasks = append(tasks, n.Task)
		}
	}
	return NewTaskGraph(tasks)
}

// Hash returns the stable identity for this graph.
func (g *TaskGraph) Hash() GraphHash { return g.hash }

// Len returns the number of tasks.
func (g *TaskGraph) Len() int { return len(g.nodes) }

// Node returns a node by name.
func (g *TaskGraph) Node(name string) (*TaskNode, bool) {
	n, ok := g.nodesByName[name]
	return n, ok
}

// Nodes returns the nodes in canonical order.
func (g *TaskGraph) Nodes() []*TaskNode {
	out := make([]*TaskNode, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Edges returns the dependency edges as (From, To) name pairs in canonical order.
func (g *TaskGraph) Edges() []Edge {
	out := make([]Edge, 0, len(g.edges))
	for _, e := range g.edges {
		out = append(out, Edge{From: g.nodes[e.from].Name, To: g.nodes[e.to].Name})
	}
	return out
}

// Dependents returns the names of tasks that directly depend on name.
func (g *TaskGraph) Dependents(name string) []string {
	n, ok := g.nodesByName[name]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(g.outgoing[n.canonicalIndex]))
	for _, i := range g.outgoing[n.canonicalIndex] {
		out = append(out, g.nodes[i].Name)
	}
	return out
}

// Depth returns the topological depth of the named node: the length of the
// longest path from any root to it.
func (g *TaskGraph) Depth(name string) (int, bool) {
	n, ok := g.nodesByName[name]
	if !ok {
		return 0, false
	}
	return g.depth[n.canonicalIndex], true
}

func (g *TaskGraph) computeDepth() []int {
	depth := make([]int, len(g.nodes))
	for _, u := range g.topoOrderIndices() {
		for _, p := range g.incoming[u] {
			if d := depth[p] + 1; d > depth[u] {
				depth[u] = d
			}
		}
	}
	return depth
}

// TopologicalOrder returns a deterministic topological ordering of task names.
func (g *TaskGraph) TopologicalOrder() []string {
	order := g.topoOrderIndices()
	names := make([]string, 0, len(order))
	for _, idx := range order {
		names = append(names, g.nodes[idx].Name)
	}
	return names
}

func (g *TaskGraph) computeGraphHash() GraphHash {
	w := fieldWriter{h: sha256.New()}

	w.writeInt(len(g.nodes))
	for _, n := range g.nodes {
		w.writeString(string(n.DefinitionHash))
	}

	w.writeInt(len(g.edges))
	for _, e := range g.edges {
		w.writeInt(e.from)
		w.writeInt(e.to)
	}
	return GraphHash(w.sum())
}
