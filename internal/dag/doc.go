// Package dag models the build's task graph and executes it.
//
// It is split into:
//   - Immutable graph definition (TaskGraph): tasks, dependency edges derived
//     from each task's Deps, topological depth and a stable GraphHash
//   - Mutable execution state (ExecutionState): per-task TaskState
//
// Invoking a set of targets executes their dependency closure (see
// TaskGraph.Closure) serially in (depth, name) order. Each task runs at most
// once per execution, and a failure marks every transitive dependent SKIPPED.
package dag
