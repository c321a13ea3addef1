package dag

import (
	"context"
	"fmt"
	"sync"

	"loggerbuild/internal/core"
	"loggerbuild/internal/trace"
)

// TaskRunner executes a single task body.
//
// A body failure (action error, non-zero exit) is reported through the
// NodeResult and fails only that task. A non-nil error means the runner
// itself broke and aborts the whole execution.
type TaskRunner interface {
	Run(ctx context.Context, task core.Task) (*NodeResult, error)
}

// TaskRunnerFunc adapts a function to TaskRunner.
type TaskRunnerFunc func(ctx context.Context, task core.Task) (*NodeResult, error)

func (f TaskRunnerFunc) Run(ctx context.Context, task core.Task) (*NodeResult, error) {
	return f(ctx, task)
}

// Executor executes a TaskGraph serially.
type Executor struct {
	Graph  *TaskGraph
	Runner TaskRunner

	// Trace receives one event per task decision. Optional.
	Trace trace.Sink

	// Targets are the task names the user asked for; every other task in
	// the graph is recorded as running because it is a dependency.
	Targets []string

	mu    sync.Mutex
	state ExecutionState
}

// NewExecutor creates an executor with all tasks PENDING.
func NewExecutor(g *TaskGraph, runner TaskRunner) (*Executor, error) {
	if g == nil {
		return nil, fmt.Errorf("nil graph")
	}
	if runner == nil {
		return nil, fmt.Errorf("nil runner")
	}

	state := make(ExecutionState, len(g.nodes))
	for _, n := range g.nodes {
		state[n.Name] = TaskPending
	}
	return &Executor{Graph: g, Runner: runner, state: state}, nil
}

// StateSnapshot returns a copy of the current execution state.
func (e *Executor) StateSnapshot() ExecutionState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// RunSerial executes the graph one task at a time.
//
//   - The next task is always the first element of GetReadyTasks.
//   - State mutations happen under e.mu; task bodies run outside it.
//   - A failed task skips its transitive dependents; independent tasks
//     still run.
//   - Cancellation is checked before each task; remaining tasks are
//     skipped and the context error is returned with the partial result.
func (e *Executor) RunSerial(ctx context.Context) (*GraphResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	res := &GraphResult{
		GraphHash: e.Graph.Hash(),
		Results:   make(map[string]*NodeResult, len(e.Graph.nodes)),
	}

	for {
		e.mu.Lock()
		if err := ctx.Err(); err != nil {
			for _, name := range SkipPending(e.Graph, e.state) {
				e.record(trace.EventTaskSkipped, name, trace.ReasonCancelled, "", nil)
			}
			res.FinalState = e.state.Clone()
			e.mu.Unlock()
			return res, fmt.Errorf("execution cancelled: %w", err)
		}

		ready := GetReadyTasks(e.Graph, e.state)
		if len(ready) == 0 {
			allTerminal := true
			for _, st := range e.state {
				if !IsTerminal(st) {
					allTerminal = false
					break
				}
			}
			res.FinalState = e.state.Clone()
			e.mu.Unlock()
			if !allTerminal {
				return res, fmt.Errorf("no ready tasks but graph not finished")
			}
			return res, nil
		}

		next := ready[0]
		task := e.Graph.nodesByName[next].Task
		if err := Transition(e.state, next, TaskPending, TaskRunning); err != nil {
			e.mu.Unlock()
			return res, err
		}
		res.ExecutionOrder = append(res.ExecutionOrder, next)
		e.mu.Unlock()

		nodeRes, err := e.Runner.Run(ctx, task)
		if err != nil {
			return res, fmt.Errorf("executing %q: %w", next, err)
		}
		if nodeRes == nil {
			return res, fmt.Errorf("executing %q: nil result", next)
		}

		e.mu.Lock()
		res.Results[next] = nodeRes
		if !nodeRes.Failed() {
			err = Transition(e.state, next, TaskRunning, TaskCompleted)
			e.record(trace.EventTaskExecuted, next, e.reason(next), "", nodeRes.Artifacts)
			e.mu.Unlock()
			if err != nil {
				return res, err
			}
			continue
		}

		reason := trace.ReasonActionError
		if nodeRes.Err == nil {
			reason = trace.ReasonNonZeroExit
		}
		e.record(trace.EventTaskFailed, next, reason, "", nil)
		skipped, err := FailAndPropagate(e.Graph, e.state, next)
		for _, name := range skipped {
			e.record(trace.EventTaskSkipped, name, trace.ReasonUpstreamFailed, next, nil)
		}
		e.mu.Unlock()
		if err != nil {
			return res, err
		}
	}
}

func (e *Executor) reason(name string) string {
	for _, t := range e.Targets {
		if t == name {
			return trace.ReasonRequested
		}
	}
	return trace.ReasonDependency
}

func (e *Executor) record(kind trace.EventKind, name, reason, cause string, artifacts []string) {
	trace.SafeRecord(e.Trace, trace.TraceEvent{
		Kind:        kind,
		TaskID:      name,
		Reason:      reason,
		CauseTaskID: cause,
		Artifacts:   artifacts,
	})
}
