package dag

// TaskState is the runtime execution state of a node.
//
//	PENDING -> RUNNING -> COMPLETED | FAILED
//	PENDING -> SKIPPED
type TaskState string

const (
	TaskPending   TaskState = "PENDING"
	TaskRunning   TaskState = "RUNNING"
	TaskCompleted TaskState = "COMPLETED"
	TaskFailed    TaskState = "FAILED"
	TaskSkipped   TaskState = "SKIPPED"
)

// ExecutionState maps task name to its current TaskState. It is a plain map
// so the scheduler can stay a pure function over (graph, state).
type ExecutionState map[string]TaskState

// Clone returns an independent copy.
func (s ExecutionState) Clone() ExecutionState {
	cp := make(ExecutionState, len(s))
	for k, v := range s {
		cp[k] = v
	}
	return cp
}
