// Package trace records what the task orchestrator decided during one
// invocation: which tasks ran, which failed, which were skipped and why.
//
// The canonical form contains no timestamps, durations or error strings, so
// two invocations that made the same decisions produce identical bytes.
package trace

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// EventKind discriminates TraceEvent. The string values are part of the
// canonical bytes; do not rename.
type EventKind string

const (
	EventTaskExecuted EventKind = "TaskExecuted"
	EventTaskFailed   EventKind = "TaskFailed"
	EventTaskSkipped  EventKind = "TaskSkipped"
)

// Reason codes.
const (
	ReasonRequested      = "Requested"
	ReasonDependency     = "Dependency"
	ReasonActionError    = "ActionError"
	ReasonNonZeroExit    = "NonZeroExit"
	ReasonUpstreamFailed = "UpstreamFailed"
	ReasonCancelled      = "Cancelled"
)

// ExecutionTrace is the canonical record of one graph execution.
type ExecutionTrace struct {
	GraphHash string       `json:"graphHash"`
	Events    []TraceEvent `json:"events"`
}

// TraceEvent is a single logical decision about a task.
type TraceEvent struct {
	Kind   EventKind `json:"kind"`
	TaskID string    `json:"taskId"`

	// Reason is a stable code from the Reason* constants.
	Reason string `json:"reason,omitempty"`

	// CauseTaskID names the upstream task behind a skip.
	CauseTaskID string `json:"causeTaskId,omitempty"`

	// Artifacts lists workdir-relative paths the task wrote.
	Artifacts []string `json:"artifacts,omitempty"`
}

// Validate checks basic invariants.
func (t *ExecutionTrace) Validate() error {
	if t == nil {
		return errors.New("trace is nil")
	}
	if t.GraphHash == "" {
		return errors.New("graphHash is required")
	}
	for i, e := range t.Events {
		if e.Kind == "" {
			return fmt.Errorf("events[%d].kind is required", i)
		}
		if e.TaskID == "" {
			return fmt.Errorf("events[%d].taskId is required", i)
		}
		for j, a := range e.Artifacts {
			if a == "" {
				return fmt.Errorf("events[%d].artifacts[%d] is empty", i, j)
			}
		}
	}
	return nil
}

// Canonicalize sorts artifacts, normalizes empty slices to nil and orders
// events by (taskId, kind, reason, causeTaskId).
func (t *ExecutionTrace) Canonicalize() {
	if t == nil {
		return
	}
	for i := range t.Events {
		if len(t.Events[i].Artifacts) == 0 {
			t.Events[i].Artifacts = nil
			continue
		}
		art := append([]string(nil), t.Events[i].Artifacts...)
		sort.Strings(art)
		t.Events[i].Artifacts = art
	}

	sort.SliceStable(t.Events, func(i, j int) bool {
		a, b := t.Events[i], t.Events[j]
		if a.TaskID != b.TaskID {
			return a.TaskID < b.TaskID
		}
		if kindOrder(a.Kind) != kindOrder(b.Kind) {
			return kindOrder(a.Kind) < kindOrder(b.Kind)
		}
		if a.Reason != b.Reason {
			return a.Reason < b.Reason
		}
		return a.CauseTaskID < b.CauseTaskID
	})
}

func kindOrder(k EventKind) int {
	switch k {
	case EventTaskExecuted:
		return 10
	case EventTaskFailed:
		return 20
	case EventTaskSkipped:
		return 30
	default:
		return 1000
	}
}

// CanonicalJSON returns the canonical encoding without mutating t.
func (t ExecutionTrace) CanonicalJSON() ([]byte, error) {
	cp := ExecutionTrace{GraphHash: t.GraphHash, Events: make([]TraceEvent, len(t.Events))}
	copy(cp.Events, t.Events)
	cp.Canonicalize()
	if err := cp.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(cp)
}

// Hash returns the sha256 hex of the canonical encoding.
func (t ExecutionTrace) Hash() (string, error) {
	b, err := t.CanonicalJSON()
	if err != nil {
		return "", err
	}
	return ComputeTraceHash(b), nil
}
