package core

import "fmt"

// Built-in action names understood by the pipeline runner.
const (
	ActionClean  = "clean"
	ActionBundle = "bundle"
	ActionTest   = "test"
)

// Task represents a named, invokable unit of build logic.
//
// A task body is either a built-in Action, a shell command in Run, or empty.
// An empty body is valid: such a task only exists to trigger its Deps
// (the "default" task is the canonical example).
type Task struct {
	// Name is the identifier used on the command line and in Deps.
	Name string `json:"name" yaml:"name"`

	// Deps lists the names of tasks that must complete before this one.
	Deps []string `json:"deps,omitempty" yaml:"deps,omitempty"`

	// Action names a built-in body (clean, bundle, test).
	Action string `json:"action,omitempty" yaml:"action,omitempty"`

	// Run is a shell command, interpreted by sh -c in the working directory.
	Run string `json:"run,omitempty" yaml:"run,omitempty"`

	// Env is the environment visible to a Run command.
	// Only variables listed here are visible.
	Env map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
}

// HasBody reports whether the task does anything beyond triggering its deps.
func (t Task) HasBody() bool {
	return t.Action != "" || t.Run != ""
}

// Validate checks the task in isolation. Graph-level checks (unknown deps,
// cycles) belong to the dag package.
func (t Task) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("task name is required")
	}
	if t.Action != "" && t.Run != "" {
		return fmt.Errorf("task %q: action and run are mutually exclusive", t.Name)
	}
	switch t.Action {
	case "", ActionClean, ActionBundle, ActionTest:
	default:
		return fmt.Errorf("task %q: unknown action %q", t.Name, t.Action)
	}
	return nil
}
