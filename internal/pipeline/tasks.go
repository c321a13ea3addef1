// Package pipeline wires the built-in build tasks (clean, build, test,
// default) and user tasks into a task graph and runs them.
package pipeline

import (
	"fmt"
	"sort"

	"loggerbuild/internal/config"
	"loggerbuild/internal/core"
)

// Built-in task names.
const (
	TaskClean   = "clean"
	TaskBuild   = "build"
	TaskTest    = "test"
	TaskDefault = "default"
)

// DefaultTasks returns the built-in task table.
func DefaultTasks() []core.Task {
	return []core.Task{
		{Name: TaskClean, Action: core.ActionClean},
		{Name: TaskBuild, Deps: []string{TaskClean}, Action: core.ActionBundle},
		{Name: TaskTest, Deps: []string{TaskBuild}, Action: core.ActionTest},
		{Name: TaskDefault, Deps: []string{TaskBuild}},
	}
}

// Tasks merges the user tasks of cfg into the built-in table. User tasks
// cannot redefine a built-in.
func Tasks(cfg config.Config) ([]core.Task, error) {
	tasks := DefaultTasks()
	builtin := make(map[string]struct{}, len(tasks))
	for _, t := range tasks {
		builtin[t.Name] = struct{}{}
	}
	for _, t := range cfg.Tasks {
		if _, ok := builtin[t.Name]; ok {
			return nil, fmt.Errorf("%w: task %q redefines a built-in task", config.ErrInvalid, t.Name)
		}
		tasks = append(tasks, t)
	}
	sort.SliceStable(tasks, func(i, j int) bool { return tasks[i].Name < tasks[j].Name })
	return tasks, nil
}
