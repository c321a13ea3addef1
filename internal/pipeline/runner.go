package pipeline

import (
	"context"
	"fmt"
	"time"

	"loggerbuild/internal/bundle"
	"loggerbuild/internal/clean"
	"loggerbuild/internal/core"
	"loggerbuild/internal/dag"
)

// ActionRunner runs task bodies: built-in actions, shell commands, or
// nothing for empty tasks.
type ActionRunner struct {
	p     *Pipeline
	shell *core.Executor
}

var _ dag.TaskRunner = (*ActionRunner)(nil)

// NewActionRunner returns a runner for the tasks of p.
func NewActionRunner(p *Pipeline) *ActionRunner {
	shell := core.NewExecutor(p.WorkDir)
	shell.Stdout = p.Stdout
	shell.Stderr = p.Stderr
	return &ActionRunner{p: p, shell: shell}
}

// Run executes the body of task and logs its lifecycle.
func (r *ActionRunner) Run(ctx context.Context, task core.Task) (*dag.NodeResult, error) {
	log := r.p.Log.With("task", task.Name)
	start := time.Now()
	log.Info("starting task")

	var (
		res *dag.NodeResult
		err error
	)
	switch {
	case task.Action == core.ActionClean:
		res = r.clean(ctx)
	case task.Action == core.ActionBundle:
		res = r.bundle(ctx)
	case task.Action == core.ActionTest:
		res = r.test(ctx)
	case task.Action != "":
		err = fmt.Errorf("unknown action %q", task.Action)
	case task.Run != "":
		res = r.run(ctx, task)
	default:
		res = &dag.NodeResult{}
	}
	if err != nil {
		log.Error("task aborted", "error", err)
		return nil, err
	}

	elapsed := time.Since(start).Round(time.Millisecond)
	if res.Failed() {
		failure := res.Err
		if failure == nil {
			failure = fmt.Errorf("exit status %d", res.ExitCode)
		}
		log.Error("task failed", "elapsed", elapsed.String(), "error", failure.Error())
		return res, nil
	}
	log.Info("finished task", "elapsed", elapsed.String())
	return res, nil
}

func (r *ActionRunner) clean(ctx context.Context) *dag.NodeResult {
	removed, err := clean.New(r.p.WorkDir, r.p.Config.Clean.Patterns).Clean(ctx)
	for _, rel := range removed {
		r.p.Log.Debug("removed", "path", rel)
	}
	return &dag.NodeResult{Err: err}
}

func (r *ActionRunner) bundle(ctx context.Context) *dag.NodeResult {
	cfg := r.p.Config
	b := bundle.New(r.p.WorkDir)
	b.Sources = cfg.Bundle.Sources
	b.OutputDir = cfg.Bundle.OutputDir
	b.OutputName = cfg.Bundle.OutputName
	b.Separator = cfg.Separator()

	out, err := b.Bundle(ctx)
	if err != nil {
		return &dag.NodeResult{Err: err}
	}
	r.p.Log.Info("bundle written", "output", out.Output, "bytes", out.Size, "sources", len(b.Sources))
	return &dag.NodeResult{Artifacts: []string{out.Output}}
}

func (r *ActionRunner) run(ctx context.Context, task core.Task) *dag.NodeResult {
	out, err := r.shell.Execute(ctx, task)
	if err != nil {
		return &dag.NodeResult{Err: err}
	}
	return &dag.NodeResult{ExitCode: out.ExitCode, Stdout: out.Stdout, Stderr: out.Stderr}
}
