package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"

	"loggerbuild/internal/config"
	"loggerbuild/internal/dag"
	"loggerbuild/internal/logging"
	"loggerbuild/internal/trace"
)

// ErrTasksFailed is returned by Run when at least one task failed.
var ErrTasksFailed = errors.New("tasks failed")

// Pipeline runs tasks of one work dir.
type Pipeline struct {
	WorkDir string
	Config  config.Config
	Log     *logging.Logger

	// Stdout receives spec reports and shell task output. Nil discards it.
	Stdout io.Writer
	// Stderr receives shell task error output. Nil discards it.
	Stderr io.Writer
}

// New returns a Pipeline. A nil logger discards logs.
func New(workDir string, cfg config.Config, log *logging.Logger) *Pipeline {
	if log == nil {
		log = logging.Nop()
	}
	return &Pipeline{WorkDir: workDir, Config: cfg, Log: log}
}

// Graph builds the full task graph.
func (p *Pipeline) Graph() (*dag.TaskGraph, error) {
	tasks, err := Tasks(p.Config)
	if err != nil {
		return nil, err
	}
	return dag.NewTaskGraph(tasks)
}

// Run executes targets and their dependencies once each. sink may be nil.
//
// The returned error is a graph error (unknown target, invalid graph), a
// runner or cancellation error, or the joined failures of failed tasks. The
// result is non-nil whenever execution started.
func (p *Pipeline) Run(ctx context.Context, targets []string, sink trace.Sink) (*dag.GraphResult, error) {
	if len(targets) == 0 {
		targets = []string{TaskDefault}
	}
	g, err := p.Graph()
	if err != nil {
		return nil, err
	}
	sub, err := g.Closure(targets...)
	if err != nil {
		return nil, err
	}

	exec, err := dag.NewExecutor(sub, NewActionRunner(p))
	if err != nil {
		return nil, err
	}
	exec.Trace = sink
	exec.Targets = targets

	p.Log.Debug("execution plan", "targets", targets, "order", sub.TopologicalOrder(), "graph_hash", string(sub.Hash()))
	res, err := exec.RunSerial(ctx)
	if err != nil {
		return res, err
	}
	if err := res.Err(); err != nil {
		return res, fmt.Errorf("%w: %w", ErrTasksFailed, err)
	}
	return res, nil
}

func (p *Pipeline) stdout() io.Writer {
	if p.Stdout == nil {
		return io.Discard
	}
	return p.Stdout
}
