package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"loggerbuild/internal/dag"
	"loggerbuild/internal/trace"
)

// Run is the process entrypoint. It accepts the argument slice (excluding
// argv[0]) and returns the semantic exit code. Errors are printed to stderr.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := newApp(stdout, stderr)
	defer a.sync()

	root := a.rootCommand()
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "loggerbuild: %v\n", err)
	}
	return ExitCode(err)
}

// runTasks runs targets (default "default") and writes the trace if asked.
func (a *app) runTasks(cmd *cobra.Command, targets []string) error {
	start := time.Now()
	rec := trace.NewRecorder()
	res, err := a.pipeline().Run(cmd.Context(), targets, rec)
	if res == nil {
		return err
	}

	if a.inv.TracePath != "" {
		if werr := rec.WriteFile(a.inv.TracePath, string(res.GraphHash)); werr != nil {
			a.log.Error("cannot write trace", "path", a.inv.TracePath, "error", werr)
			if err == nil {
				err = werr
			}
		} else {
			h, _ := rec.Trace(string(res.GraphHash)).Hash()
			a.log.Debug("trace written", "path", a.inv.TracePath, "trace_hash", h)
		}
	}

	elapsed := time.Since(start).Round(time.Millisecond).String()
	if failed := res.FailedTasks(); len(failed) > 0 {
		a.log.Error("run failed", "failed", failed, "skipped", skipped(res), "elapsed", elapsed)
	} else if err == nil {
		a.log.Info("run finished", "tasks", res.ExecutionOrder, "elapsed", elapsed)
	}
	return err
}

func skipped(res *dag.GraphResult) []string {
	var out []string
	for name, st := range res.FinalState {
		if st == dag.TaskSkipped {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
