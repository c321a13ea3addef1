// Package cli is the command-line surface of loggerbuild.
package cli

import (
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"loggerbuild/internal/config"
	"loggerbuild/internal/logging"
	"loggerbuild/internal/pipeline"
)

// app carries state shared by the commands of one process invocation.
type app struct {
	flags  flagValues
	stdout io.Writer
	stderr io.Writer

	inv Invocation
	cfg config.Config
	log *logging.Logger

	// watchStarted, when set, is called once the watcher is ready.
	watchStarted func()
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{stdout: stdout, stderr: stderr}
}

// rootCommand builds the command tree. Commands do not print errors; Run does.
func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "loggerbuild [task...]",
		Short: "Build, test and package the logger library",
		Long: `loggerbuild runs the build tasks of the logger library.

Built-in tasks:
  clean     remove dist/*, reports, debug and .coverdata
  build     minify and concatenate the sources into dist/logger.min.js (after clean)
  test      instrument sources, run the specs and write coverage reports (after build)
  default   run build

With no task, "default" runs. Extra tasks can be declared in loggerbuild.yaml.`,
		Args:              cobra.ArbitraryArgs,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTasks(cmd, args)
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return invalidInvocationf("%v", err)
	})

	pf := root.PersistentFlags()
	pf.StringVarP(&a.flags.workDir, "workdir", "C", "", "Project directory (default: current directory)")
	pf.StringVarP(&a.flags.config, "config", "c", "", "Config file (default: "+config.DefaultFileName+" in the project directory, optional)")
	pf.StringVar(&a.flags.trace, "trace", "", "Write the execution trace as JSON to this path")
	pf.BoolVarP(&a.flags.verbose, "verbose", "v", false, "Enable debug logging")
	pf.StringVar(&a.flags.logFormat, "log-format", logging.FormatConsole, "Log format: console|json")

	root.AddCommand(a.listCommand(), a.watchCommand())
	return root
}

// setup canonicalizes flags, builds the logger and loads the config.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	inv, err := resolveInvocation(a.flags)
	if err != nil {
		return err
	}
	a.inv = inv

	log, err := logging.New(logging.Options{
		Format:  inv.LogFormat,
		Verbose: inv.Verbose,
		Output:  a.stderr,
	})
	if err != nil {
		return invalidInvocationf("%v", err)
	}
	a.log = log.With("run_id", uuid.NewString())

	cfg, err := config.Load(inv.ConfigPath, inv.ConfigRequired)
	if err != nil {
		return configErrorf("%v", err)
	}
	a.cfg = cfg
	a.log.Debug("invocation", "command", cmd.CommandPath(), "workdir", inv.WorkDir, "config", inv.ConfigPath)
	return nil
}

func (a *app) pipeline() *pipeline.Pipeline {
	p := pipeline.New(a.inv.WorkDir, a.cfg, a.log)
	p.Stdout = a.stdout
	p.Stderr = a.stderr
	return p
}

// maxArgs is cobra.MaximumNArgs reporting an invalid invocation.
func maxArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) > n {
			return invalidInvocationf("%s accepts at most %d arg(s), received %d", cmd.CommandPath(), n, len(args))
		}
		return nil
	}
}

func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return invalidInvocationf("unexpected arguments for %s: %q", cmd.CommandPath(), args)
	}
	return nil
}

func (a *app) sync() {
	if a.log != nil {
		a.log.Sync()
	}
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.stdout, format, args...)
}
