package cli

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"loggerbuild/internal/config"
	"loggerbuild/internal/core"
	"loggerbuild/internal/watch"
)

func (a *app) watchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch [task]",
		Short: "Run a task, then run it again whenever a source or spec changes",
		Long: `watch runs the task once (watch.task from the config, "build" by default)
and re-runs it after changes to .js files under the source, spec and helper
directories settle. It stops on interrupt.`,
		Args: maxArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			task := a.cfg.Watch.Task
			if len(args) == 1 {
				task = args[0]
			}
			return a.watch(cmd.Context(), task)
		},
	}
}

func (a *app) watch(ctx context.Context, task string) error {
	p := a.pipeline()
	g, err := p.Graph()
	if err != nil {
		return err
	}
	if _, err := g.Closure(task); err != nil {
		return err
	}

	// A failing run is logged and the watch goes on.
	run := func(ctx context.Context) {
		if _, err := p.Run(ctx, []string{task}, nil); err != nil && ctx.Err() == nil {
			a.log.Warn("watched task failed", "task", task, "error", err)
		}
	}
	run(ctx)
	if ctx.Err() != nil {
		return nil
	}

	w := watch.New(watchDirs(a.inv.WorkDir, a.cfg), func(ctx context.Context, changed []string) {
		a.log.Info("change detected", "task", task, "files", relPaths(a.inv.WorkDir, changed))
		run(ctx)
	}, a.log.Named("watch"))
	w.Debounce = a.cfg.Watch.Debounce
	w.Match = sourceMatcher(a.inv.WorkDir, a.cfg)
	if a.watchStarted != nil {
		go func() {
			select {
			case <-w.Ready():
				a.watchStarted()
			case <-ctx.Done():
			}
		}()
	}
	return w.Run(ctx)
}

// watchDirs returns the absolute directories holding the bundle sources and
// the static roots of the source, spec and helper globs, deduplicated.
func watchDirs(workDir string, cfg config.Config) []string {
	seen := make(map[string]struct{})
	var dirs []string
	add := func(rel string) {
		dir := filepath.Join(workDir, filepath.FromSlash(rel))
		if _, ok := seen[dir]; ok {
			return
		}
		seen[dir] = struct{}{}
		dirs = append(dirs, dir)
	}
	for _, src := range cfg.Bundle.Sources {
		add(filepath.Dir(src))
	}
	for _, group := range [][]string{cfg.Test.Sources, cfg.Test.Specs, cfg.Test.Helpers} {
		for _, pattern := range group {
			add(core.GlobBase(pattern))
		}
	}
	sort.Strings(dirs)
	return dirs
}

// sourceMatcher accepts .js files outside the directories the build itself
// writes to, so a run never triggers the next one.
func sourceMatcher(workDir string, cfg config.Config) func(string) bool {
	var generated []string
	for _, rel := range []string{cfg.Bundle.OutputDir, cfg.Test.DebugDir, cfg.Test.ReportsDir} {
		if rel != "" {
			generated = append(generated, filepath.Join(workDir, filepath.FromSlash(rel)))
		}
	}
	return func(path string) bool {
		if !strings.HasSuffix(path, ".js") {
			return false
		}
		for _, dir := range generated {
			if path == dir || strings.HasPrefix(path, dir+string(filepath.Separator)) {
				return false
			}
		}
		return true
	}
}

func relPaths(workDir string, paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		if rel, err := filepath.Rel(workDir, p); err == nil {
			p = filepath.ToSlash(rel)
		}
		out[i] = p
	}
	return out
}
