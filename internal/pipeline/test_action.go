package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/dop251/goja"

	"loggerbuild/internal/core"
	"loggerbuild/internal/cover"
	"loggerbuild/internal/dag"
	"loggerbuild/internal/specrun"
)

// test instruments the sources, runs every spec file against them, then
// saves the gathered coverage and writes the reports. Coverage is written
// even when specs fail; the task fails afterwards.
func (r *ActionRunner) test(ctx context.Context) *dag.NodeResult {
	res := &dag.NodeResult{}
	runErr := r.runTests(ctx, res)
	res.Err = runErr
	return res
}

func (r *ActionRunner) runTests(ctx context.Context, res *dag.NodeResult) error {
	cfg := r.p.Config.Test
	log := r.p.Log.With("task", TaskTest)
	resolver := core.NewResolver(r.p.WorkDir)

	// Instrument.
	srcPaths, err := resolver.Files(cfg.Sources)
	if err != nil {
		return fmt.Errorf("resolving sources: %w", err)
	}
	if len(srcPaths) == 0 {
		log.Warn("no source files matched", "patterns", cfg.Sources)
	}
	srcPaths = loadOrder(srcPaths, r.p.Config.Bundle.Sources)

	collector := cover.NewCollector()
	instrumenter := cover.NewInstrumenter()
	originals := make(map[string][]byte, len(srcPaths))
	sources := make([]specrun.Script, 0, len(srcPaths))
	for _, rel := range srcPaths {
		src, err := os.ReadFile(resolver.Abs(rel))
		if err != nil {
			return fmt.Errorf("reading %s: %w", rel, err)
		}
		code, fc, err := instrumenter.Instrument(ctx, rel, src)
		if err != nil {
			return fmt.Errorf("instrumenting: %w", err)
		}
		debugRel := path.Join(cfg.DebugDir, rel)
		if err := core.WriteFileAtomic(resolver.Abs(debugRel), code, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", debugRel, err)
		}
		res.Artifacts = append(res.Artifacts, debugRel)
		collector.Register(fc)
		originals[rel] = src
		sources = append(sources, specrun.Script{Path: rel, Code: code})
	}
	log.Debug("instrumented sources", "files", len(sources), "debug_dir", cfg.DebugDir)

	helpers, err := readScripts(resolver, cfg.Helpers)
	if err != nil {
		return fmt.Errorf("reading helpers: %w", err)
	}
	specs, err := readScripts(resolver, cfg.Specs)
	if err != nil {
		return fmt.Errorf("reading specs: %w", err)
	}
	if len(specs) == 0 {
		log.Warn("no spec files matched", "patterns", cfg.Specs)
	}

	// Execute.
	reporter := specrun.NewReporter(r.p.stdout())
	runner := &specrun.Runner{
		Helpers:           helpers,
		Sources:           sources,
		IncludeStackTrace: r.p.Config.IncludeStackTrace(),
		Timeout:           cfg.SpecTimeout,
		Console:           r.p.stdout(),
		Globals:           coverageHooks(collector),
	}
	result, runErr := runner.Run(ctx, specs, reporter.SuiteDone)
	reporter.Summary(result)
	if runErr != nil {
		return runErr
	}
	counts := result.Counts()
	log.Info("specs finished",
		"specs", counts.Specs, "failed", counts.Failed, "skipped", counts.Skipped,
		"broken_files", counts.BrokenSuites, "elapsed", result.Duration.Round(time.Millisecond).String())

	// Gather.
	data := collector.Data()
	if err := data.Save(resolver.Abs(cfg.CoverageFile)); err != nil {
		return err
	}
	res.Artifacts = append(res.Artifacts, cfg.CoverageFile)

	// Format and write.
	for _, name := range cfg.Formats {
		f, err := cover.FormatterFor(name)
		if err != nil {
			return err
		}
		files, err := f.Format(data, originals)
		if err != nil {
			return err
		}
		written, err := cover.WriteReport(resolver.Abs(cfg.ReportsDir), files)
		if err != nil {
			return err
		}
		for _, w := range written {
			res.Artifacts = append(res.Artifacts, path.Join(cfg.ReportsDir, w))
		}
	}
	sum := data.Summary()
	log.Info("coverage written",
		"reports_dir", cfg.ReportsDir,
		"statements", fmt.Sprintf("%.2f%%", sum.Statements.Pct()),
		"functions", fmt.Sprintf("%.2f%%", sum.Functions.Pct()))

	return result.Err()
}

// loadOrder puts the bundle sources first, in their declared order, since
// later files may read globals defined by earlier ones while loading. The
// remaining files keep their sorted order.
func loadOrder(paths, declared []string) []string {
	matched := make(map[string]bool, len(paths))
	for _, p := range paths {
		matched[p] = true
	}
	out := make([]string, 0, len(paths))
	first := make(map[string]bool, len(declared))
	for _, d := range declared {
		d = path.Clean(d)
		if matched[d] && !first[d] {
			first[d] = true
			out = append(out, d)
		}
	}
	for _, p := range paths {
		if !first[p] {
			out = append(out, p)
		}
	}
	return out
}

func readScripts(resolver *core.Resolver, patterns []string) ([]specrun.Script, error) {
	paths, err := resolver.Files(patterns)
	if err != nil {
		return nil, err
	}
	out := make([]specrun.Script, 0, len(paths))
	for _, rel := range paths {
		code, err := os.ReadFile(resolver.Abs(rel))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", rel, err)
		}
		out = append(out, specrun.Script{Path: rel, Code: code})
	}
	return out, nil
}

// coverageHooks binds the instrumentation hooks of every runtime to c.
func coverageHooks(c *cover.Collector) func(vm *goja.Runtime) error {
	return func(vm *goja.Runtime) error {
		hit := func(record func(string, int) error) func(string, int) {
			return func(file string, id int) {
				if err := record(file, id); err != nil {
					panic(vm.NewGoError(err))
				}
			}
		}
		return errors.Join(
			vm.Set(cover.StatementHook, hit(c.HitStatement)),
			vm.Set(cover.FunctionHook, hit(c.HitFunction)),
		)
	}
}
