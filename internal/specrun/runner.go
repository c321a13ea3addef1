// Package specrun executes jasmine-style spec files in an embedded
// JavaScript runtime.
package specrun

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dop251/goja"
)

//go:embed harness.js
var harnessSrc string

var harness = goja.MustCompile("harness.js", harnessSrc, false)

var errSuiteTimeout = errors.New("spec file timed out")

// Script is a named piece of JavaScript to load into the runtime.
type Script struct {
	Path string
	Code []byte
}

// Runner executes spec files. Every file gets a fresh runtime in which the
// helpers, then the sources, then the spec file are loaded.
type Runner struct {
	// Helpers are third-party scripts loaded first (e.g. vendored libraries).
	Helpers []Script
	// Sources are the code under test, usually instrumented.
	Sources []Script

	IncludeStackTrace bool

	// Timeout bounds one spec file. Zero disables it.
	Timeout time.Duration

	// Console receives console.* output. Nil discards it.
	Console io.Writer

	// Globals installs extra globals into every fresh runtime.
	Globals func(vm *goja.Runtime) error
}

// Run executes specs in order. A failing spec or file never stops the run;
// only cancellation does, in which case the partial result is returned with
// the context error. onSuite, if set, is called after each file.
func (r *Runner) Run(ctx context.Context, specs []Script, onSuite func(SuiteResult)) (*Result, error) {
	start := time.Now()
	res := &Result{Suites: make([]SuiteResult, 0, len(specs))}
	for _, spec := range specs {
		if err := ctx.Err(); err != nil {
			res.Duration = time.Since(start)
			return res, err
		}
		sr := r.RunSuite(ctx, spec)
		res.Suites = append(res.Suites, sr)
		if onSuite != nil {
			onSuite(sr)
		}
	}
	res.Duration = time.Since(start)
	return res, ctx.Err()
}

// RunSuite executes one spec file in a fresh runtime.
func (r *Runner) RunSuite(ctx context.Context, spec Script) (sr SuiteResult) {
	start := time.Now()
	sr = SuiteResult{File: spec.Path}
	defer func() { sr.Duration = time.Since(start) }()

	vm := goja.New()
	defer r.watchdog(ctx, vm)()

	if err := r.setup(vm); err != nil {
		sr.LoadError = &Failure{Message: fmt.Sprintf("setting up runtime: %v", err)}
		return sr
	}

	scripts := make([]Script, 0, len(r.Helpers)+len(r.Sources)+1)
	scripts = append(scripts, r.Helpers...)
	scripts = append(scripts, r.Sources...)
	scripts = append(scripts, spec)
	for _, s := range scripts {
		if _, err := vm.RunScript(s.Path, string(s.Code)); err != nil {
			sr.LoadError = r.failure("loading "+s.Path, err)
			return sr
		}
	}

	out, err := vm.RunString("__harness.run()")
	if err != nil {
		sr.LoadError = r.failure("running specs", err)
		return sr
	}
	if err := json.Unmarshal([]byte(out.String()), &sr.Specs); err != nil {
		sr.LoadError = &Failure{Message: fmt.Sprintf("decoding spec results: %v", err)}
		return sr
	}
	if !r.IncludeStackTrace {
		for i := range sr.Specs {
			for j := range sr.Specs[i].Failures {
				sr.Specs[i].Failures[j].Stack = ""
			}
		}
	}
	return sr
}

func (r *Runner) setup(vm *goja.Runtime) error {
	if err := r.installConsole(vm); err != nil {
		return err
	}
	if r.Globals != nil {
		if err := r.Globals(vm); err != nil {
			return err
		}
	}
	_, err := vm.RunProgram(harness)
	return err
}

func (r *Runner) installConsole(vm *goja.Runtime) error {
	w := r.Console
	if w == nil {
		w = io.Discard
	}
	console := vm.NewObject()
	for _, level := range []string{"log", "info", "warn", "error", "debug"} {
		prefix := ""
		if level != "log" {
			prefix = "[" + level + "] "
		}
		fn := func(call goja.FunctionCall) goja.Value {
			parts := make([]string, len(call.Arguments))
			for i, a := range call.Arguments {
				parts[i] = a.String()
			}
			fmt.Fprintln(w, prefix+strings.Join(parts, " "))
			return goja.Undefined()
		}
		if err := console.Set(level, fn); err != nil {
			return err
		}
	}
	return vm.Set("console", console)
}

// watchdog interrupts vm on cancellation or timeout. The returned func
// releases both.
func (r *Runner) watchdog(ctx context.Context, vm *goja.Runtime) func() {
	stop := context.AfterFunc(ctx, func() { vm.Interrupt(ctx.Err()) })
	var timer *time.Timer
	if r.Timeout > 0 {
		timer = time.AfterFunc(r.Timeout, func() { vm.Interrupt(errSuiteTimeout) })
	}
	return func() {
		stop()
		if timer != nil {
			timer.Stop()
		}
	}
}

func (r *Runner) failure(what string, err error) *Failure {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		msg := fmt.Sprint(interrupted.Value())
		if interrupted.Value() == errSuiteTimeout {
			msg = fmt.Sprintf("%v after %s", errSuiteTimeout, r.Timeout)
		}
		return &Failure{Message: fmt.Sprintf("%s: %s", what, msg)}
	}

	f := &Failure{Message: fmt.Sprintf("%s: %v", what, err)}
	var ex *goja.Exception
	if errors.As(err, &ex) {
		f.Message = fmt.Sprintf("%s: %s", what, ex.Value().String())
		if r.IncludeStackTrace {
			f.Stack = ex.String()
		}
	}
	return f
}
