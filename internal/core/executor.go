package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sort"
	"syscall"
)

// ExecutionResult is the outcome of running a shell task body.
type ExecutionResult struct {
	Stdout []byte
	Stderr []byte

	// ExitCode is the process exit code. 0 indicates success.
	ExitCode int
}

// Executor runs the Run command of a task with sh -c.
//
// The environment is an allowlist: it starts empty and only variables
// declared in Task.Env are added. If PATH is not declared, the command sees
// no PATH.
type Executor struct {
	// WorkingDir is the directory the command runs in.
	WorkingDir string

	// Stdout and Stderr, when set, receive a live copy of the output in
	// addition to the captured buffers.
	Stdout io.Writer
	Stderr io.Writer
}

// NewExecutor creates an Executor for workingDir.
func NewExecutor(workingDir string) *Executor {
	return &Executor{WorkingDir: workingDir}
}

// Execute runs task.Run. A non-zero exit is reported through ExitCode, not
// as an error; the error return is reserved for failures to start or wait
// on the process and for cancellation.
func (e *Executor) Execute(ctx context.Context, task Task) (*ExecutionResult, error) {
	if task.Run == "" {
		return nil, fmt.Errorf("task %q has no run command", task.Name)
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", task.Run)
	cmd.Dir = e.WorkingDir
	cmd.Env = isolatedEnv(task.Env)

	// Own process group so cancellation kills the whole tree.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = teeTo(&stdout, e.Stdout)
	cmd.Stderr = teeTo(&stderr, e.Stderr)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start command: %w", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	var err error
	select {
	case <-ctx.Done():
		if cmd.Process != nil {
			_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		}
		<-done
		return nil, fmt.Errorf("execution cancelled: %w", ctx.Err())
	case err = <-done:
	}

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("failed to execute command: %w", err)
		}
		exitCode = exitErr.ExitCode()
	}

	return &ExecutionResult{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: exitCode,
	}, nil
}

func teeTo(buf *bytes.Buffer, w io.Writer) io.Writer {
	if w == nil {
		return buf
	}
	return io.MultiWriter(buf, w)
}

// isolatedEnv builds the allowlisted environment in sorted key order.
func isolatedEnv(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}
