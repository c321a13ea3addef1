package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"loggerbuild/internal/config"
	"loggerbuild/internal/dag"
	"loggerbuild/internal/logging"
	"loggerbuild/internal/pipeline"
)

const (
	ExitSuccess           = 0
	ExitGraphFailure      = 1
	ExitInvalidInvocation = 2
	ExitConfigError       = 3
	ExitInternalError     = 4
)

// flagValues holds the raw persistent flags as typed by the user.
type flagValues struct {
	workDir   string
	config    string
	trace     string
	verbose   bool
	logFormat string
}

// Invocation is the canonical description of a run. All paths are absolute
// and cleaned; relative flag values are resolved against WorkDir, never the
// process working directory.
type Invocation struct {
	WorkDir string

	// ConfigPath is the config file. ConfigRequired is set when it was
	// named explicitly, making a missing file an error.
	ConfigPath     string
	ConfigRequired bool

	// TracePath is empty when no trace is requested.
	TracePath string

	Verbose   bool
	LogFormat string
}

type InvocationError struct {
	ExitCode int
	Message  string
}

func (e *InvocationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func invalidInvocationf(format string, args ...any) error {
	return &InvocationError{ExitCode: ExitInvalidInvocation, Message: fmt.Sprintf(format, args...)}
}

func configErrorf(format string, args ...any) error {
	return &InvocationError{ExitCode: ExitConfigError, Message: fmt.Sprintf(format, args...)}
}

// resolveInvocation canonicalizes flag values. An empty workdir means the
// process working directory, looked up once here.
func resolveInvocation(f flagValues) (Invocation, error) {
	workDir := strings.TrimSpace(f.workDir)
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return Invocation{}, fmt.Errorf("resolve working directory: %w", err)
		}
		workDir = wd
	}
	abs, err := filepath.Abs(workDir)
	if err != nil {
		return Invocation{}, invalidInvocationf("invalid --workdir %q: %v", f.workDir, err)
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return Invocation{}, invalidInvocationf("--workdir %q is not a directory", f.workDir)
	}

	format := strings.ToLower(strings.TrimSpace(f.logFormat))
	switch format {
	case "":
		format = logging.FormatConsole
	case logging.FormatConsole, logging.FormatJSON:
	default:
		return Invocation{}, invalidInvocationf("invalid --log-format %q (expected %s|%s)", f.logFormat, logging.FormatConsole, logging.FormatJSON)
	}

	inv := Invocation{
		WorkDir:    abs,
		ConfigPath: filepath.Join(abs, config.DefaultFileName),
		Verbose:    f.verbose,
		LogFormat:  format,
	}
	if strings.TrimSpace(f.config) != "" {
		p, err := resolveUnderWorkDir(abs, f.config)
		if err != nil {
			return Invocation{}, err
		}
		inv.ConfigPath = p
		inv.ConfigRequired = true
	}
	if strings.TrimSpace(f.trace) != "" {
		p, err := resolveUnderWorkDir(abs, f.trace)
		if err != nil {
			return Invocation{}, err
		}
		inv.TracePath = p
	}
	return inv, nil
}

func resolveUnderWorkDir(workDir, p string) (string, error) {
	clean := filepath.Clean(strings.TrimSpace(p))
	if clean == "." {
		return "", invalidInvocationf("path must not be '.'")
	}
	if filepath.IsAbs(clean) {
		return clean, nil
	}
	return filepath.Join(workDir, clean), nil
}

// ExitCode maps an error returned by the command tree to a semantic exit
// code. Unknown errors map to ExitInternalError.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var invErr *InvocationError
	if errors.As(err, &invErr) && invErr != nil {
		if invErr.ExitCode != 0 {
			return invErr.ExitCode
		}
		return ExitInvalidInvocation
	}
	switch {
	case errors.Is(err, pipeline.ErrTasksFailed):
		return ExitGraphFailure
	case errors.Is(err, dag.ErrUnknownTask):
		return ExitInvalidInvocation
	case errors.Is(err, config.ErrInvalid),
		errors.Is(err, dag.ErrInvalidGraph),
		errors.Is(err, dag.ErrCycleFound):
		// The graph is built from the config file.
		return ExitConfigError
	}
	return ExitInternalError
}
