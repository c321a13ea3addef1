// Package config loads loggerbuild.yaml.
//
// Every field is optional; an absent file yields Default(), which matches the
// library's historical gulp pipeline. Paths are relative to the work dir.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"loggerbuild/internal/core"
)

// DefaultFileName is looked up in the work dir when --config is not given.
const DefaultFileName = "loggerbuild.yaml"

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// Report formats understood by the test action.
const (
	FormatHTML = "html"
	FormatJSON = "json"
)

// CleanConfig lists what the clean task deletes.
type CleanConfig struct {
	// Patterns defaults to the build and test outputs.
	Patterns []string `yaml:"patterns"`
}

// BundleConfig drives the build task.
type BundleConfig struct {
	// Sources are concatenated in this order.
	Sources    []string `yaml:"sources"`
	OutputDir  string   `yaml:"output_dir"`
	OutputName string   `yaml:"output_name"`
	// Separator is placed between minified files. Nil means "\n".
	Separator *string `yaml:"separator,omitempty"`
}

// TestConfig drives the test task.
type TestConfig struct {
	Sources []string `yaml:"sources"`
	// Helpers are loaded before the sources and are not instrumented.
	Helpers           []string `yaml:"helpers,omitempty"`
	Specs             []string `yaml:"specs"`
	DebugDir          string   `yaml:"debug_dir"`
	ReportsDir        string   `yaml:"reports_dir"`
	CoverageFile      string   `yaml:"coverage_file"`
	Formats           []string `yaml:"formats"`
	IncludeStackTrace *bool    `yaml:"include_stack_trace,omitempty"`
	// SpecTimeout bounds one spec file's execution. Zero disables it.
	SpecTimeout time.Duration `yaml:"spec_timeout"`
}

// WatchConfig drives `loggerbuild watch`.
type WatchConfig struct {
	Task     string        `yaml:"task"`
	Debounce time.Duration `yaml:"debounce"`
}

// Config models loggerbuild.yaml.
type Config struct {
	Version int          `yaml:"version"`
	Clean   CleanConfig  `yaml:"clean"`
	Bundle  BundleConfig `yaml:"bundle"`
	Test    TestConfig   `yaml:"test"`
	Watch   WatchConfig  `yaml:"watch"`

	// Tasks are extra user tasks merged with the built-in ones.
	Tasks []core.Task `yaml:"tasks,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	cfg := defaults()
	cfg.Clean.Patterns = cfg.outputPatterns()
	return cfg
}

func defaults() Config {
	sep := "\n"
	stack := true
	return Config{
		Version: 1,
		Bundle: BundleConfig{
			Sources:    []string{"src/logging-enhancer.js", "src/angular-logger.js"},
			OutputDir:  "dist",
			OutputName: "logger.min.js",
			Separator:  &sep,
		},
		Test: TestConfig{
			Sources:           []string{"src/**/*.js"},
			Specs:             []string{"spec/**/*spec.js"},
			DebugDir:          "debug",
			ReportsDir:        "reports",
			CoverageFile:      ".coverdata",
			Formats:           []string{FormatHTML},
			IncludeStackTrace: &stack,
			SpecTimeout:       30 * time.Second,
		},
		Watch: WatchConfig{
			Task:     "build",
			Debounce: 300 * time.Millisecond,
		},
	}
}

// Load reads path on top of Default(). When required is false a missing file
// is not an error.
func Load(path string, required bool) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML on top of Default() and validates the result. Unknown
// keys are rejected.
func Parse(data []byte) (Config, error) {
	// clean.patterns defaults to the outputs of the decoded config, not of
	// Default(), so moving an output dir moves what clean removes.
	cfg := defaults()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("%w: parse: %v", ErrInvalid, err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// outputPatterns covers everything build and test write: the contents of
// the output dir, the reports and debug dirs and the coverage file.
func (c Config) outputPatterns() []string {
	return []string{
		path.Join(c.Bundle.OutputDir, "*"),
		path.Clean(c.Test.ReportsDir),
		path.Clean(c.Test.DebugDir),
		path.Clean(c.Test.CoverageFile),
	}
}

func (c *Config) normalize() {
	if c.Clean.Patterns == nil {
		c.Clean.Patterns = c.outputPatterns()
	}
	if c.Version == 0 {
		c.Version = 1
	}
	for i := range c.Test.Formats {
		c.Test.Formats[i] = strings.ToLower(strings.TrimSpace(c.Test.Formats[i]))
	}
	for i := range c.Tasks {
		c.Tasks[i].Name = strings.TrimSpace(c.Tasks[i].Name)
	}
	c.Watch.Task = strings.TrimSpace(c.Watch.Task)
}

// Separator returns the configured bundle separator.
func (c Config) Separator() string {
	if c.Bundle.Separator == nil {
		return "\n"
	}
	return *c.Bundle.Separator
}

// IncludeStackTrace reports whether spec failures carry JS stacks.
func (c Config) IncludeStackTrace() bool {
	return c.Test.IncludeStackTrace == nil || *c.Test.IncludeStackTrace
}

// Validate reports every problem at once, joined and wrapped in ErrInvalid.
func (c Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Version != 1 {
		add("version must be 1, got %d", c.Version)
	}

	checkPaths := func(field string, paths []string, required bool) {
		if required && len(paths) == 0 {
			add("%s must not be empty", field)
		}
		for i, p := range paths {
			if !isLocal(p) {
				add("%s[%d]: %q must be a relative path inside the work dir", field, i, p)
			}
		}
	}
	checkDir := func(field, p string) {
		if strings.TrimSpace(p) == "" {
			add("%s is required", field)
			return
		}
		if !isLocal(p) {
			add("%s: %q must be a relative path inside the work dir", field, p)
			return
		}
		// clean removes these by default, so the work dir itself is off limits.
		if path.Clean(filepath.ToSlash(p)) == "." {
			add("%s must not be the work dir", field)
		}
	}

	checkPaths("clean.patterns", c.Clean.Patterns, false)

	checkPaths("bundle.sources", c.Bundle.Sources, true)
	checkDir("bundle.output_dir", c.Bundle.OutputDir)
	if c.Bundle.OutputName == "" || strings.ContainsAny(c.Bundle.OutputName, `/\`) {
		add("bundle.output_name must be a plain file name, got %q", c.Bundle.OutputName)
	}

	checkPaths("test.sources", c.Test.Sources, true)
	checkPaths("test.helpers", c.Test.Helpers, false)
	checkPaths("test.specs", c.Test.Specs, true)
	checkDir("test.debug_dir", c.Test.DebugDir)
	checkDir("test.reports_dir", c.Test.ReportsDir)
	checkDir("test.coverage_file", c.Test.CoverageFile)
	if len(c.Test.Formats) == 0 {
		add("test.formats must not be empty")
	}
	for i, f := range c.Test.Formats {
		switch f {
		case FormatHTML, FormatJSON:
		default:
			add("test.formats[%d]: unknown format %q", i, f)
		}
	}
	if c.Test.SpecTimeout < 0 {
		add("test.spec_timeout must not be negative")
	}

	if c.Watch.Task == "" {
		add("watch.task is required")
	}
	if c.Watch.Debounce < 0 {
		add("watch.debounce must not be negative")
	}

	seen := make(map[string]struct{}, len(c.Tasks))
	for i, t := range c.Tasks {
		if err := t.Validate(); err != nil {
			add("tasks[%d]: %v", i, err)
			continue
		}
		if _, dup := seen[t.Name]; dup {
			add("tasks[%d]: duplicate task %q", i, t.Name)
		}
		seen[t.Name] = struct{}{}
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}

func isLocal(p string) bool {
	p = strings.TrimSpace(p)
	if p == "" || filepath.IsAbs(p) {
		return false
	}
	return filepath.IsLocal(filepath.FromSlash(p))
}
