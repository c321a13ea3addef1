package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loggerbuild/internal/trace"
)

const (
	enhancerSrc = `function LoggingEnhancer() {
    this.prefix = function (ctx) { return ctx + '> '; };
}
`
	loggerSrc = `function createLogger(ctx) {
    var enhancer = new LoggingEnhancer();
    return { prefix: enhancer.prefix(ctx) };
}
`
	loggerSpec = `describe('createLogger', function () {
    it('prefixes the context', function () {
        expect(createLogger('app').prefix).toBe('app> ');
    });
});
`
)

type project struct {
	dir string
}

func newProject(t *testing.T) *project {
	t.Helper()
	p := &project{dir: t.TempDir()}
	p.write(t, "src/logging-enhancer.js", enhancerSrc)
	p.write(t, "src/angular-logger.js", loggerSrc)
	p.write(t, "spec/logger.spec.js", loggerSpec)
	return p
}

func (p *project) path(rel string) string {
	return filepath.Join(p.dir, filepath.FromSlash(rel))
}

func (p *project) write(t *testing.T, rel, content string) {
	t.Helper()
	path := p.path(rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// run invokes the CLI against the project and returns exit code, stdout and
// stderr.
func (p *project) run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	all := append([]string{"--workdir", p.dir}, args...)
	code := Run(context.Background(), all, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_DefaultBuildsArtifact(t *testing.T) {
	p := newProject(t)
	p.write(t, "dist/stale.js", "old")

	code, _, stderr := p.run(t)
	require.Equal(t, ExitSuccess, code, stderr)

	out, err := os.ReadFile(p.path("dist/logger.min.js"))
	require.NoError(t, err)
	assert.Contains(t, string(out), "LoggingEnhancer")
	assert.Contains(t, string(out), "createLogger")
	assert.NoFileExists(t, p.path("dist/stale.js"))
	assert.Contains(t, stderr, "run finished")
	assert.Contains(t, stderr, "run_id")
}

func TestRun_TestTaskWritesCoverage(t *testing.T) {
	p := newProject(t)

	code, stdout, stderr := p.run(t, "test")
	require.Equal(t, ExitSuccess, code, stderr)

	assert.Contains(t, stdout, "1 specs, 0 failures")
	assert.FileExists(t, p.path("reports/index.html"))
	assert.FileExists(t, p.path(".coverdata"))
	assert.FileExists(t, p.path("debug/src/angular-logger.js"))
}

func TestRun_FailingSpecExitsWithGraphFailure(t *testing.T) {
	p := newProject(t)
	p.write(t, "spec/broken.spec.js", `describe('broken', function () {
    it('fails', function () { expect(1).toBe(2); });
});
`)

	code, stdout, stderr := p.run(t, "test")
	assert.Equal(t, ExitGraphFailure, code)
	assert.Contains(t, stdout, "Expected 1 to be 2.")
	assert.Contains(t, stderr, "specs failed")
	assert.FileExists(t, p.path("reports/index.html"), "coverage is written even when specs fail")
}

func TestRun_MissingSourceExitsWithGraphFailure(t *testing.T) {
	p := newProject(t)
	require.NoError(t, os.Remove(p.path("src/angular-logger.js")))

	code, _, stderr := p.run(t, "build")
	assert.Equal(t, ExitGraphFailure, code)
	assert.Contains(t, stderr, "angular-logger.js")
}

func TestRun_UnknownTaskIsInvalidInvocation(t *testing.T) {
	p := newProject(t)

	code, _, stderr := p.run(t, "deploy")
	assert.Equal(t, ExitInvalidInvocation, code)
	assert.Contains(t, stderr, `unknown task: "deploy"`)
	assert.NoFileExists(t, p.path("dist/logger.min.js"))
}

func TestRun_UnknownFlagIsInvalidInvocation(t *testing.T) {
	p := newProject(t)

	code, _, stderr := p.run(t, "--no-such-flag")
	assert.Equal(t, ExitInvalidInvocation, code)
	assert.Contains(t, stderr, "no-such-flag")
}

func TestRun_InvalidConfigIsConfigError(t *testing.T) {
	p := newProject(t)
	p.write(t, "loggerbuild.yaml", "version: 2\n")

	code, _, stderr := p.run(t, "build")
	assert.Equal(t, ExitConfigError, code)
	assert.Contains(t, stderr, "invalid config")
}

func TestRun_ExplicitMissingConfigIsConfigError(t *testing.T) {
	p := newProject(t)

	code, _, _ := p.run(t, "--config", "ci.yaml", "build")
	assert.Equal(t, ExitConfigError, code)
}

func TestRun_ConfigTasksRun(t *testing.T) {
	p := newProject(t)
	p.write(t, "loggerbuild.yaml", `version: 1
tasks:
  - name: stamp
    deps: [build]
    run: echo built > dist/STAMP
`)

	code, _, stderr := p.run(t, "stamp")
	require.Equal(t, ExitSuccess, code, stderr)
	assert.FileExists(t, p.path("dist/logger.min.js"))
	assert.FileExists(t, p.path("dist/STAMP"))
}

func TestRun_FailingConfigTaskExitsWithGraphFailure(t *testing.T) {
	p := newProject(t)
	p.write(t, "loggerbuild.yaml", `tasks:
  - name: lint
    run: exit 3
`)

	code, _, stderr := p.run(t, "lint")
	assert.Equal(t, ExitGraphFailure, code)
	assert.Contains(t, stderr, "exit status 3")
}

func TestRun_ConfigCycleIsConfigError(t *testing.T) {
	p := newProject(t)
	p.write(t, "loggerbuild.yaml", `tasks:
  - name: a
    deps: [b]
  - name: b
    deps: [a]
`)

	code, _, stderr := p.run(t, "a")
	assert.Equal(t, ExitConfigError, code)
	assert.Contains(t, stderr, "cycle detected")
}

func TestRun_TraceIsWrittenEvenOnFailure(t *testing.T) {
	p := newProject(t)
	require.NoError(t, os.Remove(p.path("src/logging-enhancer.js")))

	code, _, _ := p.run(t, "--trace", "out/trace.json", "test")
	require.Equal(t, ExitGraphFailure, code)

	b, err := os.ReadFile(p.path("out/trace.json"))
	require.NoError(t, err)
	var tr trace.ExecutionTrace
	require.NoError(t, json.Unmarshal(b, &tr))
	require.NoError(t, tr.Validate())
	assert.NotEmpty(t, tr.GraphHash)

	kinds := make(map[string]trace.EventKind)
	for _, e := range tr.Events {
		kinds[e.TaskID] = e.Kind
	}
	assert.Equal(t, map[string]trace.EventKind{
		"clean": trace.EventTaskExecuted,
		"build": trace.EventTaskFailed,
		"test":  trace.EventTaskSkipped,
	}, kinds)
}

func TestRun_JSONLogFormat(t *testing.T) {
	p := newProject(t)

	code, _, stderr := p.run(t, "--log-format", "json", "clean")
	require.Equal(t, ExitSuccess, code, stderr)

	var sawFinish bool
	for _, line := range strings.Split(strings.TrimSpace(stderr), "\n") {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry), line)
		assert.NotEmpty(t, entry["run_id"])
		if entry["msg"] == "run finished" {
			sawFinish = true
		}
	}
	assert.True(t, sawFinish)
}

func TestList_PrintsTasksWithDeps(t *testing.T) {
	p := newProject(t)

	code, stdout, stderr := p.run(t, "list")
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Equal(t, "clean\nbuild    <- clean\ndefault  <- build\ntest     <- build\n", stdout)
}

func TestList_RejectsArguments(t *testing.T) {
	p := newProject(t)

	code, _, _ := p.run(t, "list", "extra")
	assert.Equal(t, ExitInvalidInvocation, code)
}

func TestWatch_UnknownTaskIsInvalidInvocation(t *testing.T) {
	p := newProject(t)

	code, _, stderr := p.run(t, "watch", "deploy")
	assert.Equal(t, ExitInvalidInvocation, code)
	assert.Contains(t, stderr, "unknown task")
}

func TestWatch_RebuildsOnSourceChange(t *testing.T) {
	p := newProject(t)
	p.write(t, "loggerbuild.yaml", "watch:\n  debounce: 50ms\n")

	var stdout, stderr bytes.Buffer
	a := newApp(&stdout, &stderr)
	ready := make(chan struct{})
	a.watchStarted = func() { close(ready) }
	root := a.rootCommand()
	root.SetArgs([]string{"--workdir", p.dir, "watch"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- root.ExecuteContext(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
		a.sync()
	})

	select {
	case <-ready:
	case err := <-done:
		t.Fatalf("watch exited early: %v", err)
	case <-time.After(10 * time.Second):
		t.Fatal("watcher never became ready")
	}
	require.FileExists(t, p.path("dist/logger.min.js"))

	p.write(t, "src/angular-logger.js", loggerSrc+"function rebuiltMarker() { return 42; }\n")
	require.Eventually(t, func() bool {
		b, err := os.ReadFile(p.path("dist/logger.min.js"))
		return err == nil && strings.Contains(string(b), "rebuiltMarker")
	}, 10*time.Second, 20*time.Millisecond)
}

func TestWatchDirs(t *testing.T) {
	p := newProject(t)
	a := newApp(&bytes.Buffer{}, &bytes.Buffer{})
	root := a.rootCommand()
	require.NoError(t, root.ParseFlags([]string{"--workdir", p.dir}))
	require.NoError(t, a.setup(root, nil))

	assert.Equal(t, []string{p.path("spec"), p.path("src")}, watchDirs(a.inv.WorkDir, a.cfg))

	match := sourceMatcher(a.inv.WorkDir, a.cfg)
	assert.True(t, match(p.path("src/angular-logger.js")))
	assert.True(t, match(p.path("spec/logger.spec.js")))
	assert.False(t, match(p.path("src/notes.md")))
	assert.False(t, match(p.path("dist/logger.min.js")))
	assert.False(t, match(p.path("debug/src/angular-logger.js")))
}
