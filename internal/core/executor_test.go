package core

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestExecute_UndeclaredEnvVarsInvisible(t *testing.T) {
	t.Setenv("LOGGERBUILD_SECRET", "leak")

	res, err := NewExecutor(t.TempDir()).Execute(context.Background(), Task{
		Name: "env",
		Run:  `printf '%s' "$LOGGERBUILD_SECRET"`,
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(res.Stdout) != 0 {
		t.Fatalf("undeclared variable leaked: %q", res.Stdout)
	}
}

func TestExecute_DeclaredEnvVarsVisible(t *testing.T) {
	res, err := NewExecutor(t.TempDir()).Execute(context.Background(), Task{
		Name: "env",
		Run:  `printf '%s-%s' "$A" "$B"`,
		Env:  map[string]string{"A": "1", "B": "2"},
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if string(res.Stdout) != "1-2" {
		t.Fatalf("unexpected stdout: %q", res.Stdout)
	}
}

func TestExecute_CapturesNonZeroExitCode(t *testing.T) {
	res, err := NewExecutor(t.TempDir()).Execute(context.Background(), Task{
		Name: "fail",
		Run:  "echo boom 1>&2; exit 7",
	})
	if err != nil {
		t.Fatalf("non-zero exit must not be an error, got %v", err)
	}
	if res.ExitCode != 7 {
		t.Fatalf("expected exit 7, got %d", res.ExitCode)
	}
	if strings.TrimSpace(string(res.Stderr)) != "boom" {
		t.Fatalf("unexpected stderr: %q", res.Stderr)
	}
}

func TestExecute_UsesWorkingDir(t *testing.T) {
	dir := t.TempDir()
	if _, err := NewExecutor(dir).Execute(context.Background(), Task{Name: "touch", Run: ": > marker"}); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "marker")); err != nil {
		t.Fatalf("expected marker in working dir: %v", err)
	}
}

func TestExecute_TeesOutput(t *testing.T) {
	var live bytes.Buffer
	e := NewExecutor(t.TempDir())
	e.Stdout = &live

	res, err := e.Execute(context.Background(), Task{Name: "echo", Run: "printf hello"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if live.String() != "hello" || string(res.Stdout) != "hello" {
		t.Fatalf("tee mismatch: live=%q captured=%q", live.String(), res.Stdout)
	}
}

func TestExecute_EmptyRunFails(t *testing.T) {
	if _, err := NewExecutor(t.TempDir()).Execute(context.Background(), Task{Name: "x"}); err == nil {
		t.Fatalf("expected error for empty run")
	}
}

func TestExecute_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := NewExecutor(t.TempDir()).Execute(ctx, Task{Name: "sleep", Run: "sleep 5", Env: map[string]string{"PATH": os.Getenv("PATH")}})
	if err == nil {
		t.Fatalf("expected cancellation error")
	}
	if time.Since(start) > 3*time.Second {
		t.Fatalf("cancellation did not kill the process promptly")
	}
}

func TestIsolatedEnv_SortedAndEmpty(t *testing.T) {
	if got := isolatedEnv(nil); len(got) != 0 {
		t.Fatalf("expected empty env, got %v", got)
	}
	got := isolatedEnv(map[string]string{"B": "2", "A": "1"})
	if len(got) != 2 || got[0] != "A=1" || got[1] != "B=2" {
		t.Fatalf("unexpected env: %v", got)
	}
}

func TestWriteFileAtomic_CreatesParentsAndOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dist", "out.js")
	if err := WriteFileAtomic(path, []byte("v1"), 0o644); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := WriteFileAtomic(path, []byte("v2"), 0o644); err != nil {
		t.Fatalf("second write: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(b) != "v2" {
		t.Fatalf("unexpected content %q", b)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("expected only the output file, found %d entries", len(entries))
	}
}

func TestTask_Validate(t *testing.T) {
	cases := []struct {
		name    string
		task    Task
		wantErr bool
	}{
		{"empty body", Task{Name: "default", Deps: []string{"build"}}, false},
		{"builtin", Task{Name: "build", Action: ActionBundle}, false},
		{"shell", Task{Name: "lint", Run: "true"}, false},
		{"no name", Task{Action: ActionClean}, true},
		{"both bodies", Task{Name: "x", Action: ActionClean, Run: "true"}, true},
		{"unknown action", Task{Name: "x", Action: "deploy"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.task.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() err=%v, wantErr=%v", err, tc.wantErr)
			}
		})
	}
}
