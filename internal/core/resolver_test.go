package core

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", rel, err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
}

func TestResolver_Files_StrictlySorted(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"zebra.js":  "z",
		"apple.js":  "a",
		"mango.js":  "m",
		"banana.js": "b",
	})

	got, err := NewResolver(dir).Files([]string{"*.js"})
	if err != nil {
		t.Fatalf("Files failed: %v", err)
	}
	want := []string{"apple.js", "banana.js", "mango.js", "zebra.js"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("order mismatch: got %v want %v", got, want)
	}
}

func TestResolver_Files_DoubleStarRecurses(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"src/a.js":            "a",
		"src/nested/b.js":     "b",
		"src/nested/c.txt":    "c",
		"spec/a.spec.js":      "s",
		"spec/deep/b_spec.js": "s",
	})

	r := NewResolver(dir)
	got, err := r.Files([]string{"src/**/*.js"})
	if err != nil {
		t.Fatalf("Files failed: %v", err)
	}
	if want := []string{"src/a.js", "src/nested/b.js"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("src glob: got %v want %v", got, want)
	}

	got, err = r.Files([]string{"spec/**/*spec.js"})
	if err != nil {
		t.Fatalf("Files failed: %v", err)
	}
	if want := []string{"spec/a.spec.js", "spec/deep/b_spec.js"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("spec glob: got %v want %v", got, want)
	}
}

func TestResolver_Files_DeduplicatesOverlappingPatterns(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"src/a.js": "a"})

	got, err := NewResolver(dir).Files([]string{"src/*.js", "src/a.js", "src/**/*.js"})
	if err != nil {
		t.Fatalf("Files failed: %v", err)
	}
	if want := []string{"src/a.js"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestResolver_NoMatchIsNotAnError(t *testing.T) {
	got, err := NewResolver(t.TempDir()).Paths([]string{"dist/*", "reports", ".coverdata"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no matches, got %v", got)
	}
}

func TestResolver_Paths_IncludesDirectories(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"reports/index.html": "x",
		"dist/logger.min.js": "x",
	})

	got, err := NewResolver(dir).Paths([]string{"reports", "dist/*"})
	if err != nil {
		t.Fatalf("Paths failed: %v", err)
	}
	if want := []string{"dist/logger.min.js", "reports"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestResolver_InvalidPattern(t *testing.T) {
	if _, err := NewResolver(t.TempDir()).Files([]string{"src/[a.js"}); err == nil {
		t.Fatalf("expected error for invalid pattern")
	}
}

func TestGlobBase(t *testing.T) {
	cases := map[string]string{
		"src/**/*.js":      "src",
		"spec/**/*spec.js": "spec",
		"a/b/*.js":         "a/b",
	}
	for pattern, want := range cases {
		if got := GlobBase(pattern); got != want {
			t.Errorf("GlobBase(%q) = %q, want %q", pattern, got, want)
		}
	}
}
