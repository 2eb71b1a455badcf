// # internal/walker/walker_test.go
package walker

import (
	"os"
	"path/filepath"
	"testing"

	"mosaicmap/internal/engine/parser"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestWalker_DefaultExtensionFilter(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/lib.rs", "fn main() {}\n")
	writeFile(t, root, "src/mod.py", "def f(): pass\n")
	writeFile(t, root, "README.md", "# hello\n")

	w := New(root, DefaultExtensions(), 0)
	result, err := w.Walk()
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}

	if len(result.Candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d: %+v", len(result.Candidates), result.Candidates)
	}
	paths := map[string]bool{}
	for _, c := range result.Candidates {
		paths[c.Path] = true
	}
	if !paths["src/lib.rs"] || !paths["src/mod.py"] {
		t.Errorf("expected src/lib.rs and src/mod.py, got %v", paths)
	}
}

func TestWalker_OversizeFileIsSkipped(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "big.rs", "fn main() {}\n")

	w := New(root, DefaultExtensions(), 5)
	result, err := w.Walk()
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}

	if len(result.Candidates) != 0 {
		t.Fatalf("expected the oversize file to be excluded from candidates, got %+v", result.Candidates)
	}
	if len(result.Skipped) != 1 || result.Skipped[0].Reason != parser.SkipOversize {
		t.Fatalf("expected one oversize skip, got %+v", result.Skipped)
	}
}

func TestWalker_HiddenDirectoriesExcluded(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".hidden/secret.rs", "fn f() {}\n")
	writeFile(t, root, "visible.rs", "fn g() {}\n")

	w := New(root, DefaultExtensions(), 0)
	result, err := w.Walk()
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}

	if len(result.Candidates) != 1 || result.Candidates[0].Path != "visible.rs" {
		t.Fatalf("expected only visible.rs, got %+v", result.Candidates)
	}
}

func TestWalker_DefaultSkipDirsExcluded(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "target/debug/build.rs", "fn f() {}\n")
	writeFile(t, root, "node_modules/pkg/index.py", "x = 1\n")
	writeFile(t, root, "src/main.rs", "fn main() {}\n")

	w := New(root, DefaultExtensions(), 0)
	result, err := w.Walk()
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}

	if len(result.Candidates) != 1 || result.Candidates[0].Path != "src/main.rs" {
		t.Fatalf("expected only src/main.rs, got %+v", result.Candidates)
	}
}

func TestWalker_GitignoreFallbackWhenNotAGitRepo(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "ignored/\n")
	writeFile(t, root, "ignored/skip.rs", "fn f() {}\n")
	writeFile(t, root, "kept.rs", "fn g() {}\n")

	w := New(root, DefaultExtensions(), 0)
	result, err := w.Walk()
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}

	if len(result.Candidates) != 1 || result.Candidates[0].Path != "kept.rs" {
		t.Fatalf("expected only kept.rs via gitignore fallback, got %+v", result.Candidates)
	}
}

func TestWalker_CandidatesSortedByPath(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "z.rs", "fn f() {}\n")
	writeFile(t, root, "a.rs", "fn g() {}\n")
	writeFile(t, root, "m.py", "x = 1\n")

	w := New(root, DefaultExtensions(), 0)
	result, err := w.Walk()
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}

	want := []string{"a.rs", "m.py", "z.rs"}
	if len(result.Candidates) != len(want) {
		t.Fatalf("expected %d candidates, got %+v", len(want), result.Candidates)
	}
	for i, p := range want {
		if result.Candidates[i].Path != p {
			t.Errorf("index %d: expected %s, got %s", i, p, result.Candidates[i].Path)
		}
	}
}
