// # internal/capture/capture_test.go
package capture

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"mosaicmap/internal/core/config"
	"mosaicmap/internal/engine/parser"
)

func writeSource(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestRun_ParsesAndSkipsAndWritesMeta(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "src/lib.rs", "pub fn add(a: i32, b: i32) -> i32 { a + b }\n")
	writeSource(t, root, "src/mod.py", "def greet():\n    pass\n")
	writeSource(t, root, "README.md", "# not a source file\n")

	outputDir := filepath.Join(root, ".mosaicmap")
	cfg := &config.Config{
		Root: root, OutputDir: outputDir, MaxFileBytes: 1 << 20,
		Parallelism: 2, Languages: []string{"rust", "python"},
	}

	result, err := Run(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(result.Files) != 2 {
		t.Fatalf("expected 2 tracked files, got %d: %+v", len(result.Files), result.Files)
	}
	for _, rec := range result.Files {
		if rec.Outcome != parser.OutcomeParsed {
			t.Errorf("expected %s to be parsed, got %s", rec.Path, rec.Outcome)
		}
	}

	if _, err := os.Stat(filepath.Join(outputDir, "meta.json")); err != nil {
		t.Errorf("expected meta.json to exist: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outputDir, "cache.bin")); err != nil {
		t.Errorf("expected cache.bin to exist: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outputDir, ".gitignore")); err != nil {
		t.Errorf("expected a self-ignore file: %v", err)
	}
}

func TestRun_SecondRunHitsCache(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "src/lib.rs", "pub fn add(a: i32, b: i32) -> i32 { a + b }\n")

	outputDir := filepath.Join(root, ".mosaicmap")
	cfg := &config.Config{
		Root: root, OutputDir: outputDir, MaxFileBytes: 1 << 20,
		Parallelism: 1, Languages: []string{"rust"},
	}

	if _, err := Run(context.Background(), cfg, nil); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	result, err := Run(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if len(result.Files) != 1 || result.Files[0].Outcome != parser.OutcomeCached {
		t.Fatalf("expected the second run to hit the cache, got %+v", result.Files)
	}
}

func TestRun_OutputDirExcludedFromCandidates(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "src/lib.rs", "pub fn f() {}\n")

	outputDir := filepath.Join(root, ".mosaicmap")
	cfg := &config.Config{
		Root: root, OutputDir: outputDir, MaxFileBytes: 1 << 20,
		Parallelism: 1, Languages: []string{"rust"},
	}

	if _, err := Run(context.Background(), cfg, nil); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	// A second run must not try to treat the output dir's own contents
	// (cache.bin, meta.json) as source candidates.
	result, err := Run(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	for _, rec := range result.Files {
		if rec.Path == "src/lib.rs" {
			continue
		}
		t.Errorf("unexpected file record for output-dir content: %+v", rec)
	}
}
