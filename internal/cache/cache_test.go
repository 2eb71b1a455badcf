// # internal/cache/cache_test.go
package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"mosaicmap/internal/engine/parser"
)

func writeJunk(path string) error {
	return os.WriteFile(path, []byte("not a gob blob"), 0o644)
}

func TestCache_InsertAndFastPathLookup(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "cache.bin"))

	mtime := time.Now().Truncate(time.Second)
	c.Insert(Entry{
		Path: "src/lib.rs", Size: 100, ModTime: mtime,
		ContentHash: 42, Parsed: &parser.ParsedFile{Path: "src/lib.rs"},
	})

	got, ok := c.Lookup("src/lib.rs", 100, mtime)
	if !ok || got == nil {
		t.Fatal("expected a fast-path hit")
	}

	_, ok = c.Lookup("src/lib.rs", 101, mtime)
	if ok {
		t.Error("expected a fast-path miss on size mismatch")
	}
}

func TestCache_DeepCheckRefreshesMtime(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "cache.bin"))

	old := time.Now().Add(-time.Hour).Truncate(time.Second)
	c.Insert(Entry{
		Path: "src/lib.rs", Size: 100, ModTime: old,
		ContentHash: 42, Parsed: &parser.ParsedFile{Path: "src/lib.rs"},
	})

	newMtime := time.Now().Truncate(time.Second)
	got, ok := c.LookupByHash("src/lib.rs", 100, newMtime, 42)
	if !ok || got == nil {
		t.Fatal("expected a deep-check hit")
	}

	// Fast path should now succeed with the refreshed mtime.
	if _, ok := c.Lookup("src/lib.rs", 100, newMtime); !ok {
		t.Error("expected fast path to succeed after deep-check refresh")
	}
}

func TestCache_DeepCheckMissOnHashMismatch(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "cache.bin"))
	c.Insert(Entry{Path: "a.py", Size: 10, ContentHash: 7, Parsed: &parser.ParsedFile{}})

	if _, ok := c.LookupByHash("a.py", 10, time.Now(), 999); ok {
		t.Error("expected a miss when content hash differs")
	}
}

func TestCache_EvictRemovesEntry(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "cache.bin"))
	c.Insert(Entry{Path: "gone.rs", Parsed: &parser.ParsedFile{}})
	c.Evict([]string{"gone.rs"})
	if c.Len() != 0 {
		t.Errorf("expected 0 entries after evict, got %d", c.Len())
	}
}

func TestCache_FlushAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.bin")
	c := New(path)

	mtime := time.Now().Truncate(time.Second)
	c.Insert(Entry{
		Path: "src/lib.rs", Size: 100, ModTime: mtime, ContentHash: 42,
		Parsed: &parser.ParsedFile{Path: "src/lib.rs", LineCount: 10},
	})
	if err := c.FlushToDisk("fingerprint-v1"); err != nil {
		t.Fatalf("FlushToDisk: %v", err)
	}

	reloaded := New(path)
	if err := reloaded.LoadFromDisk(); err != nil {
		t.Fatalf("LoadFromDisk: %v", err)
	}
	got, ok := reloaded.Lookup("src/lib.rs", 100, mtime)
	if !ok {
		t.Fatal("expected the reloaded cache to have the persisted entry")
	}
	if got.LineCount != 10 {
		t.Errorf("expected LineCount 10 to survive the round trip, got %d", got.LineCount)
	}
}

func TestCache_LoadFromDisk_MissingFileIsEmpty(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "does-not-exist.bin"))
	if err := c.LoadFromDisk(); err != nil {
		t.Fatalf("expected no error for a missing cache file, got %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("expected an empty cache, got %d entries", c.Len())
	}
}

func TestCache_LoadFromDisk_CorruptBlobIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.bin")
	if err := writeJunk(path); err != nil {
		t.Fatalf("writeJunk: %v", err)
	}

	c := New(path)
	if err := c.LoadFromDisk(); err != nil {
		t.Fatalf("expected corrupt blob to be swallowed, got %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("expected an empty cache after a corrupt load, got %d entries", c.Len())
	}
}

func TestContentHash_Deterministic(t *testing.T) {
	a := ContentHash([]byte("package main"))
	b := ContentHash([]byte("package main"))
	if a != b {
		t.Error("expected ContentHash to be deterministic for identical input")
	}
	if ContentHash([]byte("other")) == a {
		t.Error("expected different input to produce a different hash (overwhelmingly likely)")
	}
}
