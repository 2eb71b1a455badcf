// # internal/cache/cache.go
package cache

import (
	"bytes"
	"encoding/gob"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	pipelineerrors "mosaicmap/internal/core/errors"
	"mosaicmap/internal/engine/parser"
	"mosaicmap/internal/shared/observability"
)

// blobVersion is bumped whenever Entry or ParsedFile's shape changes in a
// way that would make an old blob unsafe to decode. A version mismatch on
// load is treated as an empty cache, never an error.
const blobVersion = 1

// Entry is the persisted record for one file across runs.
type Entry struct {
	Path        string
	Size        int64
	ModTime     time.Time
	ContentHash uint64
	Parsed      *parser.ParsedFile
}

// blob is the on-disk shape written by FlushToDisk and read by LoadFromDisk.
type blob struct {
	Version              int
	WorkspaceFingerprint string
	Entries              []Entry
}

// Cache is the process-local, content-addressed map from file path to a
// previously extracted ParsedFile. It is safe for concurrent readers and
// writers (single-writer serialization via a mutex, per spec's "lock the
// directory or accept last-writer-wins" choice — this implementation locks).
type Cache struct {
	mu      sync.Mutex
	path    string
	entries map[string]*Entry
	fp      string
	dirty   bool
}

// New creates a Cache backed by the blob file at path. It starts empty;
// call LoadFromDisk to populate it from a prior run.
func New(path string) *Cache {
	return &Cache{
		path:    path,
		entries: make(map[string]*Entry),
	}
}

// LoadFromDisk reads the persisted blob. A missing file, a version
// mismatch, or a decode failure are all treated as an empty cache — the
// cache_corrupt error kind is swallowed here, never surfaced.
func (c *Cache) LoadFromDisk() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return nil
	}

	var b blob
	dec := gob.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&b); err != nil {
		c.entries = make(map[string]*Entry)
		return nil
	}
	if b.Version != blobVersion {
		c.entries = make(map[string]*Entry)
		return nil
	}

	c.entries = make(map[string]*Entry, len(b.Entries))
	for i := range b.Entries {
		e := b.Entries[i]
		c.entries[e.Path] = &e
	}
	c.fp = b.WorkspaceFingerprint
	return nil
}

// FlushToDisk writes the current entry set as a single versioned blob,
// replacing the file atomically (write to a temp file, then rename).
func (c *Cache) FlushToDisk(workspaceFingerprint string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	b := blob{
		Version:              blobVersion,
		WorkspaceFingerprint: workspaceFingerprint,
		Entries:              make([]Entry, 0, len(c.entries)),
	}
	for _, e := range c.entries {
		b.Entries = append(b.Entries, *e)
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(b); err != nil {
		return pipelineerrors.Wrap(err, pipelineerrors.CodeInternal, "encode cache blob")
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return pipelineerrors.Wrap(err, pipelineerrors.CodeIOError, "create cache directory")
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return pipelineerrors.Wrap(err, pipelineerrors.CodeIOError, "write cache blob")
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return pipelineerrors.Wrap(err, pipelineerrors.CodeIOError, "replace cache blob")
	}
	c.dirty = false
	c.fp = workspaceFingerprint
	return nil
}

// Lookup is the fast path: a (size, mtime) match returns the cached
// ParsedFile without reading the file body.
func (c *Cache) Lookup(path string, size int64, mtime time.Time) (*parser.ParsedFile, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[path]
	if !ok {
		return nil, false
	}
	if e.Size == size && e.ModTime.Equal(mtime) {
		observability.CacheHitsTotal.Inc()
		return e.Parsed, true
	}
	return nil, false
}

// LookupByHash is the deep-check path: called after a fast-path miss, once
// the reader has computed the candidate file's content hash. A match
// refreshes the stored (size, mtime) so the fast path succeeds next run.
func (c *Cache) LookupByHash(path string, size int64, mtime time.Time, hash uint64) (*parser.ParsedFile, bool) {
	observability.CacheDeepChecksTotal.Inc()
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[path]
	if !ok || e.ContentHash != hash {
		observability.CacheMissesTotal.Inc()
		return nil, false
	}
	e.Size = size
	e.ModTime = mtime
	c.dirty = true
	return e.Parsed, true
}

// Insert records a freshly extracted ParsedFile, replacing any prior entry
// for the same path.
func (c *Cache) Insert(e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[e.Path] = &e
	c.dirty = true
}

// Evict removes entries for files the walker no longer sees.
func (c *Cache) Evict(paths []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range paths {
		delete(c.entries, p)
	}
	c.dirty = true
}

// ContentHash is the cache's chosen digest for the deep-check path.
func ContentHash(content []byte) uint64 {
	return xxhash.Sum64(content)
}

// Len reports the current entry count, mainly for tests and diagnostics.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Paths returns every path currently held, so a caller can diff it against
// the current candidate set and Evict what the walker no longer sees.
func (c *Cache) Paths() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	paths := make([]string, 0, len(c.entries))
	for p := range c.entries {
		paths = append(paths, p)
	}
	return paths
}
