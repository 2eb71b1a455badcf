// # internal/capture/reader.go
package capture

import (
	"os"
	"path/filepath"

	"mosaicmap/internal/cache"
	pipelineerrors "mosaicmap/internal/core/errors"
)

// Reader loads file bytes for cache misses. Fast-path hits never reach it.
type Reader struct {
	Root string
}

// Read returns the file's content and its deep-check digest.
func (r *Reader) Read(relPath string) ([]byte, uint64, error) {
	full := filepath.Join(r.Root, relPath)
	content, err := os.ReadFile(full)
	if err != nil {
		return nil, 0, pipelineerrors.WrapWithPath(err, pipelineerrors.CodeIOError, "read file", relPath)
	}
	return content, cache.ContentHash(content), nil
}
