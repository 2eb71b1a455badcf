// # internal/walker/walker.go
package walker

import (
	"context"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	ignore "github.com/sabhiram/go-gitignore"

	"mosaicmap/internal/engine/parser"
)

// defaultSkipDirs are excluded regardless of ignore-file contents: build
// output and virtualenv directories a repository's own .gitignore may not
// bother listing, plus VCS metadata directories.
var defaultSkipDirs = map[string]bool{
	"node_modules": true, "__pycache__": true, ".git": true, ".hg": true, ".svn": true,
	"venv": true, ".venv": true, "env": true, "target": true, "build": true, "dist": true,
	".tox": true, ".mypy_cache": true, ".ruff_cache": true, ".pytest_cache": true,
}

// DefaultExtensions is the default extension filter: spec.md's {.rs, .py}
// plus .pyi stub files, which this pipeline treats as Python sources.
func DefaultExtensions() []string {
	return []string{".rs", ".py", ".pyi"}
}

// Candidate is one file the Walker decided is worth handing to the cache.
type Candidate struct {
	Path    string // repo-relative, forward-slash
	Size    int64
	ModTime time.Time
}

// Skip is a file the Walker rejected before the cache ever saw it.
type Skip struct {
	Path   string
	Reason parser.SkipReason
	Detail string
}

// Result is one Walk invocation's output, already sorted by path so
// downstream consumers get a deterministic order despite unordered
// emission during the walk itself.
type Result struct {
	Candidates []Candidate
	Skipped    []Skip
}

// Walker enumerates a repository tree honoring version-control ignore
// rules, an extension filter, and a byte-size ceiling.
type Walker struct {
	Root         string
	Extensions   map[string]bool
	MaxFileBytes int64
}

// New builds a Walker rooted at root. extensions are matched case-
// insensitively; maxFileBytes of 0 disables the oversize check.
func New(root string, extensions []string, maxFileBytes int64) *Walker {
	extSet := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		extSet[strings.ToLower(e)] = true
	}
	return &Walker{Root: root, Extensions: extSet, MaxFileBytes: maxFileBytes}
}

// Walk performs a single synchronous traversal of w.Root. Callers that want
// parallel I/O parallelize what they do with the returned Candidates, not
// the traversal itself — directory enumeration is cheap relative to parsing.
func (w *Walker) Walk() (Result, error) {
	var result Result

	gitFiles := gitLsFiles(w.Root)
	var gi *ignore.GitIgnore
	if gitFiles == nil {
		gi = loadGitignore(w.Root)
	}

	err := filepath.WalkDir(w.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if path == w.Root {
			return nil
		}
		name := d.Name()

		if d.IsDir() {
			if defaultSkipDirs[name] || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}
		if d.Type()&os.ModeSymlink != 0 {
			return nil
		}

		rel, err := filepath.Rel(w.Root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if gitFiles != nil {
			if _, tracked := gitFiles[rel]; !tracked {
				return nil
			}
		} else if gi != nil && gi.MatchesPath(rel) {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(name))
		if !w.Extensions[ext] {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			result.Skipped = append(result.Skipped, Skip{Path: rel, Reason: parser.SkipIOError, Detail: err.Error()})
			return nil
		}

		if w.MaxFileBytes > 0 && info.Size() > w.MaxFileBytes {
			result.Skipped = append(result.Skipped, Skip{Path: rel, Reason: parser.SkipOversize})
			return nil
		}

		result.Candidates = append(result.Candidates, Candidate{
			Path: rel, Size: info.Size(), ModTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return result, err
	}

	sort.Slice(result.Candidates, func(i, j int) bool { return result.Candidates[i].Path < result.Candidates[j].Path })
	sort.Slice(result.Skipped, func(i, j int) bool { return result.Skipped[i].Path < result.Skipped[j].Path })
	return result, nil
}

// gitLsFiles returns the set of tracked-or-untracked-but-not-ignored paths
// for a git-controlled root, or nil if the root isn't a git repository or
// the git binary isn't available. When non-nil this takes priority over
// .gitignore parsing since it already accounts for nested ignore files,
// global excludes, and sparse-checkout.
func gitLsFiles(root string) map[string]bool {
	info, err := os.Stat(filepath.Join(root, ".git"))
	if err != nil || !info.IsDir() {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return nil
	}

	files := make(map[string]bool)
	for _, line := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
		if line != "" {
			files[line] = true
		}
	}
	return files
}

// loadGitignore is the fallback for roots without a usable git binary: a
// single root-level .gitignore, parsed with gitignore pattern semantics.
func loadGitignore(root string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return gi
}
