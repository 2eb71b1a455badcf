// # internal/capture/capture.go
package capture

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"mosaicmap/internal/cache"
	"mosaicmap/internal/core/config"
	pipelineerrors "mosaicmap/internal/core/errors"
	"mosaicmap/internal/engine/parser"
	"mosaicmap/internal/shared/observability"
	"mosaicmap/internal/walker"
)

// Result is Phase 1's complete output: every file the walker considered,
// resolved to either a parsed, cached, or skipped outcome.
type Result struct {
	Root                 string
	RunID                string
	GeneratedAt          time.Time
	WorkspaceFingerprint string
	Files                []parser.FileRecord
}

// meta is the shape persisted to <output_dir>/meta.json.
type meta struct {
	RunID                string    `json:"run_id"`
	WorkspaceFingerprint string    `json:"workspace_fingerprint"`
	CapturedAtUTC        time.Time `json:"captured_at_utc"`
	FileCount            int       `json:"file_count"`
	LineTotal            int       `json:"line_total"`
}

// Run drives Phase 1 end to end: walk, consult the cache, read+parse on
// miss, aggregate outcomes, persist the cache, and write meta.json plus a
// self-ignore file so the output directory never becomes a candidate on a
// later run.
func Run(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "capture")

	walkStart := time.Now()
	w := walker.New(cfg.Root, extensionsForLanguages(cfg.Languages), cfg.MaxFileBytes)
	walked, err := w.Walk()
	if err != nil {
		return nil, pipelineerrors.Wrap(err, pipelineerrors.CodeIOError, "walk repository")
	}
	observability.WalkDuration.Observe(time.Since(walkStart).Seconds())

	outRel, outIsInside := relativeOutputDir(cfg.Root, cfg.OutputDir)
	candidates := walked.Candidates
	if outIsInside {
		candidates = excludeUnderPrefix(candidates, outRel)
	}

	c := cache.New(filepath.Join(cfg.OutputDir, "cache.bin"))
	if err := c.LoadFromDisk(); err != nil {
		logger.Warn("cache load failed, starting empty", "error", err)
	}

	p := parser.NewParser()
	reader := &Reader{Root: cfg.Root}

	records := make([]parser.FileRecord, len(candidates))
	for _, sk := range walked.Skipped {
		logger.Debug("skipped during walk", "path", sk.Path, "reason", sk.Reason)
		observability.FilesSkippedTotal.WithLabelValues(string(sk.Reason)).Inc()
	}

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Parallelism > 0 {
		g.SetLimit(cfg.Parallelism)
	}

	for i, cand := range candidates {
		i, cand := i, cand
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			records[i] = processOne(p, c, reader, cand, logger)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, pipelineerrors.Wrap(err, pipelineerrors.CodeInternal, "phase 1 aggregation")
	}

	seen := make(map[string]bool, len(candidates))
	lineTotal := 0
	for _, rec := range records {
		seen[rec.Path] = true
		if rec.Outcome != parser.OutcomeSkipped && rec.Parsed != nil {
			lineTotal += rec.Parsed.LineCount
		}
	}
	c.Evict(staleCachePaths(c, seen))

	fingerprint := workspaceFingerprint(candidates)
	if err := c.FlushToDisk(fingerprint); err != nil {
		logger.Warn("cache flush failed", "error", err)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Path < records[j].Path })

	result := &Result{
		Root:                 cfg.Root,
		RunID:                uuid.NewString(),
		GeneratedAt:          time.Now().UTC(),
		WorkspaceFingerprint: fingerprint,
		Files:                records,
	}

	if err := writeMeta(cfg.OutputDir, result, len(records), lineTotal); err != nil {
		logger.Warn("failed to write meta.json", "error", err)
	}
	if err := writeSelfIgnore(cfg.OutputDir); err != nil {
		logger.Warn("failed to write self-ignore file", "error", err)
	}

	return result, nil
}

// processOne resolves a single candidate through the cache's two-tier
// check, falling through to Read+ParseFile on a miss. It never returns an
// error: every failure becomes a skipped FileRecord, per the per-file
// isolation this pipeline guarantees.
func processOne(p *parser.Parser, c *cache.Cache, reader *Reader, cand walker.Candidate, logger *slog.Logger) parser.FileRecord {
	lang := p.DetectLanguage(cand.Path)
	rec := parser.FileRecord{Path: cand.Path, Language: lang, Size: cand.Size, ModTime: cand.ModTime}

	if parsed, ok := c.Lookup(cand.Path, cand.Size, cand.ModTime); ok {
		rec.Outcome = parser.OutcomeCached
		rec.Parsed = parsed
		return rec
	}

	content, hash, err := reader.Read(cand.Path)
	if err != nil {
		logger.Debug("skip: read failed", "path", cand.Path, "error", err)
		observability.FilesSkippedTotal.WithLabelValues(string(parser.SkipIOError)).Inc()
		rec.Outcome = parser.OutcomeSkipped
		rec.SkipReason = parser.SkipIOError
		rec.SkipDetail = err.Error()
		return rec
	}
	rec.ContentHash = hash

	if parsed, ok := c.LookupByHash(cand.Path, cand.Size, cand.ModTime, hash); ok {
		rec.Outcome = parser.OutcomeCached
		rec.Parsed = parsed
		return rec
	}

	parseStart := time.Now()
	parsed, err := p.ParseFile(cand.Path, content)
	observability.ParseDuration.WithLabelValues(string(lang)).Observe(time.Since(parseStart).Seconds())
	if err != nil {
		reason := parser.SkipParseError
		if pipelineerrors.IsCode(err, pipelineerrors.CodeUnsupportedLanguage) {
			reason = parser.SkipUnsupportedLanguage
		}
		logger.Debug("skip: parse failed", "path", cand.Path, "error", err)
		observability.FilesSkippedTotal.WithLabelValues(string(reason)).Inc()
		rec.Outcome = parser.OutcomeSkipped
		rec.SkipReason = reason
		rec.SkipDetail = err.Error()
		return rec
	}

	observability.FilesParsedTotal.WithLabelValues(string(lang)).Inc()
	for _, sym := range parsed.Symbols {
		observability.SymbolsExtractedTotal.WithLabelValues(string(sym.Kind)).Inc()
	}

	rec.Outcome = parser.OutcomeParsed
	rec.Parsed = parsed
	c.Insert(cache.Entry{
		Path: cand.Path, Size: cand.Size, ModTime: cand.ModTime,
		ContentHash: hash, Parsed: parsed,
	})
	return rec
}

func extensionsForLanguages(languages []string) []string {
	set := map[string]bool{}
	for _, lang := range languages {
		switch strings.ToLower(lang) {
		case "rust":
			set[".rs"] = true
		case "python":
			set[".py"] = true
			set[".pyi"] = true
		}
	}
	exts := make([]string, 0, len(set))
	for ext := range set {
		exts = append(exts, ext)
	}
	if len(exts) == 0 {
		return walker.DefaultExtensions()
	}
	return exts
}

func relativeOutputDir(root, outputDir string) (string, bool) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", false
	}
	absOut, err := filepath.Abs(outputDir)
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(absRoot, absOut)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func excludeUnderPrefix(candidates []walker.Candidate, prefix string) []walker.Candidate {
	out := make([]walker.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Path == prefix || strings.HasPrefix(c.Path, prefix+"/") {
			continue
		}
		out = append(out, c)
	}
	return out
}

func staleCachePaths(c *cache.Cache, seen map[string]bool) []string {
	stale := make([]string, 0)
	for _, path := range c.Paths() {
		if !seen[path] {
			stale = append(stale, path)
		}
	}
	return stale
}

// workspaceFingerprint digests the candidate path set into a stable
// identifier for this run's view of the tree, persisted alongside the
// cache blob and in meta.json.
func workspaceFingerprint(candidates []walker.Candidate) string {
	var b strings.Builder
	for _, c := range candidates {
		b.WriteString(c.Path)
		b.WriteByte('\x00')
	}
	return fmt.Sprintf("%016x", cache.ContentHash([]byte(b.String())))
}

func writeMeta(outputDir string, result *Result, fileCount, lineTotal int) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return pipelineerrors.Wrap(err, pipelineerrors.CodeIOError, "create output directory")
	}
	m := meta{
		RunID:                result.RunID,
		WorkspaceFingerprint: result.WorkspaceFingerprint,
		CapturedAtUTC:        result.GeneratedAt,
		FileCount:            fileCount,
		LineTotal:            lineTotal,
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return pipelineerrors.Wrap(err, pipelineerrors.CodeInternal, "encode meta.json")
	}
	return os.WriteFile(filepath.Join(outputDir, "meta.json"), data, 0o644)
}

func writeSelfIgnore(outputDir string) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return pipelineerrors.Wrap(err, pipelineerrors.CodeIOError, "create output directory")
	}
	return os.WriteFile(filepath.Join(outputDir, ".gitignore"), []byte("*\n"), 0o644)
}
