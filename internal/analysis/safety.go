// # internal/analysis/safety.go
package analysis

import (
	"sort"
	"time"

	"mosaicmap/internal/engine/parser"
	"mosaicmap/internal/shared/observability"
)

// SafetyCounts tallies sites by kind across the workspace.
type SafetyCounts struct {
	UnsafeBlock   int
	ExplicitPanic int
	IndexOp       int
	AsyncFn       int
	DangerousCall int
}

// SafetySite is a workspace-flattened safety site: spec.md §4.12's kinds
// are disjoint, so a single Kind field (rather than a bitset) is enough.
type SafetySite struct {
	File     string
	Line     int
	Kind     string
	Function string
	Detail   string
}

// SafetySummary is the Safety Summarizer's product.
type SafetySummary struct {
	Sites  []SafetySite
	Counts SafetyCounts
}

// SummarizeSafety implements §4.12: flatten every file's SafetyInfo.Sites
// into one workspace-wide list, sorted by file then line, and tally the
// disjoint per-kind counts.
func SummarizeSafety(files []parser.FileRecord) SafetySummary {
	start := time.Now()
	defer func() { observability.AnalysisDuration.WithLabelValues("safety").Observe(time.Since(start).Seconds()) }()

	var summary SafetySummary
	for _, rec := range files {
		if rec.Parsed == nil {
			continue
		}
		for _, site := range rec.Parsed.Safety.Sites {
			summary.Sites = append(summary.Sites, SafetySite{
				File: rec.Path, Line: site.Line, Kind: site.Kind, Function: site.Function, Detail: site.Detail,
			})
			switch site.Kind {
			case "unsafe_block":
				summary.Counts.UnsafeBlock++
			case "explicit_panic":
				summary.Counts.ExplicitPanic++
			case "index_op":
				summary.Counts.IndexOp++
			case "async_fn":
				summary.Counts.AsyncFn++
			case "dangerous_call":
				summary.Counts.DangerousCall++
			}
		}
	}

	sort.Slice(summary.Sites, func(i, j int) bool {
		if summary.Sites[i].File != summary.Sites[j].File {
			return summary.Sites[i].File < summary.Sites[j].File
		}
		return summary.Sites[i].Line < summary.Sites[j].Line
	})

	return summary
}
