// # internal/analysis/hotspot.go
package analysis

import (
	"sort"
	"strconv"
	"time"

	"mosaicmap/internal/engine/parser"
	"mosaicmap/internal/shared/observability"
)

// HotspotClass is the three-way tier spec.md §4.8 classifies a function
// into based on its weighted score.
type HotspotClass string

const (
	HotspotHigh   HotspotClass = "high"
	HotspotMedium HotspotClass = "medium"
	HotspotLow    HotspotClass = "low"
)

// HotspotEntry is one scored function.
type HotspotEntry struct {
	File       string
	Line       int
	Name       string
	ImplType   string
	Visibility parser.Visibility
	Cyclomatic int
	Lines      int
	CallSites  int
	Churn      uint32
	Public     bool
	Score      int
	Class      HotspotClass
}

// classify applies spec.md §4.8's thresholds verbatim: high >= 30,
// medium in [15, 30), low otherwise.
func classify(score int) HotspotClass {
	switch {
	case score >= 30:
		return HotspotHigh
	case score >= 15:
		return HotspotMedium
	default:
		return HotspotLow
	}
}

// ScoreHotspots computes the weighted importance score for every function
// symbol across the workspace (§4.8's formula) and returns the entries
// grouped by class, sorted descending by score within each class, ties
// broken by (cyclomatic desc, file asc, line asc). churn maps a
// repo-relative path to the git collaborator's commit count for it; a
// missing entry is treated as zero, matching §4.13's "git unavailability
// yields zero churn across the board".
func ScoreHotspots(files []parser.FileRecord, churn map[string]uint32) map[HotspotClass][]HotspotEntry {
	start := time.Now()
	defer func() { observability.AnalysisDuration.WithLabelValues("hotspot").Observe(time.Since(start).Seconds()) }()

	callSites := countCallSites(files)

	var entries []HotspotEntry
	for _, rec := range files {
		if rec.Parsed == nil {
			continue
		}
		for _, sym := range rec.Parsed.Symbols {
			if sym.Kind != parser.SymbolFunction {
				continue
			}
			cyclomatic, lines := 1, 0
			if sym.Body != nil {
				cyclomatic = sym.Body.Cyclomatic
				lines = sym.Body.Lines
			}
			public := sym.Visibility == parser.VisibilityPublic
			sites := callSites[QualifiedName(sym.ImplType, sym.Name)]
			chn := churn[rec.Path]

			entry := HotspotEntry{
				File: rec.Path, Line: sym.Line, Name: sym.Name, ImplType: sym.ImplType,
				Visibility: sym.Visibility, Cyclomatic: cyclomatic, Lines: lines,
				CallSites: sites, Churn: chn, Public: public,
			}
			entry.Score = importanceScore(sym, entry)
			entry.Class = classify(entry.Score)
			entries = append(entries, entry)
		}
	}

	grouped := map[HotspotClass][]HotspotEntry{HotspotHigh: nil, HotspotMedium: nil, HotspotLow: nil}
	for _, e := range entries {
		grouped[e.Class] = append(grouped[e.Class], e)
	}
	for class := range grouped {
		sortHotspotEntries(grouped[class])
		observability.HotspotsByTier.WithLabelValues(string(class)).Set(float64(len(grouped[class])))
	}
	return grouped
}

// importanceScore implements §4.8's weighted sum, with the is_test zeroing
// rule supplemented from original_source/src/extract/complexity.rs.
func importanceScore(sym parser.Symbol, e HotspotEntry) int {
	if sym.IsTest {
		return 0
	}
	score := 2*e.Cyclomatic + e.Lines/10 + 3*e.CallSites + 2*int(e.Churn)
	if e.Public {
		score += 10
	}
	return score
}

func sortHotspotEntries(entries []HotspotEntry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Cyclomatic != b.Cyclomatic {
			return a.Cyclomatic > b.Cyclomatic
		}
		if a.File != b.File {
			return a.File < b.File
		}
		return a.Line < b.Line
	})
}

// countCallSites tallies, for every callee key (the bare target name, and
// the receiver-qualified name when the edge carries a receiver type),
// the number of distinct caller locations found anywhere in the workspace
// whose call edges target that name — "call_sites" in §4.8's formula,
// computed from Phase 2's (name-based) call-edge aggregation rather than a
// per-file-local count.
func countCallSites(files []parser.FileRecord) map[string]int {
	sites := make(map[string]map[string]bool)
	touch := func(key, callerID string) {
		if sites[key] == nil {
			sites[key] = make(map[string]bool)
		}
		sites[key][callerID] = true
	}

	for _, rec := range files {
		if rec.Parsed == nil {
			continue
		}
		for _, call := range rec.Parsed.Calls {
			callerID := rec.Path + "|" + call.CallerName + "|" + strconv.Itoa(call.Line)
			for _, edge := range call.Callees {
				if edge.Target == "" {
					continue
				}
				// Best-effort receiver-qualified key first, falling back to
				// the bare name — a call edge's receiver type is only known
				// for locally typed bindings (spec.md's glossary), so most
				// edges resolve by bare name alone.
				if edge.ReceiverType != "" {
					touch(QualifiedTarget(edge), callerID)
				}
				touch(edge.Target, callerID)
			}
		}
	}

	counts := make(map[string]int, len(sites))
	for k, set := range sites {
		counts[k] = len(set)
	}
	return counts
}
