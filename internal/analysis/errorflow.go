// # internal/analysis/errorflow.go
package analysis

import (
	"sort"
	"strings"
	"time"

	"mosaicmap/internal/engine/parser"
	"mosaicmap/internal/shared/observability"
)

const errorChainMaxDepth = 3

// PropagationChain is one backward walk from an error-originating function
// along fallible call edges, spec.md §4.11(b). Functions[0] is the
// originator; each subsequent entry fallibly calls the previous one.
// Depth (len(Functions)-1) never exceeds errorChainMaxDepth.
type PropagationChain struct {
	Functions []FunctionSite
}

// ErrorFlow is the error-flow tracer's combined product.
type ErrorFlow struct {
	Originators []FunctionSite
	Chains      []PropagationChain
}

// TraceErrorFlow implements §4.11: (a) functions that originate errors
// (ErrorInfo.OriginatingFunctions, already populated per-file by the
// extractors for an explicit failure return/raise or a fallible signature);
// (b) propagation chains capped at depth 3, walking the call graph
// backwards from each originator along edges the extractor flagged
// IsFallible.
func TraceErrorFlow(files []parser.FileRecord) ErrorFlow {
	start := time.Now()
	defer func() { observability.AnalysisDuration.WithLabelValues("errorflow").Observe(time.Since(start).Seconds()) }()

	siteIndex := indexFunctionSites(files)
	reverseFallible := buildReverseFallibleCallers(files)

	var originators []FunctionSite
	for _, rec := range files {
		if rec.Parsed == nil {
			continue
		}
		for _, name := range rec.Parsed.Errors.OriginatingFunctions {
			if site, ok := siteIndex[siteKey(rec.Path, name)]; ok {
				originators = append(originators, site)
			}
		}
	}
	sortFunctionSites(originators)

	var chains []PropagationChain
	for _, origin := range originators {
		chains = append(chains, walkPropagationChains(origin, reverseFallible, errorChainMaxDepth)...)
	}
	sort.Slice(chains, func(i, j int) bool {
		a, b := chains[i].Functions, chains[j].Functions
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		for k := range a {
			if a[k].File != b[k].File {
				return a[k].File < b[k].File
			}
			if a[k].Line != b[k].Line {
				return a[k].Line < b[k].Line
			}
		}
		return false
	})

	return ErrorFlow{Originators: originators, Chains: chains}
}

func siteKey(file, name string) string { return file + "|" + name }

// indexFunctionSites maps a (file, bare-name) key to its FunctionSite so
// the name-only OriginatingFunctions list can be resolved to a line.
func indexFunctionSites(files []parser.FileRecord) map[string]FunctionSite {
	idx := make(map[string]FunctionSite)
	for _, rec := range files {
		if rec.Parsed == nil {
			continue
		}
		for _, sym := range rec.Parsed.Symbols {
			if sym.Kind != parser.SymbolFunction {
				continue
			}
			idx[siteKey(rec.Path, sym.Name)] = FunctionSite{
				Function: QualifiedName(sym.ImplType, sym.Name), File: rec.Path, Line: sym.Line,
			}
		}
	}
	return idx
}

type callerRef struct {
	site FunctionSite
	name string // bare callee name this caller fallibly invokes, for reverse lookup by name
}

// buildReverseFallibleCallers maps a callee's bare name to every caller
// site whose call edge against it was flagged IsFallible (a call the Rust
// extractor found directly under the `?` operator; the Python extractor
// never flags call edges as fallible).
func buildReverseFallibleCallers(files []parser.FileRecord) map[string][]callerRef {
	reverse := make(map[string][]callerRef)
	for _, rec := range files {
		if rec.Parsed == nil {
			continue
		}
		for _, call := range rec.Parsed.Calls {
			callerSite := FunctionSite{
				Function: QualifiedName(call.ImplType, call.CallerName), File: rec.Path, Line: call.Line,
			}
			for _, edge := range call.Callees {
				if !edge.IsFallible || edge.Target == "" {
					continue
				}
				reverse[edge.Target] = append(reverse[edge.Target], callerRef{site: callerSite, name: call.CallerName})
			}
		}
	}
	return reverse
}

// walkPropagationChains performs the backward DFS from one originator,
// capped at maxDepth hops. Cycles are tolerated (per spec.md §9) because
// the depth cap alone bounds recursion; no separate visited-set is needed.
func walkPropagationChains(origin FunctionSite, reverse map[string][]callerRef, maxDepth int) []PropagationChain {
	var chains []PropagationChain
	var walk func(path []FunctionSite, lastBareName string, depth int)
	walk = func(path []FunctionSite, lastBareName string, depth int) {
		callers := reverse[lastBareName]
		if len(callers) == 0 || depth >= maxDepth {
			if len(path) > 1 {
				chains = append(chains, PropagationChain{Functions: append([]FunctionSite{}, path...)})
			}
			return
		}
		for _, c := range callers {
			walk(append(path, c.site), c.name, depth+1)
		}
	}
	originBareName := bareName(origin.Function)
	walk([]FunctionSite{origin}, originBareName, 0)
	return chains
}

func bareName(qualified string) string {
	if idx := strings.LastIndex(qualified, "::"); idx >= 0 {
		return qualified[idx+2:]
	}
	return qualified
}
