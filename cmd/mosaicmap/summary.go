// # cmd/mosaicmap/summary.go
package main

import (
	"fmt"
	"os"

	"mosaicmap/internal/analysis"
	"mosaicmap/internal/engine/parser"
)

type summaryInput struct {
	root         string
	languages    []string
	members      int
	commit       string
	files        []parser.FileRecord
	symbols      int
	references   int
	hotspots     map[analysis.HotspotClass][]analysis.HotspotEntry
	clusters     []analysis.Cluster
	typeFlows    map[string]*analysis.TypeFlow
	crossPackage []analysis.CrossPackageFlow
	errorFlow    analysis.ErrorFlow
	safety       analysis.SafetySummary
}

func printSummary(in summaryInput) {
	var parsed, cached, skipped int
	for _, f := range in.files {
		switch f.Outcome {
		case parser.OutcomeParsed:
			parsed++
		case parser.OutcomeCached:
			cached++
		case parser.OutcomeSkipped:
			skipped++
		}
	}

	high := len(in.hotspots[analysis.HotspotHigh])
	medium := len(in.hotspots[analysis.HotspotMedium])
	low := len(in.hotspots[analysis.HotspotLow])

	fmt.Fprintf(os.Stdout, "mosaicmap summary\n")
	fmt.Fprintf(os.Stdout, "==================\n")
	fmt.Fprintf(os.Stdout, "root: %s\n", in.root)
	fmt.Fprintf(os.Stdout, "languages: %v (members: %d)\n", in.languages, in.members)
	if in.commit != "" {
		fmt.Fprintf(os.Stdout, "commit: %s\n", in.commit)
	}
	fmt.Fprintf(os.Stdout, "\n")
	fmt.Fprintf(os.Stdout, "files: %d parsed, %d cached, %d skipped\n", parsed, cached, skipped)
	fmt.Fprintf(os.Stdout, "symbols referenced: %d (%d references)\n", in.symbols, in.references)
	fmt.Fprintf(os.Stdout, "\n")
	fmt.Fprintf(os.Stdout, "hotspots: %d high, %d medium, %d low\n", high, medium, low)
	fmt.Fprintf(os.Stdout, "clusters: %d\n", len(in.clusters))
	fmt.Fprintf(os.Stdout, "type flows: %d types, %d cross-package connections\n", len(in.typeFlows), len(in.crossPackage))
	fmt.Fprintf(os.Stdout, "error flow: %d originators, %d propagation chains\n", len(in.errorFlow.Originators), len(in.errorFlow.Chains))
	fmt.Fprintf(os.Stdout, "safety: %d unsafe blocks, %d panics, %d index ops, %d async fns, %d dangerous calls\n",
		in.safety.Counts.UnsafeBlock, in.safety.Counts.ExplicitPanic, in.safety.Counts.IndexOp,
		in.safety.Counts.AsyncFn, in.safety.Counts.DangerousCall)
}
