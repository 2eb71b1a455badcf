// # internal/analysis/errorflow_test.go
package analysis

import (
	"testing"

	"mosaicmap/internal/engine/parser"
)

func TestTraceErrorFlow_OriginatorsResolved(t *testing.T) {
	rec := parser.FileRecord{
		Path: "a.rs", Outcome: parser.OutcomeParsed,
		Parsed: &parser.ParsedFile{
			Path:    "a.rs",
			Symbols: []parser.Symbol{{Name: "risky", Kind: parser.SymbolFunction, Line: 7}},
			Errors:  parser.ErrorInfo{OriginatingFunctions: []string{"risky"}, PropagationLines: map[string][]int{}},
		},
	}

	flow := TraceErrorFlow([]parser.FileRecord{rec})

	if len(flow.Originators) != 1 || flow.Originators[0].Function != "risky" || flow.Originators[0].Line != 7 {
		t.Fatalf("unexpected originators: %+v", flow.Originators)
	}
}

func TestTraceErrorFlow_ChainDepthCap(t *testing.T) {
	symbols := []parser.Symbol{
		{Name: "origin", Kind: parser.SymbolFunction, Line: 1},
		{Name: "c1", Kind: parser.SymbolFunction, Line: 2},
		{Name: "c2", Kind: parser.SymbolFunction, Line: 3},
		{Name: "c3", Kind: parser.SymbolFunction, Line: 4},
		{Name: "c4", Kind: parser.SymbolFunction, Line: 5},
	}
	calls := []parser.CallInfo{
		{CallerName: "c1", Line: 2, Callees: []parser.CallEdge{{Target: "origin", IsFallible: true}}},
		{CallerName: "c2", Line: 3, Callees: []parser.CallEdge{{Target: "c1", IsFallible: true}}},
		{CallerName: "c3", Line: 4, Callees: []parser.CallEdge{{Target: "c2", IsFallible: true}}},
		{CallerName: "c4", Line: 5, Callees: []parser.CallEdge{{Target: "c3", IsFallible: true}}},
	}
	rec := parser.FileRecord{
		Path: "a.rs", Outcome: parser.OutcomeParsed,
		Parsed: &parser.ParsedFile{
			Path: "a.rs", Symbols: symbols, Calls: calls,
			Errors: parser.ErrorInfo{OriginatingFunctions: []string{"origin"}, PropagationLines: map[string][]int{}},
		},
	}

	flow := TraceErrorFlow([]parser.FileRecord{rec})

	for _, chain := range flow.Chains {
		if len(chain.Functions)-1 > errorChainMaxDepth {
			t.Errorf("chain exceeds max depth: %+v", chain)
		}
	}
	var longest int
	for _, chain := range flow.Chains {
		if len(chain.Functions) > longest {
			longest = len(chain.Functions)
		}
	}
	if longest != errorChainMaxDepth+1 {
		t.Errorf("expected a chain reaching the depth cap (%d functions), longest was %d", errorChainMaxDepth+1, longest)
	}
}

func TestTraceErrorFlow_NonFallibleEdgeNotChained(t *testing.T) {
	symbols := []parser.Symbol{
		{Name: "origin", Kind: parser.SymbolFunction, Line: 1},
		{Name: "caller", Kind: parser.SymbolFunction, Line: 2},
	}
	calls := []parser.CallInfo{
		{CallerName: "caller", Line: 2, Callees: []parser.CallEdge{{Target: "origin", IsFallible: false}}},
	}
	rec := parser.FileRecord{
		Path: "a.rs", Outcome: parser.OutcomeParsed,
		Parsed: &parser.ParsedFile{
			Path: "a.rs", Symbols: symbols, Calls: calls,
			Errors: parser.ErrorInfo{OriginatingFunctions: []string{"origin"}, PropagationLines: map[string][]int{}},
		},
	}

	flow := TraceErrorFlow([]parser.FileRecord{rec})

	if len(flow.Chains) != 0 {
		t.Errorf("a non-fallible edge should not produce a propagation chain, got %+v", flow.Chains)
	}
}
