// # internal/analysis/cluster_test.go
package analysis

import (
	"testing"

	"mosaicmap/internal/engine/parser"
)

func implFunc(file, name, implType string, line int) parser.Symbol {
	return parser.Symbol{Name: name, Kind: parser.SymbolFunction, Line: line, ImplType: implType, Signature: "fn " + name + "()"}
}

// TestClusterFunctions_SameImplSameFile is spec.md §8 scenario 6: three
// functions in the same impl block in one file pairwise score 20 (15 for
// the same owner in the same file plus 5 for the same file, >= 10) and
// form one cluster of size 3.
func TestClusterFunctions_SameImplSameFile(t *testing.T) {
	rec := parser.FileRecord{
		Path: "a.rs", Outcome: parser.OutcomeParsed,
		Parsed: &parser.ParsedFile{
			Path: "a.rs",
			Symbols: []parser.Symbol{
				implFunc("a.rs", "one", "Widget", 1),
				implFunc("a.rs", "two", "Widget", 5),
				implFunc("a.rs", "three", "Widget", 9),
			},
		},
	}

	clusters := ClusterFunctions([]parser.FileRecord{rec})

	if len(clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d: %+v", len(clusters), clusters)
	}
	if len(clusters[0].Members) != 3 {
		t.Errorf("expected 3 members, got %d", len(clusters[0].Members))
	}
}

// TestClusterFunctions_CrossPackageSingletonDropped continues scenario 6:
// a fourth function in a different package that only calls into the
// cluster scores -3 + 5 = 2 < 10, so it remains a singleton and is
// dropped from the output entirely.
func TestClusterFunctions_CrossPackageSingletonDropped(t *testing.T) {
	a := parser.FileRecord{
		Path: "pkg1/a.rs", Outcome: parser.OutcomeParsed,
		Parsed: &parser.ParsedFile{
			Path: "pkg1/a.rs",
			Symbols: []parser.Symbol{
				implFunc("pkg1/a.rs", "one", "Widget", 1),
				implFunc("pkg1/a.rs", "two", "Widget", 5),
			},
		},
	}
	b := parser.FileRecord{
		Path: "pkg2/b.rs", Outcome: parser.OutcomeParsed,
		Parsed: &parser.ParsedFile{
			Path: "pkg2/b.rs",
			Symbols: []parser.Symbol{{Name: "outsider", Kind: parser.SymbolFunction, Line: 1, Signature: "fn outsider()"}},
			Calls: []parser.CallInfo{{
				CallerName: "outsider", Line: 1,
				Callees: []parser.CallEdge{{Target: "one", Line: 1}},
			}},
		},
	}

	clusters := ClusterFunctions([]parser.FileRecord{a, b})

	if len(clusters) != 1 {
		t.Fatalf("expected exactly 1 cluster (outsider dropped), got %d", len(clusters))
	}
	for _, m := range clusters[0].Members {
		if m.Name == "outsider" {
			t.Errorf("outsider should have been dropped as a singleton")
		}
	}
}

func TestClusterFunctions_MaxSizeCap(t *testing.T) {
	var symbols []parser.Symbol
	for i := 0; i < 150; i++ {
		symbols = append(symbols, implFunc("a.rs", "f"+string(rune('a'+i%26))+string(rune('0'+i/26)), "Big", i+1))
	}
	rec := parser.FileRecord{Path: "a.rs", Outcome: parser.OutcomeParsed, Parsed: &parser.ParsedFile{Path: "a.rs", Symbols: symbols}}

	clusters := ClusterFunctions([]parser.FileRecord{rec})

	for _, c := range clusters {
		if len(c.Members) > clusterMaxSize {
			t.Errorf("cluster exceeds max size: %d members", len(c.Members))
		}
	}
}

func TestSharedTypeCount_ExcludesPrimitives(t *testing.T) {
	a := clusterFunc{Params: []string{"i32", "Widget"}}
	b := clusterFunc{Params: []string{"Widget"}}
	if got := sharedTypeCount(a, b); got != 1 {
		t.Errorf("expected 1 shared non-primitive type, got %d", got)
	}
}

func TestParseSignatureTypes(t *testing.T) {
	params, ret := ParseSignatureTypes("pub fn make(x: &Widget, y: i32) -> Option<Gadget>")
	if len(params) != 2 || params[0] != "Widget" || params[1] != "i32" {
		t.Errorf("unexpected params: %+v", params)
	}
	if ret != "Gadget" {
		t.Errorf("expected return type Gadget, got %q", ret)
	}
}
