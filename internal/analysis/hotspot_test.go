// # internal/analysis/hotspot_test.go
package analysis

import (
	"testing"

	"mosaicmap/internal/engine/parser"
)

func fileWithFunction(path, name string, line int, public bool, cyclomatic, lines int) parser.FileRecord {
	vis := parser.VisibilityPrivate
	if public {
		vis = parser.VisibilityPublic
	}
	return parser.FileRecord{
		Path:    path,
		Outcome: parser.OutcomeParsed,
		Parsed: &parser.ParsedFile{
			Path: path,
			Symbols: []parser.Symbol{{
				Name: name, Kind: parser.SymbolFunction, Line: line, Visibility: vis,
				Body: &parser.BodySummary{Cyclomatic: cyclomatic, Lines: lines},
			}},
		},
	}
}

func TestScoreHotspots_SingleFunctionExample(t *testing.T) {
	// spec.md §8 scenario 2: pub fn foo(x: i32) -> i32 { if x>0 {1} else {0} }
	// body summary {lines: 1, cyclomatic: 2}; score = 2*2 + 1/10 + 3*0 + 2*0 + 10 = 14 => low.
	rec := fileWithFunction("a.rs", "foo", 1, true, 2, 1)

	grouped := ScoreHotspots([]parser.FileRecord{rec}, nil)

	if len(grouped[HotspotLow]) != 1 {
		t.Fatalf("expected one low-tier entry, got %+v", grouped)
	}
	entry := grouped[HotspotLow][0]
	if entry.Score != 14 {
		t.Errorf("expected score 14, got %d", entry.Score)
	}
	if entry.Class != HotspotLow {
		t.Errorf("expected low class, got %s", entry.Class)
	}
}

func TestScoreHotspots_ClassBoundaries(t *testing.T) {
	cases := []struct {
		score int
		want  HotspotClass
	}{
		{30, HotspotHigh},
		{29, HotspotMedium},
		{15, HotspotMedium},
		{14, HotspotLow},
		{0, HotspotLow},
	}
	for _, c := range cases {
		if got := classify(c.score); got != c.want {
			t.Errorf("classify(%d) = %s, want %s", c.score, got, c.want)
		}
	}
}

func TestScoreHotspots_CallSitesCountedFromCallGraph(t *testing.T) {
	caller := parser.FileRecord{
		Path: "b.rs", Outcome: parser.OutcomeParsed,
		Parsed: &parser.ParsedFile{
			Path:    "b.rs",
			Symbols: []parser.Symbol{{Name: "caller", Kind: parser.SymbolFunction, Line: 1, Body: &parser.BodySummary{Cyclomatic: 1}}},
			Calls: []parser.CallInfo{{
				CallerName: "caller", Line: 1,
				Callees: []parser.CallEdge{{Target: "target", Line: 2}},
			}},
		},
	}
	target := fileWithFunction("a.rs", "target", 5, false, 1, 0)

	grouped := ScoreHotspots([]parser.FileRecord{caller, target}, nil)

	var found *HotspotEntry
	for class := range grouped {
		for i := range grouped[class] {
			if grouped[class][i].Name == "target" {
				found = &grouped[class][i]
			}
		}
	}
	if found == nil {
		t.Fatal("target entry not found")
	}
	if found.CallSites != 1 {
		t.Errorf("expected 1 call site, got %d", found.CallSites)
	}
}

func TestScoreHotspots_IsTestZeroesScore(t *testing.T) {
	rec := parser.FileRecord{
		Path: "t.rs", Outcome: parser.OutcomeParsed,
		Parsed: &parser.ParsedFile{
			Path: "t.rs",
			Symbols: []parser.Symbol{{
				Name: "test_thing", Kind: parser.SymbolFunction, Line: 1, Visibility: parser.VisibilityPublic,
				IsTest: true, Body: &parser.BodySummary{Cyclomatic: 9, Lines: 100},
			}},
		},
	}

	grouped := ScoreHotspots([]parser.FileRecord{rec}, nil)

	if len(grouped[HotspotLow]) != 1 || grouped[HotspotLow][0].Score != 0 {
		t.Fatalf("expected a zero-scored low entry, got %+v", grouped)
	}
}

func TestScoreHotspots_ChurnContributes(t *testing.T) {
	rec := fileWithFunction("a.rs", "foo", 1, false, 1, 0)
	churn := map[string]uint32{"a.rs": 5}

	grouped := ScoreHotspots([]parser.FileRecord{rec}, churn)

	entry := grouped[HotspotLow][0]
	// score = 2*1 + 0 + 0 + 2*5 + 0 = 12
	if entry.Score != 12 {
		t.Errorf("expected score 12 with churn, got %d", entry.Score)
	}
}
