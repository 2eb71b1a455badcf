// # internal/analysis/safety_test.go
package analysis

import "mosaicmap/internal/engine/parser"
import "testing"

func TestSummarizeSafety_CountsByKind(t *testing.T) {
	files := []parser.FileRecord{
		{
			Path: "a.rs", Outcome: parser.OutcomeParsed,
			Parsed: &parser.ParsedFile{
				Path: "a.rs",
				Safety: parser.SafetyInfo{Sites: []parser.SafetySite{
					{Line: 10, Kind: "unsafe_block", Function: "poke"},
					{Line: 20, Kind: "explicit_panic", Function: "poke"},
				}},
			},
		},
		{
			Path: "b.py", Outcome: parser.OutcomeParsed,
			Parsed: &parser.ParsedFile{
				Path: "b.py",
				Safety: parser.SafetyInfo{Sites: []parser.SafetySite{
					{Line: 5, Kind: "dangerous_call", Function: "run_cmd", Detail: "eval"},
				}},
			},
		},
	}

	summary := SummarizeSafety(files)

	if summary.Counts.UnsafeBlock != 1 || summary.Counts.ExplicitPanic != 1 || summary.Counts.DangerousCall != 1 {
		t.Errorf("unexpected counts: %+v", summary.Counts)
	}
	if len(summary.Sites) != 3 {
		t.Fatalf("expected 3 sites, got %d", len(summary.Sites))
	}
	if summary.Sites[0].File != "a.rs" || summary.Sites[0].Line != 10 {
		t.Errorf("expected sites sorted by file then line, got %+v", summary.Sites[0])
	}
}

func TestSummarizeSafety_NoSitesEmptySummary(t *testing.T) {
	files := []parser.FileRecord{
		{Path: "a.rs", Outcome: parser.OutcomeParsed, Parsed: &parser.ParsedFile{Path: "a.rs"}},
	}
	summary := SummarizeSafety(files)
	if len(summary.Sites) != 0 {
		t.Errorf("expected no sites, got %+v", summary.Sites)
	}
}

func TestSummarizeSafety_SkippedFileIgnored(t *testing.T) {
	files := []parser.FileRecord{
		{Path: "broken.rs", Outcome: parser.OutcomeSkipped, Parsed: nil},
	}
	summary := SummarizeSafety(files)
	if len(summary.Sites) != 0 {
		t.Errorf("expected no sites from a skipped file, got %+v", summary.Sites)
	}
}
