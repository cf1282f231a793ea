package results

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lehigh-university-libraries/lccn-resolver/internal/models"
	"github.com/lehigh-university-libraries/lccn-resolver/internal/resolver"
)

func sampleOutcomes() []resolver.Outcome {
	return []resolver.Outcome{
		{
			Title:        "A Fine Balance",
			CleanedTitle: "A Fine Balance",
			State:        resolver.StateRemoteHit,
			Record:       &models.ResolutionRecord{Title: "A Fine Balance", LCCN: "95001234", AltLCCN: []string{"12345"}, Source: models.SourceLOC},
			Score:        100,
			Inserted:     true,
			Duration:     2 * time.Second,
		},
		{
			Title:        "Beloved",
			CleanedTitle: "Beloved",
			State:        resolver.StateCacheHit,
			Record:       &models.ResolutionRecord{Title: "Beloved", OCLC: "15594465", Source: models.SourceOpenLibrary},
		},
		{
			Title:        "www.example.com",
			State:        resolver.StateRejected,
			RejectReason: "url",
		},
		{
			Title:        "Obscure Pamphlet",
			CleanedTitle: "Obscure Pamphlet",
			State:        resolver.StateNoMatch,
			Record:       &models.ResolutionRecord{Title: "Obscure Pamphlet", Source: models.SourceNone, NoMatch: models.NoMatchMarker},
			Inserted:     true,
			Duration:     2 * time.Second,
		},
	}
}

func TestSummarize(t *testing.T) {
	summary := Summarize(sampleOutcomes())

	if summary.Total != 4 {
		t.Errorf("Expected 4 total, got %d", summary.Total)
	}
	if summary.Resolved != 2 {
		t.Errorf("Expected 2 resolved, got %d", summary.Resolved)
	}
	if summary.Inserted != 2 {
		t.Errorf("Expected 2 inserted, got %d", summary.Inserted)
	}
	if summary.AverageTime != "1s" {
		t.Errorf("Expected average 1s, got %s", summary.AverageTime)
	}

	counts := summary.StateCounts()
	expected := []StateCount{
		{State: "cache_hit", Count: 1},
		{State: "no_match", Count: 1},
		{State: "rejected", Count: 1},
		{State: "remote_hit", Count: 1},
	}
	if len(counts) != len(expected) {
		t.Fatalf("Expected %v, got %v", expected, counts)
	}
	for i := range expected {
		if counts[i] != expected[i] {
			t.Errorf("Expected %v, got %v", expected[i], counts[i])
		}
	}
}

func TestSummarizeEmpty(t *testing.T) {
	summary := Summarize(nil)
	if summary.Total != 0 || summary.AverageTime != "0s" {
		t.Errorf("Unexpected empty summary: %+v", summary)
	}
}

func TestReportSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	started := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	cfg := RunConfig{Titles: "titles.txt", Strategy: "remote-first", Concurrency: 1, Thresholds: map[string]int{"search_accept": 90}}

	report := NewReport("run-1", started, cfg, sampleOutcomes())
	path, err := report.Save(dir)
	if err != nil {
		t.Fatalf("Failed to save report: %v", err)
	}
	if filepath.Base(path) != "2024-03-01_09-30-00-run-1.yaml" {
		t.Errorf("Unexpected report name: %s", path)
	}

	loaded, err := LoadReport(path)
	if err != nil {
		t.Fatalf("Failed to load report: %v", err)
	}
	if loaded.RunID != "run-1" || loaded.Config.Thresholds["search_accept"] != 90 {
		t.Errorf("Unexpected report header: %+v", loaded)
	}
	if len(loaded.Results) != 4 {
		t.Fatalf("Expected 4 entries, got %d", len(loaded.Results))
	}
	first := loaded.Results[0]
	if first.LCCN != "95001234" || first.Source != "LOC" || len(first.AltLCCN) != 1 {
		t.Errorf("Unexpected first entry: %+v", first)
	}
	if loaded.Results[2].RejectReason != "url" || loaded.Results[2].Source != "" {
		t.Errorf("Unexpected rejected entry: %+v", loaded.Results[2])
	}
	if loaded.Summary.States["no_match"] != 1 {
		t.Errorf("Expected no_match count 1, got %v", loaded.Summary.States)
	}
}

func TestNewRunID(t *testing.T) {
	a, b := NewRunID(), NewRunID()
	if a == b || len(a) != 36 {
		t.Errorf("Expected distinct UUIDs, got %q and %q", a, b)
	}
}

func TestSaveJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "lccn_results.json")
	records := NewRecords(sampleOutcomes())
	if len(records) != 2 {
		t.Fatalf("Expected 2 new records, got %d", len(records))
	}

	if err := SaveJSON(path, records); err != nil {
		t.Fatalf("Failed to save JSON: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read JSON: %v", err)
	}
	if !strings.Contains(string(data), `"no_match": "No match"`) {
		t.Errorf("Expected no-match marker in output, got %s", data)
	}

	var decoded []models.ResolutionRecord
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to decode JSON: %v", err)
	}
	if decoded[0].LCCN != "95001234" {
		t.Errorf("Expected 95001234, got %q", decoded[0].LCCN)
	}
}

func TestExportParquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.parquet")
	records := []models.ResolutionRecord{
		{Title: "A Fine Balance", LCCN: "95001234", AltLCCN: []string{"12345", "67890"}, Source: models.SourceLOC},
		{Title: "Obscure Pamphlet", Source: models.SourceNone, NoMatch: models.NoMatchMarker},
	}

	if err := ExportParquet(path, records); err != nil {
		t.Fatalf("Failed to export: %v", err)
	}
	loaded, err := LoadParquet(path)
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(loaded))
	}
	if loaded[0].Title != "A Fine Balance" || len(loaded[0].AltLCCN) != 2 || loaded[0].AltLCCN[1] != "67890" {
		t.Errorf("Unexpected first record: %+v", loaded[0])
	}
	if loaded[1].NoMatch != models.NoMatchMarker || loaded[1].Source != models.SourceNone {
		t.Errorf("Unexpected second record: %+v", loaded[1])
	}
}
