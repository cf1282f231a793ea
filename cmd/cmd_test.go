package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lehigh-university-libraries/lccn-resolver/internal/models"
	"github.com/lehigh-university-libraries/lccn-resolver/internal/results"
	"github.com/lehigh-university-libraries/lccn-resolver/internal/storage"
)

func seedStore(t *testing.T, path string, records ...models.ResolutionRecord) {
	t.Helper()
	store, err := storage.OpenCSV(path)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()
	for _, r := range records {
		if _, err := store.Upsert(context.Background(), r); err != nil {
			t.Fatalf("Failed to seed store: %v", err)
		}
	}
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestLookupCommand(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	storePath := filepath.Join(dir, "store.csv")
	seedStore(t, storePath, models.ResolutionRecord{Title: "A Fine Balance", LCCN: "95001234", Source: models.SourceLOC})

	out, err := runCommand(t, "lookup", "--store", storePath, "--log-format", "json", "a fine balance")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.Contains(out, "95001234") {
		t.Errorf("Expected LCCN in output, got %q", out)
	}

	if _, err := runCommand(t, "lookup", "--store", storePath, "Beloved"); err == nil {
		t.Error("Expected error for missing title")
	}
}

func TestExportCommand(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	storePath := filepath.Join(dir, "store.csv")
	seedStore(t, storePath,
		models.ResolutionRecord{Title: "A Fine Balance", LCCN: "95001234", Source: models.SourceLOC},
		models.ResolutionRecord{Title: "Obscure Pamphlet", Source: models.SourceNone, NoMatch: models.NoMatchMarker},
	)

	output := filepath.Join(dir, "out.parquet")
	if _, err := runCommand(t, "export", "--store", storePath, "--output", output); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	records, err := results.LoadParquet(output)
	if err != nil {
		t.Fatalf("Failed to read export: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("Expected 2 records, got %d", len(records))
	}

	if _, err := runCommand(t, "export", "--store", storePath, "--output", filepath.Join(dir, "out.xlsx")); err == nil {
		t.Error("Expected error for unsupported format")
	}
}

func TestResolveCommandDryRunUsesStore(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	storePath := filepath.Join(dir, "store.csv")
	seedStore(t, storePath, models.ResolutionRecord{Title: "Beloved", LCCN: "87040378", Source: models.SourceLOC})

	titlesPath := filepath.Join(dir, "titles.txt")
	if err := os.WriteFile(titlesPath, []byte("Beloved\n\nhttp://example.com\n"), 0644); err != nil {
		t.Fatalf("Failed to write titles: %v", err)
	}

	out, err := runCommand(t, "resolve", "--titles", titlesPath, "--store", storePath, "--dry-run", "--no-report")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.Contains(out, "cache_hit") || !strings.Contains(out, "rejected") {
		t.Errorf("Expected summary with cache_hit and rejected, got %q", out)
	}
	if _, err := os.Stat(filepath.Join(dir, "rejected_titles.csv")); !os.IsNotExist(err) {
		t.Error("Expected dry run to leave the reject log untouched")
	}
}

func TestInvalidBackendFlag(t *testing.T) {
	t.Chdir(t.TempDir())
	if _, err := runCommand(t, "lookup", "--store-backend", "postgres", "Beloved"); err == nil {
		t.Error("Expected error for unknown backend")
	}
}

func TestRenderTable(t *testing.T) {
	out := renderTable([]string{"State", "Titles"}, [][]string{{"cache_hit", "3"}, {"no_match"}}, []columnAlignment{alignLeft, alignRight})
	if !strings.Contains(out, "cache_hit") || !strings.Contains(out, "no_match") {
		t.Errorf("Unexpected table: %q", out)
	}
	if renderTable(nil, nil, nil) != "" {
		t.Error("Expected empty output without headers")
	}
}
