package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/lehigh-university-libraries/lccn-resolver/internal/models"
)

func openBackends(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()

	csvStore, err := OpenCSV(filepath.Join(dir, "titles_lccn.csv"))
	if err != nil {
		t.Fatalf("Failed to open CSV store: %v", err)
	}
	sqliteStore, err := OpenSQLite(filepath.Join(dir, "titles_lccn.db"))
	if err != nil {
		t.Fatalf("Failed to open SQLite store: %v", err)
	}

	stores := map[string]Store{
		BackendCSV:    csvStore,
		BackendSQLite: sqliteStore,
		BackendMemory: NewMemory(),
	}
	t.Cleanup(func() {
		for _, store := range stores {
			store.Close()
		}
	})
	return stores
}

func TestUpsertKeepsFirst(t *testing.T) {
	ctx := context.Background()
	for name, store := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			first := models.ResolutionRecord{Title: "Pride and Prejudice", LCCN: "11111111", Source: models.SourceLOC}
			second := models.ResolutionRecord{Title: "pride, and prejudice!", LCCN: "22222222", Source: models.SourceOpenLibrary}

			inserted, err := store.Upsert(ctx, first)
			if err != nil || !inserted {
				t.Fatalf("Expected first upsert to insert, got %v (%v)", inserted, err)
			}
			inserted, err = store.Upsert(ctx, second)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if inserted {
				t.Error("Expected duplicate normalized title to be dropped")
			}

			record, err := store.Lookup(ctx, "PRIDE AND PREJUDICE")
			if err != nil || record == nil {
				t.Fatalf("Expected lookup hit, got %v (%v)", record, err)
			}
			if record.LCCN != "11111111" || record.Source != models.SourceLOC {
				t.Errorf("Expected first record kept, got %+v", record)
			}

			all, err := store.All(ctx)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if len(all) != 1 {
				t.Errorf("Expected 1 record, got %d", len(all))
			}
		})
	}
}

func TestListRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, store := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			record := models.ResolutionRecord{
				Title:   "A Fine Balance",
				LCCN:    "95001234",
				AltLCCN: []string{"12345", "67890"},
				OCLC:    "31900412",
				Source:  models.SourceLOC,
			}
			if _, err := store.Upsert(ctx, record); err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}

			got, err := store.Lookup(ctx, "A Fine Balance")
			if err != nil || got == nil {
				t.Fatalf("Expected lookup hit, got %v (%v)", got, err)
			}
			if len(got.AltLCCN) != 2 || got.AltLCCN[0] != "12345" || got.AltLCCN[1] != "67890" {
				t.Errorf("Expected [12345 67890], got %v", got.AltLCCN)
			}
			if len(got.AltOCLC) != 0 {
				t.Errorf("Expected empty alternate OCLC, got %v", got.AltOCLC)
			}
		})
	}
}

func TestNoMatchRecordPersisted(t *testing.T) {
	ctx := context.Background()
	for name, store := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			record := models.ResolutionRecord{Title: "Obscure Pamphlet", Source: models.SourceNone, NoMatch: models.NoMatchMarker}
			if _, err := store.Upsert(ctx, record); err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			got, err := store.Lookup(ctx, "obscure pamphlet")
			if err != nil || got == nil {
				t.Fatalf("Expected lookup hit, got %v (%v)", got, err)
			}
			if !got.IsNoMatch() || got.LCCN != "" || got.OCLC != "" {
				t.Errorf("Expected no-match record, got %+v", got)
			}
		})
	}
}

func TestFindSimilar(t *testing.T) {
	ctx := context.Background()
	for name, store := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			records := []models.ResolutionRecord{
				{Title: "A", LCCN: "1", Source: models.SourceLOC},
				{Title: "The History of Albany", LCCN: "2", Source: models.SourceLOC},
			}
			for _, record := range records {
				if _, err := store.Upsert(ctx, record); err != nil {
					t.Fatalf("Unexpected error: %v", err)
				}
			}

			got, err := store.FindSimilar(ctx, "the history of albany ny", 95)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got == nil || got.LCCN != "2" {
				t.Errorf("Expected fuzzy hit on the Albany record, got %+v", got)
			}

			got, err = store.FindSimilar(ctx, "a farewell to arms", 95)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != nil {
				t.Errorf("Expected no hit for an unrelated title, got %+v", got)
			}
		})
	}
}

func TestCSVStoreFileFormat(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "titles_lccn.csv")
	store, err := OpenCSV(path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer store.Close()

	_, err = store.Upsert(ctx, models.ResolutionRecord{
		Title:   "A Fine Balance",
		LCCN:    "95001234",
		AltLCCN: []string{"12345", "67890"},
		Source:  models.SourceLOC,
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	expected := "Title,LCCN,Alt_LCCN,OCLC,Alt_OCLC,Source,No_match\n" +
		"A Fine Balance,95001234,\"['12345', '67890']\",,[],LOC,\n"
	if string(data) != expected {
		t.Errorf("Expected:\n%s\ngot:\n%s", expected, data)
	}
}

func TestCSVStoreReadsLegacyFiles(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "titles_lccn.csv")
	legacy := strings.Join([]string{
		"Title,LCCN,Alt_LCCN,OCLC,Alt_OCLC,No_match",
		"Beloved,87040378,[],n/a,[],",
		"beloved,99999999,[],,[],",
		"Obscure Pamphlet,,[],,[],No match",
		`The Annals of Albany,12000001,"['12000002', ""it's""]",555,['556'],`,
	}, "\n") + "\n"
	if err := os.WriteFile(path, []byte(legacy), 0644); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	store, err := OpenCSV(path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer store.Close()

	all, err := store.All(ctx)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Expected duplicates collapsed to 3 records, got %d", len(all))
	}

	beloved := all[0]
	if beloved.LCCN != "87040378" || beloved.OCLC != "" {
		t.Errorf("Expected first Beloved row with n/a read as empty, got %+v", beloved)
	}
	if beloved.Source != models.SourceOpenLibrary {
		t.Errorf("Expected legacy rows with identifiers to read as OpenLibrary, got %s", beloved.Source)
	}
	if !all[1].IsNoMatch() || all[1].Source != models.SourceNone {
		t.Errorf("Expected no-match row, got %+v", all[1])
	}
	annals := all[2]
	if len(annals.AltLCCN) != 2 || annals.AltLCCN[1] != "it's" {
		t.Errorf("Expected quoted list items, got %v", annals.AltLCCN)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.HasPrefix(string(data), "Title,LCCN,Alt_LCCN,OCLC,Alt_OCLC,Source,No_match\n") {
		t.Errorf("Expected header upgraded, got %q", strings.SplitN(string(data), "\n", 2)[0])
	}
}

func TestCSVStoreKeepsBackupOnUpgrade(t *testing.T) {
	path := filepath.Join(t.TempDir(), "titles_lccn.csv")
	legacy := "Title,LCCN,Alt_LCCN,OCLC,Alt_OCLC\n" +
		"Beloved,87040378,[],,[]\n" +
		"Jazz,91058590,[],,[]\n"
	if err := os.WriteFile(path, []byte(legacy), 0644); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	store, err := OpenCSV(path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer store.Close()

	backup, err := os.ReadFile(path + ".bak")
	if err != nil {
		t.Fatalf("Expected backup of the legacy file: %v", err)
	}
	if string(backup) != legacy {
		t.Errorf("Expected backup to match the original file, got %q", backup)
	}

	upgraded, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.HasPrefix(string(upgraded), strings.Join(csvColumns, ",")+"\n") {
		t.Errorf("Expected header upgraded, got %q", upgraded)
	}
}

func TestCSVStoreNoBackupForCurrentHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "titles_lccn.csv")
	for i := 0; i < 2; i++ {
		store, err := OpenCSV(path)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		store.Close()
	}
	if _, err := os.Stat(path + ".bak"); !os.IsNotExist(err) {
		t.Errorf("Expected no backup for a current file, got %v", err)
	}
}

func TestCSVStoreSeesOtherWriters(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "titles_lccn.csv")

	first, err := OpenCSV(path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer first.Close()
	second, err := OpenCSV(path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer second.Close()

	if inserted, err := first.Upsert(ctx, models.ResolutionRecord{Title: "Beloved", LCCN: "1", Source: models.SourceLOC}); err != nil || !inserted {
		t.Fatalf("Expected insert, got %v (%v)", inserted, err)
	}
	inserted, err := second.Upsert(ctx, models.ResolutionRecord{Title: "beloved", LCCN: "2", Source: models.SourceLOC})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if inserted {
		t.Error("Expected second writer to see the first writer's row")
	}

	record, err := second.Lookup(ctx, "Beloved")
	if err != nil || record == nil || record.LCCN != "1" {
		t.Errorf("Expected first writer's record, got %+v (%v)", record, err)
	}

	reopened, err := OpenCSV(path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer reopened.Close()
	all, _ := reopened.All(ctx)
	if len(all) != 1 {
		t.Errorf("Expected a single row on disk, got %d", len(all))
	}
}

func TestCSVStoreConcurrentUpserts(t *testing.T) {
	ctx := context.Background()
	store, err := OpenCSV(filepath.Join(t.TempDir(), "titles_lccn.csv"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer store.Close()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		inserted int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.Upsert(ctx, models.ResolutionRecord{Title: "A Fine Balance", LCCN: "95001234", Source: models.SourceLOC})
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
				return
			}
			if ok {
				mu.Lock()
				inserted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if inserted != 1 {
		t.Errorf("Expected exactly one insert, got %d", inserted)
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := Open("mongo", "ignored"); err == nil {
		t.Error("Expected error for unknown backend")
	}
}
