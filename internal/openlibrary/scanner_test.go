package openlibrary

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/klauspost/compress/gzip"

	"github.com/lehigh-university-libraries/lccn-resolver/internal/models"
)

func dumpLine(payload string) string {
	return "/type/edition\t/books/OL1M\t3\t2010-04-24T17:54:01.503315\t" + payload
}

func writeGzipDump(t *testing.T, lines []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ol_dump_editions.txt.gz")
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create dump: %v", err)
	}
	gz := gzip.NewWriter(file)
	for _, line := range lines {
		fmt.Fprintln(gz, line)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("Failed to close gzip writer: %v", err)
	}
	if err := file.Close(); err != nil {
		t.Fatalf("Failed to close dump: %v", err)
	}
	return path
}

var fixtureLines = []string{
	dumpLine(`{"title": "A fine balance", "lccn": ["95001234"], "oclc_numbers": ["31900412"]}`),
	"garbage line without json",
	dumpLine(`{"title": "Broken`),
	dumpLine(`{"title": "A Fine Balance"}`),
	dumpLine(`{"title": "A fine balance and other stories of the subcontinent", "lccn": "1"}`),
	dumpLine(`{"title": "Fine balance", "full_title": "A Fine Balance, novel", "lccn": "96005555", "oclc": "123", "oclc_numbers": ["123", "456"]}`),
	dumpLine(`{"title": "A Fine Balance", "lccn": "3"}`),
	dumpLine(`{"title": "A Fine Balance", "lccn": "4"}`),
}

func TestReaderSkipsMalformedLines(t *testing.T) {
	path := writeGzipDump(t, fixtureLines)

	reader, err := Open(path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer reader.Close()

	count := 0
	for reader.Next() {
		count++
	}
	if err := reader.Err(); err != nil {
		t.Fatalf("Unexpected read error: %v", err)
	}
	if count != 6 {
		t.Errorf("Expected 6 editions, got %d", count)
	}
	if reader.Malformed() != 2 {
		t.Errorf("Expected 2 malformed lines, got %d", reader.Malformed())
	}
}

func TestReaderPlainText(t *testing.T) {
	reader, err := NewReader(strings.NewReader(dumpLine(`{"title": "Beloved", "lccn": 87040378}`) + "\n"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !reader.Next() {
		t.Fatalf("Expected one edition, err=%v", reader.Err())
	}
	edition := reader.Edition()
	if edition.Title != "Beloved" || len(edition.LCCN) != 1 || edition.LCCN[0] != "87040378" {
		t.Errorf("Unexpected edition: %+v", edition)
	}
	if reader.Next() {
		t.Error("Expected end of stream")
	}
}

func TestEditionIdentifiers(t *testing.T) {
	edition := Edition{
		LCCN:        models.StringList{"96005555"},
		OCLC:        models.StringList{"123"},
		OCLCNumbers: models.StringList{"123", "456"},
	}
	lccn, oclc := edition.Identifiers()
	if len(lccn) != 1 || lccn[0] != "96005555" {
		t.Errorf("Expected [96005555], got %v", lccn)
	}
	if len(oclc) != 2 || oclc[0] != "123" || oclc[1] != "456" {
		t.Errorf("Expected [123 456], got %v", oclc)
	}
}

func TestScanStopsAtMatchCap(t *testing.T) {
	path := writeGzipDump(t, fixtureLines)
	scanner := NewScanner(path, DefaultScanConfig(), nil)

	matches, err := scanner.Scan(context.Background(), "A Fine Balance")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(matches) != 3 {
		t.Fatalf("Expected 3 matches, got %d: %+v", len(matches), matches)
	}

	first := matches[0]
	if first.Origin != models.OriginBulkDump || first.Score != 100 {
		t.Errorf("Expected bulk candidate scored 100, got %+v", first)
	}
	if first.LCCN[0] != "95001234" || first.OCLC[0] != "31900412" {
		t.Errorf("Unexpected identifiers: %+v", first)
	}

	second := matches[1]
	if second.SourceTitle != "A Fine Balance, novel" {
		t.Errorf("Expected full title as source title, got %q", second.SourceTitle)
	}
	if len(second.OCLC) != 2 {
		t.Errorf("Expected merged OCLC list, got %v", second.OCLC)
	}

	if matches[2].LCCN[0] != "3" {
		t.Errorf("Expected scan to stop after the third match, got %v", matches[2].LCCN)
	}
}

func TestScanNoMatch(t *testing.T) {
	path := writeGzipDump(t, fixtureLines)
	scanner := NewScanner(path, DefaultScanConfig(), nil)

	matches, err := scanner.Scan(context.Background(), "Beloved")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("Expected no matches, got %+v", matches)
	}
}

type fakeIndex struct {
	record *models.ResolutionRecord
	keys   []string
}

func (f *fakeIndex) FindSimilar(_ context.Context, key string, _ int) (*models.ResolutionRecord, error) {
	f.keys = append(f.keys, key)
	return f.record, nil
}

func TestScanReusesStoredResolution(t *testing.T) {
	index := &fakeIndex{record: &models.ResolutionRecord{
		Title:   "A Fine Balance",
		LCCN:    "95001234",
		AltLCCN: []string{"96005555"},
		Source:  models.SourceLOC,
	}}
	scanner := NewScanner(filepath.Join(t.TempDir(), "missing.gz"), DefaultScanConfig(), index)

	matches, err := scanner.Scan(context.Background(), "A Fine Balance!")
	if err != nil {
		t.Fatalf("Expected stored resolution without opening the dump, got %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("Expected 1 candidate, got %d", len(matches))
	}
	if matches[0].Origin != models.OriginRemote {
		t.Errorf("Expected origin derived from stored source, got %s", matches[0].Origin)
	}
	if len(matches[0].LCCN) != 2 {
		t.Errorf("Expected primary and alternate LCCN, got %v", matches[0].LCCN)
	}
	if len(index.keys) != 1 || index.keys[0] != "a fine balance" {
		t.Errorf("Expected normalized query key, got %v", index.keys)
	}
}

func TestScanStoredNoMatchShortCircuits(t *testing.T) {
	index := &fakeIndex{record: &models.ResolutionRecord{
		Title:   "Obscure Pamphlet",
		Source:  models.SourceNone,
		NoMatch: models.NoMatchMarker,
	}}
	scanner := NewScanner(filepath.Join(t.TempDir(), "missing.gz"), DefaultScanConfig(), index)

	matches, err := scanner.Scan(context.Background(), "Obscure Pamphlet")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("Expected no candidates, got %+v", matches)
	}
}

func TestScanHonorsCancellationPastMalformedLines(t *testing.T) {
	interval := cancelCheckLines
	cancelCheckLines = 2
	t.Cleanup(func() { cancelCheckLines = interval })

	edition := dumpLine(`{"title": "Something else entirely", "lccn": "1"}`)
	lines := []string{"garbage", "garbage"}
	for i := 0; i < 5; i++ {
		lines = append(lines, edition, "garbage")
	}
	path := writeGzipDump(t, lines)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	scanner := NewScanner(path, DefaultScanConfig(), nil)
	if _, err := scanner.Scan(ctx, "A Fine Balance"); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestReasonableLength(t *testing.T) {
	tests := []struct {
		candidate string
		query     string
		expected  bool
	}{
		{"abcd", "abcd", true},
		{"abc", "abcd", false},
		{"abcdef", "abcd", true},
		{"abcdefg", "abcd", false},
	}
	for _, tt := range tests {
		if got := reasonableLength(tt.candidate, tt.query, 1.5); got != tt.expected {
			t.Errorf("reasonableLength(%q, %q): expected %v, got %v", tt.candidate, tt.query, tt.expected, got)
		}
	}
}

func TestDownloaderCachesDump(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, "dump contents")
	}))
	defer server.Close()

	cacheDir := t.TempDir()
	downloader := NewDownloader(DownloadConfig{URL: server.URL + "/ol_dump_editions_latest.txt.gz", CacheDir: cacheDir}, server.Client())

	path, err := downloader.Download(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if path != filepath.Join(cacheDir, "ol_dump_editions_latest.txt.gz") {
		t.Errorf("Unexpected cache path %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "dump contents" {
		t.Errorf("Expected downloaded contents, got %q (%v)", data, err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("Expected temporary file to be renamed")
	}

	if _, err := downloader.Download(context.Background()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if hits.Load() != 1 {
		t.Errorf("Expected cached dump to be reused, got %d requests", hits.Load())
	}

	forced := NewDownloader(DownloadConfig{URL: server.URL + "/ol_dump_editions_latest.txt.gz", CacheDir: cacheDir, ForceDownload: true}, server.Client())
	if _, err := forced.Download(context.Background()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if hits.Load() != 2 {
		t.Errorf("Expected forced download, got %d requests", hits.Load())
	}
}

func TestDownloaderStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	cacheDir := t.TempDir()
	downloader := NewDownloader(DownloadConfig{URL: server.URL + "/dump.gz", CacheDir: cacheDir}, server.Client())
	if _, err := downloader.Download(context.Background()); err == nil {
		t.Fatal("Expected error for 404")
	}
	if _, err := os.Stat(filepath.Join(cacheDir, "dump.gz")); !os.IsNotExist(err) {
		t.Error("Expected no cached file after failed download")
	}
}
