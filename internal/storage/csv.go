package storage

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"

	"github.com/lehigh-university-libraries/lccn-resolver/internal/models"
	"github.com/lehigh-university-libraries/lccn-resolver/internal/textnorm"
)

// Column names of the CSV store, in the order new files are written
const (
	ColumnTitle   = "Title"
	ColumnLCCN    = "LCCN"
	ColumnAltLCCN = "Alt_LCCN"
	ColumnOCLC    = "OCLC"
	ColumnAltOCLC = "Alt_OCLC"
	ColumnSource  = "Source"
	ColumnNoMatch = "No_match"
)

var csvColumns = []string{ColumnTitle, ColumnLCCN, ColumnAltLCCN, ColumnOCLC, ColumnAltOCLC, ColumnSource, ColumnNoMatch}

// CSVStore is an append-only CSV file indexed in memory by normalized title.
// A sidecar lock file serializes writers across processes, and rows other
// processes appended are picked up before every read and write.
type CSVStore struct {
	path string
	lock *flock.Flock

	mu      sync.Mutex
	index   *index
	columns map[string]int
	offset  int64
}

// OpenCSV opens or creates the CSV store at path. Files written with an
// older column layout are copied to path.bak, then rewritten with the
// current header.
func OpenCSV(path string) (*CSVStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	s := &CSVStore{
		path:  path,
		lock:  flock.New(path + ".lock"),
		index: newIndex(),
	}

	if err := s.lock.Lock(); err != nil {
		return nil, fmt.Errorf("failed to lock store: %w", err)
	}
	defer s.lock.Unlock()

	if err := s.load(); err != nil {
		return nil, err
	}
	slog.Debug("Opened CSV store", "path", path, "records", len(s.index.keys))
	return s, nil
}

func (s *CSVStore) load() error {
	info, err := os.Stat(s.path)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && info.Size() == 0) {
		return s.rewrite()
	}
	if err != nil {
		return fmt.Errorf("failed to stat store: %w", err)
	}

	if err := s.refresh(); err != nil {
		return err
	}
	for _, column := range csvColumns {
		if _, ok := s.columns[column]; !ok {
			slog.Info("Upgrading store header", "path", s.path, "missing", column, "backup", s.path+".bak")
			if err := copyFile(s.path, s.path+".bak"); err != nil {
				return fmt.Errorf("failed to back up store before upgrade: %w", err)
			}
			return s.rewrite()
		}
	}
	return nil
}

// copyFile copies src to dst, replacing dst
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// refresh reads rows appended since the last read. Callers hold the file lock.
func (s *CSVStore) refresh() error {
	file, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(s.offset, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek store: %w", err)
	}

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				slog.Warn("Skipping unreadable store row", "path", s.path, "line", parseErr.Line, "err", err)
				continue
			}
			return fmt.Errorf("failed to read store: %w", err)
		}
		if s.columns == nil {
			s.columns = headerColumns(row)
			continue
		}
		s.index.add(s.decode(row))
	}
	s.offset += reader.InputOffset()
	return nil
}

// rewrite replaces the file with the current header and every indexed
// record. Callers hold the file lock.
func (s *CSVStore) rewrite() error {
	tempPath := s.path + ".tmp"
	out, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create store file: %w", err)
	}

	writer := csv.NewWriter(out)
	_ = writer.Write(csvColumns)
	for _, record := range s.index.all() {
		_ = writer.Write(encodeRow(record))
	}
	writer.Flush()
	err = writer.Error()
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to write store file: %w", err)
	}
	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to move store file: %w", err)
	}

	info, err := os.Stat(s.path)
	if err != nil {
		return fmt.Errorf("failed to stat store: %w", err)
	}
	s.columns = headerColumns(csvColumns)
	s.offset = info.Size()
	return nil
}

func (s *CSVStore) Lookup(_ context.Context, title string) (*models.ResolutionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.sync(); err != nil {
		return nil, err
	}
	return recordPtr(s.index.get(title)), nil
}

func (s *CSVStore) FindSimilar(_ context.Context, key string, threshold int) (*models.ResolutionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.sync(); err != nil {
		return nil, err
	}
	return recordPtr(s.index.similar(key, threshold)), nil
}

func (s *CSVStore) All(_ context.Context) ([]models.ResolutionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.sync(); err != nil {
		return nil, err
	}
	return s.index.all(), nil
}

// Upsert appends record unless a record with the same normalized title
// exists in the file, including rows written by other processes.
func (s *CSVStore) Upsert(_ context.Context, record models.ResolutionRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lock.Lock(); err != nil {
		return false, fmt.Errorf("failed to lock store: %w", err)
	}
	defer s.lock.Unlock()

	if err := s.refresh(); err != nil {
		return false, err
	}
	if textnorm.Normalize(record.Title) == "" {
		return false, nil
	}
	if _, exists := s.index.get(record.Title); exists {
		return false, nil
	}

	if err := s.appendRow(encodeRow(record)); err != nil {
		return false, err
	}
	return s.index.add(record), nil
}

func (s *CSVStore) appendRow(row []string) error {
	file, err := os.OpenFile(s.path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open store for append: %w", err)
	}

	writer := csv.NewWriter(file)
	_ = writer.Write(row)
	writer.Flush()
	err = writer.Error()
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("failed to append to store: %w", err)
	}

	info, err := os.Stat(s.path)
	if err != nil {
		return fmt.Errorf("failed to stat store: %w", err)
	}
	s.offset = info.Size()
	return nil
}

// sync picks up rows appended by other processes under a shared lock
func (s *CSVStore) sync() error {
	if err := s.lock.RLock(); err != nil {
		return fmt.Errorf("failed to lock store: %w", err)
	}
	defer s.lock.Unlock()
	return s.refresh()
}

func (s *CSVStore) Close() error {
	return s.lock.Close()
}

func headerColumns(header []string) map[string]int {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, dup := columns[name]; !dup {
			columns[name] = i
		}
	}
	return columns
}

func encodeRow(record models.ResolutionRecord) []string {
	source := record.Source
	if source == "" {
		source = models.SourceNone
	}
	return []string{
		record.Title,
		record.LCCN,
		FormatList(record.AltLCCN),
		record.OCLC,
		FormatList(record.AltOCLC),
		string(source),
		record.NoMatch,
	}
}

// decode maps a row through the file's header. Rows from files without a
// Source column came from the dump-only resolver; rows without identifiers
// and without a marker are read as no-match.
func (s *CSVStore) decode(row []string) models.ResolutionRecord {
	cell := func(name string) string {
		i, ok := s.columns[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	record := models.ResolutionRecord{
		Title:   strings.TrimSpace(cell(ColumnTitle)),
		LCCN:    cleanCell(cell(ColumnLCCN)),
		AltLCCN: ParseList(cell(ColumnAltLCCN)),
		OCLC:    cleanCell(cell(ColumnOCLC)),
		AltOCLC: ParseList(cell(ColumnAltOCLC)),
		NoMatch: cleanCell(cell(ColumnNoMatch)),
	}

	lccn, oclc := record.Identifiers()
	hasIdentifier := len(lccn) > 0 || len(oclc) > 0

	if _, ok := s.columns[ColumnSource]; ok {
		record.Source = models.ParseSource(strings.TrimSpace(cell(ColumnSource)))
	} else if hasIdentifier {
		record.Source = models.SourceOpenLibrary
	} else {
		record.Source = models.SourceNone
	}

	if !hasIdentifier && record.NoMatch == "" {
		record.NoMatch = models.NoMatchMarker
		record.Source = models.SourceNone
	}
	return record
}
