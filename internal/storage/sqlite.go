package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/lehigh-university-libraries/lccn-resolver/internal/models"
	"github.com/lehigh-university-libraries/lccn-resolver/internal/similarity"
	"github.com/lehigh-university-libraries/lccn-resolver/internal/textnorm"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS resolutions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    norm_key TEXT NOT NULL UNIQUE,
    title TEXT NOT NULL,
    lccn TEXT NOT NULL DEFAULT '',
    alt_lccn TEXT NOT NULL DEFAULT '[]',
    oclc TEXT NOT NULL DEFAULT '',
    alt_oclc TEXT NOT NULL DEFAULT '[]',
    source TEXT NOT NULL DEFAULT 'None',
    no_match TEXT NOT NULL DEFAULT ''
);
`

// SQLiteStore keeps resolutions in a SQLite table keyed by normalized title
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLite initializes or connects to the resolution database
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

func (s *SQLiteStore) Lookup(ctx context.Context, title string) (*models.ResolutionRecord, error) {
	key := textnorm.Normalize(title)
	if key == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT title, lccn, alt_lccn, oclc, alt_oclc, source, no_match FROM resolutions WHERE norm_key = ?`, key)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup resolution: %w", err)
	}
	return &record, nil
}

func (s *SQLiteStore) Upsert(ctx context.Context, record models.ResolutionRecord) (bool, error) {
	key := textnorm.Normalize(record.Title)
	if key == "" {
		return false, nil
	}
	altLCCN, err := json.Marshal(nonNil(record.AltLCCN))
	if err != nil {
		return false, fmt.Errorf("marshal alt lccn: %w", err)
	}
	altOCLC, err := json.Marshal(nonNil(record.AltOCLC))
	if err != nil {
		return false, fmt.Errorf("marshal alt oclc: %w", err)
	}
	source := record.Source
	if source == "" {
		source = models.SourceNone
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO resolutions (norm_key, title, lccn, alt_lccn, oclc, alt_oclc, source, no_match)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(norm_key) DO NOTHING`,
		key, record.Title, record.LCCN, string(altLCCN), record.OCLC, string(altOCLC), string(source), record.NoMatch)
	if err != nil {
		return false, fmt.Errorf("insert resolution: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// FindSimilar checks the exact key first, then scans stored keys in
// insertion order
func (s *SQLiteStore) FindSimilar(ctx context.Context, key string, threshold int) (*models.ResolutionRecord, error) {
	if key == "" {
		return nil, nil
	}
	if record, err := s.Lookup(ctx, key); err != nil || record != nil {
		return record, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, norm_key FROM resolutions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list resolution keys: %w", err)
	}
	var matchID int64 = -1
	for rows.Next() {
		var (
			id     int64
			stored string
		)
		if err := rows.Scan(&id, &stored); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan resolution key: %w", err)
		}
		if comparableLength(stored, key) && similarity.PartialRatio(key, stored) >= threshold {
			matchID = id
			break
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate resolution keys: %w", err)
	}
	if matchID < 0 {
		return nil, nil
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT title, lccn, alt_lccn, oclc, alt_oclc, source, no_match FROM resolutions WHERE id = ?`, matchID)
	record, err := scanRecord(row)
	if err != nil {
		return nil, fmt.Errorf("load resolution: %w", err)
	}
	return &record, nil
}

func (s *SQLiteStore) All(ctx context.Context) ([]models.ResolutionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT title, lccn, alt_lccn, oclc, alt_oclc, source, no_match FROM resolutions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list resolutions: %w", err)
	}
	defer rows.Close()

	var records []models.ResolutionRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan resolution: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate resolutions: %w", err)
	}
	return records, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (models.ResolutionRecord, error) {
	var (
		record           models.ResolutionRecord
		altLCCN, altOCLC string
		source           string
	)
	if err := row.Scan(&record.Title, &record.LCCN, &altLCCN, &record.OCLC, &altOCLC, &source, &record.NoMatch); err != nil {
		return models.ResolutionRecord{}, err
	}
	if err := json.Unmarshal([]byte(altLCCN), &record.AltLCCN); err != nil {
		return models.ResolutionRecord{}, fmt.Errorf("decode alt lccn: %w", err)
	}
	if err := json.Unmarshal([]byte(altOCLC), &record.AltOCLC); err != nil {
		return models.ResolutionRecord{}, fmt.Errorf("decode alt oclc: %w", err)
	}
	if len(record.AltLCCN) == 0 {
		record.AltLCCN = nil
	}
	if len(record.AltOCLC) == 0 {
		record.AltOCLC = nil
	}
	record.Source = models.ParseSource(source)
	return record, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
