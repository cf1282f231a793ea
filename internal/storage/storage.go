package storage

import (
	"context"
	"fmt"

	"github.com/lehigh-university-libraries/lccn-resolver/internal/models"
	"github.com/lehigh-university-libraries/lccn-resolver/internal/similarity"
	"github.com/lehigh-university-libraries/lccn-resolver/internal/textnorm"
)

// Store persists at most one resolution per normalized title. The first
// record stored for a title wins; later upserts for it are dropped.
type Store interface {
	// Lookup returns the record whose normalized title equals Normalize(title)
	Lookup(ctx context.Context, title string) (*models.ResolutionRecord, error)
	// Upsert stores record unless its title is already present and reports
	// whether it was inserted
	Upsert(ctx context.Context, record models.ResolutionRecord) (bool, error)
	// FindSimilar returns the first record whose normalized title has a
	// partial-ratio score of at least threshold against key
	FindSimilar(ctx context.Context, key string, threshold int) (*models.ResolutionRecord, error)
	// All returns every record in insertion order
	All(ctx context.Context) ([]models.ResolutionRecord, error)
	Close() error
}

// Backend names
const (
	BackendCSV    = "csv"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Open opens the store backend at path
func Open(backend, path string) (Store, error) {
	switch backend {
	case "", BackendCSV:
		return OpenCSV(path)
	case BackendSQLite:
		return OpenSQLite(path)
	case BackendMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", backend)
	}
}

// similarLengthFactor bounds how far apart in length a stored title and the
// query may be before the fuzzy comparison is skipped
const similarLengthFactor = 1.5

// index is the in-memory view shared by the file-backed stores
type index struct {
	keys    []string
	records map[string]models.ResolutionRecord
}

func newIndex() *index {
	return &index{records: make(map[string]models.ResolutionRecord)}
}

func (ix *index) get(title string) (models.ResolutionRecord, bool) {
	record, ok := ix.records[textnorm.Normalize(title)]
	return record, ok
}

// add inserts record keep-first and reports whether it was new
func (ix *index) add(record models.ResolutionRecord) bool {
	key := textnorm.Normalize(record.Title)
	if key == "" {
		return false
	}
	if _, exists := ix.records[key]; exists {
		return false
	}
	ix.keys = append(ix.keys, key)
	ix.records[key] = record
	return true
}

func (ix *index) similar(key string, threshold int) (models.ResolutionRecord, bool) {
	if key == "" {
		return models.ResolutionRecord{}, false
	}
	if record, ok := ix.records[key]; ok {
		return record, true
	}
	for _, stored := range ix.keys {
		if !comparableLength(stored, key) {
			continue
		}
		if similarity.PartialRatio(key, stored) >= threshold {
			return ix.records[stored], true
		}
	}
	return models.ResolutionRecord{}, false
}

func (ix *index) all() []models.ResolutionRecord {
	out := make([]models.ResolutionRecord, 0, len(ix.keys))
	for _, key := range ix.keys {
		out = append(out, ix.records[key])
	}
	return out
}

func comparableLength(a, b string) bool {
	la, lb := len([]rune(a)), len([]rune(b))
	if la > lb {
		la, lb = lb, la
	}
	return la > 0 && float64(lb) <= similarLengthFactor*float64(la)
}

func recordPtr(record models.ResolutionRecord, ok bool) *models.ResolutionRecord {
	if !ok {
		return nil
	}
	return &record
}
