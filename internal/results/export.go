package results

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lehigh-university-libraries/lccn-resolver/internal/models"
	"github.com/lehigh-university-libraries/lccn-resolver/internal/resolver"
	"github.com/parquet-go/parquet-go"
)

// NewRecords returns the records a run inserted into the store, in input order
func NewRecords(outcomes []resolver.Outcome) []models.ResolutionRecord {
	records := make([]models.ResolutionRecord, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Inserted && o.Record != nil {
			records = append(records, *o.Record)
		}
	}
	return records
}

// SaveJSON writes records as an indented JSON array
func SaveJSON(path string, records []models.ResolutionRecord) error {
	if records == nil {
		records = []models.ResolutionRecord{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create results directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	slog.Info("Saved results", "path", path, "records", len(records))
	return nil
}

// ExportParquet writes records to a Parquet file with list columns for the
// alternate identifiers
func ExportParquet(path string, records []models.ResolutionRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	if err := parquet.WriteFile(path, records); err != nil {
		return fmt.Errorf("failed to write parquet: %w", err)
	}
	slog.Info("Exported store", "path", path, "records", len(records))
	return nil
}

// LoadParquet reads records written by ExportParquet
func LoadParquet(path string) ([]models.ResolutionRecord, error) {
	records, err := parquet.ReadFile[models.ResolutionRecord](path)
	if err != nil {
		return nil, fmt.Errorf("failed to read parquet: %w", err)
	}
	return records, nil
}
