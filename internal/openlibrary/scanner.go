package openlibrary

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lehigh-university-libraries/lccn-resolver/internal/models"
	"github.com/lehigh-university-libraries/lccn-resolver/internal/similarity"
	"github.com/lehigh-university-libraries/lccn-resolver/internal/textnorm"
)

// ResolvedIndex is the part of the resolution store the scanner consults
// before touching the dump
type ResolvedIndex interface {
	FindSimilar(ctx context.Context, key string, threshold int) (*models.ResolutionRecord, error)
}

// cancelCheckLines is how many dump lines pass between context checks
var cancelCheckLines = 100000

// ScanConfig tunes the dump scan
type ScanConfig struct {
	// AcceptThreshold is the partial-ratio score a dump title needs
	AcceptThreshold int
	// StoreThreshold is the partial-ratio score that reuses a stored resolution
	StoreThreshold int
	// MaxMatches stops the scan once this many editions were accepted
	MaxMatches int
	// LengthFactor bounds how much longer than the query a dump title may be
	LengthFactor float64
}

// DefaultScanConfig returns the thresholds tuned against the editions dump
func DefaultScanConfig() ScanConfig {
	return ScanConfig{
		AcceptThreshold: 96,
		StoreThreshold:  95,
		MaxMatches:      3,
		LengthFactor:    1.5,
	}
}

// Scanner matches titles against an Open Library editions dump
type Scanner struct {
	path  string
	cfg   ScanConfig
	index ResolvedIndex
}

// NewScanner creates a scanner over the dump at path. index may be nil.
func NewScanner(path string, cfg ScanConfig, index ResolvedIndex) *Scanner {
	defaults := DefaultScanConfig()
	if cfg.MaxMatches < 1 {
		cfg.MaxMatches = defaults.MaxMatches
	}
	if cfg.LengthFactor < 1 {
		cfg.LengthFactor = defaults.LengthFactor
	}
	return &Scanner{path: path, cfg: cfg, index: index}
}

// Scan returns up to MaxMatches candidates for title. A stored resolution
// that matches closely enough is returned instead of scanning; a stored
// no-match yields no candidates.
func (s *Scanner) Scan(ctx context.Context, title string) ([]models.MatchCandidate, error) {
	query := textnorm.MatchSubstring(textnorm.Normalize(title))
	if query == "" {
		return nil, nil
	}

	if s.index != nil {
		record, err := s.index.FindSimilar(ctx, query, s.cfg.StoreThreshold)
		if err != nil {
			return nil, fmt.Errorf("failed to check store before scan: %w", err)
		}
		if record != nil {
			slog.Info("Reusing stored resolution instead of scanning", "title", title, "stored", record.Title)
			return candidateFromRecord(*record), nil
		}
	}

	reader, err := Open(s.path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	start := time.Now()
	var matches []models.MatchCandidate
	nextCheck := cancelCheckLines
	for reader.Next() {
		if reader.Lines() >= nextCheck {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			nextCheck = reader.Lines() + cancelCheckLines
		}
		if candidate, ok := s.match(query, reader.Edition()); ok {
			matches = append(matches, candidate)
			if len(matches) >= s.cfg.MaxMatches {
				break
			}
		}
	}
	if err := reader.Err(); err != nil {
		return matches, err
	}

	slog.Debug("Dump scan finished",
		"title", title,
		"matches", len(matches),
		"lines", reader.Lines(),
		"duration", time.Since(start))
	return matches, nil
}

// match scores one edition against the query substring
func (s *Scanner) match(query string, edition Edition) (models.MatchCandidate, bool) {
	lccn, oclc := edition.Identifiers()
	if len(lccn) == 0 && len(oclc) == 0 {
		return models.MatchCandidate{}, false
	}

	best := 0
	for _, candidate := range []string{edition.Title, edition.FullTitle} {
		norm := textnorm.Normalize(candidate)
		if !reasonableLength(norm, query, s.cfg.LengthFactor) {
			continue
		}
		if score := similarity.PartialRatio(query, norm); score > best {
			best = score
		}
	}
	if best < s.cfg.AcceptThreshold {
		return models.MatchCandidate{}, false
	}

	return models.MatchCandidate{
		SourceTitle: edition.DisplayTitle(),
		LCCN:        lccn,
		OCLC:        oclc,
		Score:       best,
		Origin:      models.OriginBulkDump,
	}, true
}

// reasonableLength keeps dump titles at least as long as the query and no
// more than factor times longer
func reasonableLength(candidate, query string, factor float64) bool {
	lc, lq := len([]rune(candidate)), len([]rune(query))
	return lc >= lq && float64(lc) <= factor*float64(lq)
}

func candidateFromRecord(record models.ResolutionRecord) []models.MatchCandidate {
	if record.IsNoMatch() {
		return nil
	}
	lccn, oclc := record.Identifiers()
	if len(lccn) == 0 && len(oclc) == 0 {
		return nil
	}
	origin := models.OriginBulkDump
	if record.Source == models.SourceLOC {
		origin = models.OriginRemote
	}
	return []models.MatchCandidate{{
		SourceTitle: record.Title,
		LCCN:        lccn,
		OCLC:        oclc,
		Score:       100,
		Origin:      origin,
	}}
}
