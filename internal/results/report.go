package results

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/lehigh-university-libraries/lccn-resolver/internal/resolver"
	"gopkg.in/yaml.v3"
)

const timestampFormat = "2006-01-02_15-04-05"

// RunConfig is the effective configuration recorded with a run
type RunConfig struct {
	Titles       string         `yaml:"titles"`
	Store        string         `yaml:"store"`
	StoreBackend string         `yaml:"storebackend"`
	Dump         string         `yaml:"dump,omitempty"`
	Strategy     string         `yaml:"strategy"`
	Concurrency  int            `yaml:"concurrency"`
	ConfirmLCCNs bool           `yaml:"confirmlccns"`
	DryRun       bool           `yaml:"dryrun"`
	Thresholds   map[string]int `yaml:"thresholds"`
}

// Entry is the report line for one input title
type Entry struct {
	Title        string   `yaml:"title"`
	CleanedTitle string   `yaml:"cleanedtitle,omitempty"`
	State        string   `yaml:"state"`
	Source       string   `yaml:"source,omitempty"`
	LCCN         string   `yaml:"lccn,omitempty"`
	AltLCCN      []string `yaml:"altlccn,omitempty"`
	OCLC         string   `yaml:"oclc,omitempty"`
	AltOCLC      []string `yaml:"altoclc,omitempty"`
	Score        int      `yaml:"score,omitempty"`
	RejectReason string   `yaml:"rejectreason,omitempty"`
	Inserted     bool     `yaml:"inserted"`
	Duration     string   `yaml:"duration"`
}

// Summary counts outcomes per state
type Summary struct {
	Total         int            `yaml:"total"`
	Resolved      int            `yaml:"resolved"`
	Inserted      int            `yaml:"inserted"`
	States        map[string]int `yaml:"states"`
	TotalDuration string         `yaml:"totalduration"`
	AverageTime   string         `yaml:"averagetime"`
}

// Report is the YAML document written for each batch run
type Report struct {
	RunID     string    `yaml:"runid"`
	Timestamp string    `yaml:"timestamp"`
	Config    RunConfig `yaml:"config"`
	Summary   Summary   `yaml:"summary"`
	Results   []Entry   `yaml:"results"`
}

// NewRunID returns a fresh identifier for a batch run
func NewRunID() string {
	return uuid.NewString()
}

// Summarize aggregates outcomes. Titles never started count as pending.
func Summarize(outcomes []resolver.Outcome) Summary {
	summary := Summary{
		Total:  len(outcomes),
		States: make(map[string]int),
	}

	var total time.Duration
	for _, o := range outcomes {
		summary.States[string(o.State)]++
		total += o.Duration
		if o.Inserted {
			summary.Inserted++
		}
		switch o.State {
		case resolver.StateCacheHit, resolver.StateRemoteHit, resolver.StateBulkHit:
			summary.Resolved++
		}
	}

	summary.TotalDuration = total.Round(time.Millisecond).String()
	if len(outcomes) > 0 {
		summary.AverageTime = (total / time.Duration(len(outcomes))).Round(time.Millisecond).String()
	} else {
		summary.AverageTime = "0s"
	}
	return summary
}

// NewReport builds the report for a finished run
func NewReport(runID string, started time.Time, cfg RunConfig, outcomes []resolver.Outcome) *Report {
	report := &Report{
		RunID:     runID,
		Timestamp: started.Format(timestampFormat),
		Config:    cfg,
		Summary:   Summarize(outcomes),
		Results:   make([]Entry, 0, len(outcomes)),
	}

	for _, o := range outcomes {
		entry := Entry{
			Title:        o.Title,
			CleanedTitle: o.CleanedTitle,
			State:        string(o.State),
			Score:        o.Score,
			RejectReason: o.RejectReason,
			Inserted:     o.Inserted,
			Duration:     o.Duration.Round(time.Millisecond).String(),
		}
		if o.Record != nil {
			entry.Source = string(o.Record.Source)
			entry.LCCN = o.Record.LCCN
			entry.AltLCCN = o.Record.AltLCCN
			entry.OCLC = o.Record.OCLC
			entry.AltOCLC = o.Record.AltOCLC
		}
		report.Results = append(report.Results, entry)
	}
	return report
}

// Save writes the report to dir/<timestamp>-<runID>.yaml and returns the path
func (r *Report) Save(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create reports directory: %w", err)
	}

	data, err := yaml.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("failed to marshal YAML: %w", err)
	}

	filename := filepath.Join(dir, fmt.Sprintf("%s-%s.yaml", r.Timestamp, r.RunID))
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write YAML file: %w", err)
	}

	slog.Info("Saved run report", "path", filename, "titles", r.Summary.Total)
	return filename, nil
}

// LoadReport reads a report written by Save
func LoadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	var report Report
	if err := yaml.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &report, nil
}

// StateCount is one row of the per-state summary
type StateCount struct {
	State string
	Count int
}

// StateCounts returns the summary states sorted by name
func (s Summary) StateCounts() []StateCount {
	counts := make([]StateCount, 0, len(s.States))
	for name, n := range s.States {
		counts = append(counts, StateCount{State: name, Count: n})
	}
	sort.Slice(counts, func(i, j int) bool {
		return counts[i].State < counts[j].State
	})
	return counts
}
