package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/lccn-resolver/internal/catalog"
	"github.com/lehigh-university-libraries/lccn-resolver/internal/openlibrary"
	"github.com/lehigh-university-libraries/lccn-resolver/internal/resolver"
	"github.com/pelletier/go-toml/v2"
)

// DefaultFileName is looked up in the working directory when no config path is given
const DefaultFileName = "lccn.toml"

// Paths contains file and directory locations.
type Paths struct {
	Store      string `toml:"store"`
	Rejects    string `toml:"rejects"`
	Results    string `toml:"results"`
	Dump       string `toml:"dump"`
	DumpCache  string `toml:"dump_cache"`
	ReportsDir string `toml:"reports_dir"`
}

// Catalog contains the remote catalog client settings. Delays are in seconds.
type Catalog struct {
	SearchURL               string  `toml:"search_url"`
	ItemURL                 string  `toml:"item_url"`
	MaxRetries              int     `toml:"max_retries"`
	BaseDelaySeconds        float64 `toml:"base_delay_seconds"`
	MaxBackoffSeconds       float64 `toml:"max_backoff_seconds"`
	ThrottleCooldownSeconds float64 `toml:"throttle_cooldown_seconds"`
	PostRequestDelaySeconds float64 `toml:"post_request_delay_seconds"`
	RequestTimeoutSeconds   float64 `toml:"request_timeout_seconds"`
	RateLimitRequests       int     `toml:"rate_limit_requests"`
	RateLimitWindowSeconds  float64 `toml:"rate_limit_window_seconds"`
	MaxCandidates           int     `toml:"max_candidates"`
}

// Scan contains the bulk dump scan settings.
type Scan struct {
	MaxMatches   int     `toml:"max_matches"`
	LengthFactor float64 `toml:"length_factor"`
}

// Resolver contains batch resolution settings.
type Resolver struct {
	Strategy             string  `toml:"strategy"`
	RemoteTimeoutSeconds float64 `toml:"remote_timeout_seconds"`
	MaxAlternates        int     `toml:"max_alternates"`
	Concurrency          int     `toml:"concurrency"`
	ConfirmLCCNs         bool    `toml:"confirm_lccns"`
}

// Thresholds are the 0-100 similarity scores each match decision needs.
type Thresholds struct {
	SearchAccept  int `toml:"search_accept"`
	ConfirmAccept int `toml:"confirm_accept"`
	DumpAccept    int `toml:"dump_accept"`
	StoreReuse    int `toml:"store_reuse"`
}

// Logging contains configuration for log output.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Store selects the resolution store backend.
type Store struct {
	Backend string `toml:"backend"`
}

// Config encapsulates all configuration values for the resolver.
type Config struct {
	Paths      Paths      `toml:"paths"`
	Catalog    Catalog    `toml:"catalog"`
	Scan       Scan       `toml:"scan"`
	Resolver   Resolver   `toml:"resolver"`
	Thresholds Thresholds `toml:"thresholds"`
	Logging    Logging    `toml:"logging"`
	Store      Store      `toml:"store"`
}

// Load builds the configuration from defaults, the TOML file at path (or
// lccn.toml in the working directory when path is empty) and LCCN_*
// environment variables. It returns the config and the file actually read,
// empty when none was found.
func Load(path string) (*Config, string, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", fmt.Errorf("parse config: %w", err)
		}
	} else {
		resolvedPath = ""
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, "", err
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return &cfg, resolvedPath, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFileName
	}

	_, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if explicit {
				return "", false, fmt.Errorf("config file %q not found", path)
			}
			return path, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	return path, true, nil
}

// CatalogConfig returns the remote client settings
func (c *Config) CatalogConfig() catalog.Config {
	return catalog.Config{
		SearchURL:         c.Catalog.SearchURL,
		ItemURL:           c.Catalog.ItemURL,
		MaxRetries:        c.Catalog.MaxRetries,
		BaseDelay:         seconds(c.Catalog.BaseDelaySeconds),
		MaxBackoff:        seconds(c.Catalog.MaxBackoffSeconds),
		ThrottleCooldown:  seconds(c.Catalog.ThrottleCooldownSeconds),
		PostRequestDelay:  seconds(c.Catalog.PostRequestDelaySeconds),
		RequestTimeout:    seconds(c.Catalog.RequestTimeoutSeconds),
		RateLimitRequests: c.Catalog.RateLimitRequests,
		RateLimitWindow:   seconds(c.Catalog.RateLimitWindowSeconds),
		AcceptThreshold:   c.Thresholds.SearchAccept,
		MaxCandidates:     c.Catalog.MaxCandidates,
	}
}

// ScanConfig returns the dump scan settings
func (c *Config) ScanConfig() openlibrary.ScanConfig {
	return openlibrary.ScanConfig{
		AcceptThreshold: c.Thresholds.DumpAccept,
		StoreThreshold:  c.Thresholds.StoreReuse,
		MaxMatches:      c.Scan.MaxMatches,
		LengthFactor:    c.Scan.LengthFactor,
	}
}

// DownloadConfig returns the dump download settings
func (c *Config) DownloadConfig(url string, force bool) openlibrary.DownloadConfig {
	return openlibrary.DownloadConfig{
		URL:           url,
		CacheDir:      c.Paths.DumpCache,
		ForceDownload: force,
	}
}

// ResolverConfig returns the orchestration settings
func (c *Config) ResolverConfig() resolver.Config {
	return resolver.Config{
		Strategy:         resolver.Strategy(c.Resolver.Strategy),
		RemoteTimeout:    seconds(c.Resolver.RemoteTimeoutSeconds),
		MaxAlternates:    c.Resolver.MaxAlternates,
		ConfirmLCCNs:     c.Resolver.ConfirmLCCNs,
		ConfirmThreshold: c.Thresholds.ConfirmAccept,
		Concurrency:      c.Resolver.Concurrency,
	}
}

// ThresholdMap returns the thresholds keyed by their TOML names
func (c *Config) ThresholdMap() map[string]int {
	return map[string]int{
		"search_accept":  c.Thresholds.SearchAccept,
		"confirm_accept": c.Thresholds.ConfirmAccept,
		"dump_accept":    c.Thresholds.DumpAccept,
		"store_reuse":    c.Thresholds.StoreReuse,
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func expandPath(pathValue string) string {
	if !strings.HasPrefix(pathValue, "~") {
		return pathValue
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return pathValue
	}
	if pathValue == "~" {
		return home
	}
	if pathValue[1] == '/' || pathValue[1] == '\\' {
		return filepath.Join(home, pathValue[2:])
	}
	return pathValue
}
