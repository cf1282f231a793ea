package config

import (
	"strings"

	"github.com/lehigh-university-libraries/lccn-resolver/internal/catalog"
	"github.com/lehigh-university-libraries/lccn-resolver/internal/openlibrary"
	"github.com/lehigh-university-libraries/lccn-resolver/internal/resolver"
	"github.com/lehigh-university-libraries/lccn-resolver/internal/storage"
)

const (
	defaultStorePath   = "lccn_results.csv"
	defaultRejectsPath = "rejected_titles.csv"
	defaultResultsPath = "lccn_results.json"
	defaultReportsDir  = "reports"
)

// Default returns the configuration used when no file or environment overrides it.
func Default() Config {
	cat := catalog.DefaultConfig()
	scan := openlibrary.DefaultScanConfig()
	res := resolver.DefaultConfig()

	return Config{
		Paths: Paths{
			Store:      defaultStorePath,
			Rejects:    defaultRejectsPath,
			Results:    defaultResultsPath,
			DumpCache:  openlibrary.DefaultCacheDir,
			ReportsDir: defaultReportsDir,
		},
		Catalog: Catalog{
			SearchURL:               cat.SearchURL,
			ItemURL:                 cat.ItemURL,
			MaxRetries:              cat.MaxRetries,
			BaseDelaySeconds:        cat.BaseDelay.Seconds(),
			MaxBackoffSeconds:       cat.MaxBackoff.Seconds(),
			ThrottleCooldownSeconds: cat.ThrottleCooldown.Seconds(),
			PostRequestDelaySeconds: cat.PostRequestDelay.Seconds(),
			RequestTimeoutSeconds:   cat.RequestTimeout.Seconds(),
			RateLimitRequests:       cat.RateLimitRequests,
			RateLimitWindowSeconds:  cat.RateLimitWindow.Seconds(),
			MaxCandidates:           cat.MaxCandidates,
		},
		Scan: Scan{
			MaxMatches:   scan.MaxMatches,
			LengthFactor: scan.LengthFactor,
		},
		Resolver: Resolver{
			Strategy:             string(res.Strategy),
			RemoteTimeoutSeconds: res.RemoteTimeout.Seconds(),
			MaxAlternates:        res.MaxAlternates,
			Concurrency:          res.Concurrency,
			ConfirmLCCNs:         res.ConfirmLCCNs,
		},
		Thresholds: Thresholds{
			SearchAccept:  cat.AcceptThreshold,
			ConfirmAccept: res.ConfirmThreshold,
			DumpAccept:    scan.AcceptThreshold,
			StoreReuse:    scan.StoreThreshold,
		},
		Logging: Logging{
			Level:  "info",
			Format: "auto",
		},
		Store: Store{
			Backend: storage.BackendCSV,
		},
	}
}

func (c *Config) normalize() {
	c.Paths.Store = expandPath(strings.TrimSpace(c.Paths.Store))
	c.Paths.Rejects = expandPath(strings.TrimSpace(c.Paths.Rejects))
	c.Paths.Results = expandPath(strings.TrimSpace(c.Paths.Results))
	c.Paths.Dump = expandPath(strings.TrimSpace(c.Paths.Dump))
	c.Paths.ReportsDir = expandPath(strings.TrimSpace(c.Paths.ReportsDir))
	if strings.TrimSpace(c.Paths.DumpCache) == "" {
		c.Paths.DumpCache = openlibrary.DefaultCacheDir
	}
	c.Paths.DumpCache = expandPath(c.Paths.DumpCache)

	c.Resolver.Strategy = strings.ToLower(strings.TrimSpace(c.Resolver.Strategy))
	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "auto"
	}
}
