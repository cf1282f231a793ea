package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lehigh-university-libraries/lccn-resolver/internal/resolver"
	"github.com/lehigh-university-libraries/lccn-resolver/internal/storage"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateCatalog(); err != nil {
		return err
	}
	if err := c.validateScan(); err != nil {
		return err
	}
	if err := c.validateResolver(); err != nil {
		return err
	}
	if err := c.validateThresholds(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return c.validateStore()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.Store) == "" {
		return errors.New("paths.store must be set")
	}
	if strings.TrimSpace(c.Paths.Rejects) == "" {
		return errors.New("paths.rejects must be set")
	}
	if strings.TrimSpace(c.Paths.ReportsDir) == "" {
		return errors.New("paths.reports_dir must be set")
	}
	return nil
}

func (c *Config) validateCatalog() error {
	if strings.TrimSpace(c.Catalog.SearchURL) == "" {
		return errors.New("catalog.search_url must be set")
	}
	if strings.TrimSpace(c.Catalog.ItemURL) == "" {
		return errors.New("catalog.item_url must be set")
	}
	if c.Catalog.MaxRetries < 1 {
		return errors.New("catalog.max_retries must be positive")
	}
	if c.Catalog.BaseDelaySeconds < 0 || c.Catalog.MaxBackoffSeconds < 0 ||
		c.Catalog.ThrottleCooldownSeconds < 0 || c.Catalog.PostRequestDelaySeconds < 0 {
		return errors.New("catalog delays must not be negative")
	}
	if c.Catalog.RequestTimeoutSeconds <= 0 {
		return errors.New("catalog.request_timeout_seconds must be positive")
	}
	if c.Catalog.RateLimitRequests < 1 {
		return errors.New("catalog.rate_limit_requests must be positive")
	}
	if c.Catalog.RateLimitWindowSeconds <= 0 {
		return errors.New("catalog.rate_limit_window_seconds must be positive")
	}
	if c.Catalog.MaxCandidates < 1 {
		return errors.New("catalog.max_candidates must be positive")
	}
	return nil
}

func (c *Config) validateScan() error {
	if c.Scan.MaxMatches < 1 {
		return errors.New("scan.max_matches must be positive")
	}
	if c.Scan.LengthFactor < 1 {
		return errors.New("scan.length_factor must be at least 1")
	}
	return nil
}

func (c *Config) validateResolver() error {
	if _, err := resolver.ParseStrategy(c.Resolver.Strategy); err != nil {
		return fmt.Errorf("resolver.strategy: %w", err)
	}
	if c.Resolver.RemoteTimeoutSeconds <= 0 {
		return errors.New("resolver.remote_timeout_seconds must be positive")
	}
	if c.Resolver.MaxAlternates < 0 {
		return errors.New("resolver.max_alternates must not be negative")
	}
	if c.Resolver.Concurrency < 1 {
		return errors.New("resolver.concurrency must be positive")
	}
	return nil
}

func (c *Config) validateThresholds() error {
	for name, value := range c.ThresholdMap() {
		if value < 0 || value > 100 {
			return fmt.Errorf("thresholds.%s must be between 0 and 100", name)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "auto", "text", "json":
	default:
		return fmt.Errorf("logging.format %q is not one of auto, text, json", c.Logging.Format)
	}
	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Backend {
	case storage.BackendCSV, storage.BackendSQLite:
		return nil
	default:
		return fmt.Errorf("store.backend %q is not one of %s, %s", c.Store.Backend, storage.BackendCSV, storage.BackendSQLite)
	}
}
