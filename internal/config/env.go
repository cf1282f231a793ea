package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "LCCN_"

type envBinding struct {
	name  string
	apply func(c *Config, value string) error
}

func stringEnv(name string, field func(*Config) *string) envBinding {
	return envBinding{name: name, apply: func(c *Config, value string) error {
		*field(c) = value
		return nil
	}}
}

func intEnv(name string, field func(*Config) *int) envBinding {
	return envBinding{name: name, apply: func(c *Config, value string) error {
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		*field(c) = n
		return nil
	}}
}

func floatEnv(name string, field func(*Config) *float64) envBinding {
	return envBinding{name: name, apply: func(c *Config, value string) error {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		*field(c) = f
		return nil
	}}
}

func boolEnv(name string, field func(*Config) *bool) envBinding {
	return envBinding{name: name, apply: func(c *Config, value string) error {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		*field(c) = b
		return nil
	}}
}

var envBindings = []envBinding{
	stringEnv("STORE", func(c *Config) *string { return &c.Paths.Store }),
	stringEnv("REJECTS", func(c *Config) *string { return &c.Paths.Rejects }),
	stringEnv("RESULTS", func(c *Config) *string { return &c.Paths.Results }),
	stringEnv("DUMP", func(c *Config) *string { return &c.Paths.Dump }),
	stringEnv("DUMP_CACHE", func(c *Config) *string { return &c.Paths.DumpCache }),
	stringEnv("REPORTS_DIR", func(c *Config) *string { return &c.Paths.ReportsDir }),
	stringEnv("SEARCH_URL", func(c *Config) *string { return &c.Catalog.SearchURL }),
	stringEnv("ITEM_URL", func(c *Config) *string { return &c.Catalog.ItemURL }),
	intEnv("MAX_RETRIES", func(c *Config) *int { return &c.Catalog.MaxRetries }),
	floatEnv("BASE_DELAY_SECONDS", func(c *Config) *float64 { return &c.Catalog.BaseDelaySeconds }),
	floatEnv("THROTTLE_COOLDOWN_SECONDS", func(c *Config) *float64 { return &c.Catalog.ThrottleCooldownSeconds }),
	intEnv("RATE_LIMIT_REQUESTS", func(c *Config) *int { return &c.Catalog.RateLimitRequests }),
	stringEnv("STRATEGY", func(c *Config) *string { return &c.Resolver.Strategy }),
	floatEnv("REMOTE_TIMEOUT_SECONDS", func(c *Config) *float64 { return &c.Resolver.RemoteTimeoutSeconds }),
	intEnv("CONCURRENCY", func(c *Config) *int { return &c.Resolver.Concurrency }),
	boolEnv("CONFIRM_LCCNS", func(c *Config) *bool { return &c.Resolver.ConfirmLCCNs }),
	intEnv("SEARCH_ACCEPT", func(c *Config) *int { return &c.Thresholds.SearchAccept }),
	intEnv("CONFIRM_ACCEPT", func(c *Config) *int { return &c.Thresholds.ConfirmAccept }),
	intEnv("DUMP_ACCEPT", func(c *Config) *int { return &c.Thresholds.DumpAccept }),
	intEnv("STORE_REUSE", func(c *Config) *int { return &c.Thresholds.StoreReuse }),
	stringEnv("LOG_LEVEL", func(c *Config) *string { return &c.Logging.Level }),
	stringEnv("LOG_FORMAT", func(c *Config) *string { return &c.Logging.Format }),
	stringEnv("STORE_BACKEND", func(c *Config) *string { return &c.Store.Backend }),
}

func (c *Config) applyEnv() error {
	for _, binding := range envBindings {
		value, ok := os.LookupEnv(EnvPrefix + binding.name)
		if !ok || strings.TrimSpace(value) == "" {
			continue
		}
		if err := binding.apply(c, strings.TrimSpace(value)); err != nil {
			return fmt.Errorf("invalid %s%s: %w", EnvPrefix, binding.name, err)
		}
	}
	return nil
}
