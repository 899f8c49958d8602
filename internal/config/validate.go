package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks that the configuration is internally consistent. It
// assumes normalize has already run, so defaults are filled in and
// string fields are trimmed.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateCrawl(); err != nil {
		return err
	}
	if err := c.validateProvider(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.DataDir == "" {
		return fmt.Errorf("paths.data_dir must not be empty")
	}
	if c.Paths.LogDir == "" {
		return fmt.Errorf("paths.log_dir must not be empty")
	}
	return nil
}

func (c *Config) validateCrawl() error {
	if c.Crawl.CheckpointEvery < 1 {
		return fmt.Errorf("crawl.checkpoint_every must be at least 1, got %d", c.Crawl.CheckpointEvery)
	}
	if c.Crawl.FlushEvery < 1 {
		return fmt.Errorf("crawl.flush_every must be at least 1, got %d", c.Crawl.FlushEvery)
	}
	if c.Crawl.ProgressPercentStep <= 0 {
		return fmt.Errorf("crawl.progress_percent_step must be positive, got %g", c.Crawl.ProgressPercentStep)
	}
	if len(c.Crawl.Sites) == 0 {
		return fmt.Errorf("crawl.sites must list at least one accepted site")
	}
	if len(c.Crawl.Families) == 0 {
		return fmt.Errorf("crawl.families must define at least one identifier family")
	}
	seen := make(map[string]struct{}, len(c.Crawl.Families))
	for i, family := range c.Crawl.Families {
		if err := validateFamily(i, family); err != nil {
			return err
		}
		if _, dup := seen[family.Prefix]; dup {
			return fmt.Errorf("crawl.families[%d]: duplicate prefix %q", i, family.Prefix)
		}
		seen[family.Prefix] = struct{}{}
	}
	return nil
}

func validateFamily(idx int, family Family) error {
	if family.Prefix == "" {
		return fmt.Errorf("crawl.families[%d]: prefix must not be empty", idx)
	}
	for _, r := range family.Prefix {
		if r < 'A' || r > 'Z' {
			return fmt.Errorf("crawl.families[%d]: prefix %q must be uppercase letters", idx, family.Prefix)
		}
	}
	switch family.MakerField {
	case "circle", "brand":
	default:
		return fmt.Errorf("crawl.families[%d]: maker_field must be \"circle\" or \"brand\", got %q", idx, family.MakerField)
	}
	if len(family.Ranges) == 0 {
		return fmt.Errorf("crawl.families[%d]: ranges must define at least one interval", idx)
	}
	prevHi := int64(-1)
	for j, rng := range family.Ranges {
		if len(rng) != 2 {
			return fmt.Errorf("crawl.families[%d].ranges[%d]: want [lo, hi], got %d values", idx, j, len(rng))
		}
		lo, hi := rng[0], rng[1]
		if lo < 0 || hi > maxWorkNumber {
			return fmt.Errorf("crawl.families[%d].ranges[%d]: bounds must be within [0, %d]", idx, j, maxWorkNumber)
		}
		if lo > hi {
			return fmt.Errorf("crawl.families[%d].ranges[%d]: lo %d exceeds hi %d", idx, j, lo, hi)
		}
		if lo <= prevHi {
			return fmt.Errorf("crawl.families[%d].ranges[%d]: intervals must be ordered and disjoint", idx, j)
		}
		prevHi = hi
	}
	return nil
}

func (c *Config) validateProvider() error {
	parsed, err := url.Parse(c.Provider.BaseURL)
	if err != nil {
		return fmt.Errorf("provider.base_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("provider.base_url must use http or https, got %q", c.Provider.BaseURL)
	}
	if parsed.Host == "" {
		return fmt.Errorf("provider.base_url must include a host, got %q", c.Provider.BaseURL)
	}
	if c.Provider.TimeoutSeconds < 1 {
		return fmt.Errorf("provider.timeout_seconds must be at least 1, got %d", c.Provider.TimeoutSeconds)
	}
	if c.Provider.RetryAttempts < 1 {
		return fmt.Errorf("provider.retry_attempts must be at least 1, got %d", c.Provider.RetryAttempts)
	}
	if c.Provider.RetryBaseMS < 1 {
		return fmt.Errorf("provider.retry_base_ms must be at least 1, got %d", c.Provider.RetryBaseMS)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be \"console\" or \"json\", got %q", c.Logging.Format)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
