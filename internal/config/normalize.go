package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeCrawl()
	c.normalizeProvider()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.DataDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeCrawl() {
	if c.Crawl.CheckpointEvery <= 0 {
		c.Crawl.CheckpointEvery = defaultCheckpointEvery
	}
	if c.Crawl.FlushEvery <= 0 {
		c.Crawl.FlushEvery = defaultFlushEvery
	}
	if c.Crawl.ProgressPercentStep <= 0 {
		c.Crawl.ProgressPercentStep = defaultProgressPercentStep
	}

	sites := make([]string, 0, len(c.Crawl.Sites))
	seen := make(map[string]struct{}, len(c.Crawl.Sites))
	for _, site := range c.Crawl.Sites {
		normalized := strings.ToLower(strings.TrimSpace(site))
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		sites = append(sites, normalized)
	}
	c.Crawl.Sites = sites

	for i := range c.Crawl.Families {
		c.Crawl.Families[i].Prefix = strings.TrimSpace(c.Crawl.Families[i].Prefix)
		c.Crawl.Families[i].MakerField = strings.ToLower(strings.TrimSpace(c.Crawl.Families[i].MakerField))
	}
}

func (c *Config) normalizeProvider() {
	c.Provider.BaseURL = strings.TrimSuffix(strings.TrimSpace(c.Provider.BaseURL), "/")
	if c.Provider.BaseURL == "" {
		c.Provider.BaseURL = defaultProviderBaseURL
	}
	if c.Provider.TimeoutSeconds <= 0 {
		c.Provider.TimeoutSeconds = defaultProviderTimeout
	}
	if c.Provider.RetryAttempts <= 0 {
		c.Provider.RetryAttempts = defaultRetryAttempts
	}
	if c.Provider.RetryBaseMS <= 0 {
		c.Provider.RetryBaseMS = defaultRetryBaseMS
	}
	c.Provider.UserAgent = strings.TrimSpace(c.Provider.UserAgent)
	if c.Provider.UserAgent == "" {
		c.Provider.UserAgent = defaultUserAgent
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
