package testsupport

import (
	"path/filepath"
	"testing"

	"trawl/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithProviderBaseURL points the provider client at the given URL, usually an
// httptest server.
func WithProviderBaseURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Provider.BaseURL = url
	}
}

// WithFamilies replaces the enumeration families on the test config.
func WithFamilies(families ...config.Family) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Crawl.Families = families
	}
}

// WithCadence overrides the checkpoint and flush cadences.
func WithCadence(checkpointEvery, flushEvery int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Crawl.CheckpointEvery = checkpointEvery
		b.cfg.Crawl.FlushEvery = flushEvery
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
