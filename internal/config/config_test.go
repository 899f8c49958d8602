package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"trawl/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "trawl")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Paths.LogDir != filepath.Join(wantData, "logs") {
		t.Fatalf("unexpected log dir: %q", cfg.Paths.LogDir)
	}
	if cfg.Crawl.CheckpointEvery != 10 {
		t.Fatalf("unexpected checkpoint cadence: %d", cfg.Crawl.CheckpointEvery)
	}
	if cfg.Crawl.FlushEvery != 20 {
		t.Fatalf("unexpected flush cadence: %d", cfg.Crawl.FlushEvery)
	}
	if len(cfg.Crawl.Sites) != 2 || cfg.Crawl.Sites[0] != "maniax" || cfg.Crawl.Sites[1] != "pro" {
		t.Fatalf("unexpected site allow-list: %v", cfg.Crawl.Sites)
	}
	if len(cfg.Crawl.Families) != 2 {
		t.Fatalf("expected two default families, got %d", len(cfg.Crawl.Families))
	}
	if cfg.Crawl.Families[0].Prefix != "RJ" || cfg.Crawl.Families[0].MakerField != "circle" {
		t.Fatalf("unexpected first family: %+v", cfg.Crawl.Families[0])
	}
	if cfg.Crawl.Families[1].Prefix != "VJ" || cfg.Crawl.Families[1].MakerField != "brand" {
		t.Fatalf("unexpected second family: %+v", cfg.Crawl.Families[1])
	}
	if cfg.Provider.BaseURL != config.Default().Provider.BaseURL {
		t.Fatalf("unexpected provider base url: %q", cfg.Provider.BaseURL)
	}
	if cfg.Provider.TimeoutSeconds != 15 {
		t.Fatalf("unexpected provider timeout: %d", cfg.Provider.TimeoutSeconds)
	}
	if cfg.Logging.Format != "console" {
		t.Fatalf("unexpected log format: %q", cfg.Logging.Format)
	}

	if cfg.CatalogPath() != filepath.Join(wantData, "catalog.json") {
		t.Fatalf("unexpected catalog path: %q", cfg.CatalogPath())
	}
	if cfg.CursorPath() != filepath.Join(wantData, "cursor") {
		t.Fatalf("unexpected cursor path: %q", cfg.CursorPath())
	}
	if cfg.AssetRoot() != filepath.Join(wantData, "works") {
		t.Fatalf("unexpected asset root: %q", cfg.AssetRoot())
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir, cfg.RunLogDir(), cfg.AssetRoot()} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "trawl.toml")

	type payload struct {
		Paths struct {
			DataDir string `toml:"data_dir"`
		} `toml:"paths"`
		Crawl struct {
			CheckpointEvery int      `toml:"checkpoint_every"`
			Sites           []string `toml:"sites"`
			Families        []struct {
				Prefix     string    `toml:"prefix"`
				MakerField string    `toml:"maker_field"`
				Ranges     [][]int64 `toml:"ranges"`
			} `toml:"families"`
		} `toml:"crawl"`
		Provider struct {
			BaseURL string `toml:"base_url"`
		} `toml:"provider"`
	}
	custom := payload{}
	custom.Paths.DataDir = filepath.Join(tempDir, "data")
	custom.Crawl.CheckpointEvery = 25
	custom.Crawl.Sites = []string{"Maniax", "maniax", " pro "}
	custom.Crawl.Families = append(custom.Crawl.Families, struct {
		Prefix     string    `toml:"prefix"`
		MakerField string    `toml:"maker_field"`
		Ranges     [][]int64 `toml:"ranges"`
	}{Prefix: "A", MakerField: "circle", Ranges: [][]int64{{0, 120}}})
	custom.Provider.BaseURL = "https://example.com/provider/"

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Paths.DataDir != filepath.Join(tempDir, "data") {
		t.Fatalf("expected data dir override, got %q", cfg.Paths.DataDir)
	}
	if cfg.Crawl.CheckpointEvery != 25 {
		t.Fatalf("expected checkpoint cadence 25, got %d", cfg.Crawl.CheckpointEvery)
	}
	if cfg.Crawl.FlushEvery != 20 {
		t.Fatalf("expected default flush cadence to survive, got %d", cfg.Crawl.FlushEvery)
	}
	if len(cfg.Crawl.Sites) != 2 || cfg.Crawl.Sites[0] != "maniax" || cfg.Crawl.Sites[1] != "pro" {
		t.Fatalf("expected sites deduplicated and lowercased, got %v", cfg.Crawl.Sites)
	}
	if len(cfg.Crawl.Families) != 1 {
		t.Fatalf("expected file families to replace defaults, got %d", len(cfg.Crawl.Families))
	}
	if cfg.Crawl.Families[0].Prefix != "A" {
		t.Fatalf("unexpected family prefix: %q", cfg.Crawl.Families[0].Prefix)
	}
	if cfg.Provider.BaseURL != "https://example.com/provider" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Provider.BaseURL)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "dlsite.com") {
		t.Fatalf("sample config missing provider endpoint: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}

	defaults := config.Default()
	if cfg.Crawl.CheckpointEvery != defaults.Crawl.CheckpointEvery {
		t.Fatalf("sample checkpoint cadence %d differs from default %d", cfg.Crawl.CheckpointEvery, defaults.Crawl.CheckpointEvery)
	}
	if cfg.Crawl.FlushEvery != defaults.Crawl.FlushEvery {
		t.Fatalf("sample flush cadence %d differs from default %d", cfg.Crawl.FlushEvery, defaults.Crawl.FlushEvery)
	}
	if len(cfg.Crawl.Families) != len(defaults.Crawl.Families) {
		t.Fatalf("sample families %d differ from defaults %d", len(cfg.Crawl.Families), len(defaults.Crawl.Families))
	}
	if cfg.Provider.BaseURL != defaults.Provider.BaseURL {
		t.Fatalf("sample provider %q differs from default %q", cfg.Provider.BaseURL, defaults.Provider.BaseURL)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("sample config failed validation: %v", err)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cfg := config.Default()
	cfg.Crawl.Families = nil
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for empty families")
	}

	cfg = config.Default()
	cfg.Crawl.Families[0].Prefix = "rj"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for lowercase prefix")
	}

	cfg = config.Default()
	cfg.Crawl.Families[1].Prefix = "RJ"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for duplicate prefix")
	}

	cfg = config.Default()
	cfg.Crawl.Families[0].MakerField = "publisher"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown maker field")
	}

	cfg = config.Default()
	cfg.Crawl.Families[0].Ranges = [][]int64{{10, 5}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for inverted range")
	}

	cfg = config.Default()
	cfg.Crawl.Families[0].Ranges = [][]int64{{0, 100}, {50, 200}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for overlapping ranges")
	}

	cfg = config.Default()
	cfg.Crawl.Families[0].Ranges = [][]int64{{0, 20_000_000}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for out-of-domain range")
	}

	cfg = config.Default()
	cfg.Crawl.Sites = nil
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for empty site allow-list")
	}

	cfg = config.Default()
	cfg.Crawl.CheckpointEvery = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-positive checkpoint cadence")
	}

	cfg = config.Default()
	cfg.Provider.BaseURL = "ftp://example.com"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-http provider scheme")
	}

	cfg = config.Default()
	cfg.Provider.TimeoutSeconds = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-positive provider timeout")
	}

	cfg = config.Default()
	cfg.Logging.Level = "loud"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown log level")
	}
}
