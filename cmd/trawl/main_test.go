package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/flock"

	"trawl/internal/assets"
	"trawl/internal/logging"
)

func TestRunCommandCrawlsUniverse(t *testing.T) {
	env := setupCLITestEnv(t)
	env.provider.add(stubWork{Workno: "RJ000003", Title: "Sample Work", SiteID: "maniax", Circle: "Circle A"})

	out, _, err := runCLI(t, env.configPath, "run")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	requireContains(t, out, "Starting crawl")
	requireContains(t, out, "completed")

	cfg := env.loadedConfig(t)
	items := readCatalogItems(t, cfg.CatalogPath())
	if len(items) != 1 {
		t.Fatalf("expected 1 catalogued work, got %d", len(items))
	}
	if items[0]["code"] != "RJ000003" || items[0]["maker"] != "Circle A" {
		t.Fatalf("unexpected catalog item: %+v", items[0])
	}

	mirror := assets.NewStore(cfg.AssetRoot(), logging.NewNop())
	if !mirror.Exists("RJ000003") {
		t.Fatalf("expected asset for RJ000003 on disk")
	}
	if _, err := os.Stat(cfg.CursorPath()); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected cursor removed after completion, got %v", err)
	}
}

func TestRunCommandRefusesConcurrentRuns(t *testing.T) {
	env := setupCLITestEnv(t)
	cfg := env.loadedConfig(t)

	lock := flock.New(cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil || !locked {
		t.Fatalf("acquire test lock: locked=%v err=%v", locked, err)
	}
	defer lock.Unlock()

	_, _, err = runCLI(t, env.configPath, "run")
	if err == nil || !strings.Contains(err.Error(), "already in progress") {
		t.Fatalf("expected lock contention error, got %v", err)
	}
}

func TestStatusCommandReflectsRunHistory(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env.configPath, "status")
	if err != nil {
		t.Fatalf("status before run: %v", err)
	}
	requireContains(t, out, "No catalog snapshot yet")
	requireContains(t, out, "No crawl in progress")
	requireContains(t, out, "No runs recorded yet")

	env.provider.add(stubWork{Workno: "RJ000002", Title: "Second", SiteID: "maniax", Circle: "Circle B"})
	if _, _, err := runCLI(t, env.configPath, "run"); err != nil {
		t.Fatalf("run: %v", err)
	}

	out, _, err = runCLI(t, env.configPath, "status")
	if err != nil {
		t.Fatalf("status after run: %v", err)
	}
	requireContains(t, out, "1 recorded: 1 completed, 0 interrupted, 0 failed")
	requireContains(t, out, "records")
	requireContains(t, out, "No crawl in progress")
}

func TestRunsCommandListsRuns(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env.configPath, "runs")
	if err != nil {
		t.Fatalf("runs with empty journal: %v", err)
	}
	requireContains(t, out, "No runs recorded yet")

	for i := 0; i < 2; i++ {
		if _, _, err := runCLI(t, env.configPath, "run"); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}

	out, _, err = runCLI(t, env.configPath, "runs")
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if got := strings.Count(out, "completed"); got != 2 {
		t.Fatalf("expected 2 completed rows, got %d in %q", got, out)
	}

	out, _, err = runCLI(t, env.configPath, "runs", "--limit", "1")
	if err != nil {
		t.Fatalf("runs --limit 1: %v", err)
	}
	if got := strings.Count(out, "completed"); got != 1 {
		t.Fatalf("expected 1 completed row with --limit 1, got %d", got)
	}
}

func TestVerifyCommandFlagsMissingAssets(t *testing.T) {
	env := setupCLITestEnv(t)
	env.provider.add(stubWork{Workno: "RJ000004", Title: "Fourth", SiteID: "maniax", Circle: "Circle C"})

	if _, _, err := runCLI(t, env.configPath, "run"); err != nil {
		t.Fatalf("run: %v", err)
	}

	out, _, err := runCLI(t, env.configPath, "verify")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	requireContains(t, out, "Every catalogued work has its asset on disk")

	cfg := env.loadedConfig(t)
	mirror := assets.NewStore(cfg.AssetRoot(), logging.NewNop())
	assetPath, err := mirror.Path("RJ000004")
	if err != nil {
		t.Fatalf("asset path: %v", err)
	}
	if err := os.Remove(assetPath); err != nil {
		t.Fatalf("remove asset: %v", err)
	}

	out, _, err = runCLI(t, env.configPath, "verify")
	if err != nil {
		t.Fatalf("verify after removal: %v", err)
	}
	requireContains(t, out, "Missing assets: 1")
	requireContains(t, out, "RJ000004")
	requireContains(t, out, "re-fetch")
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env.configPath, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.configPath)
	requireContains(t, out, "Families: 1, identifiers: 5")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, env.configPath, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	_, _, err = runCLI(t, env.configPath, "config", "init", "--path", target)
	if err == nil || !strings.Contains(err.Error(), "--force") {
		t.Fatalf("expected refusal without --force, got %v", err)
	}

	if _, _, err = runCLI(t, env.configPath, "config", "init", "--path", target, "--force"); err != nil {
		t.Fatalf("config init --force: %v", err)
	}
}

func TestConfigShowPrintsResolvedValues(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env.configPath, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "base_url")
	requireContains(t, out, env.provider.server.URL)
	requireContains(t, out, "checkpoint_every = 2")
}

func TestHelpListsCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env.configPath)
	if err != nil {
		t.Fatalf("help: %v", err)
	}
	for _, name := range []string{"run", "status", "runs", "verify", "config"} {
		requireContains(t, out, name)
	}
}

func readCatalogItems(t *testing.T, path string) []map[string]string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read catalog: %v", err)
	}
	var snapshot struct {
		UpdatedAt string              `json:"updated_at"`
		Items     []map[string]string `json:"items"`
	}
	if err := json.Unmarshal(data, &snapshot); err != nil {
		t.Fatalf("decode catalog: %v", err)
	}
	return snapshot.Items
}
