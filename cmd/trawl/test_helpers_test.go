package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"trawl/internal/config"
)

type stubWork struct {
	Workno   string `json:"workno"`
	Title    string `json:"work_name"`
	SiteID   string `json:"site_id"`
	Circle   string `json:"circle"`
	Brand    string `json:"brand"`
	ImageURL string `json:"work_image"`
}

// providerStub serves the product endpoint plus the asset URLs it hands out.
type providerStub struct {
	server *httptest.Server

	mu    sync.Mutex
	works map[string]stubWork
}

func newProviderStub(t *testing.T) *providerStub {
	t.Helper()

	stub := &providerStub{works: make(map[string]stubWork)}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/=/product.json", func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("workno")
		stub.mu.Lock()
		work, ok := stub.works[id]
		stub.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		if !ok {
			fmt.Fprint(w, "[]")
			return
		}
		if err := json.NewEncoder(w).Encode([]stubWork{work}); err != nil {
			t.Errorf("encode stub work: %v", err)
		}
	})
	mux.HandleFunc("/assets/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("jpeg-bytes"))
	})
	stub.server = httptest.NewServer(mux)
	t.Cleanup(stub.server.Close)
	return stub
}

func (p *providerStub) add(work stubWork) {
	if work.ImageURL == "" {
		work.ImageURL = p.server.URL + "/assets/" + work.Workno + ".jpg"
	}
	p.mu.Lock()
	p.works[work.Workno] = work
	p.mu.Unlock()
}

type cliTestEnv struct {
	baseDir    string
	configPath string
	provider   *providerStub
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	provider := newProviderStub(t)
	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, filepath.Join(base, "data"), filepath.Join(base, "logs"), provider.server.URL)

	return &cliTestEnv{
		baseDir:    base,
		configPath: configPath,
		provider:   provider,
	}
}

// loadedConfig resolves the env's config the same way the CLI does.
func (env *cliTestEnv) loadedConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, _, _, err := config.Load(env.configPath)
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	return cfg
}

func writeTestConfig(t *testing.T, path, dataDir, logDir, providerURL string) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
data_dir = %q
log_dir = %q

[crawl]
checkpoint_every = 2
flush_every = 2
sites = ["maniax"]

[[crawl.families]]
prefix = "RJ"
maker_field = "circle"
ranges = [[1, 5]]

[provider]
base_url = %q
timeout_seconds = 5
retry_attempts = 1
retry_base_ms = 1

[logging]
level = "error"
format = "json"
retention_days = 3
`, dataDir, logDir, providerURL)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, configPath string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
