package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile puts data at the target path, creating parent directories.
// Useful for seeding asset files and snapshots in engine tests.
func WriteFile(t testing.TB, path string, data []byte) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
