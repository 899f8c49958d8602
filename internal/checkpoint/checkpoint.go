package checkpoint

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Store reads and writes the enumeration cursor file.
type Store struct {
	path string
}

// NewStore returns a store backed by the given file path. The parent
// directory is created lazily on first Save.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the cursor file location.
func (s *Store) Path() string {
	return s.path
}

// Save overwrites the cursor with the given identifier.
func (s *Store) Save(id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("cursor identifier cannot be empty")
	}
	if dir := filepath.Dir(s.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create cursor directory: %w", err)
		}
	}
	if err := os.WriteFile(s.path, []byte(id), 0o644); err != nil {
		return fmt.Errorf("write cursor: %w", err)
	}
	return nil
}

// Load returns the saved cursor. The second result is false when no cursor
// exists; a present but empty file counts as absent.
func (s *Store) Load() (string, bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read cursor: %w", err)
	}
	id := strings.TrimSpace(string(data))
	if id == "" {
		return "", false, nil
	}
	return id, true, nil
}

// Clear removes the cursor file. It is not an error if the cursor does not
// exist.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove cursor: %w", err)
	}
	return nil
}
