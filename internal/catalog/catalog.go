package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/unicode/norm"

	"trawl/internal/logging"
)

// Record is one catalogued work. TranslateTitle is reserved for a later
// translation pass and holds the placeholder "NaN" until then.
type Record struct {
	Maker          string `json:"maker"`
	Code           string `json:"code"`
	Title          string `json:"title"`
	TranslateTitle string `json:"translate-title"`
}

// TranslateTitlePlaceholder marks records whose translated title has not been
// produced yet.
const TranslateTitlePlaceholder = "NaN"

const snapshotTimeLayout = "2006-01-02 15:04:05"

// snapshot is the on-disk envelope. Load also accepts a bare record array
// for snapshots written before the envelope existed.
type snapshot struct {
	UpdatedAt string   `json:"updated_at"`
	Items     []Record `json:"items"`
}

// Store provides thread-safe access to the catalog snapshot.
type Store struct {
	path   string
	logger *slog.Logger

	mu        sync.RWMutex
	records   map[string]Record
	order     []string
	dirty     bool
	updatedAt time.Time
}

// Open loads the snapshot at path into memory. A missing file starts an
// empty catalog; an unreadable or unparsable one is logged and also starts
// empty, so a damaged snapshot never blocks a run.
func Open(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "catalog")

	s := &Store{
		path:    path,
		logger:  logger,
		records: make(map[string]Record),
	}

	if err := s.load(); err != nil {
		logging.WarnWithContext(logger, "failed to load catalog snapshot", "catalog_load_failed",
			logging.String("snapshot_path", path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "snapshot will be rebuilt from scratch"),
			logging.String(logging.FieldImpact, "previously catalogued works will be re-fetched"))
	}

	return s
}

// Path returns the snapshot file location.
func (s *Store) Path() string {
	return s.path
}

// Has reports whether a record with the given code exists.
func (s *Store) Has(code string) bool {
	_, ok := s.Get(code)
	return ok
}

// Get returns the record for the given code if present.
func (s *Store) Get(code string) (Record, bool) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Record{}, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[code]
	return rec, ok
}

// Add inserts a new record and marks the catalog dirty. Existing records are
// never replaced; Add reports false when the code is already catalogued or
// blank. Title and maker are normalized to NFC so equivalent provider
// spellings compare equal.
func (s *Store) Add(rec Record) bool {
	rec.Code = strings.TrimSpace(rec.Code)
	if rec.Code == "" {
		return false
	}
	rec.Title = norm.NFC.String(rec.Title)
	rec.Maker = norm.NFC.String(rec.Maker)
	if rec.TranslateTitle == "" {
		rec.TranslateTitle = TranslateTitlePlaceholder
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[rec.Code]; exists {
		return false
	}
	s.records[rec.Code] = rec
	s.order = append(s.order, rec.Code)
	s.dirty = true

	s.logger.Debug("catalogued work",
		logging.String(logging.FieldWorkID, rec.Code),
		logging.String("title", rec.Title),
		logging.String("maker", rec.Maker))

	return true
}

// Len returns the number of catalogued records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Records returns all records in insertion order.
func (s *Store) Records() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, 0, len(s.order))
	for _, code := range s.order {
		out = append(out, s.records[code])
	}
	return out
}

// Dirty reports whether records were added since the last flush.
func (s *Store) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// UpdatedAt returns the timestamp of the last flush, or of the loaded
// snapshot when nothing has been flushed yet. Zero when neither applies.
func (s *Store) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}

// FlushIfDirty writes the snapshot when records were added since the last
// flush. It reports whether a write happened, letting cadence-driven callers
// skip rewrites across long stretches of absent identifiers.
func (s *Store) FlushIfDirty() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		return false, nil
	}
	if err := s.flushLocked(); err != nil {
		return false, err
	}
	return true, nil
}

// Flush writes the snapshot unconditionally, refreshing its timestamp even
// when no records were added. Run completion uses this so the snapshot file
// exists and carries the completion time.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil // fresh start
		}
		return fmt.Errorf("read snapshot: %w", err)
	}

	if len(data) == 0 {
		return nil
	}

	var items []Record
	var envelope snapshot
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Items != nil {
		items = envelope.Items
		if ts, err := time.ParseInLocation(snapshotTimeLayout, envelope.UpdatedAt, time.Local); err == nil {
			s.updatedAt = ts
		}
	} else if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("parse snapshot: %w", err)
	}

	s.records = make(map[string]Record, len(items))
	s.order = make([]string, 0, len(items))
	for _, rec := range items {
		rec.Code = strings.TrimSpace(rec.Code)
		if rec.Code == "" {
			continue
		}
		if _, exists := s.records[rec.Code]; exists {
			continue
		}
		if rec.TranslateTitle == "" {
			rec.TranslateTitle = TranslateTitlePlaceholder
		}
		s.records[rec.Code] = rec
		s.order = append(s.order, rec.Code)
	}

	s.logger.Debug("loaded catalog snapshot",
		logging.Int("records", len(s.records)),
		logging.String("snapshot_path", s.path))

	return nil
}

// flushLocked writes the snapshot atomically. Callers hold s.mu.
func (s *Store) flushLocked() error {
	items := make([]Record, 0, len(s.order))
	for _, code := range s.order {
		items = append(items, s.records[code])
	}

	now := time.Now()
	payload := snapshot{
		UpdatedAt: now.Format(snapshotTimeLayout),
		Items:     items,
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp snapshot: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath) // cleanup on failure
		return fmt.Errorf("rename temp snapshot: %w", err)
	}

	s.dirty = false
	s.updatedAt = now
	return nil
}
