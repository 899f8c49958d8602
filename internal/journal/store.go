package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"trawl/internal/config"
)

// Store manages run history backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

// Open initializes or connects to the journal database. Any run still marked
// running belongs to a dead process (a live one holds the instance lock), so
// it is flipped to interrupted here.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.JournalPath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := store.markStaleRuns(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the journal database location.
func (s *Store) Path() string {
	return s.path
}

// Begin inserts a new running row for the given run id.
func (s *Store) Begin(ctx context.Context, runID, resumeFrom string) (*Run, error) {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return nil, errors.New("run id must not be empty")
	}

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO runs (run_id, status, started_at, resume_from) VALUES (?, ?, ?, ?)`,
		runID,
		StatusRunning,
		timestamp,
		nullableString(resumeFrom),
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}

	return s.GetByRunID(ctx, runID)
}

// Update persists the run's cursor and counters and refreshes its heartbeat.
func (s *Store) Update(ctx context.Context, run *Run) error {
	if run == nil {
		return errors.New("run is nil")
	}
	now := time.Now().UTC()
	_, err := s.execWithRetry(
		ctx,
		`UPDATE runs
         SET cursor = ?, visited = ?, catalogued = ?, assets_fetched = ?,
             repaired = ?, not_found = ?, transient_errors = ?, asset_errors = ?,
             flush_count = ?, checkpoint_count = ?, catalog_size = ?, last_heartbeat = ?
         WHERE run_id = ?`,
		nullableString(run.Cursor),
		run.Visited,
		run.Catalogued,
		run.AssetsFetched,
		run.Repaired,
		run.NotFound,
		run.TransientErrors,
		run.AssetErrors,
		run.FlushCount,
		run.CheckpointCount,
		run.CatalogSize,
		now.Format(time.RFC3339Nano),
		run.RunID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	run.LastHeartbeat = &now
	return nil
}

// Finish records the run's final status and counters.
func (s *Store) Finish(ctx context.Context, run *Run, status Status, errorMessage string) error {
	if run == nil {
		return errors.New("run is nil")
	}
	now := time.Now().UTC()
	_, err := s.execWithRetry(
		ctx,
		`UPDATE runs
         SET status = ?, finished_at = ?, error_message = ?, cursor = ?,
             visited = ?, catalogued = ?, assets_fetched = ?, repaired = ?,
             not_found = ?, transient_errors = ?, asset_errors = ?,
             flush_count = ?, checkpoint_count = ?, catalog_size = ?
         WHERE run_id = ?`,
		status,
		now.Format(time.RFC3339Nano),
		nullableString(errorMessage),
		nullableString(run.Cursor),
		run.Visited,
		run.Catalogued,
		run.AssetsFetched,
		run.Repaired,
		run.NotFound,
		run.TransientErrors,
		run.AssetErrors,
		run.FlushCount,
		run.CheckpointCount,
		run.CatalogSize,
		run.RunID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	run.Status = status
	run.FinishedAt = &now
	run.ErrorMessage = errorMessage
	return nil
}

// GetByRunID fetches a run by its external identifier.
func (s *Store) GetByRunID(ctx context.Context, runID string) (*Run, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// Latest returns the most recently started run, or nil when the journal is
// empty.
func (s *Store) Latest(ctx context.Context) (*Run, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY id DESC LIMIT 1`)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest run: %w", err)
	}
	return run, nil
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]*Run, error) {
	ctx = ensureContext(ctx)
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Health aggregates run counts by status for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM runs GROUP BY status`)
	if err != nil {
		return HealthSummary{}, fmt.Errorf("journal health: %w", err)
	}
	defer rows.Close()

	health := HealthSummary{}
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return HealthSummary{}, err
		}
		health.Total += count
		switch status {
		case StatusRunning:
			health.Running += count
		case StatusCompleted:
			health.Completed += count
		case StatusInterrupted:
			health.Interrupted += count
		case StatusFailed:
			health.Failed += count
		}
	}
	return health, rows.Err()
}

// markStaleRuns flips leftover running rows to interrupted, using the last
// heartbeat (or start time) as the best-guess finish time.
func (s *Store) markStaleRuns(ctx context.Context) error {
	_, err := s.execWithRetry(
		ctx,
		`UPDATE runs
         SET status = ?, finished_at = COALESCE(last_heartbeat, started_at)
         WHERE status = ?`,
		StatusInterrupted,
		StatusRunning,
	)
	if err != nil {
		return fmt.Errorf("mark stale runs: %w", err)
	}
	return nil
}

const runColumns = "id, run_id, status, started_at, finished_at, last_heartbeat, resume_from, cursor, visited, catalogued, assets_fetched, repaired, not_found, transient_errors, asset_errors, flush_count, checkpoint_count, catalog_size, error_message"

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		id              int64
		runID           string
		statusStr       string
		startedRaw      sql.NullString
		finishedRaw     sql.NullString
		heartbeatRaw    sql.NullString
		resumeFrom      sql.NullString
		cursor          sql.NullString
		visited         int64
		catalogued      int64
		assetsFetched   int64
		repaired        int64
		notFound        int64
		transientErrors int64
		assetErrors     int64
		flushCount      int64
		checkpointCount int64
		catalogSize     int64
		errorMessage    sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&runID,
		&statusStr,
		&startedRaw,
		&finishedRaw,
		&heartbeatRaw,
		&resumeFrom,
		&cursor,
		&visited,
		&catalogued,
		&assetsFetched,
		&repaired,
		&notFound,
		&transientErrors,
		&assetErrors,
		&flushCount,
		&checkpointCount,
		&catalogSize,
		&errorMessage,
	); err != nil {
		return nil, err
	}

	run := &Run{
		ID:              id,
		RunID:           runID,
		Status:          Status(statusStr),
		ResumeFrom:      resumeFrom.String,
		Cursor:          cursor.String,
		Visited:         visited,
		Catalogued:      catalogued,
		AssetsFetched:   assetsFetched,
		Repaired:        repaired,
		NotFound:        notFound,
		TransientErrors: transientErrors,
		AssetErrors:     assetErrors,
		FlushCount:      flushCount,
		CheckpointCount: checkpointCount,
		CatalogSize:     catalogSize,
		ErrorMessage:    errorMessage.String,
	}

	if started, err := parseTimeString(startedRaw.String); err == nil {
		run.StartedAt = started
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			run.FinishedAt = &finished
		}
	}
	if heartbeatRaw.Valid {
		if heartbeat, err := parseTimeString(heartbeatRaw.String); err == nil {
			run.LastHeartbeat = &heartbeat
		}
	}
	return run, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
