// Package journal records run history in SQLite: one row per run with its
// resume point, live counters, and final status. The catalog and cursor
// files remain the source of truth for crawl state; the journal exists for
// status display and diagnosing interrupted runs.
package journal
