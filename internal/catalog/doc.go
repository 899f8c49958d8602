// Package catalog maintains the append-only record snapshot produced by a
// crawl.
//
// Records live in memory keyed by work code and are flushed to a single JSON
// snapshot file. A record, once added, is never modified or removed; re-runs
// over the same identifier space converge on the same catalog. The snapshot
// is written atomically so a crash mid-flush never corrupts the previous
// one.
package catalog
