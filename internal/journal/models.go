package journal

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a recorded run.
type Status string

// Run lifecycle states.
const (
	StatusRunning     Status = "running"
	StatusCompleted   Status = "completed"
	StatusInterrupted Status = "interrupted"
	StatusFailed      Status = "failed"
)

var allStatuses = []Status{
	StatusRunning,
	StatusCompleted,
	StatusInterrupted,
	StatusFailed,
}

// Run is one recorded crawl run.
type Run struct {
	ID            int64
	RunID         string
	Status        Status
	StartedAt     time.Time
	FinishedAt    *time.Time
	LastHeartbeat *time.Time

	// ResumeFrom is the cursor the run started from, empty for a fresh
	// start. Cursor tracks the most recently checkpointed identifier.
	ResumeFrom string
	Cursor     string

	Visited         int64
	Catalogued      int64
	AssetsFetched   int64
	Repaired        int64
	NotFound        int64
	TransientErrors int64
	AssetErrors     int64
	FlushCount      int64
	CheckpointCount int64

	// CatalogSize is the total record count after this run's last flush.
	CatalogSize int64

	ErrorMessage string
}

// HealthSummary aggregates journal state for diagnostic output.
type HealthSummary struct {
	Total       int
	Running     int
	Completed   int
	Interrupted int
	Failed      int
}

// Terminal reports whether the run reached a final state.
func (r *Run) Terminal() bool {
	if r == nil {
		return false
	}
	switch r.Status {
	case StatusCompleted, StatusInterrupted, StatusFailed:
		return true
	default:
		return false
	}
}

// Duration returns the run's elapsed time, using the current time for runs
// that have not finished.
func (r *Run) Duration() time.Duration {
	if r == nil || r.StartedAt.IsZero() {
		return 0
	}
	end := time.Now()
	if r.FinishedAt != nil {
		end = *r.FinishedAt
	}
	if end.Before(r.StartedAt) {
		return 0
	}
	return end.Sub(r.StartedAt)
}

// AllStatuses returns the known statuses in lifecycle order.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if status == normalized {
			return status, true
		}
	}
	return "", false
}
