package logging

import "strings"

const (
	// FieldProgressStage is the standardized key for the enumeration stage a progress line belongs to.
	FieldProgressStage = "progress_stage"
	// FieldProgressPercent is the standardized key for completion percentage.
	FieldProgressPercent = "progress_percent"
)

// ProgressSampler rate-limits enumeration progress logs. A full crawl visits
// millions of identifiers; sampling keeps one line per percent step plus one
// whenever the walk crosses into a new family.
type ProgressSampler struct {
	step       float64
	family     string
	lastBucket int
}

// NewProgressSampler returns a sampler that emits every step percent
// (default 5).
func NewProgressSampler(step float64) *ProgressSampler {
	if step <= 0 {
		step = 5
	}
	return &ProgressSampler{step: step, lastBucket: -1}
}

// ShouldLog reports whether this progress point deserves a log line. A
// negative percent means unknown and never advances the percent bucket.
func (s *ProgressSampler) ShouldLog(percent float64, family string) bool {
	if s == nil {
		return true
	}
	emit := false
	if trimmed := strings.TrimSpace(family); trimmed != "" && trimmed != s.family {
		s.family = trimmed
		s.lastBucket = -1
		emit = true
	}
	if percent < 0 {
		return emit
	}
	if percent > 100 {
		percent = 100
	}
	if bucket := int(percent / s.step); bucket > s.lastBucket {
		s.lastBucket = bucket
		emit = true
	}
	return emit
}

// Reset clears sampler state for a fresh run.
func (s *ProgressSampler) Reset() {
	if s == nil {
		return
	}
	s.family = ""
	s.lastBucket = -1
}
