package services

import "context"

type contextKey string

const (
	runIDKey  contextKey = "run_id"
	workIDKey contextKey = "work_id"
	familyKey contextKey = "family"
	phaseKey  contextKey = "phase"
)

// WithRunID annotates context with the crawl run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the crawl run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithWorkID annotates context with the canonical work identifier string.
func WithWorkID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, workIDKey, id)
}

// WorkIDFromContext returns the work identifier if present.
func WorkIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(workIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithFamily annotates context with the identifier family prefix.
func WithFamily(ctx context.Context, family string) context.Context {
	if family == "" {
		return ctx
	}
	return context.WithValue(ctx, familyKey, family)
}

// FamilyFromContext returns the family prefix if present.
func FamilyFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(familyKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithPhase annotates context with the run phase (resuming, enumerating,
// finalizing).
func WithPhase(ctx context.Context, phase string) context.Context {
	if phase == "" {
		return ctx
	}
	return context.WithValue(ctx, phaseKey, phase)
}

// PhaseFromContext returns the run phase if present.
func PhaseFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(phaseKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
