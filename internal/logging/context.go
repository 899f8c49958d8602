package logging

import (
	"context"
	"log/slog"

	"trawl/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldWorkID is the standardized structured logging key for work identifiers.
	FieldWorkID = "work_id"
	// FieldFamily is the standardized structured logging key for identifier families.
	FieldFamily = "family"
	// FieldPhase is the standardized structured logging key for crawl phases.
	FieldPhase = "phase"
	// FieldAlert flags warnings or anomalies that should stand out in structured logs.
	FieldAlert = "alert"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := services.WorkIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldWorkID, id))
	}
	if family, ok := services.FamilyFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldFamily, family))
	}
	if phase, ok := services.PhaseFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldPhase, phase))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
