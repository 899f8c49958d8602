package logging

import (
	"context"
	"errors"
	"log/slog"
)

// teeHandler forwards each record to every underlying handler. The run
// command uses it to mirror console output into the per-run JSON log.
type teeHandler struct {
	targets []slog.Handler
}

func newTeeHandler(targets ...slog.Handler) slog.Handler {
	kept := make([]slog.Handler, 0, len(targets))
	for _, target := range targets {
		if target != nil {
			kept = append(kept, target)
		}
	}
	switch len(kept) {
	case 0:
		return NoopHandler{}
	case 1:
		return kept[0]
	}
	return &teeHandler{targets: kept}
}

func (h *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, target := range h.targets {
		if target.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	remaining := 0
	for _, target := range h.targets {
		if target.Enabled(ctx, record.Level) {
			remaining++
		}
	}
	for _, target := range h.targets {
		if !target.Enabled(ctx, record.Level) {
			continue
		}
		rec := record
		// Records are stateful; every handler but the last gets a clone.
		if remaining > 1 {
			rec = record.Clone()
		}
		remaining--
		if err := target.Handle(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (h *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(h.targets))
	for i, target := range h.targets {
		next[i] = target.WithAttrs(attrs)
	}
	return &teeHandler{targets: next}
}

func (h *teeHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(h.targets))
	for i, target := range h.targets {
		next[i] = target.WithGroup(name)
	}
	return &teeHandler{targets: next}
}

// TeeLogger returns a logger that writes through base and every extra
// handler. A nil base tees only into the extras.
func TeeLogger(base *slog.Logger, extras ...slog.Handler) *slog.Logger {
	if base == nil {
		return slog.New(newTeeHandler(extras...))
	}
	all := append([]slog.Handler{base.Handler()}, extras...)
	return slog.New(newTeeHandler(all...))
}
