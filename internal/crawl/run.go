package crawl

import (
	"context"
	"log/slog"
	"time"

	"trawl/internal/catalog"
	"trawl/internal/journal"
	"trawl/internal/logging"
	"trawl/internal/services"
	"trawl/internal/workid"
)

// Run phases, stamped on context for logging.
const (
	phaseResuming    = "resuming"
	phaseEnumerating = "enumerating"
	phaseFinalizing  = "finalizing"
)

// runState carries the mutable state of one run through the pipeline: the
// catalog loaded during RESUMING, the journal row, and the live counters.
type runState struct {
	catalog *catalog.Store
	run     *journal.Run
	sampler *logging.ProgressSampler
	started time.Time

	visited         int64
	catalogued      int64
	assetsFetched   int64
	repaired        int64
	notFound        int64
	transientErrors int64
	assetErrors     int64
	flushCount      int64
	checkpointCount int64
}

// Run executes one full crawl: RESUMING (load catalog and cursor),
// ENUMERATING (walk the universe), FINALIZING (final flush, cursor removal).
// Cancelling ctx stops the walk between identifiers; the cursor and last
// flushed catalog stay behind for the next run to resume from. The returned
// summary is valid even when err is non-nil.
func (e *Engine) Run(ctx context.Context) (Summary, error) {
	ctx = services.WithRunID(ctx, e.runID)
	st := &runState{
		sampler: logging.NewProgressSampler(e.cfg.Crawl.ProgressPercentStep),
		started: time.Now(),
	}

	resume := e.resumePoint(services.WithPhase(ctx, phaseResuming), st)
	summary := func() Summary { return e.summarize(st, resume) }

	walkCtx := services.WithPhase(ctx, phaseEnumerating)
	if err := e.universe.Walk(resume, func(id workid.ID) error {
		return e.visit(walkCtx, st, id)
	}); err != nil {
		e.concludeEarly(ctx, st, err)
		return summary(), err
	}

	if err := e.finalize(services.WithPhase(ctx, phaseFinalizing), st); err != nil {
		e.concludeEarly(ctx, st, err)
		return summary(), err
	}

	final := summary()
	final.Completed = true
	e.logger.Info("crawl complete",
		logging.String(logging.FieldEventType, "crawl_complete"),
		logging.Duration("run_duration", final.Duration),
		logging.Int64("visited", final.Visited),
		logging.Int64("catalogued", final.Catalogued),
		logging.Int64("assets_fetched", final.AssetsFetched),
		logging.Int64("repaired", final.Repaired),
		logging.Int64("not_found", final.NotFound),
		logging.Int64("transient_errors", final.TransientErrors),
		logging.Int64("asset_errors", final.AssetErrors),
		logging.Int64("records", final.CatalogSize))
	return final, nil
}

// resumePoint loads the catalog and cursor, opens the journal row, and maps
// the cursor to the identifier the walk should start from. Both loads are
// tolerant: a damaged catalog starts empty (it rebuilds idempotently) and an
// unreadable or unrecognized cursor restarts the enumeration from the top.
func (e *Engine) resumePoint(ctx context.Context, st *runState) *workid.ID {
	st.catalog = catalog.Open(e.cfg.CatalogPath(), e.logger)

	var resume *workid.ID
	cursorValue, found, err := e.cursor.Load()
	switch {
	case err != nil:
		logging.WarnWithContext(e.logger, "failed to read cursor; starting from the beginning", "cursor_read_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check permissions on the data directory"),
			logging.String(logging.FieldImpact, "already catalogued identifiers will be re-visited"))
	case found:
		id := e.codec.Parse(cursorValue)
		if id.IsZero() {
			logging.WarnWithContext(e.logger, "cursor does not match any configured family; starting from the beginning", "cursor_unrecognized",
				logging.String("cursor", cursorValue),
				logging.String(logging.FieldErrorHint, "the cursor file may predate a family configuration change"),
				logging.String(logging.FieldImpact, "already catalogued identifiers will be re-visited"))
		} else {
			resume = &id
		}
	}

	if e.journal != nil {
		run, err := e.journal.Begin(ctx, e.runID, cursorValue)
		if err != nil {
			logging.WarnWithContext(e.logger, "failed to open journal row; run proceeds without history", "journal_begin_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the journal database under the data directory"),
				logging.String(logging.FieldImpact, "this run will not appear in trawl runs output"))
		} else {
			st.run = run
		}
	}

	fields := []logging.Attr{
		logging.String(logging.FieldEventType, "crawl_start"),
		logging.Uint64("universe_size", e.universe.Size()),
		logging.Int("families", len(e.makerFields)),
		logging.Int("records", st.catalog.Len()),
	}
	if resume != nil {
		fields = append(fields, logging.String("resume_from", resume.String()))
	}
	e.logger.Info("crawl starting", logging.Args(fields...)...)
	return resume
}

// finalize flushes the catalog one last time and removes the cursor. Cursor
// absence is the completion marker, so the flush must land first.
func (e *Engine) finalize(ctx context.Context, st *runState) error {
	if err := st.catalog.Flush(); err != nil {
		return services.Wrap(services.ErrPersistence, "crawl", "finalize", "flush catalog snapshot", err)
	}
	st.flushCount++

	if err := e.cursor.Clear(); err != nil {
		return services.Wrap(services.ErrPersistence, "crawl", "finalize", "remove cursor", err)
	}

	if st.run != nil && e.journal != nil {
		e.applyCounters(st)
		if err := e.journal.Finish(ctx, st.run, journal.StatusCompleted, ""); err != nil {
			logging.WarnWithContext(e.logger, "failed to finish journal row", "journal_finish_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the journal database under the data directory"),
				logging.String(logging.FieldImpact, "the run will appear interrupted in trawl runs output"))
		}
	}
	return nil
}

// concludeEarly records an interrupted or failed run: a best-effort flush of
// whatever was ingested, then the journal row's final status. The cursor is
// deliberately left in place so the next run resumes.
func (e *Engine) concludeEarly(ctx context.Context, st *runState, runErr error) {
	if st.catalog != nil {
		if wrote, err := st.catalog.FlushIfDirty(); err != nil {
			logging.WarnWithContext(e.logger, "failed to flush catalog during shutdown", "catalog_flush_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check free space and permissions on the data directory"),
				logging.String(logging.FieldImpact, "records since the last flush will be re-ingested next run"))
		} else if wrote {
			st.flushCount++
		}
	}

	status := services.RunStatus(runErr)
	if st.run != nil && e.journal != nil {
		e.applyCounters(st)
		message := ""
		if status == journal.StatusFailed {
			message = runErr.Error()
		}
		// Finish against a fresh context: the run context is usually the
		// cancelled one that ended the walk.
		if err := e.journal.Finish(context.WithoutCancel(ctx), st.run, status, message); err != nil {
			logging.WarnWithContext(e.logger, "failed to finish journal row", "journal_finish_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the journal database under the data directory"),
				logging.String(logging.FieldImpact, "the run will appear interrupted in trawl runs output"))
		}
	}

	if status == journal.StatusInterrupted {
		e.logger.Info("crawl interrupted; progress saved",
			logging.String(logging.FieldEventType, "crawl_interrupted"),
			logging.Int64("visited", st.visited),
			logging.Int64("catalogued", st.catalogued))
		return
	}
	logging.ErrorWithContext(e.logger, "crawl failed", "crawl_failed",
		logging.Error(runErr),
		logging.Int64("visited", st.visited),
		logging.String(logging.FieldErrorHint, "fix the reported storage problem, then rerun to resume"))
}

// applyCounters copies the live counters onto the journal row before a
// write.
func (e *Engine) applyCounters(st *runState) {
	st.run.Visited = st.visited
	st.run.Catalogued = st.catalogued
	st.run.AssetsFetched = st.assetsFetched
	st.run.Repaired = st.repaired
	st.run.NotFound = st.notFound
	st.run.TransientErrors = st.transientErrors
	st.run.AssetErrors = st.assetErrors
	st.run.FlushCount = st.flushCount
	st.run.CheckpointCount = st.checkpointCount
	st.run.CatalogSize = int64(st.catalog.Len())
}

// updateJournal persists the run row counters on the checkpoint cadence.
func (e *Engine) updateJournal(ctx context.Context, st *runState, cursor string) {
	if st.run == nil || e.journal == nil {
		return
	}
	st.run.Cursor = cursor
	e.applyCounters(st)
	if err := e.journal.Update(ctx, st.run); err != nil {
		logging.WarnWithContext(e.logger, "failed to update journal row", "journal_update_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the journal database under the data directory"),
			logging.String(logging.FieldImpact, "trawl status will show stale counters"))
	}
}

func (e *Engine) summarize(st *runState, resume *workid.ID) Summary {
	s := Summary{
		RunID:           e.runID,
		Duration:        time.Since(st.started),
		Visited:         st.visited,
		Catalogued:      st.catalogued,
		AssetsFetched:   st.assetsFetched,
		Repaired:        st.repaired,
		NotFound:        st.notFound,
		TransientErrors: st.transientErrors,
		AssetErrors:     st.assetErrors,
		FlushCount:      st.flushCount,
		CheckpointCount: st.checkpointCount,
	}
	if resume != nil {
		s.ResumeFrom = resume.String()
	}
	if st.catalog != nil {
		s.CatalogSize = int64(st.catalog.Len())
	}
	return s
}

// logProgress emits sampled progress lines keyed on family and percent
// buckets so long stretches of absent identifiers stay quiet.
func (e *Engine) logProgress(logger *slog.Logger, st *runState, id workid.ID) {
	offset, ok := e.universe.Offset(id)
	if !ok {
		return
	}
	size := e.universe.Size()
	if size == 0 {
		return
	}
	percent := float64(offset) / float64(size) * 100
	if !st.sampler.ShouldLog(percent, id.Family) {
		return
	}
	logger.Info("enumeration progress",
		logging.String(logging.FieldProgressStage, id.Family),
		logging.Float64(logging.FieldProgressPercent, percent),
		logging.Int64("catalogued", st.catalogued),
		logging.Int64("visited", st.visited))
}

// interrupted reports whether the walk should stop before visiting another
// identifier.
func interrupted(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
