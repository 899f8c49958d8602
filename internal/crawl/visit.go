package crawl

import (
	"context"
	"errors"

	"trawl/internal/catalog"
	"trawl/internal/dlsite"
	"trawl/internal/logging"
	"trawl/internal/services"
	"trawl/internal/workid"
)

// visit handles one identifier: cursor checkpoint on cadence before any other
// work, then ingestion or repair, then a catalog flush on cadence afterwards.
// Checkpointing before the visit means a crash re-visits at most the cadence
// window, and re-visiting is always safe.
func (e *Engine) visit(ctx context.Context, st *runState, id workid.ID) error {
	if err := interrupted(ctx); err != nil {
		return err
	}

	code := id.String()
	ctx = services.WithWorkID(services.WithFamily(ctx, id.Family), code)

	if every := uint32(e.cfg.Crawl.CheckpointEvery); every > 0 && id.Number%every == 0 {
		if err := e.cursor.Save(code); err != nil {
			return services.Wrap(services.ErrPersistence, "crawl", "checkpoint", "save cursor "+code, err)
		}
		st.checkpointCount++
		e.updateJournal(ctx, st, code)
		e.logProgress(e.logger, st, id)
	}

	st.visited++

	if st.catalog.Has(code) {
		if err := e.repair(ctx, st, code); err != nil {
			return err
		}
	} else if err := e.ingest(ctx, st, id, code); err != nil {
		return err
	}

	if every := uint32(e.cfg.Crawl.FlushEvery); every > 0 && id.Number%every == 0 {
		wrote, err := st.catalog.FlushIfDirty()
		if err != nil {
			return services.Wrap(services.ErrPersistence, "crawl", "flush", "write catalog snapshot", err)
		}
		if wrote {
			st.flushCount++
		}
	}
	return nil
}

// ingest asks the provider about an identifier the catalog does not know and
// records it when the provider has it and the site filter accepts it.
func (e *Engine) ingest(ctx context.Context, st *runState, id workid.ID, code string) error {
	work, err := e.lookup(ctx, code)
	if err != nil {
		return e.recordLookupFailure(st, code, err)
	}

	if !e.siteAllowed(work.SiteID) {
		attrs := logging.DecisionAttrs("site_filter", "rejected", "site not configured")
		attrs = append(attrs,
			logging.String(logging.FieldWorkID, code),
			logging.String("site_id", work.SiteID))
		e.logger.Debug("work rejected by site filter", logging.Args(attrs...)...)
		return nil
	}

	rec := catalog.Record{
		Maker: e.makerFor(id.Family, work),
		Code:  work.Workno,
		Title: work.Title,
	}
	if st.catalog.Add(rec) {
		st.catalogued++
		e.logger.Info("work catalogued",
			logging.String(logging.FieldEventType, "work_catalogued"),
			logging.String(logging.FieldWorkID, rec.Code),
			logging.String(logging.FieldFamily, id.Family),
			logging.String("maker", rec.Maker),
			logging.String("title", rec.Title))
	}

	if work.ImageURL == "" {
		return nil
	}
	fetched, err := e.fetchAsset(ctx, st, rec.Code, work.ImageURL)
	if err != nil {
		return err
	}
	if fetched {
		st.assetsFetched++
	}
	return nil
}

// repair re-checks a catalogued identifier's asset. The record itself is
// never rewritten; a missing image is the only thing that triggers another
// provider lookup.
func (e *Engine) repair(ctx context.Context, st *runState, code string) error {
	if e.assets.Exists(code) {
		return nil
	}

	work, err := e.lookup(ctx, code)
	if err != nil {
		return e.recordLookupFailure(st, code, err)
	}
	if work.ImageURL == "" {
		return nil
	}

	fetched, err := e.fetchAsset(ctx, st, code, work.ImageURL)
	if err != nil {
		return err
	}
	if fetched {
		st.repaired++
		e.logger.Info("asset repaired",
			logging.String(logging.FieldEventType, "asset_repaired"),
			logging.String(logging.FieldWorkID, code))
	}
	return nil
}

// lookup wraps one provider query in the retry policy.
func (e *Engine) lookup(ctx context.Context, code string) (*dlsite.Work, error) {
	var work *dlsite.Work
	err := e.backoff.Do(ctx, func() error {
		var lookupErr error
		work, lookupErr = e.provider.Work(ctx, code)
		return lookupErr
	})
	if err != nil {
		return nil, err
	}
	return work, nil
}

// fetchAsset mirrors the work's main image. Download failures are booked and
// skipped because no partial file remains and the next run retries; only a
// dead context stops the walk.
func (e *Engine) fetchAsset(ctx context.Context, st *runState, code, rawURL string) (bool, error) {
	fetched, err := e.assets.Fetch(ctx, code, rawURL)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		st.assetErrors++
		logging.WarnWithContext(e.logger, "asset fetch failed", "asset_fetch_failed",
			logging.Error(err),
			logging.String(logging.FieldWorkID, code),
			logging.String(logging.FieldErrorHint, "the next run retries this download"),
			logging.String(logging.FieldImpact, "catalog record has no local image yet"))
		return false, nil
	}
	return fetched, nil
}

// recordLookupFailure books one failed provider query. Cancellation
// propagates so the walk stops. A missing identifier is the expected quiet
// outcome for most of the numeric domain. Transient failures are logged and
// skipped so a flaky provider cannot stall the enumeration.
func (e *Engine) recordLookupFailure(st *runState, code string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(services.Classify(err), services.ErrNotFound) {
		st.notFound++
		return nil
	}
	st.transientErrors++
	logging.WarnWithContext(e.logger, "provider lookup failed; skipping identifier", "provider_lookup_failed",
		logging.Error(err),
		logging.String(logging.FieldWorkID, code),
		logging.String(logging.FieldErrorHint, "the identifier is retried on the next run"),
		logging.String(logging.FieldImpact, "the work stays out of the catalog until then"))
	return nil
}
