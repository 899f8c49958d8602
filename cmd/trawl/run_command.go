package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"trawl/internal/crawl"
	"trawl/internal/dlsite"
	"trawl/internal/journal"
	"trawl/internal/logging"
	"trawl/internal/preflight"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Crawl the configured identifier ranges",
		Long: "Walks every configured identifier range, resuming from the saved cursor\n" +
			"when a previous run was interrupted. Safe to rerun at any time: records\n" +
			"already catalogued are kept and only their missing assets are re-fetched.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCrawlProcess(cmd.Context(), ctx, cmd.OutOrStdout())
		},
	}
}

func runCrawlProcess(cmdCtx context.Context, ctx *commandContext, out io.Writer) error {
	if ctx == nil {
		return fmt.Errorf("command context is required")
	}

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	lock := flock.New(cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire run lock: %w", err)
	}
	if !locked {
		return errors.New("another trawl run is already in progress")
	}
	defer lock.Unlock()

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := uuid.NewString()
	logPath := filepath.Join(cfg.RunLogDir(), fmt.Sprintf("run-%s-%s.log", time.Now().UTC().Format("20060102T150405"), shortRunID(runID)))

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	runLogger, err := logging.New(logging.Options{
		Level:            "debug",
		Format:           "json",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
		RunID:            runID,
	})
	if err != nil {
		return fmt.Errorf("init run log: %w", err)
	}
	logger = logging.TeeLogger(logger, runLogger.Handler())

	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.RunLogDir(), Pattern: "run-*.log", Exclude: []string{logPath}},
	)

	for _, result := range preflight.RunAll(signalCtx, cfg) {
		if result.Passed {
			continue
		}
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail))
	}

	provider, err := dlsite.New(cfg.Provider.BaseURL,
		dlsite.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Provider.TimeoutSeconds) * time.Second}),
		dlsite.WithUserAgent(cfg.Provider.UserAgent))
	if err != nil {
		return fmt.Errorf("build provider client: %w", err)
	}

	journalStore, err := journal.Open(cfg)
	if err != nil {
		logging.WarnWithContext(logger, "journal unavailable; run history will not be recorded", "journal_open_failed",
			logging.Error(err))
		journalStore = nil
	} else {
		defer journalStore.Close()
	}

	engine, err := crawl.New(cfg, provider, journalStore, logger, crawl.WithRunID(runID))
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Starting crawl %s over %s identifiers\n", shortRunID(runID), humanize.Comma(int64(engine.Universe().Size())))

	summary, runErr := engine.Run(signalCtx)
	printRunSummary(out, summary)
	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			fmt.Fprintln(out, "Interrupted; rerun to resume from the saved cursor")
		}
		return runErr
	}
	return nil
}

func printRunSummary(out io.Writer, summary crawl.Summary) {
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Run %s %s in %s\n", shortRunID(summary.RunID), runOutcome(summary), summary.Duration.Round(time.Millisecond))
	if summary.ResumeFrom != "" {
		fmt.Fprintf(out, "  Resumed from:  %s\n", summary.ResumeFrom)
	}
	fmt.Fprintf(out, "  Visited:       %s\n", humanize.Comma(summary.Visited))
	fmt.Fprintf(out, "  Catalogued:    %s (catalog holds %s)\n", humanize.Comma(summary.Catalogued), humanize.Comma(summary.CatalogSize))
	fmt.Fprintf(out, "  Assets:        %s fetched, %s repaired\n", humanize.Comma(summary.AssetsFetched), humanize.Comma(summary.Repaired))
	fmt.Fprintf(out, "  Not found:     %s\n", humanize.Comma(summary.NotFound))
	if summary.TransientErrors > 0 || summary.AssetErrors > 0 {
		fmt.Fprintf(out, "  Errors:        %s provider, %s asset\n", humanize.Comma(summary.TransientErrors), humanize.Comma(summary.AssetErrors))
	}
}

func runOutcome(summary crawl.Summary) string {
	if summary.Completed {
		return "completed"
	}
	return "stopped"
}

func shortRunID(runID string) string {
	if len(runID) > 8 {
		return runID[:8]
	}
	return runID
}
