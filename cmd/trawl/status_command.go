package main

import (
	"context"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"trawl/internal/catalog"
	"trawl/internal/config"
	"trawl/internal/journal"
	"trawl/internal/logging"
	"trawl/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show crawl progress and readiness",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return printStatus(cmd.Context(), cmd.OutOrStdout(), cfg)
		},
	}
}

func printStatus(ctx context.Context, out io.Writer, cfg *config.Config) error {
	colorize := shouldColorize(out)

	fmt.Fprintln(out, renderSectionHeader("Readiness", colorize))
	for _, result := range preflight.RunAll(ctx, cfg) {
		fmt.Fprintln(out, preflightStatusLine(result, colorize))
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, renderSectionHeader("Storage", colorize))
	probe := preflight.ProbeStorage(cfg)
	fmt.Fprintln(out, renderStatusLine("Data directory", statusInfo, cfg.Paths.DataDir, colorize))
	fmt.Fprintln(out, renderStatusLine("Asset mirror", statusInfo, cfg.AssetRoot(), colorize))
	fmt.Fprintln(out, renderStatusLine("Catalog", catalogStatusKind(probe), catalogStatusDetail(cfg, probe), colorize))
	fmt.Fprintln(out, renderStatusLine("Cursor", cursorStatusKind(probe), probe.CursorDetail(), colorize))
	fmt.Fprintln(out)

	fmt.Fprintln(out, renderSectionHeader("Run History", colorize))
	printRunHistory(ctx, out, cfg, colorize)
	return nil
}

func preflightStatusLine(result preflight.Result, colorize bool) string {
	kind := statusOK
	if !result.Passed {
		kind = statusWarn
	}
	return renderStatusLine(result.Name, kind, result.Detail, colorize)
}

func catalogStatusKind(probe preflight.StorageProbe) statusKind {
	if probe.CatalogPresent {
		return statusOK
	}
	return statusInfo
}

func catalogStatusDetail(cfg *config.Config, probe preflight.StorageProbe) string {
	if !probe.CatalogPresent {
		return probe.CatalogDetail()
	}
	store := catalog.Open(cfg.CatalogPath(), logging.NewNop())
	return fmt.Sprintf("%s records (%s)", humanize.Comma(int64(store.Len())), humanize.IBytes(probe.CatalogBytes))
}

func cursorStatusKind(probe preflight.StorageProbe) statusKind {
	if probe.CursorPresent {
		return statusInfo
	}
	return statusOK
}

func printRunHistory(ctx context.Context, out io.Writer, cfg *config.Config, colorize bool) {
	js, err := journal.Open(cfg)
	if err != nil {
		fmt.Fprintln(out, renderStatusLine("Journal", statusWarn, "unavailable: "+err.Error(), colorize))
		return
	}
	defer js.Close()

	health, err := js.Health(ctx)
	if err != nil {
		fmt.Fprintln(out, renderStatusLine("Journal", statusWarn, "unreadable: "+err.Error(), colorize))
		return
	}
	if health.Total == 0 {
		fmt.Fprintln(out, renderStatusLine("Runs", statusInfo, "No runs recorded yet", colorize))
		return
	}
	fmt.Fprintln(out, renderStatusLine("Runs", statusInfo, healthSummaryDetail(health), colorize))

	latest, err := js.Latest(ctx)
	if err != nil || latest == nil {
		return
	}
	fmt.Fprintln(out, renderStatusLine("Last run", runStatusKind(latest.Status), lastRunDetail(latest), colorize))
}

func healthSummaryDetail(health journal.HealthSummary) string {
	detail := fmt.Sprintf("%d recorded: %d completed, %d interrupted, %d failed",
		health.Total, health.Completed, health.Interrupted, health.Failed)
	if health.Running > 0 {
		detail += fmt.Sprintf(", %d running", health.Running)
	}
	return detail
}

func runStatusKind(status journal.Status) statusKind {
	switch status {
	case journal.StatusCompleted:
		return statusOK
	case journal.StatusFailed:
		return statusError
	case journal.StatusInterrupted:
		return statusWarn
	default:
		return statusInfo
	}
}

func lastRunDetail(run *journal.Run) string {
	detail := fmt.Sprintf("%s %s", run.Status, humanize.Time(run.StartedAt))
	if run.Visited > 0 {
		detail += fmt.Sprintf(" (%s visited, %s catalogued)", humanize.Comma(run.Visited), humanize.Comma(run.Catalogued))
	}
	return detail
}
