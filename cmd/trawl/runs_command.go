package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"trawl/internal/journal"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent crawl runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			js, err := journal.Open(cfg)
			if err != nil {
				return fmt.Errorf("open journal: %w", err)
			}
			defer js.Close()

			rows, err := js.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintln(stdout, "No runs recorded yet")
				return nil
			}

			headers := []string{"Run", "Status", "Started", "Duration", "Visited", "Catalogued", "Assets", "Errors"}
			fmt.Fprintln(stdout, renderTable(headers, buildRunRows(rows), 4, 5, 6, 7))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of runs to show")
	return cmd
}

func buildRunRows(runs []*journal.Run) [][]string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			shortRunID(run.RunID),
			string(run.Status),
			humanize.Time(run.StartedAt),
			formatRunDuration(run),
			humanize.Comma(run.Visited),
			humanize.Comma(run.Catalogued),
			humanize.Comma(run.AssetsFetched + run.Repaired),
			humanize.Comma(run.TransientErrors + run.AssetErrors),
		})
	}
	return rows
}

func formatRunDuration(run *journal.Run) string {
	duration := run.Duration()
	if duration <= 0 {
		return "-"
	}
	if duration < time.Second {
		return duration.Round(time.Millisecond).String()
	}
	return duration.Round(time.Second).String()
}
