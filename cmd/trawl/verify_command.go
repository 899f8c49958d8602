package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"trawl/internal/assets"
	"trawl/internal/catalog"
	"trawl/internal/logging"
)

func newVerifyCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check the catalog against the asset mirror",
		Long: "Reads the catalog snapshot and reports every record whose asset is\n" +
			"missing from the mirror. Never modifies anything; run 'trawl run' to\n" +
			"re-fetch what this reports.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			cat := catalog.Open(cfg.CatalogPath(), logging.NewNop())
			mirror := assets.NewStore(cfg.AssetRoot(), logging.NewNop())

			records := cat.Records()
			missing := make([][]string, 0)
			for _, rec := range records {
				if mirror.Exists(rec.Code) {
					continue
				}
				path, err := mirror.Path(rec.Code)
				if err != nil {
					path = "(unresolvable)"
				}
				missing = append(missing, []string{rec.Code, rec.Title, path})
			}

			stdout := cmd.OutOrStdout()
			fmt.Fprintf(stdout, "Catalog: %s records\n", humanize.Comma(int64(len(records))))
			if len(missing) == 0 {
				fmt.Fprintln(stdout, "Every catalogued work has its asset on disk")
				return nil
			}

			fmt.Fprintf(stdout, "Missing assets: %s\n\n", humanize.Comma(int64(len(missing))))
			shown := missing
			if limit > 0 && len(shown) > limit {
				shown = shown[:limit]
			}
			fmt.Fprintln(stdout, renderTable([]string{"Code", "Title", "Expected Path"}, shown))
			if hidden := len(missing) - len(shown); hidden > 0 {
				fmt.Fprintf(stdout, "...and %d more (raise --limit to list them)\n", hidden)
			}
			fmt.Fprintln(stdout, "Run 'trawl run' to re-fetch missing assets")
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum missing assets to list (0 lists all)")
	return cmd
}
