package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/cumulate/internal/ingest"
)

var (
	importSeason  int
	importSheet   string
	importReplace bool
)

var importCmd = &cobra.Command{
	Use:   "import <file-or-url>",
	Short: "Load season stat observations from CSV or XLSX",
	Long:  "Reads per-season stat rows from a local file, HTTP URL, or FTP URL and loads them into the observations table. Supports .csv and .xlsx.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		n, err := ingest.Load(ctx, st, args[0], ingest.Options{
			Sheet:   importSheet,
			Season:  importSeason,
			Replace: importReplace,
		})
		if err != nil {
			return eris.Wrap(err, "import")
		}

		zap.L().Info("import complete",
			zap.String("source", args[0]),
			zap.Int64("rows", n),
		)
		return nil
	},
}

func init() {
	importCmd.Flags().IntVar(&importSeason, "season", 0, "force this season for all rows (overrides the season column)")
	importCmd.Flags().StringVar(&importSheet, "sheet", "", "XLSX sheet name (default first sheet)")
	importCmd.Flags().BoolVar(&importReplace, "replace", false, "delete existing observations for each loaded season first")
	rootCmd.AddCommand(importCmd)
}
