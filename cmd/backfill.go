package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/cumulate/internal/engine"
)

var (
	backfillFrom int
	backfillTo   int
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Merge a range of seasons in order, oldest first",
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

		ladder, err := loadLadder()
		if err != nil {
			return err
		}

		eng := engine.New(st, ladder, cfg.Merge.Workers)

		results, err := eng.Backfill(ctx, backfillFrom, backfillTo)
		if err != nil {
			return eris.Wrap(err, "backfill")
		}

		for _, r := range results {
			zap.L().Info("season merged",
				zap.Int("season", r.Season),
				zap.Int("players_merged", r.PlayersMerged),
			)
		}
		zap.L().Info("backfill complete",
			zap.Int("from", backfillFrom),
			zap.Int("to", backfillTo),
			zap.Int("seasons", len(results)),
		)
		return nil
	},
}

func init() {
	backfillCmd.Flags().IntVar(&backfillFrom, "from", 0, "first season to merge (required)")
	backfillCmd.Flags().IntVar(&backfillTo, "to", 0, "last season to merge (required)")
	_ = backfillCmd.MarkFlagRequired("from")
	_ = backfillCmd.MarkFlagRequired("to")
	rootCmd.AddCommand(backfillCmd)
}
