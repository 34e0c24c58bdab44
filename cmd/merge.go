package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/cumulate/internal/engine"
)

var mergeSeason int

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge one season of observations into the snapshot table",
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

		result, err := eng.RunSeason(ctx, mergeSeason)
		if err != nil {
			return eris.Wrap(err, "merge season")
		}

		zap.L().Info("merge complete",
			zap.String("run_id", result.RunID),
			zap.Int("season", result.Season),
			zap.Int("players_merged", result.PlayersMerged),
			zap.Int64("rows_written", result.RowsWritten),
		)
		return nil
	},
}

func init() {
	mergeCmd.Flags().IntVar(&mergeSeason, "season", 0, "season to merge (required)")
	_ = mergeCmd.MarkFlagRequired("season")
	rootCmd.AddCommand(mergeCmd)
}
