package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/cumulate/internal/export"
	"github.com/sells-group/cumulate/internal/merge"
	"github.com/sells-group/cumulate/internal/model"
)

var (
	exportSeason int
	exportFlat   bool
)

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Export a season's snapshots to CSV or XLSX",
	Long:  "Writes the snapshot rows for a season to a .csv or .xlsx file. With --flat, each snapshot is exploded into one row per history entry.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		snaps, err := st.Snapshots(ctx, exportSeason)
		if err != nil {
			return eris.Wrap(err, "load snapshots")
		}

		if exportFlat {
			var flats []model.FlatStat
			for i := range snaps {
				flats = append(flats, merge.Flatten(&snaps[i])...)
			}
			if err := export.Flat(args[0], flats); err != nil {
				return err
			}
			zap.L().Info("export complete",
				zap.String("file", args[0]),
				zap.Int("rows", len(flats)),
			)
			return nil
		}

		if err := export.Snapshots(args[0], snaps); err != nil {
			return err
		}
		zap.L().Info("export complete",
			zap.String("file", args[0]),
			zap.Int("rows", len(snaps)),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().IntVar(&exportSeason, "season", 0, "season to export (required)")
	exportCmd.Flags().BoolVar(&exportFlat, "flat", false, "one row per player-season instead of one row per snapshot")
	_ = exportCmd.MarkFlagRequired("season")
	rootCmd.AddCommand(exportCmd)
}
