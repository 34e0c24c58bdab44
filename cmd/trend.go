package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/cumulate/internal/merge"
)

var trendCmd = &cobra.Command{
	Use:   "trend <player>",
	Short: "Print a player's scoring trend ratio",
	Long:  "Ratio of the most recent season's points to the first recorded season's points. A first season of zero points counts as one to keep the ratio finite.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		snap, err := st.LatestSnapshot(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "load snapshot")
		}
		if snap == nil {
			fmt.Fprintf(os.Stderr, "No snapshot found for %q.\n", args[0])
			return nil
		}

		ratio, err := merge.TrendRatio(snap.History)
		if err != nil {
			return eris.Wrap(err, "trend")
		}

		fmt.Printf("%s: trend %.3f over %d seasons\n", snap.PlayerName, ratio, len(snap.History))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(trendCmd)
}
