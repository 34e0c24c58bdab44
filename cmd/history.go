package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/cumulate/internal/merge"
)

var historyCmd = &cobra.Command{
	Use:   "history <player>",
	Short: "Print a player's full season history",
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

		flats := merge.Flatten(snap)

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SEASON\tGP\tPTS\tREB\tAST")
		for _, f := range flats {
			fmt.Fprintf(w, "%d\t%d\t%.1f\t%.1f\t%.1f\n",
				f.Season, f.GamesPlayed, f.Points, f.Rebounds, f.Assists)
		}
		if err := w.Flush(); err != nil {
			return eris.Wrap(err, "flush output")
		}

		fmt.Printf("\n%s: %d seasons, class %s, %d seasons since active\n",
			snap.PlayerName, len(snap.History), snap.ScoringClass, snap.SeasonsSinceActive)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
}
