package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/tune/internal/scores"
)

func init() {
	rootCmd.AddCommand(bandsCmd)
}

var bandsCmd = &cobra.Command{
	Use:   "bands",
	Short: "Print the dial bands with their thresholds and colours",
	Run: func(cmd *cobra.Command, args []string) {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "BAND\tFROM\tCOLOR")
		for _, b := range scores.Bands {
			fmt.Fprintf(w, "%s\t%.2f\t%s\n", b.Band, b.Lower, scores.ColorGradient(b.Lower))
		}
		w.Flush()
	},
}
