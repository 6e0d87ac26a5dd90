package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "tunectl",
	Short:         "Inspect Tune comment visibility decisions",
	Long:          "Runs the visibility engine locally on classifier scores, prints the dial bands, and scores text against the classifier.",
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
