package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/tune/internal/config"
	"github.com/MikeSquared-Agency/tune/internal/perspective"
	"github.com/MikeSquared-Agency/tune/internal/scores"
)

var (
	scoreFormat  string
	scoreTimeout time.Duration
)

func init() {
	rootCmd.AddCommand(scoreCmd)
	scoreCmd.Flags().StringVarP(&scoreFormat, "format", "f", "text", "Output format (text|json)")
	scoreCmd.Flags().DurationVar(&scoreTimeout, "timeout", 15*time.Second, "Classifier request timeout")
}

var scoreCmd = &cobra.Command{
	Use:   "score TEXT...",
	Short: "Score text against the classifier",
	Long: "Sends the text to the classifier configured by PERSPECTIVE_URL and\n" +
		"PERSPECTIVE_API_KEY and prints every attribute score.",
	Args: cobra.MinimumNArgs(1),
	RunE: runScore,
}

func runScore(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	client := perspective.NewClient(cfg.PerspectiveAPIKey, cfg.PerspectiveURL, cfg.BreakerMaxFailures, cfg.BreakerTimeout)

	ctx, cancel := context.WithTimeout(cmd.Context(), scoreTimeout)
	defer cancel()

	s, err := client.Analyze(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	return printScores(cmd, s)
}

func printScores(cmd *cobra.Command, s scores.AttributeScores) error {
	out := cmd.OutOrStdout()
	if scoreFormat == "json" {
		data, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	if s.Unscored() {
		fmt.Fprintln(out, scores.UnsupportedLanguageDescription)
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ATTRIBUTE\tSCORE")
	for _, attr := range scores.AllAttributes {
		if v, ok := s[attr]; ok {
			fmt.Fprintf(w, "%s\t%.4f\n", attr, v)
		}
	}
	return w.Flush()
}
