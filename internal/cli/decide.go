package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/tune/internal/processor"
	"github.com/MikeSquared-Agency/tune/internal/scores"
)

var (
	decideThreshold float64
	decideSubtypes  bool
	decideDisable   []string
	decideScores    string
	decideFormat    string
)

func init() {
	rootCmd.AddCommand(decideCmd)
	decideCmd.Flags().Float64VarP(&decideThreshold, "threshold", "t", 0.80, "Dial threshold in [0, 1]")
	decideCmd.Flags().BoolVar(&decideSubtypes, "subtypes", false, "Let subtype attributes compete with toxicity")
	decideCmd.Flags().StringSliceVar(&decideDisable, "disable", nil, "Setting attributes to switch off (e.g. insult,profanity)")
	decideCmd.Flags().StringVar(&decideScores, "scores", "-", "Path to a JSON score object, or - for stdin")
	decideCmd.Flags().StringVarP(&decideFormat, "format", "f", "text", "Output format (text|json)")
}

var decideCmd = &cobra.Command{
	Use:   "decide",
	Short: "Decide whether a comment with the given scores is shown",
	Long: "Reads classifier scores as a JSON object keyed by attribute\n" +
		"(identityAttack, insult, ..., likelyToReject) and prints the visibility\n" +
		"decision with its hide reason and feedback question.\n\n" +
		"An empty object is treated as a comment in an unsupported language.",
	RunE: runDecide,
}

func runDecide(cmd *cobra.Command, args []string) error {
	if !(decideThreshold >= 0 && decideThreshold <= 1) {
		return fmt.Errorf("threshold must be within [0, 1], got %v", decideThreshold)
	}

	enabled := scores.AllEnabled()
	for _, name := range decideDisable {
		attr := scores.AttributeName(name)
		if !attr.IsSetting() {
			return fmt.Errorf("%q is not a setting attribute", name)
		}
		enabled[attr] = false
	}

	s, err := readScores(cmd.InOrStdin(), decideScores)
	if err != nil {
		return err
	}

	d := scores.CommentVisibility(s, decideThreshold, enabled, decideSubtypes)
	ev := processor.Explain(d, decideThreshold, decideSubtypes)

	out := cmd.OutOrStdout()
	switch decideFormat {
	case "json":
		data, err := json.MarshalIndent(ev, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
	default:
		fmt.Fprint(out, formatEvaluation(ev))
	}
	return nil
}

func readScores(stdin io.Reader, path string) (scores.AttributeScores, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open scores: %w", err)
		}
		defer f.Close()
		r = f
	}

	s := scores.AttributeScores{}
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode scores: %w", err)
	}
	for attr := range s {
		if !attr.Valid() {
			return nil, fmt.Errorf("unknown attribute %q", attr)
		}
	}
	return s, nil
}

func formatEvaluation(ev processor.Evaluation) string {
	text := fmt.Sprintf("decision:  %s\n", ev.Decision.Kind())
	if h, ok := ev.Decision.(scores.HideCommentDueToScores); ok {
		attr := string(h.Attribute)
		if h.Attribute == scores.NoAttribute {
			attr = "(none)"
		}
		text += fmt.Sprintf("attribute: %s\nscaled:    %.3f\n", attr, h.ScaledScore)
	}
	if ev.HideReason != "" {
		text += fmt.Sprintf("reason:    %s\n", ev.HideReason)
	}
	if ev.FeedbackQuestion != "" {
		text += fmt.Sprintf("question:  %s\n", ev.FeedbackQuestion)
	}
	text += fmt.Sprintf("color:     %s\n", ev.Color)
	return text
}
