package scores

import (
	"fmt"
	"math"
	"strings"
)

const (
	UnsupportedLanguageDescription = "Tune doesn't currently support this language."
	GenericFeedbackQuestion        = "Should this be hidden?"
)

// HideReasonDescription returns the text shown next to a hidden comment:
// the band label for score-based hides and a fixed message for comments in
// unsupported languages. Shown comments have no description.
func HideReasonDescription(d Decision) string {
	switch d := d.(type) {
	case HideCommentDueToScores:
		return string(BandFor(d.ScaledScore))
	case HideCommentDueToUnsupportedLanguage:
		return UnsupportedLanguageDescription
	default:
		return ""
	}
}

// FeedbackQuestion returns the question asked when the user gives feedback on
// a decision. Loud and blaring hides name their attribute when subtypes are on.
func FeedbackQuestion(d Decision, subtypesEnabled bool) string {
	switch d := d.(type) {
	case ShowComment:
		return ""
	case HideCommentDueToScores:
		if subtypesEnabled && d.ScaledScore >= LoudThreshold && d.Attribute.Valid() {
			return "Is this " + attributeWithPrefix(d.Attribute) + "?"
		}
	}
	if d == nil {
		return ""
	}
	return GenericFeedbackQuestion
}

func attributeWithPrefix(attr AttributeName) string {
	return articlePrefixes[attr] + strings.ToLower(displayNames[attr])
}

// ColorGradient returns the dial colour at threshold as "rgb(r, g, b)", from
// dark purple at 0 to bright pink at 1.
func ColorGradient(threshold float64) string {
	stops := [...]struct {
		pos     float64
		r, g, b float64
	}{
		{0, 0x51, 0x2D, 0xA8},
		{LowThreshold, 0x6B, 0x29, 0x99},
		{MediumThreshold, 0x86, 0x26, 0x8A},
		{LoudThreshold, 0xAF, 0x20, 0x75},
		{BlaringThreshold, 0xC3, 0x1D, 0x6A},
		{1, 0xD8, 0x1B, 0x60},
	}

	t := math.Min(math.Max(threshold, 0), 1)
	if math.IsNaN(threshold) {
		t = 0
	}
	lo, hi := stops[0], stops[len(stops)-1]
	for i := 1; i < len(stops); i++ {
		if t <= stops[i].pos {
			lo, hi = stops[i-1], stops[i]
			break
		}
	}
	span := Range{lo.pos, hi.pos}
	channel := func(a, b float64) int {
		return int(math.Round(Linscale(t, span, Range{a, b})))
	}
	return fmt.Sprintf("rgb(%d, %d, %d)", channel(lo.r, hi.r), channel(lo.g, hi.g), channel(lo.b, hi.b))
}
