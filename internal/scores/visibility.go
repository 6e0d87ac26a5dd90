package scores

import (
	"log/slog"
	"math"
)

// CommentVisibility decides whether a comment with the given scores is shown
// for a user's threshold and enabled attributes.
//
// Rules are checked in order and the first match wins: the show-everything
// dial, missing scores, severe toxicity, the highest considered attribute,
// low quality, and finally the hide-everything floor. When subtypesEnabled is
// false only the toxicity score competes for the attribute rule.
func CommentVisibility(scores AttributeScores, threshold float64, enabled EnabledAttributes, subtypesEnabled bool) Decision {
	if threshold >= ShowEverythingThreshold {
		return ShowComment{}
	}

	if scores == nil {
		slog.Error("comment visibility called with nil scores")
		return ShowComment{}
	}

	if !scores.Complete() {
		if len(scores) > 0 {
			slog.Warn("partial scores treated as unsupported language",
				"missing", scores.Missing())
		}
		if threshold < HideUnsupportedLanguageThreshold {
			return HideCommentDueToUnsupportedLanguage{}
		}
		return ShowComment{}
	}

	maxScore := maxEnabledAttributeScore(scores, enabled, subtypesEnabled)

	if d, ok := hideForSevereToxicity(scores[SevereToxicity], maxScore, threshold); ok {
		return d
	}
	if d, ok := hideForAttributeScore(maxScore, threshold); ok {
		return d
	}
	if d, ok := hideForLowQuality(scores, maxScore, threshold); ok {
		return d
	}
	if threshold <= HideEverythingThreshold {
		return HideCommentDueToScores{Attribute: NoAttribute, ScaledScore: 0}
	}
	return ShowComment{}
}

// shouldConsiderAttribute reports whether attr competes in the max-score scan.
// Severe toxicity is considered unless every setting attribute is disabled.
func shouldConsiderAttribute(attr AttributeName, enabled EnabledAttributes) bool {
	if enabled.Enabled(attr) {
		return true
	}
	return attr == SevereToxicity && enabled.Any()
}

func maxEnabledAttributeScore(scores AttributeScores, enabled EnabledAttributes, subtypesEnabled bool) *AttributeScore {
	if !subtypesEnabled {
		return &AttributeScore{Attribute: Toxicity, Score: scores[Toxicity]}
	}

	var current *AttributeScore
	for _, attr := range AllAttributes {
		if !shouldConsiderAttribute(attr, enabled) {
			continue
		}
		score := scores[attr]
		if current == nil || score > current.Score {
			current = &AttributeScore{Attribute: attr, Score: score}
		}
	}
	return current
}

func hideForSevereToxicity(severe float64, maxScore *AttributeScore, threshold float64) (Decision, bool) {
	if severe < math.Max(threshold, BlaringThreshold) {
		return nil, false
	}
	d := HideCommentDueToScores{Attribute: SevereToxicity, ScaledScore: severe}
	// A high subtype score names the reason, the severe score keeps the band.
	if maxScore != nil && maxScore.Score >= LoudThreshold {
		d.Attribute = maxScore.Attribute
	}
	return d, true
}

func hideForAttributeScore(maxScore *AttributeScore, threshold float64) (Decision, bool) {
	if maxScore == nil || threshold > BlaringThreshold {
		return nil, false
	}
	scaled := ScaleEnabledAttributeScore(maxScore.Score)
	if scaled < math.Max(threshold, LowThreshold) {
		return nil, false
	}
	return HideCommentDueToScores{Attribute: maxScore.Attribute, ScaledScore: scaled}, true
}

// hideForLowQuality only applies in the quiet band. A comment passes when
// either its toxicity or its damped likelyToReject score is under the threshold.
func hideForLowQuality(scores AttributeScores, maxScore *AttributeScore, threshold float64) (Decision, bool) {
	if threshold > LowThreshold {
		return nil, false
	}
	reject := scores[LikelyToReject] * LikelyToRejectDamping
	if scores[Toxicity] < threshold || reject < threshold {
		return nil, false
	}
	attr := Toxicity
	if maxScore != nil {
		attr = maxScore.Attribute
	}
	return HideCommentDueToScores{Attribute: attr, ScaledScore: scores[Toxicity]}, true
}
