package scores

import (
	"encoding/json"
	"fmt"
)

// Kind discriminates the Decision variants.
type Kind string

const (
	KindShowComment                         Kind = "showComment"
	KindHideCommentDueToScores              Kind = "hideCommentDueToScores"
	KindHideCommentDueToUnsupportedLanguage Kind = "hideCommentDueToUnsupportedLanguage"
)

// Valid reports whether k names one of the Decision variants.
func (k Kind) Valid() bool {
	switch k {
	case KindShowComment, KindHideCommentDueToScores, KindHideCommentDueToUnsupportedLanguage:
		return true
	}
	return false
}

// Decision is the visibility outcome for one comment. The set of
// implementations is closed: ShowComment, HideCommentDueToScores and
// HideCommentDueToUnsupportedLanguage.
type Decision interface {
	Kind() Kind
	decision()
}

// ShowComment leaves the comment visible.
type ShowComment struct{}

// HideCommentDueToScores hides the comment. Attribute names the responsible
// dimension and is NoAttribute for the hide-everything floor. ScaledScore is
// in dial space and selects the displayed band.
type HideCommentDueToScores struct {
	Attribute   AttributeName
	ScaledScore float64
}

// HideCommentDueToUnsupportedLanguage hides a comment the classifier could not score.
type HideCommentDueToUnsupportedLanguage struct{}

func (ShowComment) Kind() Kind                         { return KindShowComment }
func (HideCommentDueToScores) Kind() Kind              { return KindHideCommentDueToScores }
func (HideCommentDueToUnsupportedLanguage) Kind() Kind { return KindHideCommentDueToUnsupportedLanguage }

func (ShowComment) decision()                         {}
func (HideCommentDueToScores) decision()              {}
func (HideCommentDueToUnsupportedLanguage) decision() {}

// Hidden reports whether d hides the comment.
func Hidden(d Decision) bool {
	return d != nil && d.Kind() != KindShowComment
}

type wireDecision struct {
	Kind        Kind           `json:"kind"`
	Attribute   *AttributeName `json:"attribute,omitempty"`
	ScaledScore *float64       `json:"scaledScore,omitempty"`
}

// hideWire keeps "attribute": null on the wire for the unattributed floor.
type hideWire struct {
	Kind        Kind           `json:"kind"`
	Attribute   *AttributeName `json:"attribute"`
	ScaledScore float64        `json:"scaledScore"`
}

func (ShowComment) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireDecision{Kind: KindShowComment})
}

func (HideCommentDueToUnsupportedLanguage) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireDecision{Kind: KindHideCommentDueToUnsupportedLanguage})
}

func (h HideCommentDueToScores) MarshalJSON() ([]byte, error) {
	w := hideWire{Kind: KindHideCommentDueToScores, ScaledScore: h.ScaledScore}
	if h.Attribute != NoAttribute {
		attr := h.Attribute
		w.Attribute = &attr
	}
	return json.Marshal(w)
}

// UnmarshalDecision decodes the JSON form produced by the Decision types.
func UnmarshalDecision(data []byte) (Decision, error) {
	var w wireDecision
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode decision: %w", err)
	}
	switch w.Kind {
	case KindShowComment:
		return ShowComment{}, nil
	case KindHideCommentDueToUnsupportedLanguage:
		return HideCommentDueToUnsupportedLanguage{}, nil
	case KindHideCommentDueToScores:
		h := HideCommentDueToScores{}
		if w.Attribute != nil {
			if !w.Attribute.Valid() {
				return nil, fmt.Errorf("decode decision: unknown attribute %q", *w.Attribute)
			}
			h.Attribute = *w.Attribute
		}
		if w.ScaledScore != nil {
			h.ScaledScore = *w.ScaledScore
		}
		return h, nil
	default:
		return nil, fmt.Errorf("decode decision: unknown kind %q", w.Kind)
	}
}
