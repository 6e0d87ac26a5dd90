package hermes

import (
	"time"

	"github.com/MikeSquared-Agency/tune/internal/scores"
)

const (
	// SubjectCommentDecided carries every visibility decision made for a scored comment.
	SubjectCommentDecided = "tune.comment.decided"
	// SubjectFeedbackSubmitted carries user feedback on hidden comments.
	SubjectFeedbackSubmitted = "tune.feedback.submitted"
	// SubjectSettingsChanged tells every replica to drop its cached copy of a user's settings.
	SubjectSettingsChanged = "tune.settings.changed"
	// SubjectServiceRegistered announces a replica on startup.
	SubjectServiceRegistered = "tune.service.registered"
)

type CommentDecided struct {
	UserID      string               `json:"user_id"`
	Site        string               `json:"site"`
	Kind        scores.Kind          `json:"kind"`
	Attribute   scores.AttributeName `json:"attribute,omitempty"`
	ScaledScore float64              `json:"scaled_score"`
	Threshold   float64              `json:"threshold"`
	DecidedAt   time.Time            `json:"decided_at"`
}

// NewCommentDecided flattens a decision into its event form.
func NewCommentDecided(userID, site string, threshold float64, d scores.Decision, at time.Time) CommentDecided {
	ev := CommentDecided{
		UserID:    userID,
		Site:      site,
		Kind:      d.Kind(),
		Threshold: threshold,
		DecidedAt: at,
	}
	if h, ok := d.(scores.HideCommentDueToScores); ok {
		ev.Attribute = h.Attribute
		ev.ScaledScore = h.ScaledScore
	}
	return ev
}

type FeedbackSubmitted struct {
	FeedbackID     string               `json:"feedback_id"`
	UserID         string               `json:"user_id"`
	SessionID      string               `json:"session_id"`
	Site           string               `json:"site"`
	Attribute      scores.AttributeName `json:"attribute"`
	SuggestedScore float64              `json:"suggested_score"`
}

type SettingsChanged struct {
	UserID         string    `json:"user_id"`
	FilterChanged  bool      `json:"filter_changed"`
	EnabledChanged bool      `json:"enabled_changed"`
	UpdatedAt      time.Time `json:"updated_at"`
}
