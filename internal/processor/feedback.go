package processor

import (
	"context"
	"errors"
	"fmt"

	"github.com/MikeSquared-Agency/tune/internal/hermes"
	"github.com/MikeSquared-Agency/tune/internal/perspective"
	"github.com/MikeSquared-Agency/tune/internal/scores"
	"github.com/MikeSquared-Agency/tune/internal/store"
)

// FeedbackRequest is a user's answer to a hidden comment's feedback question.
type FeedbackRequest struct {
	UserID       string               `json:"userId"`
	Site         string               `json:"site"`
	CommentText  string               `json:"commentText"`
	Attribute    scores.AttributeName `json:"attribute"`
	DecisionKind scores.Kind          `json:"decisionKind"`
	// IsAttribute is the user's yes/no answer.
	IsAttribute bool `json:"isAttribute"`
}

func (r FeedbackRequest) validate() error {
	switch {
	case r.UserID == "":
		return errors.New("user id is required")
	case r.Site == "":
		return errors.New("site is required")
	case r.CommentText == "":
		return errors.New("comment text is required")
	case r.Attribute != scores.NoAttribute && !r.Attribute.Valid():
		return fmt.Errorf("unknown attribute %q", r.Attribute)
	case r.DecisionKind != "" && !r.DecisionKind.Valid():
		return fmt.Errorf("unknown decision kind %q", r.DecisionKind)
	}
	return nil
}

// SubmitFeedback forwards the answer to the classifier and records it.
// Unattributed hides are reported against toxicity.
func (p *Processor) SubmitFeedback(ctx context.Context, req FeedbackRequest) (store.Feedback, error) {
	if err := req.validate(); err != nil {
		return store.Feedback{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if req.Attribute == scores.NoAttribute {
		req.Attribute = scores.Toxicity
	}
	if req.DecisionKind == "" {
		req.DecisionKind = scores.KindHideCommentDueToScores
	}

	st, err := p.Settings(ctx, req.UserID)
	if err != nil {
		return store.Feedback{}, err
	}

	score := 0.0
	if req.IsAttribute {
		score = 1
	}

	if p.suggester != nil {
		err := p.suggester.SuggestScore(ctx, perspective.Suggestion{
			Text:        req.CommentText,
			Attribute:   req.Attribute,
			Score:       score,
			CommunityID: req.Site,
			SessionID:   st.SessionID,
		})
		if err != nil {
			return store.Feedback{}, fmt.Errorf("suggest score: %w", err)
		}
	}

	fb, err := p.store.RecordFeedback(ctx, store.Feedback{
		UserID:         req.UserID,
		SessionID:      st.SessionID,
		Site:           req.Site,
		CommentText:    req.CommentText,
		Attribute:      req.Attribute,
		SuggestedScore: score,
		DecisionKind:   req.DecisionKind,
	})
	if err != nil {
		return store.Feedback{}, fmt.Errorf("record feedback: %w", err)
	}

	p.metrics.ObserveFeedback(req.Attribute)
	p.publish(hermes.SubjectFeedbackSubmitted, hermes.FeedbackSubmitted{
		FeedbackID:     fb.ID.String(),
		UserID:         fb.UserID,
		SessionID:      fb.SessionID,
		Site:           fb.Site,
		Attribute:      fb.Attribute,
		SuggestedScore: fb.SuggestedScore,
	})

	p.logger.Info("feedback recorded", "user_id", fb.UserID, "site", fb.Site, "attribute", fb.Attribute, "score", score)
	return fb, nil
}

// ListFeedback returns a user's most recent feedback.
func (p *Processor) ListFeedback(ctx context.Context, userID string, limit int) ([]store.Feedback, error) {
	return p.store.ListFeedback(ctx, userID, limit)
}
