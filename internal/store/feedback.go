package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/tune/internal/scores"
)

// Feedback is a user's verdict on a hidden comment.
type Feedback struct {
	ID             uuid.UUID            `json:"id"`
	UserID         string               `json:"userId"`
	SessionID      string               `json:"sessionId"`
	Site           string               `json:"site"`
	CommentText    string               `json:"commentText"`
	Attribute      scores.AttributeName `json:"attribute"`
	SuggestedScore float64              `json:"suggestedScore"`
	DecisionKind   scores.Kind          `json:"decisionKind"`
	CreatedAt      time.Time            `json:"createdAt"`
}

// RecordFeedback inserts a feedback row, assigning an id if unset.
func (s *Store) RecordFeedback(ctx context.Context, fb Feedback) (Feedback, error) {
	if fb.ID == uuid.Nil {
		fb.ID = uuid.New()
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO tune_feedback (id, user_id, session_id, site, comment_text, attribute, suggested_score, decision_kind, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		RETURNING created_at`,
		fb.ID, fb.UserID, fb.SessionID, fb.Site, fb.CommentText, string(fb.Attribute), fb.SuggestedScore, string(fb.DecisionKind),
	).Scan(&fb.CreatedAt)
	if err != nil {
		return Feedback{}, fmt.Errorf("insert feedback: %w", err)
	}
	return fb, nil
}

// ListFeedback returns a user's most recent feedback, newest first.
func (s *Store) ListFeedback(ctx context.Context, userID string, limit int) ([]Feedback, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, session_id, site, comment_text, attribute, suggested_score, decision_kind, created_at
		FROM tune_feedback
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query feedback: %w", err)
	}
	defer rows.Close()

	out := []Feedback{}
	for rows.Next() {
		var fb Feedback
		if err := rows.Scan(&fb.ID, &fb.UserID, &fb.SessionID, &fb.Site, &fb.CommentText,
			&fb.Attribute, &fb.SuggestedScore, &fb.DecisionKind, &fb.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		out = append(out, fb)
	}
	return out, rows.Err()
}
