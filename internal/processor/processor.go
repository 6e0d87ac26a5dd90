package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MikeSquared-Agency/tune/internal/hermes"
	"github.com/MikeSquared-Agency/tune/internal/metrics"
	"github.com/MikeSquared-Agency/tune/internal/perspective"
	"github.com/MikeSquared-Agency/tune/internal/scores"
	"github.com/MikeSquared-Agency/tune/internal/settings"
	"github.com/MikeSquared-Agency/tune/internal/store"
)

// ErrInvalidRequest wraps validation failures of caller-supplied input.
var ErrInvalidRequest = errors.New("invalid request")

// SettingsStore persists user settings and feedback.
type SettingsStore interface {
	EnsureSettings(ctx context.Context, userID string) (settings.Settings, error)
	SaveSettings(ctx context.Context, st settings.Settings) (settings.Settings, error)
	RecordFeedback(ctx context.Context, fb store.Feedback) (store.Feedback, error)
	ListFeedback(ctx context.Context, userID string, limit int) ([]store.Feedback, error)
}

// Analyzer scores comment text.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (scores.AttributeScores, error)
}

// Suggester forwards feedback to the classifier.
type Suggester interface {
	SuggestScore(ctx context.Context, s perspective.Suggestion) error
}

// Publisher emits events; *hermes.Client satisfies it.
type Publisher interface {
	Publish(subject string, data any) error
}

// Processor orchestrates Tune's comment evaluation pipeline.
type Processor struct {
	store     SettingsStore
	analyzer  Analyzer
	suggester Suggester
	publisher Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time

	mu       sync.RWMutex
	settings map[string]settings.Settings // keyed by user id
	// generation counts writes and invalidations per user. A store load only
	// fills the cache if no generation bump happened while it ran.
	generation map[string]uint64
}

// New builds a Processor. suggester and publisher may be nil.
func New(s SettingsStore, a Analyzer, sg Suggester, pub Publisher, m *metrics.Metrics, logger *slog.Logger) *Processor {
	return &Processor{
		store:      s,
		analyzer:   a,
		suggester:  sg,
		publisher:  pub,
		metrics:    m,
		logger:     logger,
		now:        time.Now,
		settings:   make(map[string]settings.Settings),
		generation: make(map[string]uint64),
	}
}

// Evaluation is everything a client needs to render one comment.
type Evaluation struct {
	Decision         scores.Decision        `json:"decision"`
	Hidden           bool                   `json:"hidden"`
	HideReason       string                 `json:"hideReason,omitempty"`
	FeedbackQuestion string                 `json:"feedbackQuestion,omitempty"`
	Color            string                 `json:"color"`
	Threshold        float64                `json:"threshold"`
	Active           bool                   `json:"active"`
	Scores           scores.AttributeScores `json:"scores,omitempty"`
}

// Decide runs the visibility engine with a user's settings.
func Decide(s scores.AttributeScores, st settings.Settings) scores.Decision {
	return scores.CommentVisibility(s, st.Threshold, st.Attributes, st.SubtypesEnabled)
}

// Explain derives the user-facing text for a decision.
func Explain(d scores.Decision, threshold float64, subtypesEnabled bool) Evaluation {
	ev := Evaluation{
		Decision:  d,
		Hidden:    scores.Hidden(d),
		Color:     scores.ColorGradient(threshold),
		Threshold: threshold,
		Active:    true,
	}
	if ev.Hidden {
		ev.HideReason = scores.HideReasonDescription(d)
		ev.FeedbackQuestion = scores.FeedbackQuestion(d, subtypesEnabled)
	}
	return ev
}

// Evaluate scores a comment and decides its visibility for a user on a site.
// Comments on sites where the user switched filtering off are shown unscored.
func (p *Processor) Evaluate(ctx context.Context, userID, site, text string) (Evaluation, error) {
	st, err := p.Settings(ctx, userID)
	if err != nil {
		return Evaluation{}, err
	}

	if !st.ActiveOn(settings.Website(site)) {
		ev := Explain(scores.ShowComment{}, st.Threshold, st.SubtypesEnabled)
		ev.Active = false
		return ev, nil
	}

	start := time.Now()
	s, err := p.analyzer.Analyze(ctx, text)
	p.metrics.ObserveScoring(start, err)
	if err != nil {
		return Evaluation{}, fmt.Errorf("score comment: %w", err)
	}

	d := Decide(s, st)
	p.metrics.ObserveDecision(d)
	p.publish(hermes.SubjectCommentDecided, hermes.NewCommentDecided(userID, site, st.Threshold, d, p.now()))

	ev := Explain(d, st.Threshold, st.SubtypesEnabled)
	ev.Scores = s
	return ev, nil
}

func (p *Processor) publish(subject string, data any) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.Publish(subject, data); err != nil {
		p.logger.Error("failed to publish", "subject", subject, "error", err)
	}
}
