package processor

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/MikeSquared-Agency/tune/internal/hermes"
	"github.com/MikeSquared-Agency/tune/internal/metrics"
	"github.com/MikeSquared-Agency/tune/internal/perspective"
	"github.com/MikeSquared-Agency/tune/internal/scores"
	"github.com/MikeSquared-Agency/tune/internal/settings"
	"github.com/MikeSquared-Agency/tune/internal/store"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeStore struct {
	mu        sync.Mutex
	settings  map[string]settings.Settings
	feedback  []store.Feedback
	ensures   int
	saveErr   error
	recordErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{settings: map[string]settings.Settings{}}
}

func (f *fakeStore) EnsureSettings(_ context.Context, userID string) (settings.Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensures++
	st, ok := f.settings[userID]
	if !ok {
		st = settings.Default(userID)
		f.settings[userID] = st
	}
	return st, nil
}

func (f *fakeStore) SaveSettings(_ context.Context, st settings.Settings) (settings.Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return settings.Settings{}, f.saveErr
	}
	st.UpdatedAt = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	f.settings[st.UserID] = st
	return st, nil
}

func (f *fakeStore) RecordFeedback(_ context.Context, fb store.Feedback) (store.Feedback, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recordErr != nil {
		return store.Feedback{}, f.recordErr
	}
	fb.ID = uuid.New()
	f.feedback = append(f.feedback, fb)
	return fb, nil
}

func (f *fakeStore) ListFeedback(_ context.Context, userID string, _ int) ([]store.Feedback, error) {
	var out []store.Feedback
	for _, fb := range f.feedback {
		if fb.UserID == userID {
			out = append(out, fb)
		}
	}
	return out, nil
}

// slowStore holds its first EnsureSettings call open after reading the row
// until release is closed.
type slowStore struct {
	*fakeStore
	calls   atomic.Int32
	loaded  chan struct{}
	release chan struct{}
}

func (s *slowStore) EnsureSettings(ctx context.Context, userID string) (settings.Settings, error) {
	st, err := s.fakeStore.EnsureSettings(ctx, userID)
	if s.calls.Add(1) == 1 {
		close(s.loaded)
		<-s.release
	}
	return st, err
}

type fakeAnalyzer struct {
	result scores.AttributeScores
	err    error
	calls  int
}

func (f *fakeAnalyzer) Analyze(context.Context, string) (scores.AttributeScores, error) {
	f.calls++
	return f.result, f.err
}

type fakeSuggester struct {
	got []perspective.Suggestion
	err error
}

func (f *fakeSuggester) SuggestScore(_ context.Context, s perspective.Suggestion) error {
	f.got = append(f.got, s)
	return f.err
}

type published struct {
	subject string
	data    any
}

type fakePublisher struct {
	msgs []published
}

func (f *fakePublisher) Publish(subject string, data any) error {
	f.msgs = append(f.msgs, published{subject, data})
	return nil
}

func (f *fakePublisher) subjects() []string {
	var out []string
	for _, m := range f.msgs {
		out = append(out, m.subject)
	}
	return out
}

func lowScores() scores.AttributeScores {
	s := scores.AttributeScores{}
	for _, attr := range scores.AllAttributes {
		s[attr] = 0.01
	}
	return s
}

type harness struct {
	p         *Processor
	store     *fakeStore
	analyzer  *fakeAnalyzer
	suggester *fakeSuggester
	pub       *fakePublisher
	metrics   *metrics.Metrics
}

func newHarness(s scores.AttributeScores) *harness {
	h := &harness{
		store:     newFakeStore(),
		analyzer:  &fakeAnalyzer{result: s},
		suggester: &fakeSuggester{},
		pub:       &fakePublisher{},
		metrics:   metrics.New(),
	}
	h.p = New(h.store, h.analyzer, h.suggester, h.pub, h.metrics, testLogger)
	h.p.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	return h
}

func TestEvaluate_HidesSevereToxicity(t *testing.T) {
	s := lowScores()
	s[scores.SevereToxicity] = 0.9
	s[scores.Toxicity] = 0.95
	h := newHarness(s)

	ev, err := h.p.Evaluate(context.Background(), "user-1", "youtube", "some awful comment")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := scores.HideCommentDueToScores{Attribute: scores.Toxicity, ScaledScore: 0.9}
	if ev.Decision != scores.Decision(want) {
		t.Fatalf("expected %#v, got %#v", want, ev.Decision)
	}
	if !ev.Hidden || !ev.Active {
		t.Errorf("expected hidden and active, got %+v", ev)
	}
	if ev.HideReason != string(scores.Blaring) {
		t.Errorf("unexpected hide reason %q", ev.HideReason)
	}
	if ev.FeedbackQuestion != scores.GenericFeedbackQuestion {
		t.Errorf("expected generic question with subtypes off, got %q", ev.FeedbackQuestion)
	}
	if ev.Color != scores.ColorGradient(settings.DefaultThreshold) {
		t.Errorf("unexpected color %s", ev.Color)
	}

	if len(h.pub.msgs) != 1 || h.pub.msgs[0].subject != hermes.SubjectCommentDecided {
		t.Fatalf("expected one decided event, got %v", h.pub.subjects())
	}
	decided := h.pub.msgs[0].data.(hermes.CommentDecided)
	if decided.UserID != "user-1" || decided.Site != "youtube" || decided.Attribute != scores.Toxicity {
		t.Errorf("unexpected event %+v", decided)
	}

	if got := testutil.ToFloat64(h.metrics.Decisions.WithLabelValues("hideCommentDueToScores", "toxicity")); got != 1 {
		t.Errorf("expected decision counted, got %v", got)
	}
}

func TestEvaluate_ShowsBenignComment(t *testing.T) {
	h := newHarness(lowScores())

	ev, err := h.p.Evaluate(context.Background(), "user-1", "reddit", "nice video")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Hidden || ev.HideReason != "" || ev.FeedbackQuestion != "" {
		t.Errorf("expected plain show, got %+v", ev)
	}
	if ev.Scores[scores.Insult] != 0.01 {
		t.Errorf("expected scores echoed, got %v", ev.Scores)
	}
}

func TestEvaluate_DisabledSiteSkipsScoring(t *testing.T) {
	h := newHarness(lowScores())
	st := settings.Default("user-1")
	st.Websites[settings.Twitter] = false
	h.store.settings["user-1"] = st

	ev, err := h.p.Evaluate(context.Background(), "user-1", "twitter", "anything")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Active || ev.Hidden {
		t.Errorf("expected inactive show, got %+v", ev)
	}
	if h.analyzer.calls != 0 {
		t.Errorf("expected no classifier call, got %d", h.analyzer.calls)
	}
	if len(h.pub.msgs) != 0 {
		t.Errorf("expected no events, got %v", h.pub.subjects())
	}
}

func TestEvaluate_UnsupportedLanguage(t *testing.T) {
	h := newHarness(scores.AttributeScores{})
	st := settings.Default("user-1")
	st.Threshold = 0.2
	h.store.settings["user-1"] = st

	ev, err := h.p.Evaluate(context.Background(), "user-1", "youtube", "bonjour")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Decision.Kind() != scores.KindHideCommentDueToUnsupportedLanguage {
		t.Fatalf("expected unsupported language, got %#v", ev.Decision)
	}
	if ev.HideReason != scores.UnsupportedLanguageDescription {
		t.Errorf("unexpected hide reason %q", ev.HideReason)
	}
}

func TestEvaluate_ClassifierError(t *testing.T) {
	h := newHarness(nil)
	h.analyzer.err = perspective.ErrCircuitOpen

	_, err := h.p.Evaluate(context.Background(), "user-1", "youtube", "hello")
	if !errors.Is(err, perspective.ErrCircuitOpen) {
		t.Fatalf("expected wrapped ErrCircuitOpen, got %v", err)
	}
	if got := testutil.ToFloat64(h.metrics.ClassifierErrors); got != 1 {
		t.Errorf("expected classifier error counted, got %v", got)
	}
}

func TestSettings_CachedUntilInvalidated(t *testing.T) {
	h := newHarness(lowScores())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := h.p.Evaluate(ctx, "user-1", "youtube", "hi"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if h.store.ensures != 1 {
		t.Fatalf("expected settings loaded once, got %d", h.store.ensures)
	}

	data, _ := json.Marshal(hermes.SettingsChanged{UserID: "user-1", FilterChanged: true})
	h.p.HandleSettingsChanged(hermes.SubjectSettingsChanged, data)

	if _, err := h.p.Evaluate(ctx, "user-1", "youtube", "hi"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.store.ensures != 2 {
		t.Errorf("expected reload after invalidation, got %d loads", h.store.ensures)
	}
}

func TestSettings_SlowLoadDoesNotOverwriteUpdate(t *testing.T) {
	slow := &slowStore{
		fakeStore: newFakeStore(),
		loaded:    make(chan struct{}),
		release:   make(chan struct{}),
	}
	p := New(slow, &fakeAnalyzer{result: lowScores()}, nil, nil, metrics.New(), testLogger)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := p.Settings(ctx, "user-1"); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	}()
	<-slow.loaded

	updated := settings.Default("user-1")
	updated.Threshold = 0.2
	if _, err := p.UpdateSettings(ctx, updated); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, _ := json.Marshal(hermes.SettingsChanged{UserID: "user-1", FilterChanged: true})
	p.HandleSettingsChanged(hermes.SubjectSettingsChanged, data)

	close(slow.release)
	<-done

	st, err := p.Settings(ctx, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.Threshold != 0.2 {
		t.Errorf("expected threshold 0.2 after update, got %v", st.Threshold)
	}
}

func TestHandleSettingsChanged_IgnoresBadPayloads(t *testing.T) {
	h := newHarness(lowScores())
	ctx := context.Background()
	if _, err := h.p.Settings(ctx, "user-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	h.p.HandleSettingsChanged(hermes.SubjectSettingsChanged, []byte("not json"))
	h.p.HandleSettingsChanged(hermes.SubjectSettingsChanged, []byte(`{"filter_changed":true}`))

	if _, err := h.p.Settings(ctx, "user-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.store.ensures != 1 {
		t.Errorf("expected cache untouched, got %d loads", h.store.ensures)
	}
}

func TestUpdateSettings(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*settings.Settings)
		wantPublish bool
	}{
		{"threshold", func(s *settings.Settings) { s.Threshold = 0.4 }, true},
		{"subtypes", func(s *settings.Settings) { s.SubtypesEnabled = true }, true},
		{"website", func(s *settings.Settings) { s.Websites[settings.Facebook] = false }, true},
		{"install state only", func(s *settings.Settings) { s.InstallState = settings.SetupCompleted }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(lowScores())
			ctx := context.Background()
			old, err := h.p.Settings(ctx, "user-1")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			updated := settings.Default("user-1")
			updated.SessionID = ""
			tt.mutate(&updated)

			saved, err := h.p.UpdateSettings(ctx, updated)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if saved.SessionID != old.SessionID {
				t.Errorf("expected session id preserved, got %s want %s", saved.SessionID, old.SessionID)
			}

			published := len(h.pub.msgs) == 1 && h.pub.msgs[0].subject == hermes.SubjectSettingsChanged
			if published != tt.wantPublish {
				t.Errorf("published = %v (%v), want %v", published, h.pub.subjects(), tt.wantPublish)
			}

			cached, _ := h.p.Settings(ctx, "user-1")
			if cached.UpdatedAt != saved.UpdatedAt {
				t.Error("expected cache refreshed with saved settings")
			}
		})
	}
}

func TestUpdateSettings_Invalid(t *testing.T) {
	h := newHarness(lowScores())
	st := settings.Default("user-1")
	st.Threshold = 1.5

	_, err := h.p.UpdateSettings(context.Background(), st)
	if !errors.Is(err, settings.ErrInvalidThreshold) || !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected invalid threshold request, got %v", err)
	}
	if h.store.ensures != 0 {
		t.Error("expected no store access for invalid settings")
	}
}

func TestSubmitFeedback(t *testing.T) {
	h := newHarness(lowScores())
	ctx := context.Background()
	st, _ := h.p.Settings(ctx, "user-1")

	fb, err := h.p.SubmitFeedback(ctx, FeedbackRequest{
		UserID:      "user-1",
		Site:        "youtube",
		CommentText: "you walnut",
		Attribute:   scores.Insult,
		IsAttribute: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(h.suggester.got) != 1 {
		t.Fatalf("expected one suggestion, got %d", len(h.suggester.got))
	}
	want := perspective.Suggestion{
		Text:        "you walnut",
		Attribute:   scores.Insult,
		Score:       1,
		CommunityID: "youtube",
		SessionID:   st.SessionID,
	}
	if h.suggester.got[0] != want {
		t.Errorf("unexpected suggestion %+v", h.suggester.got[0])
	}

	if fb.ID == uuid.Nil || fb.SuggestedScore != 1 || fb.DecisionKind != scores.KindHideCommentDueToScores {
		t.Errorf("unexpected feedback %+v", fb)
	}
	if len(h.pub.msgs) != 1 || h.pub.msgs[0].subject != hermes.SubjectFeedbackSubmitted {
		t.Errorf("expected feedback event, got %v", h.pub.subjects())
	}
	if got := testutil.ToFloat64(h.metrics.Feedback.WithLabelValues("insult")); got != 1 {
		t.Errorf("expected feedback counted, got %v", got)
	}
}

func TestSubmitFeedback_UnattributedFallsBackToToxicity(t *testing.T) {
	h := newHarness(lowScores())

	fb, err := h.p.SubmitFeedback(context.Background(), FeedbackRequest{
		UserID:      "user-1",
		Site:        "disqus",
		CommentText: "meh",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fb.Attribute != scores.Toxicity || fb.SuggestedScore != 0 {
		t.Errorf("unexpected feedback %+v", fb)
	}
}

func TestSubmitFeedback_Errors(t *testing.T) {
	valid := FeedbackRequest{UserID: "u", Site: "youtube", CommentText: "c", Attribute: scores.Threat}

	t.Run("validation", func(t *testing.T) {
		for _, req := range []FeedbackRequest{
			{Site: "youtube", CommentText: "c"},
			{UserID: "u", CommentText: "c"},
			{UserID: "u", Site: "youtube"},
			{UserID: "u", Site: "youtube", CommentText: "c", Attribute: "spam"},
			{UserID: "u", Site: "youtube", CommentText: "c", Attribute: scores.Threat, DecisionKind: "hideBecauseISaidSo"},
		} {
			h := newHarness(lowScores())
			if _, err := h.p.SubmitFeedback(context.Background(), req); !errors.Is(err, ErrInvalidRequest) {
				t.Errorf("expected ErrInvalidRequest for %+v, got %v", req, err)
			}
			if len(h.store.feedback) != 0 {
				t.Errorf("expected nothing recorded for %+v", req)
			}
		}
	})

	t.Run("suggester failure is not recorded", func(t *testing.T) {
		h := newHarness(lowScores())
		h.suggester.err = errors.New("upstream down")
		if _, err := h.p.SubmitFeedback(context.Background(), valid); err == nil {
			t.Fatal("expected error")
		}
		if len(h.store.feedback) != 0 || len(h.pub.msgs) != 0 {
			t.Error("expected nothing recorded or published")
		}
	})

	t.Run("store failure", func(t *testing.T) {
		h := newHarness(lowScores())
		h.store.recordErr = errors.New("db down")
		if _, err := h.p.SubmitFeedback(context.Background(), valid); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestExplain(t *testing.T) {
	ev := Explain(scores.HideCommentDueToScores{Attribute: scores.Threat, ScaledScore: 0.7}, 0.5, true)
	if ev.FeedbackQuestion != "Is this a threat?" {
		t.Errorf("unexpected question %q", ev.FeedbackQuestion)
	}
	if !ev.Hidden || !ev.Active {
		t.Errorf("unexpected flags %+v", ev)
	}

	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]json.RawMessage
	json.Unmarshal(data, &m)
	if string(m["decision"]) != `{"kind":"hideCommentDueToScores","attribute":"threat","scaledScore":0.7}` {
		t.Errorf("unexpected decision json %s", m["decision"])
	}
}
