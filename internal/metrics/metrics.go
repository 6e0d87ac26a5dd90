package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MikeSquared-Agency/tune/internal/scores"
)

// Metrics owns a private registry so tests can build independent instances.
type Metrics struct {
	registry *prometheus.Registry

	Decisions        *prometheus.CounterVec
	ScoringDuration  prometheus.Histogram
	CacheLookups     *prometheus.CounterVec
	ClassifierErrors prometheus.Counter
	Feedback         *prometheus.CounterVec
	SettingsUpdates  *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tune_decisions_total",
			Help: "Visibility decisions by kind and hiding attribute",
		}, []string{"kind", "attribute"}),
		ScoringDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "tune_scoring_duration_seconds",
			Help:    "Time spent obtaining classifier scores, cache included",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}),
		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tune_score_cache_lookups_total",
			Help: "Score cache lookups by result",
		}, []string{"result"}),
		ClassifierErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "tune_classifier_errors_total",
			Help: "Failed classifier calls, breaker rejections included",
		}),
		Feedback: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tune_feedback_total",
			Help: "Feedback submissions by attribute",
		}, []string{"attribute"}),
		SettingsUpdates: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tune_settings_updates_total",
			Help: "Settings saves by what changed",
		}, []string{"change"}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveDecision(d scores.Decision) {
	attr := "none"
	if h, ok := d.(scores.HideCommentDueToScores); ok && h.Attribute != scores.NoAttribute {
		attr = string(h.Attribute)
	}
	m.Decisions.WithLabelValues(string(d.Kind()), attr).Inc()
}

func (m *Metrics) ObserveScoring(start time.Time, err error) {
	m.ScoringDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		m.ClassifierErrors.Inc()
	}
}

// CacheLookup satisfies scorecache.LookupRecorder.
func (m *Metrics) CacheLookup(hit bool) {
	if hit {
		m.CacheLookups.WithLabelValues("hit").Inc()
		return
	}
	m.CacheLookups.WithLabelValues("miss").Inc()
}

func (m *Metrics) ObserveFeedback(attr scores.AttributeName) {
	m.Feedback.WithLabelValues(string(attr)).Inc()
}

func (m *Metrics) ObserveSettingsUpdate(filterChanged, enabledChanged bool) {
	switch {
	case filterChanged && enabledChanged:
		m.SettingsUpdates.WithLabelValues("filter_and_enabled").Inc()
	case filterChanged:
		m.SettingsUpdates.WithLabelValues("filter").Inc()
	case enabledChanged:
		m.SettingsUpdates.WithLabelValues("enabled").Inc()
	default:
		m.SettingsUpdates.WithLabelValues("none").Inc()
	}
}
