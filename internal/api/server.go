package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MikeSquared-Agency/tune/internal/processor"
	"github.com/MikeSquared-Agency/tune/internal/settings"
	"github.com/MikeSquared-Agency/tune/internal/store"
)

// Service is the processor surface the API exposes.
type Service interface {
	Evaluate(ctx context.Context, userID, site, text string) (processor.Evaluation, error)
	Settings(ctx context.Context, userID string) (settings.Settings, error)
	UpdateSettings(ctx context.Context, st settings.Settings) (settings.Settings, error)
	SubmitFeedback(ctx context.Context, req processor.FeedbackRequest) (store.Feedback, error)
	ListFeedback(ctx context.Context, userID string, limit int) ([]store.Feedback, error)
}

// EventBus reports whether the NATS connection is up.
type EventBus interface {
	Connected() bool
}

type Server struct {
	router *chi.Mux
	port   int
	svc    Service
	events EventBus
}

// NewServer wires the routes. metrics may be nil.
func NewServer(port int, apiToken string, svc Service, metrics http.Handler) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router: router,
		port:   port,
		svc:    svc,
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/tune/status", s.status)
	if metrics != nil {
		router.Handle("/metrics", metrics)
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(BearerAuthMiddleware(apiToken))
		r.Post("/visibility", s.visibility)
		r.Post("/comments/evaluate", s.evaluate)
		r.Get("/settings/{userID}", s.getSettings)
		r.Put("/settings/{userID}", s.putSettings)
		r.Post("/feedback", s.submitFeedback)
		r.Get("/feedback/{userID}", s.listFeedback)
	})

	return s
}

func (s *Server) Handler() http.Handler { return s.router }

// SetEventBus makes the status endpoint report the event connection.
func (s *Server) SetEventBus(b EventBus) { s.events = b }

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	slog.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

// BearerAuthMiddleware rejects requests without the expected bearer token.
// An empty token disables the check.
func BearerAuthMiddleware(apiToken string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiToken == "" {
				next.ServeHTTP(w, r)
				return
			}
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(apiToken)) != 1 {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	body := map[string]string{
		"agent":  "tune",
		"status": "active",
	}
	if s.events != nil {
		body["events"] = "disconnected"
		if s.events.Connected() {
			body["events"] = "connected"
		}
	}
	writeJSON(w, http.StatusOK, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
