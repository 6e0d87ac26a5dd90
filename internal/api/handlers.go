package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/MikeSquared-Agency/tune/internal/perspective"
	"github.com/MikeSquared-Agency/tune/internal/processor"
	"github.com/MikeSquared-Agency/tune/internal/scores"
	"github.com/MikeSquared-Agency/tune/internal/settings"
)

type visibilityRequest struct {
	Scores            scores.AttributeScores   `json:"scores"`
	Threshold         *float64                 `json:"threshold"`
	EnabledAttributes scores.EnabledAttributes `json:"enabledAttributes"`
	SubtypesEnabled   bool                     `json:"subtypesEnabled"`
}

func (req visibilityRequest) validate() error {
	if req.Scores == nil {
		return errors.New("scores are required")
	}
	for attr := range req.Scores {
		if !attr.Valid() {
			return fmt.Errorf("unknown attribute %q", attr)
		}
	}
	if req.Threshold == nil {
		return errors.New("threshold is required")
	}
	if t := *req.Threshold; !(t >= 0 && t <= 1) {
		return settings.ErrInvalidThreshold
	}
	return nil
}

// visibility handles POST /api/v1/visibility. It runs the engine on
// caller-supplied scores without touching any stored state.
func (s *Server) visibility(w http.ResponseWriter, r *http.Request) {
	var req visibilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	enabled := req.EnabledAttributes
	if enabled == nil {
		enabled = scores.AllEnabled()
	}

	d := scores.CommentVisibility(req.Scores, *req.Threshold, enabled, req.SubtypesEnabled)
	writeJSON(w, http.StatusOK, processor.Explain(d, *req.Threshold, req.SubtypesEnabled))
}

type evaluateRequest struct {
	UserID string `json:"userId"`
	Site   string `json:"site"`
	Text   string `json:"text"`
}

// evaluate handles POST /api/v1/comments/evaluate.
func (s *Server) evaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	if req.UserID == "" || req.Text == "" {
		writeError(w, http.StatusBadRequest, "userId and text are required")
		return
	}

	ev, err := s.svc.Evaluate(r.Context(), req.UserID, req.Site, req.Text)
	if err != nil {
		s.fail(w, err, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// getSettings handles GET /api/v1/settings/{userID}.
func (s *Server) getSettings(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.Settings(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		s.fail(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// putSettings handles PUT /api/v1/settings/{userID}.
func (s *Server) putSettings(w http.ResponseWriter, r *http.Request) {
	var st settings.Settings
	if err := json.NewDecoder(r.Body).Decode(&st); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	st.UserID = chi.URLParam(r, "userID")

	saved, err := s.svc.UpdateSettings(r.Context(), st)
	if err != nil {
		s.fail(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// submitFeedback handles POST /api/v1/feedback.
func (s *Server) submitFeedback(w http.ResponseWriter, r *http.Request) {
	var req processor.FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}

	fb, err := s.svc.SubmitFeedback(r.Context(), req)
	if err != nil {
		s.fail(w, err, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusCreated, fb)
}

// listFeedback handles GET /api/v1/feedback/{userID}?limit=N.
func (s *Server) listFeedback(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	list, err := s.svc.ListFeedback(r.Context(), chi.URLParam(r, "userID"), limit)
	if err != nil {
		s.fail(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"feedback": list, "count": len(list)})
}

// fail maps service errors to responses; fallback covers everything unclassified.
func (s *Server) fail(w http.ResponseWriter, err error, fallback int) {
	switch {
	case errors.Is(err, processor.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, perspective.ErrCircuitOpen):
		writeError(w, http.StatusServiceUnavailable, "classifier unavailable")
	default:
		slog.Error("request failed", "error", err)
		writeError(w, fallback, err.Error())
	}
}
