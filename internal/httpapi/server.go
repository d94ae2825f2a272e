// Package httpapi exposes the credit-plan and feedback operations over a
// JSON HTTP API with bearer-token auth.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"strings"

	"leed-assist/internal/app"
	"leed-assist/internal/catalog"
	"leed-assist/internal/config"
	"leed-assist/internal/feedback"
	"leed-assist/internal/metrics"
	"leed-assist/internal/plan"
)

// Server wires the application operations onto an http.ServeMux.
type Server struct {
	app *app.App
	cfg *config.Config
}

// NewServer creates a new API server.
func NewServer(a *app.App, cfg *config.Config) *Server {
	return &Server{app: a, cfg: cfg}
}

// RegisterHandlers attaches all API routes to the mux.
func (s *Server) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/scores", s.auth(s.handleScores))
	mux.HandleFunc("/api/plan", s.auth(s.handlePlan))
	mux.HandleFunc("/api/suggestions", s.auth(s.handleSuggestions))
	mux.HandleFunc("/api/feedback", s.auth(s.handleFeedback))
	mux.HandleFunc("/api/feedback/last", s.auth(s.handleLastFeedback))
	mux.HandleFunc("/api/feedback/rate", s.auth(s.handleRate))
	mux.HandleFunc("/api/catalog", s.auth(s.handleCatalog))
	mux.HandleFunc("/api/metrics", s.auth(s.handleMetrics))
}

type user struct {
	ID    string
	Admin bool
}

type authedHandler func(w http.ResponseWriter, r *http.Request, u user)

func (s *Server) auth(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		userID, admin, err := parseToken(s.cfg.TokenSigningKey, raw)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next(w, r, user{ID: userID, Admin: admin})
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"sys":    metrics.GetSysHealth(s.cfg.DatabasePath, s.cfg.CatalogPath),
	})
}

type scoresRequest struct {
	Phase   string         `json:"phase"`
	Scores  map[string]any `json:"scores"`
	Replace *bool          `json:"replace,omitempty"`
}

func (s *Server) handleScores(w http.ResponseWriter, r *http.Request, u user) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "use POST")
		return
	}
	var req scoresRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	// Submissions replace the phase bucket unless asked to merge.
	replace := true
	if req.Replace != nil {
		replace = *req.Replace
	}

	res, err := s.app.SubmitPhase(r.Context(), u.ID, req.Phase, req.Scores, replace)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeData(w, res)
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request, u user) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "use GET")
		return
	}
	view, err := s.app.GetPlan(r.Context(), u.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeData(w, view)
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request, u user) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "use GET")
		return
	}
	view, err := s.app.GetSuggestions(r.Context(), u.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeData(w, view)
}

type feedbackRequest struct {
	Narrative string `json:"narrative"`
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request, u user) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "use POST")
		return
	}
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	res, err := s.app.GenerateFeedback(r.Context(), u.ID, req.Narrative)
	if errors.Is(err, feedback.ErrNoNarrative) || errors.Is(err, feedback.ErrNoClaims) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeData(w, res)
}

func (s *Server) handleLastFeedback(w http.ResponseWriter, r *http.Request, u user) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "use GET")
		return
	}
	last, err := s.app.LastFeedback(r.Context(), u.ID)
	if errors.Is(err, plan.ErrNoInteraction) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeData(w, map[string]any{
		"feedback":       last.Feedback,
		"writing_scores": last.WritingScores,
		"shortcomings":   last.Shortcomings,
		"total_points":   last.TotalPoints,
		"merged_points":  last.MergedPoints,
		"created_at":     last.CreatedAt,
		"rating":         last.Rating,
	})
}

type rateRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (s *Server) handleRate(w http.ResponseWriter, r *http.Request, u user) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "use POST")
		return
	}
	var req rateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.app.RateFeedback(r.Context(), u.ID, req.Rating, req.Comment); err != nil {
		if errors.Is(err, plan.ErrNoInteraction) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeData(w, map[string]any{"rated": true})
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request, u user) {
	switch r.Method {
	case http.MethodGet:
		writeData(w, s.app.Catalog().Items())
	case http.MethodPost:
		if !u.Admin {
			writeError(w, http.StatusForbidden, "admin only")
			return
		}
		s.saveCatalog(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "use GET or POST")
	}
}

// saveCatalog validates the posted catalog document, writes it to disk,
// and reloads the in-memory catalog.
func (s *Server) saveCatalog(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	if _, err := catalog.Parse(raw); err != nil {
		writeError(w, http.StatusBadRequest, "invalid catalog: "+err.Error())
		return
	}
	if err := os.WriteFile(s.cfg.CatalogPath, raw, 0644); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to write catalog: "+err.Error())
		return
	}
	if err := s.app.ReloadCatalog(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	log.Printf("catalog updated: %d credits", s.app.Catalog().Len())
	writeData(w, map[string]any{"credits": s.app.Catalog().Len()})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request, u user) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "use GET")
		return
	}
	if !u.Admin {
		writeError(w, http.StatusForbidden, "admin only")
		return
	}
	usage, err := s.app.Metrics().GetDailyUsage(7)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeData(w, usage)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func writeData(w http.ResponseWriter, v any) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": v})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}
