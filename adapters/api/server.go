// Package api serves read-only statistics over HTTP
package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"surveygen/domain/core"
	"surveygen/domain/responsestats"
	"surveygen/internal"
	"surveygen/internal/errors"
	"surveygen/ports"
)

// Server exposes the collector snapshot, stored sessions and metrics
type Server struct {
	router     *chi.Mux
	stats      ports.StatsSnapshotter
	repository ports.StatsRepository
	gatherer   prometheus.Gatherer
	logger     *internal.Logger
	httpServer *http.Server
}

// NewServer wires the routes. repository and gatherer may be nil, which
// disables the session and metrics endpoints respectively
func NewServer(stats ports.StatsSnapshotter, repository ports.StatsRepository, gatherer prometheus.Gatherer, logger *internal.Logger) *Server {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	s := &Server{
		router:     chi.NewRouter(),
		stats:      stats,
		repository: repository,
		gatherer:   gatherer,
		logger:     logger.WithComponent("API"),
	}
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(30 * time.Second))
}

func (s *Server) setupRoutes() {
	s.router.Get("/api/health", s.handleHealth)
	s.router.Get("/api/stats", s.handleStats)
	s.router.Get("/api/stats/alpha", s.handleAlpha)
	s.router.Get("/api/stats/questions/{num}", s.handleQuestion)

	if s.repository != nil {
		s.router.Get("/api/sessions", s.handleListSessions)
		s.router.Get("/api/sessions/{id}", s.handleGetSession)
	}
	if s.gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
}

// Handler returns the router, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on addr until Shutdown is called. Returns nil at once when
// Shutdown already ran
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown is called
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("listening on %s", ln.Addr())
	if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully. Safe to call before Start
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

type alphaResponse struct {
	SessionID   core.SessionID `json:"session_id"`
	Alpha       float64        `json:"alpha"`
	Available   bool           `json:"available"`
	Approximate bool           `json:"approximate"`
}

type optionView struct {
	Index      int     `json:"index"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

type questionView struct {
	*responsestats.QuestionStats
	Breakdown []optionView `json:"breakdown"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := s.stats.CurrentStats()
	if stats == nil {
		s.writeError(w, errors.NotFound("collection session"))
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleAlpha(w http.ResponseWriter, r *http.Request) {
	stats := s.stats.CurrentStats()
	if stats == nil {
		s.writeError(w, errors.NotFound("collection session"))
		return
	}
	alpha, ok := stats.ApproximateAlpha()
	writeJSON(w, http.StatusOK, alphaResponse{
		SessionID:   stats.SessionID,
		Alpha:       alpha,
		Available:   ok,
		Approximate: true,
	})
}

func (s *Server) handleQuestion(w http.ResponseWriter, r *http.Request) {
	num, err := strconv.Atoi(chi.URLParam(r, "num"))
	if err != nil {
		s.writeError(w, errors.InvalidInput("question number must be an integer"))
		return
	}
	stats := s.stats.CurrentStats()
	if stats == nil {
		s.writeError(w, errors.NotFound("collection session"))
		return
	}
	q, ok := stats.Questions[num]
	if !ok {
		s.writeError(w, errors.NotFound("question "+strconv.Itoa(num)))
		return
	}

	view := questionView{QuestionStats: q}
	indices := make([]int, 0, len(q.Options))
	for idx := range q.Options {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	for _, idx := range indices {
		view.Breakdown = append(view.Breakdown, optionView{
			Index:      idx,
			Count:      q.Options[idx].Count,
			Percentage: q.OptionPercentage(idx),
		})
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeError(w, errors.InvalidInput("limit must be a non-negative integer"))
			return
		}
		limit = n
	}
	sessions, err := s.repository.List(r.Context(), r.URL.Query().Get("url"), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if sessions == nil {
		sessions = []*responsestats.SurveyStats{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	stats, err := s.repository.Load(r.Context(), core.SessionID(chi.URLParam(r, "id")))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch errors.GetCode(err) {
	case errors.CodeNotFound:
		status = http.StatusNotFound
	case errors.CodeInvalidInput:
		status = http.StatusBadRequest
	default:
		s.logger.Error("request failed: %v", err)
	}
	writeJSON(w, status, map[string]string{
		"error": err.Error(),
		"code":  errors.GetCode(err),
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
