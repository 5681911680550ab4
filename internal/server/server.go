// Package server exposes the query, aggregation, and realtime surfaces
// over HTTP for the conversational-agent consumer and the dashboard.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/convei-labs/fusion/internal/analytics"
	"github.com/convei-labs/fusion/internal/fanout"
	"github.com/convei-labs/fusion/internal/journal"
	"github.com/convei-labs/fusion/internal/state"
	"github.com/convei-labs/fusion/internal/store"
)

type Server struct {
	store  *store.Store
	engine *analytics.Engine
	states *fanout.Broadcaster
	frames *fanout.Broadcaster
	log    *zap.Logger
}

func New(s *store.Store, engine *analytics.Engine, states, frames *fanout.Broadcaster, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		store:  s,
		engine: engine,
		states: states,
		frames: frames,
		log:    log.Named("server"),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/metrics/current/{sessionID}", s.handleCurrent)
		r.Get("/metrics/range/{sessionID}", s.handleRange)
		r.Get("/metrics/aggregated/{sessionID}", s.handleAggregated)
		r.Get("/metrics/context/{sessionID}", s.handleContext)
		r.Get("/metrics/stats/{sessionID}", s.handleStats)
		r.Post("/sessions", s.handleCreateSession)
		r.Get("/status", s.handleStatus)
		r.Get("/journal", s.handleJournal)
		r.Get("/events", s.handleEvents)
		r.Get("/frames", s.handleFrames)
	})
	return r
}

// ListenAndServe runs the HTTP listener until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Fusion API - Behavioral Metrics Integration",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "fusion",
	})
}

// resolveSession maps the literal "current" (or empty) to the most
// recently active session.
func (s *Server) resolveSession(ctx context.Context, sessionID string) (string, error) {
	if sessionID != "current" && sessionID != "" {
		return sessionID, nil
	}
	return s.store.ResolveCurrentSession(ctx, time.Now())
}

func (s *Server) handleCurrent(w http.ResponseWriter, r *http.Request) {
	sessionID, err := s.resolveSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.internalError(w, "resolve session", err)
		return
	}
	if sessionID == "" {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "No metrics found"})
		return
	}
	m, err := s.store.GetLatest(r.Context(), sessionID)
	if err != nil {
		s.internalError(w, "get latest metric", err)
		return
	}
	if m == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "No metrics found for session"})
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleRange(w http.ResponseWriter, r *http.Request) {
	sessionID, err := s.resolveSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.internalError(w, "resolve session", err)
		return
	}
	now := float64(time.Now().UnixMilli()) / 1000.0
	start := queryFloat(r, "start", now-60)
	end := queryFloat(r, "end", now)

	metrics, err := s.store.GetRange(r.Context(), sessionID, start, end)
	if err != nil {
		s.internalError(w, "get metrics range", err)
		return
	}
	if metrics == nil {
		metrics = []store.UnifiedMetric{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"metrics": metrics,
		"count":   len(metrics),
	})
}

func (s *Server) handleAggregated(w http.ResponseWriter, r *http.Request) {
	sessionID, err := s.resolveSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.internalError(w, "resolve session", err)
		return
	}
	window := queryInt(r, "window", 60)

	if sessionID == "" {
		writeJSON(w, http.StatusOK, map[string]string{"message": "No metrics in time window"})
		return
	}
	agg, err := s.store.GetAggregated(r.Context(), sessionID, window, time.Now())
	if err != nil {
		s.internalError(w, "aggregate metrics", err)
		return
	}
	// Absence of data is meaningful, not an error.
	if agg.MetricCount == 0 {
		writeJSON(w, http.StatusOK, map[string]string{"message": "No metrics in time window"})
		return
	}
	writeJSON(w, http.StatusOK, agg)
}

func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	sessionID, err := s.resolveSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.internalError(w, "resolve session", err)
		return
	}
	window := queryInt(r, "window", 30)

	// A consumer asking about an unknown session still gets a well-formed
	// neutral context.
	result, err := s.engine.ContextForSession(r.Context(), sessionID, window, time.Now())
	if err != nil {
		s.internalError(w, "build context", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	sessionID, err := s.resolveSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.internalError(w, "resolve session", err)
		return
	}
	if sessionID == "" {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "No metrics found"})
		return
	}
	stats, err := s.store.GetSessionStats(r.Context(), sessionID)
	if err != nil {
		s.internalError(w, "compute session stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type createSessionRequest struct {
	SessionID string  `json:"session_id"`
	UserID    *string `json:"user_id,omitempty"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	// An empty body is fine, the query-param form carries the fields.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid request body"})
		return
	}
	// Query params supported for parity with older clients.
	if req.SessionID == "" {
		req.SessionID = r.URL.Query().Get("session_id")
	}
	if req.UserID == nil {
		if u := r.URL.Query().Get("user_id"); u != "" {
			req.UserID = &u
		}
	}
	if req.SessionID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "session_id is required"})
		return
	}

	startTime := float64(time.Now().UnixMilli()) / 1000.0
	created, err := s.store.CreateSession(r.Context(), req.SessionID, req.UserID, startTime)
	if err != nil {
		s.internalError(w, "create session", err)
		return
	}
	msg := "Session already exists"
	if created {
		msg = "Session created"
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message":    msg,
		"session_id": req.SessionID,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	db := s.store.DB()
	collectorState := map[string]string{}
	for _, key := range []string{"status", "mode", "last_heartbeat", "restart_count", "drop_count"} {
		if v, ok, err := state.Get(db, "collector", key); err == nil && ok {
			collectorState[key] = v
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"collector":         collectorState,
		"state_subscribers": s.states.SubscriberCount(),
		"frame_subscribers": s.frames.SubscriberCount(),
	})
}

func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	after := int64(queryInt(r, "after", 0))
	limit := queryInt(r, "limit", 100)
	events, err := journal.List(r.Context(), s.store.DB(), after, limit)
	if err != nil {
		s.internalError(w, "list journal events", err)
		return
	}
	if events == nil {
		events = []journal.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"events": events,
		"count":  len(events),
	})
}

func (s *Server) internalError(w http.ResponseWriter, op string, err error) {
	s.log.Error("request failed", zap.String("op", op), zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func queryFloat(r *http.Request, key string, def float64) float64 {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return v
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
