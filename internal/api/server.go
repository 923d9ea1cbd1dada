// internal/api/server.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/user/tradeagent/internal/agent"
	"github.com/user/tradeagent/internal/news"
	"github.com/user/tradeagent/internal/policy"
	"github.com/user/tradeagent/internal/tools"
	"github.com/user/tradeagent/internal/types"
)

// Server exposes the agent over HTTP. All endpoints are JSON; session
// ids are opaque path segments.
type Server struct {
	agent     *agent.Agent
	toolCtx   *tools.Context
	artifacts types.ArtifactStore
	gate      *policy.Gate
	memory    types.MemoryStore
	newsCache *news.Cache
	router    *chi.Mux
	logger    *slog.Logger
	httpSrv   *http.Server
}

// New builds the server. toolCtx carries the clients handed to tool
// handlers on dispatch; gate, memory, and newsCache back the trade
// entry endpoint and may be nil when policy review is not deployed.
func New(a *agent.Agent, toolCtx *tools.Context, artifacts types.ArtifactStore, gate *policy.Gate, memory types.MemoryStore, newsCache *news.Cache, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		agent:     a,
		toolCtx:   toolCtx,
		artifacts: artifacts,
		gate:      gate,
		memory:    memory,
		newsCache: newsCache,
		logger:    logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/sessions", s.handleListSessions)
		r.Post("/sessions", s.handleCreateSession)
		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Post("/messages", s.handleMessage)
			r.Get("/events", s.handleEvents)
			r.Get("/pending", s.handlePending)
			r.Post("/approve", s.handleApprove)
			r.Post("/dispatch", s.handleDispatch)
			r.Get("/chart", s.handleChart)
		})
		r.Get("/artifacts/{artifactID}", s.handleArtifact)
		r.Post("/policy/entry", s.handlePolicyEntry)
	})

	s.router = r
	return s
}

// Start serves HTTP on addr until the context is canceled.
func (s *Server) Start(ctx context.Context, addr string) error {
	s.httpSrv = &http.Server{Addr: addr, Handler: s.router}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpSrv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api listening", "addr", addr)
	err := s.httpSrv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Handler returns the underlying router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.agent.Sessions(r.Context(), 100)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if sessions == nil {
		sessions = []types.SessionSummary{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sessionID := types.NewSessionID()
	if err := s.agent.EnsureSession(r.Context(), sessionID); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"session_id": string(sessionID)})
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := types.SessionID(chi.URLParam(r, "sessionID"))

	var body struct {
		Text    string         `json:"text"`
		Context map[string]any `json:"context"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if body.Text == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("text is required"))
		return
	}

	result, err := s.agent.UserMessage(r.Context(), sessionID, body.Text, body.Context)
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	sessionID := types.SessionID(chi.URLParam(r, "sessionID"))
	events, err := s.agent.Events(r.Context(), sessionID, 0)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if events == nil {
		events = []types.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	sessionID := types.SessionID(chi.URLParam(r, "sessionID"))
	pending, err := s.agent.PendingToolCalls(r.Context(), sessionID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	out := make([]types.ToolCallProposed, 0, len(pending))
	for _, tc := range pending {
		out = append(out, *tc.Proposal)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	sessionID := types.SessionID(chi.URLParam(r, "sessionID"))

	var body struct {
		CallID string `json:"call_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if body.CallID == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("call_id is required"))
		return
	}

	if err := s.agent.Approve(r.Context(), sessionID, body.CallID); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "approved", "call_id": body.CallID})
}

func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	sessionID := types.SessionID(chi.URLParam(r, "sessionID"))

	outcomes, err := s.agent.RunApproved(r.Context(), sessionID, s.toolCtx)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if outcomes == nil {
		outcomes = []agent.Outcome{}
	}
	writeJSON(w, http.StatusOK, outcomes)
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	sessionID := types.SessionID(chi.URLParam(r, "sessionID"))

	artifact, err := s.agent.LatestChart(r.Context(), sessionID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if artifact == nil {
		s.writeError(w, http.StatusNotFound, errors.New("no chart for session"))
		return
	}
	writeJSON(w, http.StatusOK, artifact)
}

func (s *Server) handleArtifact(w http.ResponseWriter, r *http.Request) {
	artifactID := types.ArtifactID(chi.URLParam(r, "artifactID"))

	artifact, err := s.artifacts.Load(r.Context(), artifactID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if artifact == nil {
		s.writeError(w, http.StatusNotFound, errors.New("artifact not found"))
		return
	}
	writeJSON(w, http.StatusOK, artifact)
}

// handlePolicyEntry reviews a proposed trade entry. The caller sends
// pair, side, timeframe, and its already computed indicators; news
// summaries and memory hits are filled in server-side.
func (s *Server) handlePolicyEntry(w http.ResponseWriter, r *http.Request) {
	if s.gate == nil {
		s.writeError(w, http.StatusNotFound, errors.New("policy gate not configured"))
		return
	}

	var body struct {
		Pair       string         `json:"pair"`
		Side       string         `json:"side"`
		Timeframe  string         `json:"timeframe"`
		Indicators map[string]any `json:"indicators"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if body.Pair == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("pair is required"))
		return
	}

	req := &policy.EntryRequest{
		Pair:       body.Pair,
		Side:       body.Side,
		Timeframe:  body.Timeframe,
		Indicators: body.Indicators,
	}
	if s.newsCache != nil {
		req.News = s.newsCache.Latest()
	}
	if s.memory != nil {
		hits, err := s.memory.Search(r.Context(), body.Pair, body.Pair, 3)
		if err != nil {
			s.logger.Warn("memory search failed", "pair", body.Pair, "error", err)
		} else {
			req.MemoryHits = hits
		}
	}

	writeJSON(w, http.StatusOK, s.gate.DecideEntry(r.Context(), req))
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	if status >= 500 {
		s.logger.Error("api error", "status", status, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
