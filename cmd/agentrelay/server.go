package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/BaSui01/agentrelay/config"
	"github.com/BaSui01/agentrelay/handoff"
	"github.com/BaSui01/agentrelay/internal/journal"
	"github.com/BaSui01/agentrelay/internal/metrics"
	"github.com/BaSui01/agentrelay/internal/server"
	"github.com/BaSui01/agentrelay/types"
)

// Server wires the configuration, registry, router, journal, and listeners
// together.
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	registry  *handoff.Registry
	router    *handoff.Router
	journal   *journal.Journal
	collector *metrics.Collector

	httpManager    *server.Manager
	metricsManager *server.Manager
}

// NewServer creates the service from its configuration.
func NewServer(cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{
		cfg:    cfg,
		logger: logger,
	}
}

// Start initializes all components and begins serving. The journal is
// optional: a missing Redis address runs the service with in-memory history
// only.
func (s *Server) Start() error {
	s.collector = metrics.NewCollector("agentrelay", s.logger)
	s.registry = s.cfg.Registry()

	routerOpts := []handoff.RouterOption{
		handoff.WithMetrics(s.collector),
		handoff.WithValidator(handoff.NewValidator(s.registry, s.logger,
			handoff.WithCompatibilityThreshold(s.cfg.Handoff.CompatibilityThreshold),
			handoff.WithSuggestionLimit(s.cfg.Handoff.SuggestionLimit),
			handoff.WithMinSuggestionScore(s.cfg.Handoff.MinSuggestionScore),
		)),
	}

	if s.cfg.Redis.Addr != "" {
		jcfg := journal.DefaultConfig()
		jcfg.Addr = s.cfg.Redis.Addr
		jcfg.Password = s.cfg.Redis.Password
		jcfg.DB = s.cfg.Redis.DB
		jcfg.PoolSize = s.cfg.Redis.PoolSize
		jcfg.MinIdleConns = s.cfg.Redis.MinIdleConns
		jcfg.RecordTTL = s.cfg.Redis.RecordTTL

		j, err := journal.New(jcfg, s.logger)
		if err != nil {
			return fmt.Errorf("failed to init journal: %w", err)
		}
		s.journal = j
		routerOpts = append(routerOpts, handoff.WithJournal(j))
	} else {
		s.logger.Info("journal disabled, handoff history is in-memory only")
	}

	s.router = handoff.NewRouter(s.registry, handoff.NewWorkflowState(), s.logger, routerOpts...)

	if err := s.startHTTPServer(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	if err := s.startMetricsServer(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	s.logger.Info("All servers started",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
		zap.Int("agents", s.registry.Len()),
		zap.Bool("journal_enabled", s.journal != nil),
	)

	return nil
}

func (s *Server) startHTTPServer() error {
	srvCfg := server.DefaultConfig()
	srvCfg.Addr = fmt.Sprintf(":%d", s.cfg.Server.HTTPPort)
	srvCfg.ReadTimeout = s.cfg.Server.ReadTimeout
	srvCfg.WriteTimeout = s.cfg.Server.WriteTimeout
	srvCfg.ShutdownTimeout = s.cfg.Server.ShutdownTimeout

	handler := Chain(s.routes(),
		Recovery(s.logger),
		RequestLogger(s.logger),
		Metrics(s.collector),
	)

	s.httpManager = server.NewManager(handler, srvCfg, s.logger)
	return s.httpManager.Start()
}

func (s *Server) startMetricsServer() error {
	srvCfg := server.DefaultConfig()
	srvCfg.Addr = fmt.Sprintf(":%d", s.cfg.Server.MetricsPort)
	srvCfg.ShutdownTimeout = s.cfg.Server.ShutdownTimeout

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /health", s.handleHealth)

	s.metricsManager = server.NewManager(mux, srvCfg, s.logger.With(zap.String("listener", "metrics")))
	return s.metricsManager.Start()
}

// routes builds the JSON API.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /v1/handoffs", s.handleCreateHandoff)
	mux.HandleFunc("GET /v1/handoffs/{id}", s.handleGetHandoff)
	mux.HandleFunc("POST /v1/queue/process", s.handleProcessQueue)
	mux.HandleFunc("GET /v1/suggestions", s.handleSuggestions)
	mux.HandleFunc("GET /v1/agents", s.handleListAgents)
	mux.HandleFunc("PUT /v1/agents/{name}/availability", s.handleSetAvailability)
	mux.HandleFunc("GET /v1/state", s.handleState)
	return mux
}

// WaitForShutdown blocks until a termination signal, then stops everything.
func (s *Server) WaitForShutdown() {
	s.httpManager.WaitForShutdown()
	s.Stop()
}

// Stop shuts down listeners and releases the journal.
func (s *Server) Stop() {
	ctx := context.Background()
	if s.metricsManager != nil {
		if err := s.metricsManager.Shutdown(ctx); err != nil {
			s.logger.Error("metrics server shutdown failed", zap.Error(err))
		}
	}
	if s.httpManager != nil {
		if err := s.httpManager.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown failed", zap.Error(err))
		}
	}
	if s.journal != nil {
		if err := s.journal.Close(); err != nil {
			s.logger.Error("journal close failed", zap.Error(err))
		}
	}
}

// ----------------------------------------------------------------------------
// Handlers
// ----------------------------------------------------------------------------

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": Version,
	})
}

// createHandoffRequest is the POST /v1/handoffs body.
type createHandoffRequest struct {
	FromAgent       string         `json:"from_agent"`
	ToAgent         string         `json:"to_agent"`
	TaskDescription string         `json:"task_description"`
	Payload         map[string]any `json:"payload"`
	Priority        string         `json:"priority"`
	Context         map[string]any `json:"context"`
}

// createHandoffResponse pairs the stored request with its validation result.
type createHandoffResponse struct {
	Request    *handoff.Request         `json:"request"`
	Validation handoff.ValidationResult `json:"validation"`
}

func (s *Server) handleCreateHandoff(w http.ResponseWriter, r *http.Request) {
	var body createHandoffRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, types.NewError(types.ErrInvalidRequest, "malformed JSON body").
			WithCause(err).WithHTTPStatus(http.StatusBadRequest))
		return
	}
	if body.FromAgent == "" || body.ToAgent == "" || body.TaskDescription == "" {
		writeError(w, types.NewError(types.ErrInvalidRequest,
			"from_agent, to_agent, and task_description are required").
			WithHTTPStatus(http.StatusBadRequest))
		return
	}

	opts := []handoff.RequestOption{}
	if body.Priority != "" {
		opts = append(opts, handoff.WithPriority(handoff.Priority(body.Priority)))
	}
	if len(body.Context) > 0 {
		opts = append(opts, handoff.WithContext(body.Context))
	}

	req := handoff.NewRequest(body.FromAgent, body.ToAgent, body.TaskDescription, body.Payload, opts...)

	result := s.router.Validate(req)
	if !result.Valid {
		writeJSON(w, http.StatusUnprocessableEntity, createHandoffResponse{Request: req, Validation: result})
		return
	}

	s.router.Enqueue(req)
	writeJSON(w, http.StatusAccepted, createHandoffResponse{Request: req, Validation: result})
}

func (s *Server) handleGetHandoff(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if s.journal != nil {
		req, err := s.journal.Get(r.Context(), id)
		if err == nil {
			writeJSON(w, http.StatusOK, req)
			return
		}
		if err != journal.ErrNotFound {
			writeError(w, types.NewError(types.ErrJournalUnavailable, "journal lookup failed").
				WithCause(err).WithRetryable(true).WithHTTPStatus(http.StatusServiceUnavailable))
			return
		}
	}

	for _, req := range s.router.History() {
		if req.ID == id {
			writeJSON(w, http.StatusOK, req)
			return
		}
	}

	writeError(w, types.NewError(types.ErrInvalidRequest, fmt.Sprintf("handoff %q not found", id)).
		WithHTTPStatus(http.StatusNotFound))
}

func (s *Server) handleProcessQueue(w http.ResponseWriter, r *http.Request) {
	batch := s.router.ProcessQueue(r.Context())

	completed := 0
	for _, req := range batch {
		if req.Status == handoff.StatusCompleted {
			completed++
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"processed": len(batch),
		"completed": completed,
		"failed":    len(batch) - completed,
		"requests":  batch,
	})
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	task := r.URL.Query().Get("task")
	if task == "" {
		writeError(w, types.NewError(types.ErrInvalidRequest, "query parameter 'task' is required").
			WithHTTPStatus(http.StatusBadRequest))
		return
	}

	var exclude []string
	if raw := r.URL.Query().Get("exclude"); raw != "" {
		for _, name := range strings.Split(raw, ",") {
			exclude = append(exclude, strings.TrimSpace(name))
		}
	}

	scores := s.router.SuggestAlternatives(task, exclude...)
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": scores})
}

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"agents": s.registry.All()})
}

func (s *Server) handleSetAvailability(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if !s.registry.Has(name) {
		writeError(w, types.NewError(types.ErrAgentNotFound, fmt.Sprintf("agent %q is not registered", name)).
			WithAgent(name).WithHTTPStatus(http.StatusNotFound))
		return
	}

	var body struct {
		Available bool `json:"available"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, types.NewError(types.ErrInvalidRequest, "malformed JSON body").
			WithCause(err).WithHTTPStatus(http.StatusBadRequest))
		return
	}

	s.router.SetAvailability(name, body.Available)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.router.Snapshot())
}

// ----------------------------------------------------------------------------
// JSON helpers
// ----------------------------------------------------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err *types.Error) {
	status := err.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, map[string]any{"error": err})
}
