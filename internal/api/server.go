// Package api exposes the waste engine over HTTP/JSON.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/capermax-01/energy-waste-engine/internal/adaptive"
	"github.com/capermax-01/energy-waste-engine/internal/alerts"
	"github.com/capermax-01/energy-waste-engine/internal/cache"
	"github.com/capermax-01/energy-waste-engine/internal/engine"
	"github.com/capermax-01/energy-waste-engine/internal/ingest"
)

// Server wires the analysis pipeline behind the HTTP surface.
type Server struct {
	logger     *slog.Logger
	analyzer   *engine.Analyzer
	controller *adaptive.Controller
	reporter   *alerts.Reporter
	store      alerts.Store
	cache      cache.Provider
	reader     *ingest.Reader

	buildingID string
	reportTTL  time.Duration

	httpServer *http.Server
}

// Options collects the Server dependencies.
type Options struct {
	Logger     *slog.Logger
	Analyzer   *engine.Analyzer
	Controller *adaptive.Controller
	Reporter   *alerts.Reporter
	Store      alerts.Store
	Cache      cache.Provider
	BuildingID string
	ReportTTL  time.Duration
}

// NewServer validates dependencies and builds the route table.
func NewServer(addr string, opts Options) (*Server, error) {
	if opts.Analyzer == nil || opts.Controller == nil || opts.Reporter == nil || opts.Store == nil {
		return nil, fmt.Errorf("analyzer, controller, reporter, and store are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	provider := opts.Cache
	if provider == nil {
		provider = cache.NoopProvider{}
	}
	ttl := opts.ReportTTL
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}

	s := &Server{
		logger:     logger,
		analyzer:   opts.Analyzer,
		controller: opts.Controller,
		reporter:   opts.Reporter,
		store:      opts.Store,
		cache:      provider,
		reader:     ingest.NewReader(logger),
		buildingID: opts.BuildingID,
		reportTTL:  ttl,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/analyze", s.handleAnalyze)
	mux.HandleFunc("POST /api/v1/feedback", s.handleFeedback)
	mux.HandleFunc("GET /api/v1/alerts", s.handleListAlerts)
	mux.HandleFunc("GET /api/v1/alerts/{id}", s.handleGetAlert)
	mux.HandleFunc("PATCH /api/v1/alerts/{id}", s.handleUpdateAlert)
	mux.HandleFunc("GET /api/v1/recommendations", s.handleListRecommendations)
	mux.HandleFunc("POST /api/v1/recommendations/{id}/approve", s.handleApproveRecommendation)
	mux.HandleFunc("POST /api/v1/recommendations/{id}/complete", s.handleCompleteRecommendation)
	mux.HandleFunc("GET /api/v1/report", s.handleReport)
	mux.HandleFunc("GET /api/v1/learning", s.handleLearning)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	return s, nil
}

// Handler exposes the route table for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe blocks serving HTTP until the listener fails or Shutdown is
// called.
func (s *Server) ListenAndServe() error {
	s.logger.Info("http server listening", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
