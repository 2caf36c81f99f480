// Package api exposes the document store and question answering over HTTP.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"knowledgescout/internal/cache"
	"knowledgescout/internal/knowledge"
	"knowledgescout/internal/ratelimit"
)

const (
	serviceName = "KnowledgeScout"

	defaultShutdownTimeout = 10 * time.Second
	multipartOverhead      = 1 << 20 // headers and boundaries on top of the file itself
	maxAskBodySize         = 1 << 20 // 1MB
)

// Server is the KnowledgeScout HTTP API.
type Server struct {
	addr            string
	engine          *knowledge.Engine
	cache           *cache.ResponseCache
	limiter         *ratelimit.Limiter
	perClient       bool
	version         string
	team            string
	problem         int
	shutdownTimeout time.Duration
	logger          *slog.Logger

	handler http.Handler
	server  *http.Server
}

type ServerConfig struct {
	Host             string
	Port             int
	Engine           *knowledge.Engine
	Cache            *cache.ResponseCache // nil disables response caching
	Limiter          *ratelimit.Limiter   // nil disables rate limiting
	PerClient        bool                 // rate-limit by endpoint + client IP instead of endpoint only
	Version          string
	Team             string
	ProblemStatement int
	ShutdownTimeout  time.Duration // default: 10s
	Logger           *slog.Logger
}

func NewServer(cfg ServerConfig) *Server {
	if cfg.Cache == nil {
		cfg.Cache = cache.New(cache.Config{})
	}
	if cfg.Limiter == nil {
		cfg.Limiter = ratelimit.New(ratelimit.Config{})
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Server{
		addr:            fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		engine:          cfg.Engine,
		cache:           cfg.Cache,
		limiter:         cfg.Limiter,
		perClient:       cfg.PerClient,
		version:         cfg.Version,
		team:            cfg.Team,
		problem:         cfg.ProblemStatement,
		shutdownTimeout: cfg.ShutdownTimeout,
		logger:          cfg.Logger,
	}
	s.handler = s.withCORS(s.withRequestLog(s.routes()))
	return s
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/_meta", s.handleMeta)
	mux.HandleFunc("GET /.well-known/hackathon.json", s.handleHackathon)

	mux.HandleFunc("POST /upload/{$}", s.handleUpload)
	mux.HandleFunc("POST /upload", s.handleUpload)
	mux.HandleFunc("POST /api/docs", s.handleUpload)

	mux.HandleFunc("GET /documents/{$}", s.handleListDocuments)
	mux.HandleFunc("GET /documents", s.handleListDocuments)
	mux.HandleFunc("GET /api/docs", s.handleListDocuments)
	mux.HandleFunc("GET /api/docs/{id}", s.handleGetDocument)

	mux.HandleFunc("POST /ask/{$}", s.handleAsk)
	mux.HandleFunc("POST /ask", s.handleAsk)
	mux.HandleFunc("POST /api/ask", s.handleAsk)

	mux.HandleFunc("POST /api/index/rebuild", s.handleRebuild)
	mux.HandleFunc("GET /api/index/stats", s.handleStats)

	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("/", s.handleNotFound)
	return mux
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler { return s.handler }

// Addr returns the configured listen address.
func (s *Server) Addr() string { return s.addr }

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	s.logger.Info("API server started", "addr", "http://"+s.addr, "backend", s.engine.Backend(),
		"cooldown", s.limiter.Cooldown(), "cache_ttl", s.cache.TTL())

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("graceful shutdown timed out, closing connections", "err", err)
		s.Stop()
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

// Stop closes the listener and every open connection immediately.
func (s *Server) Stop() error {
	if s.server != nil {
		return s.server.Close()
	}
	return nil
}
