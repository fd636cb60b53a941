// Package server exposes the detection engine over HTTP.
//
//	POST /scan        multipart upload: file, entities, mode=lines
//	POST /scan/text   JSON: {"text", "entities", "mode", "language", "min_score"}
//	GET  /health      liveness plus statistical detector status
//	GET  /rules       active pattern rule labels
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/governable/piiscan/internal/engine"
	"github.com/governable/piiscan/internal/logger"
)

// DefaultMaxUploadBytes bounds request bodies when Config leaves it unset.
const DefaultMaxUploadBytes = 25 << 20

// Config holds server settings and per-request scan defaults.
type Config struct {
	Addr           string
	MaxUploadBytes int64
	// Entities is the statistical allowlist used when a request sends none.
	Entities []string
	Language string
	MinScore float64

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// HealthChecker checks that the statistical detector is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Server serves scan requests with a shared engine.
type Server struct {
	cfg    Config
	engine *engine.Engine
	health HealthChecker
	logger *logger.Logger
	router *mux.Router
	server *http.Server
}

// Option customizes a Server.
type Option func(*Server)

// WithHealthChecker reports the statistical detector's status on /health.
func WithHealthChecker(h HealthChecker) Option {
	return func(s *Server) { s.health = h }
}

// New creates a server around eng. A nil logger discards output.
func New(cfg Config, eng *engine.Engine, log *logger.Logger, opts ...Option) *Server {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 60 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 120 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 120 * time.Second
	}
	s := &Server{
		cfg:    cfg,
		engine: eng,
		logger: log.WithComponent("server"),
		router: mux.NewRouter(),
	}
	for _, o := range opts {
		o(s)
	}
	s.setupRoutes()
	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.loggingMiddleware)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/rules", s.handleRules).Methods(http.MethodGet)

	s.router.Handle("/scan", s.limitBodyMiddleware(http.HandlerFunc(s.handleScanFile))).Methods(http.MethodPost)
	s.router.Handle("/scan/text", s.limitBodyMiddleware(http.HandlerFunc(s.handleScanText))).Methods(http.MethodPost)
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Start serves until Stop is called. It returns http.ErrServerClosed after a
// clean shutdown.
func (s *Server) Start() error {
	s.logger.Info("starting piiscan server",
		zap.String("addr", s.cfg.Addr),
		zap.Int("rules", s.engine.Rules().Len()),
		zap.Bool("statistical", s.engine.Statistical()),
	)
	return s.server.ListenAndServe()
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping piiscan server")
	return s.server.Shutdown(ctx)
}
