// Package server provides the HTTP API for CiteTalk.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/ayush1014/CiteTalk-voice-Backend/internal/config"
	"github.com/ayush1014/CiteTalk-voice-Backend/internal/history"
	"github.com/ayush1014/CiteTalk-voice-Backend/internal/models"
	"github.com/ayush1014/CiteTalk-voice-Backend/internal/vector"
	"github.com/ayush1014/CiteTalk-voice-Backend/pkg/utils"
)

const (
	serviceName           = "CiteTalk Voice Backend"
	defaultRequestTimeout = 60 * time.Second
	defaultHistoryLimit   = 50
)

// Chatter runs one conversation turn.
type Chatter interface {
	Run(ctx context.Context, query, sessionID string) (*models.ChatResult, error)
}

// Ingester stores documents in the knowledge base.
type Ingester interface {
	Ingest(ctx context.Context, docs []*models.DocumentInput) ([]string, error)
}

// Server is the HTTP server for the CiteTalk API.
type Server struct {
	chat    Chatter
	ingest  Ingester
	store   vector.Store
	history history.Store
	config  *config.Config
	version string
	logger  *zap.Logger
	server  *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithVersion sets the version reported by GET /.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// NewServer creates a server with the given dependencies. A nil history store disables
// persistence.
func NewServer(chat Chatter, ingest Ingester, store vector.Store, hist history.Store, cfg *config.Config, opts ...Option) *Server {
	s := &Server{
		chat:    chat,
		ingest:  ingest,
		store:   store,
		history: hist,
		config:  cfg,
		version: "dev",
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.history == nil {
		s.history = history.NopStore{}
	}
	s.logger = utils.OrNop(s.logger)
	return s
}

// Router builds the chi router with middleware and routes.
func (s *Server) Router() http.Handler {
	timeout := defaultRequestTimeout
	if s.config.Server.RequestTimeoutSeconds > 0 {
		timeout = time.Duration(s.config.Server.RequestTimeoutSeconds) * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))
	r.Use(middleware.Compress(5))
	r.Use(cors(s.config.Server.CORSOrigins))

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", s.handleChat)
		r.Post("/ingest", s.handleIngest)
		r.Get("/history/{session_id}", s.handleHistory)
		r.Post("/session/new", s.handleNewSession)
		r.Get("/status", s.handleStatus)
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
