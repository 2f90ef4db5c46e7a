// Package gateway serves the feed pipeline over HTTP.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"ctxfeed/internal/config"
	"ctxfeed/internal/gateway/handlers"
	"ctxfeed/internal/gateway/metrics"
	"ctxfeed/internal/gateway/middleware"
	"ctxfeed/internal/models"
)

// Options wires the server's collaborators.
type Options struct {
	Config   config.GatewayConfig
	Version  string
	Registry *models.Registry
	Feeder   handlers.Feeder
	// Store is optional.
	Store        handlers.ContextSource
	DefaultModel string
	Metrics      *metrics.Metrics
	Logger       zerolog.Logger
}

// Server represents the HTTP gateway server.
type Server struct {
	httpServer *http.Server
	router     *mux.Router
	cfg        config.GatewayConfig
	log        zerolog.Logger
}

// NewServer builds the router. Routes:
//
//	GET  /api/v1/health
//	GET  /api/v1/models
//	GET  /api/v1/models/{id}
//	POST /api/v1/feed
//	GET  /metrics
func NewServer(opts Options) *Server {
	m := opts.Metrics
	if m == nil {
		m = metrics.New(false)
	}

	router := mux.NewRouter()
	router.Use(middleware.Recovery(opts.Logger), middleware.Logging(opts.Logger, m))

	feed := handlers.NewFeedHandler(opts.Feeder)
	feed.Observer = m
	feed.DefaultModel = opts.DefaultModel
	feed.MaxBodyBytes = opts.Config.MaxBodyBytes
	feed.Store = opts.Store

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Handle("/health", handlers.NewHealth(opts.Version, len(opts.Registry.IDs()), opts.Store != nil)).Methods(http.MethodGet)
	api.HandleFunc("/models", handlers.ListModels(opts.Registry)).Methods(http.MethodGet)
	api.HandleFunc("/models/{id}", handlers.GetModel(opts.Registry)).Methods(http.MethodGet)
	api.Handle("/feed", feed).Methods(http.MethodPost)
	router.Handle("/metrics", m.Handler()).Methods(http.MethodGet)

	return &Server{
		httpServer: &http.Server{
			Addr:              net.JoinHostPort(opts.Config.Host, fmt.Sprint(opts.Config.Port)),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       60 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		router: router,
		cfg:    opts.Config,
		log:    opts.Logger,
	}
}

// Router returns the underlying router.
func (s *Server) Router() *mux.Router {
	return s.router
}

// Addr is the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.log.Info().Str("addr", ln.Addr().String()).Msg("Starting gateway server")
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Start listens on the configured address and blocks until Shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down gateway server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
