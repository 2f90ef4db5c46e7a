// Package server wires configuration into the feed pipeline and the
// gateway. Both the CLI and the HTTP server build their components here.
package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"ctxfeed/internal/budget"
	"ctxfeed/internal/config"
	feedctx "ctxfeed/internal/context"
	"ctxfeed/internal/gateway"
	"ctxfeed/internal/gateway/metrics"
	"ctxfeed/internal/models"
	"ctxfeed/internal/storage"
)

// LoadRegistry returns the profiles named by cfg: the models file when set,
// otherwise the built-in set. The configured default model must exist.
func LoadRegistry(cfg *config.Config) (*models.Registry, error) {
	var (
		reg *models.Registry
		err error
	)
	if cfg.Models.File != "" {
		path, perr := config.ExpandPath(cfg.Models.File)
		if perr != nil {
			return nil, perr
		}
		reg, err = models.LoadFile(path)
	} else {
		reg, err = models.Default()
	}
	if err != nil {
		return nil, err
	}

	if cfg.Models.Default != "" && !reg.Has(cfg.Models.Default) {
		return nil, models.NewConfigurationError(cfg.Models.Default, "default model is not in the registry", nil)
	}
	return reg, nil
}

// FeederOptions maps configuration onto feeder options.
func FeederOptions(cfg *config.Config, log *zerolog.Logger) feedctx.Options {
	return feedctx.Options{
		Thresholds: budget.Thresholds{
			Warning:  cfg.Budget.WarningThreshold,
			Critical: cfg.Budget.CriticalThreshold,
		},
		Builder:    cfg.Builder,
		Relevance:  cfg.Relevance,
		Packer:     cfg.Packer,
		Compaction: cfg.Compaction,
		Logger:     log,
	}
}

// Feeder is what both the CLI and the gateway feed through.
type Feeder interface {
	Feed(req feedctx.Request) (*feedctx.FeedResult, error)
}

// NewFeeder builds a feeder from cfg. A configured output reservation
// applies to every request that does not set its own.
func NewFeeder(cfg *config.Config, reg *models.Registry, log *zerolog.Logger) Feeder {
	f := feedctx.NewFeeder(reg, FeederOptions(cfg, log))
	if override := cfg.Budget.ReservedOverride(); override != nil {
		return reservingFeeder{Feeder: f, reserved: *override}
	}
	return f
}

// Server is a running gateway with its store.
type Server struct {
	cfg     *config.Config
	log     zerolog.Logger
	gateway *gateway.Server
	db      *storage.DB
}

// New builds every component. The fixture store is opened only when
// storage.path is set.
func New(cfg *config.Config, version string, log zerolog.Logger) (*Server, error) {
	reg, err := LoadRegistry(cfg)
	if err != nil {
		return nil, err
	}

	s := &Server{cfg: cfg, log: log}
	opts := gateway.Options{
		Config:       cfg.Gateway,
		Version:      version,
		Registry:     reg,
		DefaultModel: cfg.Models.Default,
		Metrics:      metrics.New(true),
		Logger:       log.With().Str("component", "gateway").Logger(),
	}

	if cfg.Storage.Path != "" {
		db, err := storage.Open(cfg.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("open fixture store: %w", err)
		}
		s.db = db
		opts.Store = db
	}

	feedLog := log.With().Str("component", "feeder").Logger()
	opts.Feeder = NewFeeder(cfg, reg, &feedLog)

	s.gateway = gateway.NewServer(opts)
	return s, nil
}

// Gateway returns the HTTP server.
func (s *Server) Gateway() *gateway.Server { return s.gateway }

// Run serves until ctx is cancelled, then shuts down within a grace period.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.gateway.Start() }()

	select {
	case err := <-errCh:
		s.close()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := s.gateway.Shutdown(shutdownCtx)
	if serveErr := <-errCh; serveErr != nil {
		err = errors.Join(err, serveErr)
	}
	s.close()
	return err
}

func (s *Server) close() {
	if s.db == nil {
		return
	}
	if err := s.db.Close(); err != nil {
		s.log.Warn().Err(err).Msg("close fixture store")
	}
}

// reservingFeeder applies a default output reservation.
type reservingFeeder struct {
	*feedctx.Feeder
	reserved int
}

func (f reservingFeeder) Feed(req feedctx.Request) (*feedctx.FeedResult, error) {
	if req.ReservedForOutput == nil {
		v := f.reserved
		req.ReservedForOutput = &v
	}
	return f.Feeder.Feed(req)
}
