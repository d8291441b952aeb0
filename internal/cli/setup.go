package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/genc/internal/config"
	"github.com/roach88/genc/internal/engine"
	"github.com/roach88/genc/internal/models"
	"github.com/roach88/genc/internal/scripts"
)

// loadConfig loads the env file and the config named by the root flags.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	if opts.EnvFile != "" {
		if err := config.LoadEnv(opts.EnvFile); err != nil {
			return nil, err
		}
	}
	if opts.Config == "" {
		return config.Default(), nil
	}
	return config.Load(opts.Config)
}

// newLogger builds the slog handler selected by the config.
func newLogger(cfg *config.Config, verbose bool, w io.Writer) *slog.Logger {
	hopts := &slog.HandlerOptions{Level: cfg.SlogLevel(verbose)}
	if cfg.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, hopts))
	}
	return slog.New(slog.NewTextHandler(w, hopts))
}

// session is an engine built from config plus the resources it holds.
type session struct {
	engine    *engine.Engine
	models    *models.Registry
	functions *engine.Functions
	closers   []io.Closer
}

func (s *session) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			slog.Error("error closing resource", "error", err)
		}
	}
}

// newSession registers configured models and scripts and builds the engine.
func newSession(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*session, error) {
	s := &session{}

	var cache models.Cache
	if cfg.Cache.RedisURL != "" {
		ttl, err := cfg.CacheTTL()
		if err != nil {
			return nil, err
		}
		rc, err := models.NewRedisCache(ctx, cfg.Cache.RedisURL, ttl)
		if err != nil {
			return nil, fmt.Errorf("inference cache: %w", err)
		}
		s.closers = append(s.closers, rc)
		cache = rc
		logger.Info("inference cache enabled", "ttl", ttl)
	}

	reg := models.NewRegistry()
	for _, spec := range cfg.ModelSpecs() {
		b, err := models.NewBackend(ctx, spec)
		if err != nil {
			s.Close()
			return nil, err
		}
		if cache != nil {
			b = models.NewCachedBackend(spec.URI, b, cache, logger)
		}
		reg.Register(spec.URI, b)
		logger.Debug("model registered", "uri", spec.URI, "provider", spec.Provider)
	}

	fns := engine.NewFunctions()
	uris, err := scripts.Register(fns, cfg.Scripts.Dir)
	if err != nil {
		s.Close()
		return nil, err
	}
	if len(uris) > 0 {
		logger.Debug("scripts registered", "dir", cfg.Scripts.Dir, "count", len(uris))
	}

	s.engine = engine.New(
		engine.WithLogger(logger),
		engine.WithModels(reg),
		engine.WithFunctions(fns),
		engine.WithMaxParallelism(cfg.Executor.MaxParallelism),
		engine.WithMaxIterations(cfg.Executor.MaxIterations),
	)
	s.models, s.functions = reg, fns
	logger.Debug("engine ready", "models", reg.URIs(), "functions", fns.URIs())
	return s, nil
}
