package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/kavi0/sherpa/internal/api"
	"github.com/kavi0/sherpa/internal/app"
)

// runServe starts the HTTP API server.
func runServe() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	addr, err := parseServeAddr(os.Args[2:], cfg.ListenAddr())
	if err != nil {
		return fmt.Errorf("parsing address: %w", err)
	}

	logger := newLogger(cfg)
	logger.Info("starting HTTP API server", "version", Version, "environment", cfg.Env)

	return withApp(cfg, logger, func(ctx context.Context, a *app.App) error {
		server := api.NewServer(api.ServerConfig{
			Logger:      logger,
			Engine:      a.Engine,
			Indexer:     a.Indexer,
			Store:       a.Store,
			Environment: cfg.Env,
			AdminToken:  cfg.AdminToken,
			CORSOrigins: cfg.CORSOrigins,
			RateRPS:     cfg.RateLimit.RPS,
			RateBurst:   cfg.RateLimit.Burst,
			TrustProxy:  cfg.TrustProxy,
		})

		logger.Info("HTTP server ready",
			"addr", addr,
			"endpoints", "/query, /index/*",
			"health", "/health, /ready",
		)

		if err := server.Run(ctx, addr); err != nil {
			return fmt.Errorf("HTTP server: %w", err)
		}
		return nil
	})
}
