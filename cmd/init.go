package cmd

import (
	"context"
	"fmt"

	"github.com/kavi0/sherpa/internal/app"
)

// runInit creates the vector index and populates it with the bundled
// help-center articles. Safe to run repeatedly: migrations and index
// creation are idempotent and upserts overwrite by chunk ID.
func runInit() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := newLogger(cfg)
	logger.Info("initializing index",
		"version", Version,
		"dimension", cfg.EmbedderDimension,
		"embedder", cfg.EmbedderModel)

	return withApp(cfg, logger, func(ctx context.Context, a *app.App) error {
		result, err := a.Indexer.Populate(ctx)
		if err != nil {
			return fmt.Errorf("populating index: %w", err)
		}
		fmt.Printf("Indexed %d articles: %d chunks, %d vectors upserted in %d batches\n",
			result.ArticlesProcessed, result.ChunksCreated, result.TotalUpserted, result.Batches)

		stats, err := a.Store.Stats(ctx)
		if err != nil {
			logger.Warn("reading index stats", "error", err)
			return nil
		}
		fmt.Printf("Index now holds %d vectors (dimension %d, %.1f%% full)\n",
			stats.TotalVectors, stats.Dimension, stats.IndexFullness*100)
		return nil
	})
}
