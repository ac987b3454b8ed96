// Package app assembles the application: configuration, tracing, the
// database pool, Genkit with the configured model provider, the vector
// store, the ingestion pipeline, the RAG engine and the indexer.
//
// Setup builds everything in dependency order and returns an App whose
// Close releases resources in reverse. Entry points (HTTP server, MCP
// server, CLI commands) share this container instead of wiring
// components themselves.
package app

import (
	"context"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kavi0/sherpa/internal/config"
	"github.com/kavi0/sherpa/internal/log"
	"github.com/kavi0/sherpa/internal/pipeline"
	"github.com/kavi0/sherpa/internal/rag"
	"github.com/kavi0/sherpa/internal/vectorstore"
)

// App is the application container. Fields are populated by Setup.
type App struct {
	Config   *config.Config
	Logger   log.Logger
	Genkit   *genkit.Genkit
	Pool     *pgxpool.Pool
	Embedder ai.Embedder
	Store    *vectorstore.Store
	Pipeline *pipeline.Pipeline
	Engine   *rag.Engine
	Indexer  *rag.Indexer

	traceShutdown func(context.Context) error
}

// Close releases everything Setup acquired, in reverse order. Safe to
// call on a partially initialized App.
func (a *App) Close() error {
	if a.Logger != nil {
		a.Logger.Info("shutting down application")
	}

	if a.Pool != nil {
		a.Pool.Close()
	}

	if a.traceShutdown != nil {
		// Span flushing is best effort; Close still returns nil.
		if err := a.traceShutdown(context.Background()); err != nil && a.Logger != nil {
			a.Logger.Warn("flushing trace spans", "error", err)
		}
	}

	return nil
}
