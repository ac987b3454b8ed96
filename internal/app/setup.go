package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"
	"github.com/jackc/pgx/v5/pgxpool"
	"google.golang.org/genai"

	"github.com/kavi0/sherpa/db"
	"github.com/kavi0/sherpa/internal/config"
	"github.com/kavi0/sherpa/internal/log"
	"github.com/kavi0/sherpa/internal/observability"
	"github.com/kavi0/sherpa/internal/pipeline"
	"github.com/kavi0/sherpa/internal/rag"
	"github.com/kavi0/sherpa/internal/vectorstore"
)

// Setup creates and initializes the application in dependency order.
// Returns an App with embedded cleanup; call Close() to release.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	if cfg == nil {
		return nil, config.ErrConfigNil
	}
	if logger == nil {
		logger = log.New(log.Config{})
	}

	a := &App{Config: cfg, Logger: logger}

	// On error, clean up everything already initialized.
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	// Tracing must be wired before genkit.Init so spans from model and
	// embedder calls reach the exporter.
	a.traceShutdown = observability.Setup(ctx, observability.Config{
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.Tracing.ServiceName,
		Environment: cfg.Env,
	}, logger)

	pool, err := providePool(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Pool = pool

	g, err := provideGenkit(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	embedder := provideEmbedder(g, cfg)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found for provider %q", cfg.EmbedderModel, cfg.Provider)
	}
	a.Embedder = embedder

	store, err := vectorstore.New(pool, vectorstore.Config{
		Dimension: cfg.EmbedderDimension,
		Capacity:  cfg.IndexCapacity,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("creating vector store: %w", err)
	}
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("initializing vector store: %w", err)
	}
	a.Store = store

	embedOptions := provideEmbedOptions(cfg)

	pl, err := pipeline.New(pipeline.Config{
		ChunkSize:    cfg.ChunkSize,
		ChunkOverlap: cfg.ChunkOverlap,
		EmbedOptions: embedOptions,
	}, embedder, logger)
	if err != nil {
		return nil, fmt.Errorf("creating ingestion pipeline: %w", err)
	}
	a.Pipeline = pl

	engine, err := rag.NewEngine(g, store, embedder, rag.Config{
		ModelName:    cfg.FullModelName(),
		Temperature:  cfg.Temperature,
		MaxTokens:    cfg.MaxTokens,
		TopK:         cfg.TopK,
		EmbedOptions: embedOptions,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("creating RAG engine: %w", err)
	}
	a.Engine = engine

	indexer, err := rag.NewIndexer(pl, store, rag.BuiltinLoader, "", logger)
	if err != nil {
		return nil, fmt.Errorf("creating indexer: %w", err)
	}
	a.Indexer = indexer

	logger.Info("application initialized",
		"provider", cfg.Provider,
		"model", cfg.FullModelName(),
		"embedder", cfg.EmbedderModel,
		"dimension", cfg.EmbedderDimension)

	return a, nil
}

// providePool runs migrations and creates the PostgreSQL connection
// pool with connection management defaults.
func providePool(ctx context.Context, cfg *config.Config, logger log.Logger) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	logger.Debug("database pool ready",
		"host", cfg.PostgresHost,
		"database", cfg.PostgresDBName)
	return pool, nil
}

// provideGenkit initializes Genkit with the configured AI provider.
// Supports openai (default), gemini, and ollama.
func provideGenkit(ctx context.Context, cfg *config.Config, logger log.Logger) (*genkit.Genkit, error) {
	var g *genkit.Genkit

	switch cfg.Provider {
	case config.ProviderOllama:
		ollamaPlugin := &ollama.Ollama{ServerAddress: cfg.OllamaHost}
		g = genkit.Init(ctx, genkit.WithPlugins(ollamaPlugin))
		if g == nil {
			return nil, errors.New("initializing genkit with ollama provider")
		}
		// Ollama requires explicit model registration (no auto-discovery)
		ollamaPlugin.DefineModel(g, ollama.ModelDefinition{
			Name: cfg.ModelName,
			Type: "chat",
		}, nil)
		ollamaPlugin.DefineEmbedder(g, cfg.OllamaHost, cfg.EmbedderModel, nil)
		logger.Info("initialized Genkit with ollama provider",
			"model", cfg.ModelName, "host", cfg.OllamaHost)

	case config.ProviderGemini:
		g = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with gemini provider")
		}
		logger.Info("initialized Genkit with gemini provider", "model", cfg.ModelName)

	default: // "openai"
		g = genkit.Init(ctx, genkit.WithPlugins(&openai.OpenAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with openai provider")
		}
		logger.Info("initialized Genkit with openai provider", "model", cfg.ModelName)
	}

	return g, nil
}

// provideEmbedOptions returns the provider-native options attached to
// every embed request. Gemini embedders default to their model-native
// dimensionality, so the request pins the configured one; openai and
// ollama take the dimension from the model itself.
func provideEmbedOptions(cfg *config.Config) any {
	if cfg.Provider == config.ProviderGemini {
		dim := int32(cfg.EmbedderDimension)
		return &genai.EmbedContentConfig{OutputDimensionality: &dim}
	}
	return nil
}

// provideEmbedder looks up the embedder registered by the AI provider
// plugin. Each provider registers embedders differently:
//   - openai: auto-registered in Init(), looked up by model name
//   - gemini: GoogleAIEmbedder(g, modelName)
//   - ollama: registered in provideGenkit, keyed by server address
func provideEmbedder(g *genkit.Genkit, cfg *config.Config) ai.Embedder {
	switch cfg.Provider {
	case config.ProviderOllama:
		return ollama.Embedder(g, cfg.OllamaHost)
	case config.ProviderGemini:
		return googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	default: // "openai"
		return genkit.LookupEmbedder(g, api.NewName("openai", cfg.EmbedderModel))
	}
}
