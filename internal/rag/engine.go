// Package rag implements retrieval-augmented generation over the
// article index: embed the question, retrieve the closest chunks, and
// answer with the model grounded on that context. The Indexer in this
// package owns the corpus lifecycle (populate and clear).
package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/kavi0/sherpa/internal/fault"
	"github.com/kavi0/sherpa/internal/log"
	"github.com/kavi0/sherpa/internal/vectorstore"
)

// systemPrompt frames the model as a help-center assistant and carries
// the retrieved context. The context placeholder is filled per request.
const systemPrompt = `You are a helpful customer support assistant for Typeform.
Your role is to answer questions about Typeform's Help Center articles accurately and concisely.

Use the following context from the Help Center to answer the user's question.
If the context doesn't contain enough information to answer the question, politely say so and suggest they contact support.

Always be friendly, professional, and helpful. If relevant, provide step-by-step instructions.

Context from Help Center:
%s
`

const userPrompt = `Question: %s

Please provide a helpful answer based on the context above.`

// Searcher is the part of the vector store the engine reads.
type Searcher interface {
	Search(ctx context.Context, vector []float32, opts ...vectorstore.SearchOption) ([]vectorstore.Document, error)
}

// Config holds generation settings for the engine.
type Config struct {
	// ModelName is the full genkit model name, e.g. "openai/gpt-4-turbo-preview".
	ModelName string

	// Temperature and MaxTokens are passed through to the model.
	Temperature float32
	MaxTokens   int

	// TopK is the retrieval depth used when a caller does not ask for a
	// specific one. Defaults to 3.
	TopK int

	// EmbedOptions is passed through on query embed requests. It must
	// match the options used at ingestion or query vectors land in a
	// different space than the stored chunks.
	EmbedOptions any
}

// Engine answers questions with retrieval-augmented generation.
type Engine struct {
	g        *genkit.Genkit
	store    Searcher
	embedder ai.Embedder
	logger   log.Logger
	cfg      Config
}

// Result is the outcome of one answered question.
type Result struct {
	Answer     string
	Query      string
	NumSources int
	Sources    []Source // nil unless sources were requested
}

// Source identifies one article an answer drew on.
type Source struct {
	Title string
	URL   string
	Score float32
}

// NewEngine creates an Engine over an initialized genkit instance.
func NewEngine(g *genkit.Genkit, store Searcher, embedder ai.Embedder, cfg Config, logger log.Logger) (*Engine, error) {
	if g == nil {
		return nil, fmt.Errorf("genkit instance is required")
	}
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("model name is required")
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 3
	}

	logger.Info("rag engine initialized",
		"model", cfg.ModelName,
		"temperature", cfg.Temperature,
		"max_tokens", cfg.MaxTokens,
		"top_k", cfg.TopK)

	return &Engine{
		g:        g,
		store:    store,
		embedder: embedder,
		logger:   logger,
		cfg:      cfg,
	}, nil
}

// Retrieve embeds the question and returns the closest stored chunks.
// A topK of zero or less falls back to the configured default.
func (e *Engine) Retrieve(ctx context.Context, question string, topK int) ([]vectorstore.Document, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fault.Validation("question must not be empty")
	}
	if topK <= 0 {
		topK = e.cfg.TopK
	}

	vector, err := e.embedQuestion(ctx, question)
	if err != nil {
		return nil, err
	}

	docs, err := e.store.Search(ctx, vector, vectorstore.WithTopK(topK))
	if err != nil {
		return nil, err
	}

	e.logger.Info("documents retrieved", "matches", len(docs), "top_k", topK)
	return docs, nil
}

// Generate answers the question from the given context documents. When
// includeSources is true the result carries the deduplicated article
// list the answer drew on. An empty document list still generates; the
// prompt then tells the model it has no context to work from.
func (e *Engine) Generate(ctx context.Context, question string, docs []vectorstore.Document, includeSources bool) (Result, error) {
	system := fmt.Sprintf(systemPrompt, formatContext(docs))
	user := fmt.Sprintf(userPrompt, question)

	resp, err := genkit.Generate(ctx, e.g,
		ai.WithModelName(e.cfg.ModelName),
		ai.WithSystem(system),
		ai.WithPrompt(user),
		ai.WithConfig(&ai.GenerationCommonConfig{
			Temperature:     float64(e.cfg.Temperature),
			MaxOutputTokens: e.cfg.MaxTokens,
		}),
	)
	if err != nil {
		return Result{}, fault.Wrap(fault.KindLLM, err, "generating answer")
	}

	result := Result{
		Answer:     resp.Text(),
		Query:      question,
		NumSources: len(docs),
	}
	if includeSources {
		result.Sources = extractSources(docs)
	}

	e.logger.Info("answer generated",
		"answer_length", len(result.Answer),
		"num_sources", result.NumSources)
	return result, nil
}

// Query runs the full pipeline for one question: retrieve context, then
// generate an answer from it.
func (e *Engine) Query(ctx context.Context, question string, topK int, includeSources bool) (Result, error) {
	docs, err := e.Retrieve(ctx, question, topK)
	if err != nil {
		return Result{}, err
	}
	return e.Generate(ctx, question, docs, includeSources)
}

func (e *Engine) embedQuestion(ctx context.Context, question string) ([]float32, error) {
	resp, err := e.embedder.Embed(ctx, &ai.EmbedRequest{
		Input:   []*ai.Document{ai.DocumentFromText(question, nil)},
		Options: e.cfg.EmbedOptions,
	})
	if err != nil {
		return nil, fault.Wrap(fault.KindEmbedding, err, "embedding question")
	}
	if len(resp.Embeddings) != 1 {
		return nil, fault.Embedding("embedder returned %d vectors for one question", len(resp.Embeddings))
	}
	return resp.Embeddings[0].Embedding, nil
}

// formatContext renders retrieved chunks as numbered source blocks for
// the system prompt.
func formatContext(docs []vectorstore.Document) string {
	parts := make([]string, 0, len(docs))
	for i, doc := range docs {
		parts = append(parts, fmt.Sprintf("[Source %d] %s\n%s\n", i+1, doc.Title, doc.Text))
	}
	return strings.Join(parts, "\n")
}

// extractSources deduplicates documents by URL, keeping the first (best
// scored) occurrence and skipping documents without a URL.
func extractSources(docs []vectorstore.Document) []Source {
	sources := make([]Source, 0, len(docs))
	seen := make(map[string]bool, len(docs))
	for _, doc := range docs {
		if doc.URL == "" || seen[doc.URL] {
			continue
		}
		seen[doc.URL] = true
		sources = append(sources, Source{Title: doc.Title, URL: doc.URL, Score: doc.Score})
	}
	return sources
}
