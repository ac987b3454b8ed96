package mcp

import (
	"context"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kavi0/sherpa/internal/log"
	"github.com/kavi0/sherpa/internal/rag"
	"github.com/kavi0/sherpa/internal/vectorstore"
)

// Engine is the answering surface the MCP tools expose. Interfaces are
// defined by the consumer; *rag.Engine satisfies this.
type Engine interface {
	Retrieve(ctx context.Context, question string, topK int) ([]vectorstore.Document, error)
	Query(ctx context.Context, question string, topK int, includeSources bool) (rag.Result, error)
}

// Config holds MCP server identity.
type Config struct {
	Name    string
	Version string
}

// Server wraps the MCP SDK server around the RAG engine.
type Server struct {
	mcpServer *mcp.Server
	engine    Engine
	logger    log.Logger
}

// NewServer creates an MCP server and registers the support tools.
func NewServer(cfg Config, engine Engine, logger log.Logger) (*Server, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("server name is required")
	}
	if cfg.Version == "" {
		return nil, fmt.Errorf("server version is required")
	}
	if engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	s := &Server{
		mcpServer: mcp.NewServer(&mcp.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		}, nil),
		engine: engine,
		logger: logger,
	}

	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("registering tools: %w", err)
	}

	return s, nil
}

// Run serves the MCP protocol on the given transport. Blocks until the
// transport closes or ctx is canceled.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	s.logger.Info("MCP server running")
	return s.mcpServer.Run(ctx, transport)
}

// registerTools registers search_articles and ask_support.
func (s *Server) registerTools() error {
	searchSchema, err := jsonschema.For[SearchArticlesInput](nil)
	if err != nil {
		return fmt.Errorf("schema for search_articles: %w", err)
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: "search_articles",
		Description: "Search the indexed Typeform Help Center articles using semantic similarity. " +
			"Returns the closest article chunks as JSON with id, score, title, url and text.",
		InputSchema: searchSchema,
	}, s.SearchArticles)

	askSchema, err := jsonschema.For[AskSupportInput](nil)
	if err != nil {
		return fmt.Errorf("schema for ask_support: %w", err)
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: "ask_support",
		Description: "Answer a Typeform support question with retrieval-augmented generation " +
			"over the Help Center index. Returns JSON with the answer and its source articles.",
		InputSchema: askSchema,
	}, s.AskSupport)

	return nil
}
