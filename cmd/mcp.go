package cmd

import (
	"context"
	"fmt"

	mcpSdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kavi0/sherpa/internal/app"
	"github.com/kavi0/sherpa/internal/mcp"
)

// runMCP serves the Model Context Protocol over stdio. Logging stays on
// stderr; stdout carries the JSON-RPC stream.
func runMCP() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := newLogger(cfg)

	return withApp(cfg, logger, func(ctx context.Context, a *app.App) error {
		server, err := mcp.NewServer(mcp.Config{Name: "sherpa", Version: Version}, a.Engine, logger)
		if err != nil {
			return fmt.Errorf("creating MCP server: %w", err)
		}

		logger.Info("MCP server listening", "name", "sherpa", "version", Version, "transport", "stdio")

		if err := server.Run(ctx, &mcpSdk.StdioTransport{}); err != nil {
			return fmt.Errorf("serving MCP: %w", err)
		}
		return nil
	})
}
