package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kavi0/sherpa/internal/fault"
)

// SearchArticlesInput is the input schema for the search_articles tool.
type SearchArticlesInput struct {
	Query string `json:"query" jsonschema:"the question or phrase to search for"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"number of chunks to return, 1 to 10 (default 3)"`
}

// AskSupportInput is the input schema for the ask_support tool.
type AskSupportInput struct {
	Question string `json:"question" jsonschema:"the support question to answer"`
	TopK     int    `json:"top_k,omitempty" jsonschema:"number of context chunks to retrieve, 1 to 10 (default 3)"`
}

type searchResult struct {
	ID    string  `json:"id"`
	Score float32 `json:"score"`
	Title string  `json:"title"`
	URL   string  `json:"url"`
	Text  string  `json:"text"`
}

type askResult struct {
	Answer     string      `json:"answer"`
	NumSources int         `json:"num_sources"`
	Sources    []askSource `json:"sources"`
}

type askSource struct {
	Title          string  `json:"title"`
	URL            string  `json:"url"`
	RelevanceScore float32 `json:"relevance_score"`
}

// SearchArticles handles the search_articles MCP tool call.
func (s *Server) SearchArticles(ctx context.Context, _ *mcp.CallToolRequest, in SearchArticlesInput) (*mcp.CallToolResult, any, error) {
	if in.TopK != 0 && (in.TopK < 1 || in.TopK > 10) {
		return errorResult(fault.Validation("top_k must be between 1 and 10")), nil, nil
	}

	docs, err := s.engine.Retrieve(ctx, in.Query, in.TopK)
	if err != nil {
		s.logger.Warn("search_articles failed", "error", err)
		return errorResult(err), nil, nil
	}

	results := make([]searchResult, len(docs))
	for i, d := range docs {
		results[i] = searchResult{
			ID:    d.ID,
			Score: d.Score,
			Title: d.Title,
			URL:   d.URL,
			Text:  d.Text,
		}
	}
	return jsonResult(results)
}

// AskSupport handles the ask_support MCP tool call.
func (s *Server) AskSupport(ctx context.Context, _ *mcp.CallToolRequest, in AskSupportInput) (*mcp.CallToolResult, any, error) {
	if in.TopK != 0 && (in.TopK < 1 || in.TopK > 10) {
		return errorResult(fault.Validation("top_k must be between 1 and 10")), nil, nil
	}

	res, err := s.engine.Query(ctx, in.Question, in.TopK, true)
	if err != nil {
		s.logger.Warn("ask_support failed", "error", err)
		return errorResult(err), nil, nil
	}

	out := askResult{
		Answer:     res.Answer,
		NumSources: res.NumSources,
		Sources:    make([]askSource, 0, len(res.Sources)),
	}
	for _, src := range res.Sources {
		out.Sources = append(out.Sources, askSource{
			Title:          src.Title,
			URL:            src.URL,
			RelevanceScore: src.Score,
		})
	}
	return jsonResult(out)
}

// jsonResult marshals v into a text content result. Marshal failures are
// protocol errors, not tool errors.
func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, nil, fmt.Errorf("encoding tool result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}

// errorResult reports a tool-level failure to the model. Only the fault
// kind and message go out; wrapped internals stay in the server logs.
func errorResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{
			Text: fmt.Sprintf("[%s] %s", fault.KindOf(err), fault.MessageOf(err)),
		}},
		IsError: true,
	}
}
