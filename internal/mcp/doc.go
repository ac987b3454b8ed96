// Package mcp implements a Model Context Protocol (MCP) server over the
// support-chatbot engine.
//
// The server exposes the article index to MCP clients (Claude Desktop,
// Cursor, Genkit CLI and anything else speaking the protocol), so an
// external assistant can ground its answers on the same Help Center
// corpus the HTTP API serves.
//
// # Tools
//
//   - search_articles: semantic search over the indexed chunks. Returns
//     a JSON array of documents with id, score, title, url and text.
//   - ask_support: full retrieval-augmented answering. Returns JSON with
//     the answer, the number of context chunks used, and the
//     deduplicated source articles.
//
// # Error Handling
//
// Tool handlers distinguish two failure classes, following the SDK's
// convention:
//
//   - Tool errors (invalid input, retrieval or generation failures) are
//     returned as a successful call with IsError=true and a short
//     "[kind] message" text, so the model can react to them.
//   - Protocol errors (result encoding failures) propagate as Go errors
//     and surface as JSON-RPC errors.
//
// Wrapped error causes never leave the process; clients see only the
// fault kind and its message.
//
// # Transport
//
// Run accepts any mcp.Transport. The sherpa mcp command uses stdio,
// which is what desktop MCP clients spawn. Tests connect through
// mcp.NewInMemoryTransports.
package mcp
