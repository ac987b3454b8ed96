// Package api implements the JSON HTTP server for the support chatbot.
//
// Routes:
//
//	GET    /              service description
//	POST   /query         answer a support question
//	POST   /index/populate  rebuild the article index (admin)
//	GET    /index/stats   index statistics
//	DELETE /index/clear   delete every indexed vector (admin)
//	GET    /health        liveness probe
//	GET    /ready         readiness probe
//
// The server depends on three narrow interfaces (QueryEngine,
// IndexManager, IndexReader) rather than concrete engine types, so
// handlers are tested against in-memory fakes without a database or a
// model provider.
//
// Middleware stack, outermost first:
//
//	SecurityHeaders → Recovery → RequestID → [probes | Logging → Tracing → CORS → RateLimit → routes]
//
// Health probes sit on a top-level mux so orchestrator checks are never
// rate limited, while still getting request IDs and panic recovery.
//
// Errors use a flat envelope {"error": code, "message": text}. Domain
// failures are translated centrally in writeFailure: validation errors
// become 422, an empty article corpus becomes 404, uninitialized
// services become 503, and everything else is a 500.
//
// Admin endpoints compare the X-Admin-Token header against the
// configured token. An empty token leaves them open, which is the
// development default.
package api
