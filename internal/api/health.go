package api

import (
	"net/http"

	"github.com/kavi0/sherpa/internal/log"
)

type rootResponse struct {
	Service     string            `json:"service"`
	Version     string            `json:"version"`
	Description string            `json:"description"`
	Endpoints   map[string]string `json:"endpoints"`
}

type healthResponse struct {
	Status                 string `json:"status"`
	Environment            string `json:"environment"`
	VectorStoreInitialized bool   `json:"vector_store_initialized"`
	RAGEngineInitialized   bool   `json:"rag_engine_initialized"`
}

type readyResponse struct {
	Status       string `json:"status"`
	TotalVectors int64  `json:"total_vectors"`
}

type notReadyResponse struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

type healthHandler struct {
	engine      QueryEngine
	store       IndexReader
	environment string
	logger      log.Logger
}

// root describes the service for anyone poking at the base URL.
func (h *healthHandler) root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, rootResponse{
		Service:     "sherpa",
		Version:     apiVersion,
		Description: "Retrieval-augmented support assistant for the Typeform Help Center",
		Endpoints: map[string]string{
			"POST /query":          "ask a support question",
			"POST /index/populate": "index the article corpus (admin)",
			"GET /index/stats":     "index statistics",
			"DELETE /index/clear":  "delete every indexed vector (admin)",
			"GET /health":          "liveness probe",
			"GET /ready":           "readiness probe",
		},
	})
}

// health is the liveness probe. It always reports 200 so orchestrators
// only restart the process when it stops serving at all.
func (h *healthHandler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, healthResponse{
		Status:                 "healthy",
		Environment:            h.environment,
		VectorStoreInitialized: h.store != nil && h.store.Initialized(),
		RAGEngineInitialized:   h.engine != nil,
	})
}

// ready is the readiness probe. It confirms the vector store answers
// queries before traffic is routed here.
func (h *healthHandler) ready(w http.ResponseWriter, r *http.Request) {
	if h.engine == nil || h.store == nil || !h.store.Initialized() {
		writeJSON(w, h.logger, http.StatusServiceUnavailable, notReadyResponse{
			Status: "not ready",
			Reason: "Services not initialized",
		})
		return
	}

	stats, err := h.store.Stats(r.Context())
	if err != nil {
		h.logger.Error("readiness check failed", "error", err)
		writeJSON(w, h.logger, http.StatusServiceUnavailable, notReadyResponse{
			Status: "not ready",
			Reason: "Vector store not ready",
		})
		return
	}

	writeJSON(w, h.logger, http.StatusOK, readyResponse{
		Status:       "ready",
		TotalVectors: stats.TotalVectors,
	})
}
