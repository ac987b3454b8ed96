package api

import (
	"context"
	"net/http"

	"github.com/kavi0/sherpa/internal/log"
	"github.com/kavi0/sherpa/internal/rag"
	"github.com/kavi0/sherpa/internal/vectorstore"
)

// IndexManager mutates the article index. *rag.Indexer satisfies this.
type IndexManager interface {
	Populate(ctx context.Context) (rag.PopulateResult, error)
	Clear(ctx context.Context) error
}

// IndexReader reports index state for stats and readiness.
// *vectorstore.Store satisfies this.
type IndexReader interface {
	Initialized() bool
	Stats(ctx context.Context) (vectorstore.Stats, error)
}

type populateResponse struct {
	Message           string `json:"message"`
	ArticlesProcessed int    `json:"articles_processed"`
	ChunksCreated     int    `json:"chunks_created"`
	TotalUpserted     int    `json:"total_upserted"`
	Batches           int    `json:"batches"`
}

type statsResponse struct {
	TotalVectors  int64   `json:"total_vectors"`
	Dimension     int     `json:"dimension"`
	IndexFullness float64 `json:"index_fullness"`
}

type indexHandler struct {
	indexer IndexManager
	store   IndexReader
	logger  log.Logger
}

func (h *indexHandler) ready() bool {
	return h.store != nil && h.store.Initialized() && h.indexer != nil
}

// populate rebuilds the index from the configured article loader.
func (h *indexHandler) populate(w http.ResponseWriter, r *http.Request) {
	if !h.ready() {
		writeError(w, h.logger, http.StatusServiceUnavailable, "not_initialized", "Vector store not initialized")
		return
	}

	h.logger.Info("populating index", "request_id", requestIDFromContext(r.Context()))

	result, err := h.indexer.Populate(r.Context())
	if err != nil {
		h.logger.Error("index population failed",
			"error", err,
			"request_id", requestIDFromContext(r.Context()))
		writeFailure(w, h.logger, err, "Index population failed")
		return
	}

	writeJSON(w, h.logger, http.StatusCreated, populateResponse{
		Message:           "Index populated successfully",
		ArticlesProcessed: result.ArticlesProcessed,
		ChunksCreated:     result.ChunksCreated,
		TotalUpserted:     result.TotalUpserted,
		Batches:           result.Batches,
	})
}

func (h *indexHandler) stats(w http.ResponseWriter, r *http.Request) {
	if h.store == nil || !h.store.Initialized() {
		writeError(w, h.logger, http.StatusServiceUnavailable, "not_initialized", "Vector store not initialized")
		return
	}

	s, err := h.store.Stats(r.Context())
	if err != nil {
		h.logger.Error("stats lookup failed", "error", err)
		writeFailure(w, h.logger, err, "Failed to get index stats")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, statsResponse{
		TotalVectors:  s.TotalVectors,
		Dimension:     s.Dimension,
		IndexFullness: s.IndexFullness,
	})
}

// clear deletes every vector from the index.
func (h *indexHandler) clear(w http.ResponseWriter, r *http.Request) {
	if !h.ready() {
		writeError(w, h.logger, http.StatusServiceUnavailable, "not_initialized", "Vector store not initialized")
		return
	}

	if err := h.indexer.Clear(r.Context()); err != nil {
		h.logger.Error("index clear failed",
			"error", err,
			"request_id", requestIDFromContext(r.Context()))
		writeFailure(w, h.logger, err, "Failed to clear index")
		return
	}

	h.logger.Info("index cleared", "request_id", requestIDFromContext(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}
