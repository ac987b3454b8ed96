package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"unicode/utf8"

	"github.com/kavi0/sherpa/internal/log"
	"github.com/kavi0/sherpa/internal/rag"
)

// QueryEngine is the answer-generation surface the API serves.
// Interfaces are defined by the consumer, not the provider; *rag.Engine
// satisfies this through duck typing.
type QueryEngine interface {
	Query(ctx context.Context, question string, topK int, includeSources bool) (rag.Result, error)
}

const (
	// maxQuestionChars bounds the question length, counted in runes.
	maxQuestionChars = 1000

	// maxBodyBytes caps request bodies.
	maxBodyBytes = 1 << 20
)

type queryRequest struct {
	Question       string `json:"question"`
	TopK           *int   `json:"top_k"`
	IncludeSources *bool  `json:"include_sources"`
}

type queryResponse struct {
	Answer     string    `json:"answer"`
	Query      string    `json:"query"`
	NumSources int       `json:"num_sources"`
	Sources    *[]source `json:"sources,omitempty"`
}

// source is the wire shape of one deduplicated answer source.
type source struct {
	Title          string  `json:"title"`
	URL            string  `json:"url"`
	RelevanceScore float32 `json:"relevance_score"`
}

type queryHandler struct {
	engine QueryEngine
	logger log.Logger
}

// handleQuery runs the retrieve-and-generate path for one question.
func (h *queryHandler) handleQuery(w http.ResponseWriter, r *http.Request) {
	if h.engine == nil {
		writeError(w, h.logger, http.StatusServiceUnavailable, "not_initialized", "RAG engine not initialized")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, h.logger, http.StatusRequestEntityTooLarge, "body_too_large", "request body too large")
			return
		}
		writeError(w, h.logger, http.StatusUnprocessableEntity, "validation_failed", "invalid request body")
		return
	}

	if req.Question == "" {
		writeError(w, h.logger, http.StatusUnprocessableEntity, "validation_failed", "question must not be empty")
		return
	}
	if utf8.RuneCountInString(req.Question) > maxQuestionChars {
		writeError(w, h.logger, http.StatusUnprocessableEntity, "validation_failed", "question must be at most 1000 characters")
		return
	}

	topK := 0
	if req.TopK != nil {
		if *req.TopK < 1 || *req.TopK > 10 {
			writeError(w, h.logger, http.StatusUnprocessableEntity, "validation_failed", "top_k must be between 1 and 10")
			return
		}
		topK = *req.TopK
	}

	includeSources := true
	if req.IncludeSources != nil {
		includeSources = *req.IncludeSources
	}

	h.logger.Info("received query",
		"question", req.Question,
		"request_id", requestIDFromContext(r.Context()))

	res, err := h.engine.Query(r.Context(), req.Question, topK, includeSources)
	if err != nil {
		h.logger.Error("query failed",
			"error", err,
			"question", req.Question,
			"request_id", requestIDFromContext(r.Context()))
		writeFailure(w, h.logger, err, "Query processing failed")
		return
	}

	resp := queryResponse{
		Answer:     res.Answer,
		Query:      res.Query,
		NumSources: res.NumSources,
	}
	if res.Sources != nil {
		sources := make([]source, len(res.Sources))
		for i, s := range res.Sources {
			sources[i] = source{Title: s.Title, URL: s.URL, RelevanceScore: s.Score}
		}
		resp.Sources = &sources
	}

	writeJSON(w, h.logger, http.StatusOK, resp)
}
