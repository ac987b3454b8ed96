package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/kavi0/sherpa/internal/fault"
	"github.com/kavi0/sherpa/internal/log"
	"github.com/kavi0/sherpa/internal/rag"
)

// ErrorResponse is the envelope every error path returns.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeJSON writes a JSON response. Encoding happens into a buffer first
// so a failed encode can still produce a clean 500 instead of a truncated
// body after the status line has gone out.
func writeJSON(w http.ResponseWriter, logger log.Logger, status int, data any) {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(data); err != nil {
		logger.Error("encoding response", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		// Client disconnects are common and expected.
		logger.Debug("writing response body", "error", err)
	}
}

// writeError writes the error envelope with a stable code and a
// human-readable message.
func writeError(w http.ResponseWriter, logger log.Logger, status int, code, message string) {
	writeJSON(w, logger, status, ErrorResponse{Error: code, Message: message})
}

// writeFailure translates a component error to HTTP in exactly one
// place: invalid input maps to 422, an empty corpus to 404, an
// uninitialized dependency to 503, and anything else to 500 with
// failPrefix prepended to the message.
func writeFailure(w http.ResponseWriter, logger log.Logger, err error, failPrefix string) {
	switch {
	case fault.IsKind(err, fault.KindValidation):
		writeError(w, logger, http.StatusUnprocessableEntity, "validation_failed", fault.MessageOf(err))
	case errors.Is(err, rag.ErrNoArticles):
		writeError(w, logger, http.StatusNotFound, "no_articles", "No articles loaded")
	case fault.IsKind(err, fault.KindConfig):
		writeError(w, logger, http.StatusServiceUnavailable, "not_initialized", fault.MessageOf(err))
	default:
		writeError(w, logger, http.StatusInternalServerError, "internal_error", failPrefix+": "+err.Error())
	}
}
