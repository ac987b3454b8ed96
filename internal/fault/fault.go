// Package fault defines the error taxonomy shared by the ingestion
// pipeline, the vector store, the RAG engine, and the HTTP layer.
//
// Every failure crossing a package boundary is wrapped in an *Error
// carrying a Kind. Callers branch on the kind with KindOf or errors.As
// instead of matching message strings, and the HTTP layer maps kinds to
// status codes in exactly one place.
package fault

import (
	"errors"
	"fmt"
)

// Kind classifies an error by the subsystem and failure mode it
// originated from.
type Kind int

const (
	// KindUnknown is the zero value. Errors without a kind map to it.
	KindUnknown Kind = iota

	// KindConfig marks missing or invalid configuration, including
	// components used before initialization.
	KindConfig

	// KindIngestion marks failures while loading, fetching, or chunking
	// articles.
	KindIngestion

	// KindEmbedding marks failures from the embedding model.
	KindEmbedding

	// KindLLM marks failures from the generation model.
	KindLLM

	// KindStore marks vector store failures (connection, query, upsert).
	KindStore

	// KindValidation marks invalid caller input.
	KindValidation
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindIngestion:
		return "ingestion"
	case KindEmbedding:
		return "embedding"
	case KindLLM:
		return "llm"
	case KindStore:
		return "store"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// Error is the single error type produced by this package. Message is
// safe to return to API clients; Err holds the underlying cause and is
// reachable through errors.Unwrap.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// New returns an *Error with the given kind and formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns an *Error with the given kind and message wrapping err.
// A nil err returns nil so call sites can wrap unconditionally.
func Wrap(kind Kind, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// Config returns a KindConfig error.
func Config(format string, args ...any) *Error {
	return New(KindConfig, format, args...)
}

// Ingestion returns a KindIngestion error.
func Ingestion(format string, args ...any) *Error {
	return New(KindIngestion, format, args...)
}

// Embedding returns a KindEmbedding error.
func Embedding(format string, args ...any) *Error {
	return New(KindEmbedding, format, args...)
}

// LLM returns a KindLLM error.
func LLM(format string, args ...any) *Error {
	return New(KindLLM, format, args...)
}

// Store returns a KindStore error.
func Store(format string, args ...any) *Error {
	return New(KindStore, format, args...)
}

// Validation returns a KindValidation error.
func Validation(format string, args ...any) *Error {
	return New(KindValidation, format, args...)
}

// KindOf returns the kind of the outermost *Error in err's chain, or
// KindUnknown when the chain contains none.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// IsKind reports whether err's chain contains an *Error of the given
// kind.
func IsKind(err error, kind Kind) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind == kind
	}
	return false
}

// MessageOf returns the client-safe message of the outermost *Error in
// err's chain. For errors without a kind it falls back to err.Error().
func MessageOf(err error) string {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
