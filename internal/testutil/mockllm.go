package testutil

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"strings"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// MockLLM provides deterministic chat responses for testing. It matches
// the last user message against registered patterns and returns the
// paired response, recording every call for assertions.
//
// Safe for concurrent use.
type MockLLM struct {
	mu       sync.Mutex
	rules    []mockRule
	fallback string
	err      error
	calls    []ModelCall
}

type mockRule struct {
	pattern  string // lowercased substring to look for in the user message
	response string
}

// ModelCall records a single call to the mock model.
type ModelCall struct {
	System      string // system prompt text, if any
	UserMessage string // last user message text
	Response    string // text returned
}

// NewMockLLM creates a mock LLM with the given fallback response. The
// fallback is returned when no pattern matches.
func NewMockLLM(fallback string) *MockLLM {
	return &MockLLM{fallback: fallback}
}

// AddResponse registers a pattern-response pair. When a user message
// contains the pattern (case-insensitive), the response is returned.
// Earlier registrations take precedence when several patterns match.
func (m *MockLLM) AddResponse(pattern, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, mockRule{pattern: strings.ToLower(pattern), response: response})
}

// SetError makes every subsequent generate call fail with err.
func (m *MockLLM) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns a snapshot of every recorded call.
func (m *MockLLM) Calls() []ModelCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]ModelCall, len(m.calls))
	copy(cp, m.calls)
	return cp
}

// LastCall returns the most recent call, or a zero value when none
// happened.
func (m *MockLLM) LastCall() ModelCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return ModelCall{}
	}
	return m.calls[len(m.calls)-1]
}

// Reset clears all recorded calls and any injected error, keeping the
// registered responses.
func (m *MockLLM) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.err = nil
}

// RegisterModel registers the mock as a Genkit model named
// "mock/test-model" and returns a reference.
func (m *MockLLM) RegisterModel(g *genkit.Genkit) ai.Model {
	return genkit.DefineModel(g, "mock/test-model", &ai.ModelOptions{
		Label: "Sherpa Mock Model",
		Supports: &ai.ModelSupports{
			Multiturn:  true,
			SystemRole: true,
		},
	}, m.generate)
}

// splitPrompt pulls the first system prompt and the last user message
// out of a conversation.
func splitPrompt(msgs []*ai.Message) (system, user string) {
	for _, msg := range msgs {
		switch msg.Role {
		case ai.RoleSystem:
			if system == "" {
				system = msg.Text()
			}
		case ai.RoleUser:
			user = msg.Text()
		}
	}
	return system, user
}

func (m *MockLLM) generate(ctx context.Context, req *ai.ModelRequest, cb ai.ModelStreamCallback) (*ai.ModelResponse, error) {
	system, user := splitPrompt(req.Messages)

	m.mu.Lock()
	if err := m.err; err != nil {
		m.mu.Unlock()
		return nil, err
	}

	text := m.fallback
	lower := strings.ToLower(user)
	for _, rule := range m.rules {
		if strings.Contains(lower, rule.pattern) {
			text = rule.response
			break
		}
	}

	m.calls = append(m.calls, ModelCall{System: system, UserMessage: user, Response: text})
	m.mu.Unlock()

	if cb != nil {
		chunk := &ai.ModelResponseChunk{Content: []*ai.Part{ai.NewTextPart(text)}}
		_ = cb(ctx, chunk)
	}

	return &ai.ModelResponse{
		Request: req,
		Message: &ai.Message{
			Role:    ai.RoleModel,
			Content: []*ai.Part{ai.NewTextPart(text)},
		},
	}, nil
}

// MockEmbedder produces repeatable embedding vectors for tests.
//
// By default it derives a vector from the content hash, so equal texts
// embed identically. Explicit mappings can be registered for precise
// cosine similarity control, and errors can be injected to exercise
// failure paths. Each Embed call records its batch size, letting tests
// assert how inputs were batched.
//
// Safe for concurrent use.
type MockEmbedder struct {
	mu      sync.Mutex
	dim     int
	vectors map[string][]float32
	err     error
	batches []int
}

// NewMockEmbedder creates a mock embedder producing vectors of the given
// dimension.
func NewMockEmbedder(dim int) *MockEmbedder {
	return &MockEmbedder{
		dim:     dim,
		vectors: make(map[string][]float32),
	}
}

// SetVector pins the vector returned for an exact content string.
func (e *MockEmbedder) SetVector(content string, vec []float32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vectors[content] = vec
}

// SetError makes every subsequent embed call fail with err.
func (e *MockEmbedder) SetError(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.err = err
}

// Batches returns the input sizes of every Embed call so far.
func (e *MockEmbedder) Batches() []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	cp := make([]int, len(e.batches))
	copy(cp, e.batches)
	return cp
}

// RegisterEmbedder registers the mock as a Genkit embedder named
// "mock/test-embedder" and returns a reference.
func (e *MockEmbedder) RegisterEmbedder(g *genkit.Genkit) ai.Embedder {
	return genkit.DefineEmbedder(g, "mock/test-embedder", &ai.EmbedderOptions{
		Label:      "Sherpa Mock Embedder",
		Dimensions: e.dim,
	}, e.embed)
}

func (e *MockEmbedder) embed(_ context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	e.mu.Lock()
	if err := e.err; err != nil {
		e.mu.Unlock()
		return nil, err
	}
	e.batches = append(e.batches, len(req.Input))
	e.mu.Unlock()

	embeddings := make([]*ai.Embedding, len(req.Input))
	for i, doc := range req.Input {
		embeddings[i] = &ai.Embedding{Embedding: e.vectorFor(docText(doc))}
	}
	return &ai.EmbedResponse{Embeddings: embeddings}, nil
}

// vectorFor returns the registered vector for content, or a
// hash-derived one.
func (e *MockEmbedder) vectorFor(content string) []float32 {
	e.mu.Lock()
	v, ok := e.vectors[content]
	e.mu.Unlock()
	if ok {
		return v
	}
	return deterministicVector(content, e.dim)
}

// docText concatenates the text parts of a document.
func docText(doc *ai.Document) string {
	var b strings.Builder
	for _, part := range doc.Content {
		if part.Kind == ai.PartText {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}

// deterministicVector derives a unit vector from a content hash. Equal
// content always yields the same vector; distinct content diverges after
// a few xorshift rounds.
func deterministicVector(content string, dim int) []float32 {
	seed := sha256.Sum256([]byte(content))
	state := binary.LittleEndian.Uint64(seed[:8])

	vec := make([]float32, dim)
	for i := range vec {
		state ^= state << 13
		state ^= state >> 7
		state ^= state << 17
		vec[i] = float32(state%2048)/1024 - 1
	}

	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if n := float32(math.Sqrt(sum)); n > 0 {
		for i := range vec {
			vec[i] /= n
		}
	}
	return vec
}
