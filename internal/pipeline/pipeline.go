// Package pipeline turns help-center articles into embedded chunks ready
// for the vector store.
//
// Processing has two stages. Chunking splits each article's full text
// (title heading plus content) with a layered separator strategy that
// prefers paragraph boundaries and falls back toward single characters.
// Embedding sends every chunk text of a run to the embedder in one batch
// call, so a provider failure embeds nothing rather than half a corpus.
package pipeline

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/firebase/genkit/go/ai"

	"github.com/kavi0/sherpa/internal/articles"
	"github.com/kavi0/sherpa/internal/fault"
	"github.com/kavi0/sherpa/internal/log"
)

// Chunk is one embeddable slice of an article. ID is the vector store
// record key and must be stable per (article, position).
type Chunk struct {
	ID          string
	Text        string
	Title       string
	URL         string
	Source      string
	Index       int
	TotalChunks int
	Extra       map[string]string
	Embedding   []float32
}

const (
	defaultChunkSize    = 1000
	defaultChunkOverlap = 200
)

// Config sizes the splitter and carries provider-native embed options.
type Config struct {
	// ChunkSize and ChunkOverlap size the splitter, in runes. A zero
	// ChunkSize selects the 1000/200 defaults.
	ChunkSize    int
	ChunkOverlap int

	// EmbedOptions is passed through on every embed request. Providers
	// whose embedders default to a model-native dimensionality (Gemini)
	// need it to pin the configured one.
	EmbedOptions any
}

// Pipeline chunks articles and embeds the chunks.
type Pipeline struct {
	splitter     *Splitter
	embedder     ai.Embedder
	embedOptions any
	logger       log.Logger
}

// New creates a Pipeline.
func New(cfg Config, embedder ai.Embedder, logger log.Logger) (*Pipeline, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = defaultChunkSize
		if cfg.ChunkOverlap == 0 {
			cfg.ChunkOverlap = defaultChunkOverlap
		}
	}
	splitter, err := NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("configuring splitter: %w", err)
	}
	return &Pipeline{
		splitter:     splitter,
		embedder:     embedder,
		embedOptions: cfg.EmbedOptions,
		logger:       logger,
	}, nil
}

// ChunkArticle splits one article into chunks with a dense 0..n-1 index
// and the article's metadata attached. An article with no splittable
// content yields no chunks.
func (p *Pipeline) ChunkArticle(a articles.Article) []Chunk {
	texts := p.splitter.Split(a.FullText())
	chunks := make([]Chunk, 0, len(texts))
	for i, text := range texts {
		c := Chunk{
			ID:          fmt.Sprintf("%s#chunk-%d", a.URL, i),
			Text:        text,
			Title:       a.Title,
			URL:         a.URL,
			Source:      a.Metadata["source"],
			Index:       i,
			TotalChunks: len(texts),
		}
		for k, v := range a.Metadata {
			switch k {
			case "title", "url", "source":
			default:
				if c.Extra == nil {
					c.Extra = make(map[string]string)
				}
				c.Extra[k] = v
			}
		}
		chunks = append(chunks, c)
	}

	p.logger.Info("article chunked",
		"title", a.Title,
		"chunks", len(chunks),
		"avg_chunk_size", avgChunkSize(chunks))
	return chunks
}

// ChunkAll chunks every article into one flat list.
func (p *Pipeline) ChunkAll(arts []articles.Article) []Chunk {
	var all []Chunk
	for _, a := range arts {
		all = append(all, p.ChunkArticle(a)...)
	}
	p.logger.Info("all articles chunked", "articles", len(arts), "total_chunks", len(all))
	return all
}

// Embed generates embeddings for all chunks in a single batch call and
// returns the chunks with vectors attached. It fails atomically: a
// provider error leaves no chunk embedded.
func (p *Pipeline) Embed(ctx context.Context, chunks []Chunk) ([]Chunk, error) {
	if len(chunks) == 0 {
		return chunks, nil
	}

	docs := make([]*ai.Document, len(chunks))
	for i, c := range chunks {
		docs[i] = ai.DocumentFromText(c.Text, nil)
	}

	resp, err := p.embedder.Embed(ctx, &ai.EmbedRequest{Input: docs, Options: p.embedOptions})
	if err != nil {
		return nil, fault.Wrap(fault.KindEmbedding, err, "embedding %d chunks", len(chunks))
	}
	if len(resp.Embeddings) != len(chunks) {
		return nil, fault.Embedding("embedder returned %d vectors for %d chunks", len(resp.Embeddings), len(chunks))
	}

	for i := range chunks {
		chunks[i].Embedding = resp.Embeddings[i].Embedding
	}
	p.logger.Info("embeddings generated",
		"chunks", len(chunks),
		"dimension", len(chunks[0].Embedding))
	return chunks, nil
}

// Process runs the full pipeline: chunk every article, then embed the
// flattened chunk list in one batch. An empty corpus returns no chunks
// and no error.
func (p *Pipeline) Process(ctx context.Context, arts []articles.Article) ([]Chunk, error) {
	chunks := p.ChunkAll(arts)
	if len(chunks) == 0 {
		return nil, nil
	}
	return p.Embed(ctx, chunks)
}

// avgChunkSize returns the mean chunk text length in runes.
func avgChunkSize(chunks []Chunk) int {
	if len(chunks) == 0 {
		return 0
	}
	total := 0
	for _, c := range chunks {
		total += utf8.RuneCountInString(c.Text)
	}
	return total / len(chunks)
}
