package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/firebase/genkit/go/genkit"

	"github.com/kavi0/sherpa/internal/articles"
	"github.com/kavi0/sherpa/internal/fault"
	"github.com/kavi0/sherpa/internal/log"
	"github.com/kavi0/sherpa/internal/testutil"
)

const testDim = 8

func newTestPipeline(t *testing.T, cfg Config) (*Pipeline, *testutil.MockEmbedder) {
	t.Helper()
	g := genkit.Init(context.Background())
	mock := testutil.NewMockEmbedder(testDim)
	embedder := mock.RegisterEmbedder(g)

	p, err := New(cfg, embedder, log.NewNop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return p, mock
}

func testArticle(n int) articles.Article {
	url := fmt.Sprintf("https://help.example.com/articles/%d", n)
	return articles.Article{
		URL:     url,
		Title:   fmt.Sprintf("Article %d", n),
		Content: strings.Repeat(fmt.Sprintf("Fact %d about the product. ", n), 20),
		Metadata: map[string]string{
			"title":  fmt.Sprintf("Article %d", n),
			"url":    url,
			"source": "unit_fixture",
			"lang":   "en",
		},
	}
}

func TestNew_Validation(t *testing.T) {
	g := genkit.Init(context.Background())
	embedder := testutil.NewMockEmbedder(testDim).RegisterEmbedder(g)

	if _, err := New(Config{ChunkSize: 100, ChunkOverlap: 20}, nil, log.NewNop()); err == nil {
		t.Error("New(nil embedder) expected error")
	}
	if _, err := New(Config{ChunkSize: 100, ChunkOverlap: 20}, embedder, nil); err == nil {
		t.Error("New(nil logger) expected error")
	}
	if _, err := New(Config{ChunkSize: 100, ChunkOverlap: 100}, embedder, log.NewNop()); err == nil {
		t.Error("New(overlap >= size) expected error")
	}
}

func TestChunkArticle(t *testing.T) {
	p, _ := newTestPipeline(t, Config{ChunkSize: 120, ChunkOverlap: 30})
	a := testArticle(1)

	chunks := p.ChunkArticle(a)
	if len(chunks) < 2 {
		t.Fatalf("ChunkArticle() produced %d chunks, want several", len(chunks))
	}

	for i, c := range chunks {
		wantID := fmt.Sprintf("%s#chunk-%d", a.URL, i)
		if c.ID != wantID {
			t.Errorf("chunk %d ID = %q, want %q", i, c.ID, wantID)
		}
		if c.Index != i {
			t.Errorf("chunk %d Index = %d", i, c.Index)
		}
		if c.TotalChunks != len(chunks) {
			t.Errorf("chunk %d TotalChunks = %d, want %d", i, c.TotalChunks, len(chunks))
		}
		if c.Title != a.Title || c.URL != a.URL {
			t.Errorf("chunk %d carries title %q url %q", i, c.Title, c.URL)
		}
		if c.Source != "unit_fixture" {
			t.Errorf("chunk %d Source = %q", i, c.Source)
		}
		if len(c.Extra) != 1 || c.Extra["lang"] != "en" {
			t.Errorf("chunk %d Extra = %v, want only the passthrough key", i, c.Extra)
		}
		if c.Embedding != nil {
			t.Errorf("chunk %d already has an embedding", i)
		}
	}

	if !strings.HasPrefix(chunks[0].Text, "# "+a.Title) {
		t.Errorf("first chunk does not start with the title heading: %q", chunks[0].Text)
	}
}

func TestChunkArticle_EmptyContent(t *testing.T) {
	p, _ := newTestPipeline(t, Config{ChunkSize: 1000, ChunkOverlap: 200})

	chunks := p.ChunkArticle(articles.Article{
		URL:   "https://help.example.com/articles/empty",
		Title: "Widget",
	})
	if len(chunks) != 1 {
		t.Fatalf("ChunkArticle(empty content) produced %d chunks, want the heading chunk", len(chunks))
	}
	if chunks[0].Text != "# Widget" {
		t.Errorf("chunk text = %q", chunks[0].Text)
	}
	if chunks[0].TotalChunks != 1 || chunks[0].Index != 0 {
		t.Errorf("chunk counters = (%d, %d)", chunks[0].Index, chunks[0].TotalChunks)
	}
}

func TestEmbed(t *testing.T) {
	p, mock := newTestPipeline(t, Config{ChunkSize: 120, ChunkOverlap: 30})
	chunks := p.ChunkArticle(testArticle(1))

	embedded, err := p.Embed(context.Background(), chunks)
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(embedded) != len(chunks) {
		t.Fatalf("Embed() returned %d chunks, want %d", len(embedded), len(chunks))
	}
	for i, c := range embedded {
		if len(c.Embedding) != testDim {
			t.Errorf("chunk %d embedding has %d dimensions, want %d", i, len(c.Embedding), testDim)
		}
	}

	batches := mock.Batches()
	if len(batches) != 1 || batches[0] != len(chunks) {
		t.Errorf("embedder batches = %v, want one batch of %d", batches, len(chunks))
	}
}

func TestEmbed_Empty(t *testing.T) {
	p, mock := newTestPipeline(t, Config{ChunkSize: 1000, ChunkOverlap: 200})

	embedded, err := p.Embed(context.Background(), nil)
	if err != nil {
		t.Fatalf("Embed(nil) error = %v", err)
	}
	if len(embedded) != 0 {
		t.Errorf("Embed(nil) returned %d chunks", len(embedded))
	}
	if len(mock.Batches()) != 0 {
		t.Error("Embed(nil) should not call the embedder")
	}
}

func TestEmbed_ProviderFailure(t *testing.T) {
	p, mock := newTestPipeline(t, Config{ChunkSize: 120, ChunkOverlap: 30})
	chunks := p.ChunkArticle(testArticle(1))
	mock.SetError(errors.New("quota exceeded"))

	_, err := p.Embed(context.Background(), chunks)
	if err == nil {
		t.Fatal("Embed() expected error")
	}
	if !fault.IsKind(err, fault.KindEmbedding) {
		t.Errorf("error kind = %v, want embedding", fault.KindOf(err))
	}
	// Atomic failure: no chunk may carry a partial result.
	for i, c := range chunks {
		if c.Embedding != nil {
			t.Errorf("chunk %d was embedded despite the failure", i)
		}
	}
}

func TestProcess(t *testing.T) {
	p, mock := newTestPipeline(t, Config{ChunkSize: 120, ChunkOverlap: 30})
	arts := []articles.Article{testArticle(1), testArticle(2)}

	chunks, err := p.Process(context.Background(), arts)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(chunks) < 4 {
		t.Fatalf("Process() produced %d chunks, want several per article", len(chunks))
	}

	// The whole corpus must go to the embedder as one batch, not one
	// call per article.
	batches := mock.Batches()
	if len(batches) != 1 || batches[0] != len(chunks) {
		t.Errorf("embedder batches = %v, want one batch of %d", batches, len(chunks))
	}

	seen := make(map[string]bool, len(chunks))
	for _, c := range chunks {
		if seen[c.ID] {
			t.Errorf("duplicate chunk id %q", c.ID)
		}
		seen[c.ID] = true
		if len(c.Embedding) != testDim {
			t.Errorf("chunk %q has no embedding", c.ID)
		}
	}
}

func TestProcess_NoArticles(t *testing.T) {
	p, mock := newTestPipeline(t, Config{ChunkSize: 1000, ChunkOverlap: 200})

	chunks, err := p.Process(context.Background(), nil)
	if err != nil {
		t.Fatalf("Process(nil) error = %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("Process(nil) produced %d chunks", len(chunks))
	}
	if len(mock.Batches()) != 0 {
		t.Error("Process(nil) should not call the embedder")
	}
}

func TestAvgChunkSize(t *testing.T) {
	if got := avgChunkSize(nil); got != 0 {
		t.Errorf("avgChunkSize(nil) = %d, want 0", got)
	}
	chunks := []Chunk{{Text: "abcd"}, {Text: "ab"}}
	if got := avgChunkSize(chunks); got != 3 {
		t.Errorf("avgChunkSize() = %d, want 3", got)
	}
}
