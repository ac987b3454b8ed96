package testutil

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func userRequest(text string) *ai.ModelRequest {
	return &ai.ModelRequest{
		Messages: []*ai.Message{ai.NewUserMessage(ai.NewTextPart(text))},
	}
}

func TestMockLLM_RespondsByPattern(t *testing.T) {
	t.Parallel()

	m := NewMockLLM("I don't have an answer for that.")
	m.AddResponse("password", "Use the reset link on the sign-in page.")
	m.AddResponse("billing", "Billing is under account settings.")
	m.AddResponse("password reset", "never reached, password matches first")

	tests := []struct {
		question string
		want     string
	}{
		{"How do I reset my PASSWORD?", "Use the reset link on the sign-in page."},
		{"where is billing", "Billing is under account settings."},
		{"what are logic jumps", "I don't have an answer for that."},
		{"password reset steps", "Use the reset link on the sign-in page."},
	}

	for _, tt := range tests {
		resp, err := m.generate(context.Background(), userRequest(tt.question), nil)
		if err != nil {
			t.Fatalf("generate(%q) unexpected error: %v", tt.question, err)
		}
		if got := resp.Message.Text(); got != tt.want {
			t.Errorf("generate(%q) = %q, want %q", tt.question, got, tt.want)
		}
	}
}

func TestMockLLM_RecordsCalls(t *testing.T) {
	t.Parallel()

	m := NewMockLLM("ok")
	m.AddResponse("refund", "Refunds take 5-10 business days.")

	if _, err := m.generate(context.Background(), userRequest("hi"), nil); err != nil {
		t.Fatalf("generate() unexpected error: %v", err)
	}

	withSystem := &ai.ModelRequest{
		Messages: []*ai.Message{
			{Role: ai.RoleSystem, Content: []*ai.Part{ai.NewTextPart("You are a support assistant.")}},
			ai.NewUserMessage(ai.NewTextPart("when is my refund due")),
		},
	}
	if _, err := m.generate(context.Background(), withSystem, nil); err != nil {
		t.Fatalf("generate() unexpected error: %v", err)
	}

	want := []ModelCall{
		{UserMessage: "hi", Response: "ok"},
		{System: "You are a support assistant.", UserMessage: "when is my refund due", Response: "Refunds take 5-10 business days."},
	}
	if diff := cmp.Diff(want, m.Calls()); diff != "" {
		t.Errorf("Calls() mismatch (-want +got):\n%s", diff)
	}
	if got := m.LastCall(); got != want[1] {
		t.Errorf("LastCall() = %+v, want %+v", got, want[1])
	}

	m.Reset()
	if got := len(m.Calls()); got != 0 {
		t.Errorf("Calls() after Reset() len = %d, want 0", got)
	}
	if got := m.LastCall(); got != (ModelCall{}) {
		t.Errorf("LastCall() after Reset() = %+v, want zero value", got)
	}
}

func TestMockLLM_InjectedError(t *testing.T) {
	t.Parallel()

	m := NewMockLLM("ok")
	wantErr := errors.New("model unavailable")
	m.SetError(wantErr)

	if _, err := m.generate(context.Background(), userRequest("hi"), nil); !errors.Is(err, wantErr) {
		t.Errorf("generate() error = %v, want %v", err, wantErr)
	}
	if got := len(m.Calls()); got != 0 {
		t.Errorf("failed generate was recorded, Calls() len = %d", got)
	}

	m.Reset()
	if _, err := m.generate(context.Background(), userRequest("hi"), nil); err != nil {
		t.Errorf("generate() after Reset() unexpected error: %v", err)
	}
}

func TestMockLLM_StreamsSingleChunk(t *testing.T) {
	t.Parallel()

	m := NewMockLLM("streamed answer")

	var chunks []string
	cb := func(_ context.Context, chunk *ai.ModelResponseChunk) error {
		for _, p := range chunk.Content {
			chunks = append(chunks, p.Text)
		}
		return nil
	}

	if _, err := m.generate(context.Background(), userRequest("hi"), cb); err != nil {
		t.Fatalf("generate() unexpected error: %v", err)
	}
	if diff := cmp.Diff([]string{"streamed answer"}, chunks); diff != "" {
		t.Errorf("streamed chunks mismatch (-want +got):\n%s", diff)
	}
}

func TestMockLLM_Register(t *testing.T) {
	t.Parallel()

	g := genkit.Init(context.Background())
	model := NewMockLLM("registered").RegisterModel(g)

	if model == nil {
		t.Fatal("RegisterModel() returned nil")
	}
	if got := model.Name(); got != "mock/test-model" {
		t.Errorf("RegisterModel().Name() = %q, want mock/test-model", got)
	}
	if genkit.LookupModel(g, "mock/test-model") == nil {
		t.Fatal("LookupModel() returned nil after registration")
	}
}

func TestMockEmbedder_Deterministic(t *testing.T) {
	t.Parallel()

	e := NewMockEmbedder(768)

	a := e.vectorFor("chunk about forms")
	b := e.vectorFor("chunk about forms")
	other := e.vectorFor("chunk about billing")

	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("same text produced different vectors:\n%s", diff)
	}
	if cmp.Equal(a, other) {
		t.Error("different texts produced the same vector")
	}

	var norm float64
	for _, v := range a {
		norm += float64(v) * float64(v)
	}
	if got := math.Sqrt(norm); math.Abs(got-1.0) > 0.01 {
		t.Errorf("vector norm = %f, want ~1.0", got)
	}
}

func TestMockEmbedder_PinnedVector(t *testing.T) {
	t.Parallel()

	e := NewMockEmbedder(3)
	pinned := []float32{0.6, 0.8, 0}
	e.SetVector("exact chunk text", pinned)

	got := e.vectorFor("exact chunk text")
	if diff := cmp.Diff(pinned, got, cmpopts.EquateApprox(0, 0.001)); diff != "" {
		t.Errorf("pinned vector not returned (-want +got):\n%s", diff)
	}
	if cmp.Equal(pinned, e.vectorFor("anything else")) {
		t.Error("unpinned text returned the pinned vector")
	}
}

func TestMockEmbedder_Register(t *testing.T) {
	t.Parallel()

	g := genkit.Init(context.Background())
	embedder := NewMockEmbedder(768).RegisterEmbedder(g)

	if embedder == nil {
		t.Fatal("RegisterEmbedder() returned nil")
	}
	if got := embedder.Name(); got != "mock/test-embedder" {
		t.Errorf("RegisterEmbedder().Name() = %q, want mock/test-embedder", got)
	}
}

func TestMockEmbedder_Embed(t *testing.T) {
	t.Parallel()

	e := NewMockEmbedder(64)
	req := &ai.EmbedRequest{
		Input: []*ai.Document{
			ai.DocumentFromText("first chunk", nil),
			ai.DocumentFromText("second chunk", nil),
		},
	}

	resp, err := e.embed(context.Background(), req)
	if err != nil {
		t.Fatalf("embed() unexpected error: %v", err)
	}
	if len(resp.Embeddings) != 2 {
		t.Fatalf("embed() returned %d embeddings, want 2", len(resp.Embeddings))
	}
	for i, emb := range resp.Embeddings {
		if len(emb.Embedding) != 64 {
			t.Errorf("embedding[%d] dim = %d, want 64", i, len(emb.Embedding))
		}
	}
	if cmp.Equal(resp.Embeddings[0].Embedding, resp.Embeddings[1].Embedding) {
		t.Error("distinct documents embedded identically")
	}
}

func TestMockEmbedder_RecordsBatchSizes(t *testing.T) {
	t.Parallel()

	e := NewMockEmbedder(8)
	for _, n := range []int{2, 1, 3} {
		docs := make([]*ai.Document, n)
		for i := range docs {
			docs[i] = ai.DocumentFromText("doc", nil)
		}
		if _, err := e.embed(context.Background(), &ai.EmbedRequest{Input: docs}); err != nil {
			t.Fatalf("embed() unexpected error: %v", err)
		}
	}

	if diff := cmp.Diff([]int{2, 1, 3}, e.Batches()); diff != "" {
		t.Errorf("Batches() mismatch (-want +got):\n%s", diff)
	}
}

func TestMockEmbedder_InjectedError(t *testing.T) {
	t.Parallel()

	e := NewMockEmbedder(8)
	wantErr := errors.New("quota exceeded")
	e.SetError(wantErr)

	req := &ai.EmbedRequest{Input: []*ai.Document{ai.DocumentFromText("doc", nil)}}
	if _, err := e.embed(context.Background(), req); !errors.Is(err, wantErr) {
		t.Errorf("embed() error = %v, want %v", err, wantErr)
	}
	if got := len(e.Batches()); got != 0 {
		t.Errorf("failed embed was recorded, Batches() len = %d", got)
	}
}
