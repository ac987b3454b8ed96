package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kavi0/sherpa/internal/log"
	"github.com/kavi0/sherpa/internal/rag"
	"github.com/kavi0/sherpa/internal/vectorstore"
)

// fakeEngine implements QueryEngine and records every call.
type fakeEngine struct {
	mu     sync.Mutex
	result rag.Result
	err    error

	questions      []string
	topKs          []int
	includeSources []bool
}

func (f *fakeEngine) Query(_ context.Context, question string, topK int, includeSources bool) (rag.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.questions = append(f.questions, question)
	f.topKs = append(f.topKs, topK)
	f.includeSources = append(f.includeSources, includeSources)
	if f.err != nil {
		return rag.Result{}, f.err
	}
	return f.result, nil
}

// fakeIndexer implements IndexManager.
type fakeIndexer struct {
	result      rag.PopulateResult
	populateErr error
	clearErr    error

	populateCalls int
	clearCalls    int
}

func (f *fakeIndexer) Populate(context.Context) (rag.PopulateResult, error) {
	f.populateCalls++
	if f.populateErr != nil {
		return rag.PopulateResult{}, f.populateErr
	}
	return f.result, nil
}

func (f *fakeIndexer) Clear(context.Context) error {
	f.clearCalls++
	return f.clearErr
}

// fakeIndex implements IndexReader.
type fakeIndex struct {
	initialized bool
	stats       vectorstore.Stats
	statsErr    error
}

func (f *fakeIndex) Initialized() bool { return f.initialized }

func (f *fakeIndex) Stats(context.Context) (vectorstore.Stats, error) {
	if f.statsErr != nil {
		return vectorstore.Stats{}, f.statsErr
	}
	return f.stats, nil
}

// readyConfig returns a ServerConfig with every service healthy.
func readyConfig() ServerConfig {
	return ServerConfig{
		Logger: log.NewNop(),
		Engine: &fakeEngine{result: rag.Result{Answer: "answer", Query: "q", NumSources: 0}},
		Indexer: &fakeIndexer{result: rag.PopulateResult{
			ArticlesProcessed: 2,
			ChunksCreated:     5,
			TotalUpserted:     5,
			Batches:           1,
		}},
		Store:       &fakeIndex{initialized: true, stats: vectorstore.Stats{TotalVectors: 42, Dimension: 1536, IndexFullness: 0.1}},
		Environment: "development",
	}
}

func doRequest(t *testing.T, srv *Server, method, path, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func TestRouteRegistration(t *testing.T) {
	srv := NewServer(readyConfig())

	tests := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{http.MethodGet, "/", "", http.StatusOK},
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodGet, "/ready", "", http.StatusOK},
		{http.MethodPost, "/query", `{"question":"How do I reset my password?"}`, http.StatusOK},
		{http.MethodPost, "/index/populate", "", http.StatusCreated},
		{http.MethodGet, "/index/stats", "", http.StatusOK},
		{http.MethodDelete, "/index/clear", "", http.StatusNoContent},
		{http.MethodGet, "/nope", "", http.StatusNotFound},
		{http.MethodDelete, "/query", "", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := doRequest(t, srv, tt.method, tt.path, tt.body, nil)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %q)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestRequestID_Generated(t *testing.T) {
	srv := NewServer(readyConfig())

	rec := doRequest(t, srv, http.MethodGet, "/health", "", nil)

	id := rec.Header().Get("X-Request-ID")
	if id == "" {
		t.Fatal("X-Request-ID header not set")
	}
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("X-Request-ID %q is not a UUID: %v", id, err)
	}
}

func TestRequestID_ReusesValidInbound(t *testing.T) {
	srv := NewServer(readyConfig())
	inbound := uuid.NewString()

	rec := doRequest(t, srv, http.MethodGet, "/health", "", http.Header{"X-Request-Id": {inbound}})

	if got := rec.Header().Get("X-Request-ID"); got != inbound {
		t.Errorf("X-Request-ID = %q, want inbound %q", got, inbound)
	}
}

func TestRequestID_ReplacesInvalid(t *testing.T) {
	srv := NewServer(readyConfig())

	rec := doRequest(t, srv, http.MethodGet, "/health", "", http.Header{"X-Request-Id": {"not-a-uuid"}})

	got := rec.Header().Get("X-Request-ID")
	if got == "not-a-uuid" {
		t.Error("invalid inbound request ID was echoed back")
	}
	if _, err := uuid.Parse(got); err != nil {
		t.Errorf("X-Request-ID %q is not a UUID: %v", got, err)
	}
}

func TestRootEndpoint(t *testing.T) {
	srv := NewServer(readyConfig())

	rec := doRequest(t, srv, http.MethodGet, "/", "", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body rootResponse
	decodeBody(t, rec, &body)
	if body.Service != "sherpa" {
		t.Errorf("service = %q, want sherpa", body.Service)
	}
	if body.Version != apiVersion {
		t.Errorf("version = %q, want %q", body.Version, apiVersion)
	}
	if len(body.Endpoints) == 0 {
		t.Error("endpoints map is empty")
	}
}

func TestSecurityHeaders(t *testing.T) {
	t.Run("development skips HSTS", func(t *testing.T) {
		cfg := readyConfig()
		cfg.Environment = "development"
		rec := doRequest(t, NewServer(cfg), http.MethodGet, "/health", "", nil)

		if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
			t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
		}
		if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
			t.Errorf("X-Frame-Options = %q, want DENY", got)
		}
		if got := rec.Header().Get("Strict-Transport-Security"); got != "" {
			t.Errorf("Strict-Transport-Security set in development: %q", got)
		}
	})

	t.Run("production sets HSTS", func(t *testing.T) {
		cfg := readyConfig()
		cfg.Environment = "production"
		rec := doRequest(t, NewServer(cfg), http.MethodGet, "/health", "", nil)

		if got := rec.Header().Get("Strict-Transport-Security"); got == "" {
			t.Error("Strict-Transport-Security not set in production")
		}
	})
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	srv := NewServer(ServerConfig{Logger: log.NewNop()})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx, "127.0.0.1:0")
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v after cancel, want nil", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down after context cancel")
	}
}
