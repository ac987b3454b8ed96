package articles

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/kavi0/sherpa/internal/fault"
	"github.com/kavi0/sherpa/internal/log"
)

const articlePage = `<!DOCTYPE html>
<html>
<head><title>Create multi-language forms</title></head>
<body>
<nav><a href="/">Home</a></nav>
<main>
<h1>Create multi-language forms</h1>
<p>Save time by creating a single form with multiple language options.</p>
<p>Respondents see the form in the language their browser is set to.</p>
</main>
</body>
</html>`

func newTestFetcher(t *testing.T) *Fetcher {
	t.Helper()
	f, err := NewFetcher(FetchConfig{
		Parallelism: 4,
		Delay:       time.Millisecond,
		Timeout:     5 * time.Second,
	}, log.NewNop())
	if err != nil {
		t.Fatalf("NewFetcher() error = %v", err)
	}
	return f
}

func TestNewFetcher_Defaults(t *testing.T) {
	f, err := NewFetcher(FetchConfig{}, log.NewNop())
	if err != nil {
		t.Fatalf("NewFetcher() error = %v", err)
	}
	if f.cfg.Parallelism != defaultParallelism {
		t.Errorf("Parallelism = %d, want %d", f.cfg.Parallelism, defaultParallelism)
	}
	if f.cfg.Delay != defaultDelay {
		t.Errorf("Delay = %v, want %v", f.cfg.Delay, defaultDelay)
	}
	if f.cfg.Timeout != defaultTimeout {
		t.Errorf("Timeout = %v, want %v", f.cfg.Timeout, defaultTimeout)
	}
}

func TestNewFetcher_NilLogger(t *testing.T) {
	if _, err := NewFetcher(FetchConfig{}, nil); err == nil {
		t.Error("NewFetcher(nil logger) expected error, got nil")
	}
}

func TestFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(articlePage))
	}))
	defer server.Close()

	f := newTestFetcher(t)
	arts, err := f.Fetch(context.Background(), []string{server.URL + "/a", server.URL + "/b"})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(arts) != 2 {
		t.Fatalf("Fetch() returned %d articles, want 2", len(arts))
	}

	for _, a := range arts {
		if a.Title != "Create multi-language forms" {
			t.Errorf("title = %q", a.Title)
		}
		if !strings.Contains(a.Content, "multiple language options") {
			t.Errorf("content missing article text: %q", a.Content)
		}
		if a.Metadata["source"] != SourceWeb {
			t.Errorf("metadata source = %q, want %q", a.Metadata["source"], SourceWeb)
		}
		if a.Metadata["url"] != a.URL {
			t.Errorf("metadata url = %q, want %q", a.Metadata["url"], a.URL)
		}
	}
}

func TestFetch_SkipsFailedPages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/good" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(articlePage))
	}))
	defer server.Close()

	f := newTestFetcher(t)
	arts, err := f.Fetch(context.Background(), []string{server.URL + "/missing", server.URL + "/good"})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(arts) != 1 {
		t.Fatalf("Fetch() returned %d articles, want 1", len(arts))
	}
	if !strings.HasSuffix(arts[0].URL, "/good") {
		t.Errorf("fetched url = %q, want the /good page", arts[0].URL)
	}
}

func TestFetch_AllPagesFail(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	f := newTestFetcher(t)
	_, err := f.Fetch(context.Background(), []string{server.URL + "/a"})
	if err == nil {
		t.Fatal("Fetch() expected error when every page fails")
	}
	if !fault.IsKind(err, fault.KindIngestion) {
		t.Errorf("error kind = %v, want ingestion", fault.KindOf(err))
	}
}

func TestFetch_NoURLs(t *testing.T) {
	f := newTestFetcher(t)
	_, err := f.Fetch(context.Background(), nil)
	if err == nil {
		t.Fatal("Fetch(nil) expected error")
	}
	if !fault.IsKind(err, fault.KindIngestion) {
		t.Errorf("error kind = %v, want ingestion", fault.KindOf(err))
	}
}

func TestFetch_InvalidURL(t *testing.T) {
	f := newTestFetcher(t)
	if _, err := f.Fetch(context.Background(), []string{"://no-scheme"}); err == nil {
		t.Error("Fetch(invalid url) expected error")
	}
}

func TestFetch_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(articlePage))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := newTestFetcher(t)
	if _, err := f.Fetch(ctx, []string{server.URL}); err == nil {
		t.Error("Fetch() with canceled context expected error")
	}
}

func TestCrawl(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><title>Help Center</title></head><body>
<main><p>Browse our most popular help articles below.</p></main>
<a href="/articles/languages">Languages</a>
<a href="/articles/pages">Pages</a>
</body></html>`))
	})
	articleHandler := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(articlePage))
	}
	mux.HandleFunc("/articles/languages", articleHandler)
	mux.HandleFunc("/articles/pages", articleHandler)

	server := httptest.NewServer(mux)
	defer server.Close()

	f := newTestFetcher(t)
	arts, err := f.Crawl(context.Background(), server.URL, 10)
	if err != nil {
		t.Fatalf("Crawl() error = %v", err)
	}
	if len(arts) != 3 {
		t.Fatalf("Crawl() returned %d articles, want 3", len(arts))
	}

	seen := make(map[string]bool)
	for _, a := range arts {
		seen[strings.TrimPrefix(a.URL, server.URL)] = true
	}
	for _, path := range []string{"/articles/languages", "/articles/pages"} {
		if !seen[path] {
			t.Errorf("crawl did not reach %s (saw %v)", path, seen)
		}
	}
}

func TestCrawl_Limit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(articlePage))
	}))
	defer server.Close()

	f := newTestFetcher(t)
	arts, err := f.Crawl(context.Background(), server.URL, 1)
	if err != nil {
		t.Fatalf("Crawl() error = %v", err)
	}
	if len(arts) != 1 {
		t.Errorf("Crawl(limit=1) returned %d articles", len(arts))
	}
}

func TestCrawl_InvalidStartURL(t *testing.T) {
	f := newTestFetcher(t)
	_, err := f.Crawl(context.Background(), "not a url", 5)
	if err == nil {
		t.Fatal("Crawl(invalid url) expected error")
	}
	if !fault.IsKind(err, fault.KindIngestion) {
		t.Errorf("error kind = %v, want ingestion", fault.KindOf(err))
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "empty",
			input: "",
			want:  "",
		},
		{
			name:  "whitespace only",
			input: "  \n\t \n  ",
			want:  "",
		},
		{
			name:  "squeezes spaces within lines",
			input: "one   two\tthree",
			want:  "one two three",
		},
		{
			name:  "collapses blank runs to one paragraph break",
			input: "first\n\n\n\n  \nsecond",
			want:  "first\n\nsecond",
		},
		{
			name:  "trims leading and trailing blanks",
			input: "\n\n  hello  \n\n",
			want:  "hello",
		},
		{
			name:  "keeps single newlines",
			input: "line one\nline two",
			want:  "line one\nline two",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalize(tt.input); got != tt.want {
				t.Errorf("normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestStripTags(t *testing.T) {
	page := `<html><head><title>Ignored</title><style>.x{color:red}</style></head>` +
		`<body><script>var x = 1;</script><p>Visible text.</p><div>More text.</div></body></html>`

	got := stripTags([]byte(page))
	for _, want := range []string{"Visible text.", "More text."} {
		if !strings.Contains(got, want) {
			t.Errorf("stripTags() = %q, missing %q", got, want)
		}
	}
	for _, banned := range []string{"var x", "color:red", "Ignored"} {
		if strings.Contains(got, banned) {
			t.Errorf("stripTags() leaked %q", banned)
		}
	}
}

func TestFromSelectors(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "main",
			html: `<body><nav>menu</nav><main><p>the article</p></main></body>`,
			want: "the article",
		},
		{
			name: "article tag",
			html: `<body><article><p>inside article</p></article></body>`,
			want: "inside article",
		},
		{
			name: "content class",
			html: `<body><div class="content"><p>classy</p></div></body>`,
			want: "classy",
		},
		{
			name: "content id",
			html: `<body><div id="content"><p>by id</p></div></body>`,
			want: "by id",
		},
		{
			name: "no match",
			html: `<body><div><p>plain page</p></div></body>`,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := goquery.NewDocumentFromReader(strings.NewReader(tt.html))
			if err != nil {
				t.Fatalf("parsing fixture: %v", err)
			}
			if got := fromSelectors(doc); got != tt.want {
				t.Errorf("fromSelectors() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHostsOf(t *testing.T) {
	hosts, err := hostsOf([]string{
		"https://help.typeform.com/hc/en-us/articles/1",
		"https://help.typeform.com/hc/en-us/articles/2",
		"https://www.typeform.com/pricing",
	})
	if err != nil {
		t.Fatalf("hostsOf() error = %v", err)
	}
	want := []string{"help.typeform.com", "www.typeform.com"}
	if len(hosts) != len(want) {
		t.Fatalf("hostsOf() = %v, want %v", hosts, want)
	}
	for i := range want {
		if hosts[i] != want[i] {
			t.Errorf("hosts[%d] = %q, want %q", i, hosts[i], want[i])
		}
	}

	if _, err := hostsOf([]string{"/relative/path"}); err == nil {
		t.Error("hostsOf(relative url) expected error")
	}
}
