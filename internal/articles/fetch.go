package articles

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/gocolly/colly/v2"
	"golang.org/x/net/html"

	"github.com/kavi0/sherpa/internal/fault"
	"github.com/kavi0/sherpa/internal/log"
)

const (
	defaultParallelism = 2
	defaultDelay       = 500 * time.Millisecond
	defaultTimeout     = 15 * time.Second
	defaultCrawlLimit  = 25

	fetchUserAgent = "sherpa (+https://github.com/kavi0/sherpa)"
)

// contentSelectors are tried in order when readability extraction comes up
// empty. Help-center pages reliably wrap the article body in one of these.
var contentSelectors = []string{"main", "article", ".content", "#content"}

// FetchConfig bounds the live fetcher.
type FetchConfig struct {
	Parallelism int           // max concurrent requests per domain
	Delay       time.Duration // politeness delay between requests
	Timeout     time.Duration // per-request timeout
}

// Fetcher downloads help-center pages and reduces them to plain-text
// articles. It stays on the hosts it was pointed at and honors robots.txt.
type Fetcher struct {
	cfg    FetchConfig
	logger log.Logger
}

// NewFetcher creates a Fetcher. Zero config fields fall back to defaults.
func NewFetcher(cfg FetchConfig, logger log.Logger) (*Fetcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = defaultParallelism
	}
	if cfg.Delay <= 0 {
		cfg.Delay = defaultDelay
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Fetcher{cfg: cfg, logger: logger}, nil
}

// Fetch downloads the given URLs and returns one article per page that
// yields any text. Per-URL failures are logged and skipped; fetching
// nothing at all is an error.
func (f *Fetcher) Fetch(ctx context.Context, urls []string) ([]Article, error) {
	if len(urls) == 0 {
		return nil, fault.Ingestion("no article urls to fetch")
	}
	hosts, err := hostsOf(urls)
	if err != nil {
		return nil, fault.Wrap(fault.KindIngestion, err, "invalid article url")
	}

	c, err := f.collector(ctx, hosts, 1)
	if err != nil {
		return nil, fault.Wrap(fault.KindIngestion, err, "configuring fetcher")
	}

	var (
		mu  sync.Mutex
		out []Article
	)
	c.OnResponse(func(r *colly.Response) {
		art, ok := f.reduce(r.Request.URL, r.Body)
		if !ok {
			f.logger.Warn("page yielded no text", "url", r.Request.URL.String())
			return
		}
		mu.Lock()
		out = append(out, art)
		mu.Unlock()
	})
	c.OnError(func(r *colly.Response, err error) {
		f.logger.Warn("article fetch failed",
			"url", r.Request.URL.String(), "status", r.StatusCode, "error", err)
	})

	for _, u := range urls {
		if err := c.Visit(u); err != nil {
			f.logger.Warn("article fetch skipped", "url", u, "error", err)
		}
	}
	c.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fault.Wrap(fault.KindIngestion, err, "article fetch canceled")
	}
	if len(out) == 0 {
		return nil, fault.Ingestion("no articles fetched from %d urls", len(urls))
	}
	f.logger.Info("articles fetched", "requested", len(urls), "fetched", len(out))
	return out, nil
}

// Crawl starts at startURL and follows same-host links until limit pages
// have produced articles. A limit of zero or less uses the default.
func (f *Fetcher) Crawl(ctx context.Context, startURL string, limit int) ([]Article, error) {
	if limit <= 0 {
		limit = defaultCrawlLimit
	}
	start, err := url.Parse(startURL)
	if err != nil || start.Hostname() == "" {
		return nil, fault.Ingestion("invalid crawl start url %q", startURL)
	}

	c, err := f.collector(ctx, []string{start.Hostname()}, 2)
	if err != nil {
		return nil, fault.Wrap(fault.KindIngestion, err, "configuring fetcher")
	}

	var (
		mu  sync.Mutex
		out []Article
	)
	full := func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(out) >= limit
	}
	c.OnRequest(func(r *colly.Request) {
		if full() {
			r.Abort()
		}
	})
	c.OnResponse(func(r *colly.Response) {
		art, ok := f.reduce(r.Request.URL, r.Body)
		if !ok {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if len(out) < limit {
			out = append(out, art)
		}
	})
	c.OnHTML("a[href]", func(e *colly.HTMLElement) {
		if full() {
			return
		}
		link := e.Request.AbsoluteURL(e.Attr("href"))
		if link == "" {
			return
		}
		// Visit rejects duplicates, off-host links and depth overruns.
		_ = e.Request.Visit(link)
	})
	c.OnError(func(r *colly.Response, err error) {
		f.logger.Warn("crawl fetch failed",
			"url", r.Request.URL.String(), "status", r.StatusCode, "error", err)
	})

	if err := c.Visit(start.String()); err != nil {
		return nil, fault.Wrap(fault.KindIngestion, err, "starting crawl at %s", startURL)
	}
	c.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fault.Wrap(fault.KindIngestion, err, "crawl canceled")
	}
	if len(out) == 0 {
		return nil, fault.Ingestion("crawl of %s found no articles", startURL)
	}
	f.logger.Info("crawl finished", "start_url", startURL, "articles", len(out))
	return out, nil
}

// collector builds a collector restricted to the given hosts. The passed
// context only stops new requests; in-flight ones run to their timeout.
func (f *Fetcher) collector(ctx context.Context, hosts []string, maxDepth int) (*colly.Collector, error) {
	c := colly.NewCollector(
		colly.AllowedDomains(hosts...),
		colly.MaxDepth(maxDepth),
		colly.Async(true),
		colly.UserAgent(fetchUserAgent),
	)
	c.SetRequestTimeout(f.cfg.Timeout)
	c.IgnoreRobotsTxt = false
	if err := c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: f.cfg.Parallelism,
		Delay:       f.cfg.Delay,
	}); err != nil {
		return nil, err
	}
	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
		}
	})
	return c, nil
}

// reduce turns a fetched page into an Article. Pages with no extractable
// text are dropped.
func (f *Fetcher) reduce(pageURL *url.URL, body []byte) (Article, bool) {
	title, text := extract(pageURL, body)
	if text == "" {
		return Article{}, false
	}
	if title == "" {
		title = pageURL.String()
	}
	return Article{
		URL:     pageURL.String(),
		Title:   title,
		Content: text,
		Metadata: map[string]string{
			"title":  title,
			"url":    pageURL.String(),
			"source": SourceWeb,
		},
	}, true
}

// extract pulls the readable title and body text out of an HTML page.
// Readability handles well-formed article pages; goquery selector probing
// and a raw tag strip cover everything else.
func extract(pageURL *url.URL, body []byte) (title, text string) {
	if art, err := readability.FromReader(bytes.NewReader(body), pageURL); err == nil {
		title = strings.TrimSpace(art.Title)
		if t := normalize(art.TextContent); t != "" {
			return title, t
		}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return title, normalize(stripTags(body))
	}
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	if t := fromSelectors(doc); t != "" {
		return title, t
	}
	if t := normalize(doc.Find("body").Text()); t != "" {
		return title, t
	}
	return title, normalize(stripTags(body))
}

// fromSelectors returns text from the first content selector that matches
// and yields anything.
func fromSelectors(doc *goquery.Document) string {
	for _, sel := range contentSelectors {
		s := doc.Find(sel)
		if s.Length() == 0 {
			continue
		}
		if t := normalize(s.First().Text()); t != "" {
			return t
		}
	}
	return ""
}

// normalize collapses scraped text into tidy paragraphs: horizontal
// whitespace within a line is squeezed and blank-line runs become a single
// paragraph break.
func normalize(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := true
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			if !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, strings.Join(fields, " "))
		blank = false
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return strings.Join(out, "\n")
}

// stripTags is the last-resort extraction path for pages goquery cannot
// parse. Script, style and head content is dropped.
func stripTags(body []byte) string {
	tok := html.NewTokenizer(bytes.NewReader(body))
	var (
		sb   strings.Builder
		skip int
	)
	for {
		switch tok.Next() {
		case html.ErrorToken:
			return sb.String()
		case html.StartTagToken:
			if name, _ := tok.TagName(); skippedTag(string(name)) {
				skip++
			}
		case html.EndTagToken:
			if name, _ := tok.TagName(); skippedTag(string(name)) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				sb.Write(tok.Text())
				sb.WriteByte('\n')
			}
		}
	}
}

func skippedTag(name string) bool {
	switch name {
	case "script", "style", "noscript", "head":
		return true
	}
	return false
}

// hostsOf collects the distinct hostnames of the given URLs.
func hostsOf(urls []string) ([]string, error) {
	seen := make(map[string]struct{}, len(urls))
	hosts := make([]string, 0, len(urls))
	for _, raw := range urls {
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing %q: %w", raw, err)
		}
		h := u.Hostname()
		if h == "" {
			return nil, fmt.Errorf("url %q has no host", raw)
		}
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		hosts = append(hosts, h)
	}
	return hosts, nil
}
