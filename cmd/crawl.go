package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/kavi0/sherpa/internal/app"
	"github.com/kavi0/sherpa/internal/articles"
	"github.com/kavi0/sherpa/internal/rag"
)

// crawlOptions is the parsed form of the crawl command line.
type crawlOptions struct {
	urls      []string
	limit     int
	fetchOnly bool
}

// parseCrawlArgs parses crawl arguments:
//   - sherpa crawl https://help.example.com            (follow links)
//   - sherpa crawl -limit 50 https://help.example.com
//   - sherpa crawl -fetch <url> [url...]               (exact pages only)
func parseCrawlArgs(args []string) (crawlOptions, error) {
	crawlFlags := flag.NewFlagSet("crawl", flag.ContinueOnError)
	crawlFlags.SetOutput(os.Stderr)

	limit := crawlFlags.Int("limit", 0, "Max articles to index (0 = default)")
	fetchOnly := crawlFlags.Bool("fetch", false, "Fetch only the given URLs without following links")

	if err := crawlFlags.Parse(args); err != nil {
		return crawlOptions{}, fmt.Errorf("parsing crawl flags: %w", err)
	}

	opts := crawlOptions{
		urls:      crawlFlags.Args(),
		limit:     *limit,
		fetchOnly: *fetchOnly,
	}
	if len(opts.urls) == 0 {
		return crawlOptions{}, fmt.Errorf("crawl requires at least one URL")
	}
	if !opts.fetchOnly && len(opts.urls) > 1 {
		return crawlOptions{}, fmt.Errorf("crawl follows links from a single start URL; use -fetch for an explicit URL list")
	}
	if opts.limit < 0 {
		return crawlOptions{}, fmt.Errorf("limit must not be negative, got %d", opts.limit)
	}
	return opts, nil
}

// runCrawl fetches live help-center articles and indexes them in place
// of the bundled corpus.
func runCrawl() error {
	opts, err := parseCrawlArgs(os.Args[2:])
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := newLogger(cfg)
	logger.Info("starting crawl",
		"version", Version,
		"urls", opts.urls,
		"limit", opts.limit,
		"fetch_only", opts.fetchOnly)

	return withApp(cfg, logger, func(ctx context.Context, a *app.App) error {
		fetcher, err := articles.NewFetcher(articles.FetchConfig{
			Parallelism: cfg.Fetcher.Parallelism,
			Delay:       time.Duration(cfg.Fetcher.DelayMs) * time.Millisecond,
			Timeout:     time.Duration(cfg.Fetcher.TimeoutMs) * time.Millisecond,
		}, logger)
		if err != nil {
			return fmt.Errorf("creating fetcher: %w", err)
		}

		loader := func(ctx context.Context) ([]articles.Article, error) {
			if opts.fetchOnly {
				return fetcher.Fetch(ctx, opts.urls)
			}
			return fetcher.Crawl(ctx, opts.urls[0], opts.limit)
		}

		// A dedicated indexer with the live loader; the shared lock still
		// serializes this run against a populate over HTTP.
		indexer, err := rag.NewIndexer(a.Pipeline, a.Store, loader, "", logger)
		if err != nil {
			return fmt.Errorf("creating indexer: %w", err)
		}

		result, err := indexer.Populate(ctx)
		if err != nil {
			return fmt.Errorf("indexing crawled articles: %w", err)
		}

		fmt.Printf("Indexed %d articles: %d chunks, %d vectors upserted in %d batches\n",
			result.ArticlesProcessed, result.ChunksCreated, result.TotalUpserted, result.Batches)
		return nil
	})
}
