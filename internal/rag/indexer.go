package rag

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"github.com/kavi0/sherpa/internal/articles"
	"github.com/kavi0/sherpa/internal/fault"
	"github.com/kavi0/sherpa/internal/log"
	"github.com/kavi0/sherpa/internal/pipeline"
	"github.com/kavi0/sherpa/internal/vectorstore"
)

// Writer defines the storage operations the Indexer needs. Interfaces
// are defined by the consumer, not the provider; *vectorstore.Store
// satisfies this through duck typing.
type Writer interface {
	Upsert(ctx context.Context, chunks []pipeline.Chunk) (vectorstore.UpsertStats, error)
	DeleteAll(ctx context.Context) error
}

// Loader supplies the articles a populate run indexes.
type Loader func(ctx context.Context) ([]articles.Article, error)

// ErrNoArticles reports a populate run whose loader produced nothing to
// index.
var ErrNoArticles = fault.Ingestion("no articles loaded")

// BuiltinLoader returns the bundled help-center corpus.
func BuiltinLoader(context.Context) ([]articles.Article, error) {
	return articles.Load(), nil
}

// PopulateResult reports one completed populate run.
type PopulateResult struct {
	ArticlesProcessed int
	ChunksCreated     int
	TotalUpserted     int
	Batches           int
}

// Indexer owns the corpus lifecycle: populate loads articles, runs them
// through the chunk and embed pipeline, and upserts the result; clear
// wipes the index. Runs are serialized with an in-process mutex plus a
// file lock, so a populate over HTTP and a CLI run on the same host
// cannot interleave writes.
type Indexer struct {
	pipeline *pipeline.Pipeline
	store    Writer
	loader   Loader
	logger   log.Logger

	mu   sync.Mutex
	lock *flock.Flock
}

// DefaultLockPath returns the index lock file location used when the
// caller does not configure one.
func DefaultLockPath() string {
	return filepath.Join(os.TempDir(), "sherpa-index.lock")
}

// NewIndexer creates an Indexer. An empty lockPath falls back to
// DefaultLockPath.
func NewIndexer(p *pipeline.Pipeline, store Writer, loader Loader, lockPath string, logger log.Logger) (*Indexer, error) {
	if p == nil {
		return nil, fmt.Errorf("pipeline is required")
	}
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if loader == nil {
		return nil, fmt.Errorf("loader is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if lockPath == "" {
		lockPath = DefaultLockPath()
	}

	return &Indexer{
		pipeline: p,
		store:    store,
		loader:   loader,
		logger:   logger,
		lock:     flock.New(lockPath),
	}, nil
}

// Populate loads articles, chunks and embeds them, and upserts the
// vectors. A concurrent Populate or Clear waits for the running one to
// finish rather than failing.
func (ix *Indexer) Populate(ctx context.Context) (PopulateResult, error) {
	unlock, err := ix.acquire()
	if err != nil {
		return PopulateResult{}, err
	}
	defer unlock()

	ix.logger.Info("index population started")

	arts, err := ix.loader(ctx)
	if err != nil {
		return PopulateResult{}, err
	}
	if len(arts) == 0 {
		return PopulateResult{}, ErrNoArticles
	}

	chunks, err := ix.pipeline.Process(ctx, arts)
	if err != nil {
		return PopulateResult{}, err
	}

	stats, err := ix.store.Upsert(ctx, chunks)
	if err != nil {
		return PopulateResult{}, err
	}

	result := PopulateResult{
		ArticlesProcessed: len(arts),
		ChunksCreated:     len(chunks),
		TotalUpserted:     stats.Upserted,
		Batches:           stats.Batches,
	}
	ix.logger.Info("index population complete",
		"articles_processed", result.ArticlesProcessed,
		"chunks_created", result.ChunksCreated,
		"total_upserted", result.TotalUpserted,
		"batches", result.Batches)
	return result, nil
}

// Clear deletes every vector from the index.
func (ix *Indexer) Clear(ctx context.Context) error {
	unlock, err := ix.acquire()
	if err != nil {
		return err
	}
	defer unlock()

	ix.logger.Warn("clearing index, all vectors will be deleted")
	return ix.store.DeleteAll(ctx)
}

// acquire takes the in-process mutex and then the cross-process file
// lock. The returned function releases both in reverse order.
func (ix *Indexer) acquire() (func(), error) {
	ix.mu.Lock()
	if err := ix.lock.Lock(); err != nil {
		ix.mu.Unlock()
		return nil, fault.Wrap(fault.KindStore, err, "acquiring index lock %s", ix.lock.Path())
	}
	return func() {
		if err := ix.lock.Unlock(); err != nil {
			ix.logger.Warn("releasing index lock", "error", err)
		}
		ix.mu.Unlock()
	}, nil
}
