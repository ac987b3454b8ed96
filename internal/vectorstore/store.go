// Package vectorstore persists embedded chunks in PostgreSQL with
// pgvector and serves cosine-similarity search over them.
//
// The store assumes the chunks table from db/migrations already exists;
// schema setup runs at application startup, not here. Init verifies
// connectivity and that the table's vector column width matches the
// configured embedding dimension, and every operation fails fast until
// that check has passed.
package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"

	"github.com/kavi0/sherpa/internal/fault"
	"github.com/kavi0/sherpa/internal/log"
	"github.com/kavi0/sherpa/internal/pipeline"
)

const (
	defaultBatchSize = 100
	defaultTopK      = 3

	pingTimeout   = 5 * time.Second
	searchTimeout = 10 * time.Second
)

// filterColumns maps supported search filter keys to the columns they
// query. Keys outside this map are rejected rather than interpolated.
var filterColumns = map[string]string{
	"title":  "title",
	"url":    "url",
	"source": "source",
}

const (
	dimensionSQL = `SELECT atttypmod FROM pg_attribute WHERE attrelid = 'chunks'::regclass AND attname = 'embedding'`

	upsertSQL = `
		INSERT INTO chunks (id, content, embedding, title, url, source, chunk_index, total_chunks, extra, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		ON CONFLICT (id) DO UPDATE SET
			content      = EXCLUDED.content,
			embedding    = EXCLUDED.embedding,
			title        = EXCLUDED.title,
			url          = EXCLUDED.url,
			source       = EXCLUDED.source,
			chunk_index  = EXCLUDED.chunk_index,
			total_chunks = EXCLUDED.total_chunks,
			extra        = EXCLUDED.extra,
			updated_at   = now()`

	searchSQL = `
		SELECT id, content, title, url, source, chunk_index, total_chunks, extra,
		       1 - (embedding <=> $1) AS score
		FROM chunks`

	deleteAllSQL = `DELETE FROM chunks`
	countSQL     = `SELECT count(*) FROM chunks`
)

// Pool is the subset of pgxpool.Pool the store uses. Declared here so
// tests can substitute a fake.
type Pool interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Config holds vector store settings.
type Config struct {
	// Dimension is the embedding width the chunks table must carry.
	Dimension int

	// Capacity is the advertised index capacity, used only for the
	// fullness figure in Stats.
	Capacity int

	// BatchSize is the number of rows written per upsert batch.
	// Defaults to 100.
	BatchSize int
}

// Store reads and writes embedded chunks through a pgx connection pool.
type Store struct {
	pool      Pool
	logger    log.Logger
	dimension int
	capacity  int
	batchSize int
	ready     atomic.Bool
}

// New creates a Store. Init must be called before any other operation.
func New(pool Pool, cfg Config, logger log.Logger) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("dimension must be positive, got %d", cfg.Dimension)
	}
	if cfg.Capacity <= 0 {
		return nil, fmt.Errorf("capacity must be positive, got %d", cfg.Capacity)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}

	return &Store{
		pool:      pool,
		logger:    logger,
		dimension: cfg.Dimension,
		capacity:  cfg.Capacity,
		batchSize: cfg.BatchSize,
	}, nil
}

// Init verifies the database is reachable and that the chunks table
// stores vectors of the configured dimension. Until Init succeeds every
// other operation returns a not-initialized configuration error.
func (s *Store) Init(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := s.pool.Ping(pingCtx); err != nil {
		return fault.Wrap(fault.KindStore, err, "pinging vector store")
	}

	// atttypmod carries the declared vector width for pgvector columns.
	var width int
	if err := s.pool.QueryRow(ctx, dimensionSQL).Scan(&width); err != nil {
		return fault.Wrap(fault.KindStore, err, "reading embedding column width")
	}
	if width != s.dimension {
		return fault.Config("embedding dimension mismatch: chunks table stores %d, configuration expects %d", width, s.dimension)
	}

	s.ready.Store(true)
	s.logger.Info("vector store initialized",
		"dimension", s.dimension,
		"capacity", s.capacity,
		"batch_size", s.batchSize)
	return nil
}

// Initialized reports whether Init has completed successfully.
func (s *Store) Initialized() bool {
	return s.ready.Load()
}

func (s *Store) guard() error {
	if !s.ready.Load() {
		return fault.Config("vector store not initialized")
	}
	return nil
}

// Upsert writes embedded chunks in fixed-size batches, strictly in
// order. Every embedding is validated before the first batch goes out.
// If a batch fails the run stops and the error reports which batch;
// batches already sent stay persisted.
func (s *Store) Upsert(ctx context.Context, chunks []pipeline.Chunk) (UpsertStats, error) {
	if err := s.guard(); err != nil {
		return UpsertStats{}, err
	}
	if len(chunks) == 0 {
		return UpsertStats{}, nil
	}

	for _, c := range chunks {
		if len(c.Embedding) != s.dimension {
			return UpsertStats{}, fault.Store("chunk %q has a %d-dimension embedding, want %d", c.ID, len(c.Embedding), s.dimension)
		}
	}

	var stats UpsertStats
	for start := 0; start < len(chunks); start += s.batchSize {
		end := min(start+s.batchSize, len(chunks))
		if err := s.upsertBatch(ctx, chunks[start:end]); err != nil {
			return stats, fault.Wrap(fault.KindStore, err, "upserting batch %d", stats.Batches+1)
		}
		stats.Upserted += end - start
		stats.Batches++
		s.logger.Debug("batch upserted", "batch", stats.Batches, "records", end-start)
	}

	s.logger.Info("chunks upserted", "total_upserted", stats.Upserted, "batches", stats.Batches)
	return stats, nil
}

func (s *Store) upsertBatch(ctx context.Context, chunks []pipeline.Chunk) error {
	batch := &pgx.Batch{}
	for _, c := range chunks {
		extra := c.Extra
		if extra == nil {
			extra = map[string]string{}
		}
		encoded, err := json.Marshal(extra)
		if err != nil {
			return fmt.Errorf("encoding extra metadata for %q: %w", c.ID, err)
		}
		batch.Queue(upsertSQL,
			c.ID, c.Text, pgvector.NewVector(c.Embedding),
			c.Title, c.URL, c.Source, c.Index, c.TotalChunks, encoded)
	}

	results := s.pool.SendBatch(ctx, batch)
	for _, c := range chunks {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("record %q: %w", c.ID, err)
		}
	}
	return results.Close()
}

// Search returns up to topK chunks nearest to vector by cosine
// distance, best match first. Score is 1 minus the distance, so higher
// is closer.
func (s *Store) Search(ctx context.Context, vector []float32, opts ...SearchOption) ([]Document, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	if len(vector) != s.dimension {
		return nil, fault.Store("query vector has %d dimensions, want %d", len(vector), s.dimension)
	}

	cfg := buildSearchConfig(opts)
	if cfg.topK <= 0 {
		return nil, fault.Validation("top_k must be positive, got %d", cfg.topK)
	}

	query := searchSQL
	args := []any{pgvector.NewVector(vector)}
	if len(cfg.filters) > 0 {
		conds := make([]string, 0, len(cfg.filters))
		for _, f := range cfg.filters {
			col, ok := filterColumns[f.key]
			if !ok {
				return nil, fault.Validation("unsupported filter key %q", f.key)
			}
			args = append(args, f.value)
			conds = append(conds, fmt.Sprintf("%s = $%d", col, len(args)))
		}
		query += "\n\t\tWHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, cfg.topK)
	query += fmt.Sprintf("\n\t\tORDER BY embedding <=> $1\n\t\tLIMIT $%d", len(args))

	searchCtx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	rows, err := s.pool.Query(searchCtx, query, args...)
	if err != nil {
		return nil, fault.Wrap(fault.KindStore, err, "searching chunks")
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var (
			doc   Document
			extra []byte
		)
		if err := rows.Scan(&doc.ID, &doc.Text, &doc.Title, &doc.URL, &doc.Source,
			&doc.ChunkIndex, &doc.TotalChunks, &extra, &doc.Score); err != nil {
			return nil, fault.Wrap(fault.KindStore, err, "scanning search result")
		}
		if len(extra) > 0 && string(extra) != "null" {
			if err := json.Unmarshal(extra, &doc.Extra); err != nil {
				return nil, fault.Wrap(fault.KindStore, err, "decoding extra metadata for %q", doc.ID)
			}
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fault.Wrap(fault.KindStore, err, "reading search results")
	}

	s.logger.Debug("search complete", "matches", len(docs), "top_k", cfg.topK)
	return docs, nil
}

// DeleteAll removes every stored chunk. The table and its indexes stay
// in place so the store remains usable afterwards.
func (s *Store) DeleteAll(ctx context.Context) error {
	if err := s.guard(); err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, deleteAllSQL)
	if err != nil {
		return fault.Wrap(fault.KindStore, err, "clearing chunks")
	}

	s.logger.Info("index cleared", "deleted", tag.RowsAffected())
	return nil
}

// Stats reports how many vectors the index holds and how full it is
// relative to the configured capacity.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	if err := s.guard(); err != nil {
		return Stats{}, err
	}

	var total int64
	if err := s.pool.QueryRow(ctx, countSQL).Scan(&total); err != nil {
		return Stats{}, fault.Wrap(fault.KindStore, err, "counting chunks")
	}

	fullness := float64(total) / float64(s.capacity)
	if fullness > 1 {
		fullness = 1
	}

	return Stats{
		TotalVectors:  total,
		Dimension:     s.dimension,
		IndexFullness: fullness,
	}, nil
}
