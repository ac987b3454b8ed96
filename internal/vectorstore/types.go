package vectorstore

// Document is one stored chunk as returned by Search.
type Document struct {
	ID          string
	Text        string
	Title       string
	URL         string
	Source      string
	ChunkIndex  int
	TotalChunks int
	Extra       map[string]string
	Score       float32 // cosine similarity of the match (1 = identical)
}

// Stats describes the index contents.
type Stats struct {
	TotalVectors  int64
	Dimension     int
	IndexFullness float64 // vectors over configured capacity, clamped to 1
}

// UpsertStats reports how much one Upsert call wrote.
type UpsertStats struct {
	Upserted int
	Batches  int
}

// SearchOption configures search behavior using the functional options
// pattern.
type SearchOption func(*searchConfig)

type filter struct {
	key   string
	value string
}

type searchConfig struct {
	topK    int
	filters []filter
}

// WithTopK sets the maximum number of results to return. Default is 3.
func WithTopK(k int) SearchOption {
	return func(c *searchConfig) {
		c.topK = k
	}
}

// WithFilter restricts results to rows whose metadata column equals
// value. Supported keys: title, url, source. Multiple filters combine
// with AND.
func WithFilter(key, value string) SearchOption {
	return func(c *searchConfig) {
		c.filters = append(c.filters, filter{key: key, value: value})
	}
}

// buildSearchConfig applies search options and returns the final
// configuration.
func buildSearchConfig(opts []SearchOption) *searchConfig {
	cfg := &searchConfig{topK: defaultTopK}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
