package tracksearch

import (
	"time"

	"go.uber.org/zap"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

const (
	driverRedis = "redis"
	driverLocal = "local"
)

type clientConfig struct {
	driver    string // "redis" or "local"
	addrs     []string
	password  string
	path      string
	indexPath string
	keyPrefix string

	readinessTimeout time.Duration
	vectorDimensions int

	embedder  Embedder
	openai    *OpenAIConfig
	cacheSize int

	source      DocumentSource
	snapshotDir string

	search  SearchConfig
	indexer IndexerConfig

	logger *zap.Logger
	now    func() time.Time
}

// OpenAIConfig describes an OpenAI-compatible embedding endpoint.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int

	// DocumentInstruction and QueryInstruction are prepended to indexed
	// documents and to search queries respectively.
	DocumentInstruction string
	QueryInstruction    string

	Timeout time.Duration
}

// WithRedis stores documents in Redis 8+ (RediSearch and RedisJSON built in).
func WithRedis(addrs []string, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = driverRedis
		c.addrs = addrs
		c.password = password
	})
}

// WithLocal stores documents in an embedded SQLite database with a Bleve text index.
// Empty paths keep both in memory.
func WithLocal(path, indexPath string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = driverLocal
		c.path = path
		c.indexPath = indexPath
	})
}

// WithKeyPrefix namespaces every Redis key and the search index. Default: "tracksearch:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithReadinessTimeout bounds how long New waits for Redis to answer. Default: 10s.
func WithReadinessTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.readinessTimeout = d
	})
}

// WithVectorDimensions sets the Redis vector field dimension.
// Defaults to the OpenAI model dimensions, or 1536.
func WithVectorDimensions(dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.vectorDimensions = dim
	})
}

// WithEmbedder sets a custom embedding provider, used both for indexing and for queries.
// Without an embedder search is lexical-only and syncing is disabled.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithOpenAI builds the embedding chain on an OpenAI-compatible endpoint,
// with caching and metrics. It takes precedence over WithEmbedder.
func WithOpenAI(cfg OpenAIConfig) Option {
	return optionFunc(func(c *clientConfig) {
		c.openai = &cfg
	})
}

// WithEmbeddingCacheSize sets the in-process embedding cache size used by the local driver.
// Default: 1024 entries.
func WithEmbeddingCacheSize(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheSize = n
	})
}

// WithSource sets the tracker the indexer pulls PRs and work items from.
func WithSource(src DocumentSource) Option {
	return optionFunc(func(c *clientConfig) {
		c.source = src
	})
}

// WithSnapshotSource reads PRs and work items from YAML snapshots under dir,
// laid out as <dir>/<organization>/<project>/{pull_requests,work_items}.yaml.
func WithSnapshotSource(dir string) Option {
	return optionFunc(func(c *clientConfig) {
		c.snapshotDir = dir
	})
}

// WithSearchConfig overrides the query-time limits.
func WithSearchConfig(cfg SearchConfig) Option {
	return optionFunc(func(c *clientConfig) {
		c.search = cfg
	})
}

// WithIndexerConfig overrides the sync pipeline settings.
func WithIndexerConfig(cfg IndexerConfig) Option {
	return optionFunc(func(c *clientConfig) {
		c.indexer = cfg
	})
}

// WithLogger enables structured logging. Default: no-op.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithClock overrides the clock used for relative date filters, sync start and indexed_at.
func WithClock(now func() time.Time) Option {
	return optionFunc(func(c *clientConfig) {
		c.now = now
	})
}
