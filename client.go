package tracksearch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	dbRedis "github.com/kailas-cloud/tracksearch/internal/db/redis"
	"github.com/kailas-cloud/tracksearch/internal/domain"
	"github.com/kailas-cloud/tracksearch/internal/metrics"
	documentrepo "github.com/kailas-cloud/tracksearch/internal/repository/document"
	"github.com/kailas-cloud/tracksearch/internal/repository/embcache"
	"github.com/kailas-cloud/tracksearch/internal/repository/local"
	searchrepo "github.com/kailas-cloud/tracksearch/internal/repository/search"
	chiTransport "github.com/kailas-cloud/tracksearch/internal/transport/chi"
	openaiEmb "github.com/kailas-cloud/tracksearch/internal/transport/openai"
	"github.com/kailas-cloud/tracksearch/internal/transport/snapshot"
	embeddinguc "github.com/kailas-cloud/tracksearch/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/tracksearch/internal/usecase/health"
	"github.com/kailas-cloud/tracksearch/internal/usecase/indexer"
	searchuc "github.com/kailas-cloud/tracksearch/internal/usecase/search"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultKeyPrefix        = "tracksearch:"
	defaultVectorDimensions = 1536
	defaultCacheSize        = 1024
	openAIProvider          = "openai"
)

// Client is the tracksearch SDK entry point.
type Client struct {
	repo      *searchrepo.Repo
	pinger    healthuc.DBPinger
	closeFn   func() error
	searchSvc *searchuc.Service
	indexer   *indexer.Indexer // nil when sync is not configured
	healthSvc *healthuc.Service
	logger    *zap.Logger
}

// cacheStore is where embeddings are cached.
type cacheStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// New creates a Client, opens the document store and wires the services.
// The local in-memory driver is used when no driver option is given.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		driver:           driverLocal,
		keyPrefix:        defaultKeyPrefix,
		readinessTimeout: defaultReadinessTimeout,
		cacheSize:        defaultCacheSize,
		search:           searchuc.DefaultConfig(),
		indexer:          indexer.DefaultConfig(),
		now:              time.Now,
	}
	for _, o := range opts {
		o.apply(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}

	switch cfg.driver {
	case driverRedis:
		return newRedisClient(ctx, cfg)
	case driverLocal:
		return newLocalClient(ctx, cfg)
	default:
		return nil, fmt.Errorf("tracksearch: unknown driver %q", cfg.driver)
	}
}

func newRedisClient(ctx context.Context, cfg *clientConfig) (*Client, error) {
	if len(cfg.addrs) == 0 {
		return nil, errors.New("tracksearch: redis address required")
	}

	store, err := dbRedis.NewStore(dbRedis.Config{Addrs: cfg.addrs, Password: cfg.password})
	if err != nil {
		return nil, fmt.Errorf("tracksearch: create redis store: %w", err)
	}
	if err := store.WaitForReady(ctx, cfg.readinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("tracksearch: database not ready: %w", err)
	}

	docRepo := documentrepo.New(store, cfg.keyPrefix, documentrepo.WithClock(cfg.now))
	if err := docRepo.EnsureIndex(ctx, vectorDimensions(cfg)); err != nil {
		store.Close()
		return nil, fmt.Errorf("tracksearch: ensure index: %w", err)
	}

	closeFn := func() error {
		store.Close()
		return nil
	}
	return wireClient(cfg, docRepo, store, store, closeFn)
}

func newLocalClient(ctx context.Context, cfg *clientConfig) (*Client, error) {
	store, err := local.Open(ctx, local.Config{Path: cfg.path, IndexPath: cfg.indexPath}, local.WithClock(cfg.now))
	if err != nil {
		return nil, fmt.Errorf("tracksearch: open local store: %w", err)
	}

	cache, err := embcache.NewLRUStore(cfg.cacheSize)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("tracksearch: create embedding cache: %w", err)
	}
	return wireClient(cfg, store, store, cache, store.Close)
}

func wireClient(
	cfg *clientConfig,
	backend searchrepo.Backend,
	pinger healthuc.DBPinger,
	cache cacheStore,
	closeFn func() error,
) (*Client, error) {
	repo := searchrepo.New(backend)
	embedder := buildEmbedder(cfg, cache)

	searchSvc := searchuc.New(repo, embedder, cfg.search, cfg.logger, searchuc.WithClock(cfg.now))

	src := cfg.source
	if src == nil && cfg.snapshotDir != "" {
		src = snapshot.New(cfg.snapshotDir)
	}

	var ix *indexer.Indexer
	if src != nil && embedder != nil {
		ix = indexer.New(src, repo, embedder, cfg.indexer, cfg.logger, indexer.WithClock(cfg.now))
	}

	// Optional checkers stay untyped nil when absent.
	var embChecker healthuc.EmbeddingChecker
	if embedder != nil {
		embChecker = &embeddingHealthChecker{embedder: embedder}
	}
	var srcChecker healthuc.SourceChecker
	if sc, ok := src.(healthuc.SourceChecker); ok {
		srcChecker = sc
	}

	return &Client{
		repo:      repo,
		pinger:    pinger,
		closeFn:   closeFn,
		searchSvc: searchSvc,
		indexer:   ix,
		healthSvc: healthuc.New(pinger, embChecker, srcChecker),
		logger:    cfg.logger,
	}, nil
}

// Close releases the document store.
func (c *Client) Close() error {
	if c.closeFn == nil {
		return nil
	}
	if err := c.closeFn(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	return nil
}

// Ping checks document store connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.pinger.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Search runs a natural-language query. A limit of 0 means the default;
// any other value is clamped to [1, max limit].
func (c *Client) Search(ctx context.Context, q string, limit int) ([]Result, error) {
	var lp *int
	if limit != 0 {
		lp = &limit
	}
	res, err := c.searchSvc.Search(ctx, q, lp)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return res, nil
}

// SearchParsed is Search that also returns the parsed query the results were filtered with.
func (c *Client) SearchParsed(ctx context.Context, q string, limit int) ([]Result, ParsedQuery, error) {
	var lp *int
	if limit != 0 {
		lp = &limit
	}
	res, parsed, err := c.searchSvc.SearchParsed(ctx, q, lp)
	if err != nil {
		return nil, parsed, fmt.Errorf("search: %w", err)
	}
	return res, parsed, nil
}

// Parse returns the filters and residual text extracted from q.
func (c *Client) Parse(q string) ParsedQuery {
	return c.searchSvc.Parse(q)
}

// Stats counts indexed documents by source type.
func (c *Client) Stats(ctx context.Context) (Stats, error) {
	st, err := c.searchSvc.Stats(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("stats: %w", err)
	}
	return st, nil
}

// GetDocument loads one document by source type and source id.
func (c *Client) GetDocument(ctx context.Context, t SourceType, sourceID string) (Document, error) {
	doc, err := c.repo.GetDocument(ctx, t, sourceID)
	if err != nil {
		return Document{}, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// SyncProject indexes every PR and work item of org/project and evicts stale documents.
func (c *Client) SyncProject(ctx context.Context, org, project string) (SyncStats, error) {
	if c.indexer == nil {
		return SyncStats{}, ErrNotConfigured
	}
	st, err := c.indexer.SyncProject(ctx, org, project)
	if err != nil {
		return st, fmt.Errorf("sync project: %w", err)
	}
	return st, nil
}

// RunScheduler syncs projects now and then every interval until ctx is cancelled.
func (c *Client) RunScheduler(ctx context.Context, projects []Project, interval time.Duration) error {
	if c.indexer == nil {
		return ErrNotConfigured
	}
	indexer.NewScheduler(c.indexer, projects, interval, c.logger).Run(ctx)
	return nil
}

// Health checks the document store, the embedder and the source.
func (c *Client) Health(ctx context.Context) HealthReport {
	return c.healthSvc.Check(ctx)
}

// Handler returns the HTTP API. Requests must carry one of apiKeys as a
// bearer token; an empty list disables authentication.
func (c *Client) Handler(apiKeys []string) http.Handler {
	var syncer chiTransport.Syncer
	if c.indexer != nil {
		syncer = c.indexer
	}
	server := chiTransport.NewServer(c.searchSvc, syncer, c.repo, c.healthSvc, c.logger)
	return chiTransport.NewRouter(server, apiKeys)
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Instruction.
// Returns nil when no embedder is configured.
func buildEmbedder(cfg *clientConfig, cache cacheStore) domain.Embedder {
	if cfg.openai == nil {
		return cfg.embedder
	}
	oc := cfg.openai

	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     oc.APIKey,
		BaseURL:    oc.BaseURL,
		Model:      oc.Model,
		Dimensions: oc.Dimensions,
		Provider:   openAIProvider,
		Logger:     cfg.logger,
	})

	namespace := fmt.Sprintf("%semb:%s:%d:", cfg.keyPrefix, oc.Model, oc.Dimensions)
	var embedder domain.Embedder = embcache.New(base, cache, namespace, metrics.EmbeddingCacheTotal, cfg.logger)

	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, openAIProvider, oc.Model, oc.Timeout, cfg.logger)

	// Outermost, so cache keys include the instruction.
	if oc.DocumentInstruction != "" || oc.QueryInstruction != "" {
		embedder = domain.NewInstructionEmbedder(embedder, domain.Instructions{
			Document: oc.DocumentInstruction,
			Query:    oc.QueryInstruction,
		})
	}
	return embedder
}

func vectorDimensions(cfg *clientConfig) int {
	switch {
	case cfg.vectorDimensions > 0:
		return cfg.vectorDimensions
	case cfg.openai != nil && cfg.openai.Dimensions > 0:
		return cfg.openai.Dimensions
	default:
		return defaultVectorDimensions
	}
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}
