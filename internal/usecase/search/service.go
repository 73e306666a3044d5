package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tracksearch/internal/domain"
	"github.com/kailas-cloud/tracksearch/internal/domain/document"
	"github.com/kailas-cloud/tracksearch/internal/domain/search/filter"
	"github.com/kailas-cloud/tracksearch/internal/domain/search/query"
	"github.com/kailas-cloud/tracksearch/internal/domain/search/result"
	"github.com/kailas-cloud/tracksearch/internal/metrics"
)

// Config holds query-time limits.
type Config struct {
	DefaultLimit   int
	MaxLimit       int
	MinQueryLength int
	EmbedTimeout   time.Duration // 0 = caller context only
}

// DefaultConfig returns the stock limits.
func DefaultConfig() Config {
	return Config{DefaultLimit: 20, MaxLimit: 100, MinQueryLength: 2}
}

// Stats counts indexed documents.
type Stats struct {
	Total     int `json:"total"`
	PRs       int `json:"prs"`
	WorkItems int `json:"work_items"`
}

// Service turns free-text queries into ranked documents.
type Service struct {
	store  Store
	embed  Embedder
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the clock used for relative date filters.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a search service. A nil embedder makes every search lexical-only.
func New(store Store, embed Embedder, cfg Config, logger *zap.Logger, opts ...Option) *Service {
	def := DefaultConfig()
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = def.DefaultLimit
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = def.MaxLimit
	}
	if cfg.MinQueryLength <= 0 {
		cfg.MinQueryLength = def.MinQueryLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{store: store, embed: embed, cfg: cfg, logger: logger, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Search parses q, embeds the residual text when it is long enough and
// returns at most the effective limit of ranked results.
// A nil limit means the default; any limit is clamped to [1, MaxLimit].
func (s *Service) Search(ctx context.Context, q string, limit *int) ([]result.Result, error) {
	results, _, err := s.SearchParsed(ctx, q, limit)
	return results, err
}

// SearchParsed is Search that also returns the parsed query the results were filtered with.
func (s *Service) SearchParsed(
	ctx context.Context, q string, limit *int,
) ([]result.Result, query.ParsedQuery, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []result.Result{}, query.ParsedQuery{}, nil
	}

	start := time.Now()
	parsed := query.ParseAt(q, s.now())
	effective := s.effectiveLimit(limit)

	embedding, err := s.embedQuery(ctx, parsed.SearchText)
	if err != nil {
		return nil, parsed, err
	}

	mode := "lexical"
	if embedding != nil {
		mode = "hybrid"
	}

	results, err := s.store.Search(ctx, parsed.SearchText, embedding, parsed.Filters, effective)
	if err != nil {
		return nil, parsed, fmt.Errorf("%w: search: %w", domain.ErrStore, err)
	}

	metrics.SearchRequestsTotal.WithLabelValues(mode).Inc()
	metrics.SearchDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	s.logger.Debug("search",
		zap.String("mode", mode),
		zap.String("search_text", parsed.SearchText),
		zap.Int("limit", effective),
		zap.Int("results", len(results)),
	)
	return results, parsed, nil
}

// Parse exposes the query parser with the service clock.
func (s *Service) Parse(q string) query.ParsedQuery {
	return query.ParseAt(strings.TrimSpace(q), s.now())
}

// Stats counts all documents, PRs and work items.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	pr := document.SourcePR
	wi := document.SourceWorkItem

	total, err := s.store.Count(ctx, filter.Filters{})
	if err != nil {
		return Stats{}, fmt.Errorf("%w: count: %w", domain.ErrStore, err)
	}
	prs, err := s.store.Count(ctx, filter.Filters{SourceType: &pr})
	if err != nil {
		return Stats{}, fmt.Errorf("%w: count prs: %w", domain.ErrStore, err)
	}
	items, err := s.store.Count(ctx, filter.Filters{SourceType: &wi})
	if err != nil {
		return Stats{}, fmt.Errorf("%w: count work items: %w", domain.ErrStore, err)
	}
	return Stats{Total: total, PRs: prs, WorkItems: items}, nil
}

func (s *Service) effectiveLimit(limit *int) int {
	n := s.cfg.DefaultLimit
	if limit != nil {
		n = *limit
	}
	return max(1, min(n, s.cfg.MaxLimit))
}

// embedQuery returns nil when the text is too short or no embedder is configured.
func (s *Service) embedQuery(ctx context.Context, text string) ([]float32, error) {
	if s.embed == nil || len(text) < s.cfg.MinQueryLength {
		return nil, nil
	}

	if s.cfg.EmbedTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.EmbedTimeout)
		defer cancel()
	}

	res, err := s.embed.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingProviderError, err)
	}
	domain.UsageFromContext(ctx).Record(res.TotalTokens)
	return res.Embedding, nil
}
