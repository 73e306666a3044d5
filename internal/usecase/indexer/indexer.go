// Package indexer keeps the document store in sync with a document source.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/tracksearch/internal/domain"
	"github.com/kailas-cloud/tracksearch/internal/domain/document"
	"github.com/kailas-cloud/tracksearch/internal/domain/source"
	"github.com/kailas-cloud/tracksearch/internal/metrics"
)

// Config holds sync pipeline settings.
type Config struct {
	EmbeddingBatchSize  int
	StaleThresholdHours int
	CleanupStale        bool
	Workers             int
	// WorkItemsSince limits work-item fetches to the last window before sync start. 0 = full pull.
	WorkItemsSince time.Duration
}

// DefaultConfig returns the stock pipeline settings.
func DefaultConfig() Config {
	return Config{
		EmbeddingBatchSize:  10,
		StaleThresholdHours: 48,
		CleanupStale:        true,
		Workers:             4,
	}
}

// Stats summarises one project sync.
type Stats struct {
	PRsIndexed       int           `json:"prs_indexed"`
	WorkItemsIndexed int           `json:"work_items_indexed"`
	DocumentsDeleted int           `json:"documents_deleted"`
	Errors           int           `json:"errors"`
	Duration         time.Duration `json:"duration_ns"`
}

// Indexer pulls records from a source, embeds them in batches and upserts them.
type Indexer struct {
	source DocumentSource
	store  Store
	embed  domain.Embedder
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithClock overrides the clock that anchors sync start.
func WithClock(now func() time.Time) Option {
	return func(ix *Indexer) { ix.now = now }
}

// New creates an indexer. Non-positive batch size, threshold and workers fall back to defaults.
func New(src DocumentSource, store Store, embed domain.Embedder, cfg Config, logger *zap.Logger, opts ...Option) *Indexer {
	def := DefaultConfig()
	if cfg.EmbeddingBatchSize <= 0 {
		cfg.EmbeddingBatchSize = def.EmbeddingBatchSize
	}
	if cfg.StaleThresholdHours <= 0 {
		cfg.StaleThresholdHours = def.StaleThresholdHours
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ix := &Indexer{source: src, store: store, embed: embed, cfg: cfg, logger: logger, now: time.Now}
	for _, o := range opts {
		o(ix)
	}
	return ix
}

// counters are shared by the concurrently running stages.
type counters struct {
	prs, workItems, deleted, errors atomic.Int64
}

// SyncProject indexes every PR and work item of org/project, then evicts
// documents not refreshed within the stale threshold of this sync's start.
// With an incremental work-item window only PRs are evicted, since unchanged
// work items are not fetched and so never refreshed.
//
// Rejected records and batch, stage and cleanup failures are counted in
// Stats.Errors and never abort the sync. An error is returned only for an empty org or project
// and for a cancelled context.
func (ix *Indexer) SyncProject(ctx context.Context, org, project string) (Stats, error) {
	if org == "" || project == "" {
		return Stats{}, fmt.Errorf("%w: organization and project are required", domain.ErrInvalidQuery)
	}

	syncStart := ix.now()
	log := ix.logger.With(zap.String("organization", org), zap.String("project", project))
	var c counters

	var stages errgroup.Group
	stages.Go(func() error {
		ix.syncPullRequests(ctx, log, org, project, &c)
		return nil
	})
	stages.Go(func() error {
		ix.syncWorkItems(ctx, log, org, project, syncStart, &c)
		return nil
	})
	_ = stages.Wait()

	if err := ctx.Err(); err != nil {
		return ix.stats(&c, syncStart), fmt.Errorf("sync %s/%s: %w", org, project, err)
	}

	if ix.cfg.CleanupStale {
		cutoff := syncStart.Add(-time.Duration(ix.cfg.StaleThresholdHours) * time.Hour)
		n, err := ix.store.DeleteStaleDocuments(ctx, cutoff, ix.staleTypes()...)
		if err != nil {
			log.Warn("stale cleanup failed", zap.Time("cutoff", cutoff), zap.Error(err))
			c.errors.Add(1)
			metrics.SyncErrorsTotal.Inc()
		} else {
			c.deleted.Add(int64(n))
			metrics.SyncDeletedTotal.Add(float64(n))
		}
	}

	stats := ix.stats(&c, syncStart)
	log.Info("project synced",
		zap.Int("prs_indexed", stats.PRsIndexed),
		zap.Int("work_items_indexed", stats.WorkItemsIndexed),
		zap.Int("documents_deleted", stats.DocumentsDeleted),
		zap.Int("errors", stats.Errors),
		zap.Duration("duration", stats.Duration),
	)
	return stats, nil
}

// staleTypes limits cleanup to the source types that are fully re-fetched on every sync.
func (ix *Indexer) staleTypes() []document.SourceType {
	if ix.cfg.WorkItemsSince > 0 {
		return []document.SourceType{document.SourcePR}
	}
	return nil
}

func (ix *Indexer) stats(c *counters, syncStart time.Time) Stats {
	return Stats{
		PRsIndexed:       int(c.prs.Load()),
		WorkItemsIndexed: int(c.workItems.Load()),
		DocumentsDeleted: int(c.deleted.Load()),
		Errors:           int(c.errors.Load()),
		Duration:         ix.now().Sub(syncStart),
	}
}

func (ix *Indexer) syncPullRequests(ctx context.Context, log *zap.Logger, org, project string, c *counters) {
	prs, err := ix.source.FetchPullRequests(ctx, org, project)
	if err != nil {
		log.Warn("fetch pull requests failed", zap.Error(err))
		c.errors.Add(1)
		metrics.SyncErrorsTotal.Inc()
		return
	}

	indexed, failed := runBatches(ctx, ix, log.With(zap.String("stage", "pull_requests")), prs,
		func(p source.PullRequest) (document.SearchDocument, string) {
			return p.ToDocument(org, project, nil), p.EmbeddingText()
		},
	)
	c.prs.Add(int64(indexed))
	c.errors.Add(int64(failed))
	metrics.SyncDocumentsTotal.WithLabelValues(string(document.SourcePR)).Add(float64(indexed))

	log.Info("pull requests indexed",
		zap.Int("fetched", len(prs)), zap.Int("indexed", indexed), zap.Int("failed", failed))
}

func (ix *Indexer) syncWorkItems(
	ctx context.Context, log *zap.Logger, org, project string, syncStart time.Time, c *counters,
) {
	var since *time.Time
	if ix.cfg.WorkItemsSince > 0 {
		t := syncStart.Add(-ix.cfg.WorkItemsSince)
		since = &t
	}

	items, err := ix.source.FetchWorkItems(ctx, org, project, since)
	if err != nil {
		log.Warn("fetch work items failed", zap.Error(err))
		c.errors.Add(1)
		metrics.SyncErrorsTotal.Inc()
		return
	}

	indexed, failed := runBatches(ctx, ix, log.With(zap.String("stage", "work_items")), items,
		func(w source.WorkItem) (document.SearchDocument, string) {
			return w.ToDocument(org, project, nil), w.EmbeddingText()
		},
	)
	c.workItems.Add(int64(indexed))
	c.errors.Add(int64(failed))
	metrics.SyncDocumentsTotal.WithLabelValues(string(document.SourceWorkItem)).Add(float64(indexed))

	log.Info("work items indexed",
		zap.Int("fetched", len(items)), zap.Int("indexed", indexed), zap.Int("failed", failed))
}

// pending is a converted record waiting for its embedding.
type pending struct {
	doc  document.SearchDocument
	text string
}

// runBatches converts and validates items, then embeds and upserts the valid
// ones in batches on a bounded worker pool. It returns the number of documents
// written and the number of failures: one per rejected record, one per failed batch.
func runBatches[T any](
	ctx context.Context, ix *Indexer, log *zap.Logger, items []T,
	convert func(T) (document.SearchDocument, string),
) (indexed, failed int) {
	valid := make([]pending, 0, len(items))
	rejected := 0
	for _, item := range items {
		doc, text := convert(item)
		if err := doc.Validate(); err != nil {
			log.Warn("record rejected", zap.String("key", doc.Key()), zap.Error(err))
			rejected++
			metrics.SyncErrorsTotal.Inc()
			continue
		}
		valid = append(valid, pending{doc: doc, text: text})
	}

	var written, errs atomic.Int64

	var g errgroup.Group
	g.SetLimit(ix.cfg.Workers)

	size := ix.cfg.EmbeddingBatchSize
	for offset := 0; offset < len(valid); offset += size {
		batch := valid[offset:min(offset+size, len(valid))]
		g.Go(func() error {
			n, err := indexBatch(ctx, ix, batch)
			if err != nil {
				log.Warn("batch failed",
					zap.Int("offset", offset), zap.Int("size", len(batch)), zap.Error(err))
				errs.Add(1)
				metrics.SyncErrorsTotal.Inc()
				return nil
			}
			written.Add(int64(n))
			return nil
		})
	}
	_ = g.Wait()

	return int(written.Load()), rejected + int(errs.Load())
}

// indexBatch makes one embedding call and one store write for the batch.
func indexBatch(ctx context.Context, ix *Indexer, batch []pending) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err //nolint:wrapcheck // cancellation
	}

	texts := make([]string, len(batch))
	for i, p := range batch {
		texts[i] = p.text
	}

	res, err := domain.BatchEmbed(ctx, ix.embed, texts)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrEmbeddingProviderError, err)
	}
	if err = res.CheckCount(len(batch)); err != nil {
		return 0, err
	}

	docs := make([]document.SearchDocument, len(batch))
	for i, p := range batch {
		docs[i] = p.doc
		docs[i].Embedding = res.Embeddings[i]
	}

	if err = ix.store.UpsertDocuments(ctx, docs); err != nil {
		if errors.Is(err, domain.ErrInvalidDocument) {
			return 0, fmt.Errorf("upsert: %w", err)
		}
		return 0, fmt.Errorf("%w: upsert: %w", domain.ErrStore, err)
	}
	return len(docs), nil
}
