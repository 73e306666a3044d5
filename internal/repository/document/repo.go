// Package document is the Redis backend of the document store: RedisJSON
// documents under one FT index, queried with BM25 and exact KNN.
package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/tracksearch/internal/db"
	"github.com/kailas-cloud/tracksearch/internal/domain"
	domdoc "github.com/kailas-cloud/tracksearch/internal/domain/document"
	"github.com/kailas-cloud/tracksearch/internal/domain/search/filter"
	"github.com/kailas-cloud/tracksearch/internal/domain/search/fusion"
	"github.com/kailas-cloud/tracksearch/internal/domain/search/result"
)

// staleBatch bounds how many stale keys are listed per FT.SEARCH round.
const staleBatch = 500

// store is the consumer interface for documents (ISP).
type store interface {
	JSONSetMulti(ctx context.Context, items []db.JSONSetItem) error
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
	Del(ctx context.Context, key string) error
	DelMulti(ctx context.Context, keys []string) (int, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchBM25(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
	SearchList(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, q *db.ListQuery) (int, error)
}

// Repo stores SearchDocuments in Redis.
type Repo struct {
	store  store
	prefix string
	now    func() time.Time
}

// Option configures a Repo.
type Option func(*Repo)

// WithClock overrides the clock used to stamp indexed_at.
func WithClock(now func() time.Time) Option {
	return func(r *Repo) { r.now = now }
}

// New creates a document repository. keyPrefix namespaces every key and the index.
func New(s store, keyPrefix string, opts ...Option) *Repo {
	r := &Repo{store: s, prefix: keyPrefix, now: time.Now}
	for _, o := range opts {
		o(r)
	}
	return r
}

// EnsureIndex creates the FT index if it does not exist yet.
// vectorDim must match the embedding model; 0 indexes documents without vectors.
func (r *Repo) EnsureIndex(ctx context.Context, vectorDim int) error {
	exists, err := r.store.IndexExists(ctx, r.indexName())
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	if exists {
		return nil
	}

	def, err := buildIndex(r.indexName(), r.docPrefix(), vectorDim)
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

// UpsertDocuments writes all docs in one pipeline and stamps indexed_at with the current time.
func (r *Repo) UpsertDocuments(ctx context.Context, docs []domdoc.SearchDocument) error {
	if len(docs) == 0 {
		return nil
	}

	now := r.now()
	items := make([]db.JSONSetItem, 0, len(docs))
	for i := range docs {
		d := &docs[i]
		if err := d.Validate(); err != nil {
			return fmt.Errorf("%w: %s: %w", domain.ErrInvalidDocument, d.Key(), err)
		}
		data, err := json.Marshal(toJSONDoc(d, now))
		if err != nil {
			return fmt.Errorf("marshal %s: %w", d.Key(), err)
		}
		items = append(items, db.JSONSetItem{Key: r.docKey(d.SourceType, d.SourceID), Path: "$", Data: data})
	}

	if err := r.store.JSONSetMulti(ctx, items); err != nil {
		return fmt.Errorf("upsert %d documents: %w", len(items), err)
	}
	return nil
}

// GetDocument returns one document, including its embedding.
func (r *Repo) GetDocument(ctx context.Context, t domdoc.SourceType, sourceID string) (domdoc.SearchDocument, error) {
	key := r.docKey(t, sourceID)
	raw, err := r.store.JSONGet(ctx, key, "$")
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domdoc.SearchDocument{}, domain.ErrDocumentNotFound
		}
		return domdoc.SearchDocument{}, fmt.Errorf("json.get %s: %w", key, err)
	}

	// JSON.GET with a JSONPath returns an array of matches.
	var docs []jsonDoc
	if err := json.Unmarshal(raw, &docs); err != nil {
		return domdoc.SearchDocument{}, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	if len(docs) == 0 {
		return domdoc.SearchDocument{}, domain.ErrDocumentNotFound
	}
	return docs[0].toDomain(), nil
}

// DeleteDocument removes one document.
func (r *Repo) DeleteDocument(ctx context.Context, t domdoc.SourceType, sourceID string) error {
	key := r.docKey(t, sourceID)

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check exists %s: %w", key, err)
	}
	if !exists {
		return domain.ErrDocumentNotFound
	}
	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("del %s: %w", key, err)
	}
	return nil
}

// DeleteStaleDocuments removes every document with indexed_at strictly before cutoff.
// When types are given only documents of those source types are considered.
func (r *Repo) DeleteStaleDocuments(ctx context.Context, cutoff time.Time, types ...domdoc.SourceType) (int, error) {
	if len(types) == 0 {
		return r.deleteStale(ctx, cutoff, filter.Filters{})
	}
	var total int
	for _, t := range types {
		n, err := r.deleteStale(ctx, cutoff, filter.Filters{SourceType: &t})
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (r *Repo) deleteStale(ctx context.Context, cutoff time.Time, f filter.Filters) (int, error) {
	q := &db.ListQuery{
		IndexName:    r.indexName(),
		Filters:      f,
		Ranges:       []db.NumericRange{db.Below(db.FieldIndexedAt, float64(cutoff.UnixMilli()))},
		Limit:        staleBatch,
		ReturnFields: []string{db.FieldDocKey},
	}

	var total int
	for {
		sr, err := r.store.SearchList(ctx, q)
		if err != nil {
			return total, fmt.Errorf("list stale documents: %w", err)
		}
		if sr == nil || len(sr.Entries) == 0 {
			return total, nil
		}

		keys := make([]string, len(sr.Entries))
		for i, e := range sr.Entries {
			keys[i] = e.Key
		}
		n, err := r.store.DelMulti(ctx, keys)
		if err != nil {
			return total, fmt.Errorf("delete stale documents: %w", err)
		}
		total += n
		// The index drops deleted keys synchronously; nothing removed means nothing left to find.
		if n == 0 || len(sr.Entries) < staleBatch {
			return total, nil
		}
	}
}

// Count returns how many documents match f.
func (r *Repo) Count(ctx context.Context, f filter.Filters) (int, error) {
	n, err := r.store.SearchCount(ctx, &db.ListQuery{IndexName: r.indexName(), Filters: f})
	if err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

// LexicalPool ranks up to n filtered documents by BM25 over title, description and content.
// Empty text selects every filtered document with score 0 in key order.
func (r *Repo) LexicalPool(ctx context.Context, text string, f filter.Filters, n int) ([]result.Result, error) {
	if n <= 0 {
		return nil, nil
	}

	var (
		sr  *db.SearchResult
		err error
	)
	if text == "" {
		sr, err = r.store.SearchList(ctx, &db.ListQuery{
			IndexName:    r.indexName(),
			Filters:      f,
			Limit:        n,
			SortBy:       db.FieldDocKey,
			ReturnFields: []string{"$"},
		})
	} else {
		sr, err = r.store.SearchBM25(ctx, &db.TextQuery{
			IndexName:    r.indexName(),
			Query:        text,
			TextFields:   db.TextFields,
			Filters:      f,
			TopK:         n,
			ReturnFields: []string{"$"},
		})
	}
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}
	return toResults(sr)
}

// VectorPool ranks up to n filtered documents by cosine similarity to vec.
// Documents without an embedding never appear.
func (r *Repo) VectorPool(ctx context.Context, vec []float32, f filter.Filters, n int) ([]result.Result, error) {
	if n <= 0 || len(vec) == 0 {
		return nil, nil
	}
	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.indexName(),
		VectorField:  db.FieldEmbedding,
		Filters:      f,
		Vector:       vec,
		K:            n,
		ReturnFields: []string{"$"},
	})
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	return toResults(sr)
}

// toResults decodes hits and orders them by score descending, key ascending.
func toResults(sr *db.SearchResult) ([]result.Result, error) {
	if sr == nil || len(sr.Entries) == 0 {
		return nil, nil
	}

	byKey := make(map[string]result.Result, len(sr.Entries))
	hits := make([]fusion.Hit, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		raw, ok := e.Fields["$"]
		if !ok {
			return nil, fmt.Errorf("search hit %s: document body missing", e.Key)
		}
		var j jsonDoc
		if err := json.Unmarshal([]byte(raw), &j); err != nil {
			return nil, fmt.Errorf("unmarshal hit %s: %w", e.Key, err)
		}
		doc := j.toDomain()
		byKey[doc.Key()] = result.New(doc, e.Score)
		hits = append(hits, fusion.Hit{Key: doc.Key(), Score: e.Score})
	}

	fusion.Rank(hits)
	out := make([]result.Result, len(hits))
	for i, h := range hits {
		out[i] = byKey[h.Key]
	}
	return out, nil
}

func (r *Repo) docPrefix() string {
	return r.prefix + "doc:"
}

func (r *Repo) docKey(t domdoc.SourceType, sourceID string) string {
	return r.docPrefix() + domdoc.Key(t, sourceID)
}

func (r *Repo) indexName() string {
	return r.prefix + "docs:idx"
}
