// Package search is the hybrid retrieval engine shared by every store backend.
// Backends produce ranked candidate pools; this package fuses them.
package search

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/tracksearch/internal/domain/document"
	"github.com/kailas-cloud/tracksearch/internal/domain/search/filter"
	"github.com/kailas-cloud/tracksearch/internal/domain/search/fusion"
	"github.com/kailas-cloud/tracksearch/internal/domain/search/result"
)

// Backend is a document store able to produce candidate pools.
// Pools must be filtered with filter.Filters semantics and ordered
// by score descending, then document key ascending.
type Backend interface {
	UpsertDocuments(ctx context.Context, docs []document.SearchDocument) error
	GetDocument(ctx context.Context, t document.SourceType, sourceID string) (document.SearchDocument, error)
	DeleteDocument(ctx context.Context, t document.SourceType, sourceID string) error
	DeleteStaleDocuments(ctx context.Context, cutoff time.Time, types ...document.SourceType) (int, error)
	Count(ctx context.Context, f filter.Filters) (int, error)

	// LexicalPool returns at most n documents ranked by lexical relevance.
	// Empty text selects every filtered document with score 0.
	LexicalPool(ctx context.Context, text string, f filter.Filters, n int) ([]result.Result, error)
	// VectorPool returns at most n documents with embeddings ranked by cosine similarity.
	VectorPool(ctx context.Context, vec []float32, f filter.Filters, n int) ([]result.Result, error)
}

// Repo is a Backend plus hybrid search.
type Repo struct {
	Backend
}

// New wraps a backend.
func New(b Backend) *Repo {
	return &Repo{Backend: b}
}

// Search returns at most limit documents matching f.
//
// Without an embedding the lexical ranking is returned as is. With one,
// a lexical and a vector pool of fusion.PoolSize each are fused with RRF
// and the fused score replaces the per-method score.
func (r *Repo) Search(
	ctx context.Context, text string, embedding []float32, f filter.Filters, limit int,
) ([]result.Result, error) {
	if limit <= 0 {
		return []result.Result{}, nil
	}

	if len(embedding) == 0 {
		res, err := r.LexicalPool(ctx, text, f, limit)
		if err != nil {
			return nil, fmt.Errorf("lexical pool: %w", err)
		}
		if res == nil {
			res = []result.Result{}
		}
		return res, nil
	}

	lexical, err := r.LexicalPool(ctx, text, f, fusion.PoolSize)
	if err != nil {
		return nil, fmt.Errorf("lexical pool: %w", err)
	}
	vector, err := r.VectorPool(ctx, embedding, f, fusion.PoolSize)
	if err != nil {
		return nil, fmt.Errorf("vector pool: %w", err)
	}

	return Fuse(lexical, vector, limit), nil
}

// Fuse merges two ranked pools into at most limit results scored by RRF.
func Fuse(lexical, vector []result.Result, limit int) []result.Result {
	docs := make(map[string]result.Result, len(lexical)+len(vector))
	toHits := func(pool []result.Result) []fusion.Hit {
		hits := make([]fusion.Hit, len(pool))
		for i, r := range pool {
			key := r.Key()
			if _, ok := docs[key]; !ok {
				docs[key] = r
			}
			hits[i] = fusion.Hit{Key: key, Score: r.Score}
		}
		return hits
	}

	fused := fusion.Fuse(toHits(lexical), toHits(vector), limit)

	out := make([]result.Result, len(fused))
	for i, f := range fused {
		r := docs[f.Key]
		r.Score = f.Score
		out[i] = r
	}
	return out
}
