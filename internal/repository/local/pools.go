package local

import (
	"context"
	"slices"
	"strings"

	"github.com/kailas-cloud/tracksearch/internal/domain/document"
	"github.com/kailas-cloud/tracksearch/internal/domain/search/filter"
	"github.com/kailas-cloud/tracksearch/internal/domain/search/fusion"
	"github.com/kailas-cloud/tracksearch/internal/domain/search/result"
)

// LexicalPool ranks up to n filtered documents by Bleve relevance over title,
// description and content. Empty text selects every filtered document with score 0 in key order.
func (s *Store) LexicalPool(ctx context.Context, text string, f filter.Filters, n int) ([]result.Result, error) {
	if n <= 0 {
		return nil, nil
	}

	docs, err := s.scan(ctx, f)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(text) == "" {
		keys := make([]string, 0, len(docs))
		for k := range docs {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		if len(keys) > n {
			keys = keys[:n]
		}
		out := make([]result.Result, len(keys))
		for i, k := range keys {
			out[i] = result.New(docs[k], 0)
		}
		return out, nil
	}

	matches, err := s.searchText(ctx, text)
	if err != nil {
		return nil, err
	}
	hits := matches[:0]
	for _, h := range matches {
		if _, ok := docs[h.Key]; ok {
			hits = append(hits, h)
		}
	}
	return toResults(docs, fusion.Top(hits, n)), nil
}

// VectorPool ranks up to n filtered documents with embeddings by cosine similarity to vec.
func (s *Store) VectorPool(ctx context.Context, vec []float32, f filter.Filters, n int) ([]result.Result, error) {
	if n <= 0 || len(vec) == 0 {
		return nil, nil
	}

	docs, err := s.scan(ctx, f)
	if err != nil {
		return nil, err
	}

	hits := make([]fusion.Hit, 0, len(docs))
	for k, d := range docs {
		if len(d.Embedding) != len(vec) {
			continue
		}
		hits = append(hits, fusion.Hit{Key: k, Score: fusion.Cosine(vec, d.Embedding)})
	}
	return toResults(docs, fusion.Top(hits, n)), nil
}

func toResults(docs map[string]document.SearchDocument, hits []fusion.Hit) []result.Result {
	out := make([]result.Result, len(hits))
	for i, h := range hits {
		out[i] = result.New(docs[h.Key], h.Score)
	}
	return out
}
