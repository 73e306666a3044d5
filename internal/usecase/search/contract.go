package search

import (
	"context"

	"github.com/kailas-cloud/tracksearch/internal/domain"
	"github.com/kailas-cloud/tracksearch/internal/domain/search/filter"
	"github.com/kailas-cloud/tracksearch/internal/domain/search/result"
)

// Store defines the document store contract for search operations.
type Store interface {
	Search(
		ctx context.Context, text string, embedding []float32,
		f filter.Filters, limit int,
	) ([]result.Result, error)

	Count(ctx context.Context, f filter.Filters) (int, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
