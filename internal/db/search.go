package db

import (
	"math"

	"github.com/kailas-cloud/tracksearch/internal/domain/search/filter"
)

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	VectorField  string // default "embedding"
	Filters      filter.Filters
	Vector       []float32
	K            int
	ReturnFields []string
}

// TextQuery is the input for BM25 text search.
type TextQuery struct {
	IndexName    string
	Query        string
	TextFields   []string // searched fields; empty = all TEXT fields
	Filters      filter.Filters
	TopK         int
	ReturnFields []string
}

// NumericRange constrains a NUMERIC field. Use math.Inf for open bounds.
type NumericRange struct {
	Field        string
	Min, Max     float64
	MinExclusive bool
	MaxExclusive bool
}

// Below is the range (-inf, v).
func Below(field string, v float64) NumericRange {
	return NumericRange{Field: field, Min: math.Inf(-1), Max: v, MaxExclusive: true}
}

// ListQuery selects documents by filters only, unscored.
type ListQuery struct {
	IndexName    string
	Filters      filter.Filters
	Ranges       []NumericRange
	Offset       int
	Limit        int
	SortBy       string // SORTABLE field, ascending
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
