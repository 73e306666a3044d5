package tracksearch

import (
	"errors"

	"github.com/kailas-cloud/tracksearch/internal/domain"
	"github.com/kailas-cloud/tracksearch/internal/domain/document"
	"github.com/kailas-cloud/tracksearch/internal/domain/search/filter"
	"github.com/kailas-cloud/tracksearch/internal/domain/search/query"
	"github.com/kailas-cloud/tracksearch/internal/domain/search/result"
	"github.com/kailas-cloud/tracksearch/internal/domain/source"
	healthuc "github.com/kailas-cloud/tracksearch/internal/usecase/health"
	"github.com/kailas-cloud/tracksearch/internal/usecase/indexer"
	searchuc "github.com/kailas-cloud/tracksearch/internal/usecase/search"
)

// Document and query types.
type (
	Document    = document.SearchDocument
	SourceType  = document.SourceType
	Result      = result.Result
	Filters     = filter.Filters
	ParsedQuery = query.ParsedQuery
)

// Source record types.
type (
	DocumentSource = indexer.DocumentSource
	PullRequest    = source.PullRequest
	WorkItem       = source.WorkItem
	Person         = source.Person
)

// Embedding types.
type (
	Embedder             = domain.Embedder
	BatchEmbedder        = domain.BatchEmbedder
	EmbeddingResult      = domain.EmbeddingResult
	BatchEmbeddingResult = domain.BatchEmbeddingResult
)

// Service types.
type (
	SearchConfig  = searchuc.Config
	IndexerConfig = indexer.Config
	Stats         = searchuc.Stats
	SyncStats     = indexer.Stats
	Project       = indexer.Project
	HealthReport  = healthuc.Report
)

// Source types.
const (
	SourcePR       = document.SourcePR
	SourceWorkItem = document.SourceWorkItem
)

// ErrNotConfigured is returned by sync operations when the client has no source or no embedder.
var ErrNotConfigured = errors.New("tracksearch: sync requires a document source and an embedder")

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrDocumentNotFound       = domain.ErrDocumentNotFound
	ErrInvalidDocument        = domain.ErrInvalidDocument
	ErrInvalidQuery           = domain.ErrInvalidQuery
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
	ErrEmbeddingCountMismatch = domain.ErrEmbeddingCountMismatch
	ErrRateLimited            = domain.ErrRateLimited
	ErrStore                  = domain.ErrStore
	ErrSourceUnavailable      = domain.ErrSourceUnavailable
)
