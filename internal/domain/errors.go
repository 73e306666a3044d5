package domain

import "errors"

var (
	// ErrDocumentNotFound signals a missing document.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrInvalidDocument signals a document that cannot be stored.
	ErrInvalidDocument = errors.New("invalid document")
	// ErrInvalidQuery signals a malformed request (bad limit, bad key).
	ErrInvalidQuery = errors.New("invalid query")

	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrEmbeddingCountMismatch signals a batch response with the wrong number of vectors.
	ErrEmbeddingCountMismatch = errors.New("embedding count mismatch")
	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")

	// ErrStore signals a persistence failure in the document store.
	ErrStore = errors.New("document store error")
	// ErrSourceUnavailable signals that the document source could not be read.
	ErrSourceUnavailable = errors.New("document source unavailable")
)
