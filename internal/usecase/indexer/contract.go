package indexer

import (
	"context"
	"time"

	"github.com/kailas-cloud/tracksearch/internal/domain/document"
	"github.com/kailas-cloud/tracksearch/internal/domain/source"
)

// DocumentSource delivers pre-normalised tracker records for one project.
type DocumentSource interface {
	FetchPullRequests(ctx context.Context, org, project string) ([]source.PullRequest, error)
	// FetchWorkItems returns every work item when since is nil,
	// otherwise only those updated at or after it.
	FetchWorkItems(ctx context.Context, org, project string, since *time.Time) ([]source.WorkItem, error)
}

// Store is the write side of the document store.
type Store interface {
	UpsertDocuments(ctx context.Context, docs []document.SearchDocument) error
	// DeleteStaleDocuments removes documents indexed before cutoff, limited to types when given.
	DeleteStaleDocuments(ctx context.Context, cutoff time.Time, types ...document.SourceType) (int, error)
}
