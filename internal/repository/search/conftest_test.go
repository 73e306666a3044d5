package search

import (
	"context"
	"time"

	"github.com/kailas-cloud/tracksearch/internal/domain/document"
	"github.com/kailas-cloud/tracksearch/internal/domain/search/filter"
	"github.com/kailas-cloud/tracksearch/internal/domain/search/result"
)

// mockBackend serves canned pools and records the requested sizes.
type mockBackend struct {
	lexical, vector   []result.Result
	lexicalErr        error
	vectorErr         error
	lexicalN, vectorN int
	vectorCalls       int
}

func (m *mockBackend) UpsertDocuments(context.Context, []document.SearchDocument) error { return nil }

func (m *mockBackend) GetDocument(context.Context, document.SourceType, string) (document.SearchDocument, error) {
	return document.SearchDocument{}, nil
}

func (m *mockBackend) DeleteDocument(context.Context, document.SourceType, string) error { return nil }

func (m *mockBackend) DeleteStaleDocuments(context.Context, time.Time, ...document.SourceType) (int, error) {
	return 0, nil
}

func (m *mockBackend) Count(context.Context, filter.Filters) (int, error) { return 0, nil }

func (m *mockBackend) LexicalPool(_ context.Context, _ string, _ filter.Filters, n int) ([]result.Result, error) {
	m.lexicalN = n
	if m.lexicalErr != nil {
		return nil, m.lexicalErr
	}
	return head(m.lexical, n), nil
}

func (m *mockBackend) VectorPool(_ context.Context, _ []float32, _ filter.Filters, n int) ([]result.Result, error) {
	m.vectorCalls++
	m.vectorN = n
	if m.vectorErr != nil {
		return nil, m.vectorErr
	}
	return head(m.vector, n), nil
}

func head(rs []result.Result, n int) []result.Result {
	if len(rs) > n {
		return rs[:n]
	}
	return rs
}

func hit(id string, score float64) result.Result {
	return result.Result{
		SearchDocument: document.SearchDocument{SourceType: document.SourceWorkItem, SourceID: id, Title: "t" + id},
		Score:          score,
	}
}
