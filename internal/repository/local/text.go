package local

import (
	"context"
	"errors"
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/kailas-cloud/tracksearch/internal/domain/document"
	"github.com/kailas-cloud/tracksearch/internal/domain/search/fusion"
)

// textDoc is what Bleve sees of a document: only the scored fields.
type textDoc struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
}

func textMapping() mapping.IndexMapping {
	field := bleve.NewTextFieldMapping()
	field.Analyzer = en.AnalyzerName
	field.Store = false

	doc := bleve.NewDocumentStaticMapping()
	doc.AddFieldMappingsAt("title", field)
	doc.AddFieldMappingsAt("description", field)
	doc.AddFieldMappingsAt("content", field)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	m.DefaultAnalyzer = en.AnalyzerName
	return m
}

func openTextIndex(path string) (bleve.Index, error) {
	idx, err := bleve.Open(path)
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		idx, err = bleve.New(path, textMapping())
		if err != nil {
			return nil, fmt.Errorf("create text index: %w", err)
		}
		return idx, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open text index: %w", err)
	}
	return idx, nil
}

func (s *Store) indexText(docs []document.SearchDocument) error {
	b := s.text.NewBatch()
	for i := range docs {
		d := &docs[i]
		td := textDoc{Title: d.Title}
		if d.Description != nil {
			td.Description = *d.Description
		}
		if d.Content != nil {
			td.Content = *d.Content
		}
		if err := b.Index(d.Key(), td); err != nil {
			return fmt.Errorf("index text %s: %w", d.Key(), err)
		}
	}
	if err := s.text.Batch(b); err != nil {
		return fmt.Errorf("commit text batch: %w", err)
	}
	return nil
}

func (s *Store) unindexText(keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	b := s.text.NewBatch()
	for _, k := range keys {
		b.Delete(k)
	}
	if err := s.text.Batch(b); err != nil {
		return fmt.Errorf("commit text delete: %w", err)
	}
	return nil
}

// searchText returns every document whose text contains all analyzed terms of q.
func (s *Store) searchText(ctx context.Context, q string) ([]fusion.Hit, error) {
	total, err := s.text.DocCount()
	if err != nil {
		return nil, fmt.Errorf("text doc count: %w", err)
	}
	if total == 0 {
		return nil, nil
	}

	mq := bleve.NewMatchQuery(q)
	mq.SetOperator(query.MatchQueryOperatorAnd)

	req := bleve.NewSearchRequestOptions(mq, int(total), 0, false)
	res, err := s.text.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("text search: %w", err)
	}

	hits := make([]fusion.Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hits = append(hits, fusion.Hit{Key: h.ID, Score: h.Score})
	}
	return hits, nil
}
