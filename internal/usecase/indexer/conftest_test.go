package indexer

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/kailas-cloud/tracksearch/internal/domain"
	"github.com/kailas-cloud/tracksearch/internal/domain/document"
	"github.com/kailas-cloud/tracksearch/internal/domain/source"
)

var testStart = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// --- Source ---

type fakeSource struct {
	prs   []source.PullRequest
	items []source.WorkItem
	prErr error
	wiErr error
	// honorSince filters work items by UpdatedAt like a real tracker.
	honorSince bool

	mu        sync.Mutex
	since     *time.Time
	sinceSeen bool
}

func (f *fakeSource) FetchPullRequests(_ context.Context, _, _ string) ([]source.PullRequest, error) {
	return f.prs, f.prErr
}

func (f *fakeSource) FetchWorkItems(_ context.Context, _, _ string, since *time.Time) ([]source.WorkItem, error) {
	f.mu.Lock()
	f.since = since
	f.sinceSeen = true
	f.mu.Unlock()
	if f.wiErr != nil || !f.honorSince || since == nil {
		return f.items, f.wiErr
	}
	var out []source.WorkItem
	for _, w := range f.items {
		if !w.UpdatedAt.Before(*since) {
			out = append(out, w)
		}
	}
	return out, nil
}

func makePRs(n int) []source.PullRequest {
	prs := make([]source.PullRequest, n)
	for i := range prs {
		prs[i] = source.PullRequest{
			ID:         int64(i + 1),
			Repository: "web",
			Title:      fmt.Sprintf("PR %d", i+1),
			Status:     "active",
		}
	}
	return prs
}

func makeWorkItems(n int) []source.WorkItem {
	items := make([]source.WorkItem, n)
	for i := range items {
		items[i] = source.WorkItem{
			ID:    int64(1000 + i),
			Title: fmt.Sprintf("Work item %d", i),
			Type:  "Bug",
			State: "Active",
		}
	}
	return items
}

// --- Store ---

type fakeStore struct {
	clock *testClock

	mu        sync.Mutex
	docs      map[string]document.SearchDocument
	indexedAt map[string]time.Time
	upserts    int
	cutoffs    []time.Time
	staleTypes [][]document.SourceType

	upsertErr func(docs []document.SearchDocument) error
	deleteErr error
}

func newFakeStore(clock *testClock) *fakeStore {
	return &fakeStore{
		clock:     clock,
		docs:      make(map[string]document.SearchDocument),
		indexedAt: make(map[string]time.Time),
	}
}

func (s *fakeStore) UpsertDocuments(_ context.Context, docs []document.SearchDocument) error {
	if s.upsertErr != nil {
		if err := s.upsertErr(docs); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts++
	for _, d := range docs {
		s.docs[d.Key()] = d
		s.indexedAt[d.Key()] = s.clock.Now()
	}
	return nil
}

func (s *fakeStore) DeleteStaleDocuments(
	_ context.Context, cutoff time.Time, types ...document.SourceType,
) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cutoffs = append(s.cutoffs, cutoff)
	s.staleTypes = append(s.staleTypes, types)
	if s.deleteErr != nil {
		return 0, s.deleteErr
	}
	n := 0
	for key, at := range s.indexedAt {
		if len(types) > 0 && !slices.Contains(types, s.docs[key].SourceType) {
			continue
		}
		if at.Before(cutoff) {
			delete(s.docs, key)
			delete(s.indexedAt, key)
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) seed(key string, at time.Time) {
	t, id, _ := document.ParseKey(key)
	s.docs[key] = document.SearchDocument{SourceType: t, SourceID: id}
	s.indexedAt[key] = at
}

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs)
}

// --- Embedder ---

type fakeEmbedder struct {
	failOn  string // fail any batch containing this text
	shortOn string // drop one vector for any batch containing this text

	mu         sync.Mutex
	batchSizes []int
	texts      []string
}

func (e *fakeEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{}, errors.New("indexer must use BatchEmbed")
}

func (e *fakeEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	e.mu.Lock()
	e.batchSizes = append(e.batchSizes, len(texts))
	e.texts = append(e.texts, texts...)
	e.mu.Unlock()

	if e.failOn != "" && containsText(texts, e.failOn) {
		return domain.BatchEmbeddingResult{}, errors.New("provider unavailable")
	}
	n := len(texts)
	if e.shortOn != "" && containsText(texts, e.shortOn) {
		n--
	}
	vecs := make([][]float32, n)
	for i := range vecs {
		vecs[i] = []float32{float32(i), 1}
	}
	return domain.BatchEmbeddingResult{Embeddings: vecs, TotalTokens: n}, nil
}

func (e *fakeEmbedder) calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.batchSizes)
}

func containsText(texts []string, needle string) bool {
	return slices.ContainsFunc(texts, func(t string) bool { return strings.Contains(t, needle) })
}

func newTestIndexer(src DocumentSource, store Store, embed domain.Embedder, cfg Config, clock *testClock) *Indexer {
	return New(src, store, embed, cfg, nil, WithClock(clock.Now))
}
