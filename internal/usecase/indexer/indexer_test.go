package indexer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/tracksearch/internal/domain"
	"github.com/kailas-cloud/tracksearch/internal/domain/document"
	"github.com/kailas-cloud/tracksearch/internal/domain/source"
)

func TestSyncProject_IndexesEverything(t *testing.T) {
	clock := &testClock{t: testStart}
	src := &fakeSource{prs: makePRs(25), items: makeWorkItems(13)}
	store := newFakeStore(clock)
	embed := &fakeEmbedder{}

	stats, err := newTestIndexer(src, store, embed, DefaultConfig(), clock).
		SyncProject(context.Background(), "acme", "web")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stats.PRsIndexed != 25 || stats.WorkItemsIndexed != 13 {
		t.Errorf("stats = %+v, want 25 PRs and 13 work items", stats)
	}
	if stats.Errors != 0 || stats.DocumentsDeleted != 0 {
		t.Errorf("stats = %+v, want no errors or deletions", stats)
	}
	if store.count() != 38 {
		t.Errorf("store holds %d documents, want 38", store.count())
	}
	// 3 PR batches (10, 10, 5) + 2 work item batches (10, 3)
	if embed.calls() != 5 {
		t.Errorf("BatchEmbed calls = %d, want 5", embed.calls())
	}
	for _, n := range embed.batchSizes {
		if n > 10 {
			t.Errorf("batch of %d exceeds batch size", n)
		}
	}
	if store.upserts != 5 {
		t.Errorf("UpsertDocuments calls = %d, want 5", store.upserts)
	}
}

func TestSyncProject_DocumentsCarryProjectAndEmbedding(t *testing.T) {
	clock := &testClock{t: testStart}
	desc := "Adds a cache in front of the API"
	src := &fakeSource{prs: []source.PullRequest{{
		ID: 7, Repository: "api", Title: "Add caching", ExtraContent: desc, IsDraft: true,
	}}}
	store := newFakeStore(clock)
	embed := &fakeEmbedder{}

	if _, err := newTestIndexer(src, store, embed, DefaultConfig(), clock).
		SyncProject(context.Background(), "acme", "Lerums Djursjukhus"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	doc, ok := store.docs[document.Key(document.SourcePR, "api/7")]
	if !ok {
		t.Fatalf("document pr:api/7 not stored: %v", store.docs)
	}
	if doc.Organization != "acme" || doc.Project != "Lerums Djursjukhus" {
		t.Errorf("org/project = %s/%s", doc.Organization, doc.Project)
	}
	if !doc.IsDraft {
		t.Error("IsDraft lost")
	}
	if len(doc.Embedding) != 2 {
		t.Errorf("Embedding = %v, want a vector", doc.Embedding)
	}
	if len(embed.texts) != 1 || embed.texts[0] != "Add caching\n\n"+desc {
		t.Errorf("embedding input = %q", embed.texts)
	}
}

func TestSyncProject_Idempotent(t *testing.T) {
	clock := &testClock{t: testStart}
	src := &fakeSource{prs: makePRs(12), items: makeWorkItems(4)}
	store := newFakeStore(clock)
	ix := newTestIndexer(src, store, &fakeEmbedder{}, DefaultConfig(), clock)

	first, err := ix.SyncProject(context.Background(), "acme", "web")
	if err != nil {
		t.Fatalf("first sync: %v", err)
	}
	clock.Advance(time.Hour)
	second, err := ix.SyncProject(context.Background(), "acme", "web")
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}

	if store.count() != 16 {
		t.Errorf("store holds %d documents, want 16", store.count())
	}
	if first.PRsIndexed != second.PRsIndexed || first.WorkItemsIndexed != second.WorkItemsIndexed {
		t.Errorf("stats differ: %+v vs %+v", first, second)
	}
	if second.DocumentsDeleted != 0 {
		t.Errorf("second sync deleted %d documents", second.DocumentsDeleted)
	}
}

func TestSyncProject_EvictsStaleDocuments(t *testing.T) {
	clock := &testClock{t: testStart}
	store := newFakeStore(clock)
	store.seed("work_item:1", testStart.Add(-72*time.Hour))
	store.seed("pr:web/999", testStart.Add(-24*time.Hour))
	src := &fakeSource{prs: makePRs(2)}

	stats, err := newTestIndexer(src, store, &fakeEmbedder{}, DefaultConfig(), clock).
		SyncProject(context.Background(), "acme", "web")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stats.DocumentsDeleted != 1 {
		t.Errorf("DocumentsDeleted = %d, want 1", stats.DocumentsDeleted)
	}
	if _, ok := store.docs["work_item:1"]; ok {
		t.Error("stale work item survived")
	}
	if _, ok := store.docs["pr:web/999"]; !ok {
		t.Error("document refreshed within the threshold was deleted")
	}
	if len(store.cutoffs) != 1 || !store.cutoffs[0].Equal(testStart.Add(-48*time.Hour)) {
		t.Errorf("cutoffs = %v, want sync start - 48h", store.cutoffs)
	}
}

func TestSyncProject_CleanupAnchoredAtSyncStart(t *testing.T) {
	clock := &testClock{t: testStart}
	store := newFakeStore(clock)
	store.upsertErr = func([]document.SearchDocument) error {
		clock.Advance(time.Hour)
		return nil
	}
	src := &fakeSource{prs: makePRs(3)}

	if _, err := newTestIndexer(src, store, &fakeEmbedder{}, DefaultConfig(), clock).
		SyncProject(context.Background(), "acme", "web"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(store.cutoffs) != 1 || !store.cutoffs[0].Equal(testStart.Add(-48*time.Hour)) {
		t.Errorf("cutoffs = %v, want sync start - 48h", store.cutoffs)
	}
}

func TestSyncProject_CleanupDisabled(t *testing.T) {
	clock := &testClock{t: testStart}
	store := newFakeStore(clock)
	store.seed("work_item:1", testStart.Add(-72*time.Hour))

	cfg := DefaultConfig()
	cfg.CleanupStale = false

	stats, err := newTestIndexer(&fakeSource{}, store, &fakeEmbedder{}, cfg, clock).
		SyncProject(context.Background(), "acme", "web")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.cutoffs) != 0 {
		t.Errorf("DeleteStaleDocuments called with cleanup disabled")
	}
	if stats.DocumentsDeleted != 0 || store.count() != 1 {
		t.Errorf("stats = %+v, store = %d", stats, store.count())
	}
}

func TestSyncProject_BatchFailureIsCounted(t *testing.T) {
	clock := &testClock{t: testStart}
	prs := makePRs(25)
	prs[12].Title = "boom"
	src := &fakeSource{prs: prs, items: makeWorkItems(3)}
	store := newFakeStore(clock)

	stats, err := newTestIndexer(src, store, &fakeEmbedder{failOn: "boom"}, DefaultConfig(), clock).
		SyncProject(context.Background(), "acme", "web")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stats.Errors != 1 {
		t.Errorf("Errors = %d, want 1", stats.Errors)
	}
	if stats.PRsIndexed != 15 {
		t.Errorf("PRsIndexed = %d, want 15", stats.PRsIndexed)
	}
	if stats.WorkItemsIndexed != 3 {
		t.Errorf("WorkItemsIndexed = %d, want 3", stats.WorkItemsIndexed)
	}
}

func TestSyncProject_InvalidRecordKeepsBatch(t *testing.T) {
	clock := &testClock{t: testStart}
	items := makeWorkItems(10)
	items[3].Title = ""
	store := newFakeStore(clock)
	embed := &fakeEmbedder{}

	stats, err := newTestIndexer(&fakeSource{items: items}, store, embed, DefaultConfig(), clock).
		SyncProject(context.Background(), "acme", "web")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stats.Errors != 1 || stats.WorkItemsIndexed != 9 {
		t.Errorf("stats = %+v, want 9 work items and 1 error", stats)
	}
	if store.count() != 9 {
		t.Errorf("store holds %d documents, want 9", store.count())
	}
	if _, ok := store.docs["work_item:1003"]; ok {
		t.Error("record without a title was stored")
	}
	if len(embed.texts) != 9 {
		t.Errorf("embedded %d texts, want 9", len(embed.texts))
	}
}

func TestSyncProject_EmbeddingCountMismatch(t *testing.T) {
	clock := &testClock{t: testStart}
	items := makeWorkItems(4)
	items[1].Title = "short"
	store := newFakeStore(clock)

	stats, err := newTestIndexer(&fakeSource{items: items}, store, &fakeEmbedder{shortOn: "short"}, DefaultConfig(), clock).
		SyncProject(context.Background(), "acme", "web")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Errors != 1 || stats.WorkItemsIndexed != 0 {
		t.Errorf("stats = %+v, want one failed batch", stats)
	}
	if store.count() != 0 {
		t.Errorf("store holds %d documents, want 0", store.count())
	}
}

func TestSyncProject_FetchFailureKeepsOtherStage(t *testing.T) {
	clock := &testClock{t: testStart}
	src := &fakeSource{prErr: errors.New("api down"), items: makeWorkItems(5)}
	store := newFakeStore(clock)

	stats, err := newTestIndexer(src, store, &fakeEmbedder{}, DefaultConfig(), clock).
		SyncProject(context.Background(), "acme", "web")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Errors != 1 || stats.PRsIndexed != 0 || stats.WorkItemsIndexed != 5 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestSyncProject_StoreFailureIsCounted(t *testing.T) {
	clock := &testClock{t: testStart}
	store := newFakeStore(clock)
	store.upsertErr = func(docs []document.SearchDocument) error {
		if docs[0].SourceType == document.SourceWorkItem {
			return errors.New("write failed")
		}
		return nil
	}
	src := &fakeSource{prs: makePRs(4), items: makeWorkItems(4)}

	stats, err := newTestIndexer(src, store, &fakeEmbedder{}, DefaultConfig(), clock).
		SyncProject(context.Background(), "acme", "web")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Errors != 1 || stats.PRsIndexed != 4 || stats.WorkItemsIndexed != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestSyncProject_CleanupFailureIsCounted(t *testing.T) {
	clock := &testClock{t: testStart}
	store := newFakeStore(clock)
	store.deleteErr = errors.New("scan failed")

	stats, err := newTestIndexer(&fakeSource{prs: makePRs(1)}, store, &fakeEmbedder{}, DefaultConfig(), clock).
		SyncProject(context.Background(), "acme", "web")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Errors != 1 || stats.PRsIndexed != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestSyncProject_WorkItemsSince(t *testing.T) {
	clock := &testClock{t: testStart}

	src := &fakeSource{}
	if _, err := newTestIndexer(src, newFakeStore(clock), &fakeEmbedder{}, DefaultConfig(), clock).
		SyncProject(context.Background(), "acme", "web"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !src.sinceSeen || src.since != nil {
		t.Errorf("since = %v, want nil for a full pull", src.since)
	}

	cfg := DefaultConfig()
	cfg.WorkItemsSince = 24 * time.Hour
	src = &fakeSource{}
	if _, err := newTestIndexer(src, newFakeStore(clock), &fakeEmbedder{}, cfg, clock).
		SyncProject(context.Background(), "acme", "web"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src.since == nil || !src.since.Equal(testStart.Add(-24*time.Hour)) {
		t.Errorf("since = %v, want sync start - 24h", src.since)
	}
}

func TestSyncProject_WorkItemsSinceKeepsUnchangedItems(t *testing.T) {
	clock := &testClock{t: testStart}
	items := makeWorkItems(3)
	for i := range items {
		items[i].UpdatedAt = testStart.Add(-time.Hour)
	}
	src := &fakeSource{items: items, honorSince: true}
	store := newFakeStore(clock)
	store.seed("pr:web/999", testStart.Add(-72*time.Hour))

	cfg := DefaultConfig()
	cfg.WorkItemsSince = 24 * time.Hour
	ix := newTestIndexer(src, store, &fakeEmbedder{}, cfg, clock)

	stats, err := ix.SyncProject(context.Background(), "acme", "web")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.WorkItemsIndexed != 3 || stats.DocumentsDeleted != 1 {
		t.Errorf("first sync stats = %+v, want 3 work items and the stale PR deleted", stats)
	}

	for day := 1; day <= 4; day++ {
		clock.Advance(24 * time.Hour)
		stats, err = ix.SyncProject(context.Background(), "acme", "web")
		if err != nil {
			t.Fatalf("day %d: unexpected error: %v", day, err)
		}
		if stats.WorkItemsIndexed != 0 || stats.DocumentsDeleted != 0 {
			t.Errorf("day %d: stats = %+v, want nothing fetched or deleted", day, stats)
		}
	}

	if store.count() != 3 {
		t.Errorf("store holds %d documents, want the 3 unchanged work items", store.count())
	}
	for i, types := range store.staleTypes {
		if len(types) != 1 || types[0] != document.SourcePR {
			t.Errorf("cleanup %d types = %v, want [pr]", i, types)
		}
	}
}

func TestSyncProject_FullPullCleansEveryType(t *testing.T) {
	clock := &testClock{t: testStart}
	store := newFakeStore(clock)

	if _, err := newTestIndexer(&fakeSource{}, store, &fakeEmbedder{}, DefaultConfig(), clock).
		SyncProject(context.Background(), "acme", "web"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.staleTypes) != 1 || len(store.staleTypes[0]) != 0 {
		t.Errorf("cleanup types = %v, want unrestricted", store.staleTypes)
	}
}

func TestSyncProject_RequiresOrgAndProject(t *testing.T) {
	clock := &testClock{t: testStart}
	ix := newTestIndexer(&fakeSource{}, newFakeStore(clock), &fakeEmbedder{}, DefaultConfig(), clock)

	for _, tc := range [][2]string{{"", "web"}, {"acme", ""}} {
		if _, err := ix.SyncProject(context.Background(), tc[0], tc[1]); !errors.Is(err, domain.ErrInvalidQuery) {
			t.Errorf("SyncProject(%q, %q) = %v, want ErrInvalidQuery", tc[0], tc[1], err)
		}
	}
}

func TestSyncProject_Cancelled(t *testing.T) {
	clock := &testClock{t: testStart}
	store := newFakeStore(clock)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestIndexer(&fakeSource{prs: makePRs(3)}, store, &fakeEmbedder{}, DefaultConfig(), clock).
		SyncProject(ctx, "acme", "web")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(store.cutoffs) != 0 {
		t.Error("cleanup must not run after cancellation")
	}
}

func TestNew_Defaults(t *testing.T) {
	ix := New(&fakeSource{}, newFakeStore(&testClock{}), &fakeEmbedder{}, Config{}, nil)
	if ix.cfg.EmbeddingBatchSize != 10 || ix.cfg.StaleThresholdHours != 48 || ix.cfg.Workers != 4 {
		t.Errorf("cfg = %+v", ix.cfg)
	}
}
