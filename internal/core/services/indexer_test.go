package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stagemem "github.com/parchment-labs/stagechat/internal/adapters/driven/stage/memory"
	storagemem "github.com/parchment-labs/stagechat/internal/adapters/driven/storage/memory"
	vectormem "github.com/parchment-labs/stagechat/internal/adapters/driven/vector/memory"
	"github.com/parchment-labs/stagechat/internal/core/domain"
	"github.com/parchment-labs/stagechat/internal/extractors"
)

// indexerFixture wires an indexer over in-memory adapters.
type indexerFixture struct {
	stage     *stagemem.Stage
	embedding *mockEmbedding
	index     *vectormem.Index
	docs      *storagemem.DocumentStore
	snapshots *storagemem.SnapshotStore
	indexer   *IndexerService
}

func newIndexerFixture() *indexerFixture {
	f := &indexerFixture{
		stage:     stagemem.NewStage(),
		embedding: newMockEmbedding(),
		index:     vectormem.NewIndex(),
		docs:      storagemem.NewDocumentStore(),
		snapshots: storagemem.NewSnapshotStore(),
	}
	f.indexer = NewIndexerService(
		f.stage,
		extractors.Default(),
		f.embedding,
		f.index,
		f.docs,
		f.snapshots,
		IndexerConfig{ChunkSize: 100, ChunkOverlap: 20},
	)
	return f
}

func TestIndexer_Refresh_FirstPass(t *testing.T) {
	f := newIndexerFixture()
	f.stage.Put("guide.txt", []byte("how to operate the reactor"), time.Now())
	f.stage.Put("notes.md", []byte("# Notes\n\nsome meeting notes"), time.Now())

	result, err := f.indexer.Refresh(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, result.Added)
	assert.Empty(t, result.Failed)
	assert.Greater(t, f.index.Len(), 0)

	// Documents and passages are persisted.
	doc, err := f.docs.GetDocument(context.Background(), "guide.txt")
	require.NoError(t, err)
	assert.Equal(t, "how to operate the reactor", doc.Content)

	passages, err := f.docs.GetPassages(context.Background(), "guide.txt")
	require.NoError(t, err)
	require.NotEmpty(t, passages)
	assert.NotEmpty(t, passages[0].Embedding)

	// The snapshot records both objects.
	snap, err := f.snapshots.Get(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.Objects, 2)
}

func TestIndexer_Refresh_NoChanges_Noop(t *testing.T) {
	f := newIndexerFixture()
	f.stage.Put("guide.txt", []byte("stable content"), time.Now())

	_, err := f.indexer.Refresh(context.Background())
	require.NoError(t, err)
	lenBefore := f.index.Len()

	result, err := f.indexer.Refresh(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, result.Added)
	assert.Equal(t, 0, result.Modified)
	assert.Equal(t, 0, result.Removed)
	assert.Equal(t, lenBefore, f.index.Len())
}

func TestIndexer_Refresh_Modified(t *testing.T) {
	f := newIndexerFixture()
	f.stage.Put("guide.txt", []byte("old content"), time.Now())
	_, err := f.indexer.Refresh(context.Background())
	require.NoError(t, err)

	f.stage.Put("guide.txt", []byte("new content entirely"), time.Now().Add(time.Minute))
	result, err := f.indexer.Refresh(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, result.Modified)

	doc, err := f.docs.GetDocument(context.Background(), "guide.txt")
	require.NoError(t, err)
	assert.Equal(t, "new content entirely", doc.Content)

	hits, err := f.index.Search(context.Background(), f.embedding.fallback, 10)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	for _, hit := range hits {
		assert.NotEqual(t, "old content", hit.Passage.Content)
	}
}

func TestIndexer_Refresh_Removed(t *testing.T) {
	f := newIndexerFixture()
	f.stage.Put("guide.txt", []byte("content"), time.Now())
	_, err := f.indexer.Refresh(context.Background())
	require.NoError(t, err)

	f.stage.Remove("guide.txt")
	result, err := f.indexer.Refresh(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, result.Removed)
	assert.Equal(t, 0, f.index.Len())

	_, err = f.docs.GetDocument(context.Background(), "guide.txt")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	snap, err := f.snapshots.Get(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.Objects)
}

func TestIndexer_Refresh_FailureIsolated(t *testing.T) {
	f := newIndexerFixture()
	f.stage.Put("good.txt", []byte("healthy document"), time.Now())
	f.stage.Put("bad.txt", []byte("this one is poisoned"), time.Now())
	f.embedding.failOn = "poisoned"

	result, err := f.indexer.Refresh(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, result.Added)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "bad.txt", result.Failed[0].DocumentID)
	assert.Contains(t, result.Failed[0].Reason, "embedding")

	// The good document committed despite the failure.
	_, err = f.docs.GetDocument(context.Background(), "good.txt")
	require.NoError(t, err)

	// The failed document is not in the snapshot, so the next refresh
	// retries exactly it.
	f.embedding.failOn = ""
	result, err = f.indexer.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Added)
	assert.Empty(t, result.Failed)
}

func TestIndexer_Refresh_UnsupportedTypeIsolated(t *testing.T) {
	f := newIndexerFixture()
	f.stage.Put("photo.png", []byte{0x89, 0x50, 0x4e, 0x47}, time.Now())
	f.stage.Put("readme.txt", []byte("plain text"), time.Now())

	result, err := f.indexer.Refresh(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, result.Added)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "photo.png", result.Failed[0].DocumentID)
}

func TestIndexer_Refresh_EmptyStageAfterContent(t *testing.T) {
	f := newIndexerFixture()
	f.stage.Put("a.txt", []byte("a"), time.Now())
	f.stage.Put("b.txt", []byte("b"), time.Now())
	_, err := f.indexer.Refresh(context.Background())
	require.NoError(t, err)

	f.stage.Remove("a.txt")
	f.stage.Remove("b.txt")
	result, err := f.indexer.Refresh(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, result.Removed)
	assert.Equal(t, 0, f.index.Len())
}

func TestIndexer_Load_RebuildsIndex(t *testing.T) {
	f := newIndexerFixture()
	f.stage.Put("guide.txt", []byte("persisted content"), time.Now())
	_, err := f.indexer.Refresh(context.Background())
	require.NoError(t, err)
	passagesBefore := f.index.Len()

	// A fresh index over the same stores simulates a restart.
	freshIndex := vectormem.NewIndex()
	restarted := NewIndexerService(
		f.stage, extractors.Default(), f.embedding,
		freshIndex, f.docs, f.snapshots,
		IndexerConfig{ChunkSize: 100, ChunkOverlap: 20},
	)

	require.NoError(t, restarted.Load(context.Background()))
	assert.Equal(t, passagesBefore, freshIndex.Len())
}

func TestIndexer_Load_DropsStaleDocuments(t *testing.T) {
	f := newIndexerFixture()
	f.stage.Put("guide.txt", []byte("original"), time.Now())
	_, err := f.indexer.Refresh(context.Background())
	require.NoError(t, err)

	// Corrupt the stored document's hash so it no longer matches the
	// snapshot.
	doc, err := f.docs.GetDocument(context.Background(), "guide.txt")
	require.NoError(t, err)
	doc.Hash = "stale-hash"
	require.NoError(t, f.docs.SaveDocument(context.Background(), doc))

	freshIndex := vectormem.NewIndex()
	restarted := NewIndexerService(
		f.stage, extractors.Default(), f.embedding,
		freshIndex, f.docs, f.snapshots,
		IndexerConfig{ChunkSize: 100, ChunkOverlap: 20},
	)

	require.NoError(t, restarted.Load(context.Background()))
	assert.Equal(t, 0, freshIndex.Len())

	_, err = f.docs.GetDocument(context.Background(), "guide.txt")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIndexer_Load_NoSnapshot_Noop(t *testing.T) {
	f := newIndexerFixture()
	require.NoError(t, f.indexer.Load(context.Background()))
	assert.Equal(t, 0, f.index.Len())
}
