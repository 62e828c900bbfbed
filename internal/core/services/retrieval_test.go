package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vectormem "github.com/parchment-labs/stagechat/internal/adapters/driven/vector/memory"
	"github.com/parchment-labs/stagechat/internal/chunker"
	"github.com/parchment-labs/stagechat/internal/core/domain"
)

func defaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		TopK:             3,
		Overfetch:        3,
		MaxContextTokens: 3000,
		MinScore:         0.15,
	}
}

func passage(docID string, start, end int, content string, embedding []float32) domain.Passage {
	return domain.Passage{
		ID:         domain.PassageID(docID, start, end),
		DocumentID: docID,
		Start:      start,
		End:        end,
		Content:    content,
		Embedding:  embedding,
	}
}

func TestRetrieval_EmptyIndex_NoDocuments(t *testing.T) {
	embedding := newMockEmbedding()
	index := vectormem.NewIndex()
	svc := NewRetrievalService(embedding, index, defaultRetrievalConfig())

	block, err := svc.Retrieve(context.Background(), "anything")

	require.NoError(t, err)
	assert.True(t, block.NoDocuments)
	assert.Empty(t, block.Passages)
}

func TestRetrieval_RanksByScore(t *testing.T) {
	embedding := newMockEmbedding()
	embedding.keyed["reactor"] = []float32{1, 0, 0}

	index := vectormem.NewIndex()
	require.NoError(t, index.Upsert(context.Background(), "a.txt", []domain.Passage{
		passage("a.txt", 0, 10, "reactor manual", []float32{1, 0, 0}),
	}))
	require.NoError(t, index.Upsert(context.Background(), "b.txt", []domain.Passage{
		passage("b.txt", 0, 10, "close match", []float32{0.9, 0.1, 0}),
	}))
	require.NoError(t, index.Upsert(context.Background(), "c.txt", []domain.Passage{
		passage("c.txt", 0, 10, "unrelated", []float32{0, 0, 1}),
	}))

	svc := NewRetrievalService(embedding, index, defaultRetrievalConfig())
	block, err := svc.Retrieve(context.Background(), "how does the reactor work")

	require.NoError(t, err)
	require.Len(t, block.Passages, 2) // the orthogonal passage is below MinScore
	assert.Equal(t, "a.txt", block.Passages[0].Passage.DocumentID)
	assert.Equal(t, "b.txt", block.Passages[1].Passage.DocumentID)
	assert.Greater(t, block.Passages[0].Score, block.Passages[1].Score)
}

func TestRetrieval_MinScoreFilter(t *testing.T) {
	embedding := newMockEmbedding()
	embedding.keyed["query"] = []float32{1, 0, 0}

	index := vectormem.NewIndex()
	require.NoError(t, index.Upsert(context.Background(), "far.txt", []domain.Passage{
		passage("far.txt", 0, 10, "orthogonal", []float32{0, 1, 0}),
	}))

	svc := NewRetrievalService(embedding, index, defaultRetrievalConfig())
	block, err := svc.Retrieve(context.Background(), "query text")

	require.NoError(t, err)
	assert.False(t, block.NoDocuments)
	assert.Empty(t, block.Passages)
}

func TestRetrieval_DedupesOverlappingPassages(t *testing.T) {
	embedding := newMockEmbedding()
	embedding.keyed["query"] = []float32{1, 0, 0}

	// Two overlapping passages from the same document; the closer one
	// must win and suppress the other.
	index := vectormem.NewIndex()
	require.NoError(t, index.Upsert(context.Background(), "doc.txt", []domain.Passage{
		passage("doc.txt", 0, 100, "first window", []float32{1, 0, 0}),
		passage("doc.txt", 80, 180, "second window", []float32{0.8, 0.2, 0}),
		passage("doc.txt", 400, 500, "distant window", []float32{0.7, 0.3, 0}),
	}))

	svc := NewRetrievalService(embedding, index, defaultRetrievalConfig())
	block, err := svc.Retrieve(context.Background(), "query text")

	require.NoError(t, err)
	require.Len(t, block.Passages, 2)
	assert.Equal(t, 0, block.Passages[0].Passage.Start)
	assert.Equal(t, 400, block.Passages[1].Passage.Start)
}

func TestRetrieval_OverlapAcrossDocumentsKept(t *testing.T) {
	embedding := newMockEmbedding()
	embedding.keyed["query"] = []float32{1, 0, 0}

	// Identical offset ranges in different documents are not duplicates.
	index := vectormem.NewIndex()
	require.NoError(t, index.Upsert(context.Background(), "a.txt", []domain.Passage{
		passage("a.txt", 0, 100, "from a", []float32{1, 0, 0}),
	}))
	require.NoError(t, index.Upsert(context.Background(), "b.txt", []domain.Passage{
		passage("b.txt", 0, 100, "from b", []float32{0.9, 0.1, 0}),
	}))

	svc := NewRetrievalService(embedding, index, defaultRetrievalConfig())
	block, err := svc.Retrieve(context.Background(), "query text")

	require.NoError(t, err)
	assert.Len(t, block.Passages, 2)
}

func TestRetrieval_TopKCap(t *testing.T) {
	embedding := newMockEmbedding()
	embedding.keyed["query"] = []float32{1, 0, 0}

	index := vectormem.NewIndex()
	for i := 0; i < 6; i++ {
		docID := string(rune('a'+i)) + ".txt"
		require.NoError(t, index.Upsert(context.Background(), docID, []domain.Passage{
			passage(docID, 0, 10, "content "+docID, []float32{1, float32(i) * 0.01, 0}),
		}))
	}

	svc := NewRetrievalService(embedding, index, defaultRetrievalConfig())
	block, err := svc.Retrieve(context.Background(), "query text")

	require.NoError(t, err)
	assert.Len(t, block.Passages, 3)
	// Cutting at TopK is not a budget truncation.
	assert.False(t, block.Truncated)
}

func TestRetrieval_TokenBudgetTruncates(t *testing.T) {
	embedding := newMockEmbedding()
	embedding.keyed["query"] = []float32{1, 0, 0}

	long := strings.Repeat("word ", 200)
	index := vectormem.NewIndex()
	require.NoError(t, index.Upsert(context.Background(), "a.txt", []domain.Passage{
		passage("a.txt", 0, 1000, long, []float32{1, 0, 0}),
	}))
	require.NoError(t, index.Upsert(context.Background(), "b.txt", []domain.Passage{
		passage("b.txt", 0, 1000, long, []float32{0.9, 0.1, 0}),
	}))

	cfg := defaultRetrievalConfig()
	cfg.MaxContextTokens = 300
	svc := NewRetrievalService(embedding, index, cfg)

	block, err := svc.Retrieve(context.Background(), "query text")

	require.NoError(t, err)
	require.Len(t, block.Passages, 1)
	assert.True(t, block.Truncated)
	assert.Equal(t, "a.txt", block.Passages[0].Passage.DocumentID)
}

func TestRetrieval_BudgetNeverExceeded(t *testing.T) {
	embedding := newMockEmbedding()
	embedding.keyed["query"] = []float32{1, 0, 0}

	long := strings.Repeat("word ", 500)
	index := vectormem.NewIndex()
	require.NoError(t, index.Upsert(context.Background(), "a.txt", []domain.Passage{
		passage("a.txt", 0, 2500, long, []float32{1, 0, 0}),
	}))

	cfg := defaultRetrievalConfig()
	cfg.MaxContextTokens = 10 // far below the passage's cost
	svc := NewRetrievalService(embedding, index, cfg)

	block, err := svc.Retrieve(context.Background(), "query text")

	// Even the best passage is dropped whole rather than blowing the
	// budget; the caller sees an empty block and answers without it.
	require.NoError(t, err)
	assert.Empty(t, block.Passages)
	assert.False(t, block.NoDocuments)
	assert.True(t, block.Truncated)
}

func TestRetrieval_OversizedPassageSkippedForSmallerFit(t *testing.T) {
	embedding := newMockEmbedding()
	embedding.keyed["query"] = []float32{1, 0, 0}

	long := strings.Repeat("word ", 500)
	index := vectormem.NewIndex()
	require.NoError(t, index.Upsert(context.Background(), "big.txt", []domain.Passage{
		passage("big.txt", 0, 2500, long, []float32{1, 0, 0}),
	}))
	require.NoError(t, index.Upsert(context.Background(), "small.txt", []domain.Passage{
		passage("small.txt", 0, 50, "a short relevant passage", []float32{0.9, 0.1, 0}),
	}))

	cfg := defaultRetrievalConfig()
	cfg.MaxContextTokens = 100
	svc := NewRetrievalService(embedding, index, cfg)

	block, err := svc.Retrieve(context.Background(), "query text")

	require.NoError(t, err)
	require.Len(t, block.Passages, 1)
	assert.Equal(t, "small.txt", block.Passages[0].Passage.DocumentID)
	assert.True(t, block.Truncated)

	total := 0
	for _, p := range block.Passages {
		total += chunker.EstimateTokens(p.Passage.Content)
	}
	assert.LessOrEqual(t, total, cfg.MaxContextTokens)
}
