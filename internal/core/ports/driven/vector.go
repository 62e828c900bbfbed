package driven

import (
	"context"

	"github.com/parchment-labs/stagechat/internal/core/domain"
)

// VectorIndex stores passages with their vectors and serves
// nearest-neighbour retrieval. Entries are keyed by owning document so
// a document update replaces exactly its own entries.
type VectorIndex interface {
	// Upsert atomically replaces all entries owned by documentID with
	// the given passages. A concurrent Search observes either the old
	// complete set or the new complete set for that document, never a
	// partial mix.
	Upsert(ctx context.Context, documentID string, passages []domain.Passage) error

	// Remove atomically deletes all entries owned by documentID.
	Remove(ctx context.Context, documentID string) error

	// Search returns the k entries most similar to the query vector,
	// highest score first. Ties break toward the earlier-indexed entry.
	// Deterministic for a fixed index state.
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	// Len returns the number of indexed passages.
	Len() int

	// Close releases resources.
	Close() error
}

// VectorHit is a similarity search result.
type VectorHit struct {
	// Passage is the matched passage, including its offsets and text.
	Passage domain.Passage

	// Score is the cosine similarity between query and passage vectors.
	Score float64
}
