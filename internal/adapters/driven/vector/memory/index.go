// Package memory provides an in-memory vector index with exact
// brute-force cosine similarity search.
//
// Entries are grouped per owning document in immutable slices. An
// upsert builds the replacement slice outside the lock and swaps it in
// under a short write section, so a concurrent search observes either
// the old complete set or the new complete set for that document and a
// refresh never stalls queries. Exact top-k keeps recall at 1.0; for
// the corpus sizes a stage holds, scan latency is negligible next to
// the embedding call.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/parchment-labs/stagechat/internal/core/domain"
	"github.com/parchment-labs/stagechat/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// entry is one indexed passage with its precomputed vector norm and
// insertion sequence for deterministic tie-breaking.
type entry struct {
	passage domain.Passage
	norm    float64
	seq     uint64
}

// Index is an in-memory vector index.
type Index struct {
	mu      sync.RWMutex
	docs    map[string][]entry
	count   int
	nextSeq uint64
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{docs: make(map[string][]entry)}
}

// Upsert atomically replaces all entries owned by documentID.
func (idx *Index) Upsert(_ context.Context, documentID string, passages []domain.Passage) error {
	if documentID == "" {
		return domain.ErrInvalidInput
	}

	// Precompute norms outside the lock.
	entries := make([]entry, len(passages))
	for i, p := range passages {
		entries[i] = entry{passage: p, norm: vectorNorm(p.Embedding)}
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	for i := range entries {
		entries[i].seq = idx.nextSeq
		idx.nextSeq++
	}

	idx.count -= len(idx.docs[documentID])
	if len(entries) == 0 {
		delete(idx.docs, documentID)
	} else {
		idx.docs[documentID] = entries
		idx.count += len(entries)
	}
	return nil
}

// Remove atomically deletes all entries owned by documentID.
func (idx *Index) Remove(_ context.Context, documentID string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.count -= len(idx.docs[documentID])
	delete(idx.docs, documentID)
	return nil
}

// Search returns the k most similar passages, highest score first.
func (idx *Index) Search(_ context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	if k <= 0 {
		return nil, nil
	}

	// Snapshot the published entry slices; the slices themselves are
	// immutable, so scoring can run without holding the lock.
	idx.mu.RLock()
	snapshot := make([][]entry, 0, len(idx.docs))
	for _, entries := range idx.docs {
		snapshot = append(snapshot, entries)
	}
	idx.mu.RUnlock()

	queryNorm := vectorNorm(query)

	type scored struct {
		e     entry
		score float64
	}
	var candidates []scored
	for _, entries := range snapshot {
		for _, e := range entries {
			candidates = append(candidates, scored{e: e, score: cosine(query, queryNorm, e.passage.Embedding, e.norm)})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].e.seq < candidates[j].e.seq
	})

	if k > len(candidates) {
		k = len(candidates)
	}
	hits := make([]driven.VectorHit, k)
	for i := 0; i < k; i++ {
		hits[i] = driven.VectorHit{Passage: candidates[i].e.passage, Score: candidates[i].score}
	}
	return hits, nil
}

// Len returns the number of indexed passages.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.count
}

// Close releases resources.
func (idx *Index) Close() error {
	return nil
}

// cosine computes cosine similarity given precomputed norms.
func cosine(a []float32, aNorm float64, b []float32, bNorm float64) float64 {
	if aNorm == 0 || bNorm == 0 || len(a) != len(b) {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (aNorm * bNorm)
}

// vectorNorm computes the L2 norm.
func vectorNorm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
