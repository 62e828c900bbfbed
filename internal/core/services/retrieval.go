package services

import (
	"context"
	"fmt"

	"github.com/parchment-labs/stagechat/internal/chunker"
	"github.com/parchment-labs/stagechat/internal/core/domain"
	"github.com/parchment-labs/stagechat/internal/core/ports/driven"
	"github.com/parchment-labs/stagechat/internal/logger"
)

// RetrievalConfig holds similarity search and packing settings.
type RetrievalConfig struct {
	// TopK is the maximum number of passages in the context block.
	TopK int

	// Overfetch multiplies TopK for the raw search so filtering and
	// deduplication still leave enough candidates.
	Overfetch int

	// MaxContextTokens bounds the packed context size.
	MaxContextTokens int

	// MinScore drops candidates below this similarity.
	MinScore float64
}

// RetrievalService turns a question into a ranked, deduplicated,
// token-bounded context block.
type RetrievalService struct {
	embedding driven.EmbeddingService
	index     driven.VectorIndex
	cfg       RetrievalConfig
}

// NewRetrievalService creates a new retrieval service.
func NewRetrievalService(
	embedding driven.EmbeddingService,
	index driven.VectorIndex,
	cfg RetrievalConfig,
) *RetrievalService {
	return &RetrievalService{
		embedding: embedding,
		index:     index,
		cfg:       cfg,
	}
}

// Retrieve searches the index for passages relevant to the question.
// An empty index yields a block with NoDocuments set rather than an
// error; the caller decides how to answer without grounding.
func (s *RetrievalService) Retrieve(ctx context.Context, question string) (*domain.ContextBlock, error) {
	if s.index.Len() == 0 {
		logger.Debug("Index empty, no grounding available")
		return &domain.ContextBlock{NoDocuments: true}, nil
	}

	query, err := s.embedding.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embedding question: %w", err)
	}

	hits, err := s.index.Search(ctx, query, s.cfg.TopK*s.cfg.Overfetch)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}
	logger.Debug("Raw hits: %d", len(hits))

	candidates := s.filter(hits)
	candidates = dedupe(candidates)
	logger.Debug("After filter and dedupe: %d", len(candidates))

	block := s.pack(candidates)
	logger.Debug("Packed %d passages, truncated=%t", len(block.Passages), block.Truncated)
	return block, nil
}

// filter drops hits below the similarity floor.
func (s *RetrievalService) filter(hits []driven.VectorHit) []domain.ScoredPassage {
	candidates := make([]domain.ScoredPassage, 0, len(hits))
	for _, hit := range hits {
		if hit.Score < s.cfg.MinScore {
			continue
		}
		candidates = append(candidates, domain.ScoredPassage{
			Passage: hit.Passage,
			Score:   hit.Score,
		})
	}
	return candidates
}

// dedupe removes passages that overlap an already-kept passage from
// the same document. Input is ordered best first, so the kept passage
// is always the higher-scored one.
func dedupe(candidates []domain.ScoredPassage) []domain.ScoredPassage {
	kept := make([]domain.ScoredPassage, 0, len(candidates))
	for _, c := range candidates {
		overlapping := false
		for _, k := range kept {
			if c.Passage.DocumentID == k.Passage.DocumentID && c.Passage.Overlaps(k.Passage) {
				overlapping = true
				break
			}
		}
		if !overlapping {
			kept = append(kept, c)
		}
	}
	return kept
}

// pack greedily fills the context block best first, up to TopK
// passages. A passage that would overflow the token budget is dropped
// whole, never truncated, and the block is marked Truncated; smaller
// candidates further down may still fit.
func (s *RetrievalService) pack(candidates []domain.ScoredPassage) *domain.ContextBlock {
	block := &domain.ContextBlock{}
	budget := s.cfg.MaxContextTokens

	for _, c := range candidates {
		if len(block.Passages) >= s.cfg.TopK {
			break
		}
		cost := chunker.EstimateTokens(c.Passage.Content)
		if cost > budget {
			block.Truncated = true
			continue
		}
		block.Passages = append(block.Passages, c)
		budget -= cost
	}

	return block
}
