package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/parchment-labs/stagechat/internal/chunker"
	"github.com/parchment-labs/stagechat/internal/core/domain"
	"github.com/parchment-labs/stagechat/internal/core/ports/driven"
	"github.com/parchment-labs/stagechat/internal/core/ports/driving"
	"github.com/parchment-labs/stagechat/internal/logger"
)

// Ensure IndexerService implements the interface.
var _ driving.Indexer = (*IndexerService)(nil)

// IndexerConfig holds chunking settings for the indexer.
type IndexerConfig struct {
	// ChunkSize is the passage size in runes.
	ChunkSize int

	// ChunkOverlap is the number of runes shared between consecutive
	// passages.
	ChunkOverlap int
}

// IndexerService keeps the vector index and the document store
// consistent with the stage. One refresh runs at a time; documents are
// committed one by one so a failure mid-pass never loses earlier work.
type IndexerService struct {
	stage      driven.StageStore
	extractors driven.ExtractorRegistry
	embedding  driven.EmbeddingService
	index      driven.VectorIndex
	docs       driven.DocumentStore
	snapshots  driven.SnapshotStore
	cfg        IndexerConfig

	mu  sync.Mutex
	now func() time.Time
}

// NewIndexerService creates a new indexer service.
func NewIndexerService(
	stage driven.StageStore,
	extractors driven.ExtractorRegistry,
	embedding driven.EmbeddingService,
	index driven.VectorIndex,
	docs driven.DocumentStore,
	snapshots driven.SnapshotStore,
	cfg IndexerConfig,
) *IndexerService {
	return &IndexerService{
		stage:      stage,
		extractors: extractors,
		embedding:  embedding,
		index:      index,
		docs:       docs,
		snapshots:  snapshots,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Refresh diffs the stage against the last recorded snapshot and
// processes every change. Each document commits independently: a
// failure is recorded in the result and the pass continues. The new
// snapshot records only what actually committed, so a later refresh
// retries exactly the failed documents.
func (s *IndexerService) Refresh(ctx context.Context) (*domain.RefreshResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	logger.Section("Stage Refresh")

	objects, err := s.stage.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing stage: %w", err)
	}

	prev, err := s.snapshots.Get(ctx)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}

	diff := DiffSnapshot(prev, objects)
	logger.Info("Diff: %d added, %d modified, %d removed",
		len(diff.Added), len(diff.Modified), len(diff.Removed))

	result := &domain.RefreshResult{}
	if diff.Empty() {
		logger.Debug("Stage unchanged, nothing to do")
		return result, nil
	}

	// The next snapshot starts from the previous one and is patched as
	// documents commit. Failed documents keep their old entry (or none),
	// so the next diff picks them up again.
	next := domain.CatalogSnapshot{
		TakenAt: s.now(),
		Objects: make(map[string]domain.StageObject, len(objects)),
	}
	if prev != nil {
		for id, obj := range prev.Objects {
			next.Objects[id] = obj
		}
	}

	for _, obj := range diff.Added {
		if err := s.indexObject(ctx, obj); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn("Indexing %s failed: %v", obj.ID, err)
			result.Failed = append(result.Failed, domain.RefreshFailure{
				DocumentID: obj.ID,
				Reason:     err.Error(),
			})
			continue
		}
		next.Objects[obj.ID] = obj
		result.Added++
	}

	for _, obj := range diff.Modified {
		if err := s.indexObject(ctx, obj); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn("Reindexing %s failed: %v", obj.ID, err)
			result.Failed = append(result.Failed, domain.RefreshFailure{
				DocumentID: obj.ID,
				Reason:     err.Error(),
			})
			continue
		}
		next.Objects[obj.ID] = obj
		result.Modified++
	}

	for _, obj := range diff.Removed {
		if err := s.removeObject(ctx, obj.ID); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn("Removing %s failed: %v", obj.ID, err)
			result.Failed = append(result.Failed, domain.RefreshFailure{
				DocumentID: obj.ID,
				Reason:     err.Error(),
			})
			continue
		}
		delete(next.Objects, obj.ID)
		result.Removed++
	}

	if err := s.snapshots.Save(ctx, next); err != nil {
		return nil, fmt.Errorf("saving snapshot: %w", err)
	}

	logger.Info("Refresh done: %d added, %d modified, %d removed, %d failed",
		result.Added, result.Modified, result.Removed, len(result.Failed))
	return result, nil
}

// indexObject runs the full pipeline for one stage object: read,
// extract, chunk, embed, persist, index. The vector index is updated
// last so a failure leaves the previous entries intact.
func (s *IndexerService) indexObject(ctx context.Context, obj domain.StageObject) error {
	data, err := s.stage.Read(ctx, obj.ID)
	if err != nil {
		return fmt.Errorf("reading: %w", err)
	}

	text, err := s.extractors.Extract(data, obj.ID)
	if err != nil {
		return fmt.Errorf("extracting: %w", err)
	}

	pieces, err := chunker.Split(text, s.cfg.ChunkSize, s.cfg.ChunkOverlap)
	if err != nil {
		return fmt.Errorf("chunking: %w", err)
	}
	logger.Debug("Document %s: %d passages", obj.ID, len(pieces))

	passages := make([]domain.Passage, len(pieces))
	texts := make([]string, len(pieces))
	for i, p := range pieces {
		passages[i] = domain.Passage{
			ID:         domain.PassageID(obj.ID, p.Start, p.End),
			DocumentID: obj.ID,
			Start:      p.Start,
			End:        p.End,
			Content:    p.Text,
		}
		texts[i] = p.Text
	}

	if len(texts) > 0 {
		embeddings, err := s.embedding.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embedding: %w", err)
		}
		if len(embeddings) != len(passages) {
			return fmt.Errorf("%w: got %d embeddings for %d passages",
				domain.ErrIndexInconsistent, len(embeddings), len(passages))
		}
		for i := range passages {
			passages[i].Embedding = embeddings[i]
		}
	}

	doc := &domain.Document{
		ID:           obj.ID,
		Hash:         obj.Hash,
		LastModified: obj.LastModified,
		Content:      text,
		IndexedAt:    s.now(),
	}
	if err := s.docs.SaveDocument(ctx, doc); err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	if err := s.docs.SavePassages(ctx, obj.ID, passages); err != nil {
		return fmt.Errorf("saving passages: %w", err)
	}

	if err := s.index.Upsert(ctx, obj.ID, passages); err != nil {
		return fmt.Errorf("indexing: %w", err)
	}
	return nil
}

// removeObject drops a document from the index and the store.
func (s *IndexerService) removeObject(ctx context.Context, id string) error {
	if err := s.index.Remove(ctx, id); err != nil {
		return fmt.Errorf("removing from index: %w", err)
	}
	if err := s.docs.DeleteDocument(ctx, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("deleting document: %w", err)
	}
	return nil
}

// Load rebuilds the vector index from persisted passages. Documents
// whose stored hash no longer matches the recorded snapshot are stale
// and get dropped; the next refresh reindexes them from the stage.
func (s *IndexerService) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	logger.Section("Index Load")

	snap, err := s.snapshots.Get(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			logger.Debug("No snapshot recorded, index starts empty")
			return nil
		}
		return fmt.Errorf("loading snapshot: %w", err)
	}

	docs, err := s.docs.ListDocuments(ctx)
	if err != nil {
		return fmt.Errorf("listing documents: %w", err)
	}

	loaded, dropped := 0, 0
	for _, doc := range docs {
		obj, ok := snap.Objects[doc.ID]
		if !ok || obj.Hash != doc.Hash {
			logger.Debug("Dropping stale document %s", doc.ID)
			if err := s.docs.DeleteDocument(ctx, doc.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("deleting stale document %s: %w", doc.ID, err)
			}
			dropped++
			continue
		}

		passages, err := s.docs.GetPassages(ctx, doc.ID)
		if err != nil {
			return fmt.Errorf("loading passages for %s: %w", doc.ID, err)
		}
		if err := s.index.Upsert(ctx, doc.ID, passages); err != nil {
			return fmt.Errorf("indexing %s: %w", doc.ID, err)
		}
		loaded++
	}

	logger.Info("Index loaded: %d documents, %d stale dropped", loaded, dropped)
	return nil
}
