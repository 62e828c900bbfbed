package memory

import (
	"context"
	"sync"

	"github.com/parchment-labs/stagechat/internal/core/domain"
	"github.com/parchment-labs/stagechat/internal/core/ports/driven"
)

// Ensure SnapshotStore implements the interface.
var _ driven.SnapshotStore = (*SnapshotStore)(nil)

// SnapshotStore is an in-memory implementation of driven.SnapshotStore.
type SnapshotStore struct {
	mu   sync.RWMutex
	snap *domain.CatalogSnapshot
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{}
}

// Get returns the last recorded snapshot.
func (s *SnapshotStore) Get(_ context.Context) (*domain.CatalogSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap == nil {
		return nil, domain.ErrNotFound
	}

	copied := domain.CatalogSnapshot{
		TakenAt: s.snap.TakenAt,
		Objects: make(map[string]domain.StageObject, len(s.snap.Objects)),
	}
	for id, obj := range s.snap.Objects {
		copied.Objects[id] = obj
	}
	return &copied, nil
}

// Save records the snapshot for the next diff.
func (s *SnapshotStore) Save(_ context.Context, snap domain.CatalogSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := domain.CatalogSnapshot{
		TakenAt: snap.TakenAt,
		Objects: make(map[string]domain.StageObject, len(snap.Objects)),
	}
	for id, obj := range snap.Objects {
		copied.Objects[id] = obj
	}
	s.snap = &copied
	return nil
}
