package driven

import (
	"context"

	"github.com/parchment-labs/stagechat/internal/core/domain"
)

// SnapshotStore persists the catalog snapshot a refresh was diffed
// against. The Indexer saves the new snapshot after each pass; the
// catalog itself stays a pure read.
type SnapshotStore interface {
	// Get returns the last recorded snapshot.
	// Returns domain.ErrNotFound when no refresh has run yet.
	Get(ctx context.Context) (*domain.CatalogSnapshot, error)

	// Save records the snapshot for the next diff.
	Save(ctx context.Context, snap domain.CatalogSnapshot) error
}
