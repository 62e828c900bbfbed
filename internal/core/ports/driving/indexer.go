package driving

import (
	"context"

	"github.com/parchment-labs/stagechat/internal/core/domain"
)

// Indexer keeps the vector index consistent with the stage.
type Indexer interface {
	// Refresh diffs the stage against the last snapshot and processes
	// every change. Per-document failures are isolated and reported in
	// the result; committed documents stay committed. Re-running with no
	// underlying changes is a no-op.
	Refresh(ctx context.Context) (*domain.RefreshResult, error)

	// Load rebuilds the in-memory vector index from persisted passages,
	// excluding entries whose owning document hash no longer matches the
	// recorded snapshot.
	Load(ctx context.Context) error
}
