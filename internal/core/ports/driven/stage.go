package driven

import (
	"context"

	"github.com/parchment-labs/stagechat/internal/core/domain"
)

// StageStore reads the remote stage holding the source documents.
// Session setup and credentials for the backing store are handled
// outside the engine; this port only lists and reads objects.
type StageStore interface {
	// List returns the objects currently present in the stage.
	// Failures wrap domain.ErrBackendUnavailable; List never retries.
	List(ctx context.Context) ([]domain.StageObject, error)

	// Read returns the raw bytes of one object.
	Read(ctx context.Context, id string) ([]byte, error)

	// Close releases resources.
	Close() error
}
