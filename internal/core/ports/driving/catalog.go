package driving

import (
	"context"

	"github.com/parchment-labs/stagechat/internal/core/domain"
)

// Catalog exposes the current stage contents.
type Catalog interface {
	// ListDocuments returns the objects currently present in the stage.
	ListDocuments(ctx context.Context) ([]domain.StageObject, error)
}
