package driven

import (
	"context"

	"github.com/parchment-labs/stagechat/internal/core/domain"
)

// DocumentStore persists documents and their passages so the index
// survives restarts without reprocessing the corpus.
type DocumentStore interface {
	// SaveDocument stores or updates a document.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// GetDocument retrieves a document by stage path.
	// Returns domain.ErrNotFound if it does not exist.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// ListDocuments returns all stored documents, without content.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// SavePassages replaces the stored passages for a document.
	SavePassages(ctx context.Context, documentID string, passages []domain.Passage) error

	// GetPassages returns the stored passages for a document in offset
	// order, embeddings included.
	GetPassages(ctx context.Context, documentID string) ([]domain.Passage, error)

	// DeleteDocument removes a document and all its passages.
	DeleteDocument(ctx context.Context, id string) error
}
