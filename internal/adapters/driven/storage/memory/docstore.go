// Package memory provides in-memory implementations of the persistence
// ports, used in tests and as lightweight defaults.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/parchment-labs/stagechat/internal/core/domain"
	"github.com/parchment-labs/stagechat/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interface.
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore is an in-memory implementation of driven.DocumentStore.
type DocumentStore struct {
	mu        sync.RWMutex
	documents map[string]domain.Document
	passages  map[string][]domain.Passage
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents: make(map[string]domain.Document),
		passages:  make(map[string][]domain.Passage),
	}
}

// SaveDocument stores or updates a document.
func (s *DocumentStore) SaveDocument(_ context.Context, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[doc.ID] = *doc
	return nil
}

// GetDocument retrieves a document by stage path.
func (s *DocumentStore) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// ListDocuments returns all stored documents without content.
func (s *DocumentStore) ListDocuments(_ context.Context) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]domain.Document, 0, len(s.documents))
	for _, doc := range s.documents {
		doc.Content = ""
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

// SavePassages replaces the stored passages for a document.
func (s *DocumentStore) SavePassages(_ context.Context, documentID string, passages []domain.Passage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.passages[documentID] = append([]domain.Passage(nil), passages...)
	return nil
}

// GetPassages returns the stored passages for a document in offset order.
func (s *DocumentStore) GetPassages(_ context.Context, documentID string) ([]domain.Passage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	passages := append([]domain.Passage(nil), s.passages[documentID]...)
	sort.Slice(passages, func(i, j int) bool { return passages[i].Start < passages[j].Start })
	return passages, nil
}

// DeleteDocument removes a document and all its passages.
func (s *DocumentStore) DeleteDocument(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.documents, id)
	delete(s.passages, id)
	return nil
}
