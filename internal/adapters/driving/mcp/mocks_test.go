package mcp

import (
	"context"

	"github.com/parchment-labs/stagechat/internal/core/domain"
)

// mockChatService implements driving.ChatService for testing.
type mockChatService struct {
	answer *domain.Answer
	err    error

	// lastSessionID records the session the last Ask used.
	lastSessionID string
}

func (m *mockChatService) Ask(_ context.Context, sessionID, _ string) (*domain.Answer, error) {
	m.lastSessionID = sessionID
	if m.err != nil {
		return nil, m.err
	}
	return m.answer, nil
}

func (m *mockChatService) EndSession(_ context.Context, _ string) error {
	return nil
}

// mockIndexer implements driving.Indexer for testing.
type mockIndexer struct {
	result *domain.RefreshResult
	err    error
}

func (m *mockIndexer) Refresh(_ context.Context) (*domain.RefreshResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *mockIndexer) Load(_ context.Context) error {
	return nil
}

// mockCatalog implements driving.Catalog for testing.
type mockCatalog struct {
	objects []domain.StageObject
	err     error
}

func (m *mockCatalog) ListDocuments(_ context.Context) ([]domain.StageObject, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.objects, nil
}
