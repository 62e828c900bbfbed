package driving

import (
	"context"

	"github.com/parchment-labs/stagechat/internal/core/domain"
)

// ChatService answers questions about the corpus with multi-turn
// memory. Concurrent asks against the same session are serialized;
// different sessions run concurrently.
type ChatService interface {
	// Ask answers a question within a session, grounding the answer on
	// retrieved passages and recording the turn. On backend failure or
	// cancellation no turn is recorded.
	Ask(ctx context.Context, sessionID, question string) (*domain.Answer, error)

	// EndSession deletes a session and its history.
	EndSession(ctx context.Context, sessionID string) error
}
