package driven

import (
	"context"
	"time"

	"github.com/parchment-labs/stagechat/internal/core/domain"
)

// SessionStore holds conversation histories keyed by session ID.
// Implementations bound each session to a configured turn cap, evicting
// the oldest turns first.
type SessionStore interface {
	// Get retrieves a session by ID.
	// Returns domain.ErrNotFound if it does not exist.
	Get(ctx context.Context, id string) (*domain.Session, error)

	// AppendTurn appends a turn, creating the session if needed.
	// Oldest turns past the cap are evicted in the same operation.
	AppendTurn(ctx context.Context, sessionID string, turn domain.Turn) error

	// Delete removes a session and its turns.
	Delete(ctx context.Context, id string) error

	// PurgeExpired removes sessions idle longer than ttl and returns
	// how many were removed. A zero ttl purges nothing.
	PurgeExpired(ctx context.Context, ttl time.Duration) (int, error)
}
