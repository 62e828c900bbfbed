package domain

import "time"

// Turn is one question/answer exchange in a conversation.
// Immutable once created.
type Turn struct {
	// Question is the user's question text as asked.
	Question string

	// Citations are the passages the answer was grounded on.
	Citations []Citation

	// Answer is the generated answer text.
	Answer string

	// CreatedAt is when the turn was recorded.
	CreatedAt time.Time
}

// Session is a bounded ordered history of turns for one conversation.
// The store evicts the oldest turns past its configured cap and expires
// sessions idle beyond their TTL.
type Session struct {
	// ID is the session identifier.
	ID string

	// Turns is the ordered turn history, oldest first.
	Turns []Turn

	// CreatedAt is when the session was created.
	CreatedAt time.Time

	// UpdatedAt is when the last turn was appended.
	UpdatedAt time.Time
}

// Expired reports whether the session has been idle longer than ttl.
// A zero ttl means sessions never expire.
func (s Session) Expired(ttl time.Duration, now time.Time) bool {
	if ttl <= 0 {
		return false
	}
	return now.Sub(s.UpdatedAt) > ttl
}
