package dialog

import "context"

// Storage defines the conversation session storage API.
// Sessions live in process memory for the life of the bot process; there is
// deliberately no durable backing store.
type Storage interface {
	// Get retrieves the session of a user, or nil if none exists
	Get(ctx context.Context, userID string) (*Session, error)

	// Put creates or replaces the session of a user
	Put(ctx context.Context, session *Session) error

	// Delete removes the session of a user
	Delete(ctx context.Context, userID string) error

	// DeleteIdle removes all sessions whose last mutation is older than the
	// given unix timestamp and returns how many were removed
	DeleteIdle(ctx context.Context, before int64) (int, error)
}
