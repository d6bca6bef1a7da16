package session

import (
	"context"
	"errors"

	"pansobot/internal/domain"
)

// ErrNotFound is returned when a user has no stored session, reveal entry,
// or pending quick-search type.
var ErrNotFound = errors.New("session entry not found")

// Store defines the interface for per-user browsing state.
// Sessions are keyed by Telegram user ID; a Put overwrites the user's
// previous session. There is deliberately no delete API: entries expire
// via the store's TTL instead.
type Store interface {
	// Put stores the user's current session, replacing any previous one.
	Put(ctx context.Context, userID int64, sess domain.Session) error

	// Get retrieves the user's current session.
	Get(ctx context.Context, userID int64) (domain.Session, error)

	// PutReveal records a link that can be disclosed on demand via the
	// given key. Writing the same key again overwrites it.
	PutReveal(ctx context.Context, userID int64, key, url string) error

	// GetReveal returns the link previously recorded under key.
	GetReveal(ctx context.Context, userID int64, key string) (string, error)

	// PutQuickType records the provider type the user's next keyword
	// search should be scoped to.
	PutQuickType(ctx context.Context, userID int64, resourceType string) error

	// TakeQuickType returns and clears the pending provider type.
	TakeQuickType(ctx context.Context, userID int64) (string, error)

	// Close gracefully shuts down the store.
	Close() error
}
