package presence

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates the user has no live presence entry.
var ErrNotFound = errors.New("presence entry not found")

// Directory maps userID -> nodeID with a TTL, shared by all nodes.
type Directory interface {
	// Put installs or overwrites the entry for a user.
	Put(ctx context.Context, userID int64, nodeID string, ttl time.Duration) error

	// Get resolves the owning node for a user. Returns ErrNotFound when
	// the user is offline (or the entry expired).
	Get(ctx context.Context, userID int64) (string, error)

	// Refresh extends the TTL of an existing entry. Implemented as an
	// overwrite so a lost entry is recreated rather than erred on.
	Refresh(ctx context.Context, userID int64, nodeID string, ttl time.Duration) error

	// Remove deletes the entry. Best-effort: on failure the TTL still
	// guarantees eventual expiry.
	Remove(ctx context.Context, userID int64) error
}
