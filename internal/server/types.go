package server

import (
	"context"

	"github.com/rickgao/chat-relay/internal/connection"
)

// Config configures the websocket edge.
type Config struct {
	NodeID         string
	Path           string
	AllowedOrigins []string // empty means same-origin only; "*" allows all
	RateLimit      float64  // inbound frames per second per connection
	RateBurst      int
	Conn           connection.Config
}

// TokenResolver resolves a connection token to a user identity, called
// once at upgrade time.
type TokenResolver interface {
	Resolve(ctx context.Context, token string) (int64, error)
}

// Authorizer is consulted before a targeted chat envelope is admitted to
// the dispatcher.
type Authorizer interface {
	IsAuthorized(ctx context.Context, senderID, targetID int64) (bool, error)
}
