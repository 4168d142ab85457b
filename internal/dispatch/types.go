package dispatch

import (
	"context"

	"github.com/rickgao/chat-relay/internal/connection"
	"github.com/rickgao/chat-relay/internal/protocol"
)

// Outcome is the caller-visible result of a targeted send.
type Outcome int

const (
	// OutcomeDelivered means the frame was handed to a local connection.
	OutcomeDelivered Outcome = iota

	// OutcomeForwarded means the envelope was published to the owning node.
	OutcomeForwarded

	// OutcomeOffline means the target has no live presence entry. This is
	// a normal result, not an error; offline fan-out belongs to the
	// persistence collaborators, not this core.
	OutcomeOffline
)

// String returns a human-readable outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeDelivered:
		return "delivered"
	case OutcomeForwarded:
		return "forwarded"
	case OutcomeOffline:
		return "offline"
	default:
		return "unknown"
	}
}

// routeKind discriminates a RoutingDecision.
type routeKind int

const (
	routeLocal routeKind = iota
	routeRemote
	routeUnreachable
)

// RoutingDecision is derived per envelope and never cached beyond the
// single dispatch.
type RoutingDecision struct {
	kind   routeKind
	conn   *connection.Conn
	nodeID string
}

// Publisher publishes envelopes onto the cross-node channel.
type Publisher interface {
	PublishToNode(ctx context.Context, nodeID string, env protocol.Envelope) error
	PublishBroadcast(ctx context.Context, env protocol.Envelope) error
}

// Sink records delivered messages. Failures are logged and never affect
// the delivery outcome already reported to the sender.
type Sink interface {
	Record(ctx context.Context, env protocol.Envelope) error
}

// Stats reports dispatcher counters.
type Stats struct {
	Delivered     int64
	Forwarded     int64
	Offline       int64
	RaceLost      int64
	Dropped       int64
	PersistErrors int64
}
