package crossnode

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/rickgao/chat-relay/internal/protocol"
)

const (
	nodeChannelPrefix = "chat:node:"
	broadcastChannel  = "chat:broadcast"
)

// NodeChannel returns the pub/sub channel addressed to one node.
func NodeChannel(nodeID string) string {
	return nodeChannelPrefix + nodeID
}

// Bus publishes envelopes onto the shared pub/sub channel. It implements
// dispatch.Publisher.
type Bus struct {
	rdb    *redis.Client
	nodeID string
	logger *slog.Logger
}

// NewBus creates a publisher identified by this node.
func NewBus(rdb *redis.Client, nodeID string, logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{rdb: rdb, nodeID: nodeID, logger: logger}
}

// PublishToNode forwards a targeted envelope to the node owning the
// target's connection. At-most-once: no acknowledgment is awaited.
func (b *Bus) PublishToNode(ctx context.Context, nodeID string, env protocol.Envelope) error {
	data, err := protocol.EncodeRoute(b.nodeID, env)
	if err != nil {
		return err
	}
	if err := b.rdb.Publish(ctx, NodeChannel(nodeID), data).Err(); err != nil {
		return fmt.Errorf("publish to node %s: %w", nodeID, err)
	}
	b.logger.Debug("forwarded envelope",
		"message_id", env.ID,
		"target_id", env.TargetID,
		"node_id", nodeID,
	)
	return nil
}

// PublishBroadcast publishes an envelope on the global topic so every
// node repeats the local fan-out.
func (b *Bus) PublishBroadcast(ctx context.Context, env protocol.Envelope) error {
	data, err := protocol.EncodeRoute(b.nodeID, env)
	if err != nil {
		return err
	}
	if err := b.rdb.Publish(ctx, broadcastChannel, data).Err(); err != nil {
		return fmt.Errorf("publish broadcast: %w", err)
	}
	return nil
}
