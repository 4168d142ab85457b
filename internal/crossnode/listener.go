package crossnode

import (
	"context"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/rickgao/chat-relay/internal/dispatch"
	"github.com/rickgao/chat-relay/internal/protocol"
)

// Deliverer is the local-delivery surface the listener re-injects into.
// Satisfied by dispatch.Dispatcher.
type Deliverer interface {
	SendToLocalUser(ctx context.Context, env protocol.Envelope) (dispatch.Outcome, error)
	BroadcastLocal(ctx context.Context, env protocol.Envelope) int
}

// Listener consumes the cross-node channel for this node.
type Listener struct {
	rdb    *redis.Client
	nodeID string
	dlv    Deliverer
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewListener creates a listener bound to this node's channel and the
// global broadcast topic.
func NewListener(rdb *redis.Client, nodeID string, dlv Deliverer, logger *slog.Logger) *Listener {
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{rdb: rdb, nodeID: nodeID, dlv: dlv, logger: logger}
}

// Start subscribes and begins consuming.
func (l *Listener) Start(ctx context.Context) error {
	l.ctx, l.cancel = context.WithCancel(ctx)

	sub := l.rdb.Subscribe(l.ctx, NodeChannel(l.nodeID), broadcastChannel)

	// Force the subscription before reporting started, so a forwarded
	// message published right after startup is not lost.
	if _, err := sub.Receive(l.ctx); err != nil {
		sub.Close()
		return err
	}

	l.wg.Add(1)
	go l.consumeLoop(sub)

	l.logger.Info("cross-node listener started",
		"node_channel", NodeChannel(l.nodeID),
		"broadcast_channel", broadcastChannel,
	)
	return nil
}

// Stop unsubscribes and waits for the consumer to drain.
func (l *Listener) Stop(ctx context.Context) error {
	if l.cancel != nil {
		l.cancel()
	}

	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		l.logger.Info("cross-node listener stopped")
	case <-ctx.Done():
		l.logger.Warn("cross-node listener stop timed out")
	}
	return nil
}

func (l *Listener) consumeLoop(sub *redis.PubSub) {
	defer l.wg.Done()
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-l.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				l.logger.Warn("pub/sub channel closed")
				return
			}
			l.Handle(msg.Channel, []byte(msg.Payload))
		}
	}
}

// Handle processes one raw pub/sub message. It only ever delivers
// locally; re-publishing a remote message would create an infinite relay
// loop.
func (l *Listener) Handle(channel string, payload []byte) {
	rm, err := protocol.DecodeRoute(payload)
	if err != nil {
		l.logger.Warn("dropping undecodable route message", "error", err)
		return
	}

	ctx := l.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	switch channel {
	case broadcastChannel:
		if rm.Origin == l.nodeID {
			// This node already fanned out before publishing.
			return
		}
		l.dlv.BroadcastLocal(ctx, rm.Envelope)

	default:
		outcome, err := l.dlv.SendToLocalUser(ctx, rm.Envelope)
		if err != nil {
			l.logger.Warn("local re-delivery failed",
				"message_id", rm.Envelope.ID,
				"target_id", rm.Envelope.TargetID,
				"error", err,
			)
			return
		}
		if outcome == dispatch.OutcomeOffline {
			// The target vanished between the peer's directory lookup
			// and our delivery. Best-effort: drop.
			l.logger.Debug("forwarded envelope target gone",
				"message_id", rm.Envelope.ID,
				"target_id", rm.Envelope.TargetID,
			)
		}
	}
}
