package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/rickgao/chat-relay/internal/connection"
	"github.com/rickgao/chat-relay/internal/presence"
	"github.com/rickgao/chat-relay/internal/protocol"
	"github.com/rickgao/chat-relay/internal/registry"
)

// Dispatcher routes envelopes to local connections or peer nodes.
type Dispatcher struct {
	nodeID string
	reg    *registry.Registry
	dir    presence.Directory
	pub    Publisher
	sink   Sink
	logger *slog.Logger

	delivered     atomic.Int64
	forwarded     atomic.Int64
	offline       atomic.Int64
	raceLost      atomic.Int64
	dropped       atomic.Int64
	persistErrors atomic.Int64
}

// New creates a Dispatcher. sink may be nil when persistence is disabled.
func New(nodeID string, reg *registry.Registry, dir presence.Directory, pub Publisher, sink Sink, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		nodeID: nodeID,
		reg:    reg,
		dir:    dir,
		pub:    pub,
		sink:   sink,
		logger: logger,
	}
}

// decide resolves the single local-vs-remote-vs-unreachable branch for a
// target user. Kept in one place so it is independently testable.
func (d *Dispatcher) decide(ctx context.Context, targetID int64) RoutingDecision {
	// The local registry is authoritative for this process; the shared
	// directory only describes connections elsewhere.
	if conn, ok := d.reg.LookupLocal(targetID); ok {
		return RoutingDecision{kind: routeLocal, conn: conn}
	}

	nodeID, err := d.dir.Get(ctx, targetID)
	if errors.Is(err, presence.ErrNotFound) {
		return RoutingDecision{kind: routeUnreachable}
	}
	if err != nil {
		d.logger.Warn("presence lookup failed", "user_id", targetID, "error", err)
		return RoutingDecision{kind: routeUnreachable}
	}

	if nodeID == d.nodeID {
		// Directory says local but the registry disagrees: the user
		// disconnected between lookup and delivery. One registry
		// re-check, then report unreachable rather than retry-loop.
		if conn, ok := d.reg.LookupLocal(targetID); ok {
			return RoutingDecision{kind: routeLocal, conn: conn}
		}
		d.raceLost.Add(1)
		return RoutingDecision{kind: routeUnreachable}
	}

	return RoutingDecision{kind: routeRemote, nodeID: nodeID}
}

// SendToUser routes a targeted envelope, crossing nodes when the target
// is connected elsewhere. Cross-node delivery is at-most-once.
func (d *Dispatcher) SendToUser(ctx context.Context, env protocol.Envelope) (Outcome, error) {
	dec := d.decide(ctx, env.TargetID)

	switch dec.kind {
	case routeLocal:
		return d.deliver(ctx, dec.conn, env)

	case routeRemote:
		if err := d.pub.PublishToNode(ctx, dec.nodeID, env); err != nil {
			d.logger.Warn("cross-node publish failed",
				"target_id", env.TargetID,
				"node_id", dec.nodeID,
				"error", err,
			)
			return OutcomeOffline, nil
		}
		d.forwarded.Add(1)
		return OutcomeForwarded, nil

	default:
		d.offline.Add(1)
		return OutcomeOffline, nil
	}
}

// SendToLocalUser delivers on this process only, bypassing the presence
// directory. Used by the cross-node listener, which already knows the
// target is local; publishing from here would create a relay loop.
func (d *Dispatcher) SendToLocalUser(ctx context.Context, env protocol.Envelope) (Outcome, error) {
	conn, ok := d.reg.LookupLocal(env.TargetID)
	if !ok {
		d.raceLost.Add(1)
		return OutcomeOffline, nil
	}
	return d.deliver(ctx, conn, env)
}

// Broadcast fans out to every local connection except SkipID, then
// publishes once on the global topic so peer nodes repeat the same local
// fan-out. Returns the local delivery count.
func (d *Dispatcher) Broadcast(ctx context.Context, env protocol.Envelope) (int, error) {
	n := d.BroadcastLocal(ctx, env)

	if err := d.pub.PublishBroadcast(ctx, env); err != nil {
		d.logger.Warn("broadcast publish failed", "error", err)
	}

	d.record(ctx, env)
	return n, nil
}

// BroadcastLocal fans out to local connections only. Used by the
// cross-node listener for broadcasts published elsewhere; it never
// re-publishes.
func (d *Dispatcher) BroadcastLocal(ctx context.Context, env protocol.Envelope) int {
	data, err := protocol.EncodeMessage(protocol.Message{
		Kind:     env.Kind,
		SenderID: env.SenderID,
		Payload:  env.Payload,
	})
	if err != nil {
		d.logger.Warn("broadcast encode failed", "error", err)
		return 0
	}

	n := 0
	for _, conn := range d.reg.Snapshot() {
		if env.SkipID != 0 && conn.UserID() == env.SkipID {
			continue
		}
		if err := conn.Send(data); err != nil {
			d.dropped.Add(1)
			continue
		}
		n++
	}

	d.delivered.Add(int64(n))
	return n
}

// deliver hands an envelope to a local connection and records it.
func (d *Dispatcher) deliver(ctx context.Context, conn *connection.Conn, env protocol.Envelope) (Outcome, error) {
	data, err := protocol.EncodeMessage(protocol.Message{
		Kind:     env.Kind,
		SenderID: env.SenderID,
		Payload:  env.Payload,
	})
	if err != nil {
		return OutcomeOffline, err
	}

	if env.Kind == protocol.KindRTCSignal {
		// Signaling frames are never silently dropped: block until
		// queued or fail so the relay can surface the error.
		if err := conn.SendCritical(ctx, data); err != nil {
			return OutcomeOffline, err
		}
	} else {
		switch err := conn.Send(data); {
		case errors.Is(err, connection.ErrClosed):
			d.raceLost.Add(1)
			return OutcomeOffline, nil
		case errors.Is(err, connection.ErrQueueFull):
			// Drop-newest policy for non-critical frames: the sender
			// still sees success, but nothing was queued to persist.
			d.dropped.Add(1)
			return OutcomeDelivered, nil
		}
	}

	d.delivered.Add(1)
	d.record(ctx, env)
	return OutcomeDelivered, nil
}

// record invokes the persistence sink. Best-effort: a failure is logged
// and never changes the delivery outcome or blocks subsequent messages.
func (d *Dispatcher) record(ctx context.Context, env protocol.Envelope) {
	if d.sink == nil || env.Kind != protocol.KindChat {
		return
	}
	if err := d.sink.Record(ctx, env); err != nil {
		d.persistErrors.Add(1)
		d.logger.Warn("message persistence failed",
			"message_id", env.ID,
			"sender_id", env.SenderID,
			"error", err,
		)
	}
}

// Stats returns current counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Delivered:     d.delivered.Load(),
		Forwarded:     d.forwarded.Load(),
		Offline:       d.offline.Load(),
		RaceLost:      d.raceLost.Load(),
		Dropped:       d.dropped.Load(),
		PersistErrors: d.persistErrors.Load(),
	}
}
