package rtc

import (
	"context"
	"errors"
	"log/slog"

	"github.com/rickgao/chat-relay/internal/dispatch"
	"github.com/rickgao/chat-relay/internal/protocol"
)

// Errors
var (
	ErrNoTarget        = errors.New("signal has no target")
	ErrSelfTarget      = errors.New("signal targets its own sender")
	ErrPeerUnavailable = errors.New("peer unavailable")
)

// Sender is the targeted-delivery surface of the dispatcher.
type Sender interface {
	SendToUser(ctx context.Context, env protocol.Envelope) (dispatch.Outcome, error)
}

// Relay validates and forwards signaling frames. Stateless per call; the
// actual call state machine (ringing, accepted, terminated) lives in the
// payload semantics agreed by clients.
type Relay struct {
	snd    Sender
	logger *slog.Logger
}

// NewRelay creates a signal relay.
func NewRelay(snd Sender, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{snd: snd, logger: logger}
}

// HandleSignal forwards one signaling frame from senderID to its target.
// Returns ErrPeerUnavailable when the target cannot be reached, so the
// caller can answer the sender within the same dispatch cycle.
func (r *Relay) HandleSignal(ctx context.Context, senderID int64, frame protocol.Frame) error {
	if frame.TargetID == 0 {
		return ErrNoTarget
	}
	if frame.TargetID == senderID {
		return ErrSelfTarget
	}

	env := protocol.NewEnvelope(protocol.KindRTCSignal, senderID, frame)

	outcome, err := r.snd.SendToUser(ctx, env)
	if err != nil {
		r.logger.Warn("signal delivery failed",
			"sender_id", senderID,
			"target_id", frame.TargetID,
			"error", err,
		)
		return ErrPeerUnavailable
	}
	if outcome == dispatch.OutcomeOffline {
		return ErrPeerUnavailable
	}

	r.logger.Debug("signal relayed",
		"sender_id", senderID,
		"target_id", frame.TargetID,
		"outcome", outcome.String(),
	)
	return nil
}
