package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// knownKinds holds every frame kind a client may send.
var knownKinds = map[string]struct{}{
	KindHeartbeat: {},
	KindChat:      {},
	KindRTCSignal: {},
}

// ParseFrame decodes one inbound frame. An unknown kind is a protocol
// violation but must not cost the whole session, so the caller is expected
// to reply with an error frame and keep reading.
func ParseFrame(data []byte) (Frame, error) {
	if len(data) == 0 {
		return Frame{}, ErrEmptyFrame
	}

	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrBadFrame, err)
	}

	if _, ok := knownKinds[f.Kind]; !ok {
		return Frame{}, fmt.Errorf("%w: %q", ErrUnknownKind, f.Kind)
	}

	return f, nil
}

// NewEnvelope builds an immutable Envelope with a fresh message ID.
func NewEnvelope(kind string, senderID int64, frame Frame) Envelope {
	return Envelope{
		ID:        uuid.NewString(),
		Kind:      kind,
		SenderID:  senderID,
		TargetID:  frame.TargetID,
		Broadcast: frame.Broadcast,
		Payload:   frame.Payload,
	}
}

// EncodeMessage marshals an outbound frame.
func EncodeMessage(m Message) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return data, nil
}

// ErrorMessage builds an outbound error frame.
func ErrorMessage(code, msg string) Message {
	payload, _ := json.Marshal(ErrorPayload{Code: code, Message: msg})
	return Message{Kind: KindError, Payload: payload}
}

// EncodeRoute marshals a RouteMessage for the cross-node channel.
func EncodeRoute(origin string, env Envelope) ([]byte, error) {
	data, err := json.Marshal(RouteMessage{Origin: origin, Envelope: env})
	if err != nil {
		return nil, fmt.Errorf("encode route message: %w", err)
	}
	return data, nil
}

// DecodeRoute unmarshals a RouteMessage received from the cross-node channel.
func DecodeRoute(data []byte) (RouteMessage, error) {
	var rm RouteMessage
	if err := json.Unmarshal(data, &rm); err != nil {
		return RouteMessage{}, fmt.Errorf("decode route message: %w", err)
	}
	return rm, nil
}
