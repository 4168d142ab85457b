package protocol

import (
	"encoding/json"
	"errors"
)

// Errors
var (
	ErrEmptyFrame  = errors.New("empty frame")
	ErrBadFrame    = errors.New("malformed frame")
	ErrUnknownKind = errors.New("unknown frame kind")
)

// Frame kinds accepted from clients.
const (
	KindHeartbeat = "heartbeat"
	KindChat      = "chat"
	KindRTCSignal = "rtc_signal"
)

// Outbound-only kinds.
const (
	KindConnected = "connected"
	KindPresence  = "presence"
	KindError     = "error"
)

// Error codes carried in outbound error frames.
const (
	CodeProtocolViolation     = "protocol_violation"
	CodeUnauthenticated       = "unauthenticated"
	CodeUnauthorized          = "unauthorized"
	CodeSignalDeliveryFailure = "signal_delivery_failure"
)

// Frame is one inbound client request.
type Frame struct {
	Kind      string          `json:"kind"`
	TargetID  int64           `json:"targetId,omitempty"`
	Broadcast bool            `json:"broadcast,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Message is one outbound frame to a client.
type Message struct {
	Kind     string          `json:"kind"`
	SenderID int64           `json:"senderId,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// ErrorPayload is the payload of a KindError message.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Envelope is the unit of routed data. Immutable once constructed; it is
// never mutated after entering the dispatcher.
type Envelope struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	SenderID  int64           `json:"senderId"`
	TargetID  int64           `json:"targetId,omitempty"`
	SkipID    int64           `json:"skipId,omitempty"`
	Broadcast bool            `json:"broadcast,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// RouteMessage wraps an Envelope on the cross-node channel. Origin is the
// publishing node, used by subscribers to skip their own broadcast echo.
type RouteMessage struct {
	Origin   string   `json:"origin"`
	Envelope Envelope `json:"envelope"`
}

// PresencePayload is the payload of a KindPresence broadcast.
type PresencePayload struct {
	UserID int64  `json:"userId"`
	Online bool   `json:"online"`
	NodeID string `json:"nodeId"`
}

// ConnectedPayload is the payload of the KindConnected ack sent after a
// successful upgrade and registration.
type ConnectedPayload struct {
	UserID int64  `json:"userId"`
	NodeID string `json:"nodeId"`
}
