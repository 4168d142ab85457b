package protocol

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseFrame(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    Frame
		wantErr error
	}{
		{
			name: "heartbeat",
			data: `{"kind":"heartbeat"}`,
			want: Frame{Kind: KindHeartbeat},
		},
		{
			name: "targeted chat",
			data: `{"kind":"chat","targetId":42,"payload":{"text":"hi"}}`,
			want: Frame{Kind: KindChat, TargetID: 42},
		},
		{
			name: "broadcast chat",
			data: `{"kind":"chat","broadcast":true,"payload":{"text":"all"}}`,
			want: Frame{Kind: KindChat, Broadcast: true},
		},
		{
			name: "rtc signal",
			data: `{"kind":"rtc_signal","targetId":7,"payload":{"sdp":"offer"}}`,
			want: Frame{Kind: KindRTCSignal, TargetID: 7},
		},
		{
			name:    "unknown kind",
			data:    `{"kind":"teleport","targetId":1}`,
			wantErr: ErrUnknownKind,
		},
		{
			name:    "outbound-only kind rejected inbound",
			data:    `{"kind":"error"}`,
			wantErr: ErrUnknownKind,
		},
		{
			name:    "malformed json",
			data:    `{"kind":`,
			wantErr: ErrBadFrame,
		},
		{
			name:    "empty",
			data:    "",
			wantErr: ErrEmptyFrame,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFrame([]byte(tt.data))

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseFrame error = %v, want %v", err, tt.wantErr)
				}
				return
			}

			if err != nil {
				t.Fatalf("ParseFrame failed: %v", err)
			}
			if got.Kind != tt.want.Kind {
				t.Errorf("Kind = %q, want %q", got.Kind, tt.want.Kind)
			}
			if got.TargetID != tt.want.TargetID {
				t.Errorf("TargetID = %d, want %d", got.TargetID, tt.want.TargetID)
			}
			if got.Broadcast != tt.want.Broadcast {
				t.Errorf("Broadcast = %v, want %v", got.Broadcast, tt.want.Broadcast)
			}
		})
	}
}

func TestNewEnvelope(t *testing.T) {
	frame := Frame{
		Kind:     KindChat,
		TargetID: 42,
		Payload:  json.RawMessage(`{"text":"hi"}`),
	}

	env := NewEnvelope(KindChat, 7, frame)

	if env.ID == "" {
		t.Error("ID is empty")
	}
	if env.Kind != KindChat {
		t.Errorf("Kind = %q, want %q", env.Kind, KindChat)
	}
	if env.SenderID != 7 {
		t.Errorf("SenderID = %d, want 7", env.SenderID)
	}
	if env.TargetID != 42 {
		t.Errorf("TargetID = %d, want 42", env.TargetID)
	}
	if string(env.Payload) != `{"text":"hi"}` {
		t.Errorf("Payload = %s, want untouched payload", env.Payload)
	}

	env2 := NewEnvelope(KindChat, 7, frame)
	if env.ID == env2.ID {
		t.Error("two envelopes share a message ID")
	}
}

func TestRouteRoundtrip(t *testing.T) {
	env := Envelope{
		ID:       "msg-1",
		Kind:     KindChat,
		SenderID: 1,
		TargetID: 2,
		Payload:  json.RawMessage(`{"text":"hello"}`),
	}

	data, err := EncodeRoute("node-a", env)
	if err != nil {
		t.Fatalf("EncodeRoute failed: %v", err)
	}

	rm, err := DecodeRoute(data)
	if err != nil {
		t.Fatalf("DecodeRoute failed: %v", err)
	}

	if rm.Origin != "node-a" {
		t.Errorf("Origin = %q, want node-a", rm.Origin)
	}
	if rm.Envelope.ID != env.ID {
		t.Errorf("Envelope.ID = %q, want %q", rm.Envelope.ID, env.ID)
	}
	if rm.Envelope.TargetID != 2 {
		t.Errorf("Envelope.TargetID = %d, want 2", rm.Envelope.TargetID)
	}
	if string(rm.Envelope.Payload) != string(env.Payload) {
		t.Errorf("Envelope.Payload = %s, want %s", rm.Envelope.Payload, env.Payload)
	}
}

func TestDecodeRouteMalformed(t *testing.T) {
	if _, err := DecodeRoute([]byte("{not json")); err == nil {
		t.Error("DecodeRoute accepted malformed input")
	}
}

func TestErrorMessage(t *testing.T) {
	m := ErrorMessage(CodeProtocolViolation, "unknown frame kind")

	if m.Kind != KindError {
		t.Errorf("Kind = %q, want %q", m.Kind, KindError)
	}

	var p ErrorPayload
	if err := json.Unmarshal(m.Payload, &p); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if p.Code != CodeProtocolViolation {
		t.Errorf("Code = %q, want %q", p.Code, CodeProtocolViolation)
	}
	if p.Message != "unknown frame kind" {
		t.Errorf("Message = %q, want %q", p.Message, "unknown frame kind")
	}
}
