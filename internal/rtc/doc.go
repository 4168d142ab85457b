// Package rtc forwards WebRTC signaling payloads between two users.
//
// The relay is stateless and never interprets a payload: offers, answers,
// and ICE candidates are opaque bytes agreed between the two clients. The
// one behavioral difference from ordinary chat is failure handling:
// signaling is latency-sensitive, so an unreachable peer is surfaced to
// the sender immediately instead of being silently dropped.
package rtc
