// Package crossnode carries envelopes between chat nodes over a shared
// pub/sub channel.
//
// Each node subscribes to its own channel (point-to-point forwards) and to
// one global topic (broadcasts). Received envelopes re-enter the
// dispatcher's local-delivery path and are never published again, which is
// what keeps a relay loop impossible. Broadcasts carry the origin node so
// a node does not repeat a fan-out it already performed.
package crossnode
