// Package dispatch decides where an envelope goes and puts it there.
//
// Every targeted send funnels through one decision function producing a
// RoutingDecision: deliver on this node, forward to the owning node over
// the cross-node channel, or report the target offline. Forwarding is
// at-most-once and best-effort; "offline" is a first-class result, never
// an error. After a successful local delivery the persistence sink is
// invoked; a failed record does not roll back the already-sent frame.
package dispatch
