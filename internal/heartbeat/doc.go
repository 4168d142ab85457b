// Package heartbeat detects silent connections and triggers eviction.
//
// Per connection the state machine is ALIVE -> SUSPECT -> EVICTED: a
// periodic sweep marks a connection suspect once its last heartbeat is
// older than the window, and evicts it via the registry once the grace
// period also lapses. Any valid heartbeat resets the state and refreshes
// the presence directory TTL, so the directory and the monitor stay on
// consistent timeouts.
package heartbeat
