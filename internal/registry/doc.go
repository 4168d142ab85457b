// Package registry provides authoritative, process-local bookkeeping of
// live connections.
//
// The map from user to connection is sharded so connect, disconnect, and
// dispatch traffic from many goroutines never serialize on one lock.
// Register and Remove write through to the shared Presence Directory;
// nothing updates the registry in the other direction.
//
// At most one authoritative connection exists per user per process. A
// second connect for the same user closes and evicts the first
// (last-connect-wins).
package registry
