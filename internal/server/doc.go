// Package server is the transport edge of the chat core.
//
// It upgrades HTTP requests to websockets, resolves the connection token
// to a user identity, registers the connection, and runs one read loop
// per connection that parses inbound frames and hands them to the
// heartbeat monitor, the dispatcher, or the RTC relay by frame kind.
//
// One malformed frame costs the frame, not the session; only an
// unauthenticated or unresolvable connection is closed outright.
package server
