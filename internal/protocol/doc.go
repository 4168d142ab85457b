// Package protocol defines the wire format shared by clients and nodes.
//
// Inbound frames are parsed into typed requests tagged by a kind
// discriminator; outbound messages carry a kind plus an optional sender.
// Envelope is the transport-agnostic unit that moves through the dispatcher
// and across the node-to-node pub/sub channel.
//
// The package is stateless: it exists to keep the routing components pure
// with respect to the JSON wire format.
package protocol
