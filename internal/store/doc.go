// Package store implements the relational collaborators of the chat core:
// the message persistence sink, the friend/group authorization lookup, and
// the token-to-identity resolver.
//
// All three are thin pgx-backed adapters. The routing core treats them as
// external collaborators: a persistence failure is logged, never
// propagated into a delivery outcome, and schema ownership lives with the
// admin platform, not here.
package store
