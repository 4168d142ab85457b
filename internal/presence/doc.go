// Package presence answers "which node currently holds this user" across
// the whole deployment.
//
// The directory is a shared, eventually-consistent index. It describes
// connections but never owns them: entries carry a TTL so a crashed node's
// users expire instead of lingering, and every lookup result must be
// treated as best-effort by callers. Last writer wins, matching the
// registry's last-connect-wins policy.
package presence
