// Package connection owns the live websocket handle for one client device.
//
// A Conn is created at upgrade time and owned exclusively by the Connection
// Registry for its lifetime. Other components interact with it only through
// the narrow Send/SendCritical/Close surface; nothing outside this package
// touches the underlying websocket.
//
// Outbound traffic goes through a bounded queue drained by a single write
// pump. When a slow client fills the queue, droppable frames (chat,
// presence) are discarded; critical frames (RTC signaling) instead fail
// loudly so the caller can surface a delivery error.
package connection
