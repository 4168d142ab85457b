package connection

import (
	"errors"
	"time"
)

// Errors
var (
	ErrClosed    = errors.New("connection closed")
	ErrQueueFull = errors.New("outbound queue full")
)

// Config configures a single connection handle.
type Config struct {
	QueueSize    int           // Outbound queue capacity
	WriteTimeout time.Duration // Write deadline per frame
	PingInterval time.Duration // Transport-level ping period
	ReadLimit    int64         // Max inbound frame size in bytes
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		QueueSize:    256,
		WriteTimeout: 5 * time.Second,
		PingInterval: 15 * time.Second,
		ReadLimit:    64 << 10,
	}
}

// Stats reports per-connection counters.
type Stats struct {
	Enqueued int64
	Dropped  int64
}
