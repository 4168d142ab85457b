package connection

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Conn is the handle to one live duplex client stream.
type Conn struct {
	cfg    Config
	logger *slog.Logger

	id       string
	ws       *websocket.Conn
	openedAt time.Time

	// Outbound queue, drained by writePump.
	send chan []byte

	// Closed exactly once, from either the transport-close or the
	// heartbeat-eviction path.
	done      chan struct{}
	closeOnce sync.Once

	// Identity, unset until the upgrade handshake resolves a token.
	userID atomic.Int64

	// Heartbeat bookkeeping, read by the monitor sweep.
	lastBeat atomic.Int64 // unix nanos
	suspect  atomic.Bool

	enqueued atomic.Int64
	dropped  atomic.Int64
}

// New wraps an accepted websocket in a connection handle.
func New(ws *websocket.Conn, cfg Config, logger *slog.Logger) *Conn {
	if logger == nil {
		logger = slog.Default()
	}

	c := &Conn{
		cfg:      cfg,
		id:       uuid.NewString(),
		ws:       ws,
		openedAt: time.Now(),
		send:     make(chan []byte, cfg.QueueSize),
		done:     make(chan struct{}),
	}
	c.logger = logger.With("conn_id", c.id)
	c.lastBeat.Store(time.Now().UnixNano())

	ws.SetReadLimit(cfg.ReadLimit)
	ws.SetPongHandler(func(string) error {
		c.Touch()
		return nil
	})

	return c
}

// Start launches the write pump. Call exactly once after New.
func (c *Conn) Start() {
	go c.writePump()
}

// ID returns the unique connection ID.
func (c *Conn) ID() string { return c.id }

// OpenedAt returns when the connection was accepted.
func (c *Conn) OpenedAt() time.Time { return c.openedAt }

// UserID returns the authenticated user, or 0 before authentication.
func (c *Conn) UserID() int64 { return c.userID.Load() }

// SetUserID binds the resolved identity to this connection.
func (c *Conn) SetUserID(uid int64) { c.userID.Store(uid) }

// Touch records a heartbeat and clears any suspect mark.
func (c *Conn) Touch() {
	c.lastBeat.Store(time.Now().UnixNano())
	c.suspect.Store(false)
}

// LastBeat returns the time of the most recent heartbeat.
func (c *Conn) LastBeat() time.Time {
	return time.Unix(0, c.lastBeat.Load())
}

// MarkSuspect flags the connection for imminent eviction. Returns true the
// first time the mark is applied after a Touch.
func (c *Conn) MarkSuspect() bool {
	return c.suspect.CompareAndSwap(false, true)
}

// Suspect reports whether the connection has missed its heartbeat window.
func (c *Conn) Suspect() bool { return c.suspect.Load() }

// Closed reports whether Close has been called.
func (c *Conn) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Send enqueues a droppable outbound frame. A full queue drops the frame
// and returns ErrQueueFull; the client is behind, not broken.
func (c *Conn) Send(data []byte) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	select {
	case c.send <- data:
		c.enqueued.Add(1)
		return nil
	default:
		n := c.dropped.Add(1)
		if n%100 == 1 {
			c.logger.Warn("outbound queue full, dropping frame",
				"user_id", c.UserID(),
				"dropped_total", n,
			)
		}
		return ErrQueueFull
	}
}

// SendCritical enqueues a frame that must not be silently dropped (RTC
// signaling). Blocks until enqueued, the context expires, or the
// connection closes.
func (c *Conn) SendCritical(ctx context.Context, data []byte) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	select {
	case c.send <- data:
		c.enqueued.Add(1)
		return nil
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Read blocks for the next inbound frame. Binary and text frames are
// treated identically; control frames are handled by the transport.
func (c *Conn) Read() ([]byte, error) {
	_, data, err := c.ws.ReadMessage()
	return data, err
}

// Close tears the connection down. Idempotent; the second caller observes
// a no-op. Any in-flight sends are cancelled via the done channel.
func (c *Conn) Close(reason string) {
	c.closeOnce.Do(func() {
		close(c.done)

		deadline := time.Now().Add(time.Second)
		_ = c.ws.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason),
			deadline,
		)
		_ = c.ws.Close()

		c.logger.Debug("connection closed",
			"user_id", c.UserID(),
			"reason", reason,
			"open_for", time.Since(c.openedAt),
		)
	})
}

// Stats returns per-connection counters.
func (c *Conn) Stats() Stats {
	return Stats{
		Enqueued: c.enqueued.Load(),
		Dropped:  c.dropped.Load(),
	}
}

// writePump serializes all writes to the websocket. Exits when the
// connection closes; a failed write closes the connection.
func (c *Conn) writePump() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return

		case data := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Debug("write failed", "error", err)
				c.Close("write failed")
				return
			}

		case <-ticker.C:
			deadline := time.Now().Add(c.cfg.WriteTimeout)
			if err := c.ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				c.logger.Debug("ping failed", "error", err)
				c.Close("ping failed")
				return
			}
		}
	}
}
