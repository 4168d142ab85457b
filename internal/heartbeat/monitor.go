package heartbeat

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/chat-relay/internal/connection"
	"github.com/rickgao/chat-relay/internal/presence"
	"github.com/rickgao/chat-relay/internal/registry"
)

// Config configures the monitor.
type Config struct {
	Window        time.Duration // W: silence before a connection turns suspect
	Grace         time.Duration // G: additional silence before eviction
	SweepInterval time.Duration // How often the sweep runs
	PresenceTTL   time.Duration // TTL refreshed on every heartbeat
	NodeID        string
}

// DefaultConfig returns sensible defaults. The presence TTL covers one
// full window-plus-grace cycle so an entry never outlives its connection
// by more than one sweep.
func DefaultConfig() Config {
	return Config{
		Window:        30 * time.Second,
		Grace:         15 * time.Second,
		SweepInterval: 10 * time.Second,
		PresenceTTL:   60 * time.Second,
	}
}

// Monitor sweeps the registry for dead connections.
type Monitor struct {
	cfg    Config
	reg    *registry.Registry
	dir    presence.Directory
	logger *slog.Logger

	onEvict func(conn *connection.Conn)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMonitor creates a heartbeat monitor. onEvict, if non-nil, runs after
// a connection is evicted (used to fan out offline notifications).
func NewMonitor(cfg Config, reg *registry.Registry, dir presence.Directory, onEvict func(*connection.Conn), logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		cfg:     cfg,
		reg:     reg,
		dir:     dir,
		onEvict: onEvict,
		logger:  logger,
	}
}

// Start begins periodic sweeps.
func (m *Monitor) Start(ctx context.Context) error {
	m.ctx, m.cancel = context.WithCancel(ctx)

	m.wg.Add(1)
	go m.sweepLoop()

	m.logger.Info("heartbeat monitor started",
		"window", m.cfg.Window,
		"grace", m.cfg.Grace,
		"sweep_interval", m.cfg.SweepInterval,
	)
	return nil
}

// Stop halts sweeping.
func (m *Monitor) Stop(ctx context.Context) error {
	if m.cancel != nil {
		m.cancel()
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("heartbeat monitor stopped")
	case <-ctx.Done():
		m.logger.Warn("heartbeat monitor stop timed out")
	}
	return nil
}

// Beat handles one valid heartbeat frame: the connection timer resets and
// the presence TTL is refreshed so the directory tracks liveness.
func (m *Monitor) Beat(ctx context.Context, conn *connection.Conn) {
	conn.Touch()

	uid := conn.UserID()
	if uid == 0 {
		return
	}
	if err := m.dir.Refresh(ctx, uid, m.cfg.NodeID, m.cfg.PresenceTTL); err != nil {
		m.logger.Warn("presence refresh failed", "user_id", uid, "error", err)
	}
}

func (m *Monitor) sweepLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case now := <-ticker.C:
			m.Sweep(now)
		}
	}
}

// Sweep runs one pass over all live connections. Exported so tests can
// drive the state machine without waiting on the ticker.
//
// Connections that survive the pass get their presence TTL renewed here:
// lastBeat can be advanced by transport pongs alone, so the sweep, not
// the Beat path, is what guarantees a registered connection never loses
// its directory entry before eviction.
func (m *Monitor) Sweep(now time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, conn := range m.reg.Snapshot() {
		idle := now.Sub(conn.LastBeat())

		switch {
		case idle > m.cfg.Window+m.cfg.Grace:
			m.evict(conn, idle)

		case idle > m.cfg.Window:
			if conn.MarkSuspect() {
				m.logger.Warn("connection suspect",
					"user_id", conn.UserID(),
					"conn_id", conn.ID(),
					"idle", idle,
				)
			}
			m.refresh(ctx, conn)

		default:
			m.refresh(ctx, conn)
		}
	}
}

// refresh renews the directory entry for a still-registered connection.
func (m *Monitor) refresh(ctx context.Context, conn *connection.Conn) {
	uid := conn.UserID()
	if uid == 0 {
		return
	}
	if err := m.dir.Refresh(ctx, uid, m.cfg.NodeID, m.cfg.PresenceTTL); err != nil {
		m.logger.Warn("presence refresh failed", "user_id", uid, "error", err)
	}
}

func (m *Monitor) evict(conn *connection.Conn, idle time.Duration) {
	m.logger.Info("evicting dead connection",
		"user_id", conn.UserID(),
		"conn_id", conn.ID(),
		"idle", idle,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if m.reg.Remove(ctx, conn) && m.onEvict != nil {
		m.onEvict(conn)
	}
}
