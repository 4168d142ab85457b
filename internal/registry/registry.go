package registry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/chat-relay/internal/connection"
	"github.com/rickgao/chat-relay/internal/presence"
)

// DefaultShardCount is the number of lock shards when Config leaves it zero.
const DefaultShardCount = 32

// Config configures the registry.
type Config struct {
	NodeID      string        // Stable identity of this process
	PresenceTTL time.Duration // TTL written on every presence update
	ShardCount  int           // Lock shards; 0 means DefaultShardCount
}

// Registry tracks every live connection owned by this process.
type Registry struct {
	cfg    Config
	dir    presence.Directory
	logger *slog.Logger

	shards []*shard
}

type shard struct {
	mu    sync.RWMutex
	conns map[int64]*connection.Conn
}

// New creates a Registry backed by the given presence directory.
func New(cfg Config, dir presence.Directory, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ShardCount <= 0 {
		cfg.ShardCount = DefaultShardCount
	}

	shards := make([]*shard, cfg.ShardCount)
	for i := range shards {
		shards[i] = &shard{conns: make(map[int64]*connection.Conn)}
	}

	return &Registry{
		cfg:    cfg,
		dir:    dir,
		logger: logger,
		shards: shards,
	}
}

func (r *Registry) shardFor(userID int64) *shard {
	// Splitmix-style scramble so sequential uids spread across shards.
	h := uint64(userID)
	h ^= h >> 33
	h *= 0xff51afd7ed558ccd
	h ^= h >> 33
	return r.shards[h%uint64(len(r.shards))]
}

// Register installs conn as the authoritative connection for userID and
// returns the replaced connection, if any. The replaced connection is
// closed and its presence entry removed before the new one is installed,
// so a stale entry never shadows the new session.
func (r *Registry) Register(ctx context.Context, userID int64, conn *connection.Conn) *connection.Conn {
	s := r.shardFor(userID)

	s.mu.Lock()
	old := s.conns[userID]
	s.conns[userID] = conn
	s.mu.Unlock()

	if old != nil {
		old.Close("replaced by newer connection")
		if err := r.dir.Remove(ctx, userID); err != nil {
			r.logger.Warn("presence remove on replace failed",
				"user_id", userID,
				"error", err,
			)
		}
		r.logger.Info("connection replaced",
			"user_id", userID,
			"old_conn", old.ID(),
			"new_conn", conn.ID(),
		)
	}

	if err := r.dir.Put(ctx, userID, r.cfg.NodeID, r.cfg.PresenceTTL); err != nil {
		// Best-effort: the heartbeat refresh path will repair this.
		r.logger.Warn("presence put failed", "user_id", userID, "error", err)
	}

	return old
}

// LookupLocal returns the live connection for a user on this process.
// Never blocks on I/O.
func (r *Registry) LookupLocal(userID int64) (*connection.Conn, bool) {
	s := r.shardFor(userID)
	s.mu.RLock()
	conn, ok := s.conns[userID]
	s.mu.RUnlock()
	return conn, ok
}

// Remove evicts conn and deregisters its presence entry. Idempotent, and
// safe to call from both the transport-close and heartbeat-timeout paths:
// the entry is only deleted when it still points at this exact connection,
// so evicting a replaced connection never unseats its successor.
func (r *Registry) Remove(ctx context.Context, conn *connection.Conn) bool {
	userID := conn.UserID()
	if userID == 0 {
		conn.Close("removed before authentication")
		return false
	}

	s := r.shardFor(userID)

	s.mu.Lock()
	current, ok := s.conns[userID]
	if !ok || current != conn {
		s.mu.Unlock()
		conn.Close("removed")
		return false
	}
	delete(s.conns, userID)
	s.mu.Unlock()

	conn.Close("removed")

	if err := r.dir.Remove(ctx, userID); err != nil {
		r.logger.Warn("presence remove failed", "user_id", userID, "error", err)
	}

	r.logger.Debug("connection removed", "user_id", userID, "conn_id", conn.ID())
	return true
}

// Snapshot returns all live connections. Used by broadcast fan-out and
// the heartbeat sweep; the slice is a copy and safe to iterate without
// holding any registry lock.
func (r *Registry) Snapshot() []*connection.Conn {
	var out []*connection.Conn
	for _, s := range r.shards {
		s.mu.RLock()
		for _, c := range s.conns {
			out = append(out, c)
		}
		s.mu.RUnlock()
	}
	return out
}

// Len returns the number of live connections.
func (r *Registry) Len() int {
	n := 0
	for _, s := range r.shards {
		s.mu.RLock()
		n += len(s.conns)
		s.mu.RUnlock()
	}
	return n
}
