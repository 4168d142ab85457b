package presence

import (
	"context"
	"sync"
	"time"
)

// memoryDirectory is an in-process Directory for tests and single-node
// deployments. TTLs are honored lazily at read time.
type memoryDirectory struct {
	mu      sync.RWMutex
	entries map[int64]memoryEntry
}

type memoryEntry struct {
	nodeID    string
	expiresAt time.Time
}

// NewMemory creates an in-process Directory.
func NewMemory() Directory {
	return &memoryDirectory{entries: make(map[int64]memoryEntry)}
}

func (d *memoryDirectory) Put(_ context.Context, userID int64, nodeID string, ttl time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries[userID] = memoryEntry{nodeID: nodeID, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (d *memoryDirectory) Get(_ context.Context, userID int64) (string, error) {
	d.mu.RLock()
	e, ok := d.entries[userID]
	d.mu.RUnlock()

	if !ok {
		return "", ErrNotFound
	}
	if time.Now().After(e.expiresAt) {
		d.mu.Lock()
		delete(d.entries, userID)
		d.mu.Unlock()
		return "", ErrNotFound
	}
	return e.nodeID, nil
}

func (d *memoryDirectory) Refresh(ctx context.Context, userID int64, nodeID string, ttl time.Duration) error {
	return d.Put(ctx, userID, nodeID, ttl)
}

func (d *memoryDirectory) Remove(_ context.Context, userID int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.entries, userID)
	return nil
}
