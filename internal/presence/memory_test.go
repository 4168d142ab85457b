package presence

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryPutGet(t *testing.T) {
	dir := NewMemory()
	ctx := context.Background()

	if err := dir.Put(ctx, 1, "node-a", time.Minute); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	nodeID, err := dir.Get(ctx, 1)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if nodeID != "node-a" {
		t.Errorf("nodeID = %q, want node-a", nodeID)
	}
}

func TestMemoryGetAbsent(t *testing.T) {
	dir := NewMemory()

	_, err := dir.Get(context.Background(), 99)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get error = %v, want ErrNotFound", err)
	}
}

func TestMemoryLastWriterWins(t *testing.T) {
	dir := NewMemory()
	ctx := context.Background()

	dir.Put(ctx, 1, "node-a", time.Minute)
	dir.Put(ctx, 1, "node-b", time.Minute)

	nodeID, err := dir.Get(ctx, 1)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if nodeID != "node-b" {
		t.Errorf("nodeID = %q, want node-b", nodeID)
	}
}

func TestMemoryTTLExpiry(t *testing.T) {
	dir := NewMemory()
	ctx := context.Background()

	dir.Put(ctx, 1, "node-a", 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	if _, err := dir.Get(ctx, 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after expiry = %v, want ErrNotFound", err)
	}
}

func TestMemoryRefreshExtends(t *testing.T) {
	dir := NewMemory()
	ctx := context.Background()

	dir.Put(ctx, 1, "node-a", 30*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	if err := dir.Refresh(ctx, 1, "node-a", time.Minute); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	if _, err := dir.Get(ctx, 1); err != nil {
		t.Errorf("Get after refresh = %v, want entry alive", err)
	}
}

func TestMemoryRemove(t *testing.T) {
	dir := NewMemory()
	ctx := context.Background()

	dir.Put(ctx, 1, "node-a", time.Minute)
	if err := dir.Remove(ctx, 1); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := dir.Get(ctx, 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after remove = %v, want ErrNotFound", err)
	}

	// Removing an absent entry is not an error.
	if err := dir.Remove(ctx, 1); err != nil {
		t.Errorf("second Remove = %v, want nil", err)
	}
}

func TestKey(t *testing.T) {
	if got := Key(42); got != "chat:route:u:42" {
		t.Errorf("Key(42) = %q, want chat:route:u:42", got)
	}
}
