package registry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rickgao/chat-relay/internal/connection"
	"github.com/rickgao/chat-relay/internal/presence"
)

func newTestConn(t *testing.T, userID int64) *connection.Conn {
	t.Helper()

	upgrader := websocket.Upgrader{}
	serverSide := make(chan *websocket.Conn, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		serverSide <- ws
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	conn := connection.New(<-serverSide, connection.DefaultConfig(), nil)
	conn.SetUserID(userID)
	t.Cleanup(func() { conn.Close("test done") })
	return conn
}

func newTestRegistry(t *testing.T) (*Registry, presence.Directory) {
	t.Helper()
	dir := presence.NewMemory()
	reg := New(Config{
		NodeID:      "node-a",
		PresenceTTL: time.Minute,
	}, dir, nil)
	return reg, dir
}

func TestRegisterLookup(t *testing.T) {
	reg, dir := newTestRegistry(t)
	ctx := context.Background()

	conn := newTestConn(t, 1)
	if old := reg.Register(ctx, 1, conn); old != nil {
		t.Errorf("Register returned replaced conn %v, want nil", old.ID())
	}

	got, ok := reg.LookupLocal(1)
	if !ok {
		t.Fatal("LookupLocal(1) = absent, want present")
	}
	if got != conn {
		t.Error("LookupLocal returned a different connection")
	}

	// Write-through: the directory now points at this node.
	nodeID, err := dir.Get(ctx, 1)
	if err != nil {
		t.Fatalf("presence Get failed: %v", err)
	}
	if nodeID != "node-a" {
		t.Errorf("presence nodeID = %q, want node-a", nodeID)
	}
}

func TestLookupAbsent(t *testing.T) {
	reg, _ := newTestRegistry(t)

	if _, ok := reg.LookupLocal(99); ok {
		t.Error("LookupLocal(99) = present, want absent")
	}
}

func TestLastConnectWins(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	c1 := newTestConn(t, 1)
	c2 := newTestConn(t, 1)

	reg.Register(ctx, 1, c1)
	old := reg.Register(ctx, 1, c2)

	if old != c1 {
		t.Error("Register did not return the replaced connection")
	}
	if !c1.Closed() {
		t.Error("replaced connection was not closed")
	}

	got, ok := reg.LookupLocal(1)
	if !ok || got != c2 {
		t.Error("local routing does not point at the newest connection")
	}

	// Delivery reaches only c2.
	if err := c1.Send([]byte("x")); !errors.Is(err, connection.ErrClosed) {
		t.Errorf("send on replaced conn = %v, want ErrClosed", err)
	}
	if err := c2.Send([]byte("x")); err != nil {
		t.Errorf("send on new conn = %v, want nil", err)
	}
}

func TestRemoveIdempotent(t *testing.T) {
	reg, dir := newTestRegistry(t)
	ctx := context.Background()

	conn := newTestConn(t, 1)
	reg.Register(ctx, 1, conn)

	if !reg.Remove(ctx, conn) {
		t.Error("first Remove = false, want true")
	}
	if reg.Remove(ctx, conn) {
		t.Error("second Remove = true, want no-op")
	}

	if _, ok := reg.LookupLocal(1); ok {
		t.Error("connection still present after Remove")
	}
	if _, err := dir.Get(ctx, 1); !errors.Is(err, presence.ErrNotFound) {
		t.Errorf("presence entry survived Remove: %v", err)
	}
}

func TestRemoveReplacedConnKeepsSuccessor(t *testing.T) {
	reg, dir := newTestRegistry(t)
	ctx := context.Background()

	c1 := newTestConn(t, 1)
	c2 := newTestConn(t, 1)

	reg.Register(ctx, 1, c1)
	reg.Register(ctx, 1, c2)

	// The old connection's transport-close path fires late. It must not
	// unseat the new registration or its presence entry.
	if reg.Remove(ctx, c1) {
		t.Error("Remove of replaced conn = true, want no-op")
	}

	if _, ok := reg.LookupLocal(1); !ok {
		t.Error("successor connection was unseated")
	}
	if _, err := dir.Get(ctx, 1); err != nil {
		t.Errorf("successor presence entry was removed: %v", err)
	}
}

func TestSnapshotAndLen(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	for _, uid := range []int64{1, 2, 3} {
		reg.Register(ctx, uid, newTestConn(t, uid))
	}

	if n := reg.Len(); n != 3 {
		t.Errorf("Len = %d, want 3", n)
	}

	seen := make(map[int64]bool)
	for _, c := range reg.Snapshot() {
		seen[c.UserID()] = true
	}
	for _, uid := range []int64{1, 2, 3} {
		if !seen[uid] {
			t.Errorf("Snapshot missing user %d", uid)
		}
	}
}

func TestRemoveUnauthenticated(t *testing.T) {
	reg, _ := newTestRegistry(t)

	conn := newTestConn(t, 0)
	if reg.Remove(context.Background(), conn) {
		t.Error("Remove of unauthenticated conn = true, want false")
	}
	if !conn.Closed() {
		t.Error("unauthenticated conn not closed by Remove")
	}
}
