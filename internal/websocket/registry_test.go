package websocket

import (
	"testing"

	"thoughtswap/pkg/types"
)

// stubConn satisfies interfaces.Conn without a socket.
type stubConn struct {
	id       string
	joinCode string
}

func (c *stubConn) WriteEvent(types.Event) error { return nil }
func (c *stubConn) Close() error                 { return nil }
func (c *stubConn) ConnectionID() string         { return c.id }
func (c *stubConn) Identity() types.Identity     { return types.Identity{} }
func (c *stubConn) JoinCode() string             { return c.joinCode }
func (c *stubConn) SetJoinCode(code string)      { c.joinCode = code }

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	conn := &stubConn{id: "c1"}

	if err := r.Register(conn); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	got, ok := r.Get("c1")
	if !ok || got != conn {
		t.Errorf("Get() = %v, %v", got, ok)
	}
	if r.Count() != 1 {
		t.Errorf("Count() = %d, want 1", r.Count())
	}
}

func TestRegistry_RegisterNil(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(nil); err != ErrNilConnection {
		t.Errorf("Register(nil) error = %v, want %v", err, ErrNilConnection)
	}
}

func TestRegistry_UnregisterOnlyExactInstance(t *testing.T) {
	r := NewRegistry()
	old := &stubConn{id: "c1"}
	if err := r.Register(old); err != nil {
		t.Fatal(err)
	}

	// A different instance under the same ID must not evict the registered one.
	other := &stubConn{id: "c1"}
	r.Unregister(other)
	if _, ok := r.Get("c1"); !ok {
		t.Error("Unregister removed a connection it did not own")
	}

	r.Unregister(old)
	if _, ok := r.Get("c1"); ok {
		t.Error("connection still registered after Unregister")
	}
	r.Unregister(old) // idempotent
	r.Unregister(nil)
}
