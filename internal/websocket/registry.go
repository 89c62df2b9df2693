package websocket

import (
	"sync"

	"thoughtswap/pkg/interfaces"
)

// Registry tracks live connections by connection ID. Connection IDs are
// unique per epoch, so there is no replacement logic here; reconnection
// semantics live in the room layer, keyed by identity.
type Registry struct {
	mu          sync.RWMutex
	connections map[string]interfaces.Conn
}

// NewRegistry creates an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{
		connections: make(map[string]interfaces.Conn),
	}
}

// Register adds a connection under its connection ID.
func (r *Registry) Register(conn interfaces.Conn) error {
	if conn == nil {
		return ErrNilConnection
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connections[conn.ConnectionID()] = conn
	return nil
}

// Unregister removes a connection. Idempotent; only the exact registered
// instance is removed.
func (r *Registry) Unregister(conn interfaces.Conn) {
	if conn == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if registered, ok := r.connections[conn.ConnectionID()]; ok && registered == conn {
		delete(r.connections, conn.ConnectionID())
	}
}

// Get returns the connection registered under the given ID.
func (r *Registry) Get(connID string) (interfaces.Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.connections[connID]
	return conn, ok
}

// Count returns the number of live connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections)
}
