// Package websocket carries the transport layer: the connection wrapper with
// its single-writer goroutine, the connection registry, and the HTTP upgrade
// handler. No room logic lives here.
package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"thoughtswap/pkg/types"
)

const writeTimeout = 5 * time.Second

// Connection wraps one client socket and implements interfaces.Conn.
// All writes go through a single goroutine; WriteEvent is safe to call from
// any goroutine that completed a room mutation.
type Connection struct {
	conn     *websocket.Conn
	writeCh  chan []byte
	id       string
	identity types.Identity

	mu       sync.RWMutex
	joinCode string

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewConnection wraps an upgraded socket. The identity was authenticated
// before the upgrade; the ID is minted per connection epoch.
func NewConnection(conn *websocket.Conn, id string, identity types.Identity) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Connection{
		conn:     conn,
		writeCh:  make(chan []byte, 100),
		id:       id,
		identity: identity,
		ctx:      ctx,
		cancel:   cancel,
	}
	go c.writeLoop()
	return c
}

func (c *Connection) writeLoop() {
	for {
		select {
		case data := <-c.writeCh:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}

// WriteEvent queues one event frame for the writer goroutine.
func (c *Connection) WriteEvent(ev types.Event) error {
	select {
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	select {
	case c.writeCh <- data:
		return nil
	case <-time.After(writeTimeout):
		return ErrWriteTimeout
	case <-c.ctx.Done():
		return ErrConnectionClosed
	}
}

// Close stops the writer goroutine and closes the socket. Safe to call more
// than once.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		if c.conn != nil {
			err = c.conn.Close()
		}
	})
	return err
}

func (c *Connection) ConnectionID() string {
	return c.id
}

func (c *Connection) Identity() types.Identity {
	return c.identity
}

func (c *Connection) JoinCode() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.joinCode
}

func (c *Connection) SetJoinCode(code string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.joinCode = code
}
