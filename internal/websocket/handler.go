package websocket

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"thoughtswap/pkg/interfaces"
	"thoughtswap/pkg/types"
)

const (
	readDeadline  = 60 * time.Second
	pingInterval  = 30 * time.Second
	pingTimeout   = 10 * time.Second
	maxFrameBytes = 64 * 1024
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Origin checking is delegated to the deployment's reverse proxy.
		return true
	},
	HandshakeTimeout: 10 * time.Second,
}

// Authenticator resolves the identity behind an upgrade request before any
// room event is accepted on the connection.
type Authenticator interface {
	Authenticate(r *http.Request) (types.Identity, error)
}

// Dispatcher consumes decoded frames and disconnect notifications.
type Dispatcher interface {
	HandleEnvelope(conn interfaces.Conn, env types.Envelope)
	HandleDisconnect(conn interfaces.Conn)
}

// Handler upgrades HTTP requests to websocket connections and runs the per
// connection read loop.
type Handler struct {
	registry   *Registry
	auth       Authenticator
	dispatcher Dispatcher
}

// NewHandler wires the upgrade handler to its dependencies.
func NewHandler(registry *Registry, auth Authenticator, dispatcher Dispatcher) *Handler {
	return &Handler{
		registry:   registry,
		auth:       auth,
		dispatcher: dispatcher,
	}
}

// HandleWebSocket validates identity, upgrades, registers the connection,
// and hands the read loop its own goroutine. Authentication happens before
// the upgrade so rejected requests get proper HTTP status codes.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	identity, err := h.auth.Authenticate(r)
	if err != nil {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}
	if !types.IsValidRole(identity.Role) {
		http.Error(w, "invalid role", http.StatusForbidden)
		return
	}

	socket, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	conn := NewConnection(socket, uuid.New().String(), identity)
	if err := h.registry.Register(conn); err != nil {
		log.Printf("Failed to register connection: %v", err)
		_ = conn.Close()
		return
	}
	log.Printf("Connection opened: id=%s email=%s role=%s", conn.ConnectionID(), identity.Email, identity.Role)

	go h.readLoop(conn)
}

// readLoop pumps inbound frames into the dispatcher until the socket dies,
// then notifies the dispatcher so room state can mark the participant gone.
func (h *Handler) readLoop(conn *Connection) {
	defer func() {
		h.registry.Unregister(conn)
		h.dispatcher.HandleDisconnect(conn)
		_ = conn.Close()
		log.Printf("Connection closed: id=%s", conn.ConnectionID())
	}()

	conn.conn.SetReadLimit(maxFrameBytes)
	if err := conn.conn.SetReadDeadline(time.Now().Add(readDeadline)); err != nil {
		return
	}
	conn.conn.SetPongHandler(func(string) error {
		return conn.conn.SetReadDeadline(time.Now().Add(readDeadline))
	})

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ticker.C:
				if err := conn.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(pingTimeout)); err != nil {
					return
				}
			case <-conn.ctx.Done():
				return
			}
		}
	}()

	for {
		messageType, data, err := conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Printf("WebSocket error: id=%s err=%v", conn.ConnectionID(), err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var env types.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			_ = conn.WriteEvent(types.Event{
				Event:   types.EventError,
				Payload: types.ErrorPayload{Message: "malformed frame"},
			})
			continue
		}
		h.dispatcher.HandleEnvelope(conn, env)
	}
}
