package interfaces

import "thoughtswap/pkg/types"

// Conn is a single client connection as seen by the engine. Implementations
// must make WriteEvent safe for concurrent use; the engine delivers events
// from whichever goroutine completed the mutation.
type Conn interface {
	// WriteEvent sends one event frame to the client.
	WriteEvent(ev types.Event) error

	// Close closes the connection and releases its resources.
	Close() error

	// ConnectionID returns the server-minted ID for this connection epoch.
	// It changes on every reconnect; identity persistence is by email.
	ConnectionID() string

	// Identity returns the authenticated identity bound at upgrade time.
	Identity() types.Identity

	// JoinCode returns the room this connection has joined, or "".
	JoinCode() string

	// SetJoinCode records the room binding after a successful join.
	SetJoinCode(code string)
}
