package websocket

import "errors"

// Connection errors.
var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrWriteTimeout     = errors.New("write timeout after 5 seconds")
)

// Registry errors.
var (
	ErrNilConnection = errors.New("connection cannot be nil")
)
