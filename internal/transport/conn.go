// Package transport adapts byte streams and WebSockets to a record-oriented
// connection carrying one JSON value per message.
package transport

import (
	"context"
	"errors"
)

// Conn is one client connection. Send may be called from any goroutine;
// Receive must only be called by the owning session.
type Conn interface {
	ID() string
	RemoteAddr() string
	// Receive blocks for the next inbound record.
	Receive(ctx context.Context) ([]byte, error)
	// Send encodes v as one outbound record.
	Send(ctx context.Context, v any) error
	Close() error
}

// ErrClosed is returned by operations on a closed connection.
var ErrClosed = errors.New("connection closed")
