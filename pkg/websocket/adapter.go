package websocket

import (
	"context"
	"time"
)

// Conn is a minimal interface for a WebSocket connection.
//
// Read blocks until a message arrives or the connection fails. A peer close is
// reported as *CloseError. Closing the connection unblocks a pending Read.
type Conn interface {
	Read(ctx context.Context) (msgType MessageType, payload []byte, err error)
	Write(ctx context.Context, msgType MessageType, payload []byte) error
	Close(code CloseCode, reason string) error
}

// Dialer creates new connections.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, url string) (Conn, error)

// Dial calls f(ctx, url).
func (f DialerFunc) Dial(ctx context.Context, url string) (Conn, error) {
	return f(ctx, url)
}

// Timer is a pending scheduled call.
type Timer interface {
	// Stop prevents the call from firing. It returns false if the call already
	// fired or was stopped.
	Stop() bool
}

// Scheduler abstracts wall-clock time so reconnect and ping timing can be
// driven by tests.
type Scheduler interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}
