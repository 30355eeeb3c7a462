package websocket

import (
	"context"
	"sync"
	"time"
)

// DefaultWriteTimeout bounds a single outbound frame.
const DefaultWriteTimeout = 5 * time.Second

// Writer serializes outbound frames onto the currently attached connection.
//
// There is no queue: a frame sent while detached is rejected with
// ErrNotConnected rather than buffered for a later connection.
type Writer struct {
	mu      sync.Mutex
	conn    Conn
	timeout time.Duration
}

// NewWriter creates a detached Writer. A non-positive timeout selects
// DefaultWriteTimeout.
func NewWriter(timeout time.Duration) *Writer {
	if timeout <= 0 {
		timeout = DefaultWriteTimeout
	}
	return &Writer{timeout: timeout}
}

// Attach makes conn the write target.
func (w *Writer) Attach(conn Conn) {
	w.mu.Lock()
	w.conn = conn
	w.mu.Unlock()
}

// Detach clears the write target and returns the previous one.
func (w *Writer) Detach() Conn {
	w.mu.Lock()
	conn := w.conn
	w.conn = nil
	w.mu.Unlock()
	return conn
}

// Connected reports whether a connection is attached.
func (w *Writer) Connected() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn != nil
}

// Send writes payload to the attached connection.
func (w *Writer) Send(msgType MessageType, payload []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn == nil {
		return ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()
	return w.conn.Write(ctx, msgType, payload)
}
