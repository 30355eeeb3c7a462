package wstest

import (
	"context"
	"sync"

	"gatewatch/pkg/websocket"
)

// Frame is one recorded write.
type Frame struct {
	Type    websocket.MessageType
	Payload []byte
}

// Conn is an in-memory websocket.Conn. Tests push inbound frames and inspect
// what the code under test wrote.
type Conn struct {
	inbound chan Frame
	done    chan struct{}

	mu          sync.Mutex
	writes      []Frame
	closeErr    *websocket.CloseError
	localClose  bool
	closeCode   websocket.CloseCode
	closeReason string
	writeErr    error
}

// NewConn returns an open Conn.
func NewConn() *Conn {
	return &Conn{
		inbound: make(chan Frame, 256),
		done:    make(chan struct{}),
	}
}

// Read returns queued inbound frames before reporting closure.
func (c *Conn) Read(ctx context.Context) (websocket.MessageType, []byte, error) {
	select {
	case f := <-c.inbound:
		return f.Type, f.Payload, nil
	default:
	}

	select {
	case f := <-c.inbound:
		return f.Type, f.Payload, nil
	case <-c.done:
		c.mu.Lock()
		err := c.closeErr
		c.mu.Unlock()
		return 0, nil, err
	case <-ctx.Done():
		return 0, nil, &websocket.CloseError{Code: websocket.CloseAbnormal, Reason: ctx.Err().Error()}
	}
}

func (c *Conn) Write(_ context.Context, msgType websocket.MessageType, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closeErr != nil {
		return websocket.ErrNotConnected
	}
	if c.writeErr != nil {
		return c.writeErr
	}
	buf := make([]byte, len(payload))
	copy(buf, payload)
	c.writes = append(c.writes, Frame{Type: msgType, Payload: buf})
	return nil
}

// Close records a local close and unblocks Read.
func (c *Conn) Close(code websocket.CloseCode, reason string) error {
	c.shutdown(code, reason, true)
	return nil
}

// Push queues an inbound text frame.
func (c *Conn) Push(payload string) {
	c.inbound <- Frame{Type: websocket.MessageText, Payload: []byte(payload)}
}

// CloseFromServer simulates the hub closing the connection.
func (c *Conn) CloseFromServer(code websocket.CloseCode, reason string) {
	c.shutdown(code, reason, false)
}

// FailWrites makes every later Write return err.
func (c *Conn) FailWrites(err error) {
	c.mu.Lock()
	c.writeErr = err
	c.mu.Unlock()
}

func (c *Conn) shutdown(code websocket.CloseCode, reason string, local bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closeErr != nil {
		return
	}
	reported := code
	if reported == 0 {
		reported = websocket.CloseAbnormal
	}
	c.closeErr = &websocket.CloseError{Code: reported, Reason: reason}
	c.localClose = local
	c.closeCode = code
	c.closeReason = reason
	close(c.done)
}

// Writes returns a copy of every recorded write.
func (c *Conn) Writes() []Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Frame, len(c.writes))
	copy(out, c.writes)
	return out
}

// Closed reports whether either side closed the connection.
func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeErr != nil
}

// ClosedLocally reports whether Close was called and with which code.
func (c *Conn) ClosedLocally() (websocket.CloseCode, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeCode, c.closeErr != nil && c.localClose
}
