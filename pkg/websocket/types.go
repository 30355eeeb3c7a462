package websocket

import (
	"strconv"
	"time"
)

// MessageType represents a WebSocket message type.
// Values match RFC 6455 opcodes where applicable.
type MessageType uint8

const (
	// MessageText is a text data frame.
	MessageText MessageType = 1
	// MessageBinary is a binary data frame.
	MessageBinary MessageType = 2
	// MessageClose is a close control frame.
	MessageClose MessageType = 8
	// MessagePing is a ping control frame.
	MessagePing MessageType = 9
	// MessagePong is a pong control frame.
	MessagePong MessageType = 10
)

// IsData reports whether the message carries application data.
func (t MessageType) IsData() bool {
	return t == MessageText || t == MessageBinary
}

// CloseCode is a WebSocket close code.
type CloseCode uint16

const (
	// CloseNormal indicates a normal closure.
	CloseNormal CloseCode = 1000
	// CloseGoingAway indicates the peer is going away.
	CloseGoingAway CloseCode = 1001
	// CloseNoStatus is reported when the close frame carried no code.
	CloseNoStatus CloseCode = 1005
	// CloseAbnormal is reported when the connection dropped without a close frame.
	CloseAbnormal CloseCode = 1006
)

// CloseError is returned by Conn.Read once the peer closed the connection.
type CloseError struct {
	Code   CloseCode
	Reason string
}

func (e *CloseError) Error() string {
	if e.Reason == "" {
		return "websocket: closed with code " + strconv.Itoa(int(e.Code))
	}
	return "websocket: closed with code " + strconv.Itoa(int(e.Code)) + ": " + e.Reason
}

// Backoff defines reconnect backoff behavior.
//
// The delay for attempt n (1-based) is min(Base*n, Ceiling).
type Backoff struct {
	// Base is the delay unit multiplied by the attempt number.
	Base time.Duration
	// Ceiling caps the delay.
	Ceiling time.Duration
	// MaxAttempts bounds consecutive reconnect attempts. Zero means unlimited.
	MaxAttempts int
}
