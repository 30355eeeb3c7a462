package websocket

import "github.com/yanun0323/errors"

var (
	// ErrNotConnected is returned when sending while no connection is attached.
	ErrNotConnected    = errors.New("websocket: not connected")
	// ErrProtocol is returned for frames the transport cannot represent.
	ErrProtocol        = errors.New("websocket: protocol error")
	// ErrHandshakeFailed is returned when the upgrade request is rejected.
	ErrHandshakeFailed = errors.New("websocket: handshake failed")
)
