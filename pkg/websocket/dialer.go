package websocket

import (
	"context"
	"crypto/tls"
	"net/http"
	"sync"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/yanun0323/errors"
)

const (
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultCloseTimeout     = time.Second

	defaultBufferSize = 4 << 10
)

// DialerOption customizes the dialer returned by NewDialer.
type DialerOption func(*dialer)

// WithTLSConfig sets the client TLS configuration for wss:// endpoints.
func WithTLSConfig(cfg *tls.Config) DialerOption {
	return func(d *dialer) {
		d.ws.TLSClientConfig = cfg
	}
}

// WithHeader sets extra request headers sent with the upgrade request.
func WithHeader(header http.Header) DialerOption {
	return func(d *dialer) {
		d.header = header.Clone()
	}
}

// WithHandshakeTimeout bounds the opening handshake.
func WithHandshakeTimeout(timeout time.Duration) DialerOption {
	return func(d *dialer) {
		if timeout > 0 {
			d.ws.HandshakeTimeout = timeout
		}
	}
}

// WithReadLimit caps the size of a single inbound message.
func WithReadLimit(limit int64) DialerOption {
	return func(d *dialer) {
		d.readLimit = limit
	}
}

type dialer struct {
	ws        gorilla.Dialer
	header    http.Header
	readLimit int64
}

// NewDialer returns a Dialer backed by gorilla/websocket.
func NewDialer(opts ...DialerOption) Dialer {
	d := &dialer{
		ws: gorilla.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: DefaultHandshakeTimeout,
			ReadBufferSize:   defaultBufferSize,
			WriteBufferSize:  defaultBufferSize,
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *dialer) Dial(ctx context.Context, url string) (Conn, error) {
	conn, resp, err := d.ws.DialContext(ctx, url, d.header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if errors.Is(err, gorilla.ErrBadHandshake) && resp != nil {
			return nil, errors.Errorf("%w: status %d", ErrHandshakeFailed, resp.StatusCode)
		}
		return nil, err
	}
	if d.readLimit > 0 {
		conn.SetReadLimit(d.readLimit)
	}
	return &wsConn{conn: conn}, nil
}

type wsConn struct {
	conn      *gorilla.Conn
	mu        sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// Read returns the next data message. Every error is terminal for the
// connection and is reported as *CloseError.
func (c *wsConn) Read(ctx context.Context) (MessageType, []byte, error) {
	deadline := time.Time{}
	if ctx != nil {
		if d, ok := ctx.Deadline(); ok {
			deadline = d
		}
	}
	_ = c.conn.SetReadDeadline(deadline)

	opcode, payload, err := c.conn.ReadMessage()
	if err != nil {
		return 0, nil, toCloseError(err)
	}
	switch opcode {
	case gorilla.TextMessage:
		return MessageText, payload, nil
	case gorilla.BinaryMessage:
		return MessageBinary, payload, nil
	default:
		return 0, nil, ErrProtocol
	}
}

func (c *wsConn) Write(ctx context.Context, msgType MessageType, payload []byte) error {
	opcode := messageTypeToOpcode(msgType)
	if opcode == 0 {
		return ErrProtocol
	}
	deadline := time.Time{}
	if ctx != nil {
		if d, ok := ctx.Deadline(); ok {
			deadline = d
		}
	}

	if msgType == MessagePing || msgType == MessagePong {
		return c.conn.WriteControl(opcode, payload, deadline)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.conn.WriteMessage(opcode, payload)
}

func (c *wsConn) Close(code CloseCode, reason string) error {
	c.closeOnce.Do(func() {
		if code != 0 {
			msg := gorilla.FormatCloseMessage(int(code), reason)
			_ = c.conn.WriteControl(gorilla.CloseMessage, msg, time.Now().Add(DefaultCloseTimeout))
		}
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

func messageTypeToOpcode(msgType MessageType) int {
	switch msgType {
	case MessageText:
		return gorilla.TextMessage
	case MessageBinary:
		return gorilla.BinaryMessage
	case MessagePing:
		return gorilla.PingMessage
	case MessagePong:
		return gorilla.PongMessage
	default:
		return 0
	}
}

func toCloseError(err error) *CloseError {
	var gce *gorilla.CloseError
	if errors.As(err, &gce) {
		return &CloseError{Code: CloseCode(gce.Code), Reason: gce.Text}
	}
	var ce *CloseError
	if errors.As(err, &ce) {
		return ce
	}
	return &CloseError{Code: CloseAbnormal, Reason: err.Error()}
}

// CloseStatus extracts the close code and reason from a Read error.
// Errors that are not close errors map to CloseAbnormal.
func CloseStatus(err error) (CloseCode, string) {
	if err == nil {
		return CloseNormal, ""
	}
	ce := toCloseError(err)
	return ce.Code, ce.Reason
}
