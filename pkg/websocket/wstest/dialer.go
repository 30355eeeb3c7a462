package wstest

import (
	"context"
	"sync"

	"gatewatch/pkg/websocket"
)

// Dialer hands out a fresh Conn per successful dial and records every URL.
type Dialer struct {
	mu    sync.Mutex
	fails []error
	urls  []string
	conns []*Conn
	hold  chan struct{}
}

// NewDialer returns a Dialer whose dials succeed.
func NewDialer() *Dialer {
	return &Dialer{}
}

// FailNext queues errors returned by the next dials, in order.
func (d *Dialer) FailNext(errs ...error) {
	d.mu.Lock()
	d.fails = append(d.fails, errs...)
	d.mu.Unlock()
}

// Hold makes later dials block until Release or context cancellation.
func (d *Dialer) Hold() {
	d.mu.Lock()
	if d.hold == nil {
		d.hold = make(chan struct{})
	}
	d.mu.Unlock()
}

// Release unblocks held dials.
func (d *Dialer) Release() {
	d.mu.Lock()
	if d.hold != nil {
		close(d.hold)
		d.hold = nil
	}
	d.mu.Unlock()
}

func (d *Dialer) Dial(ctx context.Context, url string) (websocket.Conn, error) {
	d.mu.Lock()
	d.urls = append(d.urls, url)
	hold := d.hold
	var err error
	if len(d.fails) > 0 {
		err = d.fails[0]
		d.fails = d.fails[1:]
	}
	d.mu.Unlock()

	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}

	conn := NewConn()
	d.mu.Lock()
	d.conns = append(d.conns, conn)
	d.mu.Unlock()
	return conn, nil
}

// Dials returns how many dials were attempted.
func (d *Dialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.urls)
}

// URLs returns every dialed URL in order.
func (d *Dialer) URLs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.urls))
	copy(out, d.urls)
	return out
}

// Conns returns how many connections were handed out.
func (d *Dialer) Conns() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.conns)
}

// Last returns the most recent successful connection, or nil.
func (d *Dialer) Last() *Conn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}
