package client

import (
	"context"

	"github.com/google/uuid"
	"github.com/yanun0323/logs"

	"gatewatch/internal/channel"
	"gatewatch/internal/codec"
	"gatewatch/internal/schema"
	"gatewatch/pkg/websocket"
)

func (c *Client) dialLocked(o *outbox) {
	c.gen++
	gen := c.gen
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.transitionLocked(o, StateConnecting)

	logs.Infof("%s: connecting to %s", c.label, c.url)
	o.after = append(o.after, func() {
		go c.run(ctx, gen)
	})
}

// run dials and then reads until the connection ends. Every state change it
// makes is fenced by gen so a superseded dial or read loop has no effect.
func (c *Client) run(ctx context.Context, gen uint64) {
	conn, err := c.cfg.Dialer.Dial(ctx, c.url)
	if err != nil {
		c.dialFailed(gen, err)
		return
	}
	if !c.opened(gen, conn) {
		_ = conn.Close(websocket.CloseNormal, disconnectReason)
		return
	}

	for {
		msgType, payload, err := conn.Read(ctx)
		if err != nil {
			c.closed(gen, conn, err)
			return
		}
		if !msgType.IsData() {
			continue
		}
		if !c.current(gen) {
			return
		}
		c.handleFrame(gen, payload)
	}
}

func (c *Client) current(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen == gen
}

func (c *Client) opened(gen uint64, conn websocket.Conn) bool {
	var o outbox
	c.mu.Lock()
	if c.gen != gen || c.state != StateConnecting {
		c.mu.Unlock()
		return false
	}
	c.writer.Attach(conn)
	c.attempt = 0
	c.session = uuid.NewString()
	c.transitionLocked(&o, StateOpen)
	c.monitor.Start()
	c.metrics.SetConnected(true)
	c.initial = c.sched.AfterFunc(c.cfg.InitialRequestDelay, func() {
		c.initialRequest(gen)
	})
	o.events = append(o.events, c.lifecycle(schema.KindConnected, nil))
	session := c.session
	c.mu.Unlock()

	logs.Infof("%s: connected, session %s", c.label, session)
	c.flush(o)
	return true
}

func (c *Client) initialRequest(gen uint64) {
	c.mu.Lock()
	ok := c.gen == gen && c.state == StateOpen
	if ok {
		c.initial = nil
	}
	c.mu.Unlock()
	if !ok {
		return
	}
	c.RequestStatus()
}

func (c *Client) handleFrame(gen uint64, frame []byte) {
	c.metrics.IncFrame()

	in, err := codec.Decode(frame)
	if err != nil {
		c.metrics.IncDecodeError()
		logs.Warnf("%s: drop frame: %s", c.label, err)
		return
	}

	// The hub never sends lifecycle kinds; a frame claiming one must not be
	// mistaken for the client's own events.
	if in.Kind.Synthetic() {
		in.Kind = schema.KindUnknown
	}

	if in.Kind == schema.KindPong {
		c.monitor.Pong(c.sched.Now())
		return
	}

	if !channel.ShouldDispatch(c.id, in) {
		c.metrics.IncFiltered()
		logs.Debugf("%s: filtered %s for %s", c.label, in.Type, in.GateID)
		return
	}

	// Decoding runs unlocked, so a Disconnect may have landed since the read.
	session, ok := c.sessionOf(gen)
	if !ok {
		return
	}
	ev := schema.FromInbound(c.id.String(), in)
	ev.Session = session
	c.bus.Emit(in.Kind, ev)
	c.metrics.ObserveDispatch(in.Kind)
	if !c.current(gen) {
		return
	}
	c.bus.Emit(schema.KindMessage, ev)
}

// sessionOf returns the session id while gen is still the live connection.
func (c *Client) sessionOf(gen uint64) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session, c.gen == gen
}

func (c *Client) closed(gen uint64, conn websocket.Conn, err error) {
	code, reason := websocket.CloseStatus(err)

	var o outbox
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}
	c.writer.Detach()
	c.stopTimersLocked()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.monitor.Stop()
	c.metrics.SetConnected(false)
	o.events = append(o.events, c.lifecycle(schema.KindDisconnected, func(ev *schema.Event) {
		ev.Code = int(code)
		ev.Reason = reason
	}))
	c.session = ""
	c.afterCloseLocked(&o)
	c.mu.Unlock()

	_ = conn.Close(0, "")
	logs.Warnf("%s: connection closed, code %d %s", c.label, code, reason)
	c.flush(o)
}

func (c *Client) dialFailed(gen uint64, err error) {
	var o outbox
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	o.events = append(o.events,
		c.lifecycle(schema.KindError, func(ev *schema.Event) {
			ev.Err = err
			ev.Reason = err.Error()
		}),
		c.lifecycle(schema.KindDisconnected, func(ev *schema.Event) {
			ev.Code = int(websocket.CloseAbnormal)
			ev.Reason = err.Error()
		}),
	)
	c.afterCloseLocked(&o)
	c.mu.Unlock()

	logs.Errorf("%s: dial %s: %s", c.label, c.url, err)
	c.flush(o)
}

// afterCloseLocked decides what follows a lost or failed connection: a
// scheduled retry, giving up, or staying disconnected.
func (c *Client) afterCloseLocked(o *outbox) {
	if !c.shouldReconnect {
		c.transitionLocked(o, StateDisconnected)
		return
	}

	next := c.attempt + 1
	if c.cfg.Backoff.Exhausted(next) {
		c.transitionLocked(o, StateFailed)
		c.metrics.IncReconnectFailed()
		o.events = append(o.events, c.lifecycle(schema.KindReconnectFailed, func(ev *schema.Event) {
			ev.Attempt = c.attempt
			ev.MaxAttempts = c.cfg.Backoff.MaxAttempts
		}))
		logs.Errorf("%s: giving up after %d attempts", c.label, c.attempt)
		return
	}

	c.attempt = next
	delay := c.cfg.Backoff.Next(next)
	gen := c.gen
	c.transitionLocked(o, StateReconnectScheduled)
	c.retry = c.sched.AfterFunc(delay, func() {
		c.retryFired(gen)
	})
	c.metrics.IncReconnect()
	o.events = append(o.events, c.lifecycle(schema.KindReconnecting, func(ev *schema.Event) {
		ev.Attempt = next
		ev.MaxAttempts = c.cfg.Backoff.MaxAttempts
		ev.Delay = delay
	}))
	logs.Infof("%s: reconnecting in %s (attempt %d/%d)", c.label, delay, next, c.cfg.Backoff.MaxAttempts)
}

func (c *Client) retryFired(gen uint64) {
	var o outbox
	c.mu.Lock()
	if c.gen != gen || c.state != StateReconnectScheduled || !c.shouldReconnect {
		c.mu.Unlock()
		return
	}
	c.retry = nil
	c.dialLocked(&o)
	c.mu.Unlock()

	c.flush(o)
}
