// Package client keeps one hub channel connected, filters its traffic and
// dispatches it to subscribers.
package client

import (
	"context"
	"sync"
	"time"

	"github.com/yanun0323/logs"

	"gatewatch/internal/bus"
	"gatewatch/internal/channel"
	"gatewatch/internal/liveness"
	"gatewatch/internal/obs"
	"gatewatch/internal/schema"
	"gatewatch/internal/throttle"
	"gatewatch/pkg/websocket"
)

const disconnectReason = "client disconnect"

// Client owns one connection to a hub channel.
//
// One mutex guards the controller state. Transport I/O runs on a goroutine
// per connection and timers run through the configured scheduler. No
// subscriber or state observer is called while the mutex is held, so handlers
// may call back into the client.
type Client struct {
	cfg     Config
	id      channel.Identity
	url     string
	label   string
	bus     *bus.Bus
	guard   *throttle.Guard
	monitor *liveness.Monitor
	writer  *websocket.Writer
	sched   websocket.Scheduler
	metrics *obs.Metrics

	mu              sync.Mutex
	state           State
	shouldReconnect bool
	attempt         int
	gen             uint64
	retry           websocket.Timer
	initial         websocket.Timer
	cancel          context.CancelFunc
	session         string
}

type stateChange struct {
	from, to State
}

// outbox collects side effects produced under the lock and runs them after it
// is released.
type outbox struct {
	changes []stateChange
	events  []schema.Event
	after   []func()
}

// New resolves the channel identity from cfg.Locator and builds a
// disconnected client.
func New(cfg Config) (*Client, error) {
	if err := cfg.normalize(); err != nil {
		return nil, err
	}

	id := channel.Resolve(cfg.Locator)
	c := &Client{
		cfg:     cfg,
		id:      id,
		url:     channel.Endpoint(cfg.Endpoint, id),
		label:   "gatewatch[" + id.String() + "]",
		guard:   throttle.NewGuard(cfg.Scheduler.Now),
		writer:  websocket.NewWriter(0),
		sched:   cfg.Scheduler,
		metrics: cfg.Metrics,
	}
	c.bus = bus.New(bus.WithPanicHook(func(schema.Kind, any) {
		c.metrics.IncHandlerPanic()
	}))
	c.monitor = liveness.New(cfg.Scheduler, cfg.PingInterval, c.sendPing, cfg.Metrics, c.label)
	return c, nil
}

// On subscribes fn to kind. Subscriptions survive reconnects.
func (c *Client) On(kind schema.Kind, fn bus.Handler) bus.Subscription {
	return c.bus.On(kind, fn)
}

// Off removes a subscription.
func (c *Client) Off(sub bus.Subscription) bool {
	return c.bus.Off(sub)
}

// Identity returns the resolved channel.
func (c *Client) Identity() channel.Identity {
	return c.id
}

// URL returns the hub endpoint this client dials.
func (c *Client) URL() string {
	return c.url
}

// Metrics returns the client's counters.
func (c *Client) Metrics() *obs.Metrics {
	return c.metrics
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsConnected reports whether the transport is open.
func (c *Client) IsConnected() bool {
	return c.State() == StateOpen
}

// Attempt returns the number of consecutive reconnects scheduled since the
// last successful open.
func (c *Client) Attempt() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempt
}

// Session returns the id of the current connection, empty when not open.
func (c *Client) Session() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Latency returns the most recent ping round trip.
func (c *Client) Latency() time.Duration {
	return c.monitor.LastLatency()
}

// Connect starts connecting. It is a no-op while connecting or open and is
// refused in StateFailed. A pending reconnect is replaced by an immediate
// attempt.
func (c *Client) Connect() {
	var o outbox
	c.mu.Lock()
	switch c.state {
	case StateConnecting, StateOpen, StateClosing:
		c.mu.Unlock()
		logs.Debugf("%s: connect ignored in state %s", c.label, c.state)
		return
	case StateFailed:
		c.mu.Unlock()
		logs.Warnf("%s: connect refused after giving up, use Reconnect", c.label)
		return
	case StateReconnectScheduled:
		c.stopTimersLocked()
	}
	c.shouldReconnect = true
	c.dialLocked(&o)
	c.mu.Unlock()

	c.flush(o)
}

// Disconnect closes the connection and cancels every pending timer and dial,
// leaving the client Disconnected from any state. No reconnect happens
// afterwards until Connect or Reconnect is called.
func (c *Client) Disconnect() {
	var o outbox
	c.mu.Lock()
	c.shouldReconnect = false
	c.teardownLocked(&o)
	c.mu.Unlock()

	c.flush(o)
}

// Reconnect drops any connection, resets the attempt counter and connects
// immediately, including from StateFailed.
func (c *Client) Reconnect() {
	var o outbox
	c.mu.Lock()
	c.shouldReconnect = false
	c.teardownLocked(&o)
	c.shouldReconnect = true
	c.attempt = 0
	c.dialLocked(&o)
	c.mu.Unlock()

	logs.Infof("%s: manual reconnect", c.label)
	c.flush(o)
}

// teardownLocked fences every in-flight dial, read loop and timer, closes the
// transport and leaves the client Disconnected.
func (c *Client) teardownLocked(o *outbox) {
	c.gen++
	c.stopTimersLocked()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.monitor.Stop()

	if c.state == StateDisconnected {
		return
	}
	if c.state == StateFailed {
		c.transitionLocked(o, StateDisconnected)
		return
	}

	c.transitionLocked(o, StateClosing)
	if conn := c.writer.Detach(); conn != nil {
		_ = conn.Close(websocket.CloseNormal, disconnectReason)
		c.metrics.SetConnected(false)
		o.events = append(o.events, c.lifecycle(schema.KindDisconnected, func(ev *schema.Event) {
			ev.Code = int(websocket.CloseNormal)
			ev.Reason = disconnectReason
		}))
	}
	c.session = ""
	c.transitionLocked(o, StateDisconnected)
}

func (c *Client) stopTimersLocked() {
	if c.retry != nil {
		c.retry.Stop()
		c.retry = nil
	}
	if c.initial != nil {
		c.initial.Stop()
		c.initial = nil
	}
}

func (c *Client) transitionLocked(o *outbox, to State) {
	from := c.state
	if from == to {
		return
	}
	if !CanTransition(from, to) {
		logs.Errorf("%s: unexpected transition %s -> %s", c.label, from, to)
	}
	c.state = to
	o.changes = append(o.changes, stateChange{from: from, to: to})
}

func (c *Client) lifecycle(kind schema.Kind, fill func(*schema.Event)) schema.Event {
	ev := schema.Event{
		Kind:      kind,
		Type:      kind.String(),
		Channel:   c.id.String(),
		Timestamp: c.sched.Now(),
		Session:   c.session,
	}
	if fill != nil {
		fill(&ev)
	}
	return ev
}

func (c *Client) flush(o outbox) {
	if c.cfg.OnStateChange != nil {
		for _, ch := range o.changes {
			c.cfg.OnStateChange(ch.from, ch.to)
		}
	}
	for _, ev := range o.events {
		c.bus.Emit(ev.Kind, ev)
	}
	for _, fn := range o.after {
		fn()
	}
}
