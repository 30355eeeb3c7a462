package client

import (
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yanun0323/errors"

	"gatewatch/internal/channel"
	"gatewatch/internal/schema"
	"gatewatch/pkg/websocket"
	"gatewatch/pkg/websocket/wstest"
)

const (
	waitFor = 2 * time.Second
	tick    = time.Millisecond
)

var errRefused = errors.New("connection refused")

type recorded struct {
	sub schema.Kind
	ev  schema.Event
}

// recorder keys events by the kind they were subscribed under, so message
// subscribers see the underlying frame kind in ev.Kind.
type recorder struct {
	mu     sync.Mutex
	events []recorded
	states []State
}

func (r *recorder) on(sub schema.Kind) func(schema.Event) {
	return func(ev schema.Event) {
		r.mu.Lock()
		r.events = append(r.events, recorded{sub: sub, ev: ev})
		r.mu.Unlock()
	}
}

func (r *recorder) stateChanged(_, to State) {
	r.mu.Lock()
	r.states = append(r.states, to)
	r.mu.Unlock()
}

func (r *recorder) of(sub schema.Kind) []schema.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []schema.Event
	for _, e := range r.events {
		if e.sub == sub {
			out = append(out, e.ev)
		}
	}
	return out
}

func (r *recorder) count(sub schema.Kind) int {
	return len(r.of(sub))
}

// lifecycle lists the client-produced events in delivery order.
func (r *recorder) lifecycle() []schema.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []schema.Kind
	for _, e := range r.events {
		if e.sub != schema.KindMessage {
			out = append(out, e.sub)
		}
	}
	return out
}

func (r *recorder) visited() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]State, len(r.states))
	copy(out, r.states)
	return out
}

type harness struct {
	c      *Client
	sched  *wstest.Scheduler
	dialer *wstest.Dialer
	rec    *recorder
}

func newHarness(t *testing.T, locator string, backoff websocket.Backoff) *harness {
	t.Helper()
	h := &harness{
		sched:  wstest.NewScheduler(time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)),
		dialer: wstest.NewDialer(),
		rec:    &recorder{},
	}
	c, err := New(Config{
		Locator:       locator,
		Endpoint:      "ws://hub.local:8000",
		Backoff:       backoff,
		Dialer:        h.dialer,
		Scheduler:     h.sched,
		OnStateChange: h.rec.stateChanged,
	})
	require.NoError(t, err)
	for _, kind := range []schema.Kind{
		schema.KindConnected, schema.KindDisconnected, schema.KindReconnecting,
		schema.KindReconnectFailed, schema.KindError, schema.KindMessage,
	} {
		c.On(kind, h.rec.on(kind))
	}
	h.c = c
	t.Cleanup(c.Disconnect)
	return h
}

func defaultBackoff() websocket.Backoff {
	return websocket.Backoff{Base: 2 * time.Second, Ceiling: 30 * time.Second, MaxAttempts: 10}
}

func (h *harness) waitState(t *testing.T, want State) {
	t.Helper()
	require.Eventually(t, func() bool { return h.c.State() == want }, waitFor, tick,
		"state %s, want %s", h.c.State(), want)
}

func (h *harness) connect(t *testing.T) *wstest.Conn {
	t.Helper()
	h.c.Connect()
	h.waitState(t, StateOpen)
	require.Eventually(t, func() bool { return h.rec.count(schema.KindConnected) > 0 }, waitFor, tick)
	return h.dialer.Last()
}

type wireFrame struct {
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload"`
	Timestamp string         `json:"timestamp"`
}

func decodeWrites(t *testing.T, conn *wstest.Conn) []wireFrame {
	t.Helper()
	var out []wireFrame
	for _, w := range conn.Writes() {
		var f wireFrame
		require.NoError(t, sonic.ConfigFastest.Unmarshal(w.Payload, &f))
		out = append(out, f)
	}
	return out
}

func TestEndToEndGateOutDashboard(t *testing.T) {
	h := newHarness(t, "/dashboard?gate=gate_out", defaultBackoff())
	assert.Equal(t, channel.GateOut, h.c.Identity())
	assert.Equal(t, "ws://hub.local:8000/ws/gate_out", h.c.URL())

	var first, second []schema.Event
	var mu sync.Mutex
	h.c.On(schema.KindParkingEvent, func(ev schema.Event) {
		mu.Lock()
		first = append(first, ev)
		mu.Unlock()
	})
	h.c.On(schema.KindParkingEvent, func(ev schema.Event) {
		mu.Lock()
		second = append(second, ev)
		mu.Unlock()
	})

	conn := h.connect(t)
	assert.Equal(t, []State{StateConnecting, StateOpen}, h.rec.visited())
	assert.Equal(t, 1, h.rec.count(schema.KindConnected))
	assert.NotEmpty(t, h.c.Session())
	assert.Equal(t, 0, h.c.Attempt())

	h.sched.Advance(499 * time.Millisecond)
	assert.Empty(t, conn.Writes())
	h.sched.Advance(time.Millisecond)
	writes := decodeWrites(t, conn)
	require.Len(t, writes, 1)
	assert.Equal(t, "request_status", writes[0].Type)
	assert.Equal(t, map[string]any{"gate_id": "gate_out"}, writes[0].Payload)
	assert.Equal(t, "2025-06-01T08:00:00.500Z", writes[0].Timestamp)

	conn.Push(`{"type":"parking_event","gate_id":"gate_in","payload":{"card_id":"A1"}}`)
	require.Eventually(t, func() bool { return h.c.Metrics().Snapshot().Filtered == 1 }, waitFor, tick)
	mu.Lock()
	assert.Empty(t, first)
	mu.Unlock()

	conn.Push(`{"type":"parking_event","gate_id":"gate_out","payload":{"card_id":"B2"}}`)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(first) == 1 && len(second) == 1
	}, waitFor, tick)
	mu.Lock()
	assert.Equal(t, "gate_out", first[0].GateID)
	assert.Equal(t, "gate_out", first[0].Channel)
	assert.JSONEq(t, `{"card_id":"B2"}`, string(second[0].Payload))
	mu.Unlock()
	require.Eventually(t, func() bool { return h.rec.count(schema.KindMessage) == 1 }, waitFor, tick)
	assert.Equal(t, schema.KindParkingEvent, h.rec.of(schema.KindMessage)[0].Kind)

	conn.CloseFromServer(websocket.CloseAbnormal, "")
	h.waitState(t, StateReconnectScheduled)
	require.Eventually(t, func() bool { return h.rec.count(schema.KindReconnecting) == 1 }, waitFor, tick)

	disconnected := h.rec.of(schema.KindDisconnected)
	require.Len(t, disconnected, 1)
	assert.Equal(t, 1006, disconnected[0].Code)
	assert.Equal(t, []schema.Kind{schema.KindConnected, schema.KindDisconnected, schema.KindReconnecting},
		h.rec.lifecycle())

	reconnecting := h.rec.of(schema.KindReconnecting)[0]
	assert.Equal(t, 1, reconnecting.Attempt)
	assert.Equal(t, 10, reconnecting.MaxAttempts)
	assert.Equal(t, 2*time.Second, reconnecting.Delay)
	assert.Equal(t, 1, h.c.Attempt())

	next, ok := h.sched.NextDeadline()
	require.True(t, ok)
	assert.Equal(t, 2*time.Second, next)

	h.sched.Advance(2 * time.Second)
	h.waitState(t, StateOpen)
	assert.Equal(t, 0, h.c.Attempt())
	assert.Equal(t, 2, h.dialer.Dials())
	assert.Equal(t, []string{"ws://hub.local:8000/ws/gate_out", "ws://hub.local:8000/ws/gate_out"}, h.dialer.URLs())
}

func TestBackoffDelaysGrowToCeiling(t *testing.T) {
	h := newHarness(t, "/gate-in", websocket.Backoff{Base: 2 * time.Second, Ceiling: 5 * time.Second, MaxAttempts: 10})
	h.dialer.FailNext(errRefused, errRefused, errRefused, errRefused)

	h.c.Connect()
	expected := []time.Duration{2 * time.Second, 4 * time.Second, 5 * time.Second, 5 * time.Second}
	for i, delay := range expected {
		attempt := i + 1
		require.Eventually(t, func() bool {
			return h.c.State() == StateReconnectScheduled && h.rec.count(schema.KindReconnecting) == attempt
		}, waitFor, tick, "attempt %d", attempt)
		assert.Equal(t, attempt, h.c.Attempt())

		ev := h.rec.of(schema.KindReconnecting)[i]
		assert.Equal(t, attempt, ev.Attempt)
		assert.Equal(t, delay, ev.Delay)
		h.sched.Advance(delay)
	}

	h.waitState(t, StateOpen)
	assert.Equal(t, 0, h.c.Attempt())

	errs := h.rec.of(schema.KindError)
	require.Len(t, errs, 4)
	assert.ErrorIs(t, errs[0].Err, errRefused)
	for _, ev := range h.rec.of(schema.KindDisconnected) {
		assert.Equal(t, 1006, ev.Code)
	}
}

func TestGivesUpAfterMaxAttempts(t *testing.T) {
	h := newHarness(t, "/gate-in", websocket.Backoff{Base: time.Second, Ceiling: time.Minute, MaxAttempts: 2})
	h.dialer.FailNext(errRefused, errRefused, errRefused)

	h.c.Connect()
	require.Eventually(t, func() bool { return h.c.Attempt() == 1 }, waitFor, tick)
	h.sched.Advance(time.Second)
	require.Eventually(t, func() bool { return h.c.Attempt() == 2 && h.c.State() == StateReconnectScheduled }, waitFor, tick)
	h.sched.Advance(2 * time.Second)

	h.waitState(t, StateFailed)
	require.Eventually(t, func() bool { return h.rec.count(schema.KindReconnectFailed) == 1 }, waitFor, tick)
	failed := h.rec.of(schema.KindReconnectFailed)[0]
	assert.Equal(t, 2, failed.Attempt)
	assert.Equal(t, 2, failed.MaxAttempts)
	assert.Equal(t, 2, h.c.Attempt())
	assert.Equal(t, 0, h.sched.Pending())
	assert.Equal(t, uint64(1), h.c.Metrics().Snapshot().ReconnectFailed)

	dials := h.dialer.Dials()
	h.c.Connect()
	h.sched.Advance(time.Hour)
	assert.Equal(t, StateFailed, h.c.State())
	assert.Equal(t, dials, h.dialer.Dials())

	h.c.Reconnect()
	h.waitState(t, StateOpen)
	assert.Equal(t, 0, h.c.Attempt())
}

func TestDisconnectLeavesFailed(t *testing.T) {
	h := newHarness(t, "/gate-in", websocket.Backoff{Base: time.Second, Ceiling: time.Minute, MaxAttempts: 1})
	h.dialer.FailNext(errRefused, errRefused)

	h.c.Connect()
	require.Eventually(t, func() bool { return h.c.State() == StateReconnectScheduled }, waitFor, tick)
	h.sched.Advance(time.Second)
	h.waitState(t, StateFailed)

	h.c.Disconnect()
	assert.Equal(t, StateDisconnected, h.c.State())
	assert.Equal(t, StateDisconnected, h.rec.visited()[len(h.rec.visited())-1])
	dials := h.dialer.Dials()
	h.sched.Advance(time.Hour)
	assert.Equal(t, dials, h.dialer.Dials())

	h.c.Connect()
	h.waitState(t, StateOpen)
}

func TestDisconnectWhileConnecting(t *testing.T) {
	h := newHarness(t, "/gate-in", defaultBackoff())
	h.dialer.Hold()

	h.c.Connect()
	assert.Equal(t, StateConnecting, h.c.State())
	require.Eventually(t, func() bool { return h.dialer.Dials() == 1 }, waitFor, tick)

	h.c.Disconnect()
	assert.Equal(t, StateDisconnected, h.c.State())
	h.dialer.Release()
	h.sched.Advance(time.Hour)

	assert.Never(t, func() bool { return h.c.State() != StateDisconnected }, 50*time.Millisecond, 5*time.Millisecond)
	assert.Equal(t, 1, h.dialer.Dials())
	assert.Equal(t, 0, h.rec.count(schema.KindConnected))
}

func TestDisconnectWhileOpen(t *testing.T) {
	h := newHarness(t, "/gate-in", defaultBackoff())
	conn := h.connect(t)

	h.c.Disconnect()
	assert.Equal(t, StateDisconnected, h.c.State())
	assert.Equal(t, []State{StateConnecting, StateOpen, StateClosing, StateDisconnected}, h.rec.visited())
	code, ok := conn.ClosedLocally()
	assert.True(t, ok)
	assert.Equal(t, websocket.CloseNormal, code)
	assert.Equal(t, 0, h.sched.Pending(), "ping and initial request timers must be cancelled")

	disconnected := h.rec.of(schema.KindDisconnected)
	require.Len(t, disconnected, 1)
	assert.Equal(t, 1000, disconnected[0].Code)

	h.sched.Advance(time.Hour)
	assert.Never(t, func() bool { return h.c.State() != StateDisconnected }, 50*time.Millisecond, 5*time.Millisecond)
	assert.Equal(t, 1, h.dialer.Dials())
	assert.Equal(t, 0, h.rec.count(schema.KindReconnecting))
	assert.Empty(t, conn.Writes())
}

func TestDisconnectWhileReconnectScheduled(t *testing.T) {
	h := newHarness(t, "/gate-in", defaultBackoff())
	conn := h.connect(t)

	conn.CloseFromServer(websocket.CloseGoingAway, "restart")
	h.waitState(t, StateReconnectScheduled)
	require.Equal(t, 1, h.sched.Pending())

	h.c.Disconnect()
	assert.Equal(t, StateDisconnected, h.c.State())
	assert.Equal(t, 0, h.sched.Pending())

	h.sched.Advance(time.Hour)
	assert.Never(t, func() bool { return h.c.State() != StateDisconnected }, 50*time.Millisecond, 5*time.Millisecond)
	assert.Equal(t, 1, h.dialer.Dials())

	disconnected := h.rec.of(schema.KindDisconnected)
	require.Len(t, disconnected, 1)
	assert.Equal(t, 1001, disconnected[0].Code)
	assert.Equal(t, "restart", disconnected[0].Reason)
}

func TestDisconnectWhenIdleIsNoop(t *testing.T) {
	h := newHarness(t, "/gate-in", defaultBackoff())
	h.c.Disconnect()
	assert.Equal(t, StateDisconnected, h.c.State())
	assert.Empty(t, h.rec.visited())
	assert.Empty(t, h.rec.lifecycle())
}

func TestConnectIsIdempotent(t *testing.T) {
	h := newHarness(t, "/gate-in", defaultBackoff())
	h.connect(t)
	h.c.Connect()
	h.c.Connect()
	assert.Equal(t, 1, h.dialer.Dials())
	assert.Equal(t, StateOpen, h.c.State())
}

func TestConnectCancelsPendingRetry(t *testing.T) {
	h := newHarness(t, "/gate-in", defaultBackoff())
	h.dialer.FailNext(errRefused)

	h.c.Connect()
	h.waitState(t, StateReconnectScheduled)
	h.c.Connect()
	h.waitState(t, StateOpen)

	h.sched.Advance(time.Minute)
	assert.Equal(t, 2, h.dialer.Dials())
}

func TestReconnectResetsAttempts(t *testing.T) {
	h := newHarness(t, "/gate-in", defaultBackoff())
	conn := h.connect(t)

	h.c.Reconnect()
	h.waitState(t, StateOpen)
	require.Eventually(t, func() bool { return h.dialer.Conns() == 2 }, waitFor, tick)
	require.Eventually(t, func() bool { return h.rec.count(schema.KindConnected) == 2 }, waitFor, tick)
	assert.True(t, conn.Closed())
	assert.Equal(t, 0, h.c.Attempt())
}

func TestSendWhileNotOpen(t *testing.T) {
	h := newHarness(t, "/gate-in", defaultBackoff())
	assert.False(t, h.c.Send("gate_control", map[string]any{"action": "open"}))
	assert.False(t, h.c.IsConnected())
	assert.Equal(t, uint64(1), h.c.Metrics().Snapshot().SendFailures)
}

func TestStatusRequestsAreThrottled(t *testing.T) {
	h := newHarness(t, "/gate-in", defaultBackoff())
	conn := h.connect(t)

	h.sched.Advance(500 * time.Millisecond)
	require.Len(t, conn.Writes(), 1)

	assert.False(t, h.c.RequestStatus())
	h.sched.Advance(2 * time.Second)
	assert.True(t, h.c.RequestStatus())
	assert.Len(t, conn.Writes(), 2)
}

func TestGateWrappers(t *testing.T) {
	h := newHarness(t, "/gate-in", defaultBackoff())
	conn := h.connect(t)

	assert.True(t, h.c.OpenGate(0))
	assert.True(t, h.c.CloseGate())
	assert.True(t, h.c.CaptureImage())
	assert.True(t, h.c.RequestCameraStream())
	assert.False(t, h.c.ControlGate("gate_out", "open", 5))
	assert.True(t, h.c.RequestParkingEntry("CARD-1", "B 1234 XY"))
	assert.True(t, h.c.RequestParkingExit("CARD-1", ""))

	writes := decodeWrites(t, conn)
	require.Len(t, writes, 6)
	assert.Equal(t, "gate_control", writes[0].Type)
	assert.Equal(t, map[string]any{"action": "open", "gate_id": "gate_in", "duration": float64(10)}, writes[0].Payload)
	assert.Equal(t, map[string]any{"action": "close", "gate_id": "gate_in"}, writes[1].Payload)
	assert.Equal(t, "camera_control", writes[2].Type)
	assert.Equal(t, map[string]any{"command": "capture", "gate_id": "gate_in"}, writes[2].Payload)
	assert.Equal(t, map[string]any{"command": "get_stream_url", "gate_id": "gate_in"}, writes[3].Payload)
	assert.Equal(t, "parking_entry", writes[4].Type)
	assert.Equal(t, "CARD-1", writes[4].Payload["card_id"])
	assert.Equal(t, "B 1234 XY", writes[4].Payload["license_plate"])
	assert.Equal(t, "parking_exit", writes[5].Type)
	assert.Equal(t, "card", writes[5].Payload["payment_method"])
}

func TestBroadcastWrappers(t *testing.T) {
	h := newHarness(t, "/admin", defaultBackoff())
	assert.Equal(t, channel.All, h.c.Identity())
	assert.Equal(t, "ws://hub.local:8000/ws/gate_all", h.c.URL())
	conn := h.connect(t)

	h.sched.Advance(500 * time.Millisecond)
	assert.False(t, h.c.OpenGate(5))
	assert.False(t, h.c.CaptureImage())
	assert.True(t, h.c.ControlGate("gate_out", "open", 5))

	writes := decodeWrites(t, conn)
	require.Len(t, writes, 2)
	assert.Equal(t, "request_status", writes[0].Type)
	assert.Empty(t, writes[0].Payload)
	assert.Equal(t, map[string]any{"action": "open", "gate_id": "gate_out", "duration": float64(5)}, writes[1].Payload)
}

func TestPingPong(t *testing.T) {
	h := newHarness(t, "/gate-in", defaultBackoff())
	conn := h.connect(t)

	h.sched.Advance(30 * time.Second)
	writes := decodeWrites(t, conn)
	require.Len(t, writes, 2)
	assert.Equal(t, "ping", writes[1].Type)
	assert.Equal(t, "2025-06-01T08:00:30.000Z", writes[1].Payload["timestamp"])

	h.sched.Advance(20 * time.Millisecond)
	conn.Push(`{"type":"pong","payload":{"timestamp":"2025-06-01T08:00:30.020Z"}}`)
	require.Eventually(t, func() bool { return h.c.Metrics().Snapshot().PingLatency.Count == 1 }, waitFor, tick)
	assert.Equal(t, 20*time.Millisecond, h.c.Latency())
	assert.Equal(t, 0, h.rec.count(schema.KindMessage), "pong is consumed by the monitor")
}

func TestMalformedFrameKeepsConnection(t *testing.T) {
	h := newHarness(t, "/gate-in", defaultBackoff())
	conn := h.connect(t)

	conn.Push(`not json`)
	conn.Push(`{"payload":{}}`)
	conn.Push(`{"type":"system_status","payload":{"ok":true}}`)

	require.Eventually(t, func() bool { return h.rec.count(schema.KindMessage) == 1 }, waitFor, tick)
	assert.Equal(t, uint64(2), h.c.Metrics().Snapshot().DecodeErrors)
	assert.Equal(t, StateOpen, h.c.State())
	assert.False(t, conn.Closed())
}

func TestMalformedPayloadIsNotDispatched(t *testing.T) {
	h := newHarness(t, "/gate-in", defaultBackoff())
	conn := h.connect(t)

	conn.Push(`{"type":"system_status","payload":{"a":}}`)
	conn.Push(`{"type":"system_status","payload":[1 2]}`)
	conn.Push(`{"type":"system_status","payload":{"ok":true}}`)

	require.Eventually(t, func() bool { return h.rec.count(schema.KindMessage) == 1 }, waitFor, tick)
	assert.JSONEq(t, `{"ok":true}`, string(h.rec.of(schema.KindMessage)[0].Payload))
	assert.Equal(t, uint64(2), h.c.Metrics().Snapshot().DecodeErrors)
	assert.Equal(t, StateOpen, h.c.State())
}

func TestNoMessageAfterDisconnectFromHandler(t *testing.T) {
	h := newHarness(t, "/gate-in", defaultBackoff())
	h.c.On(schema.KindSystemStatus, func(schema.Event) {
		h.c.Disconnect()
	})
	conn := h.connect(t)

	conn.Push(`{"type":"system_status","payload":{"ok":true}}`)
	conn.Push(`{"type":"system_status","payload":{"ok":false}}`)

	h.waitState(t, StateDisconnected)
	require.Eventually(t, func() bool { return h.rec.count(schema.KindDisconnected) == 1 }, waitFor, tick)
	assert.Never(t, func() bool { return h.rec.count(schema.KindMessage) > 0 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestWireLifecycleKindsAreNotSynthetic(t *testing.T) {
	h := newHarness(t, "/admin", defaultBackoff())
	conn := h.connect(t)

	conn.Push(`{"type":"connected","payload":{}}`)
	require.Eventually(t, func() bool { return h.rec.count(schema.KindMessage) == 1 }, waitFor, tick)
	assert.Equal(t, 1, h.rec.count(schema.KindConnected))
	msg := h.rec.of(schema.KindMessage)[0]
	assert.Equal(t, schema.KindUnknown, msg.Kind)
	assert.Equal(t, "connected", msg.Type)
}

func TestHandlerPanicDoesNotStopDispatch(t *testing.T) {
	h := newHarness(t, "/admin", defaultBackoff())
	got := make(chan schema.Event, 1)
	h.c.On(schema.KindEmergencyEvent, func(schema.Event) { panic("ui crashed") })
	h.c.On(schema.KindEmergencyEvent, func(ev schema.Event) { got <- ev })
	conn := h.connect(t)

	conn.Push(`{"type":"emergency_event","payload":{"message":"fire"}}`)
	select {
	case ev := <-got:
		assert.Equal(t, schema.KindEmergencyEvent, ev.Kind)
	case <-time.After(waitFor):
		t.Fatal("timeout")
	}
	assert.Equal(t, uint64(1), h.c.Metrics().Snapshot().HandlerPanics)
	assert.Equal(t, StateOpen, h.c.State())
}

func TestHandlerMayCallBackIntoClient(t *testing.T) {
	h := newHarness(t, "/gate-in", defaultBackoff())
	h.c.On(schema.KindConnected, func(schema.Event) {
		h.c.Disconnect()
	})

	h.c.Connect()
	h.waitState(t, StateDisconnected)
	require.Eventually(t, func() bool { return h.rec.count(schema.KindDisconnected) == 1 }, waitFor, tick)
	assert.Equal(t, 0, h.sched.Pending())
}

func TestNewValidatesConfig(t *testing.T) {
	testCases := []struct {
		desc string
		cfg  Config
		err  error
	}{
		{"bad scheme", Config{Endpoint: "http://hub:8000"}, ErrBadEndpoint},
		{"missing host", Config{Endpoint: "ws://"}, ErrBadEndpoint},
		{"negative backoff", Config{Backoff: websocket.Backoff{Base: -time.Second}}, ErrBadConfig},
		{"negative ping", Config{PingInterval: -time.Second}, ErrBadConfig},
		{"unknown status type", Config{StatusRequestType: "refresh"}, ErrBadConfig},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			_, err := New(tc.cfg)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.err), "unexpected error: %v", err)
		})
	}
}

func TestNewDefaults(t *testing.T) {
	c, err := New(Config{Locator: "/gate-out", StatusRequestType: "request_system_status"})
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8000/ws/gate_out", c.URL())
	assert.Equal(t, websocket.DefaultBackoff(), c.cfg.Backoff)
	assert.Equal(t, 30*time.Second, c.cfg.PingInterval)
	assert.Equal(t, 500*time.Millisecond, c.cfg.InitialRequestDelay)
	assert.Equal(t, 2*time.Second, c.cfg.StatusThrottle)
	assert.Equal(t, "request_system_status", c.cfg.StatusRequestType)
	assert.Equal(t, StateDisconnected, c.State())
}
