package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	coder "github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatewatch/internal/schema"
	"gatewatch/pkg/websocket"
)

// hub is a minimal gate hub. It records every request path and frame it
// receives and lets the test push frames to, or drop, the live connection.
type hub struct {
	srv *httptest.Server

	mu       sync.Mutex
	paths    []string
	received []string
	conns    []*coder.Conn
}

func newHub(t *testing.T) *hub {
	t.Helper()
	h := &hub{}
	h.srv = httptest.NewServer(http.HandlerFunc(h.serve))
	t.Cleanup(h.srv.Close)
	return h
}

func (h *hub) serve(w http.ResponseWriter, r *http.Request) {
	c, err := coder.Accept(w, r, nil)
	if err != nil {
		return
	}
	h.mu.Lock()
	h.paths = append(h.paths, r.URL.Path)
	h.conns = append(h.conns, c)
	h.mu.Unlock()

	ctx := r.Context()
	for {
		_, payload, err := c.Read(ctx)
		if err != nil {
			return
		}
		h.mu.Lock()
		h.received = append(h.received, string(payload))
		h.mu.Unlock()
		if strings.Contains(string(payload), `"type":"ping"`) {
			_ = c.Write(ctx, coder.MessageText, []byte(`{"type":"pong","payload":{}}`))
		}
	}
}

func (h *hub) url() string {
	return "ws" + strings.TrimPrefix(h.srv.URL, "http")
}

func (h *hub) last() *coder.Conn {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.conns) == 0 {
		return nil
	}
	return h.conns[len(h.conns)-1]
}

func (h *hub) accepted() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

func (h *hub) requestPaths() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.paths...)
}

func (h *hub) frames() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.received))
	copy(out, h.received)
	return out
}

func TestClientAgainstHub(t *testing.T) {
	hub := newHub(t)

	c, err := New(Config{
		Locator:             "http://kiosk.local/gate-in/dashboard",
		Endpoint:            hub.url(),
		Backoff:             websocket.Backoff{Base: 50 * time.Millisecond, Ceiling: 200 * time.Millisecond, MaxAttempts: 5},
		PingInterval:        100 * time.Millisecond,
		InitialRequestDelay: 10 * time.Millisecond,
	})
	require.NoError(t, err)
	t.Cleanup(c.Disconnect)

	results := make(chan schema.Event, 4)
	c.On(schema.KindParkingEntryResult, func(ev schema.Event) { results <- ev })
	reconnecting := make(chan schema.Event, 4)
	c.On(schema.KindReconnecting, func(ev schema.Event) { reconnecting <- ev })

	c.Connect()
	require.Eventually(t, c.IsConnected, 5*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return hub.last() != nil }, 5*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"/ws/gate_in"}, hub.requestPaths())

	require.Eventually(t, func() bool {
		for _, f := range hub.frames() {
			if strings.Contains(f, `"type":"request_status"`) && strings.Contains(f, `"gate_id":"gate_in"`) {
				return true
			}
		}
		return false
	}, 5*time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, hub.last().Write(ctx, coder.MessageText,
		[]byte(`{"type":"parking_entry_result","gate_id":"gate_out","payload":{"success":true}}`)))
	require.NoError(t, hub.last().Write(ctx, coder.MessageText,
		[]byte(`{"type":"parking_entry_result","gate_id":"gate_in","payload":{"success":true,"card_id":"C-7"}}`)))

	select {
	case ev := <-results:
		assert.Equal(t, "gate_in", ev.GateID)
		var res schema.ParkingResult
		require.NoError(t, ev.Decode(&res))
		assert.True(t, res.Success)
	case <-ctx.Done():
		t.Fatal("parking result not dispatched")
	}
	assert.Eventually(t, func() bool { return c.Latency() > 0 || c.Metrics().Snapshot().PingLatency.Count > 0 },
		5*time.Second, 5*time.Millisecond)

	_ = hub.last().Close(coder.StatusGoingAway, "hub restart")
	select {
	case ev := <-reconnecting:
		assert.Equal(t, 1, ev.Attempt)
		assert.Equal(t, 50*time.Millisecond, ev.Delay)
	case <-ctx.Done():
		t.Fatal("no reconnect scheduled")
	}

	require.Eventually(t, func() bool { return hub.accepted() == 2 && c.IsConnected() }, 5*time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, c.Attempt())
	assert.Len(t, results, 0)
}
