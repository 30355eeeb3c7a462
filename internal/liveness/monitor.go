// Package liveness sends periodic pings on an open connection and measures
// pong latency.
package liveness

import (
	"sync"
	"time"

	"github.com/yanun0323/logs"

	"gatewatch/internal/obs"
	"gatewatch/pkg/websocket"
)

// DefaultInterval is the time between pings.
const DefaultInterval = 30 * time.Second

// PingFunc sends one ping stamped with at and reports whether it was written.
type PingFunc func(at time.Time) bool

// Monitor pings while started. A missing pong is only observable through
// Outstanding; it never closes the connection.
type Monitor struct {
	sched    websocket.Scheduler
	interval time.Duration
	ping     PingFunc
	metrics  *obs.Metrics
	label    string

	mu          sync.Mutex
	running     bool
	gen         uint64
	timer       websocket.Timer
	lastPing    time.Time
	outstanding bool
	lastLatency time.Duration
}

// New creates a stopped Monitor. label prefixes log lines.
func New(sched websocket.Scheduler, interval time.Duration, ping PingFunc, metrics *obs.Metrics, label string) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Monitor{
		sched:    sched,
		interval: interval,
		ping:     ping,
		metrics:  metrics,
		label:    label,
	}
}

// Start begins the ping cycle. The first ping goes out one interval later.
func (m *Monitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}
	m.running = true
	m.gen++
	m.outstanding = false
	m.arm(m.gen)
}

// Stop cancels the ping cycle. It is safe to call on a stopped Monitor.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	m.running = false
	m.gen++
	m.outstanding = false
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

// Running reports whether the ping cycle is active.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Pong records the reply to the outstanding ping and returns its latency.
// A pong with no outstanding ping is ignored.
func (m *Monitor) Pong(now time.Time) (time.Duration, bool) {
	m.mu.Lock()
	if !m.outstanding {
		m.mu.Unlock()
		return 0, false
	}
	latency := now.Sub(m.lastPing)
	m.outstanding = false
	m.lastLatency = latency
	m.mu.Unlock()

	m.metrics.ObservePingLatency(latency)
	logs.Debugf("%s: pong latency %s", m.label, latency)
	return latency, true
}

// Outstanding reports whether a ping is waiting for its pong.
func (m *Monitor) Outstanding() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.outstanding
}

// LastLatency returns the latency of the most recent pong.
func (m *Monitor) LastLatency() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastLatency
}

func (m *Monitor) arm(gen uint64) {
	m.timer = m.sched.AfterFunc(m.interval, func() {
		m.tick(gen)
	})
}

func (m *Monitor) tick(gen uint64) {
	m.mu.Lock()
	if !m.running || m.gen != gen {
		m.mu.Unlock()
		return
	}
	if m.outstanding {
		logs.Warnf("%s: no pong for ping sent at %s", m.label, m.lastPing.Format(time.RFC3339))
	}
	now := m.sched.Now()
	m.lastPing = now
	m.outstanding = true
	m.mu.Unlock()

	ok := m.ping(now)

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running || m.gen != gen {
		return
	}
	if !ok && m.lastPing.Equal(now) {
		m.outstanding = false
	}
	m.arm(gen)
}
