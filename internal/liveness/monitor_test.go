package liveness

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"gatewatch/internal/obs"
	"gatewatch/pkg/websocket/wstest"
)

func newMonitor(ok bool) (*Monitor, *wstest.Scheduler, *[]time.Time, *obs.Metrics) {
	sched := wstest.NewScheduler(time.Unix(1_700_000_000, 0))
	metrics := obs.NewMetrics()
	var sent []time.Time
	m := New(sched, 30*time.Second, func(at time.Time) bool {
		sent = append(sent, at)
		return ok
	}, metrics, "test")
	return m, sched, &sent, metrics
}

func TestPingsEveryInterval(t *testing.T) {
	m, sched, sent, _ := newMonitor(true)
	m.Start()

	sched.Advance(29 * time.Second)
	assert.Empty(t, *sent)

	sched.Advance(time.Second)
	assert.Len(t, *sent, 1)

	sched.Advance(60 * time.Second)
	assert.Len(t, *sent, 3)
	assert.True(t, m.Outstanding())
}

func TestPongLatency(t *testing.T) {
	m, sched, _, metrics := newMonitor(true)
	m.Start()

	_, ok := m.Pong(sched.Now())
	assert.False(t, ok, "pong before any ping is ignored")

	sched.Advance(30 * time.Second)
	latency, ok := m.Pong(sched.Now().Add(45 * time.Millisecond))
	assert.True(t, ok)
	assert.Equal(t, 45*time.Millisecond, latency)
	assert.Equal(t, 45*time.Millisecond, m.LastLatency())
	assert.False(t, m.Outstanding())
	assert.Equal(t, uint64(1), metrics.Snapshot().PingLatency.Count)

	_, ok = m.Pong(sched.Now())
	assert.False(t, ok, "duplicate pong is ignored")
}

func TestStopCancelsPings(t *testing.T) {
	m, sched, sent, _ := newMonitor(true)
	m.Start()
	sched.Advance(30 * time.Second)
	m.Stop()
	m.Stop()

	sched.Advance(5 * time.Minute)
	assert.Len(t, *sent, 1)
	assert.False(t, m.Running())
	assert.Equal(t, 0, sched.Pending())
}

func TestRestartDoesNotDoubleSchedule(t *testing.T) {
	m, sched, sent, _ := newMonitor(true)
	m.Start()
	m.Start()
	m.Stop()
	m.Start()

	sched.Advance(30 * time.Second)
	assert.Len(t, *sent, 1)
}

func TestFailedPingIsNotOutstanding(t *testing.T) {
	m, sched, sent, _ := newMonitor(false)
	m.Start()
	sched.Advance(30 * time.Second)

	assert.Len(t, *sent, 1)
	assert.False(t, m.Outstanding())
	assert.True(t, m.Running())
}
