package obs

import (
	"sync/atomic"
	"time"

	"gatewatch/internal/schema"
)

const kindSlots = 64

// Metrics collects lightweight counters and latency stats for one client.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	dispatched [kindSlots]uint64

	framesReceived  uint64
	decodeErrors    uint64
	filtered        uint64
	handlerPanics   uint64
	sendFailures    uint64
	framesSent      uint64
	reconnects      uint64
	reconnectFailed uint64
	connects        uint64
	connected       int32

	pingLatency LatencyStats
	lastLatency int64
}

// LatencyStats aggregates duration samples in nanoseconds.
type LatencyStats struct {
	count uint64
	sum   uint64
	min   uint64
	max   uint64
}

// LatencySnapshot is a point-in-time view of latency stats.
type LatencySnapshot struct {
	Count uint64
	Sum   time.Duration
	Min   time.Duration
	Max   time.Duration
	Avg   time.Duration
}

// Snapshot captures the current metrics values.
type Snapshot struct {
	Dispatched      map[schema.Kind]uint64
	FramesReceived  uint64
	DecodeErrors    uint64
	Filtered        uint64
	HandlerPanics   uint64
	SendFailures    uint64
	FramesSent      uint64
	Reconnects      uint64
	ReconnectFailed uint64
	Connects        uint64
	Connected       bool
	PingLatency     LatencySnapshot
	LastLatency     time.Duration
}

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// IncFrame records one inbound frame before decoding.
func (m *Metrics) IncFrame() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.framesReceived, 1)
}

// IncDecodeError records a dropped malformed frame.
func (m *Metrics) IncDecodeError() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.decodeErrors, 1)
}

// IncFiltered records a frame suppressed by the channel filter.
func (m *Metrics) IncFiltered() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.filtered, 1)
}

// ObserveDispatch counts a message delivered to subscribers of kind.
func (m *Metrics) ObserveDispatch(kind schema.Kind) {
	if m == nil {
		return
	}
	idx := int(kind)
	if idx >= 0 && idx < len(m.dispatched) {
		atomic.AddUint64(&m.dispatched[idx], 1)
	}
}

// IncHandlerPanic records a recovered subscriber panic.
func (m *Metrics) IncHandlerPanic() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.handlerPanics, 1)
}

// IncSend records an outbound frame and whether it was written.
func (m *Metrics) IncSend(ok bool) {
	if m == nil {
		return
	}
	if ok {
		atomic.AddUint64(&m.framesSent, 1)
		return
	}
	atomic.AddUint64(&m.sendFailures, 1)
}

// IncReconnect records a scheduled reconnect.
func (m *Metrics) IncReconnect() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.reconnects, 1)
}

// IncReconnectFailed records giving up after the attempt ceiling.
func (m *Metrics) IncReconnectFailed() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.reconnectFailed, 1)
}

// SetConnected tracks whether the transport is open.
func (m *Metrics) SetConnected(open bool) {
	if m == nil {
		return
	}
	if open {
		atomic.AddUint64(&m.connects, 1)
		atomic.StoreInt32(&m.connected, 1)
		return
	}
	atomic.StoreInt32(&m.connected, 0)
}

// ObservePingLatency records one ping round trip.
func (m *Metrics) ObservePingLatency(d time.Duration) {
	if m == nil || d < 0 {
		return
	}
	m.pingLatency.Observe(d)
	atomic.StoreInt64(&m.lastLatency, int64(d))
}

// Snapshot returns a copy of the current metrics values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	dispatched := make(map[schema.Kind]uint64)
	for i := range m.dispatched {
		if v := atomic.LoadUint64(&m.dispatched[i]); v > 0 {
			dispatched[schema.Kind(i)] = v
		}
	}
	return Snapshot{
		Dispatched:      dispatched,
		FramesReceived:  atomic.LoadUint64(&m.framesReceived),
		DecodeErrors:    atomic.LoadUint64(&m.decodeErrors),
		Filtered:        atomic.LoadUint64(&m.filtered),
		HandlerPanics:   atomic.LoadUint64(&m.handlerPanics),
		SendFailures:    atomic.LoadUint64(&m.sendFailures),
		FramesSent:      atomic.LoadUint64(&m.framesSent),
		Reconnects:      atomic.LoadUint64(&m.reconnects),
		ReconnectFailed: atomic.LoadUint64(&m.reconnectFailed),
		Connects:        atomic.LoadUint64(&m.connects),
		Connected:       atomic.LoadInt32(&m.connected) == 1,
		PingLatency:     m.pingLatency.Snapshot(),
		LastLatency:     time.Duration(atomic.LoadInt64(&m.lastLatency)),
	}
}

// Observe records a duration sample.
func (l *LatencyStats) Observe(d time.Duration) {
	if d < 0 {
		return
	}
	nanos := uint64(d)
	atomic.AddUint64(&l.count, 1)
	atomic.AddUint64(&l.sum, nanos)

	for {
		cur := atomic.LoadUint64(&l.min)
		if cur != 0 && nanos >= cur {
			break
		}
		if atomic.CompareAndSwapUint64(&l.min, cur, nanos) {
			break
		}
	}

	for {
		cur := atomic.LoadUint64(&l.max)
		if nanos <= cur {
			break
		}
		if atomic.CompareAndSwapUint64(&l.max, cur, nanos) {
			break
		}
	}
}

// Snapshot returns the aggregated latency stats.
func (l *LatencyStats) Snapshot() LatencySnapshot {
	count := atomic.LoadUint64(&l.count)
	if count == 0 {
		return LatencySnapshot{}
	}
	sum := atomic.LoadUint64(&l.sum)
	return LatencySnapshot{
		Count: count,
		Sum:   time.Duration(sum),
		Min:   time.Duration(atomic.LoadUint64(&l.min)),
		Max:   time.Duration(atomic.LoadUint64(&l.max)),
		Avg:   time.Duration(sum / count),
	}
}
