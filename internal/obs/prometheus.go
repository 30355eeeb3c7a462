package obs

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "gatewatch"

type collector struct {
	m *Metrics

	frames          *prometheus.Desc
	decodeErrors    *prometheus.Desc
	filtered        *prometheus.Desc
	dispatched      *prometheus.Desc
	handlerPanics   *prometheus.Desc
	framesSent      *prometheus.Desc
	sendFailures    *prometheus.Desc
	reconnects      *prometheus.Desc
	reconnectFailed *prometheus.Desc
	connects        *prometheus.Desc
	connected       *prometheus.Desc
	pingLatency     *prometheus.Desc
}

// NewCollector exposes m as Prometheus metrics labelled with the client's
// channel.
func NewCollector(m *Metrics, channel string) prometheus.Collector {
	labels := prometheus.Labels{"channel": channel}
	desc := func(name, help string, variable ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "client", name), help, variable, labels)
	}
	return &collector{
		m:               m,
		frames:          desc("frames_received_total", "Inbound frames read from the hub."),
		decodeErrors:    desc("decode_errors_total", "Inbound frames dropped as malformed."),
		filtered:        desc("filtered_total", "Inbound messages suppressed by the channel filter."),
		dispatched:      desc("dispatched_total", "Inbound messages delivered to subscribers.", "kind"),
		handlerPanics:   desc("handler_panics_total", "Subscriber panics recovered by the bus."),
		framesSent:      desc("frames_sent_total", "Outbound frames written."),
		sendFailures:    desc("send_failures_total", "Outbound frames rejected or failed."),
		reconnects:      desc("reconnects_total", "Reconnect attempts scheduled."),
		reconnectFailed: desc("reconnect_failed_total", "Times the client gave up reconnecting."),
		connects:        desc("connects_total", "Successful connection opens."),
		connected:       desc("connected", "Whether the connection is open."),
		pingLatency:     desc("ping_latency_seconds", "Ping round trip latency."),
	}
}

func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.frames
	ch <- c.decodeErrors
	ch <- c.filtered
	ch <- c.dispatched
	ch <- c.handlerPanics
	ch <- c.framesSent
	ch <- c.sendFailures
	ch <- c.reconnects
	ch <- c.reconnectFailed
	ch <- c.connects
	ch <- c.connected
	ch <- c.pingLatency
}

func (c *collector) Collect(ch chan<- prometheus.Metric) {
	s := c.m.Snapshot()
	counter := func(d *prometheus.Desc, v uint64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), labels...)
	}

	counter(c.frames, s.FramesReceived)
	counter(c.decodeErrors, s.DecodeErrors)
	counter(c.filtered, s.Filtered)
	for kind, n := range s.Dispatched {
		counter(c.dispatched, n, kind.String())
	}
	counter(c.handlerPanics, s.HandlerPanics)
	counter(c.framesSent, s.FramesSent)
	counter(c.sendFailures, s.SendFailures)
	counter(c.reconnects, s.Reconnects)
	counter(c.reconnectFailed, s.ReconnectFailed)
	counter(c.connects, s.Connects)

	connected := 0.0
	if s.Connected {
		connected = 1
	}
	ch <- prometheus.MustNewConstMetric(c.connected, prometheus.GaugeValue, connected)

	ch <- prometheus.MustNewConstSummary(c.pingLatency,
		s.PingLatency.Count,
		s.PingLatency.Sum.Seconds(),
		nil,
	)
}

// Register adds the collector for m to reg.
func Register(reg prometheus.Registerer, m *Metrics, channel string) error {
	return reg.Register(NewCollector(m, channel))
}
