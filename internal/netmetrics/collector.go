// Package netmetrics exposes a running tcp.Connection's observable
// accessors as Prometheus gauges. It is a pure in-process observer: it
// never touches a socket or a wire, only the accessor methods the
// connection already offers.
package netmetrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/YukunJ/Sponge-TCP-Protocol/tcp"
)

// watched is one registered connection along with the label values it
// reports under.
type watched struct {
	conn   *tcp.Connection
	labels []string
}

// metric pairs a gauge's description with the accessor that supplies its
// current value, the same {description, supplier} shape
// runZeroInc-sockstats/pkg/exporter/exporter.go uses for its TCPInfo
// gauges, applied here to tcp.Connection's accessors instead of a
// getsockopt(TCP_INFO) syscall result.
type metric struct {
	desc     *prometheus.Desc
	supplier func(c *tcp.Connection) float64
}

// Collector is a prometheus.Collector that reports every registered
// connection's bytes-in-flight, unassembled-bytes, remaining outbound
// capacity, consecutive retransmissions, and liveness as gauges labeled
// by connection id.
type Collector struct {
	mu    sync.Mutex
	conns map[string]watched

	metrics []metric
}

// NewCollector builds a Collector. extraLabelNames are appended after the
// fixed "id" label, mirroring
// runZeroInc-sockstats/pkg/exporter/exporter.go's connectionLabels
// parameter (e.g. a caller might add "remote_host").
func NewCollector(namespace string, extraLabelNames []string, constLabels prometheus.Labels) *Collector {
	labelNames := append([]string{"id"}, extraLabelNames...)

	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", name),
			help,
			labelNames,
			constLabels,
		)
	}

	c := &Collector{
		conns: make(map[string]watched),
		metrics: []metric{
			{
				desc:     desc("bytes_in_flight", "Sequence-space bytes sent but not yet acknowledged."),
				supplier: func(c *tcp.Connection) float64 { return float64(c.BytesInFlight()) },
			},
			{
				desc:     desc("unassembled_bytes", "Bytes held by the reassembler that are not yet contiguous."),
				supplier: func(c *tcp.Connection) float64 { return float64(c.UnassembledBytes()) },
			},
			{
				desc:     desc("remaining_outbound_capacity", "Bytes the outgoing stream would currently accept."),
				supplier: func(c *tcp.Connection) float64 { return float64(c.RemainingOutboundCapacity()) },
			},
			{
				desc:     desc("consecutive_retransmissions", "Current back-off count since the last ack that advanced coverage."),
				supplier: func(c *tcp.Connection) float64 { return float64(c.ConsecutiveRetransmissions()) },
			},
			{
				desc:     desc("time_since_last_segment_received_ms", "Milliseconds elapsed since the last inbound segment."),
				supplier: func(c *tcp.Connection) float64 { return float64(c.TimeSinceLastSegmentReceived()) },
			},
			{
				desc:     desc("active", "1 if the connection is still live, 0 once it has shut down."),
				supplier: func(c *tcp.Connection) float64 {
					if c.Active() {
						return 1
					}
					return 0
				},
			},
		},
	}
	return c
}

// Add registers a connection for reporting, labeled by its own id plus
// any extra label values the caller supplies (must line up positionally
// with extraLabelNames passed to NewCollector).
func (c *Collector) Add(conn *tcp.Connection, extraLabelValues ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conns[conn.ID()] = watched{conn: conn, labels: extraLabelValues}
}

// Remove stops reporting a connection.
func (c *Collector) Remove(conn *tcp.Connection) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.conns, conn.ID())
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(descs chan<- *prometheus.Desc) {
	for _, m := range c.metrics {
		descs <- m.desc
	}
}

// Collect implements prometheus.Collector. A connection that has gone
// inactive is reported one last time (so scrapers observe the final
// active=0 transition) and then dropped.
func (c *Collector) Collect(out chan<- prometheus.Metric) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id, w := range c.conns {
		labelValues := append([]string{id}, w.labels...)
		for _, m := range c.metrics {
			out <- prometheus.MustNewConstMetric(m.desc, prometheus.GaugeValue, m.supplier(w.conn), labelValues...)
		}
		if !w.conn.Active() {
			delete(c.conns, id)
		}
	}
}
