// Package metrics exposes client counters as Prometheus collectors and as
// a plain snapshot.
package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Kirky-X/xlink/internal/domain/device"
)

const namespace = "xlink"

// Metrics owns one registry per client so several clients in a process do
// not collide.
type Metrics struct {
	registry *prometheus.Registry
	start    time.Time

	sent          *prometheus.CounterVec
	received      prometheus.Counter
	bytesSent     prometheus.Counter
	bytesReceived prometheus.Counter
	failures      *prometheus.CounterVec
	dropped       prometheus.Counter
	fanout        prometheus.Histogram
	rtt           prometheus.Histogram
	pending       prometheus.Gauge

	nSent, nReceived, nBytesSent, nBytesReceived atomic.Uint64
	nFailed, nDropped, nBroadcasts               atomic.Uint64
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		start:    time.Now(),
		sent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Messages handed to a transport, by channel.",
		}, []string{"channel"}),
		received: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Messages delivered to the application.",
		}),
		bytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_sent_total",
			Help:      "Payload bytes sent.",
		}),
		bytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_received_total",
			Help:      "Payload bytes received.",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_failures_total",
			Help:      "Failed sends, by reason.",
		}, []string{"reason"}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inbound_dropped_total",
			Help:      "Inbound messages dropped (rate limited, duplicate or queue full).",
		}),
		fanout: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "broadcast_recipients",
			Help:      "Recipients per group broadcast.",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250},
		}),
		rtt: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "heartbeat_rtt_seconds",
			Help:      "Heartbeat round trip times.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_messages",
			Help:      "Messages waiting for redelivery in the last batch.",
		}),
	}

	m.registry.MustRegister(
		m.sent, m.received, m.bytesSent, m.bytesReceived,
		m.failures, m.dropped, m.fanout, m.rtt, m.pending,
		collectors.NewGoCollector(),
	)
	return m
}

// Registry returns the registry the collectors live in.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the Prometheus text exposition.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) MessageSent(ch device.ChannelType, bytes int) {
	m.sent.WithLabelValues(string(ch)).Inc()
	m.bytesSent.Add(float64(bytes))
	m.nSent.Add(1)
	m.nBytesSent.Add(uint64(bytes))
}

func (m *Metrics) MessageReceived(bytes int) {
	m.received.Inc()
	m.bytesReceived.Add(float64(bytes))
	m.nReceived.Add(1)
	m.nBytesReceived.Add(uint64(bytes))
}

// SendFailed counts a failure under a short machine readable reason.
func (m *Metrics) SendFailed(reason string) {
	m.failures.WithLabelValues(reason).Inc()
	m.nFailed.Add(1)
}

func (m *Metrics) InboundDropped() {
	m.dropped.Inc()
	m.nDropped.Add(1)
}

func (m *Metrics) Broadcast(recipients int) {
	m.fanout.Observe(float64(recipients))
	m.nBroadcasts.Add(1)
}

func (m *Metrics) HeartbeatRTT(d time.Duration) {
	m.rtt.Observe(d.Seconds())
}

func (m *Metrics) Pending(n int) {
	m.pending.Set(float64(n))
}

// Report is a point-in-time view of the counters.
type Report struct {
	Uptime           time.Duration `json:"uptime"`
	MessagesSent     uint64        `json:"messagesSent"`
	MessagesReceived uint64        `json:"messagesReceived"`
	BytesSent        uint64        `json:"bytesSent"`
	BytesReceived    uint64        `json:"bytesReceived"`
	SendFailures     uint64        `json:"sendFailures"`
	InboundDropped   uint64        `json:"inboundDropped"`
	Broadcasts       uint64        `json:"broadcasts"`
}

func (m *Metrics) Report() Report {
	return Report{
		Uptime:           time.Since(m.start),
		MessagesSent:     m.nSent.Load(),
		MessagesReceived: m.nReceived.Load(),
		BytesSent:        m.nBytesSent.Load(),
		BytesReceived:    m.nBytesReceived.Load(),
		SendFailures:     m.nFailed.Load(),
		InboundDropped:   m.nDropped.Load(),
		Broadcasts:       m.nBroadcasts.Load(),
	}
}
