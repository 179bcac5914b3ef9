// Package prometheus contains the Prometheus-backed implementations of
// the recorder interfaces defined in pkg/metrics.
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/openttd/bananas-server/pkg/metrics"
)

// contentMetrics is the Prometheus implementation of metrics.ContentMetrics.
type contentMetrics struct {
	connectionsAccepted    prometheus.Counter
	connectionsClosed      prometheus.Counter
	connectionsForceClosed prometheus.Counter
	activeConnections      prometheus.Gauge
	packetsTotal           *prometheus.CounterVec
	packetsInvalid         *prometheus.CounterVec
	downloadsTotal         *prometheus.CounterVec
	downloadBytes          *prometheus.CounterVec
	clientsTotal           *prometheus.CounterVec
}

// NewContentMetrics creates a new Prometheus-backed ContentMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewContentMetrics() metrics.ContentMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &contentMetrics{
		connectionsAccepted: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "bananas_content_connections_accepted_total",
				Help: "Total number of accepted content client connections",
			},
		),
		connectionsClosed: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "bananas_content_connections_closed_total",
				Help: "Total number of closed content client connections",
			},
		),
		connectionsForceClosed: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "bananas_content_connections_force_closed_total",
				Help: "Total number of connections force-closed after the shutdown timeout",
			},
		),
		activeConnections: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "bananas_content_connections_active",
				Help: "Current number of active content client connections",
			},
		),
		packetsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "bananas_content_packets_total",
				Help: "Total number of decoded client packets by packet type",
			},
			[]string{"type"},
		),
		packetsInvalid: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "bananas_content_packets_invalid_total",
				Help: "Total number of dropped packets by failure class",
			},
			[]string{"reason"},
		),
		downloadsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "bananas_content_downloads_total",
				Help: "Total number of completed content transfers by content type",
			},
			[]string{"content_type"},
		),
		downloadBytes: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "bananas_content_download_bytes_total",
				Help: "Total archive bytes sent to clients by content type",
			},
			[]string{"content_type"},
		),
		clientsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "bananas_content_clients_total",
				Help: "Distinct clients seen by announced game version",
			},
			[]string{"version"},
		),
	}
}

func (m *contentMetrics) RecordConnectionAccepted() {
	if m == nil {
		return
	}
	m.connectionsAccepted.Inc()
}

func (m *contentMetrics) RecordConnectionClosed() {
	if m == nil {
		return
	}
	m.connectionsClosed.Inc()
}

func (m *contentMetrics) RecordConnectionForceClosed() {
	if m == nil {
		return
	}
	m.connectionsForceClosed.Inc()
}

func (m *contentMetrics) SetActiveConnections(count int32) {
	if m == nil {
		return
	}
	m.activeConnections.Set(float64(count))
}

func (m *contentMetrics) RecordPacket(packetType string) {
	if m == nil {
		return
	}
	m.packetsTotal.WithLabelValues(packetType).Inc()
}

func (m *contentMetrics) RecordInvalidPacket(reason string) {
	if m == nil {
		return
	}
	m.packetsInvalid.WithLabelValues(reason).Inc()
}

func (m *contentMetrics) RecordDownload(contentType string, bytes uint64) {
	if m == nil {
		return
	}
	m.downloadsTotal.WithLabelValues(contentType).Inc()
	m.downloadBytes.WithLabelValues(contentType).Add(float64(bytes))
}

func (m *contentMetrics) RecordClientVersion(version string) {
	if m == nil {
		return
	}
	m.clientsTotal.WithLabelValues(version).Inc()
}
