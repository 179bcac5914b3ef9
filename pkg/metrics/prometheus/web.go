package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/openttd/bananas-server/pkg/metrics"
)

// webMetrics is the Prometheus implementation of metrics.WebMetrics.
type webMetrics struct {
	healthyCDNs   prometheus.Gauge
	cdnProbes     *prometheus.CounterVec
	tunnelsActive prometheus.Gauge
	tunnelsTotal  prometheus.Counter
}

// NewWebMetrics creates a new Prometheus-backed WebMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewWebMetrics() metrics.WebMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &webMetrics{
		healthyCDNs: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "bananas_web_cdn_healthy",
				Help: "Number of CDN mirrors that passed the last health check round",
			},
		),
		cdnProbes: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "bananas_web_cdn_probes_total",
				Help: "Total number of CDN health probes by outcome",
			},
			[]string{"status"},
		),
		tunnelsActive: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "bananas_web_tunnels_active",
				Help: "Current number of attached websocket tunnels",
			},
		),
		tunnelsTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "bananas_web_tunnels_total",
				Help: "Total number of websocket tunnels accepted",
			},
		),
	}
}

func (m *webMetrics) SetHealthyCDNs(count int) {
	if m == nil {
		return
	}
	m.healthyCDNs.Set(float64(count))
}

func (m *webMetrics) RecordCDNProbe(healthy bool) {
	if m == nil {
		return
	}

	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}
	m.cdnProbes.WithLabelValues(status).Inc()
}

func (m *webMetrics) RecordTunnelOpened() {
	if m == nil {
		return
	}
	m.tunnelsActive.Inc()
	m.tunnelsTotal.Inc()
}

func (m *webMetrics) RecordTunnelClosed() {
	if m == nil {
		return
	}
	m.tunnelsActive.Dec()
}
