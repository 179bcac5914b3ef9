package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/openttd/bananas-server/pkg/metrics"
)

// catalogMetrics is the Prometheus implementation of metrics.CatalogMetrics.
type catalogMetrics struct {
	reloadsTotal   *prometheus.CounterVec
	reloadDuration prometheus.Histogram
	entries        *prometheus.GaugeVec
}

// NewCatalogMetrics creates a new Prometheus-backed CatalogMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewCatalogMetrics() metrics.CatalogMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &catalogMetrics{
		reloadsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "bananas_catalog_reloads_total",
				Help: "Total number of catalog reloads by outcome",
			},
			[]string{"status"},
		),
		reloadDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name: "bananas_catalog_reload_duration_milliseconds",
				Help: "Duration of catalog reloads in milliseconds",
				Buckets: []float64{
					100,    // 100ms - tiny test catalogs
					1000,   // 1s
					5000,   // 5s
					15000,  // 15s
					30000,  // 30s - full production catalog
					60000,  // 1m
					300000, // 5m - cold storage listing
				},
			},
		),
		entries: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bananas_catalog_entries",
				Help: "Entries in the live snapshot by content type and state",
			},
			[]string{"content_type", "state"},
		),
	}
}

func (m *catalogMetrics) RecordReload(duration time.Duration, err error) {
	if m == nil {
		return
	}

	status := "success"
	if err != nil {
		status = "error"
	}

	m.reloadsTotal.WithLabelValues(status).Inc()
	m.reloadDuration.Observe(duration.Seconds() * 1000)
}

func (m *catalogMetrics) SetEntries(contentType string, active, archived int) {
	if m == nil {
		return
	}
	m.entries.WithLabelValues(contentType, "active").Set(float64(active))
	m.entries.WithLabelValues(contentType, "archived").Set(float64(archived))
}
