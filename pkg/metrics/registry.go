// Package metrics defines the observability interfaces used across the
// server and owns the process-wide Prometheus registry.
//
// All interfaces in this package are optional: pass nil to disable
// collection with zero overhead. The Prometheus-backed implementations
// live in pkg/metrics/prometheus and return nil when the registry has
// not been initialized, so callers never need to branch on whether
// metrics are enabled.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	registryMu sync.RWMutex
	registry   *prometheus.Registry
)

// InitRegistry creates the process-wide Prometheus registry and registers
// the standard Go runtime and process collectors. It is idempotent;
// subsequent calls keep the existing registry.
//
// Call this once at startup, before constructing any metric recorders.
// If it is never called, IsEnabled returns false and all recorder
// constructors return nil.
func InitRegistry() {
	registryMu.Lock()
	defer registryMu.Unlock()

	if registry != nil {
		return
	}

	registry = prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return registry != nil
}

// GetRegistry returns the process-wide registry, or nil when metrics are
// disabled. The /metrics endpoint serves this registry.
func GetRegistry() *prometheus.Registry {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return registry
}
