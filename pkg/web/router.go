package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openttd/bananas-server/internal/logger"
	"github.com/openttd/bananas-server/pkg/metrics"
)

// NewRouter wires the HTTP surface: the CDN balancer, the reload control
// endpoint, health and metrics, and the websocket tunnel.
func NewRouter(config Config, application Application, pool *CDNPool, connServer ConnServer, webMetrics metrics.WebMetrics) http.Handler {
	h := &handlers{
		config:     config,
		app:        application,
		pool:       pool,
		connServer: connServer,
		metrics:    webMetrics,
	}
	if config.RateLimit.Enabled {
		h.limiter = newRateLimiter(config.RateLimit.RPS, config.RateLimit.Burst)
	}

	r := chi.NewRouter()

	// Middleware stack - order matters. No request timeout: the tunnel
	// route holds its connection open for as long as the client stays.
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Post("/bananas", h.balancer)
	r.Post("/reload", h.reload)
	r.Get("/healthz", h.healthz)
	r.Get("/metrics", metricsHandler())
	r.Get("/", h.tunnel)

	r.NotFound(h.notFound)
	r.MethodNotAllowed(h.notFound)

	return r
}

// metricsHandler serves the process registry, or 404 when metrics are
// disabled.
func metricsHandler() http.HandlerFunc {
	registry := metrics.GetRegistry()
	if registry == nil {
		return func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}
	}

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return handler.ServeHTTP
}

// requestLogger logs only requests that failed: status outside 2xx/3xx.
// A zero status means the connection was hijacked (websocket tunnel) and
// no HTTP response applies.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 || (status >= 200 && status < 400) {
			return
		}

		logger.Info("HTTP request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"address", clientAddress(r),
			"duration_ms", logger.Duration(start),
		)
	})
}
