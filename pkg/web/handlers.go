package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/openttd/bananas-server/internal/logger"
	"github.com/openttd/bananas-server/pkg/catalog"
	"github.com/openttd/bananas-server/pkg/metrics"
)

// balancerBodyLimit caps a POST /bananas body. Requests are short lists
// of decimal ids; anything bigger is abuse.
const balancerBodyLimit = 1 << 20

// Application is the slice of the content application the HTTP surface
// talks to.
type Application interface {
	// Snapshot returns the live catalog snapshot.
	Snapshot() *catalog.Snapshot

	// Reload rebuilds the catalog from storage and swaps it in.
	Reload(ctx context.Context) error
}

// handlers carries the dependencies shared by the routes.
type handlers struct {
	config     Config
	app        Application
	pool       *CDNPool
	connServer ConnServer
	limiter    *rateLimiter
	metrics    metrics.WebMetrics
}

// balancer answers POST /bananas: newline-separated decimal content ids
// in, one CSV download descriptor per resolvable id out. One mirror is
// chosen for the whole response so a client's batch lands on one host.
func (h *handlers) balancer(w http.ResponseWriter, r *http.Request) {
	address := clientAddress(r)

	if h.limiter != nil && !h.limiter.Allow(address) {
		logger.Info("Balancer request throttled", "address", address)
		w.WriteHeader(http.StatusTooManyRequests)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, balancerBodyLimit))
	if err != nil {
		logger.Info("Balancer request body rejected", "address", address, "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	cdn := h.pool.Pick()
	if h.secureRequest(r) {
		cdn = strings.Replace(cdn, "http://", "https://", 1)
	}

	snapshot := h.app.Snapshot()

	var response strings.Builder
	for _, line := range strings.Split(strings.TrimSpace(string(body)), "\n") {
		line = strings.TrimSpace(line)

		id, err := strconv.ParseUint(line, 10, 32)
		if err != nil {
			logger.Info("Invalid content id requested", "id", line, "address", address)
			continue
		}

		entry, ok := snapshot.ByID(catalog.ContentID(id))
		if !ok {
			logger.Info("Unknown content id requested", "id", id, "address", address)
			continue
		}

		fmt.Fprintf(&response, "%d,%d,%d,%s/%s/%s/%s/%s.tar.gz\n",
			entry.ID,
			uint8(entry.Type),
			entry.Filesize,
			cdn,
			entry.Type.Folder(),
			entry.UniqueID.Hex(),
			entry.MD5Sum.Hex(),
			catalog.SafeFilename(entry),
		)
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, response.String())
}

// reload answers POST /reload. Every failure mode is a plain 404 so the
// endpoint is indistinguishable from a missing route to anyone without
// the secret.
func (h *handlers) reload(w http.ResponseWriter, r *http.Request) {
	if h.config.ReloadSecret == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	var payload struct {
		Secret string `json:"secret"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, balancerBodyLimit)).Decode(&payload); err != nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	if subtle.ConstantTimeCompare([]byte(payload.Secret), []byte(h.config.ReloadSecret)) != 1 {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	if err := h.app.Reload(r.Context()); err != nil {
		logger.Error("Reload request failed", "address", clientAddress(r), "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "OK\n")
}

func (h *handlers) notFound(w http.ResponseWriter, r *http.Request) {
	logger.Warn("Unexpected URL", "method", r.Method, "path", r.URL.Path, "address", clientAddress(r))
	w.WriteHeader(http.StatusNotFound)
}

// secureRequest reports whether the request arrived over https, either
// directly or via a proxy announcing it through X-Forwarded-Proto when
// that header is trusted by configuration.
func (h *handlers) secureRequest(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return h.config.TrustForwardedProto && r.Header.Get("X-Forwarded-Proto") == "https"
}

// clientAddress returns the client host without the port. Behind the
// RealIP middleware the remote address may already be a bare host.
func clientAddress(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
