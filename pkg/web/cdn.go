package web

import (
	"fmt"
	"math/rand/v2"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/openttd/bananas-server/internal/logger"
	"github.com/openttd/bananas-server/pkg/metrics"
)

const (
	// cdnProbeInterval is how often every mirror's /healthz is checked.
	cdnProbeInterval = 30 * time.Second

	// cdnProbeTimeout bounds a single health check request.
	cdnProbeTimeout = 10 * time.Second
)

// CDNConfig configures the download mirrors handed out by POST /bananas.
type CDNConfig struct {
	// URLs are the mirror base URLs. Each must expose /healthz.
	URLs []string

	// FallbackURL is handed out when no mirror is healthy.
	FallbackURL string
}

// CDNPool hands out mirror base URLs for out-of-band downloads.
//
// Mirrors start out unhealthy; the scheduled probe fills the healthy set.
// Pick returns a random healthy mirror and falls back to the configured
// fallback URL while the set is empty.
type CDNPool struct {
	probeURLs []string
	fallback  string

	healthy atomic.Pointer[[]string]

	client    *http.Client
	scheduler gocron.Scheduler
	metrics   metrics.WebMetrics
}

// NewCDNPool validates the mirror configuration and builds the pool.
//
// A single URL with no explicit fallback becomes the fallback itself and
// disables health checks, so one-mirror deployments need no extra
// configuration. Several URLs require an explicit fallback.
func NewCDNPool(config CDNConfig, webMetrics metrics.WebMetrics) (*CDNPool, error) {
	urls := dedupeURLs(config.URLs)

	pool := &CDNPool{
		client:  &http.Client{Timeout: cdnProbeTimeout},
		metrics: webMetrics,
	}
	empty := make([]string, 0)
	pool.healthy.Store(&empty)

	switch {
	case len(urls) == 1 && config.FallbackURL == "":
		pool.fallback = urls[0]
	case config.FallbackURL == "":
		return nil, fmt.Errorf("cdn fallback_url is required unless exactly one cdn url is configured")
	default:
		pool.fallback = config.FallbackURL
		pool.probeURLs = urls
	}

	return pool, nil
}

// Start begins the probe schedule. Pools without probe URLs have nothing
// to check and stay on the fallback.
func (p *CDNPool) Start() error {
	if len(p.probeURLs) == 0 {
		logger.Info("CDN health checks disabled", "fallback", p.fallback)
		return nil
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("creating probe scheduler: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(cdnProbeInterval),
		gocron.NewTask(p.probe),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("scheduling probes: %w", err)
	}

	p.scheduler = scheduler
	scheduler.Start()

	logger.Info("CDN health checks enabled", "mirrors", p.probeURLs)
	return nil
}

// Stop halts the probe schedule.
func (p *CDNPool) Stop() error {
	if p.scheduler == nil {
		return nil
	}
	return p.scheduler.Shutdown()
}

// Pick returns the mirror to use for one balancer response.
func (p *CDNPool) Pick() string {
	healthy := *p.healthy.Load()
	if len(healthy) == 0 {
		return p.fallback
	}
	return healthy[rand.IntN(len(healthy))]
}

// probe checks every mirror and swaps in the new healthy set.
func (p *CDNPool) probe() {
	active := make([]string, 0, len(p.probeURLs))

	for _, url := range p.probeURLs {
		ok := p.probeOne(url)
		if p.metrics != nil {
			p.metrics.RecordCDNProbe(ok)
		}
		if ok {
			active = append(active, url)
		}
	}

	p.healthy.Store(&active)
	if p.metrics != nil {
		p.metrics.SetHealthyCDNs(len(active))
	}
}

func (p *CDNPool) probeOne(url string) bool {
	resp, err := p.client.Get(url + "/healthz")
	if err != nil {
		logger.Error("CDN server offline", "url", url, "error", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.Error("CDN server failed health check", "url", url, "status", resp.StatusCode)
		return false
	}
	return true
}

func dedupeURLs(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, url := range urls {
		if _, ok := seen[url]; ok {
			continue
		}
		seen[url] = struct{}{}
		out = append(out, url)
	}
	return out
}
