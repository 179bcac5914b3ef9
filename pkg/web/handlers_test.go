package web

import (
	"context"
	"crypto/tls"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openttd/bananas-server/pkg/catalog"
	"github.com/openttd/bananas-server/pkg/metrics"
)

// fakeApp implements Application over a fixed snapshot.
type fakeApp struct {
	snapshot *catalog.Snapshot

	mu        sync.Mutex
	reloads   int
	reloadErr error
}

func (a *fakeApp) Snapshot() *catalog.Snapshot { return a.snapshot }

func (a *fakeApp) Reload(context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reloads++
	return a.reloadErr
}

func (a *fakeApp) reloadCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.reloads
}

// captureWebMetrics records WebMetrics calls for assertions.
type captureWebMetrics struct {
	mu       sync.Mutex
	healthy  []int
	probes   []bool
	opened   int
	closed   int
}

var _ metrics.WebMetrics = (*captureWebMetrics)(nil)

func (m *captureWebMetrics) SetHealthyCDNs(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.healthy = append(m.healthy, count)
}

func (m *captureWebMetrics) RecordCDNProbe(healthy bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.probes = append(m.probes, healthy)
}

func (m *captureWebMetrics) RecordTunnelOpened() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opened++
}

func (m *captureWebMetrics) RecordTunnelClosed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed++
}

func (m *captureWebMetrics) tunnels() (opened, closed int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opened, m.closed
}

// testEntry is a NewGRF whose content id comes out as 11259375
// (md5sum tail ef cd ab -> base 0xABCDEF, sole entry on that base).
func testEntry(t *testing.T) *catalog.Entry {
	t.Helper()

	raw, err := hex.DecodeString("deadbeef")
	require.NoError(t, err)
	var uid catalog.UniqueID
	copy(uid[:], raw)

	var sum catalog.MD5Sum
	copy(sum[:], "grfexample")
	sum[13] = 0xEF
	sum[14] = 0xCD
	sum[15] = 0xAB

	return &catalog.Entry{
		Type:       catalog.ContentTypeNewGRF,
		Filesize:   1024,
		Name:       "Example NewGRF",
		Version:    "1.0",
		UniqueID:   uid,
		MD5Sum:     sum,
		UploadDate: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func newFakeApp(t *testing.T, entries ...*catalog.Entry) *fakeApp {
	t.Helper()

	snapshot, err := catalog.NewSnapshot(entries)
	require.NoError(t, err)
	return &fakeApp{snapshot: snapshot}
}

func fallbackPool(t *testing.T, url string) *CDNPool {
	t.Helper()

	pool, err := NewCDNPool(CDNConfig{FallbackURL: url}, nil)
	require.NoError(t, err)
	return pool
}

func TestHealthz(t *testing.T) {
	router := NewRouter(Config{}, newFakeApp(t), fallbackPool(t, "http://cdn.example"), nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK\n", rec.Body.String())
}

func TestBalancer(t *testing.T) {
	app := newFakeApp(t, testEntry(t))
	router := NewRouter(Config{}, app, fallbackPool(t, "http://cdn.example"), nil, nil)

	t.Run("resolves known ids and skips the rest", func(t *testing.T) {
		body := "11259375\n999999999\nnot-a-number\n"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/bananas", strings.NewReader(body)))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t,
			"11259375,2,1024,http://cdn.example/newgrf/deadbeef/"+
				"6772666578616d706c65000000efcdab/deadbeef-Example_NewGRF-1.0.tar.gz\n",
			rec.Body.String())
	})

	t.Run("empty body yields empty response", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/bananas", strings.NewReader("")))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Body.String())
	})

	t.Run("one mirror serves the whole batch", func(t *testing.T) {
		pool, err := NewCDNPool(CDNConfig{
			URLs:        []string{"http://a.example", "http://b.example"},
			FallbackURL: "http://fb.example",
		}, nil)
		require.NoError(t, err)
		healthy := []string{"http://a.example", "http://b.example"}
		pool.healthy.Store(&healthy)

		router := NewRouter(Config{}, app, pool, nil, nil)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/bananas", strings.NewReader("11259375\n11259375")))

		require.Equal(t, http.StatusOK, rec.Code)
		lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
		require.Len(t, lines, 2)
		assert.Equal(t, lines[0], lines[1])

		url := strings.SplitN(lines[0], ",", 4)[3]
		assert.True(t,
			strings.HasPrefix(url, "http://a.example/") || strings.HasPrefix(url, "http://b.example/"),
			"unexpected mirror in %q", url)
	})
}

func TestBalancerHTTPSRewrite(t *testing.T) {
	app := newFakeApp(t, testEntry(t))

	request := func() *http.Request {
		return httptest.NewRequest(http.MethodPost, "/bananas", strings.NewReader("11259375"))
	}

	t.Run("trusted forwarded proto rewrites the mirror", func(t *testing.T) {
		router := NewRouter(Config{TrustForwardedProto: true}, app, fallbackPool(t, "http://cdn.example"), nil, nil)

		req := request()
		req.Header.Set("X-Forwarded-Proto", "https")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Contains(t, rec.Body.String(), ",https://cdn.example/")
	})

	t.Run("untrusted forwarded proto is ignored", func(t *testing.T) {
		router := NewRouter(Config{}, app, fallbackPool(t, "http://cdn.example"), nil, nil)

		req := request()
		req.Header.Set("X-Forwarded-Proto", "https")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Contains(t, rec.Body.String(), ",http://cdn.example/")
	})

	t.Run("direct tls rewrites the mirror", func(t *testing.T) {
		router := NewRouter(Config{}, app, fallbackPool(t, "http://cdn.example"), nil, nil)

		req := request()
		req.TLS = &tls.ConnectionState{}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Contains(t, rec.Body.String(), ",https://cdn.example/")
	})
}

func TestBalancerRateLimit(t *testing.T) {
	app := newFakeApp(t, testEntry(t))
	config := Config{RateLimit: RateLimitConfig{Enabled: true, RPS: 0.001, Burst: 2}}
	router := NewRouter(config, app, fallbackPool(t, "http://cdn.example"), nil, nil)

	post := func(address string) int {
		req := httptest.NewRequest(http.MethodPost, "/bananas", strings.NewReader("11259375"))
		req.RemoteAddr = address
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, post("203.0.113.1:1000"))
	assert.Equal(t, http.StatusOK, post("203.0.113.1:1001"))
	assert.Equal(t, http.StatusTooManyRequests, post("203.0.113.1:1002"))

	// The port is not part of the client identity, but the host is.
	assert.Equal(t, http.StatusOK, post("203.0.113.2:1000"))
}

func TestReloadEndpoint(t *testing.T) {
	t.Run("no secret configured answers 404", func(t *testing.T) {
		app := newFakeApp(t)
		router := NewRouter(Config{}, app, fallbackPool(t, "http://cdn.example"), nil, nil)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reload", strings.NewReader(`{"secret":"hunter2"}`)))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Zero(t, app.reloadCount())
	})

	t.Run("wrong secret answers 404", func(t *testing.T) {
		app := newFakeApp(t)
		router := NewRouter(Config{ReloadSecret: "hunter2"}, app, fallbackPool(t, "http://cdn.example"), nil, nil)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reload", strings.NewReader(`{"secret":"wrong"}`)))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Zero(t, app.reloadCount())
	})

	t.Run("malformed body answers 404", func(t *testing.T) {
		app := newFakeApp(t)
		router := NewRouter(Config{ReloadSecret: "hunter2"}, app, fallbackPool(t, "http://cdn.example"), nil, nil)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reload", strings.NewReader("not json")))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Zero(t, app.reloadCount())
	})

	t.Run("matching secret reloads and answers 204", func(t *testing.T) {
		app := newFakeApp(t)
		router := NewRouter(Config{ReloadSecret: "hunter2"}, app, fallbackPool(t, "http://cdn.example"), nil, nil)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reload", strings.NewReader(`{"secret":"hunter2"}`)))

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, 1, app.reloadCount())
	})

	t.Run("reload failure answers 500", func(t *testing.T) {
		app := newFakeApp(t)
		app.reloadErr = assert.AnError
		router := NewRouter(Config{ReloadSecret: "hunter2"}, app, fallbackPool(t, "http://cdn.example"), nil, nil)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reload", strings.NewReader(`{"secret":"hunter2"}`)))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestNotFoundFallback(t *testing.T) {
	router := NewRouter(Config{}, newFakeApp(t), fallbackPool(t, "http://cdn.example"), nil, nil)

	t.Run("unknown path", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("wrong method", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/bananas", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	metrics.InitRegistry()
	router := NewRouter(Config{}, newFakeApp(t), fallbackPool(t, "http://cdn.example"), nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
