package web

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCDNPoolRules(t *testing.T) {
	t.Run("single url without fallback becomes the fallback", func(t *testing.T) {
		pool, err := NewCDNPool(CDNConfig{URLs: []string{"http://only.example"}}, nil)
		require.NoError(t, err)
		assert.Equal(t, "http://only.example", pool.fallback)
		assert.Empty(t, pool.probeURLs)
	})

	t.Run("single url with explicit fallback is probed", func(t *testing.T) {
		pool, err := NewCDNPool(CDNConfig{
			URLs:        []string{"http://one.example"},
			FallbackURL: "http://fb.example",
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, "http://fb.example", pool.fallback)
		assert.Equal(t, []string{"http://one.example"}, pool.probeURLs)
	})

	t.Run("several urls require a fallback", func(t *testing.T) {
		_, err := NewCDNPool(CDNConfig{URLs: []string{"http://a.example", "http://b.example"}}, nil)
		assert.Error(t, err)
	})

	t.Run("no urls require a fallback", func(t *testing.T) {
		_, err := NewCDNPool(CDNConfig{}, nil)
		assert.Error(t, err)
	})

	t.Run("duplicates are collapsed", func(t *testing.T) {
		pool, err := NewCDNPool(CDNConfig{
			URLs:        []string{"http://a.example", "http://a.example", "http://b.example"},
			FallbackURL: "http://fb.example",
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"http://a.example", "http://b.example"}, pool.probeURLs)
	})
}

func TestCDNPoolPick(t *testing.T) {
	pool, err := NewCDNPool(CDNConfig{
		URLs:        []string{"http://a.example", "http://b.example"},
		FallbackURL: "http://fb.example",
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, "http://fb.example", pool.Pick(), "mirrors start out unhealthy")

	one := []string{"http://a.example"}
	pool.healthy.Store(&one)
	assert.Equal(t, "http://a.example", pool.Pick())

	both := []string{"http://a.example", "http://b.example"}
	pool.healthy.Store(&both)
	assert.Contains(t, both, pool.Pick())
}

func TestCDNPoolProbe(t *testing.T) {
	healthyServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/healthz", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer healthyServer.Close()

	failingServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer failingServer.Close()

	offlineServer := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	offlineServer.Close()

	webMetrics := &captureWebMetrics{}
	pool, err := NewCDNPool(CDNConfig{
		URLs:        []string{healthyServer.URL, failingServer.URL, offlineServer.URL},
		FallbackURL: "http://fb.example",
	}, webMetrics)
	require.NoError(t, err)

	pool.probe()

	assert.Equal(t, []string{healthyServer.URL}, *pool.healthy.Load())
	assert.Equal(t, healthyServer.URL, pool.Pick())

	webMetrics.mu.Lock()
	defer webMetrics.mu.Unlock()
	assert.Equal(t, []bool{true, false, false}, webMetrics.probes)
	assert.Equal(t, []int{1}, webMetrics.healthy)
}

func TestCDNPoolStartProbesImmediately(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	pool, err := NewCDNPool(CDNConfig{
		URLs:        []string{server.URL},
		FallbackURL: "http://fb.example",
	}, nil)
	require.NoError(t, err)

	require.NoError(t, pool.Start())
	t.Cleanup(func() { _ = pool.Stop() })

	require.Eventually(t, func() bool {
		return pool.Pick() == server.URL
	}, 5*time.Second, 20*time.Millisecond)
}

func TestCDNPoolStopWithoutStart(t *testing.T) {
	pool, err := NewCDNPool(CDNConfig{URLs: []string{"http://only.example"}}, nil)
	require.NoError(t, err)
	require.NoError(t, pool.Start(), "fallback-only pools have nothing to probe")
	assert.NoError(t, pool.Stop())
}
