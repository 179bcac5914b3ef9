package web

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findFreePort(t *testing.T) int {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = listener.Close() }()

	return listener.Addr().(*net.TCPAddr).Port
}

func TestServerStartAndShutdown(t *testing.T) {
	config := Config{
		Bind:     []string{"127.0.0.1"},
		Port:     findFreePort(t),
		Timeouts: TimeoutsConfig{Shutdown: 2 * time.Second},
	}
	server := NewServer(config, newFakeApp(t, testEntry(t)), fallbackPool(t, "http://cdn.example"), nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	startErr := make(chan error, 1)
	go func() { startErr <- server.Start(ctx) }()

	addrs := server.GetListenerAddrs()
	require.Len(t, addrs, 1)

	resp, err := http.Get("http://" + addrs[0] + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-startErr:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after context cancellation")
	}
}

func TestServerListenFailureClosesEarlierListeners(t *testing.T) {
	config := Config{
		// The same address twice: the second listener must fail and the
		// first must be released again.
		Bind: []string{"127.0.0.1", "127.0.0.1"},
		Port: findFreePort(t),
	}
	server := NewServer(config, newFakeApp(t), fallbackPool(t, "http://cdn.example"), nil, nil)

	require.Error(t, server.Start(context.Background()))

	probe, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(config.Port)))
	require.NoError(t, err, "the first listener must have been closed")
	_ = probe.Close()
}

func TestServerConfigDefaults(t *testing.T) {
	config := Config{}
	config.applyDefaults()

	assert.Equal(t, []string{"::1", "127.0.0.1"}, config.Bind)
	assert.Equal(t, 80, config.Port)
	assert.Equal(t, 2.0, config.RateLimit.RPS)
	assert.Equal(t, 16, config.RateLimit.Burst)
	assert.Equal(t, 10*time.Second, config.Timeouts.ReadHeader)
	assert.Equal(t, 60*time.Second, config.Timeouts.Idle)
	assert.Equal(t, 10*time.Second, config.Timeouts.Shutdown)
	assert.NoError(t, config.validate())

	bad := Config{Port: 70000}
	assert.Error(t, bad.validate())
}
