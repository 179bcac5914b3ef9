package web

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoConnServer bounces every byte back and records the peer address.
type echoConnServer struct {
	mu    sync.Mutex
	addrs []string
}

func (s *echoConnServer) ServeConn(_ context.Context, conn net.Conn) {
	s.mu.Lock()
	s.addrs = append(s.addrs, conn.RemoteAddr().String())
	s.mu.Unlock()

	defer conn.Close()
	_, _ = io.Copy(conn, conn)
}

func (s *echoConnServer) seen() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.addrs...)
}

func TestTunnelRelaysBinaryMessages(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	echo := &echoConnServer{}
	webMetrics := &captureWebMetrics{}
	router := NewRouter(Config{}, newFakeApp(t), fallbackPool(t, "http://cdn.example"), echo, webMetrics)

	srv := httptest.NewServer(router)
	defer srv.Close()

	wsURL := "ws://" + strings.TrimPrefix(srv.URL, "http://") + "/"
	ws, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer ws.CloseNow()

	require.NoError(t, ws.Write(ctx, websocket.MessageBinary, []byte{1, 2, 3}))

	msgType, data, err := ws.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, websocket.MessageBinary, msgType)
	assert.Equal(t, []byte{1, 2, 3}, data)

	addrs := echo.seen()
	require.Len(t, addrs, 1)
	host, _, err := net.SplitHostPort(addrs[0])
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", host)

	require.NoError(t, ws.Close(websocket.StatusNormalClosure, ""))

	require.Eventually(t, func() bool {
		opened, closed := webMetrics.tunnels()
		return opened == 1 && closed == 1
	}, 5*time.Second, 10*time.Millisecond)
}

func TestTunnelDistinctAddresses(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	echo := &echoConnServer{}
	router := NewRouter(Config{}, newFakeApp(t), fallbackPool(t, "http://cdn.example"), echo, nil)

	srv := httptest.NewServer(router)
	defer srv.Close()

	wsURL := "ws://" + strings.TrimPrefix(srv.URL, "http://") + "/"
	first, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer first.CloseNow()
	second, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer second.CloseNow()

	// Two tunnels from the same client must not share a tracking key.
	require.Eventually(t, func() bool {
		return len(echo.seen()) == 2
	}, 5*time.Second, 10*time.Millisecond)

	addrs := echo.seen()
	assert.NotEqual(t, addrs[0], addrs[1])
}

func TestTunnelRejectsPlainGet(t *testing.T) {
	router := NewRouter(Config{}, newFakeApp(t), fallbackPool(t, "http://cdn.example"), &echoConnServer{}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.GreaterOrEqual(t, rec.Code, 400)
}
