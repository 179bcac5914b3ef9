package content

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// addrConn overrides the remote address of an inner connection.
type addrConn struct {
	net.Conn
	remote net.Addr
}

func (c addrConn) RemoteAddr() net.Addr { return c.remote }

func TestNewConnectionPeerAddress(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	t.Run("host extracted from host:port", func(t *testing.T) {
		conn := addrConn{
			Conn:   server,
			remote: &net.TCPAddr{IP: net.ParseIP("192.0.2.7"), Port: 51234},
		}
		c := newConnection(&Adapter{}, conn)
		assert.Equal(t, "192.0.2.7", c.IP())
	})

	t.Run("bare address kept as-is", func(t *testing.T) {
		c := newConnection(&Adapter{}, server)
		assert.Equal(t, "pipe", c.IP())
	})
}

func TestApplyProxyLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string
	}{
		{
			name: "well-formed header",
			line: "PROXY TCP4 203.0.113.9 10.0.0.1 33487 3978",
			want: "203.0.113.9",
		},
		{
			name: "too few fields keeps the socket address",
			line: "PROXY TCP4 203.0.113.9",
			want: "127.0.0.1",
		},
		{
			name: "too many fields keeps the socket address",
			line: "PROXY TCP4 203.0.113.9 10.0.0.1 33487 3978 junk",
			want: "127.0.0.1",
		},
		{
			name: "non-numeric port keeps the socket address",
			line: "PROXY TCP4 203.0.113.9 10.0.0.1 garbage 3978",
			want: "127.0.0.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &connection{ip: "127.0.0.1"}
			c.applyProxyLine(tt.line)
			assert.Equal(t, tt.want, c.ip)
		})
	}
}

func TestProxyPreambleSplitAcrossReads(t *testing.T) {
	handler := &recordingHandler{}
	adapter := New(Config{ProxyProtocol: true}, handler, nil)

	server, client := net.Pipe()
	done := make(chan struct{})
	go func() {
		adapter.ServeConn(context.Background(), server)
		close(done)
	}()

	frame := encodeInfoIDFrame(t, 3)
	go func() {
		_, _ = client.Write([]byte("PROXY TCP4 203.0.113.5 10.0.0.1 33487 3978"))
		time.Sleep(10 * time.Millisecond)
		_, _ = client.Write(append([]byte("\r\n"), frame...))
	}()

	packetType, _ := readWireFrame(t, client)
	assert.Equal(t, "SERVER_CONTENT", packetType.String())

	ips, _ := handler.seen()
	require.Len(t, ips, 1)
	assert.Equal(t, "203.0.113.5", ips[0])

	require.NoError(t, client.Close())
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("ServeConn did not return after the peer closed")
	}
}

func TestProxyPreambleOversizedHeaderDropsConnection(t *testing.T) {
	adapter := New(Config{ProxyProtocol: true}, &recordingHandler{}, nil)

	server, client := net.Pipe()
	done := make(chan struct{})
	go func() {
		adapter.ServeConn(context.Background(), server)
		close(done)
	}()

	junk := append([]byte("PROXY "), make([]byte, 2*proxyLineMax)...)
	go func() {
		_, _ = client.Write(junk)
	}()

	require.NoError(t, client.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, err := client.Read(make([]byte, 1))
	assert.ErrorIs(t, err, io.EOF)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("ServeConn did not return after dropping the connection")
	}
}
