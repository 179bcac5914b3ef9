package web

import (
	"context"
	"net"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/openttd/bananas-server/internal/logger"
)

// tunnelReadLimit bounds one websocket message. Client packets never
// exceed the protocol MTU; the limit leaves generous headroom.
const tunnelReadLimit = 64 * 1024

// ConnServer feeds tunneled connections into the content protocol state
// machine.
type ConnServer interface {
	// ServeConn serves one established connection and returns when it
	// closes.
	ServeConn(ctx context.Context, conn net.Conn)
}

// tunnel answers a websocket upgrade on GET /: binary messages relay the
// content protocol for clients that cannot reach the TCP port directly.
func (h *handlers) tunnel(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// The game client is not a browser; origin checks do not apply.
		InsecureSkipVerify: true,
	})
	if err != nil {
		logger.Debug("Websocket accept failed", "address", clientAddress(r), "error", err)
		return
	}
	ws.SetReadLimit(tunnelReadLimit)
	defer ws.CloseNow()

	if h.metrics != nil {
		h.metrics.RecordTunnelOpened()
		defer h.metrics.RecordTunnelClosed()
	}

	conn := websocket.NetConn(r.Context(), ws, websocket.MessageBinary)
	h.connServer.ServeConn(r.Context(), tunnelConn{
		Conn:   conn,
		remote: tunnelAddr(net.JoinHostPort(clientAddress(r), uuid.NewString()[:8])),
	})
}

// tunnelConn overrides the remote address of a websocket-backed
// connection: NetConn reports a synthetic one, but logging and
// connection tracking need the HTTP client's, unique per tunnel.
type tunnelConn struct {
	net.Conn
	remote net.Addr
}

func (c tunnelConn) RemoteAddr() net.Addr { return c.remote }

// tunnelAddr is a host:id pair naming one tunnel.
type tunnelAddr string

func (a tunnelAddr) Network() string { return "websocket" }
func (a tunnelAddr) String() string  { return string(a) }
