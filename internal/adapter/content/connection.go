package content

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/openttd/bananas-server/internal/logger"
	"github.com/openttd/bananas-server/internal/protocol/bananas"
	"github.com/openttd/bananas-server/pkg/app"
)

// proxyLineMax bounds the PROXY protocol v1 line; haproxy caps it at
// 107 bytes including CRLF.
const proxyLineMax = 107

// readChunkSize is how much is pulled off the socket per read while
// reassembling frames. Client packets are small; downloads only flow
// the other way.
const readChunkSize = 4096

// frameQueueDepth bounds the frames read ahead of the dispatcher. A full
// queue parks the reader, which stops draining the socket and lets TCP
// push back on a client that pipelines faster than it downloads.
const frameQueueDepth = 64

// connection serves one client: reassembles frames, decodes requests,
// and dispatches them to the handler one at a time. Requests on one
// connection are strictly ordered, so replies interleave the way the
// client expects.
//
// connection implements app.Peer: handlers answer through SendFrame.
type connection struct {
	server *Adapter
	conn   net.Conn

	// ip is the client address used for logging and bookkeeping. The
	// PROXY preamble replaces it with the advertised client address.
	ip string

	// buf reassembles frames across reads; chunk is the read scratch.
	buf   []byte
	chunk []byte
}

func newConnection(server *Adapter, conn net.Conn) *connection {
	ip := conn.RemoteAddr().String()
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}

	return &connection{
		server: server,
		conn:   conn,
		ip:     ip,
		chunk:  make([]byte, readChunkSize),
	}
}

// IP implements app.Peer.
func (c *connection) IP() string {
	return c.ip
}

// SendFrame implements app.Peer.
func (c *connection) SendFrame(frame []byte) error {
	if c.server.config.Timeouts.Write > 0 {
		deadline := time.Now().Add(c.server.config.Timeouts.Write)
		if err := c.conn.SetWriteDeadline(deadline); err != nil {
			return fmt.Errorf("set write deadline: %w", err)
		}
	}

	_, err := c.conn.Write(frame)
	return err
}

// serve runs one client until it disconnects, the server shuts down, or
// the connection misbehaves. A reader goroutine reassembles frames into
// a bounded queue; dispatch stays on this goroutine, so requests are
// answered strictly in the order they arrived. Panics are recovered so
// one connection cannot take down the server.
func (c *connection) serve(ctx context.Context) {
	defer c.handleClose()

	if c.server.config.ProxyProtocol {
		if !c.readProxyPreamble() {
			return
		}
	}

	done := make(chan struct{})
	defer close(done)

	frames := make(chan []byte, frameQueueDepth)
	readEnd := make(chan error, 1)
	go c.readLoop(frames, readEnd, done)

	for {
		select {
		case <-ctx.Done():
			logger.Debug("Connection closed due to context cancellation", "address", c.ip)
			return
		case <-c.server.shutdown:
			logger.Debug("Connection closed due to server shutdown", "address", c.ip)
			return
		case frame, ok := <-frames:
			if !ok {
				c.logReadEnd(<-readEnd)
				return
			}
			if !c.dispatch(ctx, frame) {
				return
			}
		}
	}
}

// readLoop reassembles frames off the socket and queues them until
// reading fails or the dispatcher is gone. The error that ended reading
// is delivered through readEnd before frames is closed.
func (c *connection) readLoop(frames chan<- []byte, readEnd chan<- error, done <-chan struct{}) {
	for {
		frame, err := c.readFrame()
		if err != nil {
			readEnd <- err
			close(frames)
			return
		}

		// The frame aliases the reassembly buffer; queue a copy the
		// dispatcher can hold across subsequent reads.
		queued := make([]byte, len(frame))
		copy(queued, frame)

		select {
		case frames <- queued:
		case <-done:
			return
		}
	}
}

// dispatch decodes and handles one frame. It reports whether the
// connection should keep serving.
func (c *connection) dispatch(ctx context.Context, frame []byte) bool {
	packetType, payload, err := bananas.ParseFrame(frame)
	if err != nil {
		c.dropInvalidPacket(packetType, err)
		return false
	}

	req, err := bananas.DecodeRequest(packetType, payload)
	if err != nil {
		c.dropInvalidPacket(packetType, err)
		return false
	}

	if c.server.metrics != nil {
		c.server.metrics.RecordPacket(packetType.String())
	}

	if err := c.server.handler.Handle(ctx, c, req); err != nil {
		switch {
		case errors.Is(err, app.ErrCloseConnection):
			// The handler decided and already logged what it
			// wanted to; just drop the connection.
		case isNetworkError(err):
			logger.Debug("Connection lost mid-reply", "address", c.ip, "error", err)
		default:
			logger.Error("Request handling failed",
				"address", c.ip, "type", packetType.String(), "error", err)
		}
		return false
	}
	return true
}

// readFrame returns the next complete frame, reading more data as
// needed. The reassembly buffer may already hold bytes past the frame;
// they stay queued for the next call.
func (c *connection) readFrame() ([]byte, error) {
	for {
		frame, rest, err := bananas.PeelFrame(c.buf)
		if err != nil {
			return nil, err
		}
		if frame != nil {
			c.buf = rest
			return frame, nil
		}

		if c.server.config.Timeouts.Read > 0 {
			deadline := time.Now().Add(c.server.config.Timeouts.Read)
			if err := c.conn.SetReadDeadline(deadline); err != nil {
				return nil, fmt.Errorf("set read deadline: %w", err)
			}
		}

		n, err := c.conn.Read(c.chunk)
		if n > 0 {
			c.buf = append(c.buf, c.chunk[:n]...)
			continue
		}
		if err != nil {
			return nil, err
		}
	}
}

// readProxyPreamble consumes the PROXY protocol v1 line and replaces the
// peer address with the advertised client address. The decision is made
// on the first bytes of the connection: anything not starting with the
// magic is kept as protocol data and the socket address stays, with a
// warning, matching what balancers send when the header is missing.
// Returns false when the connection should be dropped.
func (c *connection) readProxyPreamble() bool {
	for len(c.buf) == 0 {
		if c.server.config.Timeouts.Read > 0 {
			deadline := time.Now().Add(c.server.config.Timeouts.Read)
			if err := c.conn.SetReadDeadline(deadline); err != nil {
				return false
			}
		}
		n, err := c.conn.Read(c.chunk)
		if n > 0 {
			c.buf = append(c.buf, c.chunk[:n]...)
			break
		}
		if err != nil {
			c.logReadEnd(err)
			return false
		}
	}

	if !bytes.HasPrefix(c.buf, []byte("PROXY")) {
		logger.Warn("Received data without a proxy protocol header", "address", c.ip)
		return true
	}

	for {
		if i := bytes.Index(c.buf, []byte("\r\n")); i >= 0 {
			line := string(c.buf[:i])
			c.buf = c.buf[i+2:]
			c.applyProxyLine(line)
			return true
		}
		if len(c.buf) > proxyLineMax {
			logger.Warn("Oversized proxy protocol header", "address", c.ip)
			return false
		}

		n, err := c.conn.Read(c.chunk)
		if n > 0 {
			c.buf = append(c.buf, c.chunk[:n]...)
			continue
		}
		if err != nil {
			c.logReadEnd(err)
			return false
		}
	}
}

// applyProxyLine extracts the client address from a line like
//
//	PROXY TCP4 192.0.2.1 192.0.2.254 33487 12345
//
// where the third field is the source address and the fifth the source
// port. Malformed lines keep the socket address.
func (c *connection) applyProxyLine(line string) {
	fields := strings.Split(line, " ")
	if len(fields) != 6 {
		logger.Warn("Malformed proxy protocol header", "address", c.ip, "header", line)
		return
	}
	port, err := strconv.Atoi(fields[4])
	if err != nil {
		logger.Warn("Malformed proxy protocol header", "address", c.ip, "header", line)
		return
	}

	logger.Debug("Proxy protocol header applied", "address", fields[2], "port", port, "socket", c.ip)
	c.ip = fields[2]
}

// dropInvalidPacket logs and records a packet that failed framing or
// decoding. The connection is beyond recovery at that point: framing is
// stateful, so one bad packet desynchronizes everything after it.
func (c *connection) dropInvalidPacket(packetType bananas.PacketType, err error) {
	logger.Info("Dropping invalid packet",
		"address", c.ip, "type", packetType.String(), "error", err)
	if c.server.metrics != nil {
		c.server.metrics.RecordInvalidPacket(invalidReason(err))
	}
}

func invalidReason(err error) string {
	switch {
	case errors.Is(err, bananas.ErrPacketInvalidSize):
		return "size"
	case errors.Is(err, bananas.ErrPacketInvalidType):
		return "type"
	case errors.Is(err, bananas.ErrPacketInvalidData):
		return "data"
	default:
		return "other"
	}
}

// logReadEnd classifies why reading stopped. A client hanging up or
// idling out is normal operation and logs at debug; framing violations
// go through dropInvalidPacket instead.
func (c *connection) logReadEnd(err error) {
	switch {
	case err == io.EOF:
		logger.Debug("Connection closed by client", "address", c.ip)
	case errors.Is(err, bananas.ErrPacketInvalidSize):
		logger.Info("Dropping invalid packet", "address", c.ip, "error", err)
		if c.server.metrics != nil {
			c.server.metrics.RecordInvalidPacket("size")
		}
	case isTimeout(err):
		logger.Debug("Connection timed out", "address", c.ip, "error", err)
	default:
		logger.Debug("Error reading from connection", "address", c.ip, "error", err)
	}
}

// handleClose recovers panics from the request loop and closes the
// socket.
func (c *connection) handleClose() {
	if r := recover(); r != nil {
		logger.Error("Panic in connection handler",
			"address", c.ip,
			"error", r,
			"stack", string(debug.Stack()))
	}

	_ = c.conn.Close()
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isNetworkError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF)
}
