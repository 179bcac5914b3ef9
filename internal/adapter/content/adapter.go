// Package content implements the TCP frontend of the content protocol.
//
// The adapter owns the listeners and the connection lifecycle: framing,
// deadlines, connection limits, and graceful shutdown. Decoded requests
// are handed to an application handler; the handler answers through the
// connection, which implements app.Peer.
//
// Shutdown flow:
//  1. Context cancelled or Stop() called
//  2. Listeners closed (no new connections)
//  3. Blocking reads interrupted, in-flight request contexts cancelled
//  4. Wait for active connections up to Timeouts.Shutdown
//  5. Force-close whatever remains
package content

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/openttd/bananas-server/internal/logger"
	"github.com/openttd/bananas-server/internal/protocol/bananas"
	"github.com/openttd/bananas-server/pkg/app"
	"github.com/openttd/bananas-server/pkg/metrics"
)

// Handler answers one decoded client request. It is implemented by
// app.Application.
type Handler interface {
	Handle(ctx context.Context, peer app.Peer, req bananas.Request) error
}

// writeBufferSize caps the kernel send buffer of one connection at about
// five content frames, bounding the memory a slow downloader can absorb.
const writeBufferSize = 5 * bananas.MTU

// TimeoutsConfig groups the connection deadlines.
type TimeoutsConfig struct {
	// Read is the idle deadline between client packets. 0 disables it.
	Read time.Duration

	// Write is the deadline for writing one response frame. 0 disables it.
	Write time.Duration

	// Shutdown is how long graceful shutdown waits for in-flight
	// transfers before force-closing connections. Must be > 0.
	Shutdown time.Duration
}

// Config holds the content listener settings.
type Config struct {
	// Bind is the list of addresses to listen on. Each address gets its
	// own listener on Port.
	Bind []string

	// Port is the TCP port of the content protocol.
	Port int

	// ProxyProtocol expects every connection to open with a HAProxy
	// PROXY protocol v1 line carrying the real client address.
	ProxyProtocol bool

	// MaxConnections limits concurrent connections. 0 means unlimited.
	MaxConnections int

	Timeouts TimeoutsConfig
}

func (c *Config) applyDefaults() {
	if len(c.Bind) == 0 {
		c.Bind = []string{"::1", "127.0.0.1"}
	}
	if c.Port <= 0 {
		c.Port = 3978
	}
	if c.Timeouts.Read == 0 {
		c.Timeouts.Read = 5 * time.Minute
	}
	if c.Timeouts.Write == 0 {
		c.Timeouts.Write = 30 * time.Second
	}
	if c.Timeouts.Shutdown == 0 {
		c.Timeouts.Shutdown = 30 * time.Second
	}
}

func (c *Config) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be 1-65535", c.Port)
	}
	if c.MaxConnections < 0 {
		return fmt.Errorf("invalid MaxConnections %d: must be >= 0", c.MaxConnections)
	}
	if c.Timeouts.Shutdown <= 0 {
		return fmt.Errorf("invalid timeouts.shutdown %v: must be > 0", c.Timeouts.Shutdown)
	}
	return nil
}

// Adapter is the content protocol TCP server.
//
// All methods are safe for concurrent use. Stop may be called
// concurrently with Serve and is idempotent.
type Adapter struct {
	config  Config
	handler Handler

	// metrics is optional; nil disables collection.
	metrics metrics.ContentMetrics

	// listeners are closed during shutdown to stop accepting.
	listeners  []net.Listener
	listenerMu sync.RWMutex

	// listenerReady is closed once all listeners accept connections.
	// Tests use it to synchronize with startup.
	listenerReady chan struct{}

	// activeConns tracks running connection handlers for graceful
	// shutdown; activeConnections maps address to net.Conn for forced
	// closure and read interruption.
	activeConns       sync.WaitGroup
	activeConnections sync.Map
	connCount         atomic.Int32

	// connSemaphore limits concurrency; nil when unlimited.
	connSemaphore chan struct{}

	// shutdown is closed once shutdown starts; shutdownCtx is cancelled
	// right after so in-flight requests abort.
	shutdown       chan struct{}
	shutdownOnce   sync.Once
	shutdownCtx    context.Context
	cancelRequests context.CancelFunc
}

// New creates the adapter. Zero config values get defaults; an invalid
// config panics, since it can only come from a programming error (the
// config layer validates user input first).
func New(config Config, handler Handler, contentMetrics metrics.ContentMetrics) *Adapter {
	config.applyDefaults()
	if err := config.validate(); err != nil {
		panic(fmt.Sprintf("invalid content config: %v", err))
	}

	var connSemaphore chan struct{}
	if config.MaxConnections > 0 {
		connSemaphore = make(chan struct{}, config.MaxConnections)
	}

	shutdownCtx, cancelRequests := context.WithCancel(context.Background())

	return &Adapter{
		config:         config,
		handler:        handler,
		metrics:        contentMetrics,
		listenerReady:  make(chan struct{}),
		connSemaphore:  connSemaphore,
		shutdown:       make(chan struct{}),
		shutdownCtx:    shutdownCtx,
		cancelRequests: cancelRequests,
	}
}

// Serve opens one listener per bind address and accepts connections
// until the context is cancelled or Stop is called. It returns after
// graceful shutdown has finished.
func (s *Adapter) Serve(ctx context.Context) error {
	listeners := make([]net.Listener, 0, len(s.config.Bind))
	for _, bind := range s.config.Bind {
		addr := net.JoinHostPort(bind, strconv.Itoa(s.config.Port))
		listener, err := net.Listen("tcp", addr)
		if err != nil {
			for _, open := range listeners {
				_ = open.Close()
			}
			return fmt.Errorf("failed to create content listener on %s: %w", addr, err)
		}
		listeners = append(listeners, listener)
		logger.Info("Content server listening", "address", listener.Addr().String())
	}

	s.listenerMu.Lock()
	s.listeners = listeners
	s.listenerMu.Unlock()
	close(s.listenerReady)

	logger.Debug("Content config",
		"proxy_protocol", s.config.ProxyProtocol,
		"max_connections", s.config.MaxConnections,
		"read_timeout", s.config.Timeouts.Read,
		"write_timeout", s.config.Timeouts.Write)

	go func() {
		<-ctx.Done()
		logger.Info("Content shutdown signal received", "error", ctx.Err())
		s.initiateShutdown()
	}()

	var accepting sync.WaitGroup
	for _, listener := range listeners {
		accepting.Add(1)
		go func(listener net.Listener) {
			defer accepting.Done()
			s.acceptLoop(listener)
		}(listener)
	}
	accepting.Wait()

	return s.gracefulShutdown()
}

// acceptLoop accepts connections on one listener until shutdown. Accept
// errors outside shutdown are logged and the loop continues; the
// listener being closed ends the loop.
func (s *Adapter) acceptLoop(listener net.Listener) {
	for {
		if s.connSemaphore != nil {
			select {
			case s.connSemaphore <- struct{}{}:
			case <-s.shutdown:
				return
			}
		}

		tcpConn, err := listener.Accept()
		if err != nil {
			if s.connSemaphore != nil {
				<-s.connSemaphore
			}
			select {
			case <-s.shutdown:
				return
			default:
				logger.Debug("Error accepting content connection", "error", err)
				continue
			}
		}

		if tcp, ok := tcpConn.(*net.TCPConn); ok {
			if err := tcp.SetWriteBuffer(writeBufferSize); err != nil {
				logger.Debug("Error sizing connection write buffer", "error", err)
			}
		}

		s.track(tcpConn)
		conn := newConnection(s, tcpConn)
		go func(addr string, tcp net.Conn) {
			defer func() {
				s.untrack(addr, tcp)
				if s.connSemaphore != nil {
					<-s.connSemaphore
				}
			}()
			conn.serve(s.shutdownCtx)
		}(tcpConn.RemoteAddr().String(), tcpConn)
	}
}

// ServeConn runs the content protocol on an already-established
// connection. The WebSocket tunnel feeds its connections through here so
// tunneled clients share the request loop, limits, and shutdown handling
// of direct TCP clients.
func (s *Adapter) ServeConn(ctx context.Context, netConn net.Conn) {
	if s.connSemaphore != nil {
		select {
		case s.connSemaphore <- struct{}{}:
		case <-s.shutdown:
			_ = netConn.Close()
			return
		case <-ctx.Done():
			_ = netConn.Close()
			return
		}
		defer func() { <-s.connSemaphore }()
	}

	addr := netConn.RemoteAddr().String()
	s.track(netConn)
	defer s.untrack(addr, netConn)

	newConnection(s, netConn).serve(ctx)
}

func (s *Adapter) track(conn net.Conn) {
	s.activeConns.Add(1)
	current := s.connCount.Add(1)
	s.activeConnections.Store(conn.RemoteAddr().String(), conn)

	if s.metrics != nil {
		s.metrics.RecordConnectionAccepted()
		s.metrics.SetActiveConnections(current)
	}
	logger.Debug("Content connection accepted", "address", conn.RemoteAddr(), "active", current)
}

func (s *Adapter) untrack(addr string, conn net.Conn) {
	s.activeConnections.Delete(addr)
	s.activeConns.Done()
	current := s.connCount.Add(-1)

	if s.metrics != nil {
		s.metrics.RecordConnectionClosed()
		s.metrics.SetActiveConnections(current)
	}
	logger.Debug("Content connection closed", "address", conn.RemoteAddr(), "active", current)
}

// initiateShutdown starts graceful shutdown: stop accepting, interrupt
// blocked reads, cancel in-flight request contexts. Safe to call more
// than once.
func (s *Adapter) initiateShutdown() {
	s.shutdownOnce.Do(func() {
		logger.Debug("Content shutdown initiated")

		close(s.shutdown)

		s.listenerMu.Lock()
		for _, listener := range s.listeners {
			if err := listener.Close(); err != nil {
				logger.Debug("Error closing content listener", "error", err)
			}
		}
		s.listenerMu.Unlock()

		s.interruptBlockingReads()
		s.cancelRequests()
	})
}

// interruptBlockingReads puts a short deadline on every active
// connection so reads blocked on idle clients notice the shutdown
// instead of waiting out the full read timeout.
func (s *Adapter) interruptBlockingReads() {
	deadline := time.Now().Add(100 * time.Millisecond)

	s.activeConnections.Range(func(key, value any) bool {
		if conn, ok := value.(net.Conn); ok {
			if err := conn.SetReadDeadline(deadline); err != nil {
				logger.Debug("Error setting shutdown deadline on connection",
					"address", key, "error", err)
			}
		}
		return true
	})
}

// gracefulShutdown waits for active connections to finish or for the
// shutdown timeout, force-closing the remainder.
func (s *Adapter) gracefulShutdown() error {
	active := s.connCount.Load()
	logger.Info("Content graceful shutdown: waiting for active connections",
		"active", active, "timeout", s.config.Timeouts.Shutdown)

	done := make(chan struct{})
	go func() {
		s.activeConns.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("Content graceful shutdown complete: all connections closed")
		return nil

	case <-time.After(s.config.Timeouts.Shutdown):
		remaining := s.connCount.Load()
		logger.Warn("Content shutdown timeout exceeded - forcing closure",
			"active", remaining, "timeout", s.config.Timeouts.Shutdown)
		s.forceCloseConnections()
		return fmt.Errorf("content shutdown timeout: %d connections force-closed", remaining)
	}
}

func (s *Adapter) forceCloseConnections() {
	closed := 0
	s.activeConnections.Range(func(key, value any) bool {
		conn := value.(net.Conn)
		if err := conn.Close(); err != nil {
			logger.Debug("Error force-closing connection", "address", key, "error", err)
		} else {
			closed++
			if s.metrics != nil {
				s.metrics.RecordConnectionForceClosed()
			}
		}
		return true
	})

	if closed > 0 {
		logger.Info("Force-closed connections", "count", closed)
	}
}

// Stop initiates graceful shutdown and waits for active connections. A
// nil context falls back to the configured shutdown timeout; otherwise
// the context bounds the wait.
func (s *Adapter) Stop(ctx context.Context) error {
	s.initiateShutdown()

	if ctx == nil {
		return s.gracefulShutdown()
	}

	done := make(chan struct{})
	go func() {
		s.activeConns.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("Content graceful shutdown complete: all connections closed")
		return nil
	case <-ctx.Done():
		remaining := s.connCount.Load()
		logger.Warn("Content shutdown context cancelled", "active", remaining, "error", ctx.Err())
		return ctx.Err()
	}
}

// GetActiveConnections returns the number of connections currently
// being served.
func (s *Adapter) GetActiveConnections() int32 {
	return s.connCount.Load()
}

// GetListenerAddrs returns the bound listener addresses. It blocks until
// the listeners are ready, so tests can dial without races.
func (s *Adapter) GetListenerAddrs() []string {
	<-s.listenerReady

	s.listenerMu.RLock()
	defer s.listenerMu.RUnlock()

	addrs := make([]string, 0, len(s.listeners))
	for _, listener := range s.listeners {
		addrs = append(addrs, listener.Addr().String())
	}
	return addrs
}
