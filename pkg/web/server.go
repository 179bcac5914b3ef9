package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"

	"github.com/openttd/bananas-server/internal/logger"
	"github.com/openttd/bananas-server/pkg/metrics"
)

// Server is the HTTP frontend. One http.Server fans out over one
// listener per configured bind address.
type Server struct {
	config Config
	server *http.Server

	listeners     []net.Listener
	listenerMu    sync.RWMutex
	listenerReady chan struct{}

	shutdownOnce sync.Once
}

// NewServer builds the HTTP frontend with all routes wired.
//
// Invalid configuration panics: the config layer validates user input
// first, so a bad Config here is a programming error.
func NewServer(config Config, application Application, pool *CDNPool, connServer ConnServer, webMetrics metrics.WebMetrics) *Server {
	config.applyDefaults()
	if err := config.validate(); err != nil {
		panic(fmt.Sprintf("invalid web server config: %v", err))
	}

	router := NewRouter(config, application, pool, connServer, webMetrics)

	server := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: config.Timeouts.ReadHeader,
		IdleTimeout:       config.Timeouts.Idle,
	}

	return &Server{
		config:        config,
		server:        server,
		listenerReady: make(chan struct{}),
	}
}

// Start listens on every bind address and blocks until the context is
// cancelled or a listener fails. Context cancellation triggers graceful
// shutdown.
func (s *Server) Start(ctx context.Context) error {
	listeners := make([]net.Listener, 0, len(s.config.Bind))
	for _, bind := range s.config.Bind {
		addr := net.JoinHostPort(bind, strconv.Itoa(s.config.Port))
		listener, err := net.Listen("tcp", addr)
		if err != nil {
			for _, open := range listeners {
				_ = open.Close()
			}
			return fmt.Errorf("listening on %s: %w", addr, err)
		}
		listeners = append(listeners, listener)
		logger.Info("Web server listening", "address", listener.Addr().String())
	}

	s.listenerMu.Lock()
	s.listeners = listeners
	s.listenerMu.Unlock()
	close(s.listenerReady)

	errChan := make(chan error, len(listeners))
	for _, listener := range listeners {
		go func(l net.Listener) {
			if err := s.server.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
				select {
				case errChan <- err:
				default:
				}
			}
		}(listener)
	}

	select {
	case <-ctx.Done():
		logger.Info("Web server shutdown signal received")
		// A fresh context: the cancelled one would abort the graceful
		// drain immediately.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.Timeouts.Shutdown)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("web server failed: %w", err)
	}
}

// Stop gracefully shuts the server down. Safe to call more than once and
// concurrently with Start. Hijacked tunnel connections are not waited
// for here; the content adapter owns their teardown.
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("web server shutdown: %w", err)
			logger.Error("Web server shutdown error", "error", err)
			return
		}
		logger.Info("Web server stopped gracefully")
	})
	return shutdownErr
}

// GetListenerAddrs returns the bound addresses. It blocks until Start
// has opened the listeners, which lets tests dial ephemeral ports.
func (s *Server) GetListenerAddrs() []string {
	<-s.listenerReady

	s.listenerMu.RLock()
	defer s.listenerMu.RUnlock()

	addrs := make([]string, 0, len(s.listeners))
	for _, listener := range s.listeners {
		addrs = append(addrs, listener.Addr().String())
	}
	return addrs
}
