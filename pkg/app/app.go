// Package app implements the content server semantics: answering catalog
// queries, streaming downloads, and rebuilding the catalog snapshot.
//
// The transport layer (internal/adapter/content) owns sockets and framing;
// it hands decoded requests to Application.Handle together with a Peer to
// answer through. Handlers read from an immutable catalog snapshot that a
// reload swaps atomically, so requests never see a half-built catalog.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/openttd/bananas-server/internal/protocol/bananas"
	"github.com/openttd/bananas-server/pkg/catalog"
	"github.com/openttd/bananas-server/pkg/index"
	"github.com/openttd/bananas-server/pkg/metrics"
	"github.com/openttd/bananas-server/pkg/store"
)

// ErrCloseConnection tells the transport to drop the connection without
// logging an error against the peer. Handlers return it when the client
// is gone or when continuing would desynchronize the stream.
var ErrCloseConnection = errors.New("close connection")

// Peer is the transport-side handle a handler answers through.
//
// SendFrame blocks until the frame is accepted for writing; its error
// means the peer is unreachable and the handler should stop.
type Peer interface {
	// IP returns the peer address, for logging and client bookkeeping.
	IP() string

	// SendFrame writes one pre-encoded protocol frame.
	SendFrame(frame []byte) error
}

// Config holds the request handling settings.
type Config struct {
	// BootstrapUniqueID is the unique id (8 hex digits) of the base
	// graphics set offered first to clients that have nothing installed
	// yet. Empty disables the bootstrap entry.
	BootstrapUniqueID string
}

// Application answers decoded client requests against the live catalog
// snapshot and owns the reload pipeline that replaces it.
//
// All methods are safe for concurrent use. Reloads serialize among
// themselves but never block request handling: readers keep the snapshot
// they loaded until they finish.
type Application struct {
	storage store.Storage
	loader  *index.Loader

	snapshot atomic.Pointer[catalog.Snapshot]

	// bootstrapID is non-nil when a bootstrap base graphics set is
	// configured.
	bootstrapID *catalog.UniqueID

	// reloadSem serializes reloads; see Reload.
	reloadSem chan struct{}

	versions *versionCache

	contentMetrics metrics.ContentMetrics
	catalogMetrics metrics.CatalogMetrics
}

// New creates the application. The catalog starts empty; call Reload
// before serving so clients see content.
func New(
	cfg Config,
	storage store.Storage,
	loader *index.Loader,
	contentMetrics metrics.ContentMetrics,
	catalogMetrics metrics.CatalogMetrics,
) (*Application, error) {
	a := &Application{
		storage:        storage,
		loader:         loader,
		reloadSem:      make(chan struct{}, 1),
		versions:       newVersionCache(versionCacheLimit),
		contentMetrics: contentMetrics,
		catalogMetrics: catalogMetrics,
	}

	if cfg.BootstrapUniqueID != "" {
		id, err := catalog.ParseUniqueID(cfg.BootstrapUniqueID)
		if err != nil {
			return nil, fmt.Errorf("invalid bootstrap unique id: %w", err)
		}
		a.bootstrapID = &id
	}

	empty, err := catalog.NewSnapshot(nil)
	if err != nil {
		return nil, err
	}
	a.snapshot.Store(empty)

	return a, nil
}

// Snapshot returns the live catalog snapshot.
func (a *Application) Snapshot() *catalog.Snapshot {
	return a.snapshot.Load()
}

// Handle answers one decoded request. A nil return keeps the connection
// open; ErrCloseConnection closes it quietly; any other error closes it
// with a log entry.
func (a *Application) Handle(ctx context.Context, peer Peer, req bananas.Request) error {
	switch r := req.(type) {
	case *bananas.InfoListRequest:
		return a.handleInfoList(peer, r)
	case *bananas.InfoIDRequest:
		return a.handleInfoID(peer, r)
	case *bananas.InfoExtIDRequest:
		return a.handleInfoExtID(peer, r)
	case *bananas.InfoExtIDMD5Request:
		return a.handleInfoExtIDMD5(peer, r)
	case *bananas.ContentRequest:
		return a.handleContent(ctx, peer, r)
	default:
		return fmt.Errorf("unhandled request type %T", req)
	}
}
