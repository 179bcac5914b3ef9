package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/openttd/bananas-server/internal/protocol/bananas"
	"github.com/openttd/bananas-server/pkg/catalog"
	"github.com/openttd/bananas-server/pkg/store"
)

// Game versions as clients announce them: 14.1 in the new 8+4 bit
// packing, 1.2.3 in the old 4+4+4 bit packing.
const (
	gameVersionNew uint32 = (14+16)<<24 | 1<<20
	gameVersionOld uint32 = 1<<28 | 2<<24 | 3<<20
)

// framePeer collects the frames a handler sends.
type framePeer struct {
	ip     string
	frames [][]byte
	err    error // when set, SendFrame fails with it
}

func (p *framePeer) IP() string { return p.ip }

func (p *framePeer) SendFrame(frame []byte) error {
	if p.err != nil {
		return p.err
	}
	p.frames = append(p.frames, append([]byte(nil), frame...))
	return nil
}

// fakeStorage serves listings from maps and downloads from in-memory
// blobs keyed by store.BlobKey.
type fakeStorage struct {
	folders  map[catalog.ContentType][]string
	versions map[string][]string
	blobs    map[string][]byte
	open     func(*catalog.Entry) (store.Stream, error) // overrides blob lookup
	clears   int
}

func (s *fakeStorage) ListFolder(_ context.Context, contentType catalog.ContentType) ([]string, error) {
	return s.folders[contentType], nil
}

func (s *fakeStorage) ListVersions(_ context.Context, contentType catalog.ContentType, uniqueIDHex string) ([]string, error) {
	return s.versions[contentType.Folder()+"/"+uniqueIDHex], nil
}

func (s *fakeStorage) GetStream(_ context.Context, entry *catalog.Entry) (store.Stream, error) {
	if s.open != nil {
		return s.open(entry)
	}
	blob, ok := s.blobs[store.BlobKey(entry)]
	if !ok {
		return nil, fmt.Errorf("no blob at %s", store.BlobKey(entry))
	}
	return store.NewStream(io.NopCloser(bytes.NewReader(blob))), nil
}

func (s *fakeStorage) ClearCache() { s.clears++ }

// captureContentMetrics records the calls the handlers make.
type captureContentMetrics struct {
	versions  []string
	downloads map[string]uint64
}

func (c *captureContentMetrics) RecordConnectionAccepted()    {}
func (c *captureContentMetrics) RecordConnectionClosed()      {}
func (c *captureContentMetrics) RecordConnectionForceClosed() {}
func (c *captureContentMetrics) SetActiveConnections(int32)   {}
func (c *captureContentMetrics) RecordPacket(string)          {}
func (c *captureContentMetrics) RecordInvalidPacket(string)   {}

func (c *captureContentMetrics) RecordDownload(contentType string, bytes uint64) {
	if c.downloads == nil {
		c.downloads = make(map[string]uint64)
	}
	c.downloads[contentType] += bytes
}

func (c *captureContentMetrics) RecordClientVersion(version string) {
	c.versions = append(c.versions, version)
}

type captureCatalogMetrics struct {
	reloads []error
	entries map[string][2]int
}

func (c *captureCatalogMetrics) RecordReload(_ time.Duration, err error) {
	c.reloads = append(c.reloads, err)
}

func (c *captureCatalogMetrics) SetEntries(contentType string, active, archived int) {
	if c.entries == nil {
		c.entries = make(map[string][2]int)
	}
	c.entries[contentType] = [2]int{active, archived}
}

// testEntry builds an entry whose md5sum tail, and so its content id, is
// controlled by the caller.
func testEntry(t *testing.T, contentType catalog.ContentType, uidHex, name string, base uint32) *catalog.Entry {
	t.Helper()

	uid, err := catalog.ParseUniqueID(uidHex)
	require.NoError(t, err)

	var sum catalog.MD5Sum
	copy(sum[:], name)
	sum[13] = byte(base)
	sum[14] = byte(base >> 8)
	sum[15] = byte(base >> 16)

	return &catalog.Entry{
		Type:       contentType,
		UniqueID:   uid,
		Name:       name,
		Version:    "1.0",
		Filesize:   1024,
		UploadDate: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		MD5Sum:     sum,
	}
}

// newTestApp builds an application with a pre-built snapshot, bypassing
// the reload pipeline.
func newTestApp(t *testing.T, cfg Config, storage store.Storage, entries ...*catalog.Entry) *Application {
	t.Helper()

	a, err := New(cfg, storage, nil, nil, nil)
	require.NoError(t, err)

	if len(entries) > 0 {
		snapshot, err := catalog.NewSnapshot(entries)
		require.NoError(t, err)
		a.snapshot.Store(snapshot)
	}
	return a
}

// infoNames decodes SERVER_INFO frames down to the entry names, in send
// order.
func infoNames(t *testing.T, frames [][]byte) []string {
	t.Helper()

	names := make([]string, 0, len(frames))
	for _, frame := range frames {
		packetType, payload, err := bananas.ParseFrame(frame)
		require.NoError(t, err)
		require.Equal(t, bananas.PacketServerInfo, packetType)

		r := bananas.NewReader(payload)
		_, err = r.Uint8() // content type
		require.NoError(t, err)
		_, err = r.Uint32() // content id
		require.NoError(t, err)
		_, err = r.Uint32() // filesize
		require.NoError(t, err)
		name, err := r.String()
		require.NoError(t, err)

		names = append(names, name)
	}
	return names
}

func TestNewRejectsMalformedBootstrapID(t *testing.T) {
	_, err := New(Config{BootstrapUniqueID: "not-hex"}, nil, nil, nil, nil)
	require.Error(t, err)
}

func TestNewStartsWithEmptySnapshot(t *testing.T) {
	a, err := New(Config{}, nil, nil, nil, nil)
	require.NoError(t, err)
	require.NotNil(t, a.Snapshot())
	require.Equal(t, 0, a.Snapshot().Len())
}
