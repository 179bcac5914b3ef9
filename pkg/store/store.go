// Package store defines the storage backend used to enumerate the content
// tree and to open read streams for downloads. Two implementations exist:
// a local filesystem backend and an S3 backend, both keyed by
// {type-folder}/{unique-id-hex}/{md5sum-hex}.tar.gz.
package store

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/openttd/bananas-server/pkg/catalog"
)

// ErrStreamRead marks a backend read failure in the middle of a transfer,
// distinguishing it from the normal end of the content.
var ErrStreamRead = errors.New("stream read failed")

// Stream is an open download. Failures while reading are wrapped in
// ErrStreamRead; the end of the content is a normal io.EOF. Callers must
// close the stream, also when aborting mid-transfer.
type Stream interface {
	io.ReadCloser
}

// Storage enumerates the content tree and opens streams for entries.
//
// Implementations are safe for concurrent use. ClearCache is called by the
// reload supervisor before every reload so per-process caches (object
// listings, clients) are dropped and rebuilt during the reload.
type Storage interface {
	// ListFolder returns the unique-id folder names of one content type,
	// sorted. A type with no content yields an empty slice.
	ListFolder(ctx context.Context, contentType catalog.ContentType) ([]string, error)

	// ListVersions returns the blob filenames below one unique-id folder,
	// sorted.
	ListVersions(ctx context.Context, contentType catalog.ContentType, uniqueIDHex string) ([]string, error)

	// GetStream opens the archive blob of an entry for reading.
	GetStream(ctx context.Context, entry *catalog.Entry) (Stream, error)

	// ClearCache drops any cached state so the next calls see fresh data.
	ClearCache()
}

type stream struct {
	rc io.ReadCloser
}

// NewStream wraps a reader so every read failure carries ErrStreamRead.
// io.EOF passes through untouched.
func NewStream(rc io.ReadCloser) Stream {
	return &stream{rc: rc}
}

func (s *stream) Read(p []byte) (int, error) {
	n, err := s.rc.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, fmt.Errorf("%w: %v", ErrStreamRead, err)
	}
	return n, err
}

func (s *stream) Close() error {
	return s.rc.Close()
}

// BlobName is the filename an entry's archive is stored under.
func BlobName(entry *catalog.Entry) string {
	return entry.MD5Sum.Hex() + ".tar.gz"
}

// BlobKey is the full storage key of an entry's archive, relative to the
// backend root.
func BlobKey(entry *catalog.Entry) string {
	return entry.Type.Folder() + "/" + entry.UniqueID.Hex() + "/" + BlobName(entry)
}
