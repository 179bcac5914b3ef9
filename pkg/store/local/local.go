// Package local stores content archives on the local filesystem, laid out
// as {root}/{type-folder}/{unique-id-hex}/{md5sum-hex}.tar.gz.
package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/openttd/bananas-server/pkg/catalog"
	"github.com/openttd/bananas-server/pkg/store"
)

// Storage is a filesystem-backed content store.
type Storage struct {
	root string
}

// New returns a Storage rooted at the given directory. The directory does
// not have to exist yet; listings of missing folders are empty.
func New(root string) *Storage {
	return &Storage{root: root}
}

func (s *Storage) typeFolder(contentType catalog.ContentType) string {
	return filepath.Join(s.root, contentType.Folder())
}

// ListFolder returns the unique-id folder names of one content type.
func (s *Storage) ListFolder(ctx context.Context, contentType catalog.ContentType) ([]string, error) {
	return readDirNames(s.typeFolder(contentType))
}

// ListVersions returns the blob filenames below one unique-id folder.
func (s *Storage) ListVersions(ctx context.Context, contentType catalog.ContentType, uniqueIDHex string) ([]string, error) {
	return readDirNames(filepath.Join(s.typeFolder(contentType), uniqueIDHex))
}

// GetStream opens the archive blob of an entry.
func (s *Storage) GetStream(ctx context.Context, entry *catalog.Entry) (store.Stream, error) {
	path := filepath.Join(s.root, filepath.FromSlash(store.BlobKey(entry)))

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat content blob: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("content blob %s is a directory", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open content blob: %w", err)
	}
	return store.NewStream(f), nil
}

// ClearCache is a no-op; the filesystem is read fresh on every call.
func (s *Storage) ClearCache() {}

func readDirNames(dir string) ([]string, error) {
	dirents, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	names := make([]string, 0, len(dirents))
	for _, dirent := range dirents {
		names = append(names, dirent.Name())
	}
	return names, nil
}
