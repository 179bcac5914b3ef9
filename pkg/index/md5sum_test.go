package index

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openttd/bananas-server/pkg/catalog"
	"github.com/openttd/bananas-server/pkg/store"
	"github.com/openttd/bananas-server/pkg/store/local"
)

func TestBuildMD5SumMapping(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "newgrf/deadbeef/"+md5HexA+".tar.gz", "blob")
	writeFile(t, root, "newgrf/deadbeef/"+md5HexB+".tar.gz", "blob")
	writeFile(t, root, "newgrf/deadbeef/notes.txt", "not a blob")
	writeFile(t, root, "newgrf/not-hex/"+md5HexA+".tar.gz", "blob")
	writeFile(t, root, "base-graphics/cafebabe/"+md5HexB+".tar.gz", "blob")

	mapping, err := BuildMD5SumMapping(context.Background(), local.New(root))
	require.NoError(t, err)

	uid := mustUID(t, "deadbeef")
	md5A := mustMD5(t, md5HexA)
	md5B := mustMD5(t, md5HexB)

	got, ok := mapping.Lookup(catalog.ContentTypeNewGRF, uid, md5A.Partial())
	require.True(t, ok)
	assert.Equal(t, md5A, got)

	got, ok = mapping.Lookup(catalog.ContentTypeNewGRF, uid, md5B.Partial())
	require.True(t, ok)
	assert.Equal(t, md5B, got)

	got, ok = mapping.Lookup(catalog.ContentTypeBaseGraphics, mustUID(t, "cafebabe"), md5B.Partial())
	require.True(t, ok)
	assert.Equal(t, md5B, got)

	_, ok = mapping.Lookup(catalog.ContentTypeScenario, uid, md5A.Partial())
	assert.False(t, ok)
}

type failingStorage struct{}

func (failingStorage) ListFolder(context.Context, catalog.ContentType) ([]string, error) {
	return nil, errors.New("listing unavailable")
}

func (failingStorage) ListVersions(context.Context, catalog.ContentType, string) ([]string, error) {
	return nil, errors.New("listing unavailable")
}

func (failingStorage) GetStream(context.Context, *catalog.Entry) (store.Stream, error) {
	return nil, errors.New("listing unavailable")
}

func (failingStorage) ClearCache() {}

func TestBuildMD5SumMappingListingFailure(t *testing.T) {
	_, err := BuildMD5SumMapping(context.Background(), failingStorage{})
	assert.Error(t, err)
}
