package store

import (
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openttd/bananas-server/pkg/catalog"
)

func testEntry(t *testing.T) *catalog.Entry {
	t.Helper()

	uniqueID, err := catalog.ParseUniqueID("deadbeef")
	require.NoError(t, err)
	md5sum, err := catalog.ParseMD5Sum("00112233445566778899aabbccddeeff")
	require.NoError(t, err)

	return &catalog.Entry{
		Type:     catalog.ContentTypeNewGRF,
		UniqueID: uniqueID,
		MD5Sum:   md5sum,
	}
}

func TestBlobNaming(t *testing.T) {
	entry := testEntry(t)

	assert.Equal(t, "00112233445566778899aabbccddeeff.tar.gz", BlobName(entry))
	assert.Equal(t, "newgrf/deadbeef/00112233445566778899aabbccddeeff.tar.gz", BlobKey(entry))
}

func TestStreamWrapsReadFailures(t *testing.T) {
	t.Run("read failure carries the marker", func(t *testing.T) {
		stream := NewStream(io.NopCloser(iotest.ErrReader(errors.New("disk error"))))

		_, err := stream.Read(make([]byte, 8))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrStreamRead)
		assert.Contains(t, err.Error(), "disk error")
	})

	t.Run("eof passes through", func(t *testing.T) {
		stream := NewStream(io.NopCloser(strings.NewReader("abc")))

		data, err := io.ReadAll(stream)
		require.NoError(t, err)
		assert.Equal(t, "abc", string(data))

		_, err = stream.Read(make([]byte, 1))
		assert.Equal(t, io.EOF, err)
	})
}
