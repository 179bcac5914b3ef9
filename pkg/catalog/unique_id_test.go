package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUniqueID(t *testing.T) {
	id, err := ParseUniqueID("4f474658")
	require.NoError(t, err)
	assert.Equal(t, UniqueID{0x4f, 0x47, 0x46, 0x58}, id)
	assert.Equal(t, "4f474658", id.Hex())

	_, err = ParseUniqueID("4f4746")
	assert.Error(t, err, "too short")

	_, err = ParseUniqueID("not-hex!")
	assert.Error(t, err)
}

func TestUniqueIDWireOrder(t *testing.T) {
	id := UniqueID{0x01, 0x02, 0x03, 0x04}

	t.Run("byte-swapped types", func(t *testing.T) {
		for _, contentType := range []ContentType{ContentTypeNewGRF, ContentTypeScenario, ContentTypeHeightmap} {
			assert.Equal(t, uint32(0x01020304), id.Wire(contentType), "%s", contentType)
			assert.Equal(t, id, UniqueIDFromWire(contentType, 0x01020304), "%s", contentType)
		}
	})

	t.Run("little-endian types", func(t *testing.T) {
		for _, contentType := range []ContentType{
			ContentTypeBaseGraphics, ContentTypeAI, ContentTypeAILibrary,
			ContentTypeBaseSounds, ContentTypeBaseMusic, ContentTypeGame, ContentTypeGameLibrary,
		} {
			assert.Equal(t, uint32(0x04030201), id.Wire(contentType), "%s", contentType)
			assert.Equal(t, id, UniqueIDFromWire(contentType, 0x04030201), "%s", contentType)
		}
	})

	t.Run("round trip", func(t *testing.T) {
		for _, contentType := range AllContentTypes() {
			wire := id.Wire(contentType)
			assert.Equal(t, id, UniqueIDFromWire(contentType, wire))
		}
	})
}
