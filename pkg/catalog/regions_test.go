package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegionByCode(t *testing.T) {
	region, ok := RegionByCode("nl")
	require.True(t, ok)
	assert.Equal(t, "Netherlands", region.Name)
	assert.Equal(t, "western-europe", region.Parent)

	_, ok = RegionByCode("atlantis")
	assert.False(t, ok)
}

func TestRegionTags(t *testing.T) {
	t.Run("country expands through ancestors", func(t *testing.T) {
		assert.Equal(t, []string{"netherlands", "western europe", "europe"}, RegionTags("nl"))
	})

	t.Run("root has no ancestors", func(t *testing.T) {
		assert.Equal(t, []string{"europe"}, RegionTags("europe"))
	})

	t.Run("unknown code falls back to itself", func(t *testing.T) {
		assert.Equal(t, []string{"atlantis"}, RegionTags("Atlantis"))
	})
}

func TestRegionTableParentsExist(t *testing.T) {
	for code, region := range regionTable {
		if region.Parent == "" {
			continue
		}
		_, ok := regionTable[region.Parent]
		assert.True(t, ok, "parent %q of %q missing", region.Parent, code)
	}
}
