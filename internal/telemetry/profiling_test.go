package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartDisabled(t *testing.T) {
	stop, err := Start(Config{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, stop)

	assert.NoError(t, stop())
}

func TestStartRejectsUnknownType(t *testing.T) {
	_, err := Start(Config{
		Enabled:      true,
		ServiceName:  "bananas-server",
		Endpoint:     "http://localhost:4040",
		ProfileTypes: []string{"bogus"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bogus")
}

func TestProfileTypeNames(t *testing.T) {
	for _, name := range []string{
		"cpu", "alloc_objects", "alloc_space", "inuse_objects", "inuse_space",
		"goroutines", "mutex_count", "mutex_duration", "block_count", "block_duration",
	} {
		_, ok := profileTypes[name]
		assert.True(t, ok, "profile type %q", name)
	}

	_, ok := profileTypes["flamegraph"]
	assert.False(t, ok)
}
