package web

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterPerAddress(t *testing.T) {
	limiter := newRateLimiter(0.001, 2)

	assert.True(t, limiter.Allow("203.0.113.1"))
	assert.True(t, limiter.Allow("203.0.113.1"))
	assert.False(t, limiter.Allow("203.0.113.1"), "burst exhausted")

	assert.True(t, limiter.Allow("203.0.113.2"), "addresses have independent buckets")
}

func TestRateLimiterRefills(t *testing.T) {
	limiter := newRateLimiter(100, 1)

	require.True(t, limiter.Allow("203.0.113.1"))
	require.False(t, limiter.Allow("203.0.113.1"))

	time.Sleep(15 * time.Millisecond)
	assert.True(t, limiter.Allow("203.0.113.1"))
}

func TestRateLimiterResetsAtCap(t *testing.T) {
	limiter := newRateLimiter(0.001, 1)

	require.True(t, limiter.Allow("203.0.113.1"))
	require.False(t, limiter.Allow("203.0.113.1"))

	for i := 0; i < rateLimiterMaxClients; i++ {
		limiter.Allow(fmt.Sprintf("10.%d.%d.%d", i>>16&0xFF, i>>8&0xFF, i&0xFF))
	}

	// The map reset along the way, so the first client earned a fresh
	// bucket.
	assert.True(t, limiter.Allow("203.0.113.1"))
}
