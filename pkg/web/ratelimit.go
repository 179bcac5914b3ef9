package web

import (
	"sync"

	"golang.org/x/time/rate"
)

// rateLimiterMaxClients bounds the per-address limiter map. Past this
// the map is reset wholesale and clients re-earn fresh buckets, which is
// acceptable for a throttle aimed at id scanners.
const rateLimiterMaxClients = 10000

// rateLimiter keeps one token bucket per client address.
type rateLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
}

func newRateLimiter(rps float64, burst int) *rateLimiter {
	return &rateLimiter{
		limit:    rate.Limit(rps),
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Allow reports whether the client may make one more request.
func (l *rateLimiter) Allow(address string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.limiters[address]
	if !ok {
		if len(l.limiters) >= rateLimiterMaxClients {
			l.limiters = make(map[string]*rate.Limiter)
		}
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[address] = limiter
	}

	return limiter.Allow()
}
