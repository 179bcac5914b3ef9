package app

import "sync"

// versionCacheLimit bounds the memory spent on remembering which client
// versions already counted toward the version metric.
const versionCacheLimit = 10000

// versionCache suppresses duplicate client-version observations per
// address. Suppression is best effort: the cache holds at most limit
// addresses and evicts the oldest first, so a long-lived client counts
// again once enough new addresses have pushed it out.
type versionCache struct {
	mu    sync.Mutex
	limit int
	seen  map[string]string

	// order holds the addresses in seen, first recorded first.
	order []string
}

func newVersionCache(limit int) *versionCache {
	return &versionCache{
		limit: limit,
		seen:  make(map[string]string),
	}
}

// Record remembers that address announced version and reports whether
// the pair was new.
func (c *versionCache) Record(address, version string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if previous, ok := c.seen[address]; ok {
		if previous == version {
			return false
		}
		c.seen[address] = version
		return true
	}

	if len(c.seen) >= c.limit {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.seen, oldest)
	}
	c.seen[address] = version
	c.order = append(c.order, address)
	return true
}
