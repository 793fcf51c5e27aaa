package extract

import (
	"sync"
	"time"
)

// PointsMetadata holds the per-location endpoint URLs the points lookup
// resolves. The URLs are stable for a location, so they are cached.
type PointsMetadata struct {
	ForecastURL       string
	ForecastHourlyURL string
	StationsURL       string
}

// pointsCache caches the points lookup for a TTL so routine extract runs do
// not repeat it.
type pointsCache struct {
	mu        sync.Mutex
	meta      *PointsMetadata
	fetchedAt time.Time
	ttl       time.Duration
	now       func() time.Time
}

func newPointsCache(ttl time.Duration) *pointsCache {
	return &pointsCache{ttl: ttl, now: time.Now}
}

func (c *pointsCache) get() (*PointsMetadata, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.meta == nil || c.now().Sub(c.fetchedAt) > c.ttl {
		return nil, false
	}
	return c.meta, true
}

func (c *pointsCache) put(meta *PointsMetadata) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.meta = meta
	c.fetchedAt = c.now()
}
