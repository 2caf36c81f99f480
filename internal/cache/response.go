// Package cache stores encoded answer payloads for repeated queries.
package cache

import (
	"strconv"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const defaultMaxEntries = 256

// Config configures a ResponseCache.
type Config struct {
	TTL        time.Duration // <= 0 disables caching
	MaxEntries int           // default: 256
}

// ResponseCache is a bounded TTL cache keyed by query text.
// Payloads are stored as encoded bytes so a hit replays the exact response body.
type ResponseCache struct {
	ttl    time.Duration
	lru    *expirable.LRU[string, []byte]
	hits   atomic.Int64
	misses atomic.Int64
}

func New(cfg Config) *ResponseCache {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = defaultMaxEntries
	}
	c := &ResponseCache{ttl: cfg.TTL}
	if cfg.TTL > 0 {
		c.lru = expirable.NewLRU[string, []byte](cfg.MaxEntries, nil, cfg.TTL)
	}
	return c
}

// Key builds the cache key for a query asked with a given result count.
func Key(query string, k int) string {
	return strconv.Itoa(k) + "\x00" + query
}

// Enabled reports whether the cache stores anything.
func (c *ResponseCache) Enabled() bool { return c.lru != nil }

// TTL returns the configured time-to-live.
func (c *ResponseCache) TTL() time.Duration { return c.ttl }

// Get returns the payload stored for key if it has not expired.
func (c *ResponseCache) Get(key string) ([]byte, bool) {
	if c.lru == nil {
		c.misses.Add(1)
		return nil, false
	}
	payload, ok := c.lru.Get(key)
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return payload, true
}

// Set stores payload under key, evicting the least recently used entry when full.
func (c *ResponseCache) Set(key string, payload []byte) {
	if c.lru == nil {
		return
	}
	stored := make([]byte, len(payload))
	copy(stored, payload)
	c.lru.Add(key, stored)
}

// Purge drops every entry.
func (c *ResponseCache) Purge() {
	if c.lru != nil {
		c.lru.Purge()
	}
}

// Len returns the number of live entries.
func (c *ResponseCache) Len() int {
	if c.lru == nil {
		return 0
	}
	return c.lru.Len()
}

// Stats returns hit and miss counts since creation.
func (c *ResponseCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
