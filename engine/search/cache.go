package search

import (
	"container/list"
	"fmt"
	"sync"
	"time"
)

// cacheKey identifies a cached search by (query, count, recency).
func cacheKey(query string, count, recencyDays int) string {
	return fmt.Sprintf("%s::%d::%d", query, count, recencyDays)
}

type cacheEntry struct {
	key     string
	results []Result
	stored  time.Time
}

// resultCache is a bounded TTL cache with LRU eviction.
type resultCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	max     int
	order   *list.List
	entries map[string]*list.Element
	now     func() time.Time
}

func newResultCache(ttl time.Duration, max int) *resultCache {
	if max <= 0 {
		max = 1024
	}
	return &resultCache{
		ttl:     ttl,
		max:     max,
		order:   list.New(),
		entries: make(map[string]*list.Element),
		now:     time.Now,
	}
}

func (c *resultCache) get(key string) ([]Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	e := el.Value.(*cacheEntry)
	if c.now().Sub(e.stored) >= c.ttl {
		c.order.Remove(el)
		delete(c.entries, key)
		return nil, false
	}
	c.order.MoveToFront(el)
	return cloneResults(e.results), true
}

func (c *resultCache) put(key string, results []Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		e := el.Value.(*cacheEntry)
		e.results = cloneResults(results)
		e.stored = c.now()
		c.order.MoveToFront(el)
		return
	}
	el := c.order.PushFront(&cacheEntry{key: key, results: cloneResults(results), stored: c.now()})
	c.entries[key] = el
	for c.order.Len() > c.max {
		last := c.order.Back()
		c.order.Remove(last)
		delete(c.entries, last.Value.(*cacheEntry).key)
	}
}

// cloneResults copies results so callers may mutate Score and Tier.
func cloneResults(in []Result) []Result {
	if in == nil {
		return nil
	}
	out := make([]Result, len(in))
	copy(out, in)
	return out
}
