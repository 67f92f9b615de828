package render

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/WessleyAI/schedule-fallback/engine/domain"
)

// PageCache stores rendered pages by key. Entries are immutable snapshots,
// so concurrent writers to one key may race with last-write-wins.
type PageCache interface {
	Get(ctx context.Context, key string) (*RenderedPage, bool)
	Put(ctx context.Context, key string, page *RenderedPage)
	Close() error
}

// OpenPageCache builds a cache from a DSN: "memory" (or ""), "off", or
// "sqlite:<path>". "off" returns a nil cache.
func OpenPageCache(dsn string, ttl time.Duration, logger *slog.Logger) (PageCache, error) {
	switch {
	case dsn == "" || dsn == "memory":
		return NewMemoryCache(ttl, 256), nil
	case dsn == "off":
		return nil, nil
	case strings.HasPrefix(dsn, "sqlite:"):
		c, err := NewSQLiteCache(strings.TrimPrefix(dsn, "sqlite:"), ttl, logger)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, domain.NewConfigurationError("page cache", "unknown cache "+dsn)
	}
}

func cacheKey(url, waitFor string) string {
	if waitFor == "" {
		return url
	}
	return url + "#wait=" + waitFor
}

type memEntry struct {
	page   RenderedPage
	stored time.Time
}

// MemoryCache is an in-process TTL cache bounded to max entries; when full
// the oldest entry is dropped.
type MemoryCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	max     int
	entries map[string]memEntry
	now     func() time.Time
}

// NewMemoryCache creates a MemoryCache.
func NewMemoryCache(ttl time.Duration, max int) *MemoryCache {
	if max <= 0 {
		max = 256
	}
	return &MemoryCache{ttl: ttl, max: max, entries: make(map[string]memEntry), now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, key string) (*RenderedPage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.ttl > 0 && c.now().Sub(e.stored) >= c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	p := e.page
	return &p, true
}

func (c *MemoryCache) Put(_ context.Context, key string, page *RenderedPage) {
	if page == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; !ok && len(c.entries) >= c.max {
		var oldest string
		var at time.Time
		for k, e := range c.entries {
			if oldest == "" || e.stored.Before(at) {
				oldest, at = k, e.stored
			}
		}
		delete(c.entries, oldest)
	}
	c.entries[key] = memEntry{page: *page, stored: c.now()}
}

func (c *MemoryCache) Close() error { return nil }
