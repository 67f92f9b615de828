package search

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/WessleyAI/schedule-fallback/engine/domain"
	"github.com/WessleyAI/schedule-fallback/pkg/fn"
	"github.com/WessleyAI/schedule-fallback/pkg/metrics"
	"github.com/WessleyAI/schedule-fallback/pkg/resilience"
)

// Options configures a Client.
type Options struct {
	// MinInterval is the minimum delay between two provider calls.
	MinInterval time.Duration
	// CacheTTL is how long a (query, count, recency) result stays cached.
	CacheTTL time.Duration
	// CacheSize bounds the number of cached queries.
	CacheSize int
	// Breaker guards the provider; zero value uses resilience defaults.
	Breaker resilience.BreakerOpts
}

// DefaultOptions mirrors the documented defaults: 1s between calls, 1h TTL.
func DefaultOptions() Options {
	return Options{
		MinInterval: time.Second,
		CacheTTL:    time.Hour,
		CacheSize:   1024,
		Breaker:     resilience.DefaultBreakerOpts,
	}
}

// Client adds caching, pacing and circuit breaking to a Provider. It is safe
// for concurrent use.
type Client struct {
	provider Provider
	cache    *resultCache
	limiter  *rate.Limiter
	breaker  *resilience.Breaker
	metrics  *metrics.Engine
	logger   *slog.Logger
}

// NewClient wraps provider. m and logger may be nil.
func NewClient(provider Provider, opts Options, m *metrics.Engine, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = time.Hour
	}
	limit := rate.Inf
	if opts.MinInterval > 0 {
		limit = rate.Every(opts.MinInterval)
	}
	return &Client{
		provider: provider,
		cache:    newResultCache(opts.CacheTTL, opts.CacheSize),
		limiter:  rate.NewLimiter(limit, 1),
		breaker:  resilience.NewBreaker(opts.Breaker),
		metrics:  m,
		logger:   logger,
	}
}

// ProviderName returns the backend name used in provenance.
func (c *Client) ProviderName() string { return c.provider.Name() }

// Search returns hits for query. Failures are returned as
// *domain.SearchProviderError; nothing is cached on failure.
func (c *Client) Search(ctx context.Context, query string, count, recencyDays int) ([]Result, error) {
	key := cacheKey(query, count, recencyDays)
	if hit, ok := c.cache.get(key); ok {
		c.logger.Debug("search cache hit", "query", query)
		c.metrics.SearchQuery(c.provider.Name(), "cached")
		return hit, nil
	}

	res := resilience.CallResult(c.breaker, ctx, func(ctx context.Context) fn.Result[[]Result] {
		if err := c.limiter.Wait(ctx); err != nil {
			return fn.Err[[]Result](err)
		}
		return fn.FromPair(c.provider.Search(ctx, query, count, recencyDays))
	})
	results, err := res.Unwrap()
	if err != nil {
		c.metrics.SearchQuery(c.provider.Name(), "error")
		c.logger.Warn("search failed", "provider", c.provider.Name(), "query", query, "err", err)
		return nil, &domain.SearchProviderError{Provider: c.provider.Name(), Query: query, Cause: err}
	}
	c.metrics.SearchQuery(c.provider.Name(), "ok")
	c.cache.put(key, results)
	return cloneResults(results), nil
}
