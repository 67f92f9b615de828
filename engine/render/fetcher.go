package render

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/WessleyAI/schedule-fallback/engine/domain"
	"github.com/WessleyAI/schedule-fallback/pkg/fn"
	"github.com/WessleyAI/schedule-fallback/pkg/metrics"
)

var tracer = otel.Tracer("schedule-fallback/engine/render")

// MethodDOM marks pages read from the rendered DOM.
const MethodDOM = "rendered_dom"

const networkIdleTimeout = 5 * time.Second

// RenderedPage is the final DOM of a navigated page.
type RenderedPage struct {
	URL         string        `json:"url"`
	HTML        string        `json:"-"`
	Status      int           `json:"status"`
	RetrievedAt time.Time     `json:"retrieved_at"`
	LoadTime    time.Duration `json:"load_time"`
	Method      string        `json:"method"`
	FromCache   bool          `json:"from_cache"`
}

// FetchOptions tune a single fetch. Zero values mean "use the pool config".
type FetchOptions struct {
	// WaitFor is a CSS selector that must become visible before capture.
	WaitFor string
	Timeout time.Duration
	// SkipConsent disables the cookie-banner heuristic.
	SkipConsent bool
}

// Fetcher loads pages through a Pool.
type Fetcher struct {
	pool     *Pool
	cfg      Config
	probes   []ConsentProbe
	patterns []string
	cache    PageCache
	metrics  *metrics.Engine
	logger   *slog.Logger

	retryWait time.Duration
	settle    time.Duration
	idleWait  time.Duration
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithCache sets the page cache. A nil cache disables caching.
func WithCache(c PageCache) FetcherOption { return func(f *Fetcher) { f.cache = c } }

// WithConsentProbes replaces the consent-dismissal probes and patterns.
func WithConsentProbes(probes []ConsentProbe, patterns []string) FetcherOption {
	return func(f *Fetcher) {
		f.probes = probes
		f.patterns = patterns
	}
}

// WithMetrics records fetch outcomes.
func WithMetrics(m *metrics.Engine) FetcherOption { return func(f *Fetcher) { f.metrics = m } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) FetcherOption { return func(f *Fetcher) { f.logger = l } }

// NewFetcher creates a Fetcher. pool may be nil, in which case every fetch
// fails with a configuration error.
func NewFetcher(pool *Pool, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		pool:      pool,
		probes:    DefaultConsentProbes,
		patterns:  ConsentPatterns,
		logger:    slog.Default(),
		retryWait: time.Second,
		settle:    2 * time.Second,
		idleWait:  10 * time.Second,
	}
	if pool != nil {
		f.cfg = pool.Config()
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Fetch performs a single rendered fetch with the pool configuration.
func (f *Fetcher) Fetch(ctx context.Context, url string, opts FetchOptions) (*RenderedPage, error) {
	if err := f.pool.ready(); err != nil {
		return nil, err
	}
	return f.fetchOnce(ctx, url, opts, f.cfg)
}

// FetchWithRetry serves from the page cache when possible, otherwise
// fetches with up to cfg.MaxRetries attempts, sleeping BackoffBase^attempt
// seconds between them. Attempts after the first force every
// resource-blocking flag on. Exhausted retries yield a *domain.FetchError;
// configuration problems are returned as-is.
func (f *Fetcher) FetchWithRetry(ctx context.Context, url string, opts FetchOptions) (*RenderedPage, error) {
	if err := f.pool.ready(); err != nil {
		return nil, err
	}
	key := cacheKey(url, opts.WaitFor)
	if f.cache != nil {
		if p, ok := f.cache.Get(ctx, key); ok {
			f.metrics.Fetch("cached", 0)
			p.FromCache = true
			return p, nil
		}
	}

	attempts := 0
	res := fn.Retry(ctx, fn.RetryOpts{
		MaxAttempts: f.cfg.MaxRetries,
		InitialWait: f.retryWait,
		Factor:      f.cfg.BackoffBase,
		OnRetry: func(attempt int, err error) {
			f.logger.Warn("fetch attempt failed", "url", url, "attempt", attempt+1, "err", err)
		},
	}, func(ctx context.Context, attempt int) fn.Result[*RenderedPage] {
		attempts = attempt + 1
		cfg := f.cfg
		if attempt > 0 {
			cfg = cfg.forceBlocking()
		}
		return fn.FromPair(f.fetchOnce(ctx, url, opts, cfg))
	})

	page, err := res.Unwrap()
	if err != nil {
		if domain.IsFatal(err) {
			return nil, err
		}
		return nil, &domain.FetchError{URL: url, Attempts: max(attempts, 1), Cause: err}
	}
	if f.cache != nil && page.Status < 400 {
		f.cache.Put(ctx, key, page)
	}
	return page, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, url string, opts FetchOptions, cfg Config) (*RenderedPage, error) {
	ctx, span := tracer.Start(ctx, "render.fetch")
	span.SetAttributes(attribute.String("url", url))
	defer span.End()

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = cfg.Timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	if err := f.pool.RateLimit(ctx, url, cfg.DomainDelay); err != nil {
		return nil, err
	}

	var page *RenderedPage
	err := f.pool.WithSession(ctx, func(ctx context.Context, s Session) error {
		if err := s.Intercept(Blocker(cfg)); err != nil {
			return fmt.Errorf("install interceptor: %w", err)
		}
		status, err := f.navigate(ctx, s, url, cfg)
		if err != nil {
			return err
		}
		f.waitIdle(ctx, s, networkIdleTimeout)
		if !opts.SkipConsent {
			if dismissConsent(ctx, s, f.probes, f.patterns) {
				f.logger.Debug("consent banner dismissed", "url", url)
			}
		}
		if opts.WaitFor != "" {
			if err := s.WaitVisible(ctx, opts.WaitFor); err != nil {
				return fmt.Errorf("wait for %q: %w", opts.WaitFor, err)
			}
		}
		html, err := s.HTML(ctx)
		if err != nil {
			return fmt.Errorf("read content: %w", err)
		}
		page = &RenderedPage{
			URL:         url,
			HTML:        html,
			Status:      status,
			RetrievedAt: time.Now().UTC(),
			LoadTime:    time.Since(start),
			Method:      MethodDOM,
		}
		return nil
	})
	if err != nil {
		f.metrics.Fetch("error", time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	f.metrics.Fetch("ok", page.LoadTime)
	span.SetAttributes(attribute.Int("status", page.Status))
	return page, nil
}

func (f *Fetcher) navigate(ctx context.Context, s Session, url string, cfg Config) (int, error) {
	navCtx := ctx
	if cfg.NavTimeout > 0 {
		var cancel context.CancelFunc
		navCtx, cancel = context.WithTimeout(ctx, cfg.NavTimeout)
		defer cancel()
	}
	status, err := s.Navigate(navCtx, url)
	if err != nil {
		return 0, fmt.Errorf("navigate: %w", err)
	}
	return status, nil
}

// waitIdle is best effort: a page that never goes quiet is still read.
func (f *Fetcher) waitIdle(ctx context.Context, s Session, d time.Duration) {
	idleCtx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	if err := s.WaitNetworkIdle(idleCtx); err != nil {
		f.logger.Debug("network never went idle", "err", err)
	}
}
