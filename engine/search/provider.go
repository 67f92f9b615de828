package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/WessleyAI/schedule-fallback/engine/domain"
	"github.com/WessleyAI/schedule-fallback/pkg/fn"
)

// Provider names accepted by NewProvider.
const (
	ProviderSerpAPI    = "serpapi"
	ProviderBing       = "bing"
	ProviderGoogleCSE  = "google_cse"
	ProviderDuckDuckGo = "duckduckgo"
	ProviderGoogleNews = "googlenews"
)

const userAgent = "Mozilla/5.0 (compatible; ScheduleFallback/1.0)"

// ProviderConfig carries credentials for every supported backend.
type ProviderConfig struct {
	SerpAPIKey   string
	BingKey      string
	GoogleCSEKey string
	GoogleCSECX  string
	HTTPClient   *http.Client
}

// NewProvider builds the named backend. Missing credentials and unknown
// names are configuration errors.
func NewProvider(name string, cfg ProviderConfig) (Provider, error) {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 20 * time.Second}
	}
	h := httpGetter{client: hc, retry: fn.RetryOpts{MaxAttempts: 2, InitialWait: 2 * time.Second, MaxWait: 10 * time.Second}}

	switch strings.ToLower(strings.TrimSpace(name)) {
	case ProviderSerpAPI:
		if cfg.SerpAPIKey == "" {
			return nil, domain.NewConfigurationError("search", "SERPAPI_KEY not set")
		}
		return &SerpAPI{Key: cfg.SerpAPIKey, http: h}, nil
	case ProviderBing:
		if cfg.BingKey == "" {
			return nil, domain.NewConfigurationError("search", "BING_SEARCH_KEY not set")
		}
		return &Bing{Key: cfg.BingKey, http: h}, nil
	case ProviderGoogleCSE:
		if cfg.GoogleCSEKey == "" || cfg.GoogleCSECX == "" {
			return nil, domain.NewConfigurationError("search", "GOOGLE_CSE_KEY and GOOGLE_CSE_CX must both be set")
		}
		return &GoogleCSE{Key: cfg.GoogleCSEKey, CX: cfg.GoogleCSECX, http: h}, nil
	case ProviderDuckDuckGo:
		return &DuckDuckGo{http: h}, nil
	case ProviderGoogleNews:
		return &NewsFeed{http: h}, nil
	default:
		return nil, domain.NewConfigurationError("search", fmt.Sprintf("unknown provider %q", name))
	}
}

// httpGetter performs GET requests with a small retry budget.
type httpGetter struct {
	client *http.Client
	retry  fn.RetryOpts
}

func (h httpGetter) get(ctx context.Context, rawURL string, header http.Header) ([]byte, error) {
	opts := h.retry
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}
	client := h.client
	if client == nil {
		client = http.DefaultClient
	}
	return fn.Retry(ctx, opts, func(ctx context.Context, _ int) fn.Result[[]byte] {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return fn.Err[[]byte](err)
		}
		req.Header.Set("User-Agent", userAgent)
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
		resp, err := client.Do(req)
		if err != nil {
			return fn.Err[[]byte](err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fn.Errf[[]byte]("status %d", resp.StatusCode)
		}
		body, err := io.ReadAll(io.LimitReader(resp.Body, 4*1024*1024))
		if err != nil {
			return fn.Err[[]byte](err)
		}
		return fn.Ok(body)
	}).Unwrap()
}

var publishedLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.0000000Z",
	"2006-01-02T15:04:05",
	"Jan 2, 2006",
	"January 2, 2006",
	"2006-01-02",
}

// parsePublished reads a provider date string; relative dates are ignored.
func parsePublished(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range publishedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
