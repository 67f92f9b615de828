package render

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// MethodNetwork marks data read from a captured network response.
const MethodNetwork = "network_capture"

// CapturedResponse is a response body kept by Capture.
type CapturedResponse struct {
	URL         string            `json:"url"`
	Method      string            `json:"method"`
	Status      int               `json:"status"`
	ContentType string            `json:"content_type"`
	Body        string            `json:"body"`
	Headers     map[string]string `json:"headers,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

// IsJSON reports a JSON content type.
func (c CapturedResponse) IsJSON() bool {
	return strings.Contains(strings.ToLower(c.ContentType), "json")
}

// IsCalendar reports an iCalendar content type.
func (c CapturedResponse) IsCalendar() bool {
	return strings.Contains(strings.ToLower(c.ContentType), "calendar")
}

var capturedTypes = []string{"json", "calendar", "text"}

// keepResponse decides whether a response is worth reading.
func keepResponse(r Response, patterns []string) bool {
	if !r.OK() {
		return false
	}
	if len(patterns) > 0 {
		u := strings.ToLower(r.URL)
		matched := false
		for _, p := range patterns {
			if strings.Contains(u, strings.ToLower(p)) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return containsAny(strings.ToLower(r.ContentType), capturedTypes)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// Capture loads url and returns the successful JSON, calendar and text
// responses whose URL contains one of patterns (all of them when patterns is
// empty). After navigation it waits for network quiet plus a fixed settle
// delay to catch late requests. A body that cannot be read is skipped.
func (f *Fetcher) Capture(ctx context.Context, url string, patterns []string, opts FetchOptions) ([]CapturedResponse, error) {
	if err := f.pool.ready(); err != nil {
		return nil, err
	}
	ctx, span := tracer.Start(ctx, "render.capture")
	defer span.End()

	cfg := f.cfg
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = cfg.Timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := f.pool.RateLimit(ctx, url, cfg.DomainDelay); err != nil {
		return nil, err
	}

	var out []CapturedResponse
	err := f.pool.WithSession(ctx, func(ctx context.Context, s Session) error {
		var (
			mu   sync.Mutex
			seen []Response
		)
		s.OnResponse(func(r Response) {
			if !keepResponse(r, patterns) {
				return
			}
			mu.Lock()
			seen = append(seen, r)
			mu.Unlock()
		})
		if err := s.Intercept(Blocker(cfg)); err != nil {
			return fmt.Errorf("install interceptor: %w", err)
		}
		if _, err := f.navigate(ctx, s, url, cfg); err != nil {
			return err
		}
		f.waitIdle(ctx, s, f.idleWait)
		if !opts.SkipConsent {
			dismissConsent(ctx, s, f.probes, f.patterns)
		}
		sleep(ctx, f.settle)

		mu.Lock()
		kept := append([]Response(nil), seen...)
		mu.Unlock()
		for _, r := range kept {
			if r.Body == nil {
				continue
			}
			body, err := r.Body(ctx)
			if err != nil {
				f.logger.Debug("skip unreadable response", "url", r.URL, "err", err)
				continue
			}
			out = append(out, CapturedResponse{
				URL:         r.URL,
				Method:      r.Method,
				Status:      r.Status,
				ContentType: r.ContentType,
				Body:        body,
				Headers:     r.Headers,
				Timestamp:   time.Now().UTC(),
			})
		}
		return nil
	})
	if err != nil {
		f.metrics.Fetch("error", 0)
		return nil, err
	}
	f.logger.Debug("network capture finished", "url", url, "responses", len(out))
	return out, nil
}
