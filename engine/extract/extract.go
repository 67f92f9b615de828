// Package extract turns fetched pages into draft events and sessions. HTML
// is read with an ordered cascade of heuristics; captured JSON endpoints are
// read with an ordered list of shape matchers. Nothing is invented: events
// need a name and a date, sessions without a time stay TBD.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/WessleyAI/schedule-fallback/engine/domain"
	"github.com/WessleyAI/schedule-fallback/engine/render"
	"github.com/WessleyAI/schedule-fallback/engine/trust"
)

// Fetcher is the subset of render.Fetcher the extractor needs.
type Fetcher interface {
	FetchWithRetry(ctx context.Context, url string, opts render.FetchOptions) (*render.RenderedPage, error)
	Capture(ctx context.Context, url string, patterns []string, opts render.FetchOptions) ([]render.CapturedResponse, error)
}

// DefaultNetworkPatterns filter captured responses when a site has no hint.
var DefaultNetworkPatterns = []string{"schedule", "calendar", "event", "race", "session", "api"}

// maxEndpoints bounds how many scored JSON bodies are decoded per page.
const maxEndpoints = 3

// Extractor fetches pages and applies the extraction cascades.
type Extractor struct {
	fetcher Fetcher
	hints   *trust.Hints
	logger  *slog.Logger
}

// New creates an Extractor. hints may be nil.
func New(f Fetcher, hints *trust.Hints, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{fetcher: f, hints: hints, logger: logger}
}

func (x *Extractor) fetch(ctx context.Context, url string) (*render.RenderedPage, *goquery.Document, trust.SiteHint, error) {
	hint, _ := x.hints.For(url)
	page, err := x.fetcher.FetchWithRetry(ctx, url, render.FetchOptions{WaitFor: hint.WaitSelector})
	if err != nil {
		return nil, nil, hint, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		return nil, nil, hint, fmt.Errorf("parse %s: %w", url, err)
	}
	return page, doc, hint, nil
}

func pageFor(page *render.RenderedPage, season int, tier domain.Tier) Page {
	at := page.RetrievedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	return Page{URL: page.URL, Season: season, Tier: tier, RetrievedAt: at, Method: page.Method}
}

// ExtractSchedulePage reads season events from a schedule or calendar page.
// A page without recognisable events is a warning, not an error; the error
// return is reserved for fetch and configuration failures.
func (x *Extractor) ExtractSchedulePage(ctx context.Context, url, seriesName string, season int, tier domain.Tier) ([]domain.DraftEvent, []domain.Warning, error) {
	page, doc, hint, err := x.fetch(ctx, url)
	if err != nil {
		return nil, nil, err
	}
	events := ScheduleEvents(doc, pageFor(page, season, tier), hint.EventSelectors)
	x.logger.Debug("schedule page extracted", "url", url, "series", seriesName, "events", len(events))
	if len(events) == 0 {
		return nil, []domain.Warning{{
			Kind:      domain.WarnExtraction,
			Severity:  domain.SeverityWarning,
			Field:     "events",
			Message:   "Could not extract events from " + url,
			SourceURL: url,
		}}, nil
	}
	return events, nil, nil
}

// ExtractEventPage reads sessions from an event detail page.
func (x *Extractor) ExtractEventPage(ctx context.Context, url, eventName string, season int, tier domain.Tier) ([]domain.DraftSession, []domain.Warning, error) {
	page, doc, _, err := x.fetch(ctx, url)
	if err != nil {
		return nil, nil, err
	}
	sessions := EventSessions(doc, pageFor(page, season, tier))
	x.logger.Debug("event page extracted", "url", url, "event", eventName, "sessions", len(sessions))
	if len(sessions) == 0 {
		return nil, []domain.Warning{{
			Kind:      domain.WarnExtraction,
			Severity:  domain.SeverityWarning,
			Field:     "sessions",
			Message:   "No sessions extracted from " + url + ", times TBC",
			SourceURL: url,
		}}, nil
	}
	return sessions, nil, nil
}

// ExtractEndpoints loads url with network capture, scores the responses and
// decodes the best JSON bodies with the shape matchers. Events found this
// way record the endpoint they came from.
func (x *Extractor) ExtractEndpoints(ctx context.Context, url string, season int, tier domain.Tier) ([]domain.DraftEvent, []domain.Warning, error) {
	hint, _ := x.hints.For(url)
	patterns := hint.NetworkPatterns
	if len(patterns) == 0 {
		patterns = DefaultNetworkPatterns
	}
	captured, err := x.fetcher.Capture(ctx, url, patterns, render.FetchOptions{})
	if err != nil {
		return nil, nil, err
	}
	var warnings []domain.Warning
	tried := 0
	for _, sr := range render.DiscoverScheduleEndpoints(captured) {
		if !sr.Response.IsJSON() {
			continue
		}
		if tried == maxEndpoints {
			break
		}
		tried++
		p := Page{URL: url, Season: season, Tier: tier, RetrievedAt: sr.Response.Timestamp, Method: render.MethodNetwork}
		if p.RetrievedAt.IsZero() {
			p.RetrievedAt = time.Now().UTC()
		}
		events, shape, err := EventsFromJSON([]byte(sr.Response.Body), p)
		if err != nil {
			warnings = append(warnings, domain.Warning{
				Kind:      domain.WarnExtraction,
				Severity:  domain.SeverityInfo,
				Field:     "endpoint",
				Message:   err.Error(),
				SourceURL: sr.Response.URL,
			})
			continue
		}
		if len(events) == 0 {
			continue
		}
		for i := range events {
			events[i].Endpoints = []string{sr.Response.URL}
		}
		x.logger.Info("events read from network endpoint", "url", url, "endpoint", sr.Response.URL, "shape", shape, "events", len(events), "score", sr.Score)
		return events, warnings, nil
	}
	warnings = append(warnings, domain.Warning{
		Kind:      domain.WarnExtraction,
		Severity:  domain.SeverityInfo,
		Field:     "events",
		Message:   fmt.Sprintf("No schedule data in %d captured responses from %s", len(captured), url),
		SourceURL: url,
	})
	return nil, warnings, nil
}
