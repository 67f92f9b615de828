// Package search wraps a pluggable web-search backend with result caching,
// a minimum inter-call delay and a circuit breaker.
package search

import (
	"context"
	"time"

	"github.com/WessleyAI/schedule-fallback/engine/domain"
)

// Result is one search hit. Score and Tier are filled in by the ranker.
type Result struct {
	Title       string      `json:"title"`
	URL         string      `json:"url"`
	Snippet     string      `json:"snippet"`
	PublishedAt *time.Time  `json:"published_at,omitempty"`
	Score       float64     `json:"score"`
	Tier        domain.Tier `json:"tier"`
}

// Provider is a web-search backend. recencyDays <= 0 means no recency filter.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, count, recencyDays int) ([]Result, error)
}

// Provenance records one executed query.
type Provenance struct {
	Query          string    `json:"query"`
	Provider       string    `json:"provider"`
	Timestamp      time.Time `json:"timestamp"`
	ResultCount    int       `json:"result_count"`
	ChosenURLs     []string  `json:"chosen_urls"`
	ScoringReasons []string  `json:"scoring_reasons"`
}
