package fallback

import (
	"strings"
	"time"

	"github.com/WessleyAI/schedule-fallback/engine/domain"
	"github.com/WessleyAI/schedule-fallback/engine/search"
)

// Request names the series and season to discover.
type Request struct {
	SeriesID   string `json:"series_id"`
	SeriesName string `json:"series_name"`
	Season     int    `json:"season"`
	Category   string `json:"category,omitempty"`
}

// Validate rejects requests the engine cannot run.
func (r Request) Validate() error {
	switch {
	case strings.TrimSpace(r.SeriesID) == "":
		return domain.NewConfigurationError("request", "series_id is required")
	case strings.TrimSpace(r.SeriesName) == "":
		return domain.NewConfigurationError("request", "series_name is required")
	case r.Season < 1900 || r.Season > 2200:
		return domain.NewConfigurationError("request", "season out of range")
	}
	return nil
}

// CandidatePage is a page that was selected for fetching, whether or not it
// yielded data.
type CandidatePage struct {
	URL     string      `json:"url"`
	Title   string      `json:"title"`
	Tier    domain.Tier `json:"tier"`
	Score   float64     `json:"score"`
	Reasons []string    `json:"reasons"`
	Pass    int         `json:"pass"`
}

// MissingField flags data a reviewer has to supply.
type MissingField struct {
	EventName string `json:"event_name"`
	Field     string `json:"field_name"`
	Reason    string `json:"reason"`
}

// Output is the result of one run. Draft is nil only when the run aborted
// before assembly; an empty draft means nothing was found.
type Output struct {
	RunID             string              `json:"run_id"`
	Request           Request             `json:"request"`
	StartedAt         time.Time           `json:"started_at"`
	FinishedAt        time.Time           `json:"finished_at"`
	CandidatePages    []CandidatePage     `json:"candidate_event_pages"`
	Draft             *domain.Series      `json:"extracted_draft"`
	MissingFields     []MissingField      `json:"missing_fields"`
	Warnings          []string            `json:"warnings"`
	Provenance        []search.Provenance `json:"provenance"`
	Selections        []search.Provenance `json:"selections,omitempty"`
	TotalQueries      int                 `json:"total_queries"`
	TotalPagesFetched int                 `json:"total_pages_fetched"`
}

// NeedsReview reports whether a human has to fill gaps before publishing.
func (o *Output) NeedsReview() bool {
	return o.Draft == nil || len(o.Draft.Events) == 0 || len(o.MissingFields) > 0
}
