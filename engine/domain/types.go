// Package domain defines the schedule model, draft extraction types, error
// taxonomy and warnings shared by every stage of the search-fallback engine.
package domain

import (
	"strings"
	"time"
)

// SeriesCategory is the broad discipline of a racing series.
type SeriesCategory string

const (
	CategoryOpenWheel  SeriesCategory = "OPENWHEEL"
	CategoryEndurance  SeriesCategory = "ENDURANCE"
	CategoryRally      SeriesCategory = "RALLY"
	CategoryMotorcycle SeriesCategory = "MOTORCYCLE"
	CategoryGT         SeriesCategory = "GT"
	CategoryTouring    SeriesCategory = "TOURING"
	CategoryFormula    SeriesCategory = "FORMULA"
	CategorySportscar  SeriesCategory = "SPORTCAR"
	CategoryStock      SeriesCategory = "STOCK"
	CategoryOther      SeriesCategory = "OTHER"
)

// ValidCategories is the set of recognised series categories.
var ValidCategories = map[SeriesCategory]bool{
	CategoryOpenWheel: true, CategoryEndurance: true, CategoryRally: true,
	CategoryMotorcycle: true, CategoryGT: true, CategoryTouring: true,
	CategoryFormula: true, CategorySportscar: true, CategoryStock: true,
	CategoryOther: true,
}

// ParseCategory maps free text onto a SeriesCategory, falling back to OTHER.
func ParseCategory(s string) SeriesCategory {
	c := SeriesCategory(strings.ToUpper(strings.TrimSpace(s)))
	if ValidCategories[c] {
		return c
	}
	return CategoryOther
}

// SessionType classifies a single on-track session.
type SessionType string

const (
	SessionPractice   SessionType = "practice"
	SessionQualifying SessionType = "qualifying"
	SessionRace       SessionType = "race"
	SessionSprint     SessionType = "sprint"
	SessionWarmup     SessionType = "warmup"
	SessionTest       SessionType = "test"
	SessionStage      SessionType = "stage"
	SessionRallyStage SessionType = "rally_stage"
	SessionRace1      SessionType = "race_1"
	SessionRace2      SessionType = "race_2"
	SessionFeature    SessionType = "feature"
	SessionHeat       SessionType = "heat"
	SessionOther      SessionType = "other"
)

// SessionStatus tracks whether a session time is confirmed.
type SessionStatus string

const (
	StatusScheduled SessionStatus = "scheduled"
	StatusUpdated   SessionStatus = "updated"
	StatusCancelled SessionStatus = "cancelled"
	StatusTBD       SessionStatus = "tbd"
)

// Series is the canonical schedule shape handed to review tooling.
type Series struct {
	SeriesID string         `json:"series_id"`
	Name     string         `json:"name"`
	Season   int            `json:"season"`
	Category SeriesCategory `json:"category"`
	Events   []Event        `json:"events"`
}

// Event is one race weekend.
type Event struct {
	EventID        string    `json:"event_id"`
	SeriesID       string    `json:"series_id"`
	Name           string    `json:"name"`
	StartDate      string    `json:"start_date"`
	EndDate        string    `json:"end_date"`
	Venue          Venue     `json:"venue"`
	Sessions       []Session `json:"sessions"`
	Sources        []Source  `json:"sources"`
	LastVerifiedAt time.Time `json:"last_verified_at"`
}

// Venue locates an event. Timezone is always an IANA name or "UTC".
type Venue struct {
	Circuit          string `json:"circuit,omitempty"`
	City             string `json:"city,omitempty"`
	Region           string `json:"region,omitempty"`
	Country          string `json:"country"`
	Timezone         string `json:"timezone"`
	InferredTimezone bool   `json:"inferred_timezone"`
}

// Session is one timed on-track activity. Start and End are RFC 3339 strings
// with an explicit offset, or empty when unknown.
type Session struct {
	SessionID string        `json:"session_id"`
	Type      SessionType   `json:"type"`
	Name      string        `json:"name"`
	Start     string        `json:"start,omitempty"`
	End       string        `json:"end,omitempty"`
	Status    SessionStatus `json:"status"`
}

// Source records where an event was read from.
type Source struct {
	URL                 string    `json:"url"`
	ProviderName        string    `json:"provider_name"`
	RetrievedAt         time.Time `json:"retrieved_at"`
	ExtractionMethod    string    `json:"extraction_method,omitempty"`
	DiscoveredEndpoints []string  `json:"discovered_endpoints,omitempty"`
}
