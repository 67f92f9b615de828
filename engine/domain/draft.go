package domain

import (
	"strings"
	"time"
)

// DraftEvent is a partially extracted event. Dates are ISO "2006-01-02"
// strings; an extractor never emits a DraftEvent without a name and a start
// date. Sessions may be attached after creation by later passes.
type DraftEvent struct {
	Name        string         `json:"name"`
	StartDate   string         `json:"start_date"`
	EndDate     string         `json:"end_date,omitempty"`
	VenueName   string         `json:"venue_name,omitempty"`
	City        string         `json:"city,omitempty"`
	Region      string         `json:"region,omitempty"`
	Country     string         `json:"country,omitempty"`
	Sessions    []DraftSession `json:"sessions,omitempty"`
	SourceURL   string         `json:"source_url"`
	SourceTier  Tier           `json:"source_tier"`
	RetrievedAt time.Time      `json:"retrieved_at"`
	Confidence  float64        `json:"confidence"`
	Method      string         `json:"method,omitempty"`
	Endpoints   []string       `json:"endpoints,omitempty"`
}

// Key is the deduplication key for an event name.
func (e DraftEvent) Key() string {
	return strings.ToLower(strings.TrimSpace(e.Name))
}

// NeedsTimes reports whether pass 3 should try to resolve session times.
func (e DraftEvent) NeedsTimes() bool {
	if len(e.Sessions) == 0 {
		return true
	}
	for _, s := range e.Sessions {
		if s.StartTime == "" {
			return true
		}
	}
	return false
}

// DraftSession is a partially extracted session. StartTime is the literal
// local clock text ("10:00 AM", "14:30").
type DraftSession struct {
	Name       string        `json:"name"`
	Type       SessionType   `json:"type"`
	Date       string        `json:"date,omitempty"`
	StartTime  string        `json:"start_time,omitempty"`
	EndTime    string        `json:"end_time,omitempty"`
	Timezone   string        `json:"timezone_abbrev,omitempty"`
	Status     SessionStatus `json:"status"`
	SourceURL  string        `json:"source_url"`
	Confidence float64       `json:"confidence"`
}

// NewDraftSession builds a session whose status follows from whether a start
// time was found. The type is classified from the name.
func NewDraftSession(name, date, start, tz, sourceURL string, confidence float64) DraftSession {
	status := StatusTBD
	if start != "" {
		status = StatusScheduled
	}
	return DraftSession{
		Name:       name,
		Type:       ClassifySession(name),
		Date:       date,
		StartTime:  start,
		Timezone:   tz,
		Status:     status,
		SourceURL:  sourceURL,
		Confidence: confidence,
	}
}

// ClassifySession maps a session name onto a SessionType by keyword.
// Order matters: "Sprint Race" is a race, "Feature Race" falls through.
func ClassifySession(name string) SessionType {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "practice") || strings.Contains(lower, "fp"):
		return SessionPractice
	case strings.Contains(lower, "qual") || strings.Contains(lower, "hyperpole"):
		return SessionQualifying
	case strings.Contains(lower, "race") && !strings.Contains(lower, "feature"):
		return SessionRace
	case strings.Contains(lower, "sprint"):
		return SessionSprint
	case strings.Contains(lower, "warmup") || strings.Contains(lower, "warm up") || strings.Contains(lower, "warm-up"):
		return SessionWarmup
	case strings.Contains(lower, "test") || strings.Contains(lower, "shakedown"):
		return SessionTest
	case strings.Contains(lower, "stage") || strings.Contains(lower, "ss"):
		return SessionRallyStage
	default:
		return SessionOther
	}
}
