// Package query builds the web-search queries for the three discovery passes.
package query

import (
	"fmt"
	"strings"

	"github.com/WessleyAI/schedule-fallback/engine/domain"
)

// Pass numbers.
const (
	PassSchedule = 1
	PassEvent    = 2
	PassSessions = 3
)

// maxSynonyms bounds the OR block of a pass-3 synonym query.
const maxSynonyms = 4

// Query is one search to run.
type Query struct {
	Text    string `json:"query"`
	Pass    int    `json:"pass"`
	Purpose string `json:"purpose"`
	Site    string `json:"site,omitempty"`
}

// Synonyms are session vocabulary per series category.
var Synonyms = map[domain.SeriesCategory][]string{
	domain.CategoryRally:      {"itinerary", "stages", "SS1", "shakedown", "service park timetable", "leg"},
	domain.CategoryEndurance:  {"FP1", "FP2", "FP3", "Hyperpole", "warm up", "race start", "formation lap"},
	domain.CategoryOpenWheel:  {"practice", "qualifying", "race", "warm up", "sprint", "feature race"},
	domain.CategoryMotorcycle: {"FP1", "FP2", "qualifying", "sprint race", "main race", "warm up"},
}

// Tier1Lister is the part of the trust model the generator needs.
type Tier1Lister interface {
	Tier1Domains() []string
}

// Generator is stateless after construction; every method is pure.
type Generator struct {
	series   string
	year     int
	category domain.SeriesCategory
	tier1    []string
}

// New creates a Generator. trust may be nil when no official domains exist.
func New(series string, year int, category domain.SeriesCategory, trust Tier1Lister) *Generator {
	g := &Generator{series: strings.TrimSpace(series), year: year, category: category}
	if trust != nil {
		g.tier1 = trust.Tier1Domains()
	}
	return g
}

// Pass1 returns season-schedule discovery queries.
func (g *Generator) Pass1() []Query {
	out := make([]Query, 0, 3+len(g.tier1))
	for _, suffix := range []string{"schedule", "calendar", "race schedule dates"} {
		out = append(out, Query{
			Text:    fmt.Sprintf("%s %d %s", g.series, g.year, suffix),
			Pass:    PassSchedule,
			Purpose: "season schedule",
		})
	}
	for _, d := range g.tier1 {
		out = append(out, Query{
			Text:    fmt.Sprintf("site:%s %d schedule", d, g.year),
			Pass:    PassSchedule,
			Purpose: "official schedule on " + d,
			Site:    d,
		})
	}
	return out
}

// Pass2 returns event-page discovery queries. venue may be empty.
func (g *Generator) Pass2(event, venue string) []Query {
	event = strings.TrimSpace(event)
	purpose := "event page: " + event
	out := []Query{
		{Text: fmt.Sprintf("%s %d schedule sessions", event, g.year), Pass: PassEvent, Purpose: purpose},
		{Text: fmt.Sprintf("%s %d practice qualifying race time", event, g.year), Pass: PassEvent, Purpose: purpose},
		{Text: fmt.Sprintf("%s %s %d timetable", event, g.series, g.year), Pass: PassEvent, Purpose: purpose},
	}
	for _, d := range g.tier1 {
		out = append(out, Query{
			Text:    fmt.Sprintf("site:%s %q %d", d, event, g.year),
			Pass:    PassEvent,
			Purpose: "official event page on " + d,
			Site:    d,
		})
	}
	if venue = strings.TrimSpace(venue); venue != "" {
		out = append(out, Query{
			Text:    fmt.Sprintf("%q %d %q schedule", event, g.year, venue),
			Pass:    PassEvent,
			Purpose: "venue-specific schedule for " + event,
		})
	}
	return out
}

// Pass3 returns session-time resolution queries. session may be empty.
func (g *Generator) Pass3(event, session string) []Query {
	event = strings.TrimSpace(event)
	var out []Query
	if session = strings.TrimSpace(session); session != "" {
		out = append(out, Query{
			Text:    fmt.Sprintf("%q %d %q time", event, g.year, session),
			Pass:    PassSessions,
			Purpose: "session time: " + session,
		})
	}
	for _, suffix := range []string{"schedule times", "timetable session times", "event schedule"} {
		out = append(out, Query{
			Text:    fmt.Sprintf("%q %d %s", event, g.year, suffix),
			Pass:    PassSessions,
			Purpose: "session times",
		})
	}
	if syn := Synonyms[g.category]; len(syn) > 0 {
		if len(syn) > maxSynonyms {
			syn = syn[:maxSynonyms]
		}
		quoted := make([]string, len(syn))
		for i, s := range syn {
			quoted[i] = fmt.Sprintf("%q", s)
		}
		out = append(out, Query{
			Text:    fmt.Sprintf("%q %d (%s)", event, g.year, strings.Join(quoted, " OR ")),
			Pass:    PassSessions,
			Purpose: "series-specific session keywords",
		})
	}
	return out
}
