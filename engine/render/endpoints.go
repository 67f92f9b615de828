package render

import (
	"sort"
	"strings"
)

// ScoredResponse pairs a captured response with its schedule likelihood.
type ScoredResponse struct {
	Response CapturedResponse `json:"response"`
	Score    float64          `json:"score"`
}

type weighted struct {
	kw string
	w  float64
}

// URL keywords and their weights, in a fixed order so sums are reproducible.
var endpointKeywords = []weighted{
	{"schedule", 3.0},
	{"calendar", 3.0},
	{"timetable", 3.0},
	{"session", 2.5},
	{"event", 2.0},
	{"race", 1.5},
	{"practice", 1.5},
	{"qualifying", 1.5},
}

var bodyKeywords = []string{"start", "end", "session", "event", "date", "time"}

// DiscoverScheduleEndpoints scores captured responses by how likely they are
// to carry schedule data and returns those scoring above zero, best first.
// It performs no I/O and equal scores keep input order.
func DiscoverScheduleEndpoints(responses []CapturedResponse) []ScoredResponse {
	var out []ScoredResponse
	for _, r := range responses {
		if s := scoreEndpoint(r); s > 0 {
			out = append(out, ScoredResponse{Response: r, Score: s})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func scoreEndpoint(r CapturedResponse) float64 {
	u := strings.ToLower(r.URL)
	score := 0.0
	for _, k := range endpointKeywords {
		if strings.Contains(u, k.kw) {
			score += k.w
		}
	}
	switch {
	case r.IsJSON():
		score += 2.0
	case r.IsCalendar():
		score += 5.0
	}
	if strings.Contains(u, "/api/") {
		score += 1.5
	}
	if strings.Contains(u, "/v1/") || strings.Contains(u, "/v2/") {
		score += 1.0
	}
	if r.IsJSON() && r.Body != "" {
		body := strings.ToLower(r.Body)
		for _, kw := range bodyKeywords {
			if strings.Contains(body, kw) {
				score += 0.5
			}
		}
	}
	return score
}
