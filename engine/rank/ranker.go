// Package rank scores search hits by source trust and relevance and selects
// the pages worth fetching.
package rank

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/WessleyAI/schedule-fallback/engine/domain"
	"github.com/WessleyAI/schedule-fallback/engine/search"
)

// Additive score weights.
const (
	WeightTier1     = 100
	WeightTier2     = 40
	WeightUnknown   = 10
	WeightEvent     = 30
	WeightYear      = 20
	WeightSeries    = 15
	WeightKeyword   = 10
	WeightFreshness = 10

	freshWindow = 30 * 24 * time.Hour
)

var scheduleKeywords = []string{"schedule", "timetable", "sessions", "calendar"}

// Classifier assigns a trust tier to a URL.
type Classifier interface {
	Classify(rawURL string) domain.Tier
}

// Ranked is a search hit with its score breakdown.
type Ranked struct {
	Result  search.Result `json:"result"`
	Tier    domain.Tier   `json:"tier"`
	Score   float64       `json:"score"`
	Reasons []string      `json:"reasons"`
}

// Ranker is stateless apart from its classifier and clock.
type Ranker struct {
	trust Classifier
	now   func() time.Time
}

// New creates a Ranker over a trust classifier.
func New(trust Classifier) *Ranker {
	return &Ranker{trust: trust, now: time.Now}
}

// Rank scores results, drops Deny-tier hits and returns the rest sorted by
// descending score. Ties keep input order.
func (r *Ranker) Rank(results []search.Result, seriesName string, season int, eventName string) []Ranked {
	year := strconv.Itoa(season)
	series := strings.ToLower(strings.TrimSpace(seriesName))
	event := strings.ToLower(strings.TrimSpace(eventName))
	now := r.now()

	out := make([]Ranked, 0, len(results))
	for _, res := range results {
		tier := r.trust.Classify(res.URL)
		if tier == domain.TierDeny {
			continue
		}
		w := tierWeight(tier)
		score := float64(w)
		reasons := []string{fmt.Sprintf("domain=%s(+%d)", tier, w)}

		text := strings.ToLower(res.Title + " " + res.Snippet)
		if event != "" && strings.Contains(text, event) {
			score += WeightEvent
			reasons = append(reasons, fmt.Sprintf("event_name_match(+%d)", WeightEvent))
		}
		if strings.Contains(text, year) {
			score += WeightYear
			reasons = append(reasons, fmt.Sprintf("year_match(+%d)", WeightYear))
		}
		if series != "" && strings.Contains(text, series) {
			score += WeightSeries
			reasons = append(reasons, fmt.Sprintf("series_match(+%d)", WeightSeries))
		}
		if containsAny(text, scheduleKeywords) {
			score += WeightKeyword
			reasons = append(reasons, fmt.Sprintf("schedule_kw(+%d)", WeightKeyword))
		}
		if res.PublishedAt != nil && now.Sub(*res.PublishedAt) < freshWindow {
			score += WeightFreshness
			reasons = append(reasons, fmt.Sprintf("fresh(+%d)", WeightFreshness))
		}

		res.Score = score
		res.Tier = tier
		out = append(out, Ranked{Result: res, Tier: tier, Score: score, Reasons: reasons})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func tierWeight(t domain.Tier) int {
	switch t {
	case domain.Tier1:
		return WeightTier1
	case domain.Tier2:
		return WeightTier2
	case domain.TierUnknown:
		return WeightUnknown
	default:
		return 0
	}
}

func containsAny(text string, kws []string) bool {
	for _, kw := range kws {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
