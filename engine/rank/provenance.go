package rank

import (
	"fmt"
	"strings"
	"time"

	"github.com/WessleyAI/schedule-fallback/engine/query"
	"github.com/WessleyAI/schedule-fallback/engine/search"
	"github.com/WessleyAI/schedule-fallback/pkg/fn"
)

const maxProvenanceURLs = 3

// QueryProvenance records one executed query with its top hits.
func QueryProvenance(q query.Query, provider string, results []search.Result, at time.Time) search.Provenance {
	urls := fn.Map(fn.Take(results, maxProvenanceURLs), func(r search.Result) string { return r.URL })
	return search.Provenance{
		Query:          q.Text,
		Provider:       provider,
		Timestamp:      at.UTC(),
		ResultCount:    len(results),
		ChosenURLs:     urls,
		ScoringReasons: []string{fmt.Sprintf("pass=%d, purpose=%s", q.Pass, q.Purpose)},
	}
}

// SelectionProvenance records the pages chosen from a ranked set with the
// score breakdown of each.
func SelectionProvenance(queryText, provider string, selected []Ranked, at time.Time) search.Provenance {
	p := search.Provenance{
		Query:       queryText,
		Provider:    provider,
		Timestamp:   at.UTC(),
		ResultCount: len(selected),
	}
	for _, r := range selected {
		p.ChosenURLs = append(p.ChosenURLs, r.Result.URL)
		p.ScoringReasons = append(p.ScoringReasons, r.Result.URL+": "+strings.Join(r.Reasons, ", "))
	}
	return p
}
