package extract

import (
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/WessleyAI/schedule-fallback/engine/domain"
)

// Page identifies the document being read and the trust it inherits.
type Page struct {
	URL         string
	Season      int
	Tier        domain.Tier
	RetrievedAt time.Time
	Method      string
}

func (p Page) event(name, start, end string) domain.DraftEvent {
	return domain.DraftEvent{
		Name:        name,
		StartDate:   start,
		EndDate:     end,
		SourceURL:   p.URL,
		SourceTier:  p.Tier,
		RetrievedAt: p.RetrievedAt,
		Confidence:  p.Tier.Confidence(),
		Method:      p.Method,
	}
}

// DefaultCardSelectors are the card containers probed on schedule pages.
var DefaultCardSelectors = []string{
	"[class*=event-card]",
	"[class*=race-card]",
	"[class*=schedule-item]",
	".event-item",
	".race-item",
}

const cardHeading = "h2, h3, h4, .event-name, .race-name, a"

var startsWithDigit = regexp.MustCompile(`^\d`)

// text returns the whitespace-normalised text of a selection.
func text(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}

// ScheduleEvents runs the schedule-page cascade over doc: table rows, then
// card containers (extra selectors first), then h2/h3 headers. The first
// strategy that yields an event wins. Candidates without a date are dropped.
func ScheduleEvents(doc *goquery.Document, p Page, extraSelectors []string) []domain.DraftEvent {
	if events := eventsFromTables(doc, p); len(events) > 0 {
		return events
	}
	selectors := append(append([]string(nil), extraSelectors...), DefaultCardSelectors...)
	if events := eventsFromCards(doc, p, selectors); len(events) > 0 {
		return events
	}
	return eventsFromHeaders(doc, p)
}

func eventsFromTables(doc *goquery.Document, p Page) []domain.DraftEvent {
	var out []domain.DraftEvent
	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.ChildrenFiltered("td, th")
		if cells.Length() < 2 {
			return
		}
		var dateCell, name, venue string
		cells.Each(func(_ int, c *goquery.Selection) {
			t := text(c)
			switch {
			case dateCell == "" && hasMonthDay.MatchString(t):
				dateCell = t
			case len(t) > 5 && !startsWithDigit.MatchString(t):
				if name == "" {
					name = t
				} else if venue == "" {
					venue = t
				}
			}
		})
		if name == "" || dateCell == "" {
			return
		}
		start, end, ok := parseDates(dateCell, p.Season)
		if !ok {
			return
		}
		ev := p.event(name, start, end)
		ev.VenueName = venue
		out = append(out, ev)
	})
	return out
}

func eventsFromCards(doc *goquery.Document, p Page, selectors []string) []domain.DraftEvent {
	for _, sel := range selectors {
		var out []domain.DraftEvent
		doc.Find(sel).Each(func(_ int, card *goquery.Selection) {
			name := text(card.Find(cardHeading).First())
			if len(name) < 3 {
				return
			}
			start, end, ok := parseDates(text(card), p.Season)
			if !ok {
				return
			}
			out = append(out, p.event(name, start, end))
		})
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

func eventsFromHeaders(doc *goquery.Document, p Page) []domain.DraftEvent {
	var out []domain.DraftEvent
	doc.Find("h2, h3").Each(func(_ int, h *goquery.Selection) {
		name := text(h)
		if len(name) < 5 || len(name) > 150 {
			return
		}
		start, end, ok := parseDates(text(h.Parent()), p.Season)
		if !ok {
			return
		}
		out = append(out, p.event(name, start, end))
	})
	return out
}

// consumedBy reports whether n or one of its ancestors is in seen.
func consumedBy(seen map[*html.Node]bool, n *html.Node) bool {
	for ; n != nil; n = n.Parent {
		if seen[n] {
			return true
		}
	}
	return false
}
