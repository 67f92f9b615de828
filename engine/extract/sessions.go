package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/WessleyAI/schedule-fallback/engine/domain"
)

const zoneAlt = `(CEST|CET|AEST|AEDT|EST|EDT|CST|CDT|MST|MDT|PST|PDT|BST|GMT|UTC|JST|ET|CT|MT|PT)`

var (
	// "10:00 AM ET", "14:30 CET", "9:00 - 10:30 am PT"
	clockRe = regexp.MustCompile(`\b(\d{1,2}:\d{2})\s*([AaPp]\.?[Mm]\.?)?(?:\s*[-–]\s*(\d{1,2}:\d{2})\s*([AaPp]\.?[Mm]\.?)?)?(?:\s*` + zoneAlt + `\b)?`)
	// "2:00 PM" with a meridiem; used when scanning arbitrary text.
	meridiemRe = regexp.MustCompile(`\b(\d{1,2}:\d{2})\s*([AaPp]\.?[Mm]\.?)`)

	descTrim = regexp.MustCompile(`^[\s\-–—|:•·]+|[\s\-–—|:•·]+$`)
	digits   = regexp.MustCompile(`^\d+$`)
)

// Selectors that mark a schedule block and the description inside a row.
const (
	scheduleBlock   = ".schedule-table, .timetable, .event-schedule, [class*=schedule], [class*=timetable]"
	dayHeader       = "h2, h3, h4"
	descriptionNode = ".schedule-description, .event-name, .session-name"
)

type clock struct {
	start, end, zone string
	match            string
}

// readClock returns the first time in s. The meridiem is normalised to
// "AM"/"PM"; an end time without one inherits the start's.
func readClock(s string) (clock, bool) {
	m := clockRe.FindStringSubmatch(s)
	if m == nil {
		return clock{}, false
	}
	c := clock{match: m[0], zone: strings.ToUpper(m[5])}
	startMer := meridiem(m[2])
	endMer := meridiem(m[4])
	if startMer == "" {
		startMer = endMer
	}
	c.start = joinClock(m[1], startMer)
	if m[3] != "" {
		if endMer == "" {
			endMer = startMer
		}
		c.end = joinClock(m[3], endMer)
	}
	return c, true
}

func meridiem(s string) string {
	s = strings.ToUpper(strings.ReplaceAll(s, ".", ""))
	if s == "AM" || s == "PM" {
		return s
	}
	return ""
}

func joinClock(hm, mer string) string {
	if mer == "" {
		return hm
	}
	return hm + " " + mer
}

func description(s, match string) string {
	return descTrim.ReplaceAllString(strings.Replace(s, match, "", 1), "")
}

// EventSessions runs the event-page cascade over doc: a schedule block walked
// with day headers, then table rows with a time and a name, then any element
// whose text carries an AM/PM time.
func EventSessions(doc *goquery.Document, p Page) []domain.DraftSession {
	if block := doc.Find(scheduleBlock).First(); block.Length() > 0 {
		if out := sessionsFromBlock(block, p); len(out) > 0 {
			return out
		}
	}
	if out := sessionsFromTables(doc, p); len(out) > 0 {
		return out
	}
	return sessionsFromText(doc, p)
}

// sessionsFromBlock walks the block in document order. A day header sets the
// current date; an element holding exactly one time and no day header is a
// session, and its descendants are skipped.
func sessionsFromBlock(block *goquery.Selection, p Page) []domain.DraftSession {
	var (
		out     []domain.DraftSession
		current string
		seen    = make(map[*html.Node]bool)
	)
	block.Find("*").Each(func(_ int, s *goquery.Selection) {
		n := s.Nodes[0]
		if consumedBy(seen, n.Parent) {
			return
		}
		t := text(s)
		if s.Is(dayHeader) {
			if d, ok := ParseSingleDate(t, p.Season); ok {
				current = d
			}
			return
		}
		if len(t) < 3 || s.Find(dayHeader).Length() > 0 {
			return
		}
		if len(clockRe.FindAllString(t, 2)) != 1 {
			return
		}
		c, _ := readClock(t)
		desc := description(t, c.match)
		if len(desc) < 2 {
			desc = text(s.Find(descriptionNode).First())
		}
		if len(desc) < 2 {
			return
		}
		seen[n] = true
		ds := domain.NewDraftSession(desc, current, c.start, c.zone, p.URL, p.Tier.Confidence())
		ds.EndTime = c.end
		out = append(out, ds)
	})
	return out
}

func sessionsFromTables(doc *goquery.Document, p Page) []domain.DraftSession {
	var out []domain.DraftSession
	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.ChildrenFiltered("td, th")
		if cells.Length() < 2 {
			return
		}
		var (
			c       clock
			hasTime bool
			name    string
			date    string
		)
		cells.Each(func(_ int, cell *goquery.Selection) {
			t := text(cell)
			if !hasTime {
				if parsed, ok := readClock(t); ok {
					c, hasTime = parsed, true
					return
				}
			}
			if date == "" && hasMonthDay.MatchString(t) {
				if d, ok := ParseSingleDate(t, p.Season); ok {
					date = d
					return
				}
			}
			if name == "" && len(t) > 2 && !digits.MatchString(t) {
				name = t
			}
		})
		if !hasTime || name == "" {
			return
		}
		ds := domain.NewDraftSession(name, date, c.start, c.zone, p.URL, p.Tier.Confidence())
		ds.EndTime = c.end
		out = append(out, ds)
	})
	return out
}

func sessionsFromText(doc *goquery.Document, p Page) []domain.DraftSession {
	var (
		out  []domain.DraftSession
		seen = make(map[*html.Node]bool)
		dup  = make(map[string]bool)
	)
	doc.Find("div, li, td, p, span").Each(func(_ int, s *goquery.Selection) {
		n := s.Nodes[0]
		if consumedBy(seen, n.Parent) {
			return
		}
		t := text(s)
		if len(t) < 5 || len(t) > 300 {
			return
		}
		if len(meridiemRe.FindAllString(t, 2)) != 1 {
			return
		}
		c, ok := readClock(t)
		if !ok || !strings.HasSuffix(c.start, "M") {
			return
		}
		desc := description(t, c.match)
		if len(desc) < 3 || len(desc) >= 100 {
			return
		}
		seen[n] = true
		key := strings.ToLower(desc) + "|" + c.start
		if dup[key] {
			return
		}
		dup[key] = true
		ds := domain.NewDraftSession(desc, "", c.start, c.zone, p.URL, p.Tier.Confidence())
		ds.EndTime = c.end
		out = append(out, ds)
	})
	return out
}
