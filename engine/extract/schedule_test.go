package extract

import (
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/WessleyAI/schedule-fallback/engine/domain"
)

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func testPage(tier domain.Tier) Page {
	return Page{
		URL:         "https://www.example-series.com/schedule",
		Season:      2024,
		Tier:        tier,
		RetrievedAt: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		Method:      "rendered_dom",
	}
}

const scheduleTable = `<html><body>
<table>
  <tr><th>Event</th><th>Date</th></tr>
  <tr><td>Grand Prix of Test</td><td>March 15-17, 2024</td></tr>
  <tr><td>Round 2</td><td>TBA</td></tr>
</table>
</body></html>`

func TestScheduleEventsTable(t *testing.T) {
	events := ScheduleEvents(mustDoc(t, scheduleTable), testPage(domain.Tier1), nil)
	if len(events) != 1 {
		t.Fatalf("expected one event, got %+v", events)
	}
	ev := events[0]
	if ev.Name != "Grand Prix of Test" || ev.StartDate != "2024-03-15" || ev.EndDate != "2024-03-17" {
		t.Fatalf("unexpected event %+v", ev)
	}
	if ev.Confidence != 1.0 || ev.SourceTier != domain.Tier1 || ev.SourceURL == "" || ev.RetrievedAt.IsZero() {
		t.Fatalf("event lost its provenance: %+v", ev)
	}
	if err := domain.ValidateDraftEvent(ev); err != nil {
		t.Fatal(err)
	}
}

func TestScheduleEventsTableVenue(t *testing.T) {
	html := `<table><tr><td>Sebring 12 Hours</td><td>Sebring International Raceway</td><td>Mar 13 - 16</td></tr></table>`
	events := ScheduleEvents(mustDoc(t, html), testPage(domain.Tier2), nil)
	if len(events) != 1 || events[0].VenueName != "Sebring International Raceway" || events[0].Confidence != 0.7 {
		t.Fatalf("unexpected events %+v", events)
	}
}

func TestScheduleEventsCards(t *testing.T) {
	html := `<html><body>
<div class="race-card"><h3>Rally Sweden</h3><p>February 15 - 18</p></div>
<div class="race-card"><h3>Safari Rally Kenya</h3><p>March 28 - 31</p></div>
<div class="race-card"><h3>Mystery Round</h3><p>Date to be confirmed</p></div>
</body></html>`
	events := ScheduleEvents(mustDoc(t, html), testPage(domain.TierUnknown), nil)
	if len(events) != 2 {
		t.Fatalf("expected two dated cards, got %+v", events)
	}
	if events[0].Name != "Rally Sweden" || events[1].StartDate != "2024-03-28" || events[1].Confidence != 0.4 {
		t.Fatalf("unexpected events %+v", events)
	}
}

func TestScheduleEventsHintSelectors(t *testing.T) {
	html := `<ul><li class="calendar-row"><a>Brands Hatch Indy</a> <span>27 - 28 April</span></li></ul>`
	if got := ScheduleEvents(mustDoc(t, html), testPage(domain.Tier1), nil); len(got) != 0 {
		t.Fatalf("no default selector should match, got %+v", got)
	}
	got := ScheduleEvents(mustDoc(t, html), testPage(domain.Tier1), []string{".calendar-row"})
	if len(got) != 1 || got[0].Name != "Brands Hatch Indy" || got[0].StartDate != "2024-04-27" {
		t.Fatalf("unexpected events %+v", got)
	}
}

func TestScheduleEventsHeaders(t *testing.T) {
	html := `<html><body>
<section><h2>Portimao 6 Hours</h2><p>April 19 - 21 at Algarve International Circuit</p></section>
<section><h2>Latest news</h2><p>Nothing dated here</p></section>
</body></html>`
	events := ScheduleEvents(mustDoc(t, html), testPage(domain.Tier1), nil)
	if len(events) != 1 || events[0].Name != "Portimao 6 Hours" || events[0].EndDate != "2024-04-21" {
		t.Fatalf("unexpected events %+v", events)
	}
}

func TestScheduleEventsNothing(t *testing.T) {
	if got := ScheduleEvents(mustDoc(t, `<p>Welcome</p>`), testPage(domain.Tier1), nil); len(got) != 0 {
		t.Fatalf("expected no events, got %+v", got)
	}
}
