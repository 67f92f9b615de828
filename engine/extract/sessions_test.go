package extract

import (
	"testing"

	"github.com/WessleyAI/schedule-fallback/engine/domain"
)

const sessionBlock = `<html><body>
<nav>Tickets from 9:00 AM</nav>
<div class="schedule-table">
  <h3>Friday, March 15</h3>
  <div class="schedule-row">10:00 AM ET — Practice 1</div>
  <div class="schedule-row">2:00 PM ET — Qualifying</div>
</div>
</body></html>`

func TestEventSessionsScheduleBlock(t *testing.T) {
	sessions := EventSessions(mustDoc(t, sessionBlock), testPage(domain.Tier1))
	if len(sessions) != 2 {
		t.Fatalf("expected two sessions, got %+v", sessions)
	}
	want := []struct {
		name  string
		typ   domain.SessionType
		start string
	}{
		{"Practice 1", domain.SessionPractice, "10:00 AM"},
		{"Qualifying", domain.SessionQualifying, "2:00 PM"},
	}
	for i, w := range want {
		s := sessions[i]
		if s.Name != w.name || s.Type != w.typ || s.StartTime != w.start {
			t.Errorf("session %d = %+v, want %+v", i, s, w)
		}
		if s.Status != domain.StatusScheduled || s.Date != "2024-03-15" || s.Timezone != "ET" {
			t.Errorf("session %d = %+v", i, s)
		}
		if err := domain.ValidateDraftSession(s); err != nil {
			t.Error(err)
		}
	}
}

func TestEventSessionsDayHeadersAndNestedRows(t *testing.T) {
	html := `<div class="timetable">
  <div class="day"><h4>Saturday, April 20</h4>
    <div class="row"><span class="time">11:15</span> <span class="session-name">Hyperpole</span></div>
  </div>
  <div class="day"><h4>Sunday, April 21</h4>
    <div class="row"><span class="time">13:00 - 19:00 CEST</span> <span class="session-name">Race</span></div>
  </div>
</div>`
	sessions := EventSessions(mustDoc(t, html), testPage(domain.Tier1))
	if len(sessions) != 2 {
		t.Fatalf("expected two sessions, got %+v", sessions)
	}
	if s := sessions[0]; s.Name != "Hyperpole" || s.Date != "2024-04-20" || s.StartTime != "11:15" || s.Type != domain.SessionQualifying {
		t.Fatalf("unexpected first session %+v", s)
	}
	if s := sessions[1]; s.Date != "2024-04-21" || s.StartTime != "13:00" || s.EndTime != "19:00" || s.Timezone != "CEST" {
		t.Fatalf("unexpected second session %+v", s)
	}
}

func TestEventSessionsTableRows(t *testing.T) {
	html := `<table>
<tr><th>Time</th><th>Session</th></tr>
<tr><td>9:30 am PT</td><td>Warm-Up</td></tr>
<tr><td>1:45 p.m.</td><td>Race</td><td>Sunday, May 26</td></tr>
<tr><td>TBA</td><td>Autograph session</td></tr>
</table>`
	sessions := EventSessions(mustDoc(t, html), testPage(domain.Tier2))
	if len(sessions) != 2 {
		t.Fatalf("expected two timed rows, got %+v", sessions)
	}
	if s := sessions[0]; s.Name != "Warm-Up" || s.Type != domain.SessionWarmup || s.StartTime != "9:30 AM" || s.Timezone != "PT" || s.Confidence != 0.7 {
		t.Fatalf("unexpected first session %+v", s)
	}
	if s := sessions[1]; s.StartTime != "1:45 PM" || s.Date != "2024-05-26" {
		t.Fatalf("unexpected second session %+v", s)
	}
}

func TestEventSessionsFreeText(t *testing.T) {
	html := `<article>
<p>Gates open early.</p>
<p>Green flag at 3:30 PM for the Indianapolis 500 Race</p>
<p>Fireworks follow.</p>
</article>`
	sessions := EventSessions(mustDoc(t, html), testPage(domain.TierUnknown))
	if len(sessions) != 1 {
		t.Fatalf("expected one session, got %+v", sessions)
	}
	s := sessions[0]
	if s.StartTime != "3:30 PM" || s.Type != domain.SessionRace || s.Status != domain.StatusScheduled {
		t.Fatalf("unexpected session %+v", s)
	}
}

func TestEventSessionsNeverScheduledWithoutTime(t *testing.T) {
	for _, html := range []string{sessionBlock, `<table><tr><td>TBA</td><td>Qualifying</td></tr></table>`, `<p>Nothing</p>`} {
		for _, s := range EventSessions(mustDoc(t, html), testPage(domain.Tier1)) {
			if s.Status == domain.StatusScheduled && s.StartTime == "" {
				t.Fatalf("scheduled session without a start: %+v", s)
			}
		}
	}
}

func TestReadClock(t *testing.T) {
	cases := []struct {
		in, start, end, zone string
	}{
		{"10:00 AM ET", "10:00 AM", "", "ET"},
		{"9:00 - 10:30 am PT", "9:00 AM", "10:30 AM", "PT"},
		{"14:30 CEST", "14:30", "", "CEST"},
		{"11:00 ETA unknown", "11:00", "", ""},
	}
	for _, tc := range cases {
		c, ok := readClock(tc.in)
		if !ok || c.start != tc.start || c.end != tc.end || c.zone != tc.zone {
			t.Errorf("readClock(%q) = %+v", tc.in, c)
		}
	}
	if _, ok := readClock("no time"); ok {
		t.Error("expected no clock")
	}
}
