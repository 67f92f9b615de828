package fallback

import (
	"context"
	"fmt"
	"sort"

	"github.com/WessleyAI/schedule-fallback/engine/domain"
)

const (
	reasonNoSessions = "No sessions found"
	reasonTBC        = "Session time not found, TBC"
)

// assemble converts the drafts into the canonical schedule shape and lists
// what a reviewer still has to fill in. It never invents values: unknown
// venues fall back to UTC with the inferred flag set and untimed sessions
// stay TBD.
func (o *Orchestrator) assemble(_ context.Context, r *run) error {
	series := &domain.Series{
		SeriesID: r.req.SeriesID,
		Name:     r.req.SeriesName,
		Season:   r.req.Season,
		Category: r.category,
		Events:   []domain.Event{},
	}
	for _, d := range r.events {
		ev := o.toEvent(r, d)
		series.Events = append(series.Events, ev)
		r.out.MissingFields = append(r.out.MissingFields, missingFields(ev)...)
	}
	sort.SliceStable(series.Events, func(i, j int) bool {
		return series.Events[i].StartDate < series.Events[j].StartDate
	})
	r.out.Draft = series

	if len(series.Events) == 0 {
		o.warn(r, domain.Warning{
			Kind:     domain.WarnAssembly,
			Severity: domain.SeverityWarning,
			Field:    "events",
			Message:  fmt.Sprintf("No events found for %s %d: draft is empty", r.req.SeriesName, r.req.Season),
		})
	}
	return nil
}

func (o *Orchestrator) toEvent(r *run, d domain.DraftEvent) domain.Event {
	end := d.EndDate
	if end == "" {
		end = d.StartDate
	}
	return domain.Event{
		EventID:   fmt.Sprintf("%s_%d_%s", r.req.SeriesID, r.req.Season, domain.Slugify(d.Name)),
		SeriesID:  r.req.SeriesID,
		Name:      d.Name,
		StartDate: d.StartDate,
		EndDate:   end,
		Venue:     o.venue(d),
		Sessions:  toSessions(d, end),
		Sources: []domain.Source{{
			URL:                 d.SourceURL,
			ProviderName:        "search_fallback (" + d.SourceTier.String() + ")",
			RetrievedAt:         d.RetrievedAt,
			ExtractionMethod:    d.Method,
			DiscoveredEndpoints: d.Endpoints,
		}},
		LastVerifiedAt: d.RetrievedAt,
	}
}

// venue resolves the timezone from the location table, then from the
// source site's hint, then UTC. None of these come from the page itself, so
// the timezone is always flagged as inferred.
func (o *Orchestrator) venue(d domain.DraftEvent) domain.Venue {
	v := domain.Venue{
		Circuit: d.VenueName,
		City:    d.City,
		Region:  d.Region,
		Country: d.Country,
	}
	if v.Country == "" {
		v.Country = "Unknown"
	}
	v.InferredTimezone = true
	if tz, ok := domain.InferTimezone(d.Country, d.City); ok {
		v.Timezone = tz
		return v
	}
	if h, ok := o.hints.For(d.SourceURL); ok && h.Timezone != "" {
		v.Timezone = h.Timezone
		return v
	}
	v.Timezone = "UTC"
	return v
}

// toSessions converts drafts, dating sessions of single-day events that
// carried no date of their own.
func toSessions(d domain.DraftEvent, end string) []domain.Session {
	out := make([]domain.Session, 0, len(d.Sessions))
	ids := make(map[string]int)
	for _, s := range d.Sessions {
		date := s.Date
		if date == "" && d.StartDate == end {
			date = d.StartDate
		}
		sess := domain.Session{
			Type:   s.Type,
			Name:   s.Name,
			Status: domain.StatusTBD,
		}
		if sess.Type == "" {
			sess.Type = domain.ClassifySession(s.Name)
		}
		if s.StartTime != "" {
			sess.Start = domain.BuildISOTime(date, s.StartTime, s.Timezone)
		}
		if sess.Start != "" {
			sess.Status = domain.StatusScheduled
			if s.EndTime != "" {
				sess.End = domain.BuildISOTime(date, s.EndTime, s.Timezone)
			}
		}
		sess.SessionID = uniqueID(ids, domain.Slugify(s.Name))
		out = append(out, sess)
	}
	return out
}

func uniqueID(seen map[string]int, base string) string {
	if base == "" {
		base = "session"
	}
	seen[base]++
	if n := seen[base]; n > 1 {
		return fmt.Sprintf("%s_%d", base, n)
	}
	return base
}

// missingFields lists the gaps of one assembled event. A session whose clock
// text could not be read stays TBD and is reported like one without a time.
func missingFields(ev domain.Event) []MissingField {
	if len(ev.Sessions) == 0 {
		return []MissingField{{EventName: ev.Name, Field: "sessions", Reason: reasonNoSessions}}
	}
	var out []MissingField
	for _, s := range ev.Sessions {
		if s.Status != domain.StatusTBD {
			continue
		}
		out = append(out, MissingField{
			EventName: ev.Name,
			Field:     "session." + s.Name + ".start",
			Reason:    reasonTBC,
		})
	}
	return out
}
