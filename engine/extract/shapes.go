package extract

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/WessleyAI/schedule-fallback/engine/domain"
)

// A Shape recognises one JSON layout and returns the race-like objects it
// holds. Shapes are pure and are tried in order by EventsFromJSON.
type Shape struct {
	Name  string
	Items func(data any) ([]map[string]any, bool)
}

// Shapes is the ordered list of recognised schedule layouts.
var Shapes = []Shape{
	{Name: "container", Items: containerItems},
	{Name: "root_array", Items: rootArrayItems},
	{Name: "data_wrapper", Items: wrappedItems},
}

var containerKeys = []string{
	"events", "races", "schedule", "rounds", "calendar", "meetings",
	"items", "entries", "content", "results",
}

var raceKeys = []string{
	"raceid", "roundnumber", "racestartdate", "start_date", "startdate",
	"circuitname", "sessions", "date_start", "sequence",
}

// lower returns obj with lower-cased keys. On collision the first key in
// sorted order wins so the result does not depend on map iteration.
func lower(obj map[string]any) map[string]any {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make(map[string]any, len(obj))
	for _, k := range keys {
		lk := strings.ToLower(k)
		if _, dup := out[lk]; !dup {
			out[lk] = obj[k]
		}
	}
	return out
}

func objects(v any) []map[string]any {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []map[string]any
	for _, it := range arr {
		if obj, ok := it.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}

// containerItems matches {"events": [...]} and its synonyms.
func containerItems(data any) ([]map[string]any, bool) {
	obj, ok := data.(map[string]any)
	if !ok {
		return nil, false
	}
	l := lower(obj)
	for _, k := range containerKeys {
		if items := objects(l[k]); len(items) > 0 {
			return items, true
		}
	}
	return nil, false
}

// rootArrayItems matches a top-level array whose first object carries
// race-specific keys, or several objects with a name or date.
func rootArrayItems(data any) ([]map[string]any, bool) {
	items := objects(data)
	if len(items) == 0 {
		return nil, false
	}
	first := lower(items[0])
	for _, k := range raceKeys {
		if _, ok := first[k]; ok {
			return items, true
		}
	}
	if len(items) > 1 {
		for _, k := range []string{"name", "date", "city"} {
			if _, ok := first[k]; ok {
				return items, true
			}
		}
	}
	return nil, false
}

// wrappedItems looks one level into an object ({"data": {...}} first, then
// the remaining keys in sorted order) for a container or root array.
func wrappedItems(data any) ([]map[string]any, bool) {
	obj, ok := data.(map[string]any)
	if !ok {
		return nil, false
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		di, dj := strings.EqualFold(keys[i], "data"), strings.EqualFold(keys[j], "data")
		if di != dj {
			return di
		}
		return keys[i] < keys[j]
	})
	for _, k := range keys {
		v := obj[k]
		if items, ok := containerItems(v); ok {
			return items, true
		}
		if items, ok := rootArrayItems(v); ok {
			return items, true
		}
	}
	return nil, false
}

// EventsFromJSON decodes body and returns the events found by the first
// shape that yields any, with the shape's name. Objects without a name or a
// parseable start date are skipped.
func EventsFromJSON(body []byte, p Page) ([]domain.DraftEvent, string, error) {
	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, "", fmt.Errorf("decode schedule json: %w", err)
	}
	for _, shape := range Shapes {
		items, ok := shape.Items(data)
		if !ok {
			continue
		}
		var out []domain.DraftEvent
		for _, it := range items {
			if ev, ok := eventFromObject(it, p); ok {
				out = append(out, ev)
			}
		}
		if len(out) > 0 {
			return out, shape.Name, nil
		}
	}
	return nil, "", nil
}

var (
	nameKeys      = []string{"name", "title", "eventname", "event_name", "racename", "race_name", "meeting_name", "label", "heading"}
	startKeys     = []string{"start_date", "startdate", "racestartdate", "date_start", "datefrom", "date", "from", "start", "datetime"}
	endKeys       = []string{"end_date", "enddate", "raceenddate", "date_end", "dateto", "to", "end"}
	circuitKeys   = []string{"circuit", "track", "trackname", "track_name", "circuitname", "circuit_name", "venue", "venuename"}
	placeKeys     = []string{"venue", "circuit", "track", "location"}
	sessionKeys   = []string{"sessions", "schedule", "timetable"}
	sessNameKeys  = []string{"name", "title", "session_name", "sessionname", "description", "type"}
	sessStartKeys = []string{"start", "start_time", "starttime", "starttimeutc", "date", "datetime", "date_start"}
	sessEndKeys   = []string{"end", "end_time", "endtime", "date_end"}
)

func str(obj map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := obj[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func dateField(obj map[string]any, season int, keys []string) string {
	for _, k := range keys {
		if v, ok := obj[k]; ok {
			if d, ok := parseDateValue(v, season); ok {
				return d
			}
		}
	}
	return ""
}

func eventFromObject(raw map[string]any, p Page) (domain.DraftEvent, bool) {
	obj := lower(raw)
	name := str(obj, nameKeys...)
	start := dateField(obj, p.Season, startKeys)
	if name == "" || start == "" {
		return domain.DraftEvent{}, false
	}
	end := dateField(obj, p.Season, endKeys)
	if end == "" || end < start {
		end = start
	}
	ev := p.event(name, start, end)
	ev.VenueName = str(obj, circuitKeys...)
	for _, k := range placeKeys {
		nested, ok := obj[k].(map[string]any)
		if !ok {
			continue
		}
		n := lower(nested)
		if ev.VenueName == "" {
			ev.VenueName = str(n, "name", "circuit", "track", "circuitname", "trackname")
		}
		if ev.City == "" {
			ev.City = str(n, "city", "town", "locality")
		}
		if ev.Country == "" {
			ev.Country = str(n, "country", "countryname", "country_name")
		}
		if ev.Region == "" {
			ev.Region = str(n, "region", "state")
		}
	}
	if ev.City == "" {
		ev.City = str(obj, "city", "town")
	}
	if ev.Country == "" {
		ev.Country = str(obj, "country", "countryname", "country_name")
	}
	for _, k := range sessionKeys {
		for _, s := range objects(obj[k]) {
			if ds, ok := sessionFromObject(s, p); ok {
				ev.Sessions = append(ev.Sessions, ds)
			}
		}
		if len(ev.Sessions) > 0 {
			break
		}
	}
	return ev, true
}

// sessionFromObject reads a session. RFC 3339 timestamps are converted to
// UTC so the clock and zone stay consistent; a bare date leaves the session
// TBD.
func sessionFromObject(raw map[string]any, p Page) (domain.DraftSession, bool) {
	obj := lower(raw)
	name := str(obj, sessNameKeys...)
	if name == "" {
		return domain.DraftSession{}, false
	}
	date, clock, zone := timestampField(obj, p.Season, sessStartKeys)
	ds := domain.NewDraftSession(name, date, clock, zone, p.URL, p.Tier.Confidence())
	if _, endClock, _ := timestampField(obj, p.Season, sessEndKeys); endClock != "" {
		ds.EndTime = endClock
	}
	return ds, true
}

func timestampField(obj map[string]any, season int, keys []string) (date, clock, zone string) {
	for _, k := range keys {
		s, ok := obj[k].(string)
		if !ok || s == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			t = t.UTC()
			return t.Format(isoDate), t.Format("15:04"), "GMT"
		}
		if d, ok := parseDateValue(s, season); ok {
			return d, "", ""
		}
	}
	return "", "", ""
}
