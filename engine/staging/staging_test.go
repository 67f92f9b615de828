package staging

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/WessleyAI/schedule-fallback/engine/domain"
	"github.com/WessleyAI/schedule-fallback/engine/fallback"
	"github.com/WessleyAI/schedule-fallback/pkg/repo"
)

type fakeResult struct {
	records []*neo4j.Record
	idx     int
}

func (f *fakeResult) Next(context.Context) bool {
	if f.idx < len(f.records) {
		f.idx++
		return true
	}
	return false
}

func (f *fakeResult) Record() *neo4j.Record { return f.records[f.idx-1] }

// fakeDB records every statement across sessions.
type fakeDB struct {
	mu      sync.Mutex
	cyphers []string
	params  []map[string]any
	records []*neo4j.Record
	failOn  string
}

func (db *fakeDB) session(context.Context) repo.Runner { return &fakeSession{db: db} }

type fakeSession struct{ db *fakeDB }

func (s *fakeSession) Run(_ context.Context, cypher string, params map[string]any) (repo.Result, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.cyphers = append(s.db.cyphers, cypher)
	s.db.params = append(s.db.params, params)
	if s.db.failOn != "" && strings.Contains(cypher, s.db.failOn) {
		return nil, errors.New("neo4j unavailable")
	}
	return &fakeResult{records: s.db.records}, nil
}

func (s *fakeSession) Close(context.Context) error { return nil }

func testOutput() *fallback.Output {
	at := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
	return &fallback.Output{
		RunID:   "run-1",
		Request: fallback.Request{SeriesID: "wec", SeriesName: "FIA WEC", Season: 2024},
		Draft: &domain.Series{
			SeriesID: "wec", Name: "FIA WEC", Season: 2024, Category: domain.CategoryEndurance,
			Events: []domain.Event{{
				EventID:   "wec_2024_6_hours_of_spa",
				SeriesID:  "wec",
				Name:      "6 Hours of Spa",
				StartDate: "2024-05-09",
				EndDate:   "2024-05-11",
				Venue:     domain.Venue{Country: "Belgium", City: "Spa", Timezone: "Europe/Brussels"},
				Sessions: []domain.Session{
					{SessionID: "fp1", Name: "FP1", Type: domain.SessionPractice, Start: "2024-05-09T11:00:00+02:00", Status: domain.StatusScheduled},
					{SessionID: "race", Name: "Race", Type: domain.SessionRace, Status: domain.StatusTBD},
				},
				Sources: []domain.Source{{URL: "https://www.fiawec.com/en/calendar", ProviderName: "search_fallback (tier1)", RetrievedAt: at}},
			}},
		},
		MissingFields: []fallback.MissingField{{EventName: "6 Hours of Spa", Field: "session.Race.start", Reason: "Session time not found, TBC"}},
	}
}

func TestStageWritesGraph(t *testing.T) {
	db := &fakeDB{}
	s := New(db.session, nil)
	s.now = func() time.Time { return time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC) }

	if err := s.Stage(context.Background(), testOutput()); err != nil {
		t.Fatal(err)
	}
	// series, event upsert, event link, 2 sessions, 1 source
	if len(db.cyphers) != 6 {
		t.Fatalf("expected 6 statements, got %d:\n%s", len(db.cyphers), strings.Join(db.cyphers, "\n"))
	}
	if !strings.Contains(db.cyphers[0], "MERGE (s:DraftSeries") || db.params[0]["needs_review"] != true {
		t.Errorf("unexpected series statement %q %v", db.cyphers[0], db.params[0])
	}
	props := db.params[1]["props"].(map[string]any)
	if props["event_id"] != "wec_2024_6_hours_of_spa" || props["session_count"] != 2 {
		t.Errorf("unexpected event props %v", props)
	}
	if mf := props["missing_fields"].([]string); len(mf) != 1 || !strings.HasPrefix(mf[0], "session.Race.start") {
		t.Errorf("unexpected missing fields %v", mf)
	}
	if props["staged_at"] != "2024-02-02T00:00:00Z" {
		t.Errorf("staged_at = %v", props["staged_at"])
	}
	if db.params[3]["key"] != "wec_2024_6_hours_of_spa/fp1" {
		t.Errorf("session key = %v", db.params[3]["key"])
	}
	if !strings.Contains(db.cyphers[5], "SOURCED_FROM") {
		t.Errorf("expected source link, got %q", db.cyphers[5])
	}
}

func TestStageRejectsEmptyOutput(t *testing.T) {
	s := New((&fakeDB{}).session, nil)
	if err := s.Stage(context.Background(), &fallback.Output{}); err == nil {
		t.Fatal("expected error for output without draft")
	}
}

func TestStagePropagatesErrors(t *testing.T) {
	db := &fakeDB{failOn: "HAS_SESSION"}
	err := New(db.session, nil).Stage(context.Background(), testOutput())
	if err == nil || !strings.Contains(err.Error(), "stage session") {
		t.Fatalf("expected session error, got %v", err)
	}
}

func TestEventsDecodesNodes(t *testing.T) {
	node := dbtype.Node{Props: map[string]any{
		"event_id":          "wec_2024_6_hours_of_spa",
		"series_id":         "wec",
		"season":            int64(2024),
		"name":              "6 Hours of Spa",
		"start_date":        "2024-05-09",
		"inferred_timezone": true,
		"session_count":     int64(2),
		"missing_fields":    []any{"session.Race.start: Session time not found, TBC"},
		"staged_at":         "2024-02-02T00:00:00Z",
	}}
	db := &fakeDB{records: []*neo4j.Record{{Keys: []string{"n"}, Values: []any{node}}}}
	events, err := New(db.session, nil).Events(context.Background(), "wec", 2024)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events", len(events))
	}
	e := events[0]
	if e.Season != 2024 || e.SessionCount != 2 || !e.InferredTimezone || len(e.MissingFields) != 1 || e.StagedAt.IsZero() {
		t.Fatalf("unexpected record %+v", e)
	}
	if !strings.Contains(db.cyphers[0], "ORDER BY n.start_date") || db.params[0]["f_series_id"] != "wec" {
		t.Fatalf("unexpected query %q %v", db.cyphers[0], db.params[0])
	}
}
