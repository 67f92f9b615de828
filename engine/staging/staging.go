// Package staging writes finished search-fallback drafts into Neo4j for
// review. Drafts are merged by id, so restaging a run is idempotent; nothing
// here publishes a schedule.
package staging

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/WessleyAI/schedule-fallback/engine/domain"
	"github.com/WessleyAI/schedule-fallback/engine/fallback"
	"github.com/WessleyAI/schedule-fallback/pkg/repo"
)

// Node labels.
const (
	LabelSeries  = "DraftSeries"
	LabelEvent   = "DraftEvent"
	LabelSession = "DraftSession"
	LabelSource  = "Source"
)

// EventRecord is a staged event as stored on its node.
type EventRecord struct {
	EventID          string    `json:"event_id"`
	SeriesID         string    `json:"series_id"`
	Season           int       `json:"season"`
	Name             string    `json:"name"`
	StartDate        string    `json:"start_date"`
	EndDate          string    `json:"end_date"`
	Circuit          string    `json:"circuit,omitempty"`
	Country          string    `json:"country"`
	Timezone         string    `json:"timezone"`
	InferredTimezone bool      `json:"inferred_timezone"`
	SessionCount     int       `json:"session_count"`
	MissingFields    []string  `json:"missing_fields,omitempty"`
	RunID            string    `json:"run_id"`
	StagedAt         time.Time `json:"staged_at"`
}

// Store stages drafts.
type Store struct {
	sessions repo.SessionFunc
	events   *repo.Neo4jRepo[EventRecord, string]
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a Store. Use repo.DriverSessions(driver) in production.
func New(sessions repo.SessionFunc, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		sessions: sessions,
		events: repo.NewNeo4jRepo[EventRecord, string](sessions, LabelEvent, eventToMap, eventFromRecord,
			repo.WithIDKey[EventRecord, string]("event_id")),
		logger: logger,
		now:    time.Now,
	}
}

// Stage writes out's draft: one series node per (series, season), event
// nodes with their sessions and sources, and the missing fields of each
// event. An output without a draft is rejected.
func (s *Store) Stage(ctx context.Context, out *fallback.Output) error {
	if out == nil || out.Draft == nil {
		return fmt.Errorf("stage: output has no draft")
	}
	series := out.Draft
	stagedAt := s.now().UTC()

	sess := s.sessions(ctx)
	defer sess.Close(ctx)

	_, err := sess.Run(ctx, `MERGE (s:`+LabelSeries+` {series_id: $series_id, season: $season})
		SET s.name = $name, s.category = $category, s.run_id = $run_id,
		    s.staged_at = $staged_at, s.needs_review = $needs_review, s.warnings = $warnings`,
		map[string]any{
			"series_id":    series.SeriesID,
			"season":       series.Season,
			"name":         series.Name,
			"category":     string(series.Category),
			"run_id":       out.RunID,
			"staged_at":    stagedAt.Format(time.RFC3339),
			"needs_review": out.NeedsReview(),
			"warnings":     nonNil(out.Warnings),
		})
	if err != nil {
		return fmt.Errorf("stage series %s: %w", series.SeriesID, err)
	}

	missing := missingByEvent(out.MissingFields)
	for _, ev := range series.Events {
		rec := EventRecord{
			EventID:          ev.EventID,
			SeriesID:         series.SeriesID,
			Season:           series.Season,
			Name:             ev.Name,
			StartDate:        ev.StartDate,
			EndDate:          ev.EndDate,
			Circuit:          ev.Venue.Circuit,
			Country:          ev.Venue.Country,
			Timezone:         ev.Venue.Timezone,
			InferredTimezone: ev.Venue.InferredTimezone,
			SessionCount:     len(ev.Sessions),
			MissingFields:    missing[ev.Name],
			RunID:            out.RunID,
			StagedAt:         stagedAt,
		}
		if err := s.events.Upsert(ctx, rec); err != nil {
			return fmt.Errorf("stage event %s: %w", ev.EventID, err)
		}
		if err := s.linkEvent(ctx, sess, series, ev); err != nil {
			return err
		}
	}
	s.logger.Info("draft staged", "series", series.SeriesID, "season", series.Season,
		"events", len(series.Events), "run_id", out.RunID)
	return nil
}

func (s *Store) linkEvent(ctx context.Context, sess repo.Runner, series *domain.Series, ev domain.Event) error {
	_, err := sess.Run(ctx, `MATCH (s:`+LabelSeries+` {series_id: $series_id, season: $season}), (e:`+LabelEvent+` {event_id: $event_id})
		MERGE (s)-[:HAS_EVENT]->(e)`,
		map[string]any{"series_id": series.SeriesID, "season": series.Season, "event_id": ev.EventID})
	if err != nil {
		return fmt.Errorf("link event %s: %w", ev.EventID, err)
	}

	for _, x := range ev.Sessions {
		_, err := sess.Run(ctx, `MATCH (e:`+LabelEvent+` {event_id: $event_id})
			MERGE (x:`+LabelSession+` {session_key: $key})
			SET x += $props
			MERGE (e)-[:HAS_SESSION]->(x)`,
			map[string]any{
				"event_id": ev.EventID,
				"key":      ev.EventID + "/" + x.SessionID,
				"props": map[string]any{
					"session_id": x.SessionID,
					"name":       x.Name,
					"type":       string(x.Type),
					"start":      x.Start,
					"end":        x.End,
					"status":     string(x.Status),
				},
			})
		if err != nil {
			return fmt.Errorf("stage session %s/%s: %w", ev.EventID, x.SessionID, err)
		}
	}

	for _, src := range ev.Sources {
		_, err := sess.Run(ctx, `MATCH (e:`+LabelEvent+` {event_id: $event_id})
			MERGE (src:`+LabelSource+` {url: $url})
			MERGE (e)-[r:SOURCED_FROM]->(src)
			SET r.provider_name = $provider, r.retrieved_at = $retrieved_at,
			    r.extraction_method = $method, r.endpoints = $endpoints`,
			map[string]any{
				"event_id":     ev.EventID,
				"url":          src.URL,
				"provider":     src.ProviderName,
				"retrieved_at": src.RetrievedAt.UTC().Format(time.RFC3339),
				"method":       src.ExtractionMethod,
				"endpoints":    nonNil(src.DiscoveredEndpoints),
			})
		if err != nil {
			return fmt.Errorf("stage source %s: %w", src.URL, err)
		}
	}
	return nil
}

// Events lists the staged events of a series season in start order.
func (s *Store) Events(ctx context.Context, seriesID string, season int) ([]EventRecord, error) {
	return s.events.List(ctx, repo.ListOpts{
		Filter:  map[string]any{"series_id": seriesID, "season": season},
		OrderBy: "start_date",
		Limit:   500,
	})
}

// Event returns one staged event.
func (s *Store) Event(ctx context.Context, eventID string) (EventRecord, error) {
	return s.events.Get(ctx, eventID)
}

func missingByEvent(fields []fallback.MissingField) map[string][]string {
	out := make(map[string][]string)
	for _, f := range fields {
		out[f.EventName] = append(out[f.EventName], f.Field+": "+f.Reason)
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func eventToMap(e EventRecord) map[string]any {
	return map[string]any{
		"event_id":          e.EventID,
		"series_id":         e.SeriesID,
		"season":            e.Season,
		"name":              e.Name,
		"start_date":        e.StartDate,
		"end_date":          e.EndDate,
		"circuit":           e.Circuit,
		"country":           e.Country,
		"timezone":          e.Timezone,
		"inferred_timezone": e.InferredTimezone,
		"session_count":     e.SessionCount,
		"missing_fields":    nonNil(e.MissingFields),
		"run_id":            e.RunID,
		"staged_at":         e.StagedAt.UTC().Format(time.RFC3339),
	}
}

func eventFromRecord(rec *neo4j.Record) (EventRecord, error) {
	node, _, err := neo4j.GetRecordValue[dbtype.Node](rec, "n")
	if err != nil {
		return EventRecord{}, err
	}
	return eventFromProps(node.Props), nil
}

func eventFromProps(props map[string]any) EventRecord {
	e := EventRecord{
		EventID:      strProp(props, "event_id"),
		SeriesID:     strProp(props, "series_id"),
		Season:       intProp(props, "season"),
		Name:         strProp(props, "name"),
		StartDate:    strProp(props, "start_date"),
		EndDate:      strProp(props, "end_date"),
		Circuit:      strProp(props, "circuit"),
		Country:      strProp(props, "country"),
		Timezone:     strProp(props, "timezone"),
		SessionCount: intProp(props, "session_count"),
		RunID:        strProp(props, "run_id"),
	}
	e.InferredTimezone, _ = props["inferred_timezone"].(bool)
	if list, ok := props["missing_fields"].([]any); ok {
		for _, v := range list {
			if s, ok := v.(string); ok {
				e.MissingFields = append(e.MissingFields, s)
			}
		}
	}
	if t, err := time.Parse(time.RFC3339, strProp(props, "staged_at")); err == nil {
		e.StagedAt = t
	}
	return e
}

func strProp(props map[string]any, key string) string {
	if s, ok := props[key].(string); ok {
		return s
	}
	return ""
}

// intProp reads integers, which the driver returns as int64.
func intProp(props map[string]any, key string) int {
	switch v := props[key].(type) {
	case int64:
		return int(v)
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}
