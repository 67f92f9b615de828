package repo

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

type mockResult struct {
	records []*neo4j.Record
	idx     int
}

func (m *mockResult) Next(ctx context.Context) bool {
	if m.idx < len(m.records) {
		m.idx++
		return true
	}
	return false
}

func (m *mockResult) Record() *neo4j.Record {
	return m.records[m.idx-1]
}

type mockRunner struct {
	result  *mockResult
	err     error
	cyphers []string
	params  []map[string]any
	closed  int
}

func (m *mockRunner) Run(ctx context.Context, cypher string, params map[string]any) (Result, error) {
	m.cyphers = append(m.cyphers, cypher)
	m.params = append(m.params, params)
	if m.err != nil {
		return nil, m.err
	}
	if m.result == nil {
		return &mockResult{}, nil
	}
	return m.result, nil
}

func (m *mockRunner) Close(ctx context.Context) error { m.closed++; return nil }

type entity struct {
	ID   string
	Name string
}

func makeRecord(id, name string) *neo4j.Record {
	return &neo4j.Record{
		Values: []any{map[string]any{"id": id, "name": name}},
		Keys:   []string{"n"},
	}
}

func newTestRepo(r *mockRunner, opts ...Neo4jOption[entity, string]) *Neo4jRepo[entity, string] {
	return NewNeo4jRepo[entity, string](
		func(context.Context) Runner { return r },
		"Entity",
		func(e entity) map[string]any { return map[string]any{"id": e.ID, "name": e.Name} },
		func(rec *neo4j.Record) (entity, error) {
			m, ok := rec.Values[0].(map[string]any)
			if !ok {
				return entity{}, errors.New("bad type")
			}
			return entity{ID: m["id"].(string), Name: m["name"].(string)}, nil
		},
		opts...,
	)
}

func TestNewNeo4jRepoIDKey(t *testing.T) {
	if r := newTestRepo(&mockRunner{}); r.idKey != "id" || r.Label() != "Entity" {
		t.Fatalf("unexpected defaults %q %q", r.idKey, r.Label())
	}
	if r := newTestRepo(&mockRunner{}, WithIDKey[entity, string]("uuid")); r.idKey != "uuid" {
		t.Fatalf("expected idKey=uuid, got %s", r.idKey)
	}
}

func TestGet(t *testing.T) {
	r := &mockRunner{result: &mockResult{records: []*neo4j.Record{makeRecord("1", "Alice")}}}
	e, err := newTestRepo(r).Get(context.Background(), "1")
	if err != nil {
		t.Fatal(err)
	}
	if e.ID != "1" || e.Name != "Alice" {
		t.Fatalf("got %+v", e)
	}
	if r.closed != 1 {
		t.Fatalf("session not closed")
	}

	_, err = newTestRepo(&mockRunner{}).Get(context.Background(), "x")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	_, err = newTestRepo(&mockRunner{err: errors.New("db down")}).Get(context.Background(), "x")
	if err == nil || err.Error() != "db down" {
		t.Fatalf("expected db down, got %v", err)
	}
}

func TestListBuildsFilterAndOrder(t *testing.T) {
	r := &mockRunner{result: &mockResult{records: []*neo4j.Record{makeRecord("1", "A"), makeRecord("2", "B")}}}
	items, err := newTestRepo(r).List(context.Background(), ListOpts{
		Filter:  map[string]any{"season": 2024, "series_id": "wec"},
		OrderBy: "start_date",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items", len(items))
	}
	want := "MATCH (n:Entity) WHERE n.season = $f_season AND n.series_id = $f_series_id RETURN n ORDER BY n.start_date SKIP $offset LIMIT $limit"
	if r.cyphers[0] != want {
		t.Fatalf("cypher:\n%s\nwant:\n%s", r.cyphers[0], want)
	}
	p := r.params[0]
	if p["limit"] != 100 || p["f_season"] != 2024 || p["f_series_id"] != "wec" {
		t.Fatalf("unexpected params %v", p)
	}
}

func TestListRejectsInjection(t *testing.T) {
	repo := newTestRepo(&mockRunner{})
	if _, err := repo.List(context.Background(), ListOpts{Filter: map[string]any{"x) DETACH DELETE n //": 1}}); err == nil {
		t.Fatal("expected invalid filter error")
	}
	if _, err := repo.List(context.Background(), ListOpts{OrderBy: "name DESC"}); err == nil {
		t.Fatal("expected invalid order error")
	}
}

func TestListErrors(t *testing.T) {
	if _, err := newTestRepo(&mockRunner{err: errors.New("fail")}).List(context.Background(), ListOpts{}); err == nil {
		t.Fatal("expected run error")
	}
	bad := &neo4j.Record{Values: []any{"not a map"}, Keys: []string{"n"}}
	r := &mockRunner{result: &mockResult{records: []*neo4j.Record{bad}}}
	if _, err := newTestRepo(r).List(context.Background(), ListOpts{Limit: 10}); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestUpsert(t *testing.T) {
	r := &mockRunner{}
	if err := newTestRepo(r).Upsert(context.Background(), entity{ID: "3", Name: "C"}); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(r.cyphers[0], "MERGE (n:Entity {id: $id})") || r.params[0]["id"] != "3" {
		t.Fatalf("unexpected upsert %q %v", r.cyphers[0], r.params[0])
	}
	if err := newTestRepo(&mockRunner{}).Upsert(context.Background(), entity{Name: "no id"}); err == nil {
		t.Fatal("expected missing id error")
	}
	if err := newTestRepo(&mockRunner{err: errors.New("fail")}).Upsert(context.Background(), entity{ID: "1"}); err == nil {
		t.Fatal("expected run error")
	}
}

func TestDelete(t *testing.T) {
	r := &mockRunner{}
	if err := newTestRepo(r).Delete(context.Background(), "1"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(r.cyphers[0], "DETACH DELETE") {
		t.Fatalf("unexpected cypher %q", r.cyphers[0])
	}
	if err := newTestRepo(&mockRunner{err: errors.New("fail")}).Delete(context.Background(), "1"); err == nil {
		t.Fatal("expected error")
	}
}
