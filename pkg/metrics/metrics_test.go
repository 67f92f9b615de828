package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilEngineIsNoop(t *testing.T) {
	var e *Engine
	e.Fetch("ok", time.Second)
	e.SearchQuery("serpapi", "ok")
	e.SessionAcquired()
	e.SessionReleased()
	e.Warning("fetch")
	e.RunFinished("ok", time.Minute)
}

func TestCounters(t *testing.T) {
	e := New()
	e.Fetch("ok", 2*time.Second)
	e.Fetch("ok", time.Second)
	e.Fetch("error", time.Second)
	e.SearchQuery("bing", "cached")
	e.Warning("trust")

	if got := testutil.ToFloat64(e.fetches.WithLabelValues("ok")); got != 2 {
		t.Fatalf("expected 2 ok fetches, got %v", got)
	}
	if got := testutil.ToFloat64(e.queries.WithLabelValues("bing", "cached")); got != 1 {
		t.Fatalf("expected 1 cached query, got %v", got)
	}

	e.SessionAcquired()
	e.SessionAcquired()
	e.SessionReleased()
	if got := testutil.ToFloat64(e.sessions); got != 1 {
		t.Fatalf("expected 1 session in use, got %v", got)
	}
}

func TestHandler(t *testing.T) {
	e := New()
	e.RunFinished("ok", 3*time.Second)

	rec := httptest.NewRecorder()
	e.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{"fallback_runs_total{result=\"ok\"} 1", "fallback_run_duration_seconds_count 1"} {
		if !strings.Contains(body, want) {
			t.Errorf("missing %q in output:\n%s", want, body)
		}
	}
}
