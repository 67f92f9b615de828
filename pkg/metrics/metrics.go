// Package metrics exposes the engine's Prometheus collectors. Every method is
// safe on a nil *Engine so components can run without metrics wired.
package metrics

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fallback"

// Engine holds the collectors for one process.
type Engine struct {
	registry      *prometheus.Registry
	fetches       *prometheus.CounterVec
	fetchDuration prometheus.Histogram
	queries       *prometheus.CounterVec
	sessions      prometheus.Gauge
	runDuration   prometheus.Histogram
	warnings      *prometheus.CounterVec
	runs          *prometheus.CounterVec
}

// New creates an Engine with its own registry.
func New() *Engine {
	e := &Engine{registry: prometheus.NewRegistry()}
	e.fetches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fetch_total",
		Help:      "Rendered page fetches by outcome.",
	}, []string{"outcome"})
	e.fetchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "fetch_duration_seconds",
		Help:      "Wall time of a single rendered fetch attempt.",
		Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 45, 60},
	})
	e.queries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "search_queries_total",
		Help:      "Search queries by provider and outcome.",
	}, []string{"provider", "outcome"})
	e.sessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "pool_sessions_in_use",
		Help:      "Render sessions currently held.",
	})
	e.runDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "run_duration_seconds",
		Help:      "Duration of a full three-pass run.",
		Buckets:   []float64{5, 15, 30, 60, 120, 300, 600, 1200},
	})
	e.warnings = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "warnings_total",
		Help:      "Warnings attached to run output by kind.",
	}, []string{"kind"})
	e.runs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "runs_total",
		Help:      "Completed runs by result.",
	}, []string{"result"})
	e.registry.MustRegister(e.fetches, e.fetchDuration, e.queries, e.sessions, e.runDuration, e.warnings, e.runs)
	return e
}

// Fetch records one fetch attempt.
func (e *Engine) Fetch(outcome string, d time.Duration) {
	if e == nil {
		return
	}
	e.fetches.WithLabelValues(outcome).Inc()
	e.fetchDuration.Observe(d.Seconds())
}

// SearchQuery records one search call.
func (e *Engine) SearchQuery(provider, outcome string) {
	if e == nil {
		return
	}
	e.queries.WithLabelValues(provider, outcome).Inc()
}

func (e *Engine) SessionAcquired() {
	if e != nil {
		e.sessions.Inc()
	}
}

func (e *Engine) SessionReleased() {
	if e != nil {
		e.sessions.Dec()
	}
}

// Warning counts one output warning.
func (e *Engine) Warning(kind string) {
	if e == nil {
		return
	}
	e.warnings.WithLabelValues(kind).Inc()
}

// RunFinished records a completed run. result is "ok", "empty" or "error".
func (e *Engine) RunFinished(result string, d time.Duration) {
	if e == nil {
		return
	}
	e.runs.WithLabelValues(result).Inc()
	e.runDuration.Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (e *Engine) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// ServeAsync starts a /metrics server in a goroutine. Errors are logged.
func (e *Engine) ServeAsync(port int, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", e.Handler())
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok\n"))
	})
	go func() {
		if err := http.ListenAndServe(fmt.Sprintf(":%d", port), mux); err != nil {
			logger.Error("metrics server stopped", "port", port, "err", err)
		}
	}()
}
