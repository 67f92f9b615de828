// Package fallback runs the three-pass search-fallback discovery: find the
// season schedule, find each event's page, then resolve missing session
// times, and assemble what was found into a draft schedule with provenance.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/WessleyAI/schedule-fallback/engine/domain"
	"github.com/WessleyAI/schedule-fallback/engine/query"
	"github.com/WessleyAI/schedule-fallback/engine/rank"
	"github.com/WessleyAI/schedule-fallback/engine/search"
	"github.com/WessleyAI/schedule-fallback/engine/trust"
	"github.com/WessleyAI/schedule-fallback/pkg/fn"
	"github.com/WessleyAI/schedule-fallback/pkg/metrics"
)

// Results requested per query in each pass.
const (
	countSchedule = 10
	countEvent    = 5
	countSessions = 3
)

// State is a step of a run. States advance strictly in order.
type State int

const (
	StatePass1Discovery State = iota
	StatePass1Extraction
	StatePass2Discovery
	StatePass2Extraction
	StatePass3Resolution
	StateAssembly
	StateDone
)

var stateNames = [...]string{
	"pass1_discovery", "pass1_extraction", "pass2_discovery",
	"pass2_extraction", "pass3_resolution", "assembly", "done",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// Searcher is the search client as seen by the orchestrator.
type Searcher interface {
	Search(ctx context.Context, query string, count, recencyDays int) ([]search.Result, error)
	ProviderName() string
}

// Extractor reads pages into drafts. See extract.Extractor.
type Extractor interface {
	ExtractSchedulePage(ctx context.Context, url, seriesName string, season int, tier domain.Tier) ([]domain.DraftEvent, []domain.Warning, error)
	ExtractEventPage(ctx context.Context, url, eventName string, season int, tier domain.Tier) ([]domain.DraftSession, []domain.Warning, error)
	ExtractEndpoints(ctx context.Context, url string, season int, tier domain.Tier) ([]domain.DraftEvent, []domain.Warning, error)
}

// Orchestrator runs discovery. It holds no per-run state and may serve
// concurrent runs.
type Orchestrator struct {
	search   Searcher
	extract  Extractor
	trustFor func(seriesID string) *trust.Model
	hints    *trust.Hints
	workers  int
	progress func(State, string)
	metrics  *metrics.Engine
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithTrust supplies the per-series trust model, e.g. trust.File.ModelFor.
func WithTrust(f func(seriesID string) *trust.Model) Option {
	return func(o *Orchestrator) { o.trustFor = f }
}

// WithHints supplies site hints used for venue timezones.
func WithHints(h *trust.Hints) Option { return func(o *Orchestrator) { o.hints = h } }

// WithWorkers bounds the page fan-out; use the render pool's concurrency.
func WithWorkers(n int) Option { return func(o *Orchestrator) { o.workers = n } }

// WithProgress registers a callback for state transitions and per-page
// progress.
func WithProgress(f func(State, string)) Option { return func(o *Orchestrator) { o.progress = f } }

// WithMetrics records run outcomes and warnings.
func WithMetrics(m *metrics.Engine) Option { return func(o *Orchestrator) { o.metrics = m } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(o *Orchestrator) { o.logger = l } }

// New creates an Orchestrator.
func New(s Searcher, x Extractor, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		search:  s,
		extract: x,
		trustFor: func(id string) *trust.Model {
			return trust.NewForSeries(id, trust.Overrides{})
		},
		workers: 3,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// run is the mutable state of one invocation. Fan-out stages return their
// results and only the run goroutine touches this struct.
type run struct {
	req      Request
	category domain.SeriesCategory
	trust    *trust.Model
	gen      *query.Generator
	ranker   *rank.Ranker
	out      *Output
	events   []domain.DraftEvent
}

// Run executes the pipeline. Only configuration errors and cancellation
// abort a run; every other failure becomes a warning on the output.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Output, error) {
	start := o.now()
	if err := req.Validate(); err != nil {
		o.metrics.RunFinished("error", 0)
		return nil, err
	}
	if o.search == nil || o.extract == nil {
		o.metrics.RunFinished("error", 0)
		return nil, domain.NewConfigurationError("orchestrator", "search client and extractor are required")
	}

	model := o.trustFor(req.SeriesID)
	category := domain.ParseCategory(req.Category)
	r := &run{
		req:      req,
		category: category,
		trust:    model,
		gen:      query.New(req.SeriesName, req.Season, category, model),
		ranker:   rank.New(model),
		out: &Output{
			RunID:     uuid.NewString(),
			Request:   req,
			StartedAt: start.UTC(),
		},
	}
	logger := o.logger.With("run_id", r.out.RunID, "series", req.SeriesID, "season", req.Season)
	logger.Info("search fallback started", "provider", o.search.ProviderName())

	steps := []struct {
		state State
		do    func(context.Context, *run) error
	}{
		{StatePass1Discovery, o.pass1},
		{StatePass2Discovery, o.pass2},
		{StatePass3Resolution, o.pass3},
		{StateAssembly, o.assemble},
	}
	for _, step := range steps {
		o.report(step.state, "")
		stage := fn.TracedStage("fallback."+step.state.String(), func(ctx context.Context, r *run) fn.Result[*run] {
			if err := step.do(ctx, r); err != nil {
				return fn.Err[*run](err)
			}
			return fn.Ok(r)
		}, attribute.String("series", req.SeriesID), attribute.Int("season", req.Season))
		if _, err := stage(ctx, r).Unwrap(); err != nil {
			logger.Error("search fallback aborted", "state", step.state.String(), "err", err)
			o.metrics.RunFinished("error", o.now().Sub(start))
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			o.metrics.RunFinished("error", o.now().Sub(start))
			return nil, err
		}
	}
	o.report(StateDone, "")

	r.out.TotalQueries = len(r.out.Provenance)
	r.out.FinishedAt = o.now().UTC()
	result := "ok"
	if len(r.out.Draft.Events) == 0 {
		result = "empty"
	}
	o.metrics.RunFinished(result, o.now().Sub(start))
	logger.Info("search fallback finished",
		"events", len(r.out.Draft.Events),
		"missing_fields", len(r.out.MissingFields),
		"warnings", len(r.out.Warnings),
		"queries", r.out.TotalQueries,
		"pages", r.out.TotalPagesFetched)
	return r.out, nil
}

func (o *Orchestrator) report(s State, detail string) {
	if o.progress != nil {
		o.progress(s, detail)
	}
}

func (o *Orchestrator) warn(r *run, w domain.Warning) {
	o.metrics.Warning(string(w.Kind))
	r.out.Warnings = append(r.out.Warnings, w.String())
}

// queryBatch is what running one pass's queries produced.
type queryBatch struct {
	results    []search.Result
	provenance []search.Provenance
	warnings   []domain.Warning
	attempts   int
	failures   int
}

// runQueries executes queries in order, merges hits deduplicated by URL and
// records one provenance entry per successful query.
func (o *Orchestrator) runQueries(ctx context.Context, queries []query.Query, count int) queryBatch {
	var b queryBatch
	seen := make(map[string]bool)
	provider := o.search.ProviderName()
	for _, q := range queries {
		if ctx.Err() != nil {
			break
		}
		b.attempts++
		results, err := o.search.Search(ctx, q.Text, count, 0)
		if err != nil {
			b.failures++
			b.warnings = append(b.warnings, domain.Warning{
				Kind:     domain.WarnSearch,
				Severity: domain.SeverityWarning,
				Field:    "query",
				Message:  fmt.Sprintf("Search query failed: '%s': %v", q.Text, err),
			})
			o.logger.Warn("search query failed", "query", q.Text, "pass", q.Pass, "err", err)
			continue
		}
		b.provenance = append(b.provenance, rank.QueryProvenance(q, provider, results, o.now()))
		for _, res := range results {
			if res.URL == "" || seen[res.URL] {
				continue
			}
			seen[res.URL] = true
			b.results = append(b.results, res)
		}
	}
	return b
}

func (o *Orchestrator) absorb(r *run, b queryBatch) {
	r.out.Provenance = append(r.out.Provenance, b.provenance...)
	for _, w := range b.warnings {
		o.warn(r, w)
	}
}

func (o *Orchestrator) addCandidates(r *run, pass int, selected []rank.Ranked) {
	for _, s := range selected {
		r.out.CandidatePages = append(r.out.CandidatePages, CandidatePage{
			URL:     s.Result.URL,
			Title:   s.Result.Title,
			Tier:    s.Tier,
			Score:   s.Score,
			Reasons: s.Reasons,
			Pass:    pass,
		})
	}
}

// pageOutcome is one fetched page's contribution.
type pageOutcome struct {
	events   []domain.DraftEvent
	warnings []domain.Warning
	fetched  int
}

// pageFailure sorts a per-page error: configuration errors and
// cancellation abort the run, anything else becomes a warning.
func pageFailure(url string, err error) (domain.Warning, error) {
	if domain.IsFatal(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return domain.Warning{}, err
	}
	return domain.WarningFromError("page", fmt.Errorf("Failed to extract %s: %w", url, err)), nil
}

// pass1 discovers and reads the season schedule.
func (o *Orchestrator) pass1(ctx context.Context, r *run) error {
	batch := o.runQueries(ctx, r.gen.Pass1(), countSchedule)
	o.absorb(r, batch)
	results := batch.results
	if u := r.trust.OfficialScheduleURL(); u != "" && !containsURL(results, u) {
		results = append([]search.Result{{Title: "Official schedule", URL: u}}, results...)
	}

	if batch.attempts > 0 && batch.failures == batch.attempts {
		o.warn(r, domain.Warning{
			Kind:     domain.WarnSearch,
			Severity: domain.SeverityError,
			Field:    "search",
			Message:  fmt.Sprintf("Search provider %s unavailable: all %d schedule queries failed", o.search.ProviderName(), batch.attempts),
		})
	}

	ranked := r.ranker.Rank(results, r.req.SeriesName, r.req.Season, "")
	selected, warnings := rank.SelectURLs(ranked, rank.CapsSchedule)
	for _, w := range warnings {
		if w.Message == rank.MsgNoTier1 && len(selected) > 0 {
			// Leads the output so callers can spot unverified drafts.
			o.metrics.Warning(string(w.Kind))
			r.out.Warnings = append([]string{w.String()}, r.out.Warnings...)
			continue
		}
		if w.Message == rank.MsgNoTier1 {
			continue
		}
		o.warn(r, w)
	}
	o.addCandidates(r, query.PassSchedule, selected)
	r.out.Selections = append(r.out.Selections,
		rank.SelectionProvenance(fmt.Sprintf("pass=%d, series=%s", query.PassSchedule, r.req.SeriesName), o.search.ProviderName(), selected, o.now()))
	o.logger.Info("pass 1 discovery", "results", len(results), "selected", len(selected))

	o.report(StatePass1Extraction, "")
	outcomes := fn.ParMap(ctx, selected, o.workers, func(ctx context.Context, sel rank.Ranked) fn.Result[pageOutcome] {
		return o.readSchedule(ctx, r, sel)
	})
	pages, errs := fn.Partition(outcomes)
	if len(errs) > 0 {
		return errs[0]
	}
	var drafts []domain.DraftEvent
	for _, po := range pages {
		r.out.TotalPagesFetched += po.fetched
		for _, w := range po.warnings {
			o.warn(r, w)
		}
		for _, ev := range po.events {
			if err := domain.ValidateDraftEvent(ev); err != nil {
				o.warn(r, domain.Warning{Kind: domain.WarnExtraction, Severity: domain.SeverityInfo, Field: "event", Message: err.Error(), SourceURL: ev.SourceURL})
				continue
			}
			drafts = append(drafts, ev)
		}
	}
	r.events = dedupeEvents(drafts)
	o.logger.Info("pass 1 extraction", "pages", len(selected), "events", len(r.events))
	return nil
}

// readSchedule reads events from one schedule page, falling back to network
// capture when the HTML has no recognisable structure.
func (o *Orchestrator) readSchedule(ctx context.Context, r *run, sel rank.Ranked) fn.Result[pageOutcome] {
	url := sel.Result.URL
	o.report(StatePass1Extraction, url)
	events, warnings, err := o.extract.ExtractSchedulePage(ctx, url, r.req.SeriesName, r.req.Season, sel.Tier)
	if err != nil {
		w, fatal := pageFailure(url, err)
		if fatal != nil {
			return fn.Err[pageOutcome](fatal)
		}
		return fn.Ok(pageOutcome{warnings: []domain.Warning{w}})
	}
	po := pageOutcome{events: events, warnings: warnings, fetched: 1}
	if len(events) > 0 {
		return fn.Ok(po)
	}
	events, warnings, err = o.extract.ExtractEndpoints(ctx, url, r.req.Season, sel.Tier)
	if err != nil {
		w, fatal := pageFailure(url, err)
		if fatal != nil {
			return fn.Err[pageOutcome](fatal)
		}
		po.warnings = append(po.warnings, w)
		return fn.Ok(po)
	}
	po.fetched++
	po.events = events
	po.warnings = append(po.warnings, warnings...)
	return fn.Ok(po)
}

// eventOutcome is what passes 2 and 3 learned about one event.
type eventOutcome struct {
	batch     queryBatch
	selected  []rank.Ranked
	selection search.Provenance
	selWarns  []domain.Warning
	sessions  []domain.DraftSession
	replaced  bool
	warnings  []domain.Warning
	fetched   int
}

// pass2 finds each event's page and reads its sessions. Events are
// independent, so they fan out over the worker bound.
func (o *Orchestrator) pass2(ctx context.Context, r *run) error {
	if len(r.events) == 0 {
		return nil
	}
	o.report(StatePass2Extraction, "")
	outcomes := fn.ParMap(ctx, r.events, o.workers, func(ctx context.Context, ev domain.DraftEvent) fn.Result[eventOutcome] {
		return o.eventSessions(ctx, r, ev)
	})
	for i, res := range outcomes {
		eo, err := res.Unwrap()
		if err != nil {
			return err
		}
		o.absorb(r, eo.batch)
		for _, w := range fn.Filter(eo.selWarns, notNoTier1) {
			o.warn(r, w)
		}
		o.addCandidates(r, query.PassEvent, eo.selected)
		r.out.Selections = append(r.out.Selections, eo.selection)
		r.out.TotalPagesFetched += eo.fetched
		for _, w := range eo.warnings {
			o.warn(r, w)
		}
		if len(eo.sessions) > 0 {
			r.events[i].Sessions = eo.sessions
		}
	}
	return nil
}

func (o *Orchestrator) eventSessions(ctx context.Context, r *run, ev domain.DraftEvent) fn.Result[eventOutcome] {
	var eo eventOutcome
	eo.batch = o.runQueries(ctx, r.gen.Pass2(ev.Name, ev.VenueName), countEvent)
	ranked := r.ranker.Rank(eo.batch.results, r.req.SeriesName, r.req.Season, ev.Name)
	eo.selected, eo.selWarns = rank.SelectURLs(ranked, rank.CapsEvent)
	eo.selection = rank.SelectionProvenance(fmt.Sprintf("pass=%d, event=%s", query.PassEvent, ev.Name), o.search.ProviderName(), eo.selected, o.now())
	for _, sel := range eo.selected {
		o.report(StatePass2Extraction, sel.Result.URL)
		sessions, warnings, err := o.extract.ExtractEventPage(ctx, sel.Result.URL, ev.Name, r.req.Season, sel.Tier)
		if err != nil {
			w, fatal := pageFailure(sel.Result.URL, err)
			if fatal != nil {
				return fn.Err[eventOutcome](fatal)
			}
			eo.warnings = append(eo.warnings, w)
			continue
		}
		eo.fetched++
		eo.warnings = append(eo.warnings, warnings...)
		if len(sessions) > 0 {
			eo.sessions = sessions
			break
		}
	}
	return fn.Ok(eo)
}

// pass3 retries events that still lack sessions or have TBD times.
func (o *Orchestrator) pass3(ctx context.Context, r *run) error {
	var idx []int
	for i, ev := range r.events {
		if ev.NeedsTimes() {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		return nil
	}
	outcomes := fn.ParMap(ctx, idx, o.workers, func(ctx context.Context, i int) fn.Result[eventOutcome] {
		return o.resolveTimes(ctx, r, r.events[i])
	})
	for k, res := range outcomes {
		eo, err := res.Unwrap()
		if err != nil {
			return err
		}
		o.absorb(r, eo.batch)
		o.addCandidates(r, query.PassSessions, eo.selected)
		r.out.TotalPagesFetched += eo.fetched
		for _, w := range eo.warnings {
			o.warn(r, w)
		}
		if eo.replaced {
			r.events[idx[k]].Sessions = eo.sessions
		}
	}
	return nil
}

func (o *Orchestrator) resolveTimes(ctx context.Context, r *run, ev domain.DraftEvent) fn.Result[eventOutcome] {
	var eo eventOutcome
	eo.batch = o.runQueries(ctx, r.gen.Pass3(ev.Name, firstUntimed(ev)), countSessions)
	if len(eo.batch.results) == 0 {
		return fn.Ok(eo)
	}
	ranked := r.ranker.Rank(eo.batch.results, r.req.SeriesName, r.req.Season, ev.Name)
	eo.selected, _ = rank.SelectURLs(ranked, rank.CapsSessions)
	if len(eo.selected) == 0 {
		return fn.Ok(eo)
	}
	// The first page that loads is the only one read; fetch failures move
	// on to the next pick.
	var sessions []domain.DraftSession
	loaded := false
	for _, sel := range eo.selected {
		o.report(StatePass3Resolution, sel.Result.URL)
		found, _, err := o.extract.ExtractEventPage(ctx, sel.Result.URL, ev.Name, r.req.Season, sel.Tier)
		if err != nil {
			w, fatal := pageFailure(sel.Result.URL, err)
			if fatal != nil {
				return fn.Err[eventOutcome](fatal)
			}
			eo.warnings = append(eo.warnings, w)
			continue
		}
		sessions, loaded = found, true
		break
	}
	if !loaded {
		return fn.Ok(eo)
	}
	eo.fetched = 1
	// Heuristic risk: a larger but noisier session list replaces a smaller,
	// possibly more accurate one.
	if len(sessions) > len(ev.Sessions) {
		eo.sessions = sessions
		eo.replaced = true
	}
	return fn.Ok(eo)
}

// notNoTier1 drops the per-event copy of the no-Tier-1 lead warning; pass 1
// already reported it once for the run.
func notNoTier1(w domain.Warning) bool { return w.Message != rank.MsgNoTier1 }

func firstUntimed(ev domain.DraftEvent) string {
	for _, s := range ev.Sessions {
		if s.StartTime == "" {
			return s.Name
		}
	}
	return ""
}

func containsURL(results []search.Result, u string) bool {
	for _, r := range results {
		if r.URL == u {
			return true
		}
	}
	return false
}

// dedupeEvents keeps the first event per case-insensitive name.
func dedupeEvents(events []domain.DraftEvent) []domain.DraftEvent {
	return fn.UniqueBy(events, domain.DraftEvent.Key)
}
