package domain

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestClassifySession(t *testing.T) {
	cases := map[string]SessionType{
		"Practice 1":        SessionPractice,
		"FP2":               SessionPractice,
		"Qualifying":        SessionQualifying,
		"Hyperpole":         SessionQualifying,
		"Race":              SessionRace,
		"Sprint Race":       SessionRace,
		"Feature Race":      SessionOther,
		"Sprint":            SessionSprint,
		"Warm-Up":           SessionWarmup,
		"Morning warmup":    SessionWarmup,
		"Shakedown":         SessionTest,
		"Official Test Day": SessionTest,
		"SS1 Ouninpohja":    SessionRallyStage,
		"Stage 4":           SessionRallyStage,
		"Driver parade":     SessionOther,
	}
	for name, want := range cases {
		if got := ClassifySession(name); got != want {
			t.Errorf("ClassifySession(%q) = %s, want %s", name, got, want)
		}
	}
}

func TestNewDraftSessionStatus(t *testing.T) {
	s := NewDraftSession("Practice 1", "2024-03-15", "10:00 AM", "ET", "https://x.com", 1)
	if s.Status != StatusScheduled || s.Type != SessionPractice {
		t.Fatalf("unexpected session %+v", s)
	}
	tbd := NewDraftSession("Qualifying", "2024-03-15", "", "", "https://x.com", 1)
	if tbd.Status != StatusTBD {
		t.Fatalf("expected TBD without start time, got %s", tbd.Status)
	}
	if err := ValidateDraftSession(tbd); err != nil {
		t.Fatalf("TBD session should validate: %v", err)
	}
}

func TestValidateDraftEvent(t *testing.T) {
	ok := DraftEvent{Name: "Grand Prix of Test", StartDate: "2024-03-15", SourceURL: "https://x.com"}
	if err := ValidateDraftEvent(ok); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}

	cases := []struct {
		name string
		ev   DraftEvent
		want error
	}{
		{"no name", DraftEvent{StartDate: "2024-03-15", SourceURL: "u"}, ErrMissingName},
		{"no source", DraftEvent{Name: "A", StartDate: "2024-03-15"}, ErrMissingSource},
		{"no date", DraftEvent{Name: "A", SourceURL: "u"}, ErrMissingDate},
		{"bad session", DraftEvent{Name: "A", StartDate: "2024-03-15", SourceURL: "u",
			Sessions: []DraftSession{{Name: "Race", Status: StatusScheduled}}}, ErrScheduledNoStart},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateDraftEvent(tc.ev)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
		})
	}
}

func TestNeedsTimes(t *testing.T) {
	if !(DraftEvent{}).NeedsTimes() {
		t.Error("event without sessions needs times")
	}
	e := DraftEvent{Sessions: []DraftSession{{Name: "Race", StartTime: "1:00 PM"}}}
	if e.NeedsTimes() {
		t.Error("fully timed event should not need times")
	}
	e.Sessions = append(e.Sessions, DraftSession{Name: "Qualifying"})
	if !e.NeedsTimes() {
		t.Error("event with a TBD session needs times")
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Rolex 24 at Daytona!":  "rolex_24_at_daytona",
		"  Grand Prix of Test ": "grand_prix_of_test",
		"FP1":                   "fp1",
		"---":                   "",
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBuildISOTime(t *testing.T) {
	cases := []struct {
		date, clock, tz, want string
	}{
		{"2024-03-15", "10:00 AM", "ET", "2024-03-15T10:00:00-05:00"},
		{"2024-03-15", "2:00 PM", "ET", "2024-03-15T14:00:00-05:00"},
		{"2024-03-15", "12:30 AM", "", "2024-03-15T00:30:00+00:00"},
		{"2024-03-15", "12:05 PM", "CEST", "2024-03-15T12:05:00+02:00"},
		{"2024-03-15", "14:30", "JST", "2024-03-15T14:30:00+09:00"},
		{"2024-03-15", "TBA", "ET", ""},
		{"", "10:00", "ET", ""},
		{"2024-03-15", "25:00", "", ""},
	}
	for _, tc := range cases {
		if got := BuildISOTime(tc.date, tc.clock, tc.tz); got != tc.want {
			t.Errorf("BuildISOTime(%q, %q, %q) = %q, want %q", tc.date, tc.clock, tc.tz, got, tc.want)
		}
	}
}

func TestInferTimezone(t *testing.T) {
	tz, ok := InferTimezone("United States", "Indianapolis")
	if !ok || tz != "America/Indiana/Indianapolis" {
		t.Fatalf("got %q %v", tz, ok)
	}
	if tz, ok := InferTimezone("Bahrain", "Sakhir"); !ok || tz != "Asia/Bahrain" {
		t.Fatalf("got %q %v", tz, ok)
	}
	if _, ok := InferTimezone("Nowhere", "Atlantis"); ok {
		t.Fatal("expected miss for unknown venue")
	}
	if _, ok := InferTimezone("", "Tokyo"); ok {
		t.Fatal("expected miss without country")
	}
}

func TestParseCategory(t *testing.T) {
	if got := ParseCategory("endurance"); got != CategoryEndurance {
		t.Errorf("got %s", got)
	}
	if got := ParseCategory("hovercraft"); got != CategoryOther {
		t.Errorf("got %s", got)
	}
}

func TestTierJSON(t *testing.T) {
	in := []Tier{Tier1, Tier2, TierDeny, TierUnknown}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `["tier1","tier2","deny","unknown"]` {
		t.Fatalf("unexpected encoding %s", data)
	}
	var out []Tier
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	for i := range in {
		if in[i] != out[i] {
			t.Fatalf("tier %d: %s != %s", i, in[i], out[i])
		}
	}
	var bad Tier
	if err := bad.UnmarshalText([]byte("tier9")); err == nil {
		t.Fatal("expected error for unknown tier")
	}
}

func TestTierConfidence(t *testing.T) {
	if Tier1.Confidence() != 1.0 || Tier2.Confidence() != 0.7 || TierUnknown.Confidence() != 0.4 {
		t.Fatal("unexpected confidence mapping")
	}
}

func TestErrorTaxonomy(t *testing.T) {
	cause := errors.New("timeout")
	fe := &FetchError{URL: "https://x.com", Attempts: 3, Cause: cause}
	if !errors.Is(fe, ErrFetch) || !errors.Is(fe, cause) {
		t.Fatal("FetchError should unwrap to ErrFetch and its cause")
	}
	se := &SearchProviderError{Provider: "serpapi", Query: "q", Cause: cause}
	if !errors.Is(se, ErrSearchProvider) {
		t.Fatal("SearchProviderError should unwrap to ErrSearchProvider")
	}
	ce := NewConfigurationError("render", "disabled")
	if !IsFatal(ce) || IsFatal(fe) || IsFatal(se) {
		t.Fatal("only configuration errors are fatal")
	}
}

func TestWarningFromError(t *testing.T) {
	w := WarningFromError("page", &FetchError{URL: "https://x.com/a", Attempts: 1, Cause: errors.New("boom")})
	if w.Kind != WarnFetch || w.SourceURL != "https://x.com/a" {
		t.Fatalf("unexpected warning %+v", w)
	}
	w = WarningFromError("query", &SearchProviderError{Provider: "bing", Cause: errors.New("503")})
	if w.Kind != WarnSearch {
		t.Fatalf("expected search warning, got %s", w.Kind)
	}
	w = WarningFromError("events", ErrExtractionEmpty)
	if w.Kind != WarnExtraction || w.Severity != SeverityInfo {
		t.Fatalf("unexpected warning %+v", w)
	}
	if got := (Warning{Severity: SeverityWarning, Field: "sessions", Message: "none"}).String(); got != "[warning] sessions: none" {
		t.Fatalf("unexpected rendering %q", got)
	}
}
