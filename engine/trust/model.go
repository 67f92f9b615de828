// Package trust classifies source URLs into trust tiers for one racing series.
package trust

import (
	"net/url"
	"sort"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/WessleyAI/schedule-fallback/engine/domain"
)

// Config is the full, already merged trust data for one series.
type Config struct {
	SeriesID    string
	Tier1       []string
	Tier2       []string
	Deny        []string
	ScheduleURL string
	GlobalDeny  []string
	GlobalTier2 []string
}

// Overrides are per-series additions supplied by configuration.
type Overrides struct {
	Tier1       []string `yaml:"tier1"`
	Tier2       []string `yaml:"tier2"`
	Deny        []string `yaml:"deny"`
	ScheduleURL string   `yaml:"schedule_url"`
}

// SeriesKey is the lookup form of a series id.
func SeriesKey(seriesID string) string {
	return strings.ToLower(strings.TrimSpace(seriesID))
}

// ForSeries merges the built-in defaults for seriesID with overrides.
func ForSeries(seriesID string, o Overrides) Config {
	id := SeriesKey(seriesID)
	def := BuiltinSeries[id]
	cfg := Config{
		SeriesID:    id,
		Tier1:       append(append([]string{}, def.Tier1...), o.Tier1...),
		Tier2:       append([]string{}, o.Tier2...),
		Deny:        append([]string{}, o.Deny...),
		ScheduleURL: def.ScheduleURL,
		GlobalDeny:  DefaultGlobalDeny,
		GlobalTier2: DefaultGlobalTier2,
	}
	if o.ScheduleURL != "" {
		cfg.ScheduleURL = o.ScheduleURL
	}
	return cfg
}

type entry struct {
	host string
	path string
}

// Model is an immutable domain classifier. It performs no I/O and is safe for
// concurrent use.
type Model struct {
	seriesID    string
	tier1       []entry
	deny        []entry
	globalDeny  []entry
	tier2       []entry
	globalTier2 []entry
	tier1Names  []string
	scheduleURL string
}

// New builds a Model from cfg. The slices in cfg are copied.
func New(cfg Config) *Model {
	m := &Model{
		seriesID:    cfg.SeriesID,
		tier1:       entries(cfg.Tier1),
		deny:        entries(cfg.Deny),
		globalDeny:  entries(cfg.GlobalDeny),
		tier2:       entries(cfg.Tier2),
		globalTier2: entries(cfg.GlobalTier2),
		scheduleURL: cfg.ScheduleURL,
	}
	seen := make(map[string]bool)
	for _, e := range m.tier1 {
		if !seen[e.host] {
			seen[e.host] = true
			m.tier1Names = append(m.tier1Names, e.host)
		}
	}
	sort.Strings(m.tier1Names)
	return m
}

// NewForSeries is shorthand for New(ForSeries(seriesID, o)).
func NewForSeries(seriesID string, o Overrides) *Model {
	return New(ForSeries(seriesID, o))
}

func entries(list []string) []entry {
	out := make([]entry, 0, len(list))
	for _, raw := range list {
		s := strings.ToLower(strings.TrimSpace(raw))
		s = strings.TrimPrefix(strings.TrimPrefix(s, "https://"), "http://")
		s = strings.TrimPrefix(s, "www.")
		if s == "" {
			continue
		}
		host, path, _ := strings.Cut(s, "/")
		e := entry{host: host}
		if path != "" {
			e.path = "/" + strings.TrimSuffix(path, "/")
		}
		out = append(out, e)
	}
	return out
}

// SeriesID returns the series this model classifies for.
func (m *Model) SeriesID() string { return m.seriesID }

// Classify resolves the tier of rawURL. Order: series Tier-1, series deny,
// global deny, series Tier-2, global Tier-2, else Unknown. An empty or
// unparseable URL is Deny.
func (m *Model) Classify(rawURL string) domain.Tier {
	host, path := splitURL(rawURL)
	if host == "" {
		return domain.TierDeny
	}
	switch {
	case matchAny(m.tier1, host, path):
		return domain.Tier1
	case matchAny(m.deny, host, path), matchAny(m.globalDeny, host, path):
		return domain.TierDeny
	case matchAny(m.tier2, host, path), matchAny(m.globalTier2, host, path):
		return domain.Tier2
	default:
		return domain.TierUnknown
	}
}

// IsAllowed reports whether rawURL may be fetched at all.
func (m *Model) IsAllowed(rawURL string) bool {
	return m.Classify(rawURL) != domain.TierDeny
}

// Tier1Domains returns the sorted official domains. The slice is a copy.
func (m *Model) Tier1Domains() []string {
	return append([]string(nil), m.tier1Names...)
}

// OfficialScheduleURL returns the known schedule page, or "".
func (m *Model) OfficialScheduleURL() string { return m.scheduleURL }

func matchAny(list []entry, host, path string) bool {
	for _, e := range list {
		if !DomainMatches(host, e.host) {
			continue
		}
		if e.path == "" || path == e.path || strings.HasPrefix(path, e.path+"/") {
			return true
		}
	}
	return false
}

// DomainMatches reports whether host equals d or is a subdomain of it.
func DomainMatches(host, d string) bool {
	return host == d || strings.HasSuffix(host, "."+d)
}

// ExtractDomain returns the lower-cased host of rawURL without "www.".
func ExtractDomain(rawURL string) string {
	host, _ := splitURL(rawURL)
	return host
}

// RegistrableDomain returns the eTLD+1 of rawURL ("racecontrol.indycar.com"
// becomes "indycar.com"). Hosts without a known public suffix fall back to
// ExtractDomain.
func RegistrableDomain(rawURL string) string {
	host := ExtractDomain(rawURL)
	if host == "" {
		return ""
	}
	if d, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return d
	}
	return host
}

func splitURL(rawURL string) (string, string) {
	s := strings.TrimSpace(rawURL)
	if s == "" {
		return "", ""
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", ""
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	return host, strings.ToLower(u.Path)
}
