package trust

import "strings"

// SiteHint carries per-domain extraction knowledge.
type SiteHint struct {
	Domain          string   `yaml:"domain"`
	NetworkPatterns []string `yaml:"network_patterns"`
	EventSelectors  []string `yaml:"event_selectors"`
	WaitSelector    string   `yaml:"wait_selector"`
	Timezone        string   `yaml:"timezone"`
}

// DefaultSiteHints are the hints known for official schedule sites.
var DefaultSiteHints = []SiteHint{
	{Domain: "nascar.com", NetworkPatterns: []string{"race_list_basic.json", "schedule-feed.json"}, Timezone: "America/New_York"},
	{Domain: "indycar.com", NetworkPatterns: []string{"schedules", "race-control"}, EventSelectors: []string{".schedule-list-item", ".race-card"}, Timezone: "America/New_York"},
	{Domain: "fiawec.com", EventSelectors: []string{".calendar-list .item", ".race-card"}, Timezone: "Europe/Paris"},
	{Domain: "wrc.com", EventSelectors: []string{".calendar-card", ".rally-card"}},
	{Domain: "imsa.com", EventSelectors: []string{".event-item", ".schedule-card"}, Timezone: "America/New_York"},
	{Domain: "supercars.com", EventSelectors: []string{"a[href*='/events/']", ".event-card"}, Timezone: "Australia/Sydney"},
	{Domain: "btcc.net", EventSelectors: []string{".race-meeting", ".calendar-row"}, Timezone: "Europe/London"},
	{Domain: "superformula.net", Timezone: "Asia/Tokyo"},
	{Domain: "formula1.com", NetworkPatterns: []string{"api", "schedule"}},
}

// Hints is a read-only domain -> SiteHint lookup.
type Hints struct {
	byDomain map[string]SiteHint
}

// NewHints indexes hints by domain; later entries win.
func NewHints(list ...[]SiteHint) *Hints {
	h := &Hints{byDomain: make(map[string]SiteHint)}
	for _, l := range list {
		for _, hint := range l {
			d := strings.TrimPrefix(strings.ToLower(hint.Domain), "www.")
			if d == "" {
				continue
			}
			hint.Domain = d
			h.byDomain[d] = hint
		}
	}
	return h
}

// For returns the hint for rawURL's domain, walking up parent domains.
func (h *Hints) For(rawURL string) (SiteHint, bool) {
	if h == nil {
		return SiteHint{}, false
	}
	host := ExtractDomain(rawURL)
	for host != "" {
		if hint, ok := h.byDomain[host]; ok {
			return hint, true
		}
		_, rest, found := strings.Cut(host, ".")
		if !found {
			break
		}
		host = rest
	}
	return SiteHint{}, false
}
