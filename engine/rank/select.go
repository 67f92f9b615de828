package rank

import (
	"github.com/WessleyAI/schedule-fallback/engine/domain"
	"github.com/WessleyAI/schedule-fallback/engine/trust"
)

// Caps bounds how many pages of each trust class a pass may fetch.
type Caps struct {
	Tier1 int
	Tier2 int
}

// Per-pass selection caps.
var (
	CapsSchedule = Caps{Tier1: 3, Tier2: 2}
	CapsEvent    = Caps{Tier1: 2, Tier2: 1}
	CapsSessions = Caps{Tier1: 1, Tier2: 1}
)

// MsgNoTier1 leads the warnings when nothing authoritative was selected.
const MsgNoTier1 = "No authoritative (Tier-1) sources found, data requires careful review"

// SelectURLs walks ranked in order and picks at most caps.Tier1 Tier-1 pages
// and caps.Tier2 Tier-2 pages, never two from the same registrable domain. Unknown-tier
// pages are a last resort: they count against caps.Tier2 and are only taken
// while no Tier-1 page has been picked.
func SelectURLs(ranked []Ranked, caps Caps) ([]Ranked, []domain.Warning) {
	var (
		selected []Ranked
		warnings []domain.Warning
		t1, t2   int
	)
	seen := make(map[string]bool)

	for _, r := range ranked {
		if t1 >= caps.Tier1 && t2 >= caps.Tier2 {
			break
		}
		d := trust.RegistrableDomain(r.Result.URL)
		if seen[d] {
			continue
		}
		switch {
		case r.Tier == domain.Tier1 && t1 < caps.Tier1:
			t1++
		case r.Tier == domain.Tier2 && t2 < caps.Tier2:
			t2++
			warnings = append(warnings, trustWarning(r.Result.URL, domain.SeverityInfo,
				"Using Tier-2 source: "+d+", data may be less authoritative"))
		case r.Tier == domain.TierUnknown && t1 == 0 && t2 < caps.Tier2:
			t2++
			warnings = append(warnings, trustWarning(r.Result.URL, domain.SeverityWarning,
				"Using unverified source: "+d+", manual review recommended"))
		default:
			continue
		}
		seen[d] = true
		selected = append(selected, r)
	}

	if t1 == 0 {
		lead := domain.Warning{Kind: domain.WarnTrust, Severity: domain.SeverityWarning, Message: MsgNoTier1}
		warnings = append([]domain.Warning{lead}, warnings...)
	}
	return selected, warnings
}

func trustWarning(url string, sev domain.Severity, msg string) domain.Warning {
	return domain.Warning{Kind: domain.WarnTrust, Severity: sev, Message: msg, SourceURL: url}
}
