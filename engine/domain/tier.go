package domain

import (
	"fmt"
	"strings"
)

// Tier is the trust class of a source domain for one series.
type Tier int

const (
	TierUnknown Tier = iota
	Tier1
	Tier2
	TierDeny
)

func (t Tier) String() string {
	switch t {
	case Tier1:
		return "tier1"
	case Tier2:
		return "tier2"
	case TierDeny:
		return "deny"
	default:
		return "unknown"
	}
}

// Confidence is the extraction confidence attached to data read from a
// source of this tier.
func (t Tier) Confidence() float64 {
	switch t {
	case Tier1:
		return 1.0
	case Tier2:
		return 0.7
	default:
		return 0.4
	}
}

func (t Tier) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *Tier) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "tier1":
		*t = Tier1
	case "tier2":
		*t = Tier2
	case "deny":
		*t = TierDeny
	case "unknown", "":
		*t = TierUnknown
	default:
		return fmt.Errorf("unknown tier %q", string(b))
	}
	return nil
}
