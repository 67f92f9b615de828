package render

import (
	"context"
	"fmt"
	"time"
)

// ConsentPatterns are the button texts tried, in order, to dismiss cookie
// banners.
var ConsentPatterns = []string{
	"accept",
	"agree",
	"consent",
	"allow",
	"ok",
	"continue",
	"i agree",
	"accept all",
	"allow all",
}

// ConsentProbe turns a text pattern into an XPath selector and says how long
// to let the page settle after a successful click.
type ConsentProbe struct {
	Selector func(pattern string) string
	Wait     time.Duration
}

// TextProbe matches <tag> elements whose normalized text contains the
// pattern, case-insensitively.
func TextProbe(tag string, wait time.Duration) ConsentProbe {
	return ConsentProbe{
		Selector: func(pattern string) string {
			return fmt.Sprintf(
				"//%s[contains(translate(normalize-space(.), 'ABCDEFGHIJKLMNOPQRSTUVWXYZ', 'abcdefghijklmnopqrstuvwxyz'), '%s')]",
				tag, pattern)
		},
		Wait: wait,
	}
}

// DefaultConsentProbes probes buttons, then links.
var DefaultConsentProbes = []ConsentProbe{
	TextProbe("button", 500*time.Millisecond),
	TextProbe("a", 500*time.Millisecond),
}

const consentClickTimeout = 2 * time.Second

// dismissConsent clicks the first matching consent control. Finding none is
// not an error; click failures move on to the next candidate.
func dismissConsent(ctx context.Context, s Session, probes []ConsentProbe, patterns []string) bool {
	for _, pattern := range patterns {
		for _, probe := range probes {
			if ctx.Err() != nil {
				return false
			}
			clickCtx, cancel := context.WithTimeout(ctx, consentClickTimeout)
			clicked, err := s.ClickFirst(clickCtx, probe.Selector(pattern))
			cancel()
			if err != nil || !clicked {
				continue
			}
			sleep(ctx, probe.Wait)
			return true
		}
	}
	return false
}

// sleep waits d or until ctx ends.
func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
