// Package render drives a headless browser: a bounded pool of isolated
// sessions, a page fetcher with request blocking, consent dismissal and
// retries, and a network capture used to discover schedule endpoints.
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/WessleyAI/schedule-fallback/engine/domain"
)

// EngineChromium is the only supported browser family.
const EngineChromium = "chromium"

// Config is immutable once a Pool is created from it.
type Config struct {
	Enabled     bool
	Engine      string
	Headless    bool
	ExecPath    string
	MaxSessions int
	// Timeout bounds a whole fetch; NavTimeout bounds navigation alone.
	Timeout        time.Duration
	NavTimeout     time.Duration
	AcquireTimeout time.Duration
	UserAgent      string
	Locale         string
	ViewportWidth  int
	ViewportHeight int

	BlockImages   bool
	BlockFonts    bool
	BlockMedia    bool
	BlockTrackers bool

	MaxRetries  int
	BackoffBase float64
	// DomainDelay is the minimum spacing between two fetches to one domain.
	DomainDelay time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:        true,
		Engine:         EngineChromium,
		Headless:       true,
		MaxSessions:    3,
		Timeout:        45 * time.Second,
		NavTimeout:     30 * time.Second,
		AcquireTimeout: 60 * time.Second,
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		Locale:         "en-US",
		ViewportWidth:  1920,
		ViewportHeight: 1080,
		BlockImages:    true,
		BlockFonts:     true,
		BlockMedia:     true,
		BlockTrackers:  true,
		MaxRetries:     3,
		BackoffBase:    2.0,
		DomainDelay:    time.Second,
	}
}

// Validate reports a *domain.ConfigurationError for unusable settings.
func (c Config) Validate() error {
	if !c.Enabled {
		return domain.NewConfigurationError("render", "rendering is disabled")
	}
	if e := strings.ToLower(c.Engine); e != "" && e != EngineChromium && e != "chrome" {
		return domain.NewConfigurationError("render", fmt.Sprintf("unsupported browser engine %q", c.Engine))
	}
	if c.MaxSessions < 1 {
		return domain.NewConfigurationError("render", "max sessions must be at least 1")
	}
	if c.MaxRetries < 1 {
		return domain.NewConfigurationError("render", "max retries must be at least 1")
	}
	if c.BackoffBase < 1 {
		return domain.NewConfigurationError("render", "backoff base must be >= 1")
	}
	return nil
}

// forceBlocking returns a copy with every resource-blocking flag on.
func (c Config) forceBlocking() Config {
	c.BlockImages = true
	c.BlockFonts = true
	c.BlockMedia = true
	c.BlockTrackers = true
	return c
}
