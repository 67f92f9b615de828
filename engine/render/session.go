package render

import (
	"context"
	"strings"
)

// ResourceType is the browser's classification of a request.
type ResourceType string

const (
	ResourceDocument   ResourceType = "Document"
	ResourceStylesheet ResourceType = "Stylesheet"
	ResourceImage      ResourceType = "Image"
	ResourceMedia      ResourceType = "Media"
	ResourceFont       ResourceType = "Font"
	ResourceScript     ResourceType = "Script"
	ResourceXHR        ResourceType = "XHR"
	ResourceFetch      ResourceType = "Fetch"
	ResourceOther      ResourceType = "Other"
)

// Request is an outgoing request seen by the interceptor.
type Request struct {
	URL          string
	ResourceType ResourceType
}

// Response is a finished network response. Body is read lazily because most
// responses are discarded without it.
type Response struct {
	URL         string
	Method      string
	Status      int
	ContentType string
	Headers     map[string]string
	Body        func(ctx context.Context) (string, error)
}

// OK reports a 2xx status.
func (r Response) OK() bool { return r.Status >= 200 && r.Status < 300 }

// Session is one isolated browsing context. It is owned by a single fetch.
type Session interface {
	// Intercept installs a request filter; requests for which block returns
	// true are aborted. Must be called before Navigate.
	Intercept(block func(Request) bool) error
	// OnResponse registers an observer for finished responses. Must be called
	// before Navigate.
	OnResponse(fn func(Response))
	// Navigate loads url and returns once DOM content has loaded.
	Navigate(ctx context.Context, url string) (status int, err error)
	// WaitNetworkIdle returns once no request has been in flight for a short
	// quiet period, or when ctx ends.
	WaitNetworkIdle(ctx context.Context) error
	// ClickFirst clicks the first visible node matching an XPath selector.
	// It reports false without error when no visible node matches.
	ClickFirst(ctx context.Context, xpath string) (bool, error)
	// WaitVisible waits for a CSS selector to become visible.
	WaitVisible(ctx context.Context, selector string) error
	HTML(ctx context.Context) (string, error)
	Close() error
}

// Launcher opens isolated sessions on a shared browser process.
type Launcher interface {
	NewSession(ctx context.Context) (Session, error)
	Close() error
}

// TrackerDomains are blocked when Config.BlockTrackers is set.
var TrackerDomains = []string{
	"google-analytics.com",
	"googletagmanager.com",
	"facebook.com",
	"twitter.com",
	"doubleclick.net",
	"analytics.google.com",
	"hotjar.com",
	"mixpanel.com",
	"segment.com",
}

// Blocker builds the request filter for cfg.
func Blocker(cfg Config) func(Request) bool {
	return func(r Request) bool {
		switch r.ResourceType {
		case ResourceImage:
			if cfg.BlockImages {
				return true
			}
		case ResourceFont:
			if cfg.BlockFonts {
				return true
			}
		case ResourceMedia:
			if cfg.BlockMedia {
				return true
			}
		}
		if cfg.BlockTrackers {
			u := strings.ToLower(r.URL)
			for _, t := range TrackerDomains {
				if strings.Contains(u, t) {
					return true
				}
			}
		}
		return false
	}
}
