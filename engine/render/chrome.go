package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// quietPeriod is how long the network must stay empty to count as idle.
const quietPeriod = 500 * time.Millisecond

// ChromeLauncher runs one Chrome process and opens an incognito-like browser
// context per session.
type ChromeLauncher struct {
	cfg           Config
	logger        *slog.Logger
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// NewChromeLauncher starts Chrome according to cfg.
func NewChromeLauncher(cfg Config, logger *slog.Logger) (*ChromeLauncher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("lang", cfg.Locale),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(cfg.UserAgent),
		chromedp.WindowSize(cfg.ViewportWidth, cfg.ViewportHeight),
	)
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithErrorf(func(format string, args ...any) {
			logger.Debug("chromedp", "msg", fmt.Sprintf(format, args...))
		}),
	)
	// First Run starts the browser process.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}
	return &ChromeLauncher{
		cfg:           cfg,
		logger:        logger,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}, nil
}

// NewSession opens a fresh browser context with its own cookies and cache.
func (l *ChromeLauncher) NewSession(ctx context.Context) (Session, error) {
	tabCtx, cancel := chromedp.NewContext(l.browserCtx, chromedp.WithNewBrowserContext())
	s := &chromeSession{
		ctx:      tabCtx,
		cancel:   cancel,
		logger:   l.logger,
		inflight: make(map[network.RequestID]bool),
		methods:  make(map[network.RequestID]string),
		pending:  make(map[network.RequestID]Response),
		lastIO:   time.Now(),
	}
	chromedp.ListenTarget(tabCtx, s.onEvent)

	// The target's event loop lives as long as the context of the first Run,
	// so it must be the tab context itself.
	stop := context.AfterFunc(ctx, cancel)
	err := chromedp.Run(tabCtx)
	stop()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("open tab: %w", err)
	}

	headers := network.Headers{"Accept-Language": l.cfg.Locale}
	err = s.run(ctx,
		network.Enable(),
		network.SetExtraHTTPHeaders(headers),
		page.Enable(),
		chromedp.EmulateViewport(int64(l.cfg.ViewportWidth), int64(l.cfg.ViewportHeight)),
	)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("prepare session: %w", err)
	}
	return s, nil
}

// Close stops the browser process.
func (l *ChromeLauncher) Close() error {
	err := chromedp.Cancel(l.browserCtx)
	l.browserCancel()
	l.allocCancel()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

type chromeSession struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger

	mu         sync.Mutex
	block      func(Request) bool
	onResponse func(Response)
	inflight   map[network.RequestID]bool
	methods    map[network.RequestID]string
	pending    map[network.RequestID]Response
	lastIO     time.Time
	domReady   chan struct{}
	docStatus  int
}

// run executes actions on the tab, aborting when ctx ends. A plain child of
// the tab context is used so cancellation aborts the action without closing
// the tab.
func (s *chromeSession) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (s *chromeSession) Intercept(block func(Request) bool) error {
	s.mu.Lock()
	s.block = block
	s.mu.Unlock()
	if block == nil {
		return nil
	}
	return s.run(context.Background(), fetch.Enable().WithPatterns([]*fetch.RequestPattern{{URLPattern: "*"}}))
}

func (s *chromeSession) OnResponse(fn func(Response)) {
	s.mu.Lock()
	s.onResponse = fn
	s.mu.Unlock()
}

func (s *chromeSession) onEvent(ev any) {
	switch ev := ev.(type) {
	case *fetch.EventRequestPaused:
		// Commands cannot be issued from the event goroutine.
		go s.resolvePaused(ev)
	case *network.EventRequestWillBeSent:
		s.mu.Lock()
		s.inflight[ev.RequestID] = true
		if ev.Request != nil {
			s.methods[ev.RequestID] = ev.Request.Method
		}
		s.lastIO = time.Now()
		s.mu.Unlock()
	case *network.EventResponseReceived:
		s.mu.Lock()
		if ev.Type == network.ResourceTypeDocument && s.docStatus == 0 && ev.Response != nil {
			s.docStatus = int(ev.Response.Status)
		}
		if s.onResponse != nil && ev.Response != nil {
			s.pending[ev.RequestID] = s.toResponse(ev.RequestID, ev.Response)
		}
		s.mu.Unlock()
	case *network.EventLoadingFinished:
		s.mu.Lock()
		delete(s.inflight, ev.RequestID)
		s.lastIO = time.Now()
		r, ok := s.pending[ev.RequestID]
		delete(s.pending, ev.RequestID)
		cb := s.onResponse
		s.mu.Unlock()
		if ok && cb != nil {
			cb(r)
		}
	case *network.EventLoadingFailed:
		s.mu.Lock()
		delete(s.inflight, ev.RequestID)
		delete(s.pending, ev.RequestID)
		s.lastIO = time.Now()
		s.mu.Unlock()
	case *page.EventDomContentEventFired:
		s.mu.Lock()
		if s.domReady != nil {
			close(s.domReady)
			s.domReady = nil
		}
		s.mu.Unlock()
	}
}

func (s *chromeSession) resolvePaused(ev *fetch.EventRequestPaused) {
	s.mu.Lock()
	block := s.block
	s.mu.Unlock()

	c := chromedp.FromContext(s.ctx)
	if c == nil || c.Target == nil {
		return
	}
	ctx := cdp.WithExecutor(s.ctx, c.Target)
	req := Request{ResourceType: ResourceType(ev.ResourceType)}
	if ev.Request != nil {
		req.URL = ev.Request.URL
	}
	var err error
	if block != nil && block(req) {
		s.logger.Debug("blocked request", "url", req.URL, "type", req.ResourceType)
		err = fetch.FailRequest(ev.RequestID, network.ErrorReasonBlockedByClient).Do(ctx)
	} else {
		err = fetch.ContinueRequest(ev.RequestID).Do(ctx)
	}
	if err != nil && s.ctx.Err() == nil {
		s.logger.Debug("resolve paused request", "url", req.URL, "err", err)
	}
}

// toResponse must be called with mu held.
func (s *chromeSession) toResponse(id network.RequestID, r *network.Response) Response {
	headers := make(map[string]string, len(r.Headers))
	contentType := r.MimeType
	for k, v := range r.Headers {
		val := fmt.Sprint(v)
		headers[k] = val
		if strings.EqualFold(k, "content-type") {
			contentType = val
		}
	}
	return Response{
		URL:         r.URL,
		Method:      s.methods[id],
		Status:      int(r.Status),
		ContentType: contentType,
		Headers:     headers,
		Body: func(ctx context.Context) (string, error) {
			var body []byte
			err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
				b, err := network.GetResponseBody(id).Do(ctx)
				body = b
				return err
			}))
			return string(body), err
		},
	}
}

func (s *chromeSession) Navigate(ctx context.Context, url string) (int, error) {
	ready := make(chan struct{})
	s.mu.Lock()
	s.domReady = ready
	s.docStatus = 0
	s.mu.Unlock()

	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, _, errText, err := page.Navigate(url).Do(ctx)
		if err != nil {
			return err
		}
		if errText != "" {
			return errors.New(errText)
		}
		return nil
	}))
	if err != nil {
		return 0, err
	}
	select {
	case <-ready:
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.docStatus, nil
}

func (s *chromeSession) WaitNetworkIdle(ctx context.Context) error {
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for {
		s.mu.Lock()
		idle := len(s.inflight) == 0 && time.Since(s.lastIO) >= quietPeriod
		s.mu.Unlock()
		if idle {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
		}
	}
}

func (s *chromeSession) ClickFirst(ctx context.Context, xpath string) (bool, error) {
	var nodes []*cdp.Node
	if err := s.run(ctx, chromedp.Nodes(xpath, &nodes, chromedp.BySearch, chromedp.AtLeast(0))); err != nil {
		return false, err
	}
	for _, n := range nodes {
		var box *dom.BoxModel
		err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			box, err = dom.GetBoxModel().WithNodeID(n.NodeID).Do(ctx)
			return err
		}))
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		// Nodes that are not rendered have no box model.
		if err != nil || !hasArea(box) {
			continue
		}
		if err := s.run(ctx, chromedp.MouseClickNode(n)); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// hasArea reports whether a laid-out node occupies any space on the page.
func hasArea(box *dom.BoxModel) bool {
	return box != nil && box.Width > 0 && box.Height > 0
}

func (s *chromeSession) WaitVisible(ctx context.Context, selector string) error {
	return s.run(ctx, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

func (s *chromeSession) HTML(ctx context.Context) (string, error) {
	var html string
	err := s.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

func (s *chromeSession) Close() error {
	err := chromedp.Cancel(s.ctx)
	s.cancel()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
