package render

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

type fakeLauncher struct {
	mu       sync.Mutex
	opened   int
	closed   int
	active   int
	maxSeen  int
	navFails int // fail this many navigations before succeeding
	navs     int
	html     string
	status   int
	click    func(xpath string) bool
	emit     []Response
	blockers []func(Request) bool
	clicks   atomic.Int32
	shutdown bool
}

func newFakeLauncher(html string) *fakeLauncher {
	return &fakeLauncher{html: html, status: 200}
}

func (l *fakeLauncher) NewSession(context.Context) (Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.opened++
	l.active++
	if l.active > l.maxSeen {
		l.maxSeen = l.active
	}
	return &fakeSession{l: l}, nil
}

func (l *fakeLauncher) Close() error {
	l.mu.Lock()
	l.shutdown = true
	l.mu.Unlock()
	return nil
}

func (l *fakeLauncher) stats() (opened, closed, maxSeen int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.opened, l.closed, l.maxSeen
}

type fakeSession struct {
	l      *fakeLauncher
	onResp func(Response)
	closed bool
}

func (s *fakeSession) Intercept(block func(Request) bool) error {
	s.l.mu.Lock()
	s.l.blockers = append(s.l.blockers, block)
	s.l.mu.Unlock()
	return nil
}

func (s *fakeSession) OnResponse(fn func(Response)) { s.onResp = fn }

func (s *fakeSession) Navigate(ctx context.Context, _ string) (int, error) {
	s.l.mu.Lock()
	s.l.navs++
	fail := s.l.navs <= s.l.navFails
	status := s.l.status
	emit := s.l.emit
	s.l.mu.Unlock()
	if fail {
		return 0, errors.New("net::ERR_TIMED_OUT")
	}
	if s.onResp != nil {
		for _, r := range emit {
			s.onResp(r)
		}
	}
	return status, ctx.Err()
}

func (s *fakeSession) WaitNetworkIdle(context.Context) error { return nil }

func (s *fakeSession) ClickFirst(_ context.Context, xpath string) (bool, error) {
	if s.l.click != nil && s.l.click(xpath) {
		s.l.clicks.Add(1)
		return true, nil
	}
	return false, nil
}

func (s *fakeSession) WaitVisible(ctx context.Context, _ string) error { return ctx.Err() }

func (s *fakeSession) HTML(context.Context) (string, error) { return s.l.html, nil }

func (s *fakeSession) Close() error {
	s.l.mu.Lock()
	defer s.l.mu.Unlock()
	if !s.closed {
		s.closed = true
		s.l.closed++
		s.l.active--
	}
	return nil
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.DomainDelay = 0
	cfg.AcquireTimeout = time.Second
	cfg.Timeout = 5 * time.Second
	cfg.NavTimeout = time.Second
	return cfg
}

func testFetcher(pool *Pool, opts ...FetcherOption) *Fetcher {
	f := NewFetcher(pool, opts...)
	f.retryWait = time.Millisecond
	f.settle = 0
	f.idleWait = 10 * time.Millisecond
	return f
}
