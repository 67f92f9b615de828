package render

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/WessleyAI/schedule-fallback/engine/domain"
	"github.com/WessleyAI/schedule-fallback/engine/trust"
	"github.com/WessleyAI/schedule-fallback/pkg/metrics"
	"github.com/WessleyAI/schedule-fallback/pkg/resilience"
)

// Pool hands out isolated sessions from one Launcher, at most
// cfg.MaxSessions at a time, and paces requests per registrable domain.
// It is explicitly owned: the creator must call Close.
type Pool struct {
	cfg      Config
	launcher Launcher
	sem      chan struct{}
	pacer    *resilience.Pacer
	metrics  *metrics.Engine
	logger   *slog.Logger

	// ctx is cancelled by Close so in-flight sessions unwind promptly.
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	active sync.WaitGroup
}

// NewPool validates cfg and wraps launcher. m and logger may be nil.
func NewPool(cfg Config, launcher Launcher, m *metrics.Engine, logger *slog.Logger) (*Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if launcher == nil {
		return nil, domain.NewConfigurationError("render", "no browser launcher")
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		cfg:      cfg,
		launcher: launcher,
		sem:      make(chan struct{}, cfg.MaxSessions),
		pacer:    resilience.NewPacer(),
		metrics:  m,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Config returns the pool's immutable configuration.
func (p *Pool) Config() Config { return p.cfg }

// Concurrency is the session ceiling, used to size fan-out.
func (p *Pool) Concurrency() int {
	if p == nil {
		return 1
	}
	return p.cfg.MaxSessions
}

func (p *Pool) ready() error {
	if p == nil {
		return domain.NewConfigurationError("render", "render pool not initialized")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return domain.NewConfigurationError("render", "render pool closed")
	}
	return nil
}

// acquire takes a semaphore slot, waiting at most cfg.AcquireTimeout.
func (p *Pool) acquire(ctx context.Context) error {
	if err := p.ready(); err != nil {
		return err
	}
	var timeout <-chan time.Time
	if p.cfg.AcquireTimeout > 0 {
		t := time.NewTimer(p.cfg.AcquireTimeout)
		defer t.Stop()
		timeout = t.C
	}
	select {
	case p.sem <- struct{}{}:
		return nil
	case <-timeout:
		return fmt.Errorf("%w: waited %s for one of %d sessions", domain.ErrResourceExhausted, p.cfg.AcquireTimeout, p.cfg.MaxSessions)
	case <-p.ctx.Done():
		return domain.NewConfigurationError("render", "render pool closed")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WithSession runs fn with a fresh session that is closed on every exit
// path, including panics in fn. The context passed to fn is also cancelled
// when the pool is closed.
func (p *Pool) WithSession(ctx context.Context, fn func(context.Context, Session) error) error {
	if err := p.acquire(ctx); err != nil {
		return err
	}
	p.active.Add(1)
	p.metrics.SessionAcquired()
	defer func() {
		<-p.sem
		p.metrics.SessionReleased()
		p.active.Done()
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(p.ctx, cancel)
	defer stop()

	sess, err := p.launcher.NewSession(ctx)
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			p.logger.Debug("session close failed", "err", cerr)
		}
	}()
	return fn(ctx, sess)
}

// RateLimit blocks until rawURL's registrable domain may be requested
// again, i.e. for max(0, minDelay - (now - last)). minDelay <= 0 uses
// cfg.DomainDelay. Distinct domains never wait on each other.
func (p *Pool) RateLimit(ctx context.Context, rawURL string, minDelay time.Duration) error {
	if err := p.ready(); err != nil {
		return err
	}
	if minDelay <= 0 {
		minDelay = p.cfg.DomainDelay
	}
	key := trust.RegistrableDomain(rawURL)
	if key == "" || minDelay <= 0 {
		return nil
	}
	return p.pacer.Wait(ctx, key, minDelay)
}

// Close cancels outstanding sessions, waits for them to be released and
// shuts the launcher down. It is safe to call more than once.
func (p *Pool) Close() error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	p.cancel()
	p.active.Wait()
	return p.launcher.Close()
}
