package resilience

import (
	"context"
	"sync"
	"time"
)

// Pacer enforces a minimum delay between calls sharing a key (for example a
// registrable domain). Calls on distinct keys never wait on each other.
type Pacer struct {
	mu   sync.Mutex
	last map[string]time.Time
	now  func() time.Time
}

// NewPacer creates an empty Pacer.
func NewPacer() *Pacer {
	return &Pacer{last: make(map[string]time.Time), now: time.Now}
}

// Reserve returns how long the caller must wait before its call on key, which
// is max(0, minDelay - (now - last)), and records the reserved slot as the new
// last call time so concurrent callers queue behind it.
func (p *Pacer) Reserve(key string, minDelay time.Duration) time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	wait := time.Duration(0)
	if last, ok := p.last[key]; ok {
		if d := minDelay - now.Sub(last); d > 0 {
			wait = d
		}
	}
	p.last[key] = now.Add(wait)
	return wait
}

// Wait blocks until key may be called again or ctx is cancelled.
func (p *Pacer) Wait(ctx context.Context, key string, minDelay time.Duration) error {
	wait := p.Reserve(key, minDelay)
	if wait <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

