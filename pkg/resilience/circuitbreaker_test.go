package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/WessleyAI/schedule-fallback/pkg/fn"
)

func failing(context.Context) fn.Result[int] { return fn.Errf[int]("provider down") }
func working(context.Context) fn.Result[int] { return fn.Ok(1) }

func TestBreakerStartsClosed(t *testing.T) {
	b := NewBreaker(BreakerOpts{FailThreshold: 3, Timeout: time.Second})
	if b.State() != StateClosed {
		t.Fatalf("expected closed, got %v", b.State())
	}
}

func TestBreakerTripsAfterThreshold(t *testing.T) {
	var transitions []string
	b := NewBreaker(BreakerOpts{
		FailThreshold: 3,
		Timeout:       time.Second,
		OnStateChange: func(from, to State) { transitions = append(transitions, from.String()+"->"+to.String()) },
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		CallResult(b, ctx, failing)
	}
	if b.State() != StateOpen {
		t.Fatalf("expected open, got %v", b.State())
	}
	if len(transitions) != 1 || transitions[0] != "closed->open" {
		t.Fatalf("unexpected transitions %v", transitions)
	}

	called := false
	r := CallResult(b, ctx, func(context.Context) fn.Result[int] { called = true; return fn.Ok(1) })
	if !errors.Is(r.Error(), ErrCircuitOpen) || called {
		t.Fatalf("expected fast ErrCircuitOpen, got %v (called=%v)", r.Error(), called)
	}
}

func TestBreakerResetsOnSuccess(t *testing.T) {
	b := NewBreaker(BreakerOpts{FailThreshold: 3, Timeout: time.Second})
	ctx := context.Background()
	CallResult(b, ctx, failing)
	CallResult(b, ctx, failing)
	CallResult(b, ctx, working)
	CallResult(b, ctx, failing)
	CallResult(b, ctx, failing)
	if b.State() != StateClosed {
		t.Fatalf("success should reset the failure count, got %v", b.State())
	}
}

func TestBreakerHalfOpenRecovers(t *testing.T) {
	now := time.Now()
	b := NewBreaker(BreakerOpts{FailThreshold: 1, Timeout: 10 * time.Second})
	b.now = func() time.Time { return now }
	ctx := context.Background()

	CallResult(b, ctx, failing)
	if b.State() != StateOpen {
		t.Fatal("expected open")
	}
	now = now.Add(11 * time.Second)
	if b.State() != StateHalfOpen {
		t.Fatalf("expected half-open, got %v", b.State())
	}
	if r := CallResult(b, ctx, working); r.IsErr() {
		t.Fatalf("probe should pass: %v", r.Error())
	}
	if b.State() != StateClosed {
		t.Fatalf("expected closed after probe, got %v", b.State())
	}
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	now := time.Now()
	b := NewBreaker(BreakerOpts{FailThreshold: 1, Timeout: 10 * time.Second})
	b.now = func() time.Time { return now }
	ctx := context.Background()

	CallResult(b, ctx, failing)
	now = now.Add(11 * time.Second)
	CallResult(b, ctx, failing)
	if b.State() != StateOpen {
		t.Fatalf("failed probe should reopen, got %v", b.State())
	}
}

func TestBreakerDefaults(t *testing.T) {
	b := NewBreaker(BreakerOpts{})
	if b.opts.FailThreshold != DefaultBreakerOpts.FailThreshold || b.opts.HalfOpenMax != 1 {
		t.Fatalf("defaults not applied: %+v", b.opts)
	}
}
