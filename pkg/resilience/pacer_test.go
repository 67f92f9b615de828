package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPacerReserve(t *testing.T) {
	now := time.Unix(1000, 0)
	p := NewPacer()
	p.now = func() time.Time { return now }

	if w := p.Reserve("indycar.com", time.Second); w != 0 {
		t.Fatalf("first call should not wait, got %v", w)
	}
	now = now.Add(300 * time.Millisecond)
	if w := p.Reserve("indycar.com", time.Second); w != 700*time.Millisecond {
		t.Fatalf("expected 700ms, got %v", w)
	}
	// The second caller holds the slot at t+1s, so a third queues behind it.
	if w := p.Reserve("indycar.com", time.Second); w != 1700*time.Millisecond {
		t.Fatalf("expected 1.7s, got %v", w)
	}
	if w := p.Reserve("imsa.com", time.Second); w != 0 {
		t.Fatalf("distinct key should not wait, got %v", w)
	}
	now = now.Add(time.Hour)
	if w := p.Reserve("indycar.com", time.Second); w != 0 {
		t.Fatalf("stale history should not wait, got %v", w)
	}
}

func TestPacerWaitCancelled(t *testing.T) {
	p := NewPacer()
	p.Reserve("a.com", time.Hour)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := p.Wait(ctx, "a.com", time.Hour); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestPacerWaitShort(t *testing.T) {
	p := NewPacer()
	ctx := context.Background()
	start := time.Now()
	if err := p.Wait(ctx, "a.com", 20*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if err := p.Wait(ctx, "a.com", 20*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if time.Since(start) < 15*time.Millisecond {
		t.Fatal("second call should have been delayed")
	}
}
