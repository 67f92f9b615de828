package fn

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

// --- Result ---

func TestOkAndErr(t *testing.T) {
	r := Ok(42)
	if !r.IsOk() || r.IsErr() {
		t.Fatal("Ok should be ok")
	}
	v, err := r.Unwrap()
	if v != 42 || err != nil {
		t.Fatal("wrong unwrap")
	}

	e := Err[int](errors.New("fail"))
	if e.IsOk() || !e.IsErr() || e.Error() == nil {
		t.Fatal("Err should be err")
	}
}

func TestErrf(t *testing.T) {
	r := Errf[string]("code %d", 404)
	_, err := r.Unwrap()
	if err == nil || err.Error() != "code 404" {
		t.Fatal("Errf wrong message")
	}
}

func TestPartition(t *testing.T) {
	vals, errs := Partition([]Result[int]{Ok(1), Err[int](errors.New("a")), Ok(3)})
	if len(vals) != 2 || vals[0] != 1 || vals[1] != 3 {
		t.Fatalf("unexpected vals %v", vals)
	}
	if len(errs) != 1 || errs[0].Error() != "a" {
		t.Fatalf("unexpected errs %v", errs)
	}
}

// --- Retry ---

func TestBackoffIsExponential(t *testing.T) {
	o := RetryOpts{InitialWait: time.Second, Factor: 2, MaxWait: 5 * time.Second}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second}
	for n, w := range want {
		if got := o.Backoff(n); got != w {
			t.Errorf("Backoff(%d) = %v, want %v", n, got, w)
		}
	}
	if got := (RetryOpts{InitialWait: time.Second}).Backoff(1); got != 2*time.Second {
		t.Errorf("default factor should be 2, got %v", got)
	}
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	var attempts []int
	var retried []int
	opts := RetryOpts{
		MaxAttempts: 3,
		InitialWait: time.Millisecond,
		OnRetry:     func(n int, _ error) { retried = append(retried, n) },
	}
	r := Retry(context.Background(), opts, func(_ context.Context, attempt int) Result[string] {
		attempts = append(attempts, attempt)
		if attempt < 2 {
			return Errf[string]("fail %d", attempt)
		}
		return Ok("done")
	})
	if v, err := r.Unwrap(); err != nil || v != "done" {
		t.Fatalf("expected success, got %v %v", v, err)
	}
	if len(attempts) != 3 || attempts[2] != 2 {
		t.Fatalf("unexpected attempts %v", attempts)
	}
	if len(retried) != 2 {
		t.Fatalf("OnRetry should fire between attempts, got %v", retried)
	}
}

func TestRetryExhausted(t *testing.T) {
	calls := 0
	r := Retry(context.Background(), RetryOpts{MaxAttempts: 2}, func(context.Context, int) Result[int] {
		calls++
		return Errf[int]("nope")
	})
	if r.IsOk() || calls != 2 {
		t.Fatalf("expected 2 failed calls, got %d", calls)
	}
}

func TestRetryContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := Retry(ctx, RetryOpts{MaxAttempts: 5, InitialWait: time.Hour}, func(context.Context, int) Result[int] {
		return Errf[int]("fail")
	})
	if _, err := r.Unwrap(); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

// --- ParMap ---

func TestParMapPreservesOrderAndBounds(t *testing.T) {
	var inFlight, peak atomic.Int32
	items := []int{1, 2, 3, 4, 5, 6, 7, 8}
	out := ParMap(context.Background(), items, 3, func(_ context.Context, v int) Result[int] {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return Ok(v * 10)
	})
	for i, r := range out {
		if v, _ := r.Unwrap(); v != items[i]*10 {
			t.Fatalf("index %d: got %d", i, v)
		}
	}
	if peak.Load() > 3 {
		t.Fatalf("concurrency exceeded bound: %d", peak.Load())
	}
}

func TestParMapEmptyAndCancelled(t *testing.T) {
	if out := ParMap(context.Background(), []int(nil), 2, func(context.Context, int) Result[int] { return Ok(1) }); len(out) != 0 {
		t.Fatal("expected empty output")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := ParMap(ctx, []int{1, 2}, 1, func(context.Context, int) Result[int] { return Ok(1) })
	for _, r := range out {
		if r.IsOk() {
			// The select may pick either branch for the first item.
			continue
		}
		if !errors.Is(r.Error(), context.Canceled) {
			t.Fatalf("unexpected error %v", r.Error())
		}
	}
}

// --- TracedStage ---

func TestTracedStagePassesThrough(t *testing.T) {
	s := TracedStage("double", Stage[int, int](func(_ context.Context, v int) Result[int] { return Ok(v * 2) }))
	if v, _ := s(context.Background(), 4).Unwrap(); v != 8 {
		t.Fatalf("got %d", v)
	}
	fail := TracedStage("fail", Stage[int, int](func(context.Context, int) Result[int] { return Errf[int]("x") }))
	if fail(context.Background(), 1).IsOk() {
		t.Fatal("expected error to propagate")
	}
}

// --- Slices ---

func TestSliceHelpers(t *testing.T) {
	doubled := Map([]int{1, 2}, func(v int) int { return v * 2 })
	if doubled[1] != 4 {
		t.Fatal("Map")
	}
	even := Filter([]int{1, 2, 3, 4}, func(v int) bool { return v%2 == 0 })
	if len(even) != 2 {
		t.Fatal("Filter")
	}
	u := UniqueBy([]string{"A", "a", "b"}, func(s string) string { return string(s[0] | 0x20) })
	if len(u) != 2 || u[0] != "A" {
		t.Fatalf("UniqueBy kept %v", u)
	}
	if len(Take([]int{1, 2, 3}, 2)) != 2 || len(Take([]int{1}, 5)) != 1 || len(Take([]int{1}, -1)) != 0 {
		t.Fatal("Take")
	}
}
