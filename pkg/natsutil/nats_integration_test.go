//go:build integration

package natsutil

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
)

func natsURL() string {
	if v := os.Getenv("NATS_URL"); v != "" {
		return v
	}
	return nats.DefaultURL
}

func connectNATS(t *testing.T) *nats.Conn {
	t.Helper()
	nc, err := nats.Connect(natsURL())
	if err != nil {
		t.Skipf("nats unavailable: %v", err)
	}
	t.Cleanup(func() { nc.Close() })
	return nc
}

func TestNATS_PubSub(t *testing.T) {
	nc := connectNATS(t)

	ch := make(chan testMsg, 1)
	sub, err := Subscribe(nc, "integ.fallback.outputs", nil, func(ctx context.Context, m testMsg) {
		ch <- m
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Unsubscribe()

	if err := Publish(context.Background(), nc, "integ.fallback.outputs", testMsg{Name: "indycar", Value: 2024}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case got := <-ch:
		if got.Name != "indycar" {
			t.Fatalf("expected indycar, got %q", got.Name)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestNATS_HandleRequest(t *testing.T) {
	nc := connectNATS(t)

	sub, err := Handle(nc, "integ.fallback.requests", "workers", nil, func(_ context.Context, m testMsg) (testMsg, error) {
		if m.Value == 0 {
			return testMsg{}, errors.New("season required")
		}
		m.Value++
		return m, nil
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	defer sub.Unsubscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	got, err := Request[testMsg, testMsg](ctx, nc, "integ.fallback.requests", testMsg{Value: 2023})
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if got.Value != 2024 {
		t.Fatalf("expected 2024, got %d", got.Value)
	}

	_, err = Request[testMsg, testMsg](ctx, nc, "integ.fallback.requests", testMsg{})
	var re *RemoteError
	if !errors.As(err, &re) {
		t.Fatalf("expected RemoteError, got %v", err)
	}
}
