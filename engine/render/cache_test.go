package render

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/WessleyAI/schedule-fallback/engine/domain"
)

func TestMemoryCacheTTL(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewMemoryCache(time.Hour, 10)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	c.Put(ctx, "k", &RenderedPage{URL: "https://x.com", HTML: "<p>", Status: 200})
	p, ok := c.Get(ctx, "k")
	if !ok || p.HTML != "<p>" {
		t.Fatalf("expected hit, got %v %v", p, ok)
	}
	p.HTML = "mutated"
	if again, _ := c.Get(ctx, "k"); again.HTML != "<p>" {
		t.Fatal("cached entries must not alias returned pages")
	}

	now = now.Add(time.Hour)
	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatal("entry should expire after ttl")
	}
}

func TestMemoryCacheEvictsOldest(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewMemoryCache(0, 2)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	for _, k := range []string{"a", "b", "c"} {
		c.Put(ctx, k, &RenderedPage{URL: k})
		now = now.Add(time.Second)
	}
	if _, ok := c.Get(ctx, "a"); ok {
		t.Fatal("oldest entry should be evicted")
	}
	for _, k := range []string{"b", "c"} {
		if _, ok := c.Get(ctx, k); !ok {
			t.Fatalf("%s should still be cached", k)
		}
	}
}

func TestSQLiteCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pages.db")
	c, err := NewSQLiteCache(path, time.Hour, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	in := &RenderedPage{
		URL:         "https://www.indycar.com/schedule",
		HTML:        "<table></table>",
		Status:      200,
		RetrievedAt: now,
		LoadTime:    1500 * time.Millisecond,
		Method:      MethodDOM,
	}
	c.Put(ctx, "k", in)
	got, ok := c.Get(ctx, "k")
	if !ok {
		t.Fatal("expected hit")
	}
	if got.HTML != in.HTML || got.Status != 200 || got.LoadTime != in.LoadTime || !got.RetrievedAt.Equal(now) || !got.FromCache {
		t.Fatalf("unexpected page %+v", got)
	}
	if _, ok := c.Get(ctx, "missing"); ok {
		t.Fatal("unexpected hit")
	}

	now = now.Add(2 * time.Hour)
	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatal("entry should expire after ttl")
	}
	n, err := c.Prune(ctx)
	if err != nil || n != 1 {
		t.Fatalf("prune removed %d rows, err %v", n, err)
	}
}

func TestSQLiteCacheLogsFailedWrites(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	c, err := NewSQLiteCache(filepath.Join(t.TempDir(), "pages.db"), time.Hour, logger)
	if err != nil {
		t.Fatal(err)
	}
	c.Close()

	c.Put(context.Background(), "k", &RenderedPage{URL: "https://www.imsa.com/weathertech/schedule/", Status: 200})
	out := buf.String()
	if !strings.Contains(out, "page cache write failed") || !strings.Contains(out, "imsa.com") {
		t.Fatalf("expected write failure to be logged, got %q", out)
	}
}

func TestOpenPageCache(t *testing.T) {
	if c, err := OpenPageCache("", time.Minute, nil); err != nil || c == nil {
		t.Fatalf("default cache: %v %v", c, err)
	}
	if c, err := OpenPageCache("off", time.Minute, nil); err != nil || c != nil {
		t.Fatalf("off should give nil cache: %v %v", c, err)
	}
	c, err := OpenPageCache("sqlite:"+filepath.Join(t.TempDir(), "c.db"), time.Minute, nil)
	if err != nil {
		t.Fatal(err)
	}
	c.Close()
	if _, err := OpenPageCache("redis://x", time.Minute, nil); !domain.IsFatal(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestCacheKey(t *testing.T) {
	if cacheKey("https://x.com", "") != "https://x.com" {
		t.Fatal("plain url key")
	}
	if cacheKey("https://x.com", ".tbl") != "https://x.com#wait=.tbl" {
		t.Fatal("wait selector should be part of the key")
	}
}
