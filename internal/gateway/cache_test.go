package gateway

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestMemoryCacheRoundTrip(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	entry := CacheEntry{
		Content:       json.RawMessage(`{"a":1}`),
		SourceBackend: "anthropic",
		StoredAt:      time.Now(),
	}
	if err := c.Set(ctx, "k", entry, time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, ok, err := c.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if string(got.Content) != `{"a":1}` || got.SourceBackend != "anthropic" {
		t.Errorf("got %+v", got)
	}

	if _, ok, _ := c.Get(ctx, "missing"); ok {
		t.Error("hit for missing key")
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache()
	base := time.Now()
	c.now = func() time.Time { return base }

	ctx := context.Background()
	c.Set(ctx, "k", CacheEntry{Content: json.RawMessage(`1`)}, time.Hour)

	c.now = func() time.Time { return base.Add(59 * time.Minute) }
	if _, ok, _ := c.Get(ctx, "k"); !ok {
		t.Fatal("entry expired before its TTL")
	}

	c.now = func() time.Time { return base.Add(61 * time.Minute) }
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Fatal("entry served after its TTL")
	}
}

func TestMemoryCacheLastWriterWins(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	c.Set(ctx, "k", CacheEntry{Content: json.RawMessage(`"old"`), SourceBackend: "anthropic"}, time.Hour)
	c.Set(ctx, "k", CacheEntry{Content: json.RawMessage(`"new"`), SourceBackend: "openai"}, time.Hour)

	got, ok, _ := c.Get(ctx, "k")
	if !ok || string(got.Content) != `"new"` || got.SourceBackend != "openai" {
		t.Errorf("got %+v, want the later write", got)
	}
}
