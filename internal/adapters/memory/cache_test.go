package memory_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"staybook/internal/adapters/memory"
)

func TestCache_MissThenHit(t *testing.T) {
	c := memory.New(10, time.Minute)
	ctx := context.Background()

	var out json.RawMessage
	if ok, err := c.Get(ctx, "13.7569,121.0583", &out); ok || err != nil {
		t.Fatalf("expected clean miss, ok=%v err=%v", ok, err)
	}

	payload := json.RawMessage(`{"display_name":"Batangas City"}`)
	if err := c.Set(ctx, "13.7569,121.0583", payload, 3600); err != nil {
		t.Fatalf("set: %v", err)
	}
	ok, err := c.Get(ctx, "13.7569,121.0583", &out)
	if !ok || err != nil {
		t.Fatalf("expected hit, ok=%v err=%v", ok, err)
	}
	if string(out) != string(payload) {
		t.Fatalf("got %s", out)
	}
}

func TestCache_TTL(t *testing.T) {
	c := memory.New(10, time.Minute)
	ctx := context.Background()

	if err := c.Set(ctx, "k", "v", 1); err != nil {
		t.Fatalf("set: %v", err)
	}
	time.Sleep(1100 * time.Millisecond)

	var s string
	if ok, _ := c.Get(ctx, "k", &s); ok {
		t.Fatalf("expected expired entry to miss")
	}
}

func TestCache_SizeBound(t *testing.T) {
	c := memory.New(3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		// later keys live longer, so the earliest-expiring one is evicted first
		if err := c.Set(ctx, fmt.Sprintf("k%d", i), i, 100+i); err != nil {
			t.Fatalf("set: %v", err)
		}
		if c.Len() > 3 {
			t.Fatalf("cache grew past bound: %d", c.Len())
		}
	}

	var n int
	if ok, _ := c.Get(ctx, "k9", &n); !ok || n != 9 {
		t.Fatalf("newest entry should survive, ok=%v n=%d", ok, n)
	}
	if ok, _ := c.Get(ctx, "k0", &n); ok {
		t.Fatalf("oldest entry should have been evicted")
	}
}

func TestCache_OverwriteAtCapacityKeepsOthers(t *testing.T) {
	c := memory.New(2, time.Minute)
	ctx := context.Background()

	_ = c.Set(ctx, "a", 1, 60)
	_ = c.Set(ctx, "b", 2, 60)
	_ = c.Set(ctx, "a", 3, 60)

	var n int
	if ok, _ := c.Get(ctx, "b", &n); !ok || n != 2 {
		t.Fatalf("overwriting an existing key must not evict others")
	}
	if ok, _ := c.Get(ctx, "a", &n); !ok || n != 3 {
		t.Fatalf("expected overwritten value 3, got %d", n)
	}
}
