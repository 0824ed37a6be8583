package redisad_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	redisad "staybook/internal/adapters/redis"
)

func newCache(t *testing.T) (*redisad.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := redisad.NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "test:")
	return c, mr
}

func TestCache_SetGetDel(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()

	type hotel struct {
		Name string `json:"name"`
	}
	if err := c.Set(ctx, "hotels:batangas", []hotel{{Name: "Casa"}}, 60); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !mr.Exists("test:hotels:batangas") {
		t.Fatalf("expected prefixed key in redis")
	}

	var got []hotel
	ok, err := c.Get(ctx, "hotels:batangas", &got)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if len(got) != 1 || got[0].Name != "Casa" {
		t.Fatalf("unexpected value: %+v", got)
	}

	if err := c.Del(ctx, "hotels:batangas"); err != nil {
		t.Fatalf("del: %v", err)
	}
	ok, err = c.Get(ctx, "hotels:batangas", &got)
	if err != nil || ok {
		t.Fatalf("expected miss after del, ok=%v err=%v", ok, err)
	}
}

func TestCache_TTLExpires(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "k", "v", 10); err != nil {
		t.Fatalf("set: %v", err)
	}
	mr.FastForward(11 * time.Second)

	var s string
	if ok, _ := c.Get(ctx, "k", &s); ok {
		t.Fatalf("expected entry to expire")
	}
}

func TestCache_RawJSONRoundTripIsByteStable(t *testing.T) {
	c, _ := newCache(t)
	ctx := context.Background()

	in := json.RawMessage(`{"display_name":"Lipa","address":{"city":"Lipa"}}`)
	if err := c.Set(ctx, "13.9,121.1", in, 60); err != nil {
		t.Fatalf("set: %v", err)
	}
	var out json.RawMessage
	if ok, err := c.Get(ctx, "13.9,121.1", &out); !ok || err != nil {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if string(out) != string(in) {
		t.Fatalf("payload changed: %s", out)
	}
}
