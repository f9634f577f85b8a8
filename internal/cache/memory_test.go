package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryCacheStringTTL(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()
	if err := c.Set(ctx, "k", "v", time.Millisecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Error("expected expired key to be absent")
	}
}

func TestMemoryCacheSortedSetOrder(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()
	c.ZAdd(ctx, "room:abc:order", "u2", 20)
	c.ZAdd(ctx, "room:abc:order", "u1", 10)
	c.ZAdd(ctx, "room:abc:order", "u3", 30)

	got, err := c.ZRangeByScoreAsc(ctx, "room:abc:order")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"u1", "u2", "u3"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestMemoryCacheHash(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()
	c.HSet(ctx, "room:abc:users", "1", "sess-1")
	c.HSet(ctx, "room:abc:users", "2", "sess-2")
	c.HDel(ctx, "room:abc:users", "1")

	all, err := c.HGetAll(ctx, "room:abc:users")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 || all["2"] != "sess-2" {
		t.Errorf("hgetall = %v, want {2: sess-2}", all)
	}
}
