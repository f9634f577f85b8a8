package registry

import (
	"context"
	"testing"

	"github.com/rivergate/avalon-core/internal/avalon"
	"github.com/rivergate/avalon-core/internal/cache"
)

func samplePlayers() []avalon.InitPlayer {
	return []avalon.InitPlayer{
		{UserID: 1}, {UserID: 2}, {UserID: 3}, {UserID: 4}, {UserID: 5},
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	r := New(cache.NewMemoryCache())
	e := avalon.NewEngine(avalon.NewSeededRNG(1))
	s, err := e.Initialize("g1", "room1", samplePlayers())
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Put(ctx, "room1", s); err != nil {
		t.Fatal(err)
	}

	got, err := r.Get(ctx, "g1")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.GameID != "g1" {
		t.Fatalf("got %+v, want game g1", got)
	}

	id, ok := r.GameIDForRoom("room1")
	if !ok || id != "g1" {
		t.Errorf("GameIDForRoom = %s (ok=%v), want g1", id, ok)
	}
}

func TestGetRestoresFromCacheOnMemoryMiss(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemoryCache()
	r1 := New(c)
	e := avalon.NewEngine(avalon.NewSeededRNG(2))
	s, _ := e.Initialize("g2", "room2", samplePlayers())
	if err := r1.Put(ctx, "room2", s); err != nil {
		t.Fatal(err)
	}

	// Simulate a fresh process: a new Registry sharing the same cache.
	r2 := New(c)
	got, err := r2.Get(ctx, "g2")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("expected restore from cache, got nil")
	}
	if len(got.Players) != 5 {
		t.Errorf("restored %d players, want 5", len(got.Players))
	}
}

func TestWithLockSerializesAndSnapshots(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemoryCache()
	r := New(c)
	e := avalon.NewEngine(avalon.NewSeededRNG(3))
	s, _ := e.Initialize("g3", "room3", samplePlayers())
	r.Put(ctx, "room3", s)

	_, err := r.WithLock(ctx, "g3", func(s *avalon.GameState) (*avalon.GameState, error) {
		leader := s.LeaderID()
		team := make([]int64, 0, 2)
		for _, p := range s.Players {
			if p.UserID != leader {
				team = append(team, p.UserID)
			}
			if len(team) == 2 {
				break
			}
		}
		return e.ProposeTeam(s, leader, team)
	})
	if err != nil {
		t.Fatal(err)
	}

	raw, found, err := c.Get(ctx, cache.GameStateKey("g3"))
	if err != nil || !found {
		t.Fatalf("expected snapshot written, found=%v err=%v", found, err)
	}
	if raw == "" {
		t.Error("snapshot is empty")
	}
}

func TestRemoveDeletesFromMemoryAndCache(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemoryCache()
	r := New(c)
	e := avalon.NewEngine(avalon.NewSeededRNG(4))
	s, _ := e.Initialize("g4", "room4", samplePlayers())
	r.Put(ctx, "room4", s)

	if err := r.Remove(ctx, "room4", "g4"); err != nil {
		t.Fatal(err)
	}
	got, err := r.Get(ctx, "g4")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Error("expected game to be gone after Remove")
	}
}
