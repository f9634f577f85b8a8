// Package registry implements the Game Registry (component C):
// an in-memory index from game id to live state, write-through to the
// cache, and restoration from the cache on a miss.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rivergate/avalon-core/internal/avalon"
	"github.com/rivergate/avalon-core/internal/cache"
	"github.com/rs/zerolog/log"
)

// entry pairs a live game with the mutex that serializes mutations
// against it (§5: per-game serial execution).
type entry struct {
	mu    sync.Mutex
	state *avalon.GameState
}

// Registry is the process-wide game index.
type Registry struct {
	cache cache.Cache

	mu      sync.RWMutex
	byID    map[string]*entry
	byRoom  map[string]string // room code -> game id
}

// New returns a Registry backed by c.
func New(c cache.Cache) *Registry {
	return &Registry{
		cache:  c,
		byID:   make(map[string]*entry),
		byRoom: make(map[string]string),
	}
}

// Put installs a freshly-initialized game into the registry and
// snapshots it to the cache (called from start_game).
func (r *Registry) Put(ctx context.Context, roomCode string, s *avalon.GameState) error {
	r.mu.Lock()
	r.byID[s.GameID] = &entry{state: s}
	r.byRoom[roomCode] = s.GameID
	r.mu.Unlock()
	return r.snapshot(ctx, s)
}

// Get returns the live entry for gameID, consulting the cache on a
// process-memory miss (restart recovery). Returns nil if unknown.
func (r *Registry) Get(ctx context.Context, gameID string) (*avalon.GameState, error) {
	r.mu.RLock()
	e, ok := r.byID[gameID]
	r.mu.RUnlock()
	if ok {
		e.mu.Lock()
		s := e.state
		e.mu.Unlock()
		return s, nil
	}

	raw, found, err := r.cache.Get(ctx, cache.GameStateKey(gameID))
	if err != nil {
		return nil, fmt.Errorf("restore game %s: %w", gameID, err)
	}
	if !found {
		return nil, nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		log.Warn().Err(err).Str("game_id", gameID).Msg("discarding corrupt game snapshot")
		return nil, nil
	}
	s := avalon.StateFromMap(m)
	r.mu.Lock()
	r.byID[gameID] = &entry{state: s}
	r.mu.Unlock()
	return s, nil
}

// GameIDForRoom returns the current game id for roomCode, if any.
func (r *Registry) GameIDForRoom(roomCode string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byRoom[roomCode]
	return id, ok
}

// WithLock runs fn with gameID's per-game mutex held, passing the
// current state; fn returns the new state to install (or the same
// pointer if unchanged), which is then snapshotted to the cache. An
// error from fn leaves the installed state untouched. This is
// the serialization point §5 requires: no two mutations of the same
// game may overlap.
func (r *Registry) WithLock(ctx context.Context, gameID string, fn func(s *avalon.GameState) (*avalon.GameState, error)) (*avalon.GameState, error) {
	r.mu.RLock()
	e, ok := r.byID[gameID]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("game %s not found", gameID)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	next, err := fn(e.state)
	if err != nil {
		return nil, err
	}
	e.state = next
	if err := r.snapshot(ctx, next); err != nil {
		log.Error().Err(err).Str("game_id", gameID).Msg("snapshot write failed; in-memory state remains authoritative")
	}
	return next, nil
}

// Remove deletes gameID from the in-memory index and cache, called
// after game_over is broadcast.
func (r *Registry) Remove(ctx context.Context, roomCode, gameID string) error {
	r.mu.Lock()
	delete(r.byID, gameID)
	if r.byRoom[roomCode] == gameID {
		delete(r.byRoom, roomCode)
	}
	r.mu.Unlock()
	return r.cache.Del(ctx, cache.GameStateKey(gameID), cache.RoomGameKey(roomCode))
}

func (r *Registry) snapshot(ctx context.Context, s *avalon.GameState) error {
	raw, err := json.Marshal(s.ToMap())
	if err != nil {
		return fmt.Errorf("marshal snapshot for game %s: %w", s.GameID, err)
	}
	if err := r.cache.Set(ctx, cache.GameStateKey(s.GameID), string(raw), 0); err != nil {
		return fmt.Errorf("write snapshot for game %s: %w", s.GameID, err)
	}
	return r.cache.Set(ctx, cache.RoomGameKey(s.RoomID), s.GameID, cache.RoomStateTTL)
}
