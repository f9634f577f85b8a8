// Package cache abstracts the key-value store backing session,
// room-membership, and game-snapshot persistence (§6.3). Production
// wires the Redis-backed implementation; tests use the in-memory one.
package cache

import (
	"context"
	"time"
)

// Cache is the narrow set of key-value operations the session layer
// needs: string get/set with TTL, hash fields (room membership by
// socket), and a sorted set (room join order, scored by join time).
type Cache interface {
	// Set stores value under key with the given TTL (0 = no expiry).
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	// Get returns the value and true, or "", false if key is absent.
	Get(ctx context.Context, key string) (string, bool, error)
	// Del removes one or more keys.
	Del(ctx context.Context, keys ...string) error

	// HSet sets one field in a hash.
	HSet(ctx context.Context, key, field, value string) error
	// HGet reads one field from a hash.
	HGet(ctx context.Context, key, field string) (string, bool, error)
	// HDel removes one field from a hash.
	HDel(ctx context.Context, key, field string) error
	// HGetAll returns every field in a hash.
	HGetAll(ctx context.Context, key string) (map[string]string, error)

	// ZAdd sets member's score in a sorted set.
	ZAdd(ctx context.Context, key, member string, score float64) error
	// ZRem removes member from a sorted set.
	ZRem(ctx context.Context, key, member string) error
	// ZRangeByScoreAsc returns members in ascending score order.
	ZRangeByScoreAsc(ctx context.Context, key string) ([]string, error)
}

// TTL values from §6.3.
const (
	SessionTTL   = 86400 * time.Second
	RoomStateTTL = 3600 * time.Second
)

// Key helpers matching the §6.3 layout exactly.
func SessionKey(sessionID string) string   { return "session:" + sessionID }
func RoomUsersKey(roomCode string) string  { return "room:" + roomCode + ":users" }
func RoomOrderKey(roomCode string) string  { return "room:" + roomCode + ":order" }
func RoomStateKey(roomCode string) string  { return "room:" + roomCode + ":state" }
func RoomGameKey(roomCode string) string   { return "room:" + roomCode + ":game" }
func GameStateKey(gameID string) string    { return "game:" + gameID + ":state" }
