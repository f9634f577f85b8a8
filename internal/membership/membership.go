// Package membership implements Room Membership / Host Succession
// (component E): join order per room tracked in the cache, with
// successor election on host departure.
package membership

import (
	"context"
	"strconv"

	"github.com/rivergate/avalon-core/internal/cache"
)

// Membership tracks, per room, a hash of user id -> session id and a
// sorted set of user id scored by join time, both backed by Cache.
type Membership struct {
	cache cache.Cache
	// now returns the join score. Injected so tests can control
	// ordering deterministically rather than racing on wall-clock time.
	now func() float64
}

// New returns a Membership backed by c, scoring joins by nowFn (pass a
// monotonically increasing counter in tests, time-based seconds in
// production).
func New(c cache.Cache, nowFn func() float64) *Membership {
	return &Membership{cache: c, now: nowFn}
}

// Join records userID's membership in room, bound to sessionID, scored
// by the current join time (re-joining updates the score, matching
// invariant 8: the score reflects the most recent join).
func (m *Membership) Join(ctx context.Context, roomCode string, userID int64, sessionID string) error {
	uid := strconv.FormatInt(userID, 10)
	if err := m.cache.HSet(ctx, cache.RoomUsersKey(roomCode), uid, sessionID); err != nil {
		return err
	}
	return m.cache.ZAdd(ctx, cache.RoomOrderKey(roomCode), uid, m.now())
}

// Leave removes userID from both membership structures.
func (m *Membership) Leave(ctx context.Context, roomCode string, userID int64) error {
	uid := strconv.FormatInt(userID, 10)
	if err := m.cache.HDel(ctx, cache.RoomUsersKey(roomCode), uid); err != nil {
		return err
	}
	return m.cache.ZRem(ctx, cache.RoomOrderKey(roomCode), uid)
}

// NextHost returns the member with the smallest join score, excluding
// excludeUserID, or (0, false) if no successor remains.
func (m *Membership) NextHost(ctx context.Context, roomCode string, excludeUserID int64) (int64, bool, error) {
	members, err := m.cache.ZRangeByScoreAsc(ctx, cache.RoomOrderKey(roomCode))
	if err != nil {
		return 0, false, err
	}
	exclude := strconv.FormatInt(excludeUserID, 10)
	for _, uidStr := range members {
		if uidStr == exclude {
			continue
		}
		uid, err := strconv.ParseInt(uidStr, 10, 64)
		if err != nil {
			continue
		}
		return uid, true, nil
	}
	return 0, false, nil
}

// Clear removes every membership key for roomCode.
func (m *Membership) Clear(ctx context.Context, roomCode string) error {
	return m.cache.Del(ctx, cache.RoomUsersKey(roomCode), cache.RoomOrderKey(roomCode))
}

// Members returns every user id currently joined to roomCode, in join
// order (ascending score).
func (m *Membership) Members(ctx context.Context, roomCode string) ([]int64, error) {
	members, err := m.cache.ZRangeByScoreAsc(ctx, cache.RoomOrderKey(roomCode))
	if err != nil {
		return nil, err
	}
	out := make([]int64, 0, len(members))
	for _, s := range members {
		uid, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, uid)
	}
	return out, nil
}
