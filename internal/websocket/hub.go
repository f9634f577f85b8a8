package websocket

import (
	"context"
	"sync"

	"github.com/rivergate/avalon-core/internal/fanout"
	"github.com/rs/zerolog/log"
)

// Hub maintains the set of active client connections, grouped by room,
// and implements fanout.Emitter (component G) over them.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan roomBroadcast
}

type roomBroadcast struct {
	roomID        string
	env           fanout.Envelope
	exceptUserID  int64
	hasExcept     bool
	onlyUserID    int64
	hasOnlyUser   bool
}

// NewHub creates an empty Hub. Call Run in its own goroutine before
// accepting connections.
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan roomBroadcast, 256),
	}
}

// Run processes register/unregister/broadcast events until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			h.mu.Lock()
			if h.rooms[c.RoomID] == nil {
				h.rooms[c.RoomID] = make(map[*Client]bool)
			}
			h.rooms[c.RoomID][c] = true
			h.mu.Unlock()
			log.Info().Str("room_id", c.RoomID).Int64("user_id", c.UserID).Msg("ws client registered")

		case c := <-h.unregister:
			h.mu.Lock()
			if room, ok := h.rooms[c.RoomID]; ok {
				if _, ok := room[c]; ok {
					delete(room, c)
					close(c.send)
					if len(room) == 0 {
						delete(h.rooms, c.RoomID)
					}
				}
			}
			h.mu.Unlock()
			log.Info().Str("room_id", c.RoomID).Int64("user_id", c.UserID).Msg("ws client unregistered")

		case b := <-h.broadcast:
			h.mu.RLock()
			room := h.rooms[b.roomID]
			for c := range room {
				if b.hasExcept && c.UserID == b.exceptUserID {
					continue
				}
				if b.hasOnlyUser && c.UserID != b.onlyUserID {
					continue
				}
				select {
				case c.send <- &OutgoingMessage{Envelope: b.env}:
				default:
					// Slow/dead peer: drop rather than block the hub loop.
				}
			}
			h.mu.RUnlock()
		}
	}
}

// EmitUser implements fanout.Emitter.
func (h *Hub) EmitUser(_ context.Context, roomID string, userID int64, env fanout.Envelope) error {
	h.broadcast <- roomBroadcast{roomID: roomID, env: env, onlyUserID: userID, hasOnlyUser: true}
	return nil
}

// EmitRoom implements fanout.Emitter.
func (h *Hub) EmitRoom(_ context.Context, roomID string, env fanout.Envelope) error {
	h.broadcast <- roomBroadcast{roomID: roomID, env: env}
	return nil
}

// EmitRoomExcept implements fanout.Emitter.
func (h *Hub) EmitRoomExcept(_ context.Context, roomID string, exceptUserID int64, env fanout.Envelope) error {
	h.broadcast <- roomBroadcast{roomID: roomID, env: env, exceptUserID: exceptUserID, hasExcept: true}
	return nil
}

// EmitProjected implements fanout.Emitter: computes and sends a
// distinct envelope per deduplicated user currently in the room.
func (h *Hub) EmitProjected(ctx context.Context, roomID string, project fanout.Projector) error {
	h.mu.RLock()
	seen := make(map[int64]bool)
	users := make([]int64, 0, len(h.rooms[roomID]))
	for c := range h.rooms[roomID] {
		if seen[c.UserID] {
			continue
		}
		seen[c.UserID] = true
		users = append(users, c.UserID)
	}
	h.mu.RUnlock()

	for _, uid := range users {
		if err := h.EmitUser(ctx, roomID, uid, project(uid)); err != nil {
			return err
		}
	}
	return nil
}

// RoomClientCount returns the number of live connections in roomID
// (not deduplicated by user).
func (h *Hub) RoomClientCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}
