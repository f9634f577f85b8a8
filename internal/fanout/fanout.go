// Package fanout defines the emit primitives (4.G) that the dispatcher
// uses to deliver outbound events without knowing how transports are
// implemented. internal/websocket provides the concrete hub-backed
// implementation.
package fanout

import "context"

// Envelope is a single outbound server message.
type Envelope struct {
	Type    string                 `json:"type"`
	Event   string                 `json:"event,omitempty"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// Projector returns the payload a specific user is entitled to see for
// one logical outbound event (e.g. a per-role game_state_update).
type Projector func(userID int64) Envelope

// Emitter is the fan-out contract (component G). Implementations must
// never block the caller on a slow/dead peer — a full send buffer is
// dropped rather than backing up the hub.
type Emitter interface {
	// EmitUser unicasts env to every session belonging to userID in room.
	EmitUser(ctx context.Context, roomID string, userID int64, env Envelope) error
	// EmitRoom broadcasts the identical env to every session in room.
	EmitRoom(ctx context.Context, roomID string, env Envelope) error
	// EmitRoomExcept broadcasts to every session in room except sessions
	// belonging to exceptUserID.
	EmitRoomExcept(ctx context.Context, roomID string, exceptUserID int64, env Envelope) error
	// EmitProjected calls project once per deduplicated user in room and
	// sends each the resulting envelope.
	EmitProjected(ctx context.Context, roomID string, project Projector) error
}
