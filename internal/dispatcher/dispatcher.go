// Package dispatcher implements the Event Dispatcher (component F):
// it resolves the sender, authorises and invokes the Avalon state
// machine, and fans out per-player projections and room announcements.
package dispatcher

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/rivergate/avalon-core/internal/avalon"
	"github.com/rivergate/avalon-core/internal/connection"
	"github.com/rivergate/avalon-core/internal/directory"
	"github.com/rivergate/avalon-core/internal/fanout"
	"github.com/rivergate/avalon-core/internal/membership"
	"github.com/rivergate/avalon-core/internal/ratelimit"
	"github.com/rivergate/avalon-core/internal/registry"
	ws "github.com/rivergate/avalon-core/internal/websocket"
)

// Inbound message type constants, re-exported for callers constructing
// ClientInMessage without importing the websocket package directly.
const (
	TypeJoinRoom     = ws.ClientMessageTypeJoinRoom
	TypeLeaveRoom    = ws.ClientMessageTypeLeaveRoom
	TypeReadyToggle  = ws.ClientMessageTypeReadyToggle
	TypeChat         = ws.ClientMessageTypeChat
	TypeStartGame    = ws.ClientMessageTypeStartGame
	TypeProposeTeam  = ws.ClientMessageTypeProposeTeam
	TypeVoteTeam     = ws.ClientMessageTypeVoteTeam
	TypeVoteMission  = ws.ClientMessageTypeVoteMission
	TypeAssassinate  = ws.ClientMessageTypeAssassinate
	TypeGetGameState = ws.ClientMessageTypeGetGameState
	TypeGameAction   = ws.ClientMessageTypeGameAction
)

// Outbound event name constants (§6.2).
const (
	EventConnected          = "connected"
	EventUserJoined          = "user_joined"
	EventUserLeft            = "user_left"
	EventRoomUsers           = "room_users"
	EventHostChanged         = "host_changed"
	EventGameStarted         = "game_started"
	EventRoleAssigned        = "role_assigned"
	EventGameStateUpdate     = "game_state_update"
	EventTeamProposed        = "team_proposed"
	EventTeamVoteUpdate      = "team_vote_update"
	EventTeamVoteResult      = "team_vote_result"
	EventMissionVoteUpdate   = "mission_vote_update"
	EventMissionResult       = "mission_result"
	EventAssassinationResult = "assassination_result"
	EventGameEnded           = "game_ended"
	EventError               = "error"
	EventPlayerReady         = "player_ready"
	EventChat                = "chat"
)

// Dispatcher wires together every session-layer component.
type Dispatcher struct {
	conns     *connection.Registry
	members   *membership.Membership
	games     *registry.Registry
	rooms     directory.RoomDirectory
	emit      fanout.Emitter
	rng       func() avalon.RNG
	chatLimit ratelimit.Limiter
}

// New builds a Dispatcher. rngFactory lets production pass
// avalon.NewCryptoRNG and tests pass a seeded one per game.
func New(conns *connection.Registry, members *membership.Membership, games *registry.Registry, rooms directory.RoomDirectory, emit fanout.Emitter, rngFactory func() avalon.RNG, chatLimit ratelimit.Limiter) *Dispatcher {
	if rngFactory == nil {
		rngFactory = avalon.NewCryptoRNG
	}
	if chatLimit == nil {
		chatLimit = ratelimit.Noop{}
	}
	return &Dispatcher{
		conns:     conns,
		members:   members,
		games:     games,
		rooms:     rooms,
		emit:      emit,
		rng:       rngFactory,
		chatLimit: chatLimit,
	}
}

// HandleConnect registers a new transport session, not yet bound to
// any room, and returns its id. Used when a transport lets a client
// connect before choosing a room (join_room arrives as a later event).
func (d *Dispatcher) HandleConnect(ctx context.Context, userID int64, username, displayName string) string {
	sessionID := uuid.NewString()
	d.conns.Set(&connection.Session{
		SessionID:   sessionID,
		UserID:      userID,
		Username:    username,
		DisplayName: displayName,
	})
	d.emit.EmitUser(ctx, "", userID, fanout.Envelope{Type: EventConnected, Payload: map[string]interface{}{"session_id": sessionID}})
	return sessionID
}

// BindSession registers sessionID as already bound to roomID (the
// room WebSocket upgrade path, where the bearer token names the room
// up front) and runs the same join sequence join_room would: record
// membership, announce user_joined, and unicast the current roster.
func (d *Dispatcher) BindSession(ctx context.Context, sessionID string, userID int64, username, displayName, roomID string) {
	sess := &connection.Session{
		SessionID:   sessionID,
		UserID:      userID,
		Username:    username,
		DisplayName: displayName,
	}
	d.conns.Set(sess)
	d.handleJoinRoom(ctx, sess, map[string]interface{}{
		"room_id":      roomID,
		"user_id":      userID,
		"username":     username,
		"display_name": displayName,
	})
}

// HandleDisconnect tears down the session, applying host succession if
// the disconnecting user was bound to a room.
func (d *Dispatcher) HandleDisconnect(ctx context.Context, sessionID string) {
	sess := d.conns.Get(sessionID)
	if sess == nil {
		return
	}
	d.conns.Delete(sessionID)
	if sess.RoomID != "" {
		d.departRoom(ctx, sess.RoomID, sess.UserID, sess.Username)
	}
}

// HandleMessage routes one inbound event by type.
func (d *Dispatcher) HandleMessage(ctx context.Context, sessionID string, msg *ws.ClientInMessage) {
	sess := d.conns.Get(sessionID)
	if sess == nil {
		return
	}
	log := log.With().Str("session_id", sessionID).Str("type", msg.Type).Logger()

	switch msg.Type {
	case TypeJoinRoom:
		d.handleJoinRoom(ctx, sess, msg.Payload)
	case TypeLeaveRoom:
		d.handleLeaveRoom(ctx, sess, msg.Payload)
	case TypeReadyToggle:
		d.handleReadyToggle(ctx, sess, msg.Payload)
	case TypeChat:
		d.handleChat(ctx, sess, msg.Payload)
	case TypeGameAction:
		d.handleGameAction(ctx, sess, msg.Payload)
	case TypeStartGame:
		d.handleStartGame(ctx, sess, msg.Payload)
	case TypeProposeTeam:
		d.handleProposeTeam(ctx, sess, msg.Payload)
	case TypeVoteTeam:
		d.handleVoteTeam(ctx, sess, msg.Payload)
	case TypeVoteMission:
		d.handleVoteMission(ctx, sess, msg.Payload)
	case TypeAssassinate:
		d.handleAssassinate(ctx, sess, msg.Payload)
	case TypeGetGameState:
		d.handleGetGameState(ctx, sess, msg.Payload)
	default:
		log.Warn().Msg("unhandled message type")
	}
}

func (d *Dispatcher) sendError(ctx context.Context, userID int64, roomID string, kind avalon.ErrorKind, msg string) {
	d.emit.EmitUser(ctx, roomID, userID, fanout.Envelope{
		Type: EventError,
		Payload: map[string]interface{}{
			"kind":    string(kind),
			"message": msg,
		},
	})
}
