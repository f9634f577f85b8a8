package dispatcher

import (
	"context"
	"fmt"

	"github.com/rivergate/avalon-core/internal/avalon"
	"github.com/rivergate/avalon-core/internal/connection"
	"github.com/rivergate/avalon-core/internal/fanout"
	"github.com/rs/zerolog/log"
)

const (
	minPlayersKorean = "아발론은 최소 5명이 필요합니다"
	maxPlayersKorean = "아발론은 최대 10명까지 가능합니다"
)

func (d *Dispatcher) handleJoinRoom(ctx context.Context, sess *connection.Session, payload map[string]interface{}) {
	roomID := asString(payload["room_id"])
	userID := asInt64(payload["user_id"])
	username := asString(payload["username"])
	displayName := asString(payload["display_name"])
	if roomID == "" || userID == 0 {
		d.sendError(ctx, sess.UserID, roomID, avalon.KindValidation, "room_id and user_id are required")
		return
	}

	sess.RoomID = roomID
	sess.UserID = userID
	sess.Username = username
	sess.DisplayName = displayName
	d.conns.Set(sess)

	if err := d.members.Join(ctx, roomID, userID, sess.SessionID); err != nil {
		log.Error().Err(err).Msg("membership join failed")
		d.sendError(ctx, userID, roomID, avalon.KindValidation, "failed to join room")
		return
	}

	d.emit.EmitRoomExcept(ctx, roomID, userID, fanout.Envelope{
		Type: EventUserJoined,
		Payload: map[string]interface{}{"user_id": userID, "username": username, "display_name": displayName},
	})

	members, err := d.members.Members(ctx, roomID)
	if err != nil {
		log.Error().Err(err).Msg("membership list failed")
		return
	}
	d.emit.EmitUser(ctx, roomID, userID, fanout.Envelope{
		Type:    EventRoomUsers,
		Payload: map[string]interface{}{"user_ids": members},
	})
}

func (d *Dispatcher) handleLeaveRoom(ctx context.Context, sess *connection.Session, payload map[string]interface{}) {
	roomID := asString(payload["room_id"])
	if roomID == "" {
		roomID = sess.RoomID
	}
	username := asString(payload["username"])
	if username == "" {
		username = sess.Username
	}
	d.departRoom(ctx, roomID, sess.UserID, username)
	sess.RoomID = ""
	d.conns.Set(sess)
}

// departRoom runs the host-succession sequence from §4.E. Host
// succession only fires when the leaver IS the host; since the host is
// always the earliest-joined remaining member (that is what NextHost
// promotes to), a leaver at the front of join order is the host and a
// leaver anywhere else just leaves quietly.
func (d *Dispatcher) departRoom(ctx context.Context, roomID string, userID int64, username string) {
	if roomID == "" {
		return
	}
	wasHost := false
	if members, err := d.members.Members(ctx, roomID); err != nil {
		log.Error().Err(err).Msg("membership list failed")
	} else if len(members) > 0 && members[0] == userID {
		wasHost = true
	}

	var nextHost int64
	var hasSuccessor bool
	if wasHost {
		var err error
		nextHost, hasSuccessor, err = d.members.NextHost(ctx, roomID, userID)
		if err != nil {
			log.Error().Err(err).Msg("next host lookup failed")
		}
	}

	if err := d.members.Leave(ctx, roomID, userID); err != nil {
		log.Error().Err(err).Msg("membership leave failed")
	}
	d.emit.EmitRoom(ctx, roomID, fanout.Envelope{
		Type:    EventUserLeft,
		Payload: map[string]interface{}{"user_id": userID, "username": username},
	})
	if hasSuccessor {
		if err := d.rooms.UpdateHostID(ctx, roomID, nextHost); err != nil {
			log.Error().Err(err).Msg("room directory host update failed")
		}
		d.emit.EmitRoom(ctx, roomID, fanout.Envelope{
			Type:    EventHostChanged,
			Payload: map[string]interface{}{"host_id": nextHost},
		})
	}
}

func (d *Dispatcher) handleReadyToggle(ctx context.Context, sess *connection.Session, payload map[string]interface{}) {
	d.emit.EmitRoom(ctx, sess.RoomID, fanout.Envelope{
		Type:    EventPlayerReady,
		Payload: payload,
	})
}

func (d *Dispatcher) handleChat(ctx context.Context, sess *connection.Session, payload map[string]interface{}) {
	if allowed, _ := d.chatLimit.Allow(sess.SessionID); !allowed {
		d.sendError(ctx, sess.UserID, sess.RoomID, avalon.KindRuleViolation, "chat rate limit exceeded")
		return
	}
	text := asString(payload["message"])
	if len(text) > 2000 {
		text = text[:2000]
	}
	d.emit.EmitRoom(ctx, sess.RoomID, fanout.Envelope{
		Type: EventChat,
		Payload: map[string]interface{}{
			"user_id":      sess.UserID,
			"display_name": sess.DisplayName,
			"message":      text,
		},
	})
}

// handleGameAction is the generic, non-core passthrough named in §1
// and §6.1; it is not part of the Avalon-specific contract.
func (d *Dispatcher) handleGameAction(ctx context.Context, sess *connection.Session, payload map[string]interface{}) {
	d.emit.EmitRoomExcept(ctx, sess.RoomID, sess.UserID, fanout.Envelope{
		Type:    "game_action",
		Payload: payload,
	})
}

func (d *Dispatcher) handleStartGame(ctx context.Context, sess *connection.Session, payload map[string]interface{}) {
	gameType := asString(payload["game_type"])
	gameID := asString(payload["game_id"])
	roomID := asString(payload["room_id"])
	if roomID == "" {
		roomID = sess.RoomID
	}
	if gameID == "" {
		gameID = gameIDForStart(roomID)
	}

	if gameType != "avalon" {
		d.emit.EmitRoom(ctx, roomID, fanout.Envelope{
			Type:    EventGameStarted,
			Payload: payload,
		})
		return
	}

	members := d.conns.SessionsInRoom(roomID)
	players := make([]avalon.InitPlayer, 0, len(members))
	for _, m := range members {
		players = append(players, avalon.InitPlayer{UserID: m.UserID, Username: m.Username, DisplayName: m.DisplayName})
	}

	n := len(players)
	if n < 5 {
		d.sendError(ctx, sess.UserID, roomID, avalon.KindCapacity, minPlayersKorean)
		return
	}
	if n > 10 {
		d.sendError(ctx, sess.UserID, roomID, avalon.KindCapacity, maxPlayersKorean)
		return
	}

	engine := avalon.NewEngine(d.rng())
	state, err := engine.Initialize(gameID, roomID, players)
	if err != nil {
		d.sendError(ctx, sess.UserID, roomID, avalon.KindValidation, err.Error())
		return
	}
	if err := d.games.Put(ctx, roomID, state); err != nil {
		log.Error().Err(err).Msg("failed to persist new game")
		d.sendError(ctx, sess.UserID, roomID, avalon.KindValidation, "failed to start game")
		return
	}

	d.emit.EmitRoom(ctx, roomID, fanout.Envelope{
		Type: EventGameStarted,
		Payload: map[string]interface{}{"game_id": gameID, "room_id": roomID},
	})
	d.broadcastPerPlayerState(ctx, roomID, state, func(v avalon.PlayerView) string { return EventRoleAssigned })
	d.broadcastPerPlayerState(ctx, roomID, state, func(v avalon.PlayerView) string { return EventGameStateUpdate })
}

func gameIDForStart(roomID string) string {
	return fmt.Sprintf("%s-game", roomID)
}

// broadcastPerPlayerState sends one EmitProjected pass using the
// current player view, tagged with eventName (role_assigned and
// game_state_update carry the same projected body but distinct tags).
func (d *Dispatcher) broadcastPerPlayerState(ctx context.Context, roomID string, s *avalon.GameState, eventName func(avalon.PlayerView) string) {
	d.emit.EmitProjected(ctx, roomID, func(userID int64) fanout.Envelope {
		v, err := avalon.GetPlayerView(s, userID)
		if err != nil {
			return fanout.Envelope{Type: EventError, Payload: map[string]interface{}{"message": err.Error()}}
		}
		return fanout.Envelope{Type: eventName(v), Payload: viewToPayload(v)}
	})
}

func (d *Dispatcher) handleGetGameState(ctx context.Context, sess *connection.Session, payload map[string]interface{}) {
	gameID := asString(payload["game_id"])
	s, err := d.games.Get(ctx, gameID)
	if err != nil || s == nil {
		d.sendError(ctx, sess.UserID, sess.RoomID, avalon.KindNotFound, "game not found")
		return
	}
	v, err := avalon.GetPlayerView(s, sess.UserID)
	if err != nil {
		d.sendError(ctx, sess.UserID, sess.RoomID, avalon.KindNotFound, err.Error())
		return
	}
	d.emit.EmitUser(ctx, sess.RoomID, sess.UserID, fanout.Envelope{Type: EventGameStateUpdate, Payload: viewToPayload(v)})
}
