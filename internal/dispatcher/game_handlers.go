package dispatcher

import (
	"context"

	"github.com/rivergate/avalon-core/internal/avalon"
	"github.com/rivergate/avalon-core/internal/connection"
	"github.com/rivergate/avalon-core/internal/fanout"
	"github.com/rs/zerolog/log"
)

// resolveGame looks up the game named by payload's game_id and
// cross-checks the sender's room_id against it, per §4.F rule 2: a
// caller may only act against a game that matches their own room.
func (d *Dispatcher) resolveGame(ctx context.Context, sess *connection.Session, payload map[string]interface{}) (string, *avalon.GameState, bool) {
	gameID := asString(payload["game_id"])
	if gameID == "" {
		d.sendError(ctx, sess.UserID, sess.RoomID, avalon.KindNotFound, "game_id is required")
		return "", nil, false
	}
	s, err := d.games.Get(ctx, gameID)
	if err != nil || s == nil {
		d.sendError(ctx, sess.UserID, sess.RoomID, avalon.KindNotFound, "game not found")
		return "", nil, false
	}
	if sess.RoomID != "" && s.RoomID != sess.RoomID {
		d.sendError(ctx, sess.UserID, sess.RoomID, avalon.KindUnauthorized, "game does not belong to your room")
		return "", nil, false
	}
	return gameID, s, true
}

func (d *Dispatcher) handleProposeTeam(ctx context.Context, sess *connection.Session, payload map[string]interface{}) {
	gameID, s, ok := d.resolveGame(ctx, sess, payload)
	if !ok {
		return
	}
	team := asInt64Slice(payload["team_members"])

	next, err := d.games.WithLock(ctx, gameID, func(cur *avalon.GameState) (*avalon.GameState, error) {
		return avalon.NewEngine(d.rng()).ProposeTeam(cur, sess.UserID, team)
	})
	if err != nil {
		d.emitGameError(ctx, sess, s.RoomID, err)
		return
	}

	d.emit.EmitRoom(ctx, s.RoomID, fanout.Envelope{
		Type:    EventTeamProposed,
		Payload: map[string]interface{}{"game_id": gameID, "team_members": next.ProposedTeam, "leader_id": next.LeaderID()},
	})
	d.broadcastPerPlayerState(ctx, s.RoomID, next, func(avalon.PlayerView) string { return EventGameStateUpdate })
}

func (d *Dispatcher) handleVoteTeam(ctx context.Context, sess *connection.Session, payload map[string]interface{}) {
	gameID, s, ok := d.resolveGame(ctx, sess, payload)
	if !ok {
		return
	}
	approve, _ := payload["approve"].(bool)

	before, err := d.games.Get(ctx, gameID)
	if err != nil || before == nil {
		d.sendError(ctx, sess.UserID, s.RoomID, avalon.KindNotFound, "game not found")
		return
	}
	next, err := d.games.WithLock(ctx, gameID, func(cur *avalon.GameState) (*avalon.GameState, error) {
		return avalon.NewEngine(d.rng()).VoteTeam(cur, sess.UserID, approve)
	})
	if err != nil {
		d.emitGameError(ctx, sess, s.RoomID, err)
		return
	}

	resolved := next.Phase != avalon.PhaseTeamVote // resolution always leaves team_vote
	if !resolved {
		approvals := 0
		for _, v := range next.TeamVotes {
			if v {
				approvals++
			}
		}
		d.emit.EmitRoom(ctx, s.RoomID, fanout.Envelope{
			Type: EventTeamVoteUpdate,
			Payload: map[string]interface{}{
				"game_id":   gameID,
				"votes_cast": len(next.TeamVotes),
				"total":      next.PlayerCount(),
				"approvals":  approvals,
			},
		})
		return
	}

	d.emit.EmitRoom(ctx, s.RoomID, fanout.Envelope{
		Type:    EventTeamVoteResult,
		Payload: map[string]interface{}{"game_id": gameID, "proposed_team": before.ProposedTeam},
	})

	if next.Phase == avalon.PhaseGameOver {
		d.emitGameEnded(ctx, s.RoomID, next)
		return
	}
	d.broadcastPerPlayerState(ctx, s.RoomID, next, func(avalon.PlayerView) string { return EventGameStateUpdate })
}

func (d *Dispatcher) handleVoteMission(ctx context.Context, sess *connection.Session, payload map[string]interface{}) {
	gameID, s, ok := d.resolveGame(ctx, sess, payload)
	if !ok {
		return
	}
	succeed, _ := payload["success"].(bool)

	before, err := d.games.Get(ctx, gameID)
	if err != nil || before == nil {
		d.sendError(ctx, sess.UserID, s.RoomID, avalon.KindNotFound, "game not found")
		return
	}
	next, err := d.games.WithLock(ctx, gameID, func(cur *avalon.GameState) (*avalon.GameState, error) {
		return avalon.NewEngine(d.rng()).VoteMission(cur, sess.UserID, succeed)
	})
	if err != nil {
		d.emitGameError(ctx, sess, s.RoomID, err)
		return
	}

	resolved := next.Phase != avalon.PhaseMission
	if !resolved {
		d.emit.EmitRoom(ctx, s.RoomID, fanout.Envelope{
			Type:    EventMissionVoteUpdate,
			Payload: map[string]interface{}{"game_id": gameID, "votes_cast": len(next.MissionVotes), "total": len(before.ProposedTeam)},
		})
		return
	}

	record := next.History[len(next.History)-1]
	d.emit.EmitRoom(ctx, s.RoomID, fanout.Envelope{
		Type: EventMissionResult,
		Payload: map[string]interface{}{
			"game_id":       gameID,
			"round":         record.Round,
			"team":          record.Team,
			"mission_votes": record.MissionVotes,
			"outcome":       record.Outcome,
		},
	})

	if next.Phase == avalon.PhaseGameOver {
		d.emitGameEnded(ctx, s.RoomID, next)
		return
	}
	d.broadcastPerPlayerState(ctx, s.RoomID, next, func(avalon.PlayerView) string { return EventGameStateUpdate })
}

func (d *Dispatcher) handleAssassinate(ctx context.Context, sess *connection.Session, payload map[string]interface{}) {
	gameID, s, ok := d.resolveGame(ctx, sess, payload)
	if !ok {
		return
	}
	targetID := asInt64(payload["target_id"])

	next, err := d.games.WithLock(ctx, gameID, func(cur *avalon.GameState) (*avalon.GameState, error) {
		return avalon.NewEngine(d.rng()).Assassinate(cur, sess.UserID, targetID)
	})
	if err != nil {
		d.emitGameError(ctx, sess, s.RoomID, err)
		return
	}

	d.emit.EmitRoom(ctx, s.RoomID, fanout.Envelope{
		Type: EventAssassinationResult,
		Payload: map[string]interface{}{
			"game_id":     gameID,
			"target_id":   targetID,
			"winner_team": next.WinnerTeam,
			"win_reason":  next.WinReason,
		},
	})
	d.emitGameEnded(ctx, s.RoomID, next)
}

// emitGameEnded broadcasts the full unmasked roster and round history,
// per §6.2: game_ended reveals everything a projected view would have
// hidden during play.
func (d *Dispatcher) emitGameEnded(ctx context.Context, roomID string, s *avalon.GameState) {
	d.emit.EmitRoom(ctx, roomID, fanout.Envelope{
		Type: EventGameEnded,
		Payload: map[string]interface{}{
			"game_id":              s.GameID,
			"winner_team":          s.WinnerTeam,
			"win_reason":           s.WinReason,
			"players":              s.Players,
			"mission_results":      s.MissionResults,
			"mission_history":      s.History,
			"assassination_target": s.AssassinationTarget,
		},
	})
	if err := d.games.Remove(ctx, roomID, s.GameID); err != nil {
		log.Error().Err(err).Str("game_id", s.GameID).Msg("failed to remove ended game")
	}
}

// emitGameError maps a *avalon.GameError to the caller-only error
// event; any other error is logged and surfaced generically.
func (d *Dispatcher) emitGameError(ctx context.Context, sess *connection.Session, roomID string, err error) {
	if gerr, ok := err.(*avalon.GameError); ok {
		d.sendError(ctx, sess.UserID, roomID, gerr.Kind, gerr.Msg)
		return
	}
	log.Error().Err(err).Msg("unexpected game error")
	d.sendError(ctx, sess.UserID, roomID, avalon.KindValidation, "action failed")
}
